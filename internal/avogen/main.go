//go:build avogen
// +build avogen

// Command avogen emits the amd64 bit-interleave tile kernels via
// mmcloughlin/avo. It is not part of any normal build — invoke it with
// `go run -tags avogen .` from this directory, piping the result through
// `go run golang.org/x/tools/cmd/goimports` and asmfmt the way avo's own
// documentation recommends, and check the generated .s/.go pair in next to
// interleave.go behind a `//go:build amd64 && !noasm` tag.
//
// Only the 1-bit tile kernel exists: -tile 2, 4, or 8 emits that same 1-bit
// kernel (see genInterleaveTileN in tile.go). interleave.go's scalar
// fallback is already format-correct on its own (see its doc comment), and
// wider tiles would be a pure performance knob.
package main

import (
	"flag"
	"fmt"

	. "github.com/mmcloughlin/avo/build"
)

var tileWidth = flag.Int("tile", 1, "bit-interleave tile width to generate (1, 2, 4, or 8)")

func main() {
	flag.Parse()

	Package("github.com/quantforge/fpcodec")
	ConstraintExpr("amd64")
	ConstraintExpr("!noasm")

	switch *tileWidth {
	case 1:
		genInterleaveTile1()
		genDeinterleaveTile1()
	case 2, 4, 8:
		genInterleaveTileN(*tileWidth)
		genDeinterleaveTileN(*tileWidth)
	default:
		panic(fmt.Sprintf("avogen: unsupported tile width %d", *tileWidth))
	}

	Generate()
}
