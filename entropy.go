package fpcodec

import (
	"io"

	"github.com/klauspost/compress/zstd"
)

// entropyCoder is the seam between the core format and the external,
// general-purpose entropy coder spec.md §6 describes: streaming compress
// (repeatedly given an input span, appends to an output span, flushed at
// the end) and streaming decompress (given an input span, writes up to a
// caller-specified amount into an output span, 0 at frame end). Go's
// io.WriteCloser/io.ReadCloser are that contract's natural idiomatic shape,
// so newWriter/newReader return exactly those.
type entropyCoder interface {
	newWriter(w io.Writer) (io.WriteCloser, error)
	newReader(r io.Reader) (io.ReadCloser, error)
}

// zstdCoder implements entropyCoder on top of klauspost/compress/zstd, the
// same streaming entropy coder vendored by dsnet-compress and the other
// corpus repos that shell out to zstd/flate for their byte-stream stage.
// ENTROPY_LEVEL (1) maps directly onto zstd.SpeedFastest, whose own value is
// 1 — the fastest, lowest-ratio preset, matching a level meant to be cheap
// enough to run per compress/decompress call rather than tuned per corpus.
type zstdCoder struct{}

func newZstdCoder() *zstdCoder { return &zstdCoder{} }

func (zstdCoder) newWriter(w io.Writer) (io.WriteCloser, error) {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, wrapEntropyErr("new writer", err)
	}
	return enc, nil
}

func (zstdCoder) newReader(r io.Reader) (io.ReadCloser, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, wrapEntropyErr("new reader", err)
	}
	return &zstdReadCloser{dec}, nil
}

// zstdReadCloser adapts *zstd.Decoder (whose Close returns nothing) to
// io.ReadCloser.
type zstdReadCloser struct {
	*zstd.Decoder
}

func (z *zstdReadCloser) Close() error {
	z.Decoder.Close()
	return nil
}

func wrapEntropyErr(op string, err error) error {
	return &entropyError{op: op, err: err}
}

type entropyError struct {
	op  string
	err error
}

func (e *entropyError) Error() string { return "fpcodec: entropy coder " + e.op + ": " + e.err.Error() }
func (e *entropyError) Unwrap() error { return e.err }
func (e *entropyError) Is(target error) bool { return target == ErrEntropyCoder }
