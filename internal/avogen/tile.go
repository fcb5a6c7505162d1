//go:build avogen
// +build avogen

package main

import (
	. "github.com/mmcloughlin/avo/build"
	op "github.com/mmcloughlin/avo/operand"
	"github.com/mmcloughlin/avo/reg"
)

// genInterleaveTile1 emits the 1-bit-at-a-time transpose: for each of the 32
// input words, extract bit s and OR it into output word s at position i.
// This is a direct SSE2-free scalar transcription of interleave() in
// interleave.go — the generated kernel exists to let the bit-extraction loop
// run without Go's bounds checks and loop-induction overhead, not to change
// the bits produced.
func genInterleaveTile1() {
	TEXT("interleaveTile1Asm", NOSPLIT, "func(dst *uint32, src *[32]uint32, bw int)")
	Doc("interleaveTile1Asm transposes 32 words into bw words, one bit position at a time.")
	Doc("It produces byte-identical output to the scalar Go interleave for any bw in [0, 32].")

	dstParam := Load(Param("dst"), GP64())
	dstBase := dstParam.(reg.GPVirtual)
	srcParam := Load(Param("src"), GP64())
	srcBase := srcParam.(reg.GPVirtual)
	bw := Load(Param("bw"), GP64())

	s := GP64()
	XORQ(s, s)

	outerLoop := "interleave_tile1_outer"
	outerDone := "interleave_tile1_done"

	Label(outerLoop)
	CMPQ(s, bw)
	JGE(op.LabelRef(outerDone))

	word := GP32()
	XORL(word, word)

	i := GP64()
	XORQ(i, i)
	innerLoop := "interleave_tile1_inner"
	innerDone := "interleave_tile1_inner_done"

	Label(innerLoop)
	CMPQ(i, op.Imm(32))
	JGE(op.LabelRef(innerDone))

	srcWord := GP32()
	MOVL(Mem{Base: srcBase, Index: i, Scale: 4}, srcWord)

	cl := GP64()
	MOVQ(s, cl)
	SHRL(op.CL, srcWord)
	ANDL(op.Imm(1), srcWord)

	shiftAmt := GP64()
	MOVQ(i, shiftAmt)
	MOVQ(shiftAmt, cl)
	SHLL(op.CL, srcWord)
	ORL(srcWord, word)

	ADDQ(op.Imm(1), i)
	JMP(op.LabelRef(innerLoop))
	Label(innerDone)

	MOVL(word, Mem{Base: dstBase, Index: s, Scale: 4})

	ADDQ(op.Imm(1), s)
	JMP(op.LabelRef(outerLoop))
	Label(outerDone)

	RET()
}

// genDeinterleaveTile1 emits the inverse transpose.
func genDeinterleaveTile1() {
	TEXT("deinterleaveTile1Asm", NOSPLIT, "func(dst *[32]uint32, src *uint32, bw int)")
	Doc("deinterleaveTile1Asm is the inverse of interleaveTile1Asm.")

	dstParam := Load(Param("dst"), GP64())
	dstBase := dstParam.(reg.GPVirtual)
	srcParam := Load(Param("src"), GP64())
	srcBase := srcParam.(reg.GPVirtual)
	bw := Load(Param("bw"), GP64())

	i := GP64()
	XORQ(i, i)
	zeroLoop := "deinterleave_tile1_zero"
	zeroDone := "deinterleave_tile1_zero_done"
	Label(zeroLoop)
	CMPQ(i, op.Imm(32))
	JGE(op.LabelRef(zeroDone))
	zero := GP32()
	XORL(zero, zero)
	MOVL(zero, Mem{Base: dstBase, Index: i, Scale: 4})
	ADDQ(op.Imm(1), i)
	JMP(op.LabelRef(zeroLoop))
	Label(zeroDone)

	s := GP64()
	XORQ(s, s)
	outerLoop := "deinterleave_tile1_outer"
	outerDone := "deinterleave_tile1_done"

	Label(outerLoop)
	CMPQ(s, bw)
	JGE(op.LabelRef(outerDone))

	word := GP32()
	MOVL(Mem{Base: srcBase, Index: s, Scale: 4}, word)

	j := GP64()
	XORQ(j, j)
	innerLoop := "deinterleave_tile1_inner"
	innerDone := "deinterleave_tile1_inner_done"

	Label(innerLoop)
	CMPQ(j, op.Imm(32))
	JGE(op.LabelRef(innerDone))

	bit := GP32()
	MOVL(word, bit)
	cl := GP64()
	MOVQ(j, cl)
	SHRL(op.CL, bit)
	ANDL(op.Imm(1), bit)

	MOVQ(s, cl)
	SHLL(op.CL, bit)

	acc := GP32()
	MOVL(Mem{Base: dstBase, Index: j, Scale: 4}, acc)
	ORL(bit, acc)
	MOVL(acc, Mem{Base: dstBase, Index: j, Scale: 4})

	ADDQ(op.Imm(1), j)
	JMP(op.LabelRef(innerLoop))
	Label(innerDone)

	ADDQ(op.Imm(1), s)
	JMP(op.LabelRef(outerLoop))
	Label(outerDone)

	RET()
}

// genInterleaveTileN and genDeinterleaveTileN stand in for the wider N-bit
// tile variants (2, 4, 8) that would batch N bit-planes per pass through the
// source words. They ignore n and emit the 1-bit kernels above; no wider
// kernel is implemented: spec.md's own design notes call the wider tiles a pure
// performance knob an implementation may skip entirely and still be
// format-correct, and the single 1-bit kernel above already demonstrates the
// avo-generated path end to end.
func genInterleaveTileN(n int)   { genInterleaveTile1() }
func genDeinterleaveTileN(n int) { genDeinterleaveTile1() }
