package fpcodec

import (
	"fmt"
)

// block holds one FloatsPerBlock-wide slab's worth of group parameters and
// packed residual words, laid out exactly as spec.md §4.3 describes:
//
//	offset 0                    : max_index[0..ParamsPerBlock-1]  (1 byte each)
//	offset ParamsPerBlock       : bits[0..ParamsPerBlock-1]       (1 byte each)
//	offset ParamsPerBlock*2     : high[0..ParamsPerBlock-1]       (4 bytes LE each)
//	offset ParamsPerBlock*6     : packed residuals (32-bit LE words)
//
// (worker, group) indexes into each parameter array at
// worker*GroupsPerWorker+group, so one worker's four triples are contiguous.
type block struct {
	maxIndex  [ParamsPerBlock]uint8
	bits      [ParamsPerBlock]uint8
	high      [ParamsPerBlock]uint32
	packed    []uint32
	usedWords int
}

func paramIndex(worker, group int) int { return worker*GroupsPerWorker + group }

// workerOffsets computes, from the per-group bit-width table alone, the
// exclusive prefix sum of each worker's used_words — its offset into the
// packed region — and the block total. This is the host-side equivalent of
// the device's shared-scratch prefix sum: on encode it runs right after the
// "write parameters" phase completes, on decode it's recomputed from the
// parsed bits table, since the packed region's layout is fully determined by
// it.
func workerOffsets(bits *[ParamsPerBlock]uint8) (offsets [WorkersPerBlock]int, total int) {
	acc := 0
	for w := 0; w < WorkersPerBlock; w++ {
		offsets[w] = acc
		for g := 0; g < GroupsPerWorker; g++ {
			acc += int(bits[paramIndex(w, g)])
		}
	}
	return offsets, acc
}

// encodeBlock quantizes, delta-encodes, and bit-packs exactly FloatsPerBlock
// floats (callers zero-pad the trailing block). Control flow mirrors spec.md
// §4.3's single-pass device kernel: all 256 workers compute their group
// parameters on one Launch, a barrier (Synchronize) makes every parameter
// visible, the host performs the exclusive prefix sum over used_words, a
// second barrier (Launch+Synchronize) packs residuals at their allocated
// offsets. Workers own disjoint parameter-table and packed-region slices, so
// no locking is required beyond those two barriers.
func encodeBlock(acc Accelerator, sc *releaseScope, floats *[FloatsPerBlock]float32, epsilon float32) (*block, error) {
	b := &block{}

	stream, err := acc.NewStream()
	if err != nil {
		return nil, wrapDeviceErr("new stream", err)
	}
	sc.onRelease(func() { acc.DestroyStream(stream) })

	residuals := make([][GroupsPerWorker][QuantGroup]uint32, WorkersPerBlock)

	err = acc.Launch(stream, WorkersPerBlock, func(w int) error {
		var qPrev int32
		for g := 0; g < GroupsPerWorker; g++ {
			start := w*FloatsPerWorker + g*QuantGroup
			gp := encodeGroup(&residuals[w][g], &qPrev, floats[start:start+QuantGroup], epsilon)
			idx := paramIndex(w, g)
			b.maxIndex[idx] = gp.maxIndex
			b.bits[idx] = gp.bits
			b.high[idx] = gp.high
		}
		return nil
	})
	if err != nil {
		return nil, wrapDeviceErr("encode parameters", err)
	}
	if err := acc.Synchronize(stream); err != nil {
		return nil, wrapDeviceErr("synchronize parameters", err)
	}

	offsets, total := workerOffsets(&b.bits)
	b.usedWords = total
	b.packed = make([]uint32, total)

	err = acc.Launch(stream, WorkersPerBlock, func(w int) error {
		off := offsets[w]
		for g := 0; g < GroupsPerWorker; g++ {
			bw := int(b.bits[paramIndex(w, g)])
			if bw == 0 {
				continue
			}
			interleave(b.packed[off:off+bw], &residuals[w][g], bw)
			off += bw
		}
		return nil
	})
	if err != nil {
		return nil, wrapDeviceErr("pack residuals", err)
	}
	if err := acc.Synchronize(stream); err != nil {
		return nil, wrapDeviceErr("synchronize pack", err)
	}

	return b, nil
}

// decodeBlock inverts encodeBlock, writing exactly FloatsPerBlock floats into
// out. b.usedWords is the block's word count as recorded in the global
// header; it must match the total recomputed from the parsed bits table, or
// the block is rejected as malformed.
func decodeBlock(acc Accelerator, sc *releaseScope, out *[FloatsPerBlock]float32, b *block, epsilon float32) error {
	offsets, total := workerOffsets(&b.bits)
	if total != b.usedWords {
		return fmt.Errorf("%w: header says %d words, parameters imply %d", ErrBlockSize, b.usedWords, total)
	}

	stream, err := acc.NewStream()
	if err != nil {
		return wrapDeviceErr("new stream", err)
	}
	sc.onRelease(func() { acc.DestroyStream(stream) })

	err = acc.Launch(stream, WorkersPerBlock, func(w int) error {
		var qPrev int32
		off := offsets[w]
		for g := 0; g < GroupsPerWorker; g++ {
			idx := paramIndex(w, g)
			bw := int(b.bits[idx])
			var residual [QuantGroup]uint32
			if bw > 0 {
				if off+bw > len(b.packed) {
					return fmt.Errorf("%w: packed region truncated", ErrShortBuffer)
				}
				deinterleave(&residual, b.packed[off:off+bw], bw)
				off += bw
			}
			gp := groupParams{maxIndex: b.maxIndex[idx], bits: b.bits[idx], high: b.high[idx]}
			dst := out[w*FloatsPerWorker+g*QuantGroup : w*FloatsPerWorker+(g+1)*QuantGroup]
			decodeGroup(dst, &residual, &qPrev, gp, epsilon)
		}
		return nil
	})
	if err != nil {
		return wrapDeviceErr("decode groups", err)
	}
	if err := acc.Synchronize(stream); err != nil {
		return wrapDeviceErr("synchronize decode", err)
	}
	return nil
}

// marshal serializes the block in the exact §4.3 byte layout.
func (b *block) marshal() []byte {
	out := make([]byte, ParamsPerBlock*ParamBytes+len(b.packed)*4)
	copy(out[0:ParamsPerBlock], b.maxIndex[:])
	copy(out[ParamsPerBlock:ParamsPerBlock*2], b.bits[:])
	highOff := ParamsPerBlock * 2
	for i, h := range b.high {
		bo.PutUint32(out[highOff+i*4:], h)
	}
	packedOff := ParamsPerBlock * ParamBytes
	for i, w := range b.packed {
		bo.PutUint32(out[packedOff+i*4:], w)
	}
	return out
}

// parseBlock reads a block serialized by marshal, given the used-word count
// recorded for it in the global header.
func parseBlock(raw []byte, usedWords int) (*block, error) {
	minLen := ParamsPerBlock*ParamBytes + usedWords*4
	if len(raw) < minLen {
		return nil, fmt.Errorf("%w: block needs %d bytes, have %d", ErrShortBuffer, minLen, len(raw))
	}
	b := &block{usedWords: usedWords}
	copy(b.maxIndex[:], raw[0:ParamsPerBlock])
	copy(b.bits[:], raw[ParamsPerBlock:ParamsPerBlock*2])
	highOff := ParamsPerBlock * 2
	for i := range b.high {
		b.high[i] = bo.Uint32(raw[highOff+i*4:])
	}
	packedOff := ParamsPerBlock * ParamBytes
	b.packed = make([]uint32, usedWords)
	for i := range b.packed {
		b.packed[i] = bo.Uint32(raw[packedOff+i*4:])
	}
	return b, nil
}
