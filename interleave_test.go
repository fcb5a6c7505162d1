package fpcodec

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInterleaveLaw(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for bw := 0; bw <= 32; bw++ {
		var src [QuantGroup]uint32
		mask := uint32(1)<<uint(bw) - 1
		for i := range src {
			src[i] = rng.Uint32() & mask
		}
		dst := make([]uint32, bw)
		interleave(dst, &src, bw)

		var back [QuantGroup]uint32
		deinterleave(&back, dst, bw)
		require.Equal(t, src, back, "bit width %d", bw)
	}
}

func TestInterleaveZeroWidthProducesNoWords(t *testing.T) {
	var src [QuantGroup]uint32
	dst := make([]uint32, 0)
	interleave(dst, &src, 0)
	require.Empty(t, dst)
}

func TestInterleaveBitSliceEquation(t *testing.T) {
	var src [QuantGroup]uint32
	for i := range src {
		src[i] = uint32(i) & 0x7 // 3 significant bits
	}
	dst := make([]uint32, 3)
	interleave(dst, &src, 3)
	for s := 0; s < 3; s++ {
		for i := 0; i < QuantGroup; i++ {
			want := (src[i] >> uint(s)) & 1
			got := (dst[s] >> uint(i)) & 1
			require.Equal(t, want, got, "slice %d, word %d", s, i)
		}
	}
}
