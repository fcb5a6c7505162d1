package fpcodec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestZigZagRoundTrip(t *testing.T) {
	cases := []int32{0, 1, -1, 2, -2, 1000, -1000, 1<<30 - 1, -(1 << 30)}
	for _, v := range cases {
		enc := zigzagEncode32(v)
		require.Equal(t, v, zigzagDecode32(enc), "zigzag round-trip for %d", v)
	}
}

func TestZigZagSmallMagnitudesStaySmall(t *testing.T) {
	require.Equal(t, uint32(0), zigzagEncode32(0))
	require.Equal(t, uint32(1), zigzagEncode32(-1))
	require.Equal(t, uint32(2), zigzagEncode32(1))
	require.Equal(t, uint32(3), zigzagEncode32(-2))
	require.Equal(t, uint32(4), zigzagEncode32(2))
}

func TestQuantizeRoundHalfToEven(t *testing.T) {
	require.Equal(t, int32(0), quantize(0.5, 1.0)) // ties to even -> 0
	require.Equal(t, int32(2), quantize(1.5, 1.0)) // ties to even -> 2
	require.Equal(t, int32(2), quantize(2.5, 1.0)) // ties to even -> 2
	require.Equal(t, int32(1), quantize(1.0, 1.0))
}

func TestEncodeGroupTieBreakFirstOccurrence(t *testing.T) {
	// Construct floats whose deltas are identical (duplicate residuals),
	// and confirm max_index lands on the first occurrence.
	floats := make([]float32, QuantGroup)
	for i := range floats {
		floats[i] = 0 // all zero -> all deltas 0 -> all residuals 0, degenerate
	}
	floats[5] = 10
	for i := 6; i < QuantGroup; i++ {
		floats[i] = 20 // a second +10 step at index 6 duplicates the largest residual
	}
	var qPrev int32
	var residual [QuantGroup]uint32
	gp := encodeGroup(&residual, &qPrev, floats, 1.0)
	require.Equal(t, uint8(5), gp.maxIndex, "max_index must be the first occurrence of the largest residual")
}

func TestGroupRoundTripScenario2ConstantNonzero(t *testing.T) {
	// spec.md scenario 2: F = [1.0] * 128, epsilon = 1.0. Every delta after
	// the first is 0, max1 = zigzag(+1) = 2 at max_index 0, max2 = 0, bits = 0.
	floats := make([]float32, QuantGroup)
	for i := range floats {
		floats[i] = 1.0
	}
	var qPrev int32
	var residual [QuantGroup]uint32
	gp := encodeGroup(&residual, &qPrev, floats, 1.0)
	require.Equal(t, uint8(0), gp.maxIndex)
	require.Equal(t, uint8(0), gp.bits)
	require.Equal(t, uint32(2), gp.high) // high = max1 >> 0 == max1 == zigzag(1) == 2

	out := make([]float32, QuantGroup)
	var qPrevDecode int32
	decodeGroup(out, &residual, &qPrevDecode, gp, 1.0)
	for i, f := range out {
		require.InDeltaf(t, 1.0, f, 1e-6, "index %d", i)
	}
}

func TestGroupRoundTripScenario4SingleSpike(t *testing.T) {
	// spec.md scenario 4: F = [0]*31 + [1000.0], epsilon = 1.0.
	floats := make([]float32, QuantGroup)
	floats[31] = 1000.0
	var qPrev int32
	var residual [QuantGroup]uint32
	gp := encodeGroup(&residual, &qPrev, floats, 1.0)
	require.Equal(t, uint8(31), gp.maxIndex)
	require.Equal(t, uint8(0), gp.bits)
	require.EqualValues(t, 2000, gp.high) // zigzag(1000) == 2000, bits == 0 so high carries it whole

	out := make([]float32, QuantGroup)
	var qPrevDecode int32
	decodeGroup(out, &residual, &qPrevDecode, gp, 1.0)
	for i := 0; i < 31; i++ {
		require.InDeltaf(t, 0.0, out[i], 1e-6, "index %d", i)
	}
	require.InDeltaf(t, 1000.0, out[31], 1e-6)
}
