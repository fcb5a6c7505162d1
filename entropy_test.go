package fpcodec

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestZstdCoderStreamingRoundTrip(t *testing.T) {
	coder := newZstdCoder()

	payload := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog"), 500)

	var compressed bytes.Buffer
	w, err := coder.newWriter(&compressed)
	require.NoError(t, err)

	// Exercise the "repeatedly given an input span" streaming contract by
	// writing in several chunks rather than one shot.
	for i := 0; i < len(payload); i += 97 {
		end := i + 97
		if end > len(payload) {
			end = len(payload)
		}
		n, err := w.Write(payload[i:end])
		require.NoError(t, err)
		require.Equal(t, end-i, n)
	}
	require.NoError(t, w.Close())
	require.Less(t, compressed.Len(), len(payload))

	r, err := coder.newReader(bytes.NewReader(compressed.Bytes()))
	require.NoError(t, err)
	defer r.Close()

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}
