package collate

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tes-go/tes/packet"
)

func innerFrame(t *testing.T, routingID uint16, payload []byte) []byte {
	t.Helper()
	w := packet.NewWriter(routingID, 1, uint16(len(payload)))
	_, err := w.WriteRaw(payload)
	require.NoError(t, err)
	require.NoError(t, w.Finalise())
	return w.Bytes()
}

func TestCollateUncompressedRoundTrip(t *testing.T) {
	inners := [][]byte{
		innerFrame(t, 64, bytes.Repeat([]byte{0xAB}, 100)),
		innerFrame(t, 65, bytes.Repeat([]byte{0xCD}, 200)),
		innerFrame(t, 66, bytes.Repeat([]byte{0xEF}, 300)),
	}

	w := NewWriter(MaxPacketSize, false)
	var total int
	for _, f := range inners {
		n, err := w.Add(f)
		require.NoError(t, err)
		total += n
	}
	outer, err := w.Finalise()
	require.NoError(t, err)
	require.NoError(t, outer.Finalise())

	r, err := packet.NewReader(outer.Bytes())
	require.NoError(t, err)

	dec, err := NewDecoder(r)
	require.NoError(t, err)

	var got [][]byte
	for {
		f, err := dec.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, f)
	}
	require.Equal(t, inners, got)
}

func TestCollateCompressionOnlyWhenSmaller(t *testing.T) {
	// Highly compressible payload: compressed form should be chosen.
	compressible := innerFrame(t, 64, bytes.Repeat([]byte{0x00}, 4000))

	w := NewWriter(MaxPacketSize, true)
	_, err := w.Add(compressible)
	require.NoError(t, err)
	outer, err := w.Finalise()
	require.NoError(t, err)
	require.NoError(t, outer.Finalise())

	r, err := packet.NewReader(outer.Bytes())
	require.NoError(t, err)
	require.Less(t, len(outer.Bytes()), len(compressible)+packet.HeaderSize+2)

	dec, err := NewDecoder(r)
	require.NoError(t, err)
	got, err := dec.Next()
	require.NoError(t, err)
	require.Equal(t, compressible, got)
}

func TestCollateRejectsOversizedBatch(t *testing.T) {
	w := NewWriter(64, false) // tiny ceiling
	big := innerFrame(t, 64, bytes.Repeat([]byte{1}, 100))
	_, err := w.Add(big)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrTooLarge)
}
