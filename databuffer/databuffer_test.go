package databuffer

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tes-go/tes/messages"
	"github.com/tes-go/tes/packet"
)

func TestWriteReadFloat32RoundTrip(t *testing.T) {
	verts := []float32{
		0, 0, 0,
		1, 2, 3,
		4, 5, 6,
	}
	buf := NewFloat32(3, verts)
	require.Equal(t, 3, buf.Count())

	w := packet.NewWriter(64, 1, 1024)
	n, err := buf.Write(w, 0, messages.DctFloat32, 0, 0)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.NoError(t, w.Finalise())

	r, err := packet.NewReader(w.Bytes())
	require.NoError(t, err)
	res, err := Read(r)
	require.NoError(t, err)
	require.EqualValues(t, 0, res.Offset)
	require.EqualValues(t, 3, res.Count)
	require.EqualValues(t, 3, res.ComponentCount)
	require.Equal(t, messages.DctFloat32, res.ElementType)
	for i, v := range verts {
		require.InDelta(t, float64(v), res.Values[i], 1e-6)
	}
}

func TestWritePackedFloat16QuantisesAndRecovers(t *testing.T) {
	verts := []float32{0, 0, 0, 1.5, -2.25, 10}
	buf := NewFloat32(3, verts)

	w := packet.NewWriter(64, 1, 1024)
	unit := 0.001
	n, err := buf.Write(w, 0, messages.DctPackedFloat16, 0, unit)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.NoError(t, w.Finalise())

	r, err := packet.NewReader(w.Bytes())
	require.NoError(t, err)
	res, err := Read(r)
	require.NoError(t, err)
	require.Equal(t, messages.DctPackedFloat16, res.ElementType)
	for i, v := range verts {
		require.InDelta(t, float64(v), res.Values[i], unit)
	}
}

func TestWritePackedFloat16RejectsOutOfRange(t *testing.T) {
	// unit too small for the magnitude: packed value overflows int16.
	buf := NewFloat32(1, []float32{1000})
	w := packet.NewWriter(64, 1, 1024)
	_, err := buf.Write(w, 0, messages.DctPackedFloat16, 0, 0.001)
	require.ErrorIs(t, err, ErrUnrepresentable)
}

func TestWriteRespectsByteLimitPartialWrite(t *testing.T) {
	verts := []float32{
		0, 0, 0,
		1, 1, 1,
		2, 2, 2,
		3, 3, 3,
	}
	buf := NewFloat32(3, verts)
	w := packet.NewWriter(64, 1, 1024)

	// Header is 8 bytes (offset4+count2+cc1+type1); one float32x3 element is
	// 12 bytes. Budget for exactly two elements.
	n, err := buf.Write(w, 0, messages.DctFloat32, 8+2*12, 0)
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestWriteUint32IndicesRoundTrip(t *testing.T) {
	indices := []uint32{0, 1, 2, 2, 1, 3}
	buf := NewUint32(1, indices)
	require.Equal(t, 6, buf.Count())

	w := packet.NewWriter(64, 1, 256)
	n, err := buf.Write(w, 0, messages.DctUInt32, 0, 0)
	require.NoError(t, err)
	require.Equal(t, 6, n)
	require.NoError(t, w.Finalise())

	r, err := packet.NewReader(w.Bytes())
	require.NoError(t, err)
	res, err := Read(r)
	require.NoError(t, err)
	for i, v := range indices {
		require.EqualValues(t, v, res.Values[i])
	}
}

func TestDuplicateUpgradesToOwnedCopy(t *testing.T) {
	src := []float32{1, 2, 3}
	buf := NewFloat32(3, src)
	require.False(t, buf.Owned)

	dup := buf.Duplicate()
	require.True(t, dup.Owned)
	dup.F32[0] = 99
	require.Equal(t, float32(1), src[0], "duplicate must not alias the original backing array")
}

func TestAtWidensAcrossTypes(t *testing.T) {
	buf := NewUint32(1, []uint32{42})
	require.Equal(t, float64(42), buf.At(0, 0))
}
