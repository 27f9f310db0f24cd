package messages

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tes-go/tes/packet"
)

func roundTrip(t *testing.T, routingID, messageID uint16, payloadCap int, write func(*packet.Writer) error, read func(*packet.Reader) error) {
	t.Helper()
	w := packet.NewWriter(routingID, messageID, uint16(payloadCap))
	require.NoError(t, write(w))
	require.NoError(t, w.Finalise())
	r, err := packet.NewReader(w.Bytes())
	require.NoError(t, err)
	require.NoError(t, read(r))
}

func TestServerInfoRoundTrip(t *testing.T) {
	in := DefaultServerInfo()
	var out ServerInfo
	roundTrip(t, uint16(RIDServerInfo), 0, ServerInfoByteSize, in.Write, out.Read)
	require.Equal(t, in, out)
}

func TestControlRoundTrip(t *testing.T) {
	in := Control{Flags: uint32(CFFramePersist), Value32: 7, Value64: 99}
	var out Control
	roundTrip(t, uint16(RIDControl), uint16(CIDFrame), 16, in.Write, out.Read)
	require.Equal(t, in, out)
}

func TestCollatedPacketHeaderRoundTrip(t *testing.T) {
	in := CollatedPacketHeader{Flags: CPFCompress, UncompressedBytes: 12345}
	var out CollatedPacketHeader
	roundTrip(t, uint16(RIDCollated), 0, 8, in.Write, out.Read)
	require.Equal(t, in, out)
}

func TestCategoryNameRoundTrip(t *testing.T) {
	in := CategoryName{CategoryID: 3, ParentID: 1, DefaultActive: 1, Name: "wheels"}
	var out CategoryName
	roundTrip(t, uint16(RIDCategory), uint16(CMIDName), 64, in.Write, out.Read)
	require.Equal(t, in, out)
}

func TestObjectAttributesSinglePrecisionRoundTrip(t *testing.T) {
	in := ObjectAttributes{
		Colour:   0xAABBCCDD,
		Position: [3]float64{1, 2, 3},
		Rotation: [4]float64{0, 0, 0, 1},
		Scale:    [3]float64{1, 1, 1},
	}
	var out ObjectAttributes
	roundTrip(t, uint16(RIDSphere), 0, 64,
		func(w *packet.Writer) error { return in.Write(w, false) },
		func(r *packet.Reader) error { return out.Read(r, false) })
	require.Equal(t, in.Colour, out.Colour)
	require.InDeltaSlice(t, in.Position[:], out.Position[:], 1e-6)
	require.InDeltaSlice(t, in.Rotation[:], out.Rotation[:], 1e-6)
	require.InDeltaSlice(t, in.Scale[:], out.Scale[:], 1e-6)
}

func TestObjectAttributesDoublePrecisionRoundTrip(t *testing.T) {
	in := ObjectAttributes{
		Colour:   0xFFFFFFFF,
		Position: [3]float64{1.123456789012, -2.5, 3e8},
		Rotation: [4]float64{0.1, 0.2, 0.3, 0.9},
		Scale:    [3]float64{2, 2, 2},
	}
	var out ObjectAttributes
	roundTrip(t, uint16(RIDBox), 0, 96,
		func(w *packet.Writer) error { return in.Write(w, true) },
		func(r *packet.Reader) error { return out.Read(r, true) })
	require.Equal(t, in, out)
}
