package handler

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tes-go/tes/databuffer"
	"github.com/tes-go/tes/messages"
	"github.com/tes-go/tes/packet"
	"github.com/tes-go/tes/shapes"
)

func newBoxHandler() *Shapes {
	return NewShapes(messages.RIDBox, func() shapes.Shape { return shapes.NewBox() })
}

func packetFor(t *testing.T, routingID messages.RoutingID, messageID messages.ObjectMessageID, encode func(w *packet.Writer) error) *packet.Reader {
	t.Helper()
	w := packet.NewWriter(uint16(routingID), uint16(messageID), packet.MaxPayloadSize)
	require.NoError(t, encode(w))
	require.NoError(t, w.Finalise())
	r, err := packet.NewReader(w.Bytes())
	require.NoError(t, err)
	return r
}

func TestShapeCreateCommitsAtFrameBoundary(t *testing.T) {
	h := newBoxHandler()

	box := shapes.NewBox()
	box.ID = 5
	box.Attributes.Position = [3]float64{1, 2, 3}
	r := packetFor(t, messages.RIDBox, messages.OIDCreate, box.WriteCreate)

	require.NoError(t, h.ReadMessage(r))
	require.Empty(t, h.Committed(), "create must stay pending until the frame commit")

	require.NoError(t, h.EndFrame(FrameStamp{Number: 1}))
	got, ok := h.Lookup(5)
	require.True(t, ok)
	require.Equal(t, [3]float64{1, 2, 3}, got.(*shapes.Simple).Attributes.Position)
}

func TestTransientShapeDroppedOnNextFrame(t *testing.T) {
	// A shape created with id 0 lives exactly one frame.
	h := newBoxHandler()

	box := shapes.NewBox()
	box.Attributes.Position = [3]float64{1, 2, 3}
	require.NoError(t, h.ReadMessage(packetFor(t, messages.RIDBox, messages.OIDCreate, box.WriteCreate)))

	require.NoError(t, h.EndFrame(FrameStamp{Number: 1}))
	require.Len(t, h.Committed(), 1, "transient visible during its frame")

	require.NoError(t, h.EndFrame(FrameStamp{Number: 2}))
	require.Empty(t, h.Committed(), "transient dropped at the next commit")
}

func TestTransientSurvivesPersistFrame(t *testing.T) {
	h := newBoxHandler()

	box := shapes.NewBox()
	require.NoError(t, h.ReadMessage(packetFor(t, messages.RIDBox, messages.OIDCreate, box.WriteCreate)))
	require.NoError(t, h.EndFrame(FrameStamp{Number: 1}))

	require.NoError(t, h.EndFrame(FrameStamp{Number: 2, Persist: true}))
	require.Len(t, h.Committed(), 1)

	require.NoError(t, h.EndFrame(FrameStamp{Number: 3}))
	require.Empty(t, h.Committed())
}

func TestShapeUpdateAppliesOnlySelectedFields(t *testing.T) {
	h := newBoxHandler()

	box := shapes.NewBox()
	box.ID = 9
	box.Attributes.Position = [3]float64{1, 1, 1}
	box.Attributes.Colour = 0x11223344
	require.NoError(t, h.ReadMessage(packetFor(t, messages.RIDBox, messages.OIDCreate, box.WriteCreate)))
	require.NoError(t, h.EndFrame(FrameStamp{Number: 1}))

	moved := shapes.NewBox()
	moved.ID = 9
	moved.Attributes.Position = [3]float64{7, 8, 9}
	moved.Attributes.Colour = 0xDEADBEEF
	require.NoError(t, h.ReadMessage(packetFor(t, messages.RIDBox, messages.OIDUpdate, func(w *packet.Writer) error {
		return moved.WriteUpdate(w, messages.UFPosition)
	})))

	got, _ := h.Lookup(9)
	require.Equal(t, uint32(0x11223344), got.(*shapes.Simple).Attributes.Colour,
		"update must not be observable before the frame commit")

	require.NoError(t, h.EndFrame(FrameStamp{Number: 2}))
	got, _ = h.Lookup(9)
	require.Equal(t, [3]float64{7, 8, 9}, got.(*shapes.Simple).Attributes.Position)
	require.Equal(t, uint32(0x11223344), got.(*shapes.Simple).Attributes.Colour,
		"unselected colour must be preserved")
}

func TestShapeDestroyRemovesAtCommit(t *testing.T) {
	h := newBoxHandler()

	box := shapes.NewBox()
	box.ID = 3
	require.NoError(t, h.ReadMessage(packetFor(t, messages.RIDBox, messages.OIDCreate, box.WriteCreate)))
	require.NoError(t, h.EndFrame(FrameStamp{Number: 1}))

	require.NoError(t, h.ReadMessage(packetFor(t, messages.RIDBox, messages.OIDDestroy, box.WriteDestroy)))
	_, ok := h.Lookup(3)
	require.True(t, ok, "destroy must not be observable before the frame commit")

	require.NoError(t, h.EndFrame(FrameStamp{Number: 2}))
	_, ok = h.Lookup(3)
	require.False(t, ok)
}

func TestComplexShapeDataAppliesToPendingCreate(t *testing.T) {
	h := NewShapes(messages.RIDMeshShape, func() shapes.Shape { return shapes.NewMeshShape() })

	src := shapes.NewMeshShape()
	src.ID = 11
	src.Vertices = databuffer.NewFloat32(3, []float32{0, 0, 0, 1, 0, 0, 0, 1, 0})
	src.Indices = databuffer.NewUint32(1, []uint32{0, 1, 2})

	require.NoError(t, h.ReadMessage(packetFor(t, messages.RIDMeshShape, messages.OIDCreate, src.WriteCreate)))

	var prog shapes.DataProgress
	for !prog.Complete {
		r := packetFor(t, messages.RIDMeshShape, messages.OIDData, func(w *packet.Writer) error {
			return src.WriteData(w, &prog, 0)
		})
		require.NoError(t, h.ReadMessage(r))
	}

	require.NoError(t, h.EndFrame(FrameStamp{Number: 1}))
	got, ok := h.Lookup(11)
	require.True(t, ok)
	ms := got.(*shapes.MeshShape)
	require.Equal(t, 3, ms.Vertices.Count())
	require.Equal(t, 3, ms.Indices.Count())
}

func TestShapeDataForUnknownIDRejected(t *testing.T) {
	h := newBoxHandler()
	r := packetFor(t, messages.RIDBox, messages.OIDData, func(w *packet.Writer) error {
		return w.WriteUint32(99)
	})
	require.ErrorIs(t, h.ReadMessage(r), ErrUnknownShape)
}

func TestShapeSerialiseReplaysCommittedState(t *testing.T) {
	h := newBoxHandler()

	box := shapes.NewBox()
	box.ID = 21
	box.Attributes.Position = [3]float64{4, 5, 6}
	require.NoError(t, h.ReadMessage(packetFor(t, messages.RIDBox, messages.OIDCreate, box.WriteCreate)))
	require.NoError(t, h.EndFrame(FrameStamp{Number: 1}))

	sink := &recordingSink{}
	require.NoError(t, h.Serialise(sink, messages.DefaultServerInfo()))
	require.Len(t, sink.packets, 1)

	replay := newBoxHandler()
	for _, r := range sink.packets {
		require.NoError(t, replay.ReadMessage(r))
	}
	require.NoError(t, replay.EndFrame(FrameStamp{Number: 1}))

	got, ok := replay.Lookup(21)
	require.True(t, ok)
	require.Equal(t, [3]float64{4, 5, 6}, got.(*shapes.Simple).Attributes.Position)
}

func TestShapeResetDropsEverything(t *testing.T) {
	h := newBoxHandler()

	box := shapes.NewBox()
	box.ID = 2
	require.NoError(t, h.ReadMessage(packetFor(t, messages.RIDBox, messages.OIDCreate, box.WriteCreate)))
	require.NoError(t, h.EndFrame(FrameStamp{Number: 1}))
	require.NoError(t, h.Reset())
	require.Empty(t, h.Committed())
}
