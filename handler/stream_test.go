package handler

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tes-go/tes/category"
	"github.com/tes-go/tes/collate"
	"github.com/tes-go/tes/messages"
	"github.com/tes-go/tes/packet"
	"github.com/tes-go/tes/shapes"
)

func controlFrame(t *testing.T, id messages.ControlID, ctrl messages.Control) []byte {
	t.Helper()
	w := packet.NewWriter(uint16(messages.RIDControl), uint16(id), 32)
	require.NoError(t, ctrl.Write(w))
	require.NoError(t, w.Finalise())
	return w.Bytes()
}

func newTestProcessor(t *testing.T) (*StreamProcessor, *Shapes) {
	t.Helper()
	var tree category.Tree
	reg := NewDefaultRegistry(&tree)
	boxes, ok := reg.Lookup(messages.RIDBox)
	require.True(t, ok)
	return NewStreamProcessor(reg), boxes.(*Shapes)
}

func TestStreamFrameControlCommitsHandlers(t *testing.T) {
	p, boxes := newTestProcessor(t)

	box := shapes.NewBox()
	box.ID = 1
	w := packet.NewWriter(uint16(messages.RIDBox), uint16(messages.OIDCreate), 128)
	require.NoError(t, box.WriteCreate(w))
	require.NoError(t, w.Finalise())
	require.NoError(t, p.ProcessFrame(w.Bytes()))

	require.Empty(t, boxes.Committed())

	require.NoError(t, p.ProcessFrame(controlFrame(t, messages.CIDFrame, messages.Control{})))
	require.Len(t, boxes.Committed(), 1)
	require.Equal(t, uint32(1), p.FrameNumber())
}

func TestStreamResetDropsStateAndReseedsFrame(t *testing.T) {
	p, boxes := newTestProcessor(t)

	box := shapes.NewBox()
	box.ID = 1
	w := packet.NewWriter(uint16(messages.RIDBox), uint16(messages.OIDCreate), 128)
	require.NoError(t, box.WriteCreate(w))
	require.NoError(t, w.Finalise())
	require.NoError(t, p.ProcessFrame(w.Bytes()))
	require.NoError(t, p.ProcessFrame(controlFrame(t, messages.CIDFrame, messages.Control{})))

	require.NoError(t, p.ProcessFrame(controlFrame(t, messages.CIDReset, messages.Control{Value32: 42})))
	require.Empty(t, boxes.Committed())
	require.Equal(t, uint32(42), p.FrameNumber())
}

func TestStreamServerInfoPropagates(t *testing.T) {
	p, _ := newTestProcessor(t)

	info := messages.ServerInfo{TimeUnit: 500, DefaultFrameTime: 16, CoordinateFrame: messages.CFZXY}
	w := packet.NewWriter(uint16(messages.RIDServerInfo), 0, 64)
	require.NoError(t, info.Write(w))
	require.NoError(t, w.Finalise())

	require.NoError(t, p.ProcessFrame(w.Bytes()))
	require.Equal(t, info, p.ServerInfo())
}

func TestStreamUnknownRoutingSkipped(t *testing.T) {
	p, _ := newTestProcessor(t)

	w := packet.NewWriter(uint16(messages.RIDUserStart), 0, 16)
	require.NoError(t, w.WriteUint32(0xDEAD))
	require.NoError(t, w.Finalise())
	require.NoError(t, p.ProcessFrame(w.Bytes()), "unknown routing ids must not poison the stream")
}

func TestStreamCollatedPacketExpandsInOrder(t *testing.T) {
	p, boxes := newTestProcessor(t)

	col := collate.NewWriter(0xFFFF, true)
	for id := uint32(1); id <= 3; id++ {
		box := shapes.NewBox()
		box.ID = id
		w := packet.NewWriter(uint16(messages.RIDBox), uint16(messages.OIDCreate), 128)
		require.NoError(t, box.WriteCreate(w))
		require.NoError(t, w.Finalise())
		_, err := col.Add(w.Bytes())
		require.NoError(t, err)
	}
	frame := controlFrame(t, messages.CIDFrame, messages.Control{})
	_, err := col.Add(frame)
	require.NoError(t, err)

	outer, err := col.Finalise()
	require.NoError(t, err)
	require.NoError(t, outer.Finalise())

	require.NoError(t, p.ProcessFrame(outer.Bytes()))
	require.Len(t, boxes.Committed(), 3)
	require.Equal(t, uint32(1), p.FrameNumber())
}

func TestStreamEndStopsProcessing(t *testing.T) {
	p, _ := newTestProcessor(t)
	require.NoError(t, p.ProcessFrame(controlFrame(t, messages.CIDEnd, messages.Control{})))
	require.True(t, p.Ended())
	require.ErrorIs(t, p.ProcessFrame(controlFrame(t, messages.CIDFrame, messages.Control{})), ErrStreamEnded)
}

func TestStreamFrameCountRecorded(t *testing.T) {
	p, _ := newTestProcessor(t)
	require.NoError(t, p.ProcessFrame(controlFrame(t, messages.CIDFrameCount, messages.Control{Value32: 99})))
	require.Equal(t, uint32(99), p.FrameCount())
}
