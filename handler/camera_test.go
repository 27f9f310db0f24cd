package handler

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tes-go/tes/messages"
	"github.com/tes-go/tes/packet"
)

func TestCameraPitchYawRoundTripXYZ(t *testing.T) {
	// Camera looking straight down the reference forward with reference
	// up: pitch and yaw should both come out ~0.
	_, fwd, up := worldAxes(messages.CFXYZ)
	pitch, yaw := calculatePitchYaw(fwd, up, fwd, up)
	require.InDelta(t, 0, pitch, 1e-5)
	require.InDelta(t, 0, yaw, 1e-5)

	outFwd, outUp := calculateCameraAxes(pitch, yaw, fwd, up)
	require.InDelta(t, fwd[0], outFwd[0], 1e-5)
	require.InDelta(t, fwd[1], outFwd[1], 1e-5)
	require.InDelta(t, fwd[2], outFwd[2], 1e-5)
	require.InDelta(t, up[0], outUp[0], 1e-5)
	require.InDelta(t, up[1], outUp[1], 1e-5)
	require.InDelta(t, up[2], outUp[2], 1e-5)
}

func TestCameraPitchYawNinetyYaw(t *testing.T) {
	_, fwd, up := worldAxes(messages.CFXYZ)
	side := cross3(fwd, up)
	pitch, yaw := calculatePitchYaw(side, up, fwd, up)
	require.InDelta(t, 0, pitch, 1e-4)
	require.InDelta(t, math.Pi/2, math.Abs(float64(yaw)), 1e-4)
}

func TestCameraReadMessageCommitsOnEndFrame(t *testing.T) {
	cam := NewCamera()
	require.NoError(t, cam.UpdateServerInfo(messages.ServerInfo{CoordinateFrame: messages.CFXYZ}))

	msg := cameraMessage{
		CameraID: 1,
		X: 1, Y: 2, Z: 3,
		DirX: 0, DirY: 1, DirZ: 0,
		UpX: 0, UpY: 0, UpZ: 1,
		Near: 0.1, Far: 100, Fov: 60,
	}
	w := packet.NewWriter(uint16(messages.RIDCamera), 0, 64)
	require.NoError(t, msg.Write(w))
	require.NoError(t, w.Finalise())
	r, err := packet.NewReader(w.Bytes())
	require.NoError(t, err)

	require.NoError(t, cam.ReadMessage(r))
	_, ok := cam.Lookup(1)
	require.False(t, ok, "must not be visible before EndFrame commits it")

	require.NoError(t, cam.EndFrame(FrameStamp{Number: 1}))
	state, ok := cam.Lookup(1)
	require.True(t, ok)
	require.Equal(t, [3]float32{1, 2, 3}, state.Position)
}

func TestCameraSerialiseRoundTrip(t *testing.T) {
	cam := NewCamera()
	require.NoError(t, cam.UpdateServerInfo(messages.ServerInfo{CoordinateFrame: messages.CFXYZ}))

	msg := cameraMessage{CameraID: 0, X: 1, Y: 1, Z: 1, DirX: 0, DirY: 1, DirZ: 0, UpX: 0, UpY: 0, UpZ: 1, Near: 0.1, Far: 100, Fov: 60}
	w := packet.NewWriter(uint16(messages.RIDCamera), 0, 64)
	require.NoError(t, msg.Write(w))
	require.NoError(t, w.Finalise())
	r, err := packet.NewReader(w.Bytes())
	require.NoError(t, err)
	require.NoError(t, cam.ReadMessage(r))
	require.NoError(t, cam.EndFrame(FrameStamp{}))

	sink := &recordingSink{}
	require.NoError(t, cam.Serialise(sink, messages.ServerInfo{}))
	require.Len(t, sink.packets, 1)

	var out cameraMessage
	require.NoError(t, out.Read(sink.packets[0]))
	require.Equal(t, uint8(0), out.CameraID)
	require.InDelta(t, 0, out.DirX, 1e-4)
	require.InDelta(t, 1, out.DirY, 1e-4)
	require.InDelta(t, 0, out.DirZ, 1e-4)
}
