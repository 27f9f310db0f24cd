package handler

import (
	"math"
	"sync"

	"github.com/tes-go/tes/messages"
	"github.com/tes-go/tes/packet"
)

// RecordedCameraID is the reserved camera id used to record the view in
// use while recording a stream.
const RecordedCameraID uint8 = 255

// CameraState is the decoded, frame-independent pose of one camera.
// Direction is stored as pitch/yaw relative to the active coordinate
// frame's reference forward/up rather than as a raw direction/up pair,
// matching the wire handler's "deviation from the expected axis"
// encoding.
type CameraState struct {
	Position                   [3]float32
	ClipNear, ClipFar, FovDegH float32
	Frame                      messages.CoordinateFrame
	Pitch, Yaw                 float32
}

type cameraMessage struct {
	CameraID uint8
	Flags    uint8
	Reserved uint32
	X, Y, Z  float32
	DirX, DirY, DirZ float32
	UpX, UpY, UpZ    float32
	Near, Far, Fov   float32
}

func (m *cameraMessage) Read(r *packet.Reader) error {
	var err error
	if m.CameraID, err = r.ReadUint8(); err != nil {
		return err
	}
	if m.Flags, err = r.ReadUint8(); err != nil {
		return err
	}
	if m.Reserved, err = r.ReadUint32(); err != nil {
		return err
	}
	vals := []*float32{&m.X, &m.Y, &m.Z, &m.DirX, &m.DirY, &m.DirZ, &m.UpX, &m.UpY, &m.UpZ, &m.Near, &m.Far, &m.Fov}
	for _, v := range vals {
		f, err := r.ReadFloat32()
		if err != nil {
			return err
		}
		*v = f
	}
	return nil
}

func (m cameraMessage) Write(w *packet.Writer) error {
	if err := w.WriteUint8(m.CameraID); err != nil {
		return err
	}
	if err := w.WriteUint8(m.Flags); err != nil {
		return err
	}
	if err := w.WriteUint32(m.Reserved); err != nil {
		return err
	}
	vals := []float32{m.X, m.Y, m.Z, m.DirX, m.DirY, m.DirZ, m.UpX, m.UpY, m.UpZ, m.Near, m.Far, m.Fov}
	for _, v := range vals {
		if err := w.WriteFloat32(v); err != nil {
			return err
		}
	}
	return nil
}

type pendingCamera struct {
	id    uint8
	state CameraState
}

// Camera is the RIDCamera handler: it decodes camera pose messages
// (position plus a raw direction/up pair) into a pitch/yaw
// representation relative to the server's declared coordinate frame,
// and re-encodes committed camera state back to direction/up on
// Serialise.
type Camera struct {
	mu         sync.Mutex
	serverInfo messages.ServerInfo
	cameras    map[uint8]CameraState
	pending    []pendingCamera
}

// NewCamera returns a Camera handler ready to use.
func NewCamera() *Camera {
	return &Camera{cameras: make(map[uint8]CameraState)}
}

func (c *Camera) RoutingID() messages.RoutingID { return messages.RIDCamera }

func (c *Camera) Initialise() error { return nil }

func (c *Camera) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cameras = make(map[uint8]CameraState)
	c.pending = nil
	return nil
}

func (c *Camera) UpdateServerInfo(info messages.ServerInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.serverInfo = info
	return nil
}

// ReadMessage decodes a camera pose message and stages it for commit at
// the next EndFrame. Only message id zero is defined for this routing id.
func (c *Camera) ReadMessage(r *packet.Reader) error {
	var msg cameraMessage
	if err := msg.Read(r); err != nil {
		return err
	}

	c.mu.Lock()
	frame := messages.CoordinateFrame(c.serverInfo.CoordinateFrame)
	c.mu.Unlock()

	_, refFwd, refUp := worldAxes(frame)
	pitch, yaw := calculatePitchYaw([3]float32{msg.DirX, msg.DirY, msg.DirZ}, [3]float32{msg.UpX, msg.UpY, msg.UpZ}, refFwd, refUp)

	state := CameraState{
		Position: [3]float32{msg.X, msg.Y, msg.Z},
		ClipNear: msg.Near,
		ClipFar:  msg.Far,
		FovDegH:  msg.Fov,
		Frame:    frame,
		Pitch:    pitch,
		Yaw:      yaw,
	}

	c.mu.Lock()
	c.pending = append(c.pending, pendingCamera{id: msg.CameraID, state: state})
	c.mu.Unlock()
	return nil
}

func (c *Camera) PrepareFrame(FrameStamp) error { return nil }

// EndFrame commits every message staged by ReadMessage during this frame,
// making it visible to the next PrepareFrame/Serialise.
func (c *Camera) EndFrame(FrameStamp) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.pending {
		c.cameras[p.id] = p.state
	}
	c.pending = nil
	return nil
}

// Lookup returns the committed state of camera id, if any.
func (c *Camera) Lookup(id uint8) (CameraState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.cameras[id]
	return s, ok
}

// Serialise re-encodes every committed camera's pitch/yaw back into a
// direction/up pair and writes one camera message per camera.
func (c *Camera) Serialise(sink Sink, _ messages.ServerInfo) error {
	c.mu.Lock()
	cameras := make(map[uint8]CameraState, len(c.cameras))
	for id, s := range c.cameras {
		cameras[id] = s
	}
	c.mu.Unlock()

	for id, s := range cameras {
		_, worldFwd, worldUp := worldAxes(s.Frame)
		dir, up := calculateCameraAxes(s.Pitch, s.Yaw, worldFwd, worldUp)

		msg := cameraMessage{
			CameraID: id,
			X:        s.Position[0], Y: s.Position[1], Z: s.Position[2],
			DirX: dir[0], DirY: dir[1], DirZ: dir[2],
			UpX: up[0], UpY: up[1], UpZ: up[2],
			Near: s.ClipNear, Far: s.ClipFar, Fov: s.FovDegH,
		}
		w := packet.NewWriter(uint16(messages.RIDCamera), 0, 64)
		if err := msg.Write(w); err != nil {
			return err
		}
		if err := w.Finalise(); err != nil {
			return err
		}
		if err := sink.SendPacket(w); err != nil {
			return err
		}
	}
	return nil
}

// worldAxes returns the reference (side, forward, up) unit vectors for
// frame, per the 12-way axis convention table.
func worldAxes(frame messages.CoordinateFrame) (side, fwd, up [3]float32) {
	switch frame {
	case messages.CFXYZ:
		return [3]float32{1, 0, 0}, [3]float32{0, 1, 0}, [3]float32{0, 0, 1}
	case messages.CFXZYNeg:
		return [3]float32{1, 0, 0}, [3]float32{0, 0, 1}, [3]float32{0, -1, 0}
	case messages.CFYXZNeg:
		return [3]float32{0, 1, 0}, [3]float32{1, 0, 0}, [3]float32{0, 0, -1}
	case messages.CFYZX:
		return [3]float32{0, 1, 0}, [3]float32{0, 0, 1}, [3]float32{1, 0, 0}
	case messages.CFZXY:
		return [3]float32{0, 0, 1}, [3]float32{1, 0, 0}, [3]float32{0, 1, 0}
	case messages.CFZYXNeg:
		return [3]float32{0, 0, 1}, [3]float32{0, 1, 0}, [3]float32{-1, 0, 0}
	case messages.CFXYZNeg:
		return [3]float32{1, 0, 0}, [3]float32{0, 1, 0}, [3]float32{0, 0, -1}
	case messages.CFXZY:
		return [3]float32{1, 0, 0}, [3]float32{0, 0, 1}, [3]float32{0, 1, 0}
	case messages.CFYXZ:
		return [3]float32{0, 1, 0}, [3]float32{1, 0, 0}, [3]float32{0, 0, 1}
	case messages.CFYZXNeg:
		return [3]float32{0, 1, 0}, [3]float32{0, 0, 1}, [3]float32{-1, 0, 0}
	case messages.CFZXYNeg:
		return [3]float32{0, 0, 1}, [3]float32{1, 0, 0}, [3]float32{0, -1, 0}
	case messages.CFZYX:
		return [3]float32{0, 0, 1}, [3]float32{0, 1, 0}, [3]float32{-1, 0, 0}
	default:
		return [3]float32{1, 0, 0}, [3]float32{0, 1, 0}, [3]float32{0, 0, 1}
	}
}

// calculatePitchYaw extracts a pitch/yaw pair describing cameraFwd/
// cameraUp relative to worldFwd/worldUp. The near-singular case (camera
// forward nearly parallel to world up) is handled explicitly rather than
// falling out of a single acos call, which would be hemisphere-ambiguous
// there.
func calculatePitchYaw(cameraFwd, cameraUp, worldFwd, worldUp [3]float32) (pitch, yaw float32) {
	fwdUpDot := dot3(cameraFwd, worldUp)

	var refFwd [3]float32
	if math32Abs(math32Abs(fwdUpDot)-1.0) > 1e-6 {
		a := cross3(cameraFwd, worldUp)
		refFwd = normalise3(cross3(worldUp, a))
		pitch = float32(math.Acos(clamp64(float64(dot3(cameraFwd, refFwd)), -1, 1)))
		refFwd = cameraFwd
	} else {
		pitch = float32(math.Pi / 2)
		refFwd = cameraUp
	}
	if fwdUpDot > 0 {
		pitch = -pitch
	}

	fwdUpDot = dot3(refFwd, worldUp)
	refFwd = sub3(refFwd, scale3(worldUp, fwdUpDot))
	refFwd = normalise3(refFwd)

	yaw = float32(math.Acos(clamp64(float64(dot3(refFwd, worldFwd)), -1, 1)))

	worldSide := cross3(worldFwd, worldUp)
	if dot3(refFwd, worldSide) < 0 {
		yaw = -yaw
	}
	return pitch, yaw
}

// calculateCameraAxes is the inverse of calculatePitchYaw: it rebuilds a
// direction/up pair from pitch/yaw relative to worldFwd/worldUp.
func calculateCameraAxes(pitch, yaw float32, worldFwd, worldUp [3]float32) (fwd, up [3]float32) {
	worldSide := cross3(worldFwd, worldUp)
	yawRot := axisAngle(worldUp, -float64(yaw))
	pitchRot := axisAngle(worldSide, -float64(pitch))
	transform := matMul(yawRot, pitchRot)

	fwdAxis, upAxis := 0, 0
	negFwd, negUp := false, false
	for i := 0; i < 3; i++ {
		if worldFwd[i] != 0 {
			fwdAxis = i
			negFwd = worldFwd[i] < 0
		}
		if worldUp[i] != 0 {
			upAxis = i
			negUp = worldUp[i] < 0
		}
	}

	fwd = column(transform, fwdAxis)
	up = column(transform, upAxis)
	if negFwd {
		fwd = scale3(fwd, -1)
	}
	if negUp {
		up = scale3(up, -1)
	}
	return fwd, up
}

// mat3 is stored row-major: mat3[row][col].
type mat3 [3][3]float64

// axisAngle builds the Rodrigues rotation matrix for angle radians about
// axis, which need not be normalised.
func axisAngle(axis [3]float32, angle float64) mat3 {
	a := normalise3f64([3]float64{float64(axis[0]), float64(axis[1]), float64(axis[2])})
	s, cAng := math.Sin(angle), math.Cos(angle)
	t := 1 - cAng
	x, y, z := a[0], a[1], a[2]
	return mat3{
		{t*x*x + cAng, t*x*y - s*z, t*x*z + s*y},
		{t*x*y + s*z, t*y*y + cAng, t*y*z - s*x},
		{t*x*z - s*y, t*y*z + s*x, t*z*z + cAng},
	}
}

func matMul(a, b mat3) mat3 {
	var out mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var sum float64
			for k := 0; k < 3; k++ {
				sum += a[i][k] * b[k][j]
			}
			out[i][j] = sum
		}
	}
	return out
}

func column(m mat3, j int) [3]float32 {
	return [3]float32{float32(m[0][j]), float32(m[1][j]), float32(m[2][j])}
}

func dot3(a, b [3]float32) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func cross3(a, b [3]float32) [3]float32 {
	return [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func sub3(a, b [3]float32) [3]float32 {
	return [3]float32{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func scale3(a [3]float32, s float32) [3]float32 {
	return [3]float32{a[0] * s, a[1] * s, a[2] * s}
}

func normalise3(a [3]float32) [3]float32 {
	lenSq := a[0]*a[0] + a[1]*a[1] + a[2]*a[2]
	if lenSq <= 0 {
		return a
	}
	inv := float32(1.0 / math.Sqrt(float64(lenSq)))
	return [3]float32{a[0] * inv, a[1] * inv, a[2] * inv}
}

func normalise3f64(a [3]float64) [3]float64 {
	lenSq := a[0]*a[0] + a[1]*a[1] + a[2]*a[2]
	if lenSq <= 0 {
		return a
	}
	inv := 1.0 / math.Sqrt(lenSq)
	return [3]float64{a[0] * inv, a[1] * inv, a[2] * inv}
}

func math32Abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func clamp64(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
