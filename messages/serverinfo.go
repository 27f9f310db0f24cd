package messages

import "github.com/tes-go/tes/packet"

// ServerInfoByteSize is the payload capacity reserved for a ServerInfo
// packet (64 bytes). The encoded record itself is 48 bytes: u64 time
// unit, u32 default frame time, u8 coordinate frame and 35 reserved.
const ServerInfoByteSize = 64

const serverInfoReservedBytes = 35

// ServerInfo is sent first on every connection and recorded at the head of
// every on-disk stream.
type ServerInfo struct {
	// TimeUnit is the number of microseconds per frame-time tick.
	TimeUnit uint64
	// DefaultFrameTime is the frame-time tick count used when a CIDFrame
	// control carries 0.
	DefaultFrameTime uint32
	// CoordinateFrame is the axis convention this server uses.
	CoordinateFrame CoordinateFrame
}

// DefaultServerInfo returns the protocol defaults: 1000us ticks, a 33-tick
// default frame time (~30Hz), and the XYZ coordinate frame.
func DefaultServerInfo() ServerInfo {
	return ServerInfo{
		TimeUnit:         1000,
		DefaultFrameTime: 33,
		CoordinateFrame:  CFXYZ,
	}
}

// Write encodes the ServerInfo record, including its 35 reserved zero
// bytes, to writer's payload cursor.
func (s ServerInfo) Write(w *packet.Writer) error {
	if err := w.WriteUint64(s.TimeUnit); err != nil {
		return err
	}
	if err := w.WriteUint32(s.DefaultFrameTime); err != nil {
		return err
	}
	if err := w.WriteUint8(uint8(s.CoordinateFrame)); err != nil {
		return err
	}
	var reserved [serverInfoReservedBytes]byte
	if _, err := w.WriteRaw(reserved[:]); err != nil {
		return err
	}
	return nil
}

// Read decodes a ServerInfo record from reader's payload cursor.
func (s *ServerInfo) Read(r *packet.Reader) error {
	tu, err := r.ReadUint64()
	if err != nil {
		return err
	}
	dft, err := r.ReadUint32()
	if err != nil {
		return err
	}
	cf, err := r.ReadUint8()
	if err != nil {
		return err
	}
	var reserved [serverInfoReservedBytes]byte
	if _, err := r.ReadRaw(reserved[:]); err != nil {
		return err
	}
	s.TimeUnit = tu
	s.DefaultFrameTime = dft
	s.CoordinateFrame = CoordinateFrame(cf)
	return nil
}

// Control is the fixed-layout payload of every RIDControl packet.
type Control struct {
	Flags   uint32
	Value32 uint32
	Value64 uint64
}

// Write encodes the Control record.
func (c Control) Write(w *packet.Writer) error {
	if err := w.WriteUint32(c.Flags); err != nil {
		return err
	}
	if err := w.WriteUint32(c.Value32); err != nil {
		return err
	}
	return w.WriteUint64(c.Value64)
}

// Read decodes a Control record.
func (c *Control) Read(r *packet.Reader) error {
	f, err := r.ReadUint32()
	if err != nil {
		return err
	}
	v32, err := r.ReadUint32()
	if err != nil {
		return err
	}
	v64, err := r.ReadUint64()
	if err != nil {
		return err
	}
	c.Flags, c.Value32, c.Value64 = f, v32, v64
	return nil
}

// CollatedPacketHeader is the fixed record at the start of a RIDCollated
// packet's payload.
type CollatedPacketHeader struct {
	Flags             CollatedPacketFlag
	UncompressedBytes uint32
}

// Write encodes the CollatedPacketHeader, including its reserved word.
func (h CollatedPacketHeader) Write(w *packet.Writer) error {
	if err := w.WriteUint16(uint16(h.Flags)); err != nil {
		return err
	}
	if err := w.WriteUint16(0); err != nil { // reserved
		return err
	}
	return w.WriteUint32(h.UncompressedBytes)
}

// Read decodes a CollatedPacketHeader.
func (h *CollatedPacketHeader) Read(r *packet.Reader) error {
	f, err := r.ReadUint16()
	if err != nil {
		return err
	}
	if _, err := r.ReadUint16(); err != nil { // reserved
		return err
	}
	n, err := r.ReadUint32()
	if err != nil {
		return err
	}
	h.Flags = CollatedPacketFlag(f)
	h.UncompressedBytes = n
	return nil
}

// CategoryName is the payload of a RIDCategory/CMIDName message.
type CategoryName struct {
	CategoryID    uint16
	ParentID      uint16
	DefaultActive uint16
	Name          string
}

// Write encodes the CategoryName message.
func (c CategoryName) Write(w *packet.Writer) error {
	if err := w.WriteUint16(c.CategoryID); err != nil {
		return err
	}
	if err := w.WriteUint16(c.ParentID); err != nil {
		return err
	}
	if err := w.WriteUint16(c.DefaultActive); err != nil {
		return err
	}
	nameBytes := []byte(c.Name)
	if err := w.WriteUint16(uint16(len(nameBytes))); err != nil {
		return err
	}
	_, err := w.WriteRaw(nameBytes)
	return err
}

// Read decodes a CategoryName message.
func (c *CategoryName) Read(r *packet.Reader) error {
	catID, err := r.ReadUint16()
	if err != nil {
		return err
	}
	parentID, err := r.ReadUint16()
	if err != nil {
		return err
	}
	defActive, err := r.ReadUint16()
	if err != nil {
		return err
	}
	nameLen, err := r.ReadUint16()
	if err != nil {
		return err
	}
	name := make([]byte, nameLen)
	if _, err := r.ReadRaw(name); err != nil {
		return err
	}
	c.CategoryID = catID
	c.ParentID = parentID
	c.DefaultActive = defActive
	c.Name = string(name)
	return nil
}
