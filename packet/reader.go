package packet

import (
	"encoding/binary"
	"math"

	"github.com/tes-go/tes/crc16"
	"github.com/tes-go/tes/endian"
)

// Reader exposes a typed, cursor-based view over a single decoded packet's
// payload. Constructed from a complete framed packet (header, payload, and
// trailing CRC if present).
type Reader struct {
	header     Header
	payload    []byte
	pos        int
	crc        uint16
	haveCRC    bool
}

// NewReader parses frame (header + payload + optional CRC) into a Reader.
// frame must be exactly header.FrameSize() bytes, as produced by a prior
// DecodeHeader/packetstream extraction.
func NewReader(frame []byte) (*Reader, error) {
	h, err := DecodeHeader(frame)
	if err != nil {
		return nil, err
	}
	if err := h.Validate(); err != nil {
		return nil, err
	}
	want := h.FrameSize()
	if len(frame) < want {
		return nil, ErrTruncated
	}
	r := &Reader{header: h, payload: frame[HeaderSize : HeaderSize+int(h.PayloadSize)]}
	if h.HasCRC() {
		crcOff := HeaderSize + int(h.PayloadSize)
		r.crc = endian.Network.Uint16(frame[crcOff : crcOff+2])
		r.haveCRC = true
	}
	return r, nil
}

// Header returns the packet's decoded header.
func (r *Reader) Header() Header { return r.header }

// RoutingID returns the packet's routing id.
func (r *Reader) RoutingID() uint16 { return r.header.RoutingID }

// MessageID returns the packet's message id.
func (r *Reader) MessageID() uint16 { return r.header.MessageID }

// PayloadSize returns the number of payload bytes.
func (r *Reader) PayloadSize() int { return len(r.payload) }

// Tell returns the current payload cursor position.
func (r *Reader) Tell() int { return r.pos }

// BytesRemaining returns the number of unread payload bytes.
func (r *Reader) BytesRemaining() int { return len(r.payload) - r.pos }

// Seek moves the payload cursor, bounded by [0, payload_size]. whence: 0 =
// from start, 1 = from current, 2 = from end.
func (r *Reader) Seek(pos int, whence int) error {
	target := pos
	switch whence {
	case 1:
		target = r.pos + pos
	case 2:
		target = len(r.payload) + pos
	}
	if target < 0 || target > len(r.payload) {
		return ErrTruncated
	}
	r.pos = target
	return nil
}

// VerifyCRC recomputes the CRC over the header and payload and compares it
// against the trailing CRC. Packets with FlagNoCRC set always verify.
func (r *Reader) VerifyCRC(headerBytes []byte) error {
	if !r.haveCRC {
		return nil
	}
	crc := crc16.New()
	crc = crc16.Update(crc, headerBytes[:HeaderSize])
	crc = crc16.Update(crc, r.payload)
	if crc != r.crc {
		return ErrCRCMismatch
	}
	return nil
}

// ReadRaw copies up to len(dst) bytes verbatim (no endian swap) from the
// current cursor, advancing it. Returns the number of bytes copied.
func (r *Reader) ReadRaw(dst []byte) (int, error) {
	n := copy(dst, r.payload[r.pos:])
	r.pos += n
	if n < len(dst) {
		return n, ErrTruncated
	}
	return n, nil
}

// Peek copies n bytes from the cursor without advancing it.
func (r *Reader) Peek(n int) ([]byte, error) {
	if r.pos+n > len(r.payload) {
		return nil, ErrTruncated
	}
	out := make([]byte, n)
	copy(out, r.payload[r.pos:r.pos+n])
	return out, nil
}

func (r *Reader) readScalar(width int) ([]byte, error) {
	if r.BytesRemaining() < width {
		return nil, ErrTruncated
	}
	src := make([]byte, width)
	copy(src, r.payload[r.pos:r.pos+width])
	if !endian.HostIsBigEndian() {
		endian.SwapWidth(src, width)
	}
	r.pos += width
	return src, nil
}

// ReadUint8 reads a single byte.
func (r *Reader) ReadUint8() (uint8, error) {
	b, err := r.readScalar(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadInt8 reads a signed byte.
func (r *Reader) ReadInt8() (int8, error) {
	v, err := r.ReadUint8()
	return int8(v), err
}

// ReadUint16 reads a 2-byte unsigned integer.
func (r *Reader) ReadUint16() (uint16, error) {
	b, err := r.readScalar(2)
	if err != nil {
		return 0, err
	}
	return binary.NativeEndian.Uint16(b), nil
}

// ReadInt16 reads a 2-byte signed integer.
func (r *Reader) ReadInt16() (int16, error) {
	v, err := r.ReadUint16()
	return int16(v), err
}

// ReadUint32 reads a 4-byte unsigned integer.
func (r *Reader) ReadUint32() (uint32, error) {
	b, err := r.readScalar(4)
	if err != nil {
		return 0, err
	}
	return binary.NativeEndian.Uint32(b), nil
}

// ReadInt32 reads a 4-byte signed integer.
func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

// ReadUint64 reads an 8-byte unsigned integer.
func (r *Reader) ReadUint64() (uint64, error) {
	b, err := r.readScalar(8)
	if err != nil {
		return 0, err
	}
	return binary.NativeEndian.Uint64(b), nil
}

// ReadInt64 reads an 8-byte signed integer.
func (r *Reader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

// ReadFloat32 reads a single-precision float.
func (r *Reader) ReadFloat32() (float32, error) {
	v, err := r.ReadUint32()
	return math.Float32frombits(v), err
}

// ReadFloat64 reads a double-precision float.
func (r *Reader) ReadFloat64() (float64, error) {
	v, err := r.ReadUint64()
	return math.Float64frombits(v), err
}

// ReadUint16Array reads count uint16 elements into a new slice.
func (r *Reader) ReadUint16Array(count int) ([]uint16, error) {
	out := make([]uint16, count)
	for i := range out {
		v, err := r.ReadUint16()
		if err != nil {
			return out[:i], err
		}
		out[i] = v
	}
	return out, nil
}

// ReadUint32Array reads count uint32 elements into a new slice.
func (r *Reader) ReadUint32Array(count int) ([]uint32, error) {
	out := make([]uint32, count)
	for i := range out {
		v, err := r.ReadUint32()
		if err != nil {
			return out[:i], err
		}
		out[i] = v
	}
	return out, nil
}

// ReadFloat32Array reads count float32 elements into a new slice.
func (r *Reader) ReadFloat32Array(count int) ([]float32, error) {
	out := make([]float32, count)
	for i := range out {
		v, err := r.ReadFloat32()
		if err != nil {
			return out[:i], err
		}
		out[i] = v
	}
	return out, nil
}

// ReadFloat64Array reads count float64 elements into a new slice.
func (r *Reader) ReadFloat64Array(count int) ([]float64, error) {
	out := make([]float64, count)
	for i := range out {
		v, err := r.ReadFloat64()
		if err != nil {
			return out[:i], err
		}
		out[i] = v
	}
	return out, nil
}
