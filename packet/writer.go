package packet

import (
	"encoding/binary"
	"math"

	"github.com/tes-go/tes/crc16"
	"github.com/tes-go/tes/endian"
)

// statusFail marks a Writer that has attempted to write past its payload
// capacity. The packet remains emittable only if the caller checks Failed().
const (
	statusOK uint8 = iota
	statusFail
)

// Writer accumulates a packet's payload into a caller-sized buffer and
// finalises it (CRC + completion) for emission. Owns its buffer, so a
// finalised packet stays valid after the Writer is reused.
type Writer struct {
	header      Header
	buf         []byte // HeaderSize + maxPayload + 2 (CRC slot), always allocated
	maxPayload  int
	payloadPos  int
	status      uint8
	finalised   bool
}

// NewWriter allocates a Writer for a packet with the given routing and
// message id, with room for up to maxPayload bytes of payload.
func NewWriter(routingID, messageID uint16, maxPayload uint16) *Writer {
	w := &Writer{
		header: Header{
			Marker:       Marker,
			VersionMajor: VersionMajor,
			VersionMinor: VersionMinor,
			RoutingID:    routingID,
			MessageID:    messageID,
		},
		maxPayload: int(maxPayload),
		buf:        make([]byte, HeaderSize+int(maxPayload)+2),
	}
	return w
}

// SetNoCRC controls whether Finalise appends a trailing CRC16. Clear by
// default (CRC is written).
func (w *Writer) SetNoCRC(noCRC bool) {
	if noCRC {
		w.header.Flags |= FlagNoCRC
	} else {
		w.header.Flags &^= FlagNoCRC
	}
}

// Reset clears the payload cursor and re-targets the packet at a new
// routing/message id, allowing buffer reuse.
func (w *Writer) Reset(routingID, messageID uint16) {
	w.header.RoutingID = routingID
	w.header.MessageID = messageID
	w.header.PayloadSize = 0
	w.payloadPos = 0
	w.status = statusOK
	w.finalised = false
}

// Failed reports whether any write has exceeded the payload capacity.
func (w *Writer) Failed() bool { return w.status == statusFail }

// BytesRemaining returns how many payload bytes may still be written.
func (w *Writer) BytesRemaining() int { return w.maxPayload - w.payloadPos }

// MaxPayloadSize returns the payload buffer's capacity.
func (w *Writer) MaxPayloadSize() int { return w.maxPayload }

// PayloadSize returns the number of payload bytes written so far.
func (w *Writer) PayloadSize() int { return w.payloadPos }

// Tell returns the current payload cursor position.
func (w *Writer) Tell() int { return w.payloadPos }

// Seek moves the payload cursor. whence 0 = from start, 1 = from current,
// 2 = from end. Out-of-range seeks fail without mutating the cursor.
func (w *Writer) Seek(pos int, whence int) error {
	target := pos
	switch whence {
	case 1:
		target = w.payloadPos + pos
	case 2:
		target = int(w.header.PayloadSize) + pos
	}
	if target < 0 || target > int(w.header.PayloadSize) {
		return ErrTruncated
	}
	w.payloadPos = target
	return nil
}

func (w *Writer) payloadSlice() []byte {
	return w.buf[HeaderSize : HeaderSize+w.maxPayload]
}

// WriteRaw copies byte_count bytes verbatim (no endian swap) at the current
// cursor, advancing it. Returns the number of bytes actually written, which
// is less than len(data) if there is insufficient remaining space; it does
// not set the Fail status for a short write of raw bytes.
func (w *Writer) WriteRaw(data []byte) (int, error) {
	avail := w.BytesRemaining()
	n := len(data)
	if n > avail {
		n = avail
	}
	copy(w.payloadSlice()[w.payloadPos:w.payloadPos+n], data[:n])
	w.payloadPos += n
	if w.payloadPos > int(w.header.PayloadSize) {
		w.header.PayloadSize = uint16(w.payloadPos)
	}
	if n < len(data) {
		return n, ErrTruncated
	}
	return n, nil
}

func (w *Writer) writeScalar(width int, native []byte) error {
	if w.BytesRemaining() < width {
		w.status = statusFail
		return ErrTruncated
	}
	dst := w.payloadSlice()[w.payloadPos : w.payloadPos+width]
	copy(dst, native)
	if !endian.HostIsBigEndian() {
		endian.SwapWidth(dst, width)
	}
	w.payloadPos += width
	if w.payloadPos > int(w.header.PayloadSize) {
		w.header.PayloadSize = uint16(w.payloadPos)
	}
	return nil
}

// WriteUint8 writes a single byte.
func (w *Writer) WriteUint8(v uint8) error { return w.writeScalar(1, []byte{v}) }

// WriteInt8 writes a signed byte.
func (w *Writer) WriteInt8(v int8) error { return w.WriteUint8(uint8(v)) }

// WriteUint16 writes a 2-byte unsigned integer.
func (w *Writer) WriteUint16(v uint16) error {
	var tmp [2]byte
	binary.NativeEndian.PutUint16(tmp[:], v)
	return w.writeScalar(2, tmp[:])
}

// WriteInt16 writes a 2-byte signed integer.
func (w *Writer) WriteInt16(v int16) error { return w.WriteUint16(uint16(v)) }

// WriteUint32 writes a 4-byte unsigned integer.
func (w *Writer) WriteUint32(v uint32) error {
	var tmp [4]byte
	binary.NativeEndian.PutUint32(tmp[:], v)
	return w.writeScalar(4, tmp[:])
}

// WriteInt32 writes a 4-byte signed integer.
func (w *Writer) WriteInt32(v int32) error { return w.WriteUint32(uint32(v)) }

// WriteUint64 writes an 8-byte unsigned integer.
func (w *Writer) WriteUint64(v uint64) error {
	var tmp [8]byte
	binary.NativeEndian.PutUint64(tmp[:], v)
	return w.writeScalar(8, tmp[:])
}

// WriteInt64 writes an 8-byte signed integer.
func (w *Writer) WriteInt64(v int64) error { return w.WriteUint64(uint64(v)) }

// WriteFloat32 writes a single-precision float.
func (w *Writer) WriteFloat32(v float32) error { return w.WriteUint32(math.Float32bits(v)) }

// WriteFloat64 writes a double-precision float.
func (w *Writer) WriteFloat64(v float64) error { return w.WriteUint64(math.Float64bits(v)) }

// WriteUint16Array writes count contiguous uint16 elements, each swapped
// individually.
func (w *Writer) WriteUint16Array(vals []uint16) (int, error) {
	for i, v := range vals {
		if err := w.WriteUint16(v); err != nil {
			return i, err
		}
	}
	return len(vals), nil
}

// WriteUint32Array writes count contiguous uint32 elements.
func (w *Writer) WriteUint32Array(vals []uint32) (int, error) {
	for i, v := range vals {
		if err := w.WriteUint32(v); err != nil {
			return i, err
		}
	}
	return len(vals), nil
}

// WriteFloat32Array writes count contiguous float32 elements.
func (w *Writer) WriteFloat32Array(vals []float32) (int, error) {
	for i, v := range vals {
		if err := w.WriteFloat32(v); err != nil {
			return i, err
		}
	}
	return len(vals), nil
}

// WriteFloat64Array writes count contiguous float64 elements.
func (w *Writer) WriteFloat64Array(vals []float64) (int, error) {
	for i, v := range vals {
		if err := w.WriteFloat64(v); err != nil {
			return i, err
		}
	}
	return len(vals), nil
}

// CalculateCRC computes the CRC16 of the header and payload written so far,
// without mutating the packet.
func (w *Writer) CalculateCRC() uint16 {
	w.header.PayloadSize = uint16(w.payloadPos)
	EncodeHeader(w.buf[:HeaderSize], w.header)
	crc := crc16.New()
	crc = crc16.Update(crc, w.buf[:HeaderSize])
	crc = crc16.Update(crc, w.payloadSlice()[:w.payloadPos])
	return crc
}

// Finalise computes and appends the trailing CRC (unless FlagNoCRC is set)
// and marks the packet complete. Repeated calls are a no-op.
func (w *Writer) Finalise() error {
	if w.finalised {
		return nil
	}
	w.header.PayloadSize = uint16(w.payloadPos)
	EncodeHeader(w.buf[:HeaderSize], w.header)
	if w.header.HasCRC() {
		crc := w.CalculateCRC()
		crcOff := HeaderSize + w.payloadPos
		binary.NativeEndian.PutUint16(w.buf[crcOff:crcOff+2], crc)
		if !endian.HostIsBigEndian() {
			endian.Swap2(w.buf[crcOff : crcOff+2])
		}
	}
	w.finalised = true
	return nil
}

// Bytes returns the complete encoded packet (header, payload, and trailing
// CRC if present). Finalise must be called first.
func (w *Writer) Bytes() []byte {
	n := HeaderSize + w.payloadPos
	if w.header.HasCRC() {
		n += 2
	}
	return w.buf[:n]
}

// RoutingID returns the packet's routing id.
func (w *Writer) RoutingID() uint16 { return w.header.RoutingID }

// Header returns the current header value (payload size reflects bytes
// written so far, not necessarily finalised).
func (w *Writer) Header() Header {
	h := w.header
	h.PayloadSize = uint16(w.payloadPos)
	return h
}
