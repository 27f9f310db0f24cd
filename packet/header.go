// Package packet implements the fixed packet header, payload writer and
// reader, and the trailing CRC convention shared by every message on the
// wire: a fixed header value type plus a pair of payload cursor types.
package packet

import (
	"github.com/rotisserie/eris"
	"github.com/tes-go/tes/endian"
)

// Marker is the constant sentinel that opens every framed packet.
const Marker uint32 = 0x03E55E30

// VersionMajor and VersionMinor are the version this codec writes.
// Decoders must accept major == 0 and minor in [3, 255].
const (
	VersionMajor uint16 = 0
	VersionMinor uint16 = 4

	MinAcceptedMinor uint16 = 3
)

// Flag holds the single-byte flags field of the header.
type Flag uint8

const (
	// FlagNoCRC marks a packet as omitting its trailing CRC16.
	FlagNoCRC Flag = 1 << 0
)

// MaxPayloadSize is the largest payload a single packet can carry while
// keeping the whole frame (header + payload + CRC slot) addressable by a
// 16-bit byte count.
const MaxPayloadSize uint16 = 0xFFFF - HeaderSize - 2

// HeaderSize is the fixed on-wire size of Header: marker(4) + major(2) +
// minor(2) + routing(2) + message(2) + payload_size(2) +
// payload_offset(1) + flags(1) = 16 bytes.
const HeaderSize = 16

// Header is the fixed 16-byte prefix of every framed packet.
type Header struct {
	Marker        uint32
	VersionMajor  uint16
	VersionMinor  uint16
	RoutingID     uint16
	MessageID     uint16
	PayloadSize   uint16
	PayloadOffset uint8
	Flags         Flag
}

var (
	// ErrBadMarker is returned when a header's marker does not match Marker.
	ErrBadMarker = eris.New("packet: marker mismatch")
	// ErrBadVersion is returned when a header's version is outside the
	// accepted range.
	ErrBadVersion = eris.New("packet: unsupported version")
	// ErrPayloadOffset is returned when payload_offset is non-zero; the
	// current protocol defines no use for it.
	ErrPayloadOffset = eris.New("packet: non-zero payload offset")
	// ErrTruncated is returned when fewer bytes are available than the
	// header or payload requires.
	ErrTruncated = eris.New("packet: truncated frame")
	// ErrCRCMismatch is returned when the trailing CRC does not match the
	// computed checksum of header+payload.
	ErrCRCMismatch = eris.New("packet: crc mismatch")
)

// HasCRC reports whether a packet with these flags carries a trailing CRC.
func (h Header) HasCRC() bool {
	return h.Flags&FlagNoCRC == 0
}

// FrameSize returns the total framed size: header + payload + (0 or 2 for CRC).
func (h Header) FrameSize() int {
	n := HeaderSize + int(h.PayloadSize)
	if h.HasCRC() {
		n += 2
	}
	return n
}

// Validate checks the version and payload_offset invariants that every
// decoder must enforce.
func (h Header) Validate() error {
	if h.Marker != Marker {
		return ErrBadMarker
	}
	if h.VersionMajor != 0 || h.VersionMinor < MinAcceptedMinor {
		return eris.Wrapf(ErrBadVersion, "got %d.%d", h.VersionMajor, h.VersionMinor)
	}
	if h.PayloadOffset != 0 {
		return ErrPayloadOffset
	}
	return nil
}

// EncodeHeader writes h's 16 bytes, big-endian, to buf[:HeaderSize].
func EncodeHeader(buf []byte, h Header) {
	endian.Network.PutUint32(buf[0:4], h.Marker)
	endian.Network.PutUint16(buf[4:6], h.VersionMajor)
	endian.Network.PutUint16(buf[6:8], h.VersionMinor)
	endian.Network.PutUint16(buf[8:10], h.RoutingID)
	endian.Network.PutUint16(buf[10:12], h.MessageID)
	endian.Network.PutUint16(buf[12:14], h.PayloadSize)
	buf[14] = h.PayloadOffset
	buf[15] = byte(h.Flags)
}

// DecodeHeader reads a Header from buf[:HeaderSize].
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, ErrTruncated
	}
	h := Header{
		Marker:        endian.Network.Uint32(buf[0:4]),
		VersionMajor:  endian.Network.Uint16(buf[4:6]),
		VersionMinor:  endian.Network.Uint16(buf[6:8]),
		RoutingID:     endian.Network.Uint16(buf[8:10]),
		MessageID:     endian.Network.Uint16(buf[10:12]),
		PayloadSize:   endian.Network.Uint16(buf[12:14]),
		PayloadOffset: buf[14],
		Flags:         Flag(buf[15]),
	}
	return h, nil
}
