// Package packetstream locates framed packets in a byte-oriented ordered
// source (file or socket), resynchronising on the marker sequence after
// corrupt or misaligned bytes.
package packetstream

import (
	"encoding/binary"
	"io"

	"github.com/rotisserie/eris"
	"github.com/tes-go/tes/packet"
)

const markerBytesLen = 4

var markerBytes = func() [markerBytesLen]byte {
	var b [markerBytesLen]byte
	binary.BigEndian.PutUint32(b[:], packet.Marker)
	return b
}()

// Reader maintains a growable buffer over an underlying source and yields
// one complete framed packet at a time.
type Reader struct {
	src    io.Reader
	seeker io.Seeker // non-nil when src also supports Seek

	buf    []byte
	extent int // bytes of buf currently valid

	lastFrameLen int // length of the last yielded frame, consumed on next call
}

// NewReader wraps src. If src also implements io.Seeker, Seek becomes
// available.
func NewReader(src io.Reader) *Reader {
	r := &Reader{src: src, buf: make([]byte, 0, 4096)}
	if s, ok := src.(io.Seeker); ok {
		r.seeker = s
	}
	return r
}

// Seek repositions the underlying source at byteOffset and clears the
// internal buffer, forcing a fresh marker search.
func (r *Reader) Seek(byteOffset int64) error {
	if r.seeker == nil {
		return eris.New("packetstream: underlying source is not seekable")
	}
	if _, err := r.seeker.Seek(byteOffset, io.SeekStart); err != nil {
		return eris.Wrap(err, "packetstream: seek failed")
	}
	r.buf = r.buf[:0]
	r.extent = 0
	r.lastFrameLen = 0
	return nil
}

func (r *Reader) consumePending() {
	if r.lastFrameLen == 0 {
		return
	}
	copy(r.buf, r.buf[r.lastFrameLen:r.extent])
	r.extent -= r.lastFrameLen
	r.buf = r.buf[:r.extent]
	r.lastFrameLen = 0
}

func (r *Reader) fill(minBytes int) error {
	for r.extent < minBytes {
		if cap(r.buf) < minBytes {
			grown := make([]byte, r.extent, minBytes*2)
			copy(grown, r.buf[:r.extent])
			r.buf = grown
		}
		n, err := r.src.Read(r.buf[r.extent:cap(r.buf)])
		if n > 0 {
			r.extent += n
			r.buf = r.buf[:r.extent]
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrNoProgress
		}
	}
	return nil
}

// findMarker scans r.buf for the marker byte-aligned. Returns the index
// of the marker start, or -1 if not found in the currently buffered bytes
// (more data may resolve this). It does not discard anything; the caller
// drops the bytes before the marker.
func (r *Reader) findMarker() int {
	for i := 0; i+markerBytesLen <= r.extent; i++ {
		if r.buf[i] == markerBytes[0] &&
			r.buf[i+1] == markerBytes[1] &&
			r.buf[i+2] == markerBytes[2] &&
			r.buf[i+3] == markerBytes[3] {
			return i
		}
	}
	return -1
}

// ExtractPacket consumes the previously yielded frame (if any), then scans
// for the next marker, reads the full header, computes the expected framed
// size, and reads further bytes until that many are buffered. It returns a
// slice into the Reader's own storage valid until the next ExtractPacket
// call.
func (r *Reader) ExtractPacket() ([]byte, error) {
	r.consumePending()

	for {
		idx := r.findMarker()
		if idx < 0 {
			// Keep only the last (markerBytesLen-1) bytes: they might be a
			// partial marker prefix.
			keep := markerBytesLen - 1
			if r.extent < keep {
				keep = r.extent
			}
			copy(r.buf, r.buf[r.extent-keep:r.extent])
			r.extent = keep
			r.buf = r.buf[:r.extent]
			if err := r.fill(r.extent + 1); err != nil {
				return nil, err
			}
			continue
		}
		if idx > 0 {
			copy(r.buf, r.buf[idx:r.extent])
			r.extent -= idx
			r.buf = r.buf[:r.extent]
		}
		if err := r.fill(packet.HeaderSize); err != nil {
			return nil, err
		}
		h, err := packet.DecodeHeader(r.buf[:packet.HeaderSize])
		if err != nil {
			return nil, err
		}
		if err := h.Validate(); err != nil {
			// Resync: drop the bogus marker byte and keep searching.
			copy(r.buf, r.buf[1:r.extent])
			r.extent--
			r.buf = r.buf[:r.extent]
			continue
		}
		frameLen := h.FrameSize()
		if err := r.fill(frameLen); err != nil {
			return nil, err
		}
		r.lastFrameLen = frameLen
		return r.buf[:frameLen], nil
	}
}
