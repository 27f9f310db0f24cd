// Package collate implements CollatedPacket: an outer packet wrapping N
// inner, already-finalised packets, optionally gzip-deflated. Also used as
// a lock-free per-producer-thread staging buffer. The compressed form is emitted only when it is strictly smaller than the
// raw payload.
package collate

import (
	"bytes"
	"compress/gzip"
	"io"

	"github.com/rotisserie/eris"
	"github.com/tes-go/tes/messages"
	"github.com/tes-go/tes/packet"
)

// MaxPacketSize is the largest outer packet this package will finalise,
// matching the 16-bit payload_size field's ceiling.
const MaxPacketSize = 0xFFFF

// overhead is the CollatedPacketHeader size written at the start of the
// outer payload: flags(2) + reserved(2) + uncompressed_bytes(4).
const overhead = 8

var (
	// ErrTooLarge is returned by Add when the accumulated buffer would
	// exceed the Writer's maximum packet size less packet.HeaderSize and
	// overhead, and by Finalise when the outer payload would not fit.
	ErrTooLarge = eris.New("collate: accumulated packets exceed max packet size")
)

// Writer accumulates finalised inner packets and emits one outer
// CollatedPacket. Not safe for concurrent use; callers typically keep one
// Writer per producer thread (see package doc).
type Writer struct {
	buf         bytes.Buffer
	maxPacket   int
	compression bool
}

// NewWriter creates a Writer with the given outer packet size ceiling.
// compression enables the gzip trade-off check at Finalise.
func NewWriter(maxPacketSize int, compression bool) *Writer {
	if maxPacketSize <= 0 || maxPacketSize > MaxPacketSize {
		maxPacketSize = MaxPacketSize
	}
	return &Writer{maxPacket: maxPacketSize, compression: compression}
}

// Count returns the number of raw bytes accumulated so far.
func (w *Writer) Count() int { return w.buf.Len() }

// Reset clears the accumulated buffer for reuse.
func (w *Writer) Reset() { w.buf.Reset() }

// Add appends the raw bytes of a finalised inner packet. Returns the
// number of bytes appended, or -1 (with ErrTooLarge) if doing so would
// exceed the configured ceiling.
func (w *Writer) Add(framedPacket []byte) (int, error) {
	if w.buf.Len()+len(framedPacket) > w.maxPacket-packet.HeaderSize-overhead {
		return -1, ErrTooLarge
	}
	return w.buf.Write(framedPacket)
}

// Finalise builds one outer RIDCollated packet from the accumulated
// buffer: it is compressed only if compression is enabled and doing so
// strictly shrinks the payload; the writer's buffer is left untouched
// (call Reset to reuse it for the next batch).
func (w *Writer) Finalise() (*packet.Writer, error) {
	raw := w.buf.Bytes()
	uncompressedBytes := uint32(len(raw))

	payload := raw
	flags := messages.CollatedPacketFlag(0)

	if w.compression && len(raw) > 0 {
		compressed, err := gzipCompress(raw)
		if err == nil && len(compressed) < len(raw) {
			payload = compressed
			flags |= messages.CPFCompress
		}
	}

	total := overhead + len(payload)
	if total > w.maxPacket-packet.HeaderSize {
		return nil, ErrTooLarge
	}

	out := packet.NewWriter(uint16(messages.RIDCollated), 0, uint16(total))
	hdr := messages.CollatedPacketHeader{Flags: flags, UncompressedBytes: uncompressedBytes}
	if err := hdr.Write(out); err != nil {
		return nil, eris.Wrap(err, "collate: writing collated header")
	}
	if _, err := out.WriteRaw(payload); err != nil {
		return nil, eris.Wrap(err, "collate: writing collated payload")
	}
	return out, nil
}

func gzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decoder expands a single RIDCollated packet back into its sequence of
// inner framed packets.
type Decoder struct {
	r                 io.Reader
	gz                *gzip.Reader
	uncompressedBytes uint32
	produced          uint32
}

// NewDecoder parses the CollatedPacketHeader from r's reader cursor and
// prepares to yield inner packets until UncompressedBytes have been
// produced.
func NewDecoder(r *packet.Reader) (*Decoder, error) {
	if r.RoutingID() != uint16(messages.RIDCollated) {
		return nil, eris.New("collate: packet is not a CollatedPacket")
	}
	var hdr messages.CollatedPacketHeader
	if err := hdr.Read(r); err != nil {
		return nil, eris.Wrap(err, "collate: reading collated header")
	}
	rest, err := r.Peek(r.BytesRemaining())
	if err != nil {
		return nil, eris.Wrap(err, "collate: reading collated payload")
	}

	d := &Decoder{uncompressedBytes: hdr.UncompressedBytes}
	if hdr.Flags&messages.CPFCompress != 0 {
		gz, err := gzip.NewReader(bytes.NewReader(rest))
		if err != nil {
			return nil, eris.Wrap(err, "collate: invalid gzip stream")
		}
		d.gz = gz
		d.r = gz
	} else {
		d.r = bytes.NewReader(rest)
	}
	return d, nil
}

// Next reads the next inner packet's header to determine its framed size,
// reads the remaining bytes, and returns the complete inner frame. Returns
// io.EOF once UncompressedBytes have been produced.
func (d *Decoder) Next() ([]byte, error) {
	if d.produced >= d.uncompressedBytes {
		return nil, io.EOF
	}
	hdrBuf := make([]byte, packet.HeaderSize)
	if _, err := io.ReadFull(d.r, hdrBuf); err != nil {
		return nil, eris.Wrap(err, "collate: reading inner packet header")
	}
	h, err := packet.DecodeHeader(hdrBuf)
	if err != nil {
		return nil, err
	}
	if err := h.Validate(); err != nil {
		return nil, eris.Wrap(err, "collate: invalid inner packet header")
	}
	frameLen := h.FrameSize()
	frame := make([]byte, frameLen)
	copy(frame, hdrBuf)
	if _, err := io.ReadFull(d.r, frame[packet.HeaderSize:]); err != nil {
		return nil, eris.Wrap(err, "collate: reading inner packet body")
	}
	d.produced += uint32(frameLen)
	return frame, nil
}
