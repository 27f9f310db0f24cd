// Package streamutil implements the recording stream's file layout: a
// ServerInfo packet and a FRAME_COUNT placeholder written at open,
// back-patched at close once the final frame count (and, optionally, a
// corrected ServerInfo) is known. The packet header's fixed-size,
// CRC-enabled framing is what makes overwrite-in-place safe.
package streamutil

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tes-go/tes/messages"
	"github.com/tes-go/tes/packet"
)

// maxScanPackets bounds how many packets Finalise reads forward looking
// for the ServerInfo/FRAME_COUNT pair before giving up.
const maxScanPackets = 5

// serverInfoPayload and frameCountPayload are large enough to hold every
// field either message ever writes; both packets carry a CRC so their
// framed size is fixed once written, which is what makes overwriting
// them in place safe.
const (
	serverInfoPayload = 64
	frameCountPayload = 32
)

var (
	// ErrPreambleNotFound is returned by Finalise when the expected
	// ServerInfo/FRAME_COUNT pair isn't found within maxScanPackets.
	ErrPreambleNotFound = eris.New("streamutil: server info / frame count preamble not found")
)

// WritePreamble writes a ServerInfo packet followed by a placeholder
// FRAME_COUNT control message (value32 = 0) to w, both CRC-enabled. Call
// this once, at the start of a recording, before any frame or shape
// messages are appended.
func WritePreamble(w io.Writer, info messages.ServerInfo) error {
	infoWriter := packet.NewWriter(uint16(messages.RIDServerInfo), 0, serverInfoPayload)
	if err := info.Write(infoWriter); err != nil {
		return eris.Wrap(err, "streamutil: encoding server info")
	}
	if err := infoWriter.Finalise(); err != nil {
		return eris.Wrap(err, "streamutil: finalising server info packet")
	}
	if _, err := w.Write(infoWriter.Bytes()); err != nil {
		return eris.Wrap(err, "streamutil: writing server info packet")
	}

	frameCountWriter := packet.NewWriter(uint16(messages.RIDControl), uint16(messages.CIDFrameCount), frameCountPayload)
	placeholder := messages.Control{Value32: 0}
	if err := placeholder.Write(frameCountWriter); err != nil {
		return eris.Wrap(err, "streamutil: encoding frame count placeholder")
	}
	if err := frameCountWriter.Finalise(); err != nil {
		return eris.Wrap(err, "streamutil: finalising frame count packet")
	}
	if _, err := w.Write(frameCountWriter.Bytes()); err != nil {
		return eris.Wrap(err, "streamutil: writing frame count packet")
	}
	return nil
}

// Finalise seeks rw to the start, scans forward at most maxScanPackets
// packets for a ServerInfo packet followed by a RIDControl/CIDFrameCount
// packet, and overwrites them: info (if non-nil) replaces the recorded
// ServerInfo, and frameCount replaces the placeholder value32. The write
// cursor is restored to its prior position (resumeAt) once done, so a
// caller already positioned at end-of-file can keep appending — though
// in practice Finalise is the last call before closing the stream.
func Finalise(rw io.ReadWriteSeeker, info *messages.ServerInfo, frameCount uint32) error {
	resumeAt, err := rw.Seek(0, io.SeekCurrent)
	if err != nil {
		return eris.Wrap(err, "streamutil: reading current offset")
	}
	if _, err := rw.Seek(0, io.SeekStart); err != nil {
		return eris.Wrap(err, "streamutil: seeking to start")
	}

	var (
		offset              int64
		serverInfoOffset    = int64(-1)
		serverInfoFrameSize int
		frameCountOffset    = int64(-1)
		frameCountFrameSize int
	)

	for i := 0; i < maxScanPackets && (serverInfoOffset < 0 || frameCountOffset < 0); i++ {
		hdrBuf := make([]byte, packet.HeaderSize)
		if _, err := io.ReadFull(rw, hdrBuf); err != nil {
			break
		}
		h, err := packet.DecodeHeader(hdrBuf)
		if err != nil {
			break
		}
		frameSize := h.FrameSize()

		switch {
		case h.RoutingID == uint16(messages.RIDServerInfo) && serverInfoOffset < 0:
			serverInfoOffset = offset
			serverInfoFrameSize = frameSize
		case h.RoutingID == uint16(messages.RIDControl) && h.MessageID == uint16(messages.CIDFrameCount) && frameCountOffset < 0:
			frameCountOffset = offset
			frameCountFrameSize = frameSize
		}

		offset += int64(frameSize)
		if _, err := rw.Seek(offset, io.SeekStart); err != nil {
			return eris.Wrap(err, "streamutil: seeking to next packet")
		}
	}

	if serverInfoOffset < 0 || frameCountOffset < 0 {
		return ErrPreambleNotFound
	}

	if info != nil {
		w := packet.NewWriter(uint16(messages.RIDServerInfo), 0, serverInfoPayload)
		if err := info.Write(w); err != nil {
			return eris.Wrap(err, "streamutil: encoding final server info")
		}
		if err := w.Finalise(); err != nil {
			return eris.Wrap(err, "streamutil: finalising final server info packet")
		}
		if len(w.Bytes()) != serverInfoFrameSize {
			return eris.New("streamutil: final server info packet size does not match the recorded placeholder")
		}
		if _, err := rw.Seek(serverInfoOffset, io.SeekStart); err != nil {
			return eris.Wrap(err, "streamutil: seeking to server info")
		}
		if _, err := rw.Write(w.Bytes()); err != nil {
			return eris.Wrap(err, "streamutil: overwriting server info")
		}
	}

	w := packet.NewWriter(uint16(messages.RIDControl), uint16(messages.CIDFrameCount), frameCountPayload)
	final := messages.Control{Value32: frameCount}
	if err := final.Write(w); err != nil {
		return eris.Wrap(err, "streamutil: encoding final frame count")
	}
	if err := w.Finalise(); err != nil {
		return eris.Wrap(err, "streamutil: finalising final frame count packet")
	}
	if len(w.Bytes()) != frameCountFrameSize {
		return eris.New("streamutil: final frame count packet size does not match the recorded placeholder")
	}
	if _, err := rw.Seek(frameCountOffset, io.SeekStart); err != nil {
		return eris.Wrap(err, "streamutil: seeking to frame count")
	}
	if _, err := rw.Write(w.Bytes()); err != nil {
		return eris.Wrap(err, "streamutil: overwriting frame count")
	}

	_, err = rw.Seek(resumeAt, io.SeekStart)
	if err != nil {
		return eris.Wrap(err, "streamutil: restoring write cursor")
	}
	return nil
}
