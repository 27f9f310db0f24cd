package handler

import (
	"io"
	"log"

	"github.com/rotisserie/eris"
	"github.com/tes-go/tes/collate"
	"github.com/tes-go/tes/messages"
	"github.com/tes-go/tes/packet"
)

// ErrStreamEnded is returned by ProcessPacket after a CIDEnd control has
// been observed.
var ErrStreamEnded = eris.New("handler: stream ended")

// StreamProcessor is the viewer-side data thread's dispatch core: it
// routes each decoded packet through the control semantics the protocol
// defines (server info, frame advance, reset, end, collated expansion)
// and hands everything else to the handler registry.
type StreamProcessor struct {
	Registry *Registry

	// OnKeyframe, when set, is called with the frame number carried by a
	// CIDKeyframe control. Only recording/playback consumers care.
	OnKeyframe func(frameNumber uint32)

	info       messages.ServerInfo
	frame      uint32
	frameCount uint32
	ended      bool
}

// NewStreamProcessor wires a processor over reg, seeding protocol-default
// server info until the stream's own SERVER_INFO arrives.
func NewStreamProcessor(reg *Registry) *StreamProcessor {
	return &StreamProcessor{Registry: reg, info: messages.DefaultServerInfo()}
}

// ServerInfo returns the most recently received server info.
func (p *StreamProcessor) ServerInfo() messages.ServerInfo { return p.info }

// FrameNumber returns the current frame number.
func (p *StreamProcessor) FrameNumber() uint32 { return p.frame }

// FrameCount returns the total frame count announced by a CIDFrameCount
// control, 0 if none has been seen.
func (p *StreamProcessor) FrameCount() uint32 { return p.frameCount }

// Ended reports whether a CIDEnd control has been observed.
func (p *StreamProcessor) Ended() bool { return p.ended }

// ProcessFrame parses one framed packet (as yielded by
// packetstream.Reader or collate.Decoder) and processes it.
func (p *StreamProcessor) ProcessFrame(frame []byte) error {
	r, err := packet.NewReader(frame)
	if err != nil {
		return err
	}
	if err := r.VerifyCRC(frame); err != nil {
		return err
	}
	return p.ProcessPacket(r)
}

// ProcessPacket applies one decoded packet. Unknown routing ids are
// logged and skipped so the stream stays decodable; ErrStreamEnded is
// returned for every packet after a CIDEnd.
func (p *StreamProcessor) ProcessPacket(r *packet.Reader) error {
	if p.ended {
		return ErrStreamEnded
	}
	switch messages.RoutingID(r.RoutingID()) {
	case messages.RIDServerInfo:
		if err := p.info.Read(r); err != nil {
			return eris.Wrap(err, "handler: decoding server info")
		}
		return p.updateServerInfoAll()

	case messages.RIDControl:
		return p.processControl(r)

	case messages.RIDCollated:
		return p.processCollated(r)
	}

	err := p.Registry.Dispatch(r)
	switch {
	case err == nil:
		return nil
	case eris.Is(err, ErrUnknownRouting):
		log.Printf("handler: skipping unknown routing id %d (%d bytes)", r.RoutingID(), r.PayloadSize())
		return nil
	case eris.Is(err, ErrUnknownMessage), eris.Is(err, ErrUnknownShape), eris.Is(err, ErrUnknownMesh):
		// Protocol errors isolate to the offending message; the stream
		// stays decodable.
		log.Printf("handler: dropping message (routing %d, message %d): %v", r.RoutingID(), r.MessageID(), err)
		return nil
	}
	return err
}

func (p *StreamProcessor) processControl(r *packet.Reader) error {
	var ctrl messages.Control
	if err := ctrl.Read(r); err != nil {
		return eris.Wrap(err, "handler: decoding control message")
	}
	switch messages.ControlID(r.MessageID()) {
	case messages.CIDFrame:
		ticks := ctrl.Value32
		if ticks == 0 {
			ticks = p.info.DefaultFrameTime
		}
		p.frame++
		stamp := FrameStamp{
			Number:  p.frame,
			DeltaS:  float64(ticks) * float64(p.info.TimeUnit) / 1e6,
			Persist: messages.ControlFlag(ctrl.Flags)&messages.CFFramePersist != 0,
		}
		if err := p.Registry.EndFrameAll(stamp); err != nil {
			return err
		}
		return p.Registry.PrepareFrameAll(stamp)

	case messages.CIDCoordinateFrame:
		p.info.CoordinateFrame = messages.CoordinateFrame(ctrl.Value32)
		return p.updateServerInfoAll()

	case messages.CIDFrameCount:
		p.frameCount = ctrl.Value32
		return nil

	case messages.CIDForceFrameFlush:
		// Render current state without advancing the frame clock.
		return p.Registry.PrepareFrameAll(FrameStamp{Number: p.frame})

	case messages.CIDReset:
		p.frame = ctrl.Value32
		return p.Registry.ResetAll()

	case messages.CIDKeyframe:
		if p.OnKeyframe != nil {
			p.OnKeyframe(ctrl.Value32)
		}
		return nil

	case messages.CIDEnd:
		p.ended = true
		return nil
	}
	log.Printf("handler: skipping unknown control message id %d", r.MessageID())
	return nil
}

// processCollated expands a collated packet and processes each inner
// packet in order. A CRC or framing failure on the collated envelope
// discards the whole outer packet. An inner packet whose CRC fails is
// dropped on its own; any other inner decode error ends the expansion
// and is returned.
func (p *StreamProcessor) processCollated(r *packet.Reader) error {
	dec, err := collate.NewDecoder(r)
	if err != nil {
		return eris.Wrap(err, "handler: expanding collated packet")
	}
	for {
		frame, err := dec.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return eris.Wrap(err, "handler: reading collated inner packet")
		}
		if err := p.ProcessFrame(frame); err != nil {
			if eris.Is(err, packet.ErrCRCMismatch) {
				log.Printf("handler: dropping collated inner packet with bad CRC (%d bytes)", len(frame))
				continue
			}
			return err
		}
	}
}

func (p *StreamProcessor) updateServerInfoAll() error {
	for _, h := range p.Registry.All() {
		if err := h.UpdateServerInfo(p.info); err != nil {
			return eris.Wrapf(err, "handler: updating server info for routing id %d", h.RoutingID())
		}
	}
	return nil
}
