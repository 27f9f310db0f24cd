// Package handler implements the per-routing-id message handler
// lifecycle: each handler owns the decoded state for one routing id and
// is driven through initialise/reset/readMessage/prepareFrame/endFrame/
// serialise by the stream processor.
package handler

import (
	"sync"

	"github.com/rotisserie/eris"
	"github.com/tes-go/tes/messages"
	"github.com/tes-go/tes/packet"
)

// ErrUnknownRouting is returned by a Registry when no handler is
// registered for a message's routing id.
var ErrUnknownRouting = eris.New("handler: no handler registered for routing id")

// FrameStamp carries the frame number and elapsed/delta time a
// prepareFrame/endFrame pair operates on.
type FrameStamp struct {
	Number uint32
	DeltaS float64
	// Persist is set when the frame control carried CFFramePersist:
	// transient shapes survive this boundary instead of being dropped.
	Persist bool
}

// Handler is implemented by every routing-id-scoped message consumer.
// ReadMessage and EndFrame are called on the data (network) thread:
// ReadMessage as messages are decoded off the wire, EndFrame at frame
// boundaries. In this package StreamProcessor also calls PrepareFrame on
// the data thread, right after EndFrame with the same stamp and on a
// forced frame flush; no other PrepareFrame caller exists here.
// Serialise is called by whichever caller owns the output. ReadMessage
// stages data, EndFrame commits it, and the commit is what PrepareFrame
// observes.
type Handler interface {
	// RoutingID reports the routing id this handler owns.
	RoutingID() messages.RoutingID
	// Initialise resets the handler to its just-constructed state.
	Initialise() error
	// Reset discards all accumulated state, matching a CIDReset control
	// message.
	Reset() error
	// UpdateServerInfo notifies the handler of a (possibly changed)
	// server info record, e.g. for coordinate-frame-dependent decoding.
	UpdateServerInfo(info messages.ServerInfo) error
	// ReadMessage decodes one message payload already framed and routed
	// to this handler's routing id. Called from the data thread.
	ReadMessage(r *packet.Reader) error
	// PrepareFrame is called after EndFrame has committed the frame;
	// StreamProcessor calls it on the data thread.
	PrepareFrame(stamp FrameStamp) error
	// EndFrame commits pending state staged by ReadMessage calls during
	// this frame, making it visible to the next PrepareFrame.
	EndFrame(stamp FrameStamp) error
	// Serialise writes out this handler's full current state as create
	// messages into w, e.g. for a freshly connected client or a keyframe.
	Serialise(w Sink, info messages.ServerInfo) error
}

// Sink is the minimal write surface a handler needs to serialise its
// state; Connection (package connection) implements this.
type Sink interface {
	SendPacket(w *packet.Writer) error
}

// Registry dispatches decoded packets to the Handler registered for
// their routing id and fans frame-lifecycle calls out to every
// registered handler. The zero value is ready to use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[messages.RoutingID]Handler
	order    []messages.RoutingID
}

// Register adds h under its own RoutingID, replacing any previous
// handler for that id.
func (reg *Registry) Register(h Handler) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if reg.handlers == nil {
		reg.handlers = make(map[messages.RoutingID]Handler)
	}
	id := h.RoutingID()
	if _, ok := reg.handlers[id]; !ok {
		reg.order = append(reg.order, id)
	}
	reg.handlers[id] = h
}

// Lookup returns the handler registered for id, if any.
func (reg *Registry) Lookup(id messages.RoutingID) (Handler, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	h, ok := reg.handlers[id]
	return h, ok
}

// Dispatch routes r to the handler registered for r.RoutingID.
func (reg *Registry) Dispatch(r *packet.Reader) error {
	h, ok := reg.Lookup(messages.RoutingID(r.RoutingID()))
	if !ok {
		return ErrUnknownRouting
	}
	return h.ReadMessage(r)
}

// All returns every registered handler in registration order.
func (reg *Registry) All() []Handler {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make([]Handler, 0, len(reg.order))
	for _, id := range reg.order {
		out = append(out, reg.handlers[id])
	}
	return out
}

// InitialiseAll calls Initialise on every registered handler, stopping
// at the first error.
func (reg *Registry) InitialiseAll() error {
	for _, h := range reg.All() {
		if err := h.Initialise(); err != nil {
			return eris.Wrapf(err, "handler: initialising routing id %d", h.RoutingID())
		}
	}
	return nil
}

// ResetAll calls Reset on every registered handler, stopping at the
// first error.
func (reg *Registry) ResetAll() error {
	for _, h := range reg.All() {
		if err := h.Reset(); err != nil {
			return eris.Wrapf(err, "handler: resetting routing id %d", h.RoutingID())
		}
	}
	return nil
}

// PrepareFrameAll fans PrepareFrame out to every registered handler.
func (reg *Registry) PrepareFrameAll(stamp FrameStamp) error {
	for _, h := range reg.All() {
		if err := h.PrepareFrame(stamp); err != nil {
			return eris.Wrapf(err, "handler: preparing frame for routing id %d", h.RoutingID())
		}
	}
	return nil
}

// EndFrameAll fans EndFrame out to every registered handler.
func (reg *Registry) EndFrameAll(stamp FrameStamp) error {
	for _, h := range reg.All() {
		if err := h.EndFrame(stamp); err != nil {
			return eris.Wrapf(err, "handler: ending frame for routing id %d", h.RoutingID())
		}
	}
	return nil
}

// SerialiseAll asks every registered handler to write out its full
// current state to w, e.g. for a newly connected client.
func (reg *Registry) SerialiseAll(w Sink, info messages.ServerInfo) error {
	for _, h := range reg.All() {
		if err := h.Serialise(w, info); err != nil {
			return eris.Wrapf(err, "handler: serialising routing id %d", h.RoutingID())
		}
	}
	return nil
}
