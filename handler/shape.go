package handler

import (
	"log"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/tes-go/tes/messages"
	"github.com/tes-go/tes/packet"
	"github.com/tes-go/tes/shapes"
)

// ErrUnknownShape is returned when a Data message addresses an id with
// no staged create or a shape that takes no data messages. Update and
// Destroy messages for unknown ids are logged and skipped at EndFrame.
var ErrUnknownShape = eris.New("handler: message for unknown shape id")

// ErrUnknownMessage is returned for a message id outside the object
// lifecycle set.
var ErrUnknownMessage = eris.New("handler: unknown message id")

// ShapeFactory constructs a fresh, empty shape of the handled type,
// ready for ReadCreate.
type ShapeFactory func() shapes.Shape

type shapeActionKind uint8

const (
	actCreate shapeActionKind = iota
	actUpdate
	actDestroy
)

// shapeAction is one staged lifecycle message awaiting the frame commit.
// Updates keep the decoded payload rather than an applied shape so the
// selected-sub-fields semantics can be replayed against whatever shape is
// committed when the frame boundary arrives.
type shapeAction struct {
	kind    shapeActionKind
	shape   shapes.Shape
	id      uint32
	payload []byte
}

// Shapes is the viewer-side handler for one shape routing id. ReadMessage
// (data thread) only stages; EndFrame applies staged actions in insertion
// order and is the single point where renderer-observable state changes:
// transients from the closing frame are dropped (unless the frame control
// carried persist), destroys and updates apply, creates promote.
type Shapes struct {
	mu        sync.Mutex
	routingID messages.RoutingID
	factory   ShapeFactory

	committed map[uint32]shapes.Shape
	transient []shapes.Shape
	pending   []shapeAction
	// progress tracks the data-phase cursor of each staged complex
	// create, keyed by shape id.
	progress map[uint32]*shapes.DataProgress
}

// NewShapes builds a handler for routingID whose instances factory
// constructs.
func NewShapes(routingID messages.RoutingID, factory ShapeFactory) *Shapes {
	return &Shapes{
		routingID: routingID,
		factory:   factory,
		committed: make(map[uint32]shapes.Shape),
		progress:  make(map[uint32]*shapes.DataProgress),
	}
}

func (h *Shapes) RoutingID() messages.RoutingID { return h.routingID }

func (h *Shapes) Initialise() error { return h.Reset() }

func (h *Shapes) Reset() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.committed = make(map[uint32]shapes.Shape)
	h.transient = nil
	h.pending = nil
	h.progress = make(map[uint32]*shapes.DataProgress)
	return nil
}

func (h *Shapes) UpdateServerInfo(messages.ServerInfo) error { return nil }

// ReadMessage stages one lifecycle message. Data messages apply directly
// to the staged create they belong to: that shape is not yet
// renderer-observable, so mutating it here doesn't break the commit
// contract.
func (h *Shapes) ReadMessage(r *packet.Reader) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch messages.ObjectMessageID(r.MessageID()) {
	case messages.OIDCreate:
		s := h.factory()
		if err := s.ReadCreate(r); err != nil {
			return eris.Wrap(err, "handler: decoding shape create")
		}
		h.pending = append(h.pending, shapeAction{kind: actCreate, shape: s, id: shapeID(s)})
		return nil

	case messages.OIDUpdate:
		id, err := peekID(r)
		if err != nil {
			return err
		}
		payload, err := r.Peek(r.BytesRemaining())
		if err != nil {
			return eris.Wrap(err, "handler: staging shape update")
		}
		h.pending = append(h.pending, shapeAction{kind: actUpdate, id: id, payload: payload})
		return nil

	case messages.OIDDestroy:
		s := h.factory()
		if err := s.ReadDestroy(r); err != nil {
			return eris.Wrap(err, "handler: decoding shape destroy")
		}
		h.pending = append(h.pending, shapeAction{kind: actDestroy, id: shapeID(s)})
		return nil

	case messages.OIDData:
		id, err := peekID(r)
		if err != nil {
			return err
		}
		target := h.pendingCreate(id)
		if target == nil {
			return eris.Wrapf(ErrUnknownShape, "handler: data for shape %d", id)
		}
		cs, ok := target.(shapes.ComplexShape)
		if !ok {
			return eris.Wrapf(ErrUnknownShape, "handler: data for non-complex shape %d", id)
		}
		prog := h.progress[id]
		if prog == nil {
			prog = &shapes.DataProgress{}
			h.progress[id] = prog
		}
		// Data payloads lead with the shape id again; ReadData consumes it.
		return cs.ReadData(r, prog)
	}
	return eris.Wrapf(ErrUnknownMessage, "handler: shape message id %d", r.MessageID())
}

// pendingCreate finds the most recent staged create for id. Called with
// the lock held.
func (h *Shapes) pendingCreate(id uint32) shapes.Shape {
	for i := len(h.pending) - 1; i >= 0; i-- {
		if h.pending[i].kind == actCreate && h.pending[i].id == id {
			return h.pending[i].shape
		}
	}
	return nil
}

func (h *Shapes) PrepareFrame(FrameStamp) error { return nil }

// EndFrame commits the frame: transients drop, then staged actions apply
// in insertion order.
func (h *Shapes) EndFrame(stamp FrameStamp) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !stamp.Persist {
		h.transient = nil
	}
	for _, act := range h.pending {
		switch act.kind {
		case actCreate:
			if act.id == 0 {
				h.transient = append(h.transient, act.shape)
			} else {
				h.committed[act.id] = act.shape
			}
		case actUpdate:
			current, ok := h.committed[act.id]
			if !ok {
				log.Printf("handler: update for unknown shape id %d on routing %d", act.id, h.routingID)
				continue
			}
			updated := current.Clone()
			if err := applyUpdate(updated, h.routingID, act.payload); err != nil {
				return err
			}
			h.committed[act.id] = updated
		case actDestroy:
			if _, ok := h.committed[act.id]; !ok {
				log.Printf("handler: destroy for unknown shape id %d on routing %d", act.id, h.routingID)
				continue
			}
			delete(h.committed, act.id)
		}
	}
	h.pending = nil
	h.progress = make(map[uint32]*shapes.DataProgress)
	return nil
}

// Serialise re-emits the committed (persistent) set as create messages;
// complex shapes stream their data phases afterwards. Transients are
// deliberately skipped: they expire at the frame boundary the receiver is
// about to observe anyway.
func (h *Shapes) Serialise(sink Sink, _ messages.ServerInfo) error {
	h.mu.Lock()
	snapshot := make([]shapes.Shape, 0, len(h.committed))
	for _, s := range h.committed {
		snapshot = append(snapshot, s)
	}
	h.mu.Unlock()

	for _, s := range snapshot {
		if err := writeShape(sink, s); err != nil {
			return err
		}
	}
	return nil
}

// Committed returns the renderer-observable shapes: the persistent set
// plus this frame's transients.
func (h *Shapes) Committed() []shapes.Shape {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]shapes.Shape, 0, len(h.committed)+len(h.transient))
	for _, s := range h.committed {
		out = append(out, s)
	}
	out = append(out, h.transient...)
	return out
}

// Lookup returns the committed shape with the given (non-zero) id.
func (h *Shapes) Lookup(id uint32) (shapes.Shape, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.committed[id]
	return s, ok
}

// writeShape emits a create packet and, for complex shapes, the data
// packet sequence, into sink.
func writeShape(sink Sink, s shapes.Shape) error {
	w := packet.NewWriter(s.RoutingID(), uint16(messages.OIDCreate), packet.MaxPayloadSize)
	if err := s.WriteCreate(w); err != nil {
		return eris.Wrap(err, "handler: serialising shape create")
	}
	if err := w.Finalise(); err != nil {
		return err
	}
	if err := sink.SendPacket(w); err != nil {
		return err
	}
	cs, ok := s.(shapes.ComplexShape)
	if !ok || !s.IsComplex() {
		return nil
	}
	var prog shapes.DataProgress
	for !prog.Complete && !prog.Failed {
		dw := packet.NewWriter(s.RoutingID(), uint16(messages.OIDData), packet.MaxPayloadSize)
		if err := cs.WriteData(dw, &prog, 0); err != nil {
			return eris.Wrap(err, "handler: serialising shape data")
		}
		if err := dw.Finalise(); err != nil {
			return err
		}
		if err := sink.SendPacket(dw); err != nil {
			return err
		}
	}
	return nil
}

// shapeID extracts the instance id common to every shape's Header.
func shapeID(s shapes.Shape) uint32 {
	type withID interface{ InstanceID() uint32 }
	if h, ok := s.(withID); ok {
		return h.InstanceID()
	}
	return 0
}

// peekID reads the leading u32 id without moving the payload cursor.
func peekID(r *packet.Reader) (uint32, error) {
	pos := r.Tell()
	id, err := r.ReadUint32()
	if err != nil {
		return 0, eris.Wrap(err, "handler: reading shape id")
	}
	if err := r.Seek(pos, 0); err != nil {
		return 0, err
	}
	return id, nil
}

// applyUpdate replays a staged update payload against shape through the
// normal codec path, so selected-sub-field semantics live in one place.
func applyUpdate(shape shapes.Shape, routingID messages.RoutingID, payload []byte) error {
	w := packet.NewWriter(uint16(routingID), uint16(messages.OIDUpdate), uint16(len(payload)))
	w.SetNoCRC(true)
	if _, err := w.WriteRaw(payload); err != nil {
		return err
	}
	if err := w.Finalise(); err != nil {
		return err
	}
	r, err := packet.NewReader(w.Bytes())
	if err != nil {
		return err
	}
	return shape.ReadUpdate(r)
}
