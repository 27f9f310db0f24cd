package handler

import (
	"log"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/tes-go/tes/meshres"
	"github.com/tes-go/tes/messages"
	"github.com/tes-go/tes/packet"
)

// ErrUnknownMesh is returned when a component, redefine or finalise
// message arrives for a mesh id with no preceding create.
var ErrUnknownMesh = eris.New("handler: mesh message before create")

type meshActionKind uint8

const (
	meshFinalise meshActionKind = iota
	meshDestroy
)

type meshAction struct {
	kind  meshActionKind
	id    uint32
	flags meshres.FinaliseFlag
}

// Mesh is the RIDMesh handler: it accumulates component streams into
// pending resources keyed by mesh id and promotes them to the committed
// (drawable) set at the frame boundary following their finalise, per the
// resource read path. Redefine clones the committed resource into a new
// pending one with the Ready bit cleared, so component resubmission never
// mutates what the renderer is drawing.
type Mesh struct {
	mu        sync.Mutex
	committed map[uint32]*meshres.Resource
	pending   map[uint32]*meshres.Resource
	actions   []meshAction
}

// NewMesh returns a Mesh handler ready to use.
func NewMesh() *Mesh {
	return &Mesh{
		committed: make(map[uint32]*meshres.Resource),
		pending:   make(map[uint32]*meshres.Resource),
	}
}

func (h *Mesh) RoutingID() messages.RoutingID { return messages.RIDMesh }

func (h *Mesh) Initialise() error { return h.Reset() }

func (h *Mesh) Reset() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.committed = make(map[uint32]*meshres.Resource)
	h.pending = make(map[uint32]*meshres.Resource)
	h.actions = nil
	return nil
}

func (h *Mesh) UpdateServerInfo(messages.ServerInfo) error { return nil }

// ReadMessage accumulates one mesh message. Component data applies
// directly to the pending resource (never renderer-observable); finalise
// and destroy stage for the frame commit.
func (h *Mesh) ReadMessage(r *packet.Reader) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	mid := meshres.MessageID(r.MessageID())
	switch mid {
	case meshres.MIDCreate:
		res, err := meshres.ReadCreate(r)
		if err != nil {
			return eris.Wrap(err, "handler: decoding mesh create")
		}
		h.pending[res.MeshID] = res
		return nil

	case meshres.MIDRedefine:
		res, err := meshres.ReadCreate(r)
		if err != nil {
			return eris.Wrap(err, "handler: decoding mesh redefine")
		}
		base, ok := h.committed[res.MeshID]
		if !ok {
			if base, ok = h.pending[res.MeshID]; !ok {
				return eris.Wrapf(ErrUnknownMesh, "handler: redefine of mesh %d", res.MeshID)
			}
		}
		next := base.Clone()
		next.VertexCount = res.VertexCount
		next.IndexCount = res.IndexCount
		next.Flags = res.Flags
		next.DrawType = res.DrawType
		next.Attributes = res.Attributes
		h.pending[res.MeshID] = next
		return nil

	case meshres.MIDDestroy:
		id, err := meshres.ReadDestroy(r)
		if err != nil {
			return eris.Wrap(err, "handler: decoding mesh destroy")
		}
		delete(h.pending, id)
		h.actions = append(h.actions, meshAction{kind: meshDestroy, id: id})
		return nil

	case meshres.MIDFinalise:
		id, flags, err := meshres.ReadFinalise(r)
		if err != nil {
			return eris.Wrap(err, "handler: decoding mesh finalise")
		}
		if _, ok := h.pending[id]; !ok {
			return eris.Wrapf(ErrUnknownMesh, "handler: finalise of mesh %d", id)
		}
		h.actions = append(h.actions, meshAction{kind: meshFinalise, id: id, flags: flags})
		return nil
	}

	phase, ok := meshres.PhaseForMessage(mid)
	if !ok {
		return eris.Wrapf(ErrUnknownMessage, "handler: mesh message id %d", mid)
	}
	id, err := r.ReadUint32()
	if err != nil {
		return eris.Wrap(err, "handler: reading mesh id")
	}
	res, found := h.pending[id]
	if !found {
		return eris.Wrapf(ErrUnknownMesh, "handler: component for mesh %d", id)
	}
	return res.ReadComponent(phase, r)
}

func (h *Mesh) PrepareFrame(FrameStamp) error { return nil }

// EndFrame promotes finalised pending resources into the committed set
// and applies staged destroys, in insertion order.
func (h *Mesh) EndFrame(FrameStamp) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, act := range h.actions {
		switch act.kind {
		case meshFinalise:
			res, ok := h.pending[act.id]
			if !ok {
				continue
			}
			if act.flags&meshres.FinaliseFCalculateNormals != 0 {
				res.CalculateNormals(false)
			}
			res.Ready = true
			h.committed[act.id] = res
			delete(h.pending, act.id)
		case meshDestroy:
			if _, ok := h.committed[act.id]; !ok {
				log.Printf("handler: destroy for unknown mesh %d", act.id)
				continue
			}
			delete(h.committed, act.id)
		}
	}
	h.actions = nil
	return nil
}

// Serialise replays every committed resource as a create, its component
// streams, and a finalise, so a fresh connection can rebuild the
// registry. Derived data (normals computed at the first finalise)
// transfers as ordinary components, so the replayed finalise carries no
// processing flags.
func (h *Mesh) Serialise(sink Sink, _ messages.ServerInfo) error {
	h.mu.Lock()
	snapshot := make([]*meshres.Resource, 0, len(h.committed))
	for _, res := range h.committed {
		snapshot = append(snapshot, res)
	}
	h.mu.Unlock()

	for _, res := range snapshot {
		if err := writeMeshResource(sink, res); err != nil {
			return err
		}
	}
	return nil
}

// Resource returns the committed (drawable) resource for id.
func (h *Mesh) Resource(id uint32) (*meshres.Resource, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	res, ok := h.committed[id]
	return res, ok
}

// ResourceCount reports the committed resource count.
func (h *Mesh) ResourceCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.committed)
}

func writeMeshResource(sink Sink, res *meshres.Resource) error {
	w := packet.NewWriter(uint16(messages.RIDMesh), uint16(meshres.MIDCreate), packet.MaxPayloadSize)
	if err := res.WriteCreate(w); err != nil {
		return eris.Wrap(err, "handler: serialising mesh create")
	}
	if err := w.Finalise(); err != nil {
		return err
	}
	if err := sink.SendPacket(w); err != nil {
		return err
	}

	var prog meshres.Progress
	for res.CurrentPhase(&prog) != meshres.PhaseDone {
		cw := packet.NewWriter(uint16(messages.RIDMesh), uint16(prog.PhaseMessageID()), packet.MaxPayloadSize)
		if err := res.Transfer(cw, 0, &prog); err != nil {
			return eris.Wrap(err, "handler: serialising mesh component")
		}
		if err := cw.Finalise(); err != nil {
			return err
		}
		if err := sink.SendPacket(cw); err != nil {
			return err
		}
	}

	fw := packet.NewWriter(uint16(messages.RIDMesh), uint16(meshres.MIDFinalise), 8)
	if err := meshres.WriteFinalise(fw, res.MeshID, meshres.FinaliseFNone); err != nil {
		return eris.Wrap(err, "handler: serialising mesh finalise")
	}
	if err := fw.Finalise(); err != nil {
		return err
	}
	return sink.SendPacket(fw)
}
