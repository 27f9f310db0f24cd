// Package resources implements the reference-counted resource registry
// and its incremental, byte-budgeted transfer pump: first reference
// enqueues a resource for transfer; last release emits DESTROY and
// removes it. Transfer work is amortised across UpdateTransfers calls.
package resources

import (
	"sync"

	"github.com/rotisserie/eris"
	"github.com/tes-go/tes/messages"
	"github.com/tes-go/tes/meshres"
	"github.com/tes-go/tes/packet"
)

// MaxByteBudget is the per-packet ceiling a caller's byte budget
// implicitly clamps to when it exceeds it (payload_size is 16 bits).
const MaxByteBudget = 0xFFFE

var (
	// ErrUnknownResource is returned by Release for an id never
	// referenced, and by Reference for a nil resource.
	ErrUnknownResource = eris.New("resources: unknown resource id")
)

type entry struct {
	resource *meshres.Resource
	refCount int
	progress meshres.Progress
	// started marks the MIDCreate message as already sent.
	started bool
	// queued is true while this entry is waiting for (or mid-way
	// through) its initial transfer; false once FINALISE has been sent.
	queued bool
}

// Registry is the per-connection map of (resource id -> resource,
// refcount, transfer state). The zero value is ready to use.
type Registry struct {
	mu      sync.Mutex
	entries map[uint32]*entry
	queue   []uint32 // FIFO of ids awaiting/undergoing transfer, insertion order
}

// Reference increments res's refcount, registering it on first
// reference and enqueuing it for transfer. Returns the new refcount.
func (reg *Registry) Reference(res *meshres.Resource) int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if reg.entries == nil {
		reg.entries = make(map[uint32]*entry)
	}
	e, ok := reg.entries[res.MeshID]
	if !ok {
		e = &entry{resource: res}
		reg.entries[res.MeshID] = e
		e.queued = true
		reg.queue = append(reg.queue, res.MeshID)
	}
	e.refCount++
	return e.refCount
}

// Release decrements id's refcount. At zero it is removed from the
// registry and DestroyNeeded reports true so the caller emits a
// MIDDestroy message; the caller is responsible for actually writing
// that message (Release does not itself produce wire bytes, matching
// Connection owning all send-side I/O).
func (reg *Registry) Release(id uint32) (destroyNeeded bool, err error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	e, ok := reg.entries[id]
	if !ok {
		return false, ErrUnknownResource
	}
	e.refCount--
	if e.refCount > 0 {
		return false, nil
	}
	delete(reg.entries, id)
	return true, nil
}

// RefCount returns id's current refcount, 0 if unknown.
func (reg *Registry) RefCount(id uint32) int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if e, ok := reg.entries[id]; ok {
		return e.refCount
	}
	return 0
}

// Lookup returns the registered resource for id, if any.
func (reg *Registry) Lookup(id uint32) (*meshres.Resource, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	e, ok := reg.entries[id]
	if !ok {
		return nil, false
	}
	return e.resource, true
}

// Sink is the minimal write surface UpdateTransfers needs: one finalised
// packet per call. Connection (package connection) implements this.
type Sink interface {
	SendPacket(w *packet.Writer) error
}

// UpdateTransfers pops queued resources and calls Transfer on each until
// either the queue is empty or byteBudget is exhausted. byteBudget == 0
// means unbounded: every pending resource is fully sent this call.
// Partial progress on a resource survives to the next call.
func (reg *Registry) UpdateTransfers(sink Sink, byteBudget int) error {
	perPacketLimit := byteBudget
	if perPacketLimit <= 0 || perPacketLimit > MaxByteBudget {
		perPacketLimit = MaxByteBudget
	}

	spent := 0
	unbounded := byteBudget <= 0

	for {
		reg.mu.Lock()
		if len(reg.queue) == 0 {
			reg.mu.Unlock()
			return nil
		}
		id := reg.queue[0]
		e, ok := reg.entries[id]
		if !ok {
			// Released before its transfer completed.
			reg.queue = reg.queue[1:]
			reg.mu.Unlock()
			continue
		}
		reg.mu.Unlock()

		if !unbounded && spent >= byteBudget {
			return nil
		}

		if !e.started {
			w := packet.NewWriter(uint16(messages.RIDMesh), uint16(meshres.MIDCreate), 128)
			if err := e.resource.WriteCreate(w); err != nil {
				return eris.Wrap(err, "resources: writing mesh create")
			}
			if err := w.Finalise(); err != nil {
				return eris.Wrap(err, "resources: finalising mesh create")
			}
			if err := sink.SendPacket(w); err != nil {
				return eris.Wrap(err, "resources: sending mesh create")
			}
			spent += w.PayloadSize()
			e.started = true
		}

		if phase := e.resource.CurrentPhase(&e.progress); phase != meshres.PhaseDone {
			w := packet.NewWriter(uint16(messages.RIDMesh), uint16(e.progress.PhaseMessageID()), uint16(perPacketLimit))
			if err := e.resource.Transfer(w, perPacketLimit, &e.progress); err != nil {
				return eris.Wrap(err, "resources: transferring mesh component")
			}
			if e.progress.Failed {
				return eris.New("resources: mesh transfer failed")
			}
			if err := w.Finalise(); err != nil {
				return eris.Wrap(err, "resources: finalising mesh component")
			}
			if err := sink.SendPacket(w); err != nil {
				return eris.Wrap(err, "resources: sending mesh component")
			}
			spent += w.PayloadSize()
			if !e.progress.Complete {
				continue
			}
		} else {
			e.progress.Complete = true
		}

		fin := packet.NewWriter(uint16(messages.RIDMesh), uint16(meshres.MIDFinalise), 8)
		if err := meshres.WriteFinalise(fin, e.resource.MeshID, meshres.FinaliseFNone); err != nil {
			return eris.Wrap(err, "resources: writing mesh finalise")
		}
		if err := fin.Finalise(); err != nil {
			return eris.Wrap(err, "resources: finalising mesh finalise packet")
		}
		if err := sink.SendPacket(fin); err != nil {
			return eris.Wrap(err, "resources: sending mesh finalise")
		}
		spent += fin.PayloadSize()

		reg.mu.Lock()
		reg.queue = reg.queue[1:]
		e.queued = false
		reg.mu.Unlock()

		if !unbounded && spent >= byteBudget {
			return nil
		}
	}
}
