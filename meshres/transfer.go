package meshres

import (
	"github.com/tes-go/tes/databuffer"
	"github.com/tes-go/tes/packet"
)

// Progress is the plain-record transfer state: the caller loops, calling
// Transfer until Complete (or Failed). The zero value starts at phase
// VERTEX, offset 0.
type Progress struct {
	Phase    Phase
	Offset   int
	Complete bool
	Failed   bool
}

// componentEnvelope is the mesh_id prefix every component message carries
// ahead of the databuffer.Buffer.Write wire record.
const componentEnvelope = 4

// Transfer writes one packet's worth of the current phase's component
// stream into w, advancing progress. byteLimit bounds the packet's total
// size (0 means unbounded: the whole phase is written in one call). When
// a phase is exhausted it advances to the next non-empty phase in order
// {VERTEX, INDEX, VERTEX_COLOUR, NORMAL, UV}; once every phase is
// exhausted, Transfer sets progress.Complete with Phase == PhaseDone —
// the caller emits WriteFinalise as its own message once Complete is set.
func (r *Resource) Transfer(w *packet.Writer, byteLimit int, progress *Progress) error {
	if progress.Complete || progress.Failed {
		return nil
	}
	if progress.Offset == 0 {
		progress.Phase = r.nextNonEmptyPhase(progress.Phase)
	}
	if progress.Phase == PhaseDone {
		progress.Complete = true
		return nil
	}

	buf := r.bufferForPhase(progress.Phase)
	if err := w.WriteUint32(r.MeshID); err != nil {
		return err
	}

	avail := byteLimit
	if avail > 0 {
		avail -= componentEnvelope
	}
	n, err := buf.Write(w, progress.Offset, buf.ElementType, avail, 0)
	if err != nil {
		progress.Failed = true
		return err
	}
	progress.Offset += n

	if progress.Offset >= buf.Count() {
		progress.Phase = r.nextNonEmptyPhase(progress.Phase + 1)
		progress.Offset = 0
		if progress.Phase == PhaseDone {
			progress.Complete = true
		}
	}
	return nil
}

// PhaseMessageID returns the RIDMesh message id a Transfer call at this
// progress should be framed with.
func (p Progress) PhaseMessageID() MessageID {
	return p.Phase.messageID()
}

// CurrentPhase resolves the phase the next Transfer call will write,
// skipping empty phases. It advances progress.Phase the same way
// Transfer's own selection does (the advance is idempotent), so a packet
// framed with the returned phase's message id always matches the payload
// Transfer emits into it. Returns PhaseDone when nothing remains.
func (r *Resource) CurrentPhase(progress *Progress) Phase {
	if progress.Complete || progress.Failed {
		return PhaseDone
	}
	if progress.Offset == 0 {
		progress.Phase = r.nextNonEmptyPhase(progress.Phase)
	}
	return progress.Phase
}

func (r *Resource) nextNonEmptyPhase(from Phase) Phase {
	for _, p := range phaseOrder {
		if p < from {
			continue
		}
		if buf := r.bufferForPhase(p); buf != nil && buf.Count() > 0 {
			return p
		}
	}
	return PhaseDone
}

// ReadComponent decodes one component message's databuffer body (the
// leading mesh_id is assumed already consumed by the caller's routing
// dispatch) and merges it into the resource at phase.
func (r *Resource) ReadComponent(phase Phase, pr *packet.Reader) error {
	res, err := databuffer.Read(pr)
	if err != nil {
		return err
	}
	return r.ApplyComponent(phase, res)
}
