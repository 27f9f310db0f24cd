package shapes

import (
	"github.com/rotisserie/eris"
	"github.com/tes-go/tes/databuffer"
	"github.com/tes-go/tes/messages"
	"github.com/tes-go/tes/packet"
)

// MeshShapeDrawType selects how MeshShape's vertices are interpreted.
type MeshShapeDrawType uint8

const (
	DrawPoints MeshShapeDrawType = iota
	DrawLines
	DrawTriangles
	DrawVoxels
)

// MeshShapePhase enumerates MeshShape's own data-streaming phases. These
// are distinct from meshres's CREATE/VERTEX/INDEX/.../FINALISE phases: a
// MeshShape is an inline, per-frame complex shape, not a registered,
// ref-counted resource.
type MeshShapePhase uint8

const (
	PhaseVertices MeshShapePhase = iota
	PhaseIndices
	PhaseNormals
	PhaseColours
	PhaseEnd
)

// DataProgress is the plain-record "coroutine" state the transfer pump
// design note calls for: the caller loops, calling WriteData/ReadData
// until Complete (or Failed).
type DataProgress struct {
	Phase    MeshShapePhase
	Offset   int
	Complete bool
	Failed   bool
}

// MeshShape is a complex shape: its vertex/index/normal/colour streams
// don't fit in the Create packet, so they're sent as a sequence of Data
// packets after Create. Packed-float quantisation (Unit > 0) selects the
// packed encoding for the vertex and normal phases.
type MeshShape struct {
	Header
	Attributes messages.ObjectAttributes
	DrawType   MeshShapeDrawType

	Vertices *databuffer.Buffer
	Indices  *databuffer.Buffer
	Normals  *databuffer.Buffer
	Colours  *databuffer.Buffer

	// Unit, when > 0, selects DctPackedFloat16 encoding for the vertex and
	// normal phases with this quantisation unit.
	Unit float64
}

// NewMeshShape constructs an empty mesh shape.
func NewMeshShape() *MeshShape {
	return &MeshShape{Attributes: messages.IdentityAttributes()}
}

func (m *MeshShape) RoutingID() uint16 { return uint16(messages.RIDMeshShape) }
func (m *MeshShape) IsComplex() bool   { return true }

func (m *MeshShape) Clone() Shape {
	out := *m
	if m.Vertices != nil {
		out.Vertices = m.Vertices.Duplicate()
	}
	if m.Indices != nil {
		out.Indices = m.Indices.Duplicate()
	}
	if m.Normals != nil {
		out.Normals = m.Normals.Duplicate()
	}
	if m.Colours != nil {
		out.Colours = m.Colours.Duplicate()
	}
	return &out
}

func (m *MeshShape) vertexCount() int {
	if m.Vertices == nil {
		return 0
	}
	return m.Vertices.Count()
}

func (m *MeshShape) indexCount() int {
	if m.Indices == nil {
		return 0
	}
	return m.Indices.Count()
}

func (m *MeshShape) WriteCreate(w *packet.Writer) error {
	if err := m.Header.write(w); err != nil {
		return err
	}
	if err := m.Attributes.Write(w, m.Header.doublePrecision()); err != nil {
		return err
	}
	if err := w.WriteUint8(uint8(m.DrawType)); err != nil {
		return err
	}
	if err := w.WriteUint32(uint32(m.vertexCount())); err != nil {
		return err
	}
	return w.WriteUint32(uint32(m.indexCount()))
}

func (m *MeshShape) ReadCreate(r *packet.Reader) error {
	if err := m.Header.read(r); err != nil {
		return err
	}
	if err := m.Attributes.Read(r, m.Header.doublePrecision()); err != nil {
		return err
	}
	dt, err := r.ReadUint8()
	if err != nil {
		return err
	}
	vertexCount, err := r.ReadUint32()
	if err != nil {
		return err
	}
	indexCount, err := r.ReadUint32()
	if err != nil {
		return err
	}
	m.DrawType = MeshShapeDrawType(dt)
	m.Vertices = databuffer.NewFloat32(3, make([]float32, int(vertexCount)*3))
	if indexCount > 0 {
		m.Indices = databuffer.NewUint32(1, make([]uint32, indexCount))
	}
	return nil
}

// WriteUpdate carries only the transform/appearance attributes; the
// geometry streams are immutable after creation for a mesh shape.
func (m *MeshShape) WriteUpdate(w *packet.Writer, fields messages.UpdateFlag) error {
	return writeUpdate(w, m.ID, m.Flags, m.Attributes, fields)
}

func (m *MeshShape) ReadUpdate(r *packet.Reader) error {
	id, err := readUpdate(r, &m.Attributes)
	if err != nil {
		return err
	}
	m.ID = id
	return nil
}

func (m *MeshShape) WriteDestroy(w *packet.Writer) error { return writeDestroyID(w, m.ID) }

func (m *MeshShape) ReadDestroy(r *packet.Reader) error {
	id, err := readDestroyID(r)
	if err != nil {
		return err
	}
	m.ID = id
	return nil
}

func (m *MeshShape) bufferForPhase(phase MeshShapePhase) *databuffer.Buffer {
	switch phase {
	case PhaseVertices:
		return m.Vertices
	case PhaseIndices:
		return m.Indices
	case PhaseNormals:
		return m.Normals
	case PhaseColours:
		return m.Colours
	}
	return nil
}

func nextNonEmptyPhase(m *MeshShape, from MeshShapePhase) MeshShapePhase {
	for p := from; p < PhaseEnd; p++ {
		if b := m.bufferForPhase(p); b != nil && b.Count() > 0 {
			return p
		}
	}
	return PhaseEnd
}

// WriteData emits one Data packet: the instance id, the current phase,
// and as much of that phase's buffer as fits in byteLimit, advancing
// progress. Once every phase is exhausted it writes phase PhaseEnd and
// sets progress.Complete.
func (m *MeshShape) WriteData(w *packet.Writer, progress *DataProgress, byteLimit int) error {
	if progress.Complete || progress.Failed {
		return nil
	}
	if progress.Offset == 0 {
		progress.Phase = nextNonEmptyPhase(m, progress.Phase)
	}

	if err := w.WriteUint32(m.ID); err != nil {
		return err
	}
	if err := w.WriteUint8(uint8(progress.Phase)); err != nil {
		return err
	}

	if progress.Phase == PhaseEnd {
		progress.Complete = true
		return nil
	}

	buf := m.bufferForPhase(progress.Phase)
	writeAsType := buf.ElementType
	unit := 0.0
	if (progress.Phase == PhaseVertices || progress.Phase == PhaseNormals) && m.Unit > 0 {
		writeAsType = messages.DctPackedFloat16
		unit = m.Unit
	}

	n, err := buf.Write(w, progress.Offset, writeAsType, byteLimit-5, unit)
	if err != nil {
		progress.Failed = true
		return err
	}
	progress.Offset += n

	if progress.Offset >= buf.Count() {
		progress.Phase = nextNonEmptyPhase(m, progress.Phase+1)
		progress.Offset = 0
		if progress.Phase == PhaseEnd {
			// Caller's next WriteData call emits the terminal PhaseEnd packet.
		}
	}
	return nil
}

// ReadData decodes one Data packet into the matching buffer, creating it
// on first use. Phase PhaseEnd marks completion with no further payload.
func (m *MeshShape) ReadData(r *packet.Reader, progress *DataProgress) error {
	id, err := r.ReadUint32()
	if err != nil {
		return err
	}
	phase, err := r.ReadUint8()
	if err != nil {
		return err
	}
	m.ID = id
	progress.Phase = MeshShapePhase(phase)
	if progress.Phase == PhaseEnd {
		progress.Complete = true
		return nil
	}

	res, err := databuffer.Read(r)
	if err != nil {
		progress.Failed = true
		return err
	}

	componentCount := int(res.ComponentCount)
	target := m.ensureBuffer(progress.Phase, componentCount)
	if target == nil {
		return eris.New("shapes: mesh shape has no buffer for phase")
	}
	writeDecodedValues(target, int(res.Offset), res.Values, componentCount)
	progress.Offset = int(res.Offset) + int(res.Count)
	return nil
}

func (m *MeshShape) ensureBuffer(phase MeshShapePhase, componentCount int) *databuffer.Buffer {
	switch phase {
	case PhaseVertices:
		if m.Vertices == nil {
			m.Vertices = databuffer.NewFloat32(componentCount, nil)
		}
		return m.Vertices
	case PhaseIndices:
		if m.Indices == nil {
			m.Indices = databuffer.NewUint32(componentCount, nil)
		}
		return m.Indices
	case PhaseNormals:
		if m.Normals == nil {
			m.Normals = databuffer.NewFloat32(componentCount, nil)
		}
		return m.Normals
	case PhaseColours:
		if m.Colours == nil {
			m.Colours = databuffer.NewUint32(componentCount, nil)
		}
		return m.Colours
	}
	return nil
}

// writeDecodedValues grows buf's backing slice as needed and writes the
// widened values at elementOffset; used by ReadData to assemble a
// resumable receive buffer out of successive chunk messages.
func writeDecodedValues(buf *databuffer.Buffer, elementOffset int, values []float64, componentCount int) {
	needed := (elementOffset + len(values)/componentCount) * componentCount
	switch buf.ElementType {
	case messages.DctFloat32:
		if len(buf.F32) < needed {
			grown := make([]float32, needed)
			copy(grown, buf.F32)
			buf.F32 = grown
		}
		for i, v := range values {
			buf.F32[elementOffset*componentCount+i] = float32(v)
		}
	case messages.DctUInt32:
		if len(buf.U32) < needed {
			grown := make([]uint32, needed)
			copy(grown, buf.U32)
			buf.U32 = grown
		}
		for i, v := range values {
			buf.U32[elementOffset*componentCount+i] = uint32(v)
		}
	}
}
