// Package meshres implements the mesh resource codec: a stateful,
// reference-counted, multi-phase transfer of vertex/index/colour/normal/UV
// streams identified by a mesh_id, distinct from the inline per-shape
// MeshShape in package shapes.
package meshres

import (
	"github.com/rotisserie/eris"
	"github.com/tes-go/tes/databuffer"
	"github.com/tes-go/tes/messages"
	"github.com/tes-go/tes/packet"
)

// MessageID enumerates message ids under RIDMesh.
type MessageID uint16

const (
	MIDInvalid MessageID = iota
	MIDDestroy
	MIDCreate
	MIDVertex
	MIDIndex
	MIDVertexColour
	MIDNormal
	MIDUV
	MIDSetMaterial
	MIDRedefine
	MIDFinalise
)

// CreateFlag controls MeshCreate/MeshRedefine encoding.
type CreateFlag uint16

const (
	CreateFNone            CreateFlag = 0
	CreateFDoublePrecision CreateFlag = 1 << 0
)

// FinaliseFlag controls post-receive processing at MIDFinalise.
type FinaliseFlag uint16

const (
	FinaliseFNone             FinaliseFlag = 0
	FinaliseFCalculateNormals FinaliseFlag = 1 << 0
	// FinaliseFColourByAxis requests a colour-by-axis fill; decoders that
	// want it call Resource.ColourByAxis explicitly as a post-step rather
	// than acting on the wire flag alone.
	FinaliseFColourByAxis FinaliseFlag = 1 << 1
)

// DrawType selects mesh topology.
type DrawType uint8

const (
	DrawPoints DrawType = iota
	DrawLines
	DrawTriangles
	DrawVoxels
)

var errNoBuffer = eris.New("meshres: no buffer for requested component")

// Phase enumerates the ordered component-transfer phases the pump (and
// the read-path accumulator) step through.
type Phase int

const (
	PhaseVertex Phase = iota
	PhaseIndex
	PhaseVertexColour
	PhaseNormal
	PhaseUV
	PhaseDone
)

var phaseOrder = [...]Phase{PhaseVertex, PhaseIndex, PhaseVertexColour, PhaseNormal, PhaseUV}

// PhaseForMessage maps a component message id to its transfer phase.
func PhaseForMessage(id MessageID) (Phase, bool) {
	switch id {
	case MIDVertex:
		return PhaseVertex, true
	case MIDIndex:
		return PhaseIndex, true
	case MIDVertexColour:
		return PhaseVertexColour, true
	case MIDNormal:
		return PhaseNormal, true
	case MIDUV:
		return PhaseUV, true
	}
	return PhaseDone, false
}

func (p Phase) messageID() MessageID {
	switch p {
	case PhaseVertex:
		return MIDVertex
	case PhaseIndex:
		return MIDIndex
	case PhaseVertexColour:
		return MIDVertexColour
	case PhaseNormal:
		return MIDNormal
	case PhaseUV:
		return MIDUV
	}
	return MIDInvalid
}

// Resource is a mutable, in-progress or finalised mesh resource. A single
// Resource instance represents the state accepted for one mesh_id; see
// Registry (package resources) for the ref-counted map keyed by id, and
// handler.Mesh for the REDEFINE pending/current split.
type Resource struct {
	MeshID      uint32
	Flags       CreateFlag
	DrawType    DrawType
	Attributes  messages.ObjectAttributes
	VertexCount uint32
	IndexCount  uint32

	Vertices       *databuffer.Buffer
	Indices        *databuffer.Buffer
	VertexColours  *databuffer.Buffer
	Normals        *databuffer.Buffer
	UVs            *databuffer.Buffer

	// Ready is set once a MIDFinalise message has been processed.
	Ready bool
}

// New constructs an empty resource ready to receive component streams.
func New(meshID uint32, vertexCount, indexCount uint32, drawType DrawType, doublePrecision bool) *Resource {
	flags := CreateFNone
	if doublePrecision {
		flags = CreateFDoublePrecision
	}
	return &Resource{
		MeshID:      meshID,
		Flags:       flags,
		DrawType:    drawType,
		Attributes:  messages.IdentityAttributes(),
		VertexCount: vertexCount,
		IndexCount:  indexCount,
	}
}

func (r *Resource) doublePrecision() bool {
	return r.Flags&CreateFDoublePrecision != 0
}

func (r *Resource) bufferForPhase(p Phase) *databuffer.Buffer {
	switch p {
	case PhaseVertex:
		return r.Vertices
	case PhaseIndex:
		return r.Indices
	case PhaseVertexColour:
		return r.VertexColours
	case PhaseNormal:
		return r.Normals
	case PhaseUV:
		return r.UVs
	}
	return nil
}

// Clone produces a deep copy, used by Redefine to derive a pending
// resource from the current accepted one without mutating it in place.
func (r *Resource) Clone() *Resource {
	out := *r
	out.Ready = false
	if r.Vertices != nil {
		out.Vertices = r.Vertices.Duplicate()
	}
	if r.Indices != nil {
		out.Indices = r.Indices.Duplicate()
	}
	if r.VertexColours != nil {
		out.VertexColours = r.VertexColours.Duplicate()
	}
	if r.Normals != nil {
		out.Normals = r.Normals.Duplicate()
	}
	if r.UVs != nil {
		out.UVs = r.UVs.Duplicate()
	}
	return &out
}

// WriteCreate emits the MIDCreate message: mesh_id, counts, flags, draw
// type, attributes.
func (r *Resource) WriteCreate(w *packet.Writer) error {
	if err := w.WriteUint32(r.MeshID); err != nil {
		return err
	}
	if err := w.WriteUint32(r.VertexCount); err != nil {
		return err
	}
	if err := w.WriteUint32(r.IndexCount); err != nil {
		return err
	}
	if err := w.WriteUint16(uint16(r.Flags)); err != nil {
		return err
	}
	if err := w.WriteUint8(uint8(r.DrawType)); err != nil {
		return err
	}
	return r.Attributes.Write(w, r.doublePrecision())
}

// ReadCreate decodes a MIDCreate (or MIDRedefine, same layout) message
// into a fresh Resource.
func ReadCreate(r *packet.Reader) (*Resource, error) {
	meshID, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	vertexCount, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	indexCount, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	flags, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	drawType, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	res := &Resource{
		MeshID:      meshID,
		VertexCount: vertexCount,
		IndexCount:  indexCount,
		Flags:       CreateFlag(flags),
		DrawType:    DrawType(drawType),
	}
	if err := res.Attributes.Read(r, res.doublePrecision()); err != nil {
		return nil, err
	}
	return res, nil
}

// WriteDestroy emits the MIDDestroy message (mesh_id only).
func WriteDestroy(w *packet.Writer, meshID uint32) error { return w.WriteUint32(meshID) }

// ReadDestroy decodes a MIDDestroy message.
func ReadDestroy(r *packet.Reader) (uint32, error) { return r.ReadUint32() }

// WriteFinalise emits the MIDFinalise message: mesh_id and flags.
func WriteFinalise(w *packet.Writer, meshID uint32, flags FinaliseFlag) error {
	if err := w.WriteUint32(meshID); err != nil {
		return err
	}
	return w.WriteUint16(uint16(flags))
}

// ReadFinalise decodes a MIDFinalise message.
func ReadFinalise(r *packet.Reader) (meshID uint32, flags FinaliseFlag, err error) {
	meshID, err = r.ReadUint32()
	if err != nil {
		return 0, 0, err
	}
	f, err := r.ReadUint16()
	if err != nil {
		return 0, 0, err
	}
	return meshID, FinaliseFlag(f), nil
}

// ApplyComponent merges a decoded component chunk (see databuffer.Read)
// into the buffer for phase, growing and creating it as needed. Used by
// both the read-path accumulator and tests exercising component
// resumability directly.
func (r *Resource) ApplyComponent(phase Phase, res databuffer.ReadResult) error {
	componentCount := int(res.ComponentCount)
	buf := r.ensureBuffer(phase, componentCount, res.ElementType)
	if buf == nil {
		return errNoBuffer
	}
	writeDecoded(buf, int(res.Offset), res.Values, componentCount)
	return nil
}

func (r *Resource) ensureBuffer(phase Phase, componentCount int, elementType messages.DataStreamType) *databuffer.Buffer {
	newBuf := func() *databuffer.Buffer {
		switch elementType {
		case messages.DctFloat64:
			return databuffer.NewFloat64(componentCount, nil)
		case messages.DctUInt8:
			return databuffer.NewUint8(componentCount, nil)
		case messages.DctUInt32, messages.DctPackedFloat32:
			if phase == PhaseIndex {
				return databuffer.NewUint32(componentCount, nil)
			}
			return databuffer.NewFloat32(componentCount, nil)
		default:
			return databuffer.NewFloat32(componentCount, nil)
		}
	}
	switch phase {
	case PhaseVertex:
		if r.Vertices == nil {
			r.Vertices = newBuf()
		}
		return r.Vertices
	case PhaseIndex:
		if r.Indices == nil {
			r.Indices = databuffer.NewUint32(componentCount, nil)
		}
		return r.Indices
	case PhaseVertexColour:
		if r.VertexColours == nil {
			r.VertexColours = databuffer.NewUint32(componentCount, nil)
		}
		return r.VertexColours
	case PhaseNormal:
		if r.Normals == nil {
			r.Normals = newBuf()
		}
		return r.Normals
	case PhaseUV:
		if r.UVs == nil {
			r.UVs = databuffer.NewFloat32(componentCount, nil)
		}
		return r.UVs
	}
	return nil
}

func writeDecoded(buf *databuffer.Buffer, elementOffset int, values []float64, componentCount int) {
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
	case messages.DctFloat64:
		if len(buf.F64) < needed {
			grown := make([]float64, needed)
			copy(grown, buf.F64)
			buf.F64 = grown
		}
		for i, v := range values {
			buf.F64[elementOffset*componentCount+i] = v
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
	case messages.DctUInt8:
		if len(buf.U8) < needed {
			grown := make([]uint8, needed)
			copy(grown, buf.U8)
			buf.U8 = grown
		}
		for i, v := range values {
			buf.U8[elementOffset*componentCount+i] = uint8(v)
		}
	}
}
