package shapes

import (
	"github.com/tes-go/tes/meshres"
	"github.com/tes-go/tes/messages"
	"github.com/tes-go/tes/packet"
)

// MeshSet renders one or more registered mesh resources (see package
// meshres) at a shared transform, each with its own sub-transform
// offset. It is a simple shape: the part list is fixed at creation and
// small enough to fit one packet (a scene typically references a handful
// of meshes per instance).
type MeshSet struct {
	Header
	Attributes messages.ObjectAttributes
	Parts      []MeshSetPart
}

// MeshSetPart references one mesh resource and its local transform
// relative to the MeshSet's own attributes. Resource, when set on the
// sending side, pins the live resource for refcounted transfer and
// supplies MeshID; a decoded part carries the id only.
type MeshSetPart struct {
	MeshID   uint32
	Position [3]float32
	Rotation [4]float32
	Scale    [3]float32

	Resource *meshres.Resource
}

// NewMeshSet constructs an empty mesh set.
func NewMeshSet() *MeshSet { return &MeshSet{Attributes: messages.IdentityAttributes()} }

func (m *MeshSet) RoutingID() uint16 { return uint16(messages.RIDMeshSet) }
func (m *MeshSet) IsComplex() bool   { return false }

func (m *MeshSet) Clone() Shape {
	out := *m
	out.Parts = append([]MeshSetPart(nil), m.Parts...)
	return &out
}

func (m *MeshSet) WriteCreate(w *packet.Writer) error {
	if err := m.Header.write(w); err != nil {
		return err
	}
	if err := m.Attributes.Write(w, m.Header.doublePrecision()); err != nil {
		return err
	}
	if err := w.WriteUint16(uint16(len(m.Parts))); err != nil {
		return err
	}
	for _, p := range m.Parts {
		id := p.MeshID
		if p.Resource != nil {
			id = p.Resource.MeshID
		}
		if err := w.WriteUint32(id); err != nil {
			return err
		}
		for _, v := range p.Position {
			if err := w.WriteFloat32(v); err != nil {
				return err
			}
		}
		for _, v := range p.Rotation {
			if err := w.WriteFloat32(v); err != nil {
				return err
			}
		}
		for _, v := range p.Scale {
			if err := w.WriteFloat32(v); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *MeshSet) ReadCreate(r *packet.Reader) error {
	if err := m.Header.read(r); err != nil {
		return err
	}
	if err := m.Attributes.Read(r, m.Header.doublePrecision()); err != nil {
		return err
	}
	n, err := r.ReadUint16()
	if err != nil {
		return err
	}
	m.Parts = make([]MeshSetPart, n)
	for i := range m.Parts {
		meshID, err := r.ReadUint32()
		if err != nil {
			return err
		}
		var p MeshSetPart
		p.MeshID = meshID
		for j := range p.Position {
			v, err := r.ReadFloat32()
			if err != nil {
				return err
			}
			p.Position[j] = v
		}
		for j := range p.Rotation {
			v, err := r.ReadFloat32()
			if err != nil {
				return err
			}
			p.Rotation[j] = v
		}
		for j := range p.Scale {
			v, err := r.ReadFloat32()
			if err != nil {
				return err
			}
			p.Scale[j] = v
		}
		m.Parts[i] = p
	}
	return nil
}

func (m *MeshSet) WriteUpdate(w *packet.Writer, fields messages.UpdateFlag) error {
	return writeUpdate(w, m.ID, m.Flags, m.Attributes, fields)
}

func (m *MeshSet) ReadUpdate(r *packet.Reader) error {
	id, err := readUpdate(r, &m.Attributes)
	if err != nil {
		return err
	}
	m.ID = id
	return nil
}

func (m *MeshSet) WriteDestroy(w *packet.Writer) error { return writeDestroyID(w, m.ID) }

func (m *MeshSet) ReadDestroy(r *packet.Reader) error {
	id, err := readDestroyID(r)
	if err != nil {
		return err
	}
	m.ID = id
	return nil
}

// Resources returns the live mesh resources attached to this set's parts,
// for refcounted transfer on Create.
func (m *MeshSet) Resources() []*meshres.Resource {
	var out []*meshres.Resource
	for _, p := range m.Parts {
		if p.Resource != nil {
			out = append(out, p.Resource)
		}
	}
	return out
}
