package shapes

import (
	"github.com/tes-go/tes/meshres"
	"github.com/tes-go/tes/messages"
	"github.com/tes-go/tes/packet"
)

// PointCloud renders a registered mesh resource (see package meshres) as
// a point set, with an optional per-point radius/size and an attribute
// selection mask controlling whether the resource's normal/colour
// streams are drawn. Unlike MeshShape, point data itself lives in the
// referenced mesh resource, not inline in this shape.
type PointCloud struct {
	Header
	Attributes messages.ObjectAttributes
	MeshID     uint32
	PointSize  float32
	PointAttrs messages.PointsAttributeFlag

	// Resource, when set on the sending side, pins the live resource for
	// refcounted transfer and supplies MeshID.
	Resource *meshres.Resource
}

// NewPointCloud constructs a point cloud referencing meshID.
func NewPointCloud(meshID uint32) *PointCloud {
	return &PointCloud{Attributes: messages.IdentityAttributes(), MeshID: meshID, PointSize: 1}
}

func (p *PointCloud) RoutingID() uint16 { return uint16(messages.RIDPointCloud) }
func (p *PointCloud) IsComplex() bool   { return false }

func (p *PointCloud) Clone() Shape {
	out := *p
	return &out
}

func (p *PointCloud) WriteCreate(w *packet.Writer) error {
	if err := p.Header.write(w); err != nil {
		return err
	}
	if err := p.Attributes.Write(w, p.Header.doublePrecision()); err != nil {
		return err
	}
	id := p.MeshID
	if p.Resource != nil {
		id = p.Resource.MeshID
	}
	if err := w.WriteUint32(id); err != nil {
		return err
	}
	if err := w.WriteFloat32(p.PointSize); err != nil {
		return err
	}
	return w.WriteUint16(uint16(p.PointAttrs))
}

func (p *PointCloud) ReadCreate(r *packet.Reader) error {
	if err := p.Header.read(r); err != nil {
		return err
	}
	if err := p.Attributes.Read(r, p.Header.doublePrecision()); err != nil {
		return err
	}
	meshID, err := r.ReadUint32()
	if err != nil {
		return err
	}
	size, err := r.ReadFloat32()
	if err != nil {
		return err
	}
	attrs, err := r.ReadUint16()
	if err != nil {
		return err
	}
	p.MeshID = meshID
	p.PointSize = size
	p.PointAttrs = messages.PointsAttributeFlag(attrs)
	return nil
}

func (p *PointCloud) WriteUpdate(w *packet.Writer, fields messages.UpdateFlag) error {
	return writeUpdate(w, p.ID, p.Flags, p.Attributes, fields)
}

func (p *PointCloud) ReadUpdate(r *packet.Reader) error {
	id, err := readUpdate(r, &p.Attributes)
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}

func (p *PointCloud) WriteDestroy(w *packet.Writer) error { return writeDestroyID(w, p.ID) }

func (p *PointCloud) ReadDestroy(r *packet.Reader) error {
	id, err := readDestroyID(r)
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}

// Resources returns the live mesh resource backing this cloud, if one is
// attached on the sending side.
func (p *PointCloud) Resources() []*meshres.Resource {
	if p.Resource == nil {
		return nil
	}
	return []*meshres.Resource{p.Resource}
}
