// Package shapes implements the shape codec: per-shape routing ids, the
// common Create/Update/Destroy/Data record shapes, and the concrete shape
// types (sphere, box, cone, cylinder, capsule, plane, star, arrow, pose,
// text2d, text3d, mesh-shape, mesh-set, point-cloud): a tagged set of
// concrete types implementing one Shape interface.
package shapes

import (
	"github.com/rotisserie/eris"
	"github.com/tes-go/tes/meshres"
	"github.com/tes-go/tes/messages"
	"github.com/tes-go/tes/packet"
)

// ErrNotComplex is returned when WriteData/ReadData is called on a shape
// whose IsComplex is false.
var ErrNotComplex = eris.New("shapes: shape is not complex, it has no data phase")

// Header is the part of a Create record common to every shape: the
// instance id (0 = transient), the category it belongs to, object flags,
// and a reserved word kept for wire alignment.
type Header struct {
	ID       uint32
	Category uint16
	Flags    uint16
	Reserved uint16
}

// IsTransient reports whether this instance is auto-destroyed at the next
// frame commit.
func (h Header) IsTransient() bool { return h.ID == 0 }

// InstanceID returns the shape's instance id; every concrete shape gains
// this through Header embedding so callers holding a Shape can key on it.
func (h Header) InstanceID() uint32 { return h.ID }

// ObjectFlags returns the shape's object flag word.
func (h Header) ObjectFlags() messages.ObjectFlag { return messages.ObjectFlag(h.Flags) }

func (h Header) write(w *packet.Writer) error {
	if err := w.WriteUint32(h.ID); err != nil {
		return err
	}
	if err := w.WriteUint16(h.Category); err != nil {
		return err
	}
	if err := w.WriteUint16(h.Flags); err != nil {
		return err
	}
	return w.WriteUint16(h.Reserved)
}

func (h *Header) read(r *packet.Reader) error {
	id, err := r.ReadUint32()
	if err != nil {
		return err
	}
	category, err := r.ReadUint16()
	if err != nil {
		return err
	}
	flags, err := r.ReadUint16()
	if err != nil {
		return err
	}
	reserved, err := r.ReadUint16()
	if err != nil {
		return err
	}
	h.ID, h.Category, h.Flags, h.Reserved = id, category, flags, reserved
	return nil
}

func (h Header) doublePrecision() bool {
	return messages.ObjectFlag(h.Flags)&messages.OFDoublePrecision != 0
}

// Shape is implemented by every concrete shape type. Create/Update/
// Destroy move a shape through its lifecycle; Data is only meaningful for
// complex shapes (IsComplex() == true), whose sub-record doesn't fit in
// one packet.
type Shape interface {
	RoutingID() uint16
	WriteCreate(w *packet.Writer) error
	ReadCreate(r *packet.Reader) error
	WriteUpdate(w *packet.Writer, fields messages.UpdateFlag) error
	ReadUpdate(r *packet.Reader) error
	WriteDestroy(w *packet.Writer) error
	ReadDestroy(r *packet.Reader) error
	IsComplex() bool
	Clone() Shape
}

// ComplexShape extends Shape for shapes whose sub-record doesn't fit in
// one packet (IsComplex() == true): after Create, their remaining content
// streams as a sequence of Data packets driven by a DataProgress record
// the caller loops on.
type ComplexShape interface {
	Shape
	WriteData(w *packet.Writer, progress *DataProgress, byteLimit int) error
	ReadData(r *packet.Reader, progress *DataProgress) error
}

// ResourceProvider is implemented by shapes that reference out-of-band
// mesh resources (MeshSet, PointCloud). A connection references each
// returned resource on Create and releases on Destroy, unless the shape
// carries OFSkipResources.
type ResourceProvider interface {
	Resources() []*meshres.Resource
}

// writeUpdate emits the update record shared by every shape: instance id,
// the shape flags combined with the update-field selection, then the full
// attribute block. A non-empty selection marks the record UPDATE_MODE so
// the reader applies only the selected sub-fields; an empty selection is
// a full attribute replacement.
func writeUpdate(w *packet.Writer, id uint32, shapeFlags uint16, attrs messages.ObjectAttributes, fields messages.UpdateFlag) error {
	combined := shapeFlags | uint16(fields)
	if fields != 0 {
		combined |= uint16(messages.UFUpdateMode)
	}
	if err := w.WriteUint32(id); err != nil {
		return err
	}
	if err := w.WriteUint16(combined); err != nil {
		return err
	}
	doublePrecision := messages.ObjectFlag(shapeFlags)&messages.OFDoublePrecision != 0
	return attrs.Write(w, doublePrecision)
}

// readUpdate decodes the shared update record and applies it to attrs:
// a full replacement of position/rotation/scale/colour unless the flag
// word carries UPDATE_MODE, in which case only the selected sub-fields
// are overwritten and the rest are preserved.
func readUpdate(r *packet.Reader, attrs *messages.ObjectAttributes) (id uint32, err error) {
	id, err = r.ReadUint32()
	if err != nil {
		return 0, err
	}
	flags, err := r.ReadUint16()
	if err != nil {
		return 0, err
	}
	uf := messages.UpdateFlag(flags)
	doublePrecision := messages.ObjectFlag(flags)&messages.OFDoublePrecision != 0

	var full messages.ObjectAttributes
	if err := full.Read(r, doublePrecision); err != nil {
		return 0, err
	}
	if uf&messages.UFUpdateMode == 0 {
		*attrs = full
		return id, nil
	}
	if uf&messages.UFPosition != 0 {
		attrs.Position = full.Position
	}
	if uf&messages.UFRotation != 0 {
		attrs.Rotation = full.Rotation
	}
	if uf&messages.UFScale != 0 {
		attrs.Scale = full.Scale
	}
	if uf&messages.UFColour != 0 {
		attrs.Colour = full.Colour
	}
	return id, nil
}

// writeDestroy and readDestroy are shared by every shape: Destroy carries
// only the instance id.
func writeDestroyID(w *packet.Writer, id uint32) error { return w.WriteUint32(id) }

func readDestroyID(r *packet.Reader) (uint32, error) { return r.ReadUint32() }
