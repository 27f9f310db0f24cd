package shapes

import (
	"github.com/tes-go/tes/messages"
	"github.com/tes-go/tes/packet"
)

// Simple implements the shapes whose entire sub-record is a fixed run of
// trailing float32 scalars written after the object attributes in Create
// only (sphere/box/plane/star have none; cone/cylinder/capsule/arrow have
// one: an angle or a length). Update and Destroy never touch Extra;
// geometry parameters are fixed at creation.
type Simple struct {
	Header
	Attributes messages.ObjectAttributes
	Extra      []float32

	routingID  uint16
	extraCount int
}

// NewSimple constructs a Simple shape for routingID with extraCount
// trailing float32 fields.
func NewSimple(routingID uint16, extraCount int) *Simple {
	return &Simple{
		Attributes: messages.IdentityAttributes(),
		Extra:      make([]float32, extraCount),
		routingID:  routingID,
		extraCount: extraCount,
	}
}

func (s *Simple) RoutingID() uint16 { return s.routingID }
func (s *Simple) IsComplex() bool   { return false }

func (s *Simple) Clone() Shape {
	out := *s
	out.Extra = append([]float32(nil), s.Extra...)
	return &out
}

func (s *Simple) WriteCreate(w *packet.Writer) error {
	if err := s.Header.write(w); err != nil {
		return err
	}
	if err := s.Attributes.Write(w, s.Header.doublePrecision()); err != nil {
		return err
	}
	for _, v := range s.Extra {
		if err := w.WriteFloat32(v); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simple) ReadCreate(r *packet.Reader) error {
	if err := s.Header.read(r); err != nil {
		return err
	}
	if err := s.Attributes.Read(r, s.Header.doublePrecision()); err != nil {
		return err
	}
	s.Extra = make([]float32, s.extraCount)
	for i := range s.Extra {
		v, err := r.ReadFloat32()
		if err != nil {
			return err
		}
		s.Extra[i] = v
	}
	return nil
}

func (s *Simple) WriteUpdate(w *packet.Writer, fields messages.UpdateFlag) error {
	return writeUpdate(w, s.ID, s.Flags, s.Attributes, fields)
}

func (s *Simple) ReadUpdate(r *packet.Reader) error {
	id, err := readUpdate(r, &s.Attributes)
	if err != nil {
		return err
	}
	s.ID = id
	return nil
}

func (s *Simple) WriteDestroy(w *packet.Writer) error { return writeDestroyID(w, s.ID) }

func (s *Simple) ReadDestroy(r *packet.Reader) error {
	id, err := readDestroyID(r)
	if err != nil {
		return err
	}
	s.ID = id
	return nil
}

// Constructors for every fixed-geometry shape in the built-in set.
func NewSphere() *Simple   { return NewSimple(uint16(messages.RIDSphere), 0) }
func NewBox() *Simple      { return NewSimple(uint16(messages.RIDBox), 0) }
func NewPlane() *Simple    { return NewSimple(uint16(messages.RIDPlane), 0) }
func NewStar() *Simple     { return NewSimple(uint16(messages.RIDStar), 0) }
func NewPose() *Simple     { return NewSimple(uint16(messages.RIDPose), 0) }
func NewCone() *Simple     { return NewSimple(uint16(messages.RIDCone), 1) }     // Extra[0] = apex angle (radians)
func NewCylinder() *Simple { return NewSimple(uint16(messages.RIDCylinder), 1) } // Extra[0] = length
func NewCapsule() *Simple  { return NewSimple(uint16(messages.RIDCapsule), 1) }  // Extra[0] = length
func NewArrow() *Simple    { return NewSimple(uint16(messages.RIDArrow), 1) }    // Extra[0] = length
