package shapes

import (
	"github.com/tes-go/tes/messages"
	"github.com/tes-go/tes/packet"
)

// Text is the shared implementation of Text2D and Text3D: object
// attributes plus a length-prefixed UTF-8 string. Text2D additionally
// uses the Text2DFWorldSpace object flag bit to select whether Position
// is in screen or world space; Text3D uses Text3DFScreenFacing to request
// billboarding. Both are carried in Header.Flags and are otherwise
// opaque to this package.
type Text struct {
	Header
	Attributes messages.ObjectAttributes
	Text       string

	routingID uint16
}

// NewText2D constructs a screen or world space text label shape.
func NewText2D() *Text { return &Text{Attributes: messages.IdentityAttributes(), routingID: uint16(messages.RIDText2D)} }

// NewText3D constructs a world space, optionally screen-facing text label shape.
func NewText3D() *Text { return &Text{Attributes: messages.IdentityAttributes(), routingID: uint16(messages.RIDText3D)} }

func (t *Text) RoutingID() uint16 { return t.routingID }
func (t *Text) IsComplex() bool   { return false }

func (t *Text) Clone() Shape {
	out := *t
	return &out
}

func (t *Text) WriteCreate(w *packet.Writer) error {
	if err := t.Header.write(w); err != nil {
		return err
	}
	if err := t.Attributes.Write(w, t.Header.doublePrecision()); err != nil {
		return err
	}
	textBytes := []byte(t.Text)
	if err := w.WriteUint16(uint16(len(textBytes))); err != nil {
		return err
	}
	_, err := w.WriteRaw(textBytes)
	return err
}

func (t *Text) ReadCreate(r *packet.Reader) error {
	if err := t.Header.read(r); err != nil {
		return err
	}
	if err := t.Attributes.Read(r, t.Header.doublePrecision()); err != nil {
		return err
	}
	n, err := r.ReadUint16()
	if err != nil {
		return err
	}
	buf := make([]byte, n)
	if _, err := r.ReadRaw(buf); err != nil {
		return err
	}
	t.Text = string(buf)
	return nil
}

func (t *Text) WriteUpdate(w *packet.Writer, fields messages.UpdateFlag) error {
	return writeUpdate(w, t.ID, t.Flags, t.Attributes, fields)
}

func (t *Text) ReadUpdate(r *packet.Reader) error {
	id, err := readUpdate(r, &t.Attributes)
	if err != nil {
		return err
	}
	t.ID = id
	return nil
}

func (t *Text) WriteDestroy(w *packet.Writer) error { return writeDestroyID(w, t.ID) }

func (t *Text) ReadDestroy(r *packet.Reader) error {
	id, err := readDestroyID(r)
	if err != nil {
		return err
	}
	t.ID = id
	return nil
}
