package messages

import "github.com/tes-go/tes/packet"

// ObjectAttributes carries a shape instance's transform and appearance:
// colour, position, rotation (xyzw quaternion), and scale. Every
// component other than Colour is encoded as f32 unless the enclosing
// message's flags carry OFDoublePrecision, in which case it is encoded
// as f64; this struct always stores float64 internally and the
// precision is a pure wire concern selected by the doublePrecision
// argument to Write/Read.
type ObjectAttributes struct {
	Colour   uint32
	Position [3]float64
	Rotation [4]float64 // x, y, z, w
	Scale    [3]float64
}

// IdentityAttributes returns the attributes of an unscaled, unrotated
// object at the origin with an opaque white colour.
func IdentityAttributes() ObjectAttributes {
	return ObjectAttributes{
		Colour:   0xFFFFFFFF,
		Rotation: [4]float64{0, 0, 0, 1},
		Scale:    [3]float64{1, 1, 1},
	}
}

// Write encodes the attributes at f64 precision when doublePrecision is
// set, f32 otherwise.
func (a ObjectAttributes) Write(w *packet.Writer, doublePrecision bool) error {
	if err := w.WriteUint32(a.Colour); err != nil {
		return err
	}
	if doublePrecision {
		for _, v := range a.Position {
			if err := w.WriteFloat64(v); err != nil {
				return err
			}
		}
		for _, v := range a.Rotation {
			if err := w.WriteFloat64(v); err != nil {
				return err
			}
		}
		for _, v := range a.Scale {
			if err := w.WriteFloat64(v); err != nil {
				return err
			}
		}
		return nil
	}
	for _, v := range a.Position {
		if err := w.WriteFloat32(float32(v)); err != nil {
			return err
		}
	}
	for _, v := range a.Rotation {
		if err := w.WriteFloat32(float32(v)); err != nil {
			return err
		}
	}
	for _, v := range a.Scale {
		if err := w.WriteFloat32(float32(v)); err != nil {
			return err
		}
	}
	return nil
}

// Read decodes the attributes, honouring doublePrecision the same way
// Write does.
func (a *ObjectAttributes) Read(r *packet.Reader, doublePrecision bool) error {
	colour, err := r.ReadUint32()
	if err != nil {
		return err
	}
	a.Colour = colour

	readOne := func() (float64, error) {
		if doublePrecision {
			return r.ReadFloat64()
		}
		v, err := r.ReadFloat32()
		return float64(v), err
	}

	for i := range a.Position {
		v, err := readOne()
		if err != nil {
			return err
		}
		a.Position[i] = v
	}
	for i := range a.Rotation {
		v, err := readOne()
		if err != nil {
			return err
		}
		a.Rotation[i] = v
	}
	for i := range a.Scale {
		v, err := readOne()
		if err != nil {
			return err
		}
		a.Scale[i] = v
	}
	return nil
}
