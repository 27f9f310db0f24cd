// Package colour implements the RGBA colour value used throughout shape
// and category messages, its 32-bit wire packing, a handful of named web
// colours, and cyclic colour sets used to assign per-category or
// per-object colours deterministically.
package colour

import "math"

// Colour is an 8-bit-per-channel RGBA value.
type Colour struct {
	R, G, B, A uint8
}

// New builds a Colour from byte channels, defaulting alpha to opaque.
func New(r, g, b uint8, a ...uint8) Colour {
	c := Colour{R: r, G: g, B: b, A: 255}
	if len(a) > 0 {
		c.A = a[0]
	}
	return c
}

// FromFloat builds a Colour from [0,1] float channels.
func FromFloat(r, g, b, a float32) Colour {
	return Colour{R: toByte(r), G: toByte(g), B: toByte(b), A: toByte(a)}
}

// FromUint32 unpacks a logical 0xRRGGBBAA wire value.
func FromUint32(v uint32) Colour {
	return Colour{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: uint8(v),
	}
}

// Uint32 packs the colour as a logical 0xRRGGBBAA value, the form carried
// on the wire and in DataBuffer colour streams.
func (c Colour) Uint32() uint32 {
	return uint32(c.R)<<24 | uint32(c.G)<<16 | uint32(c.B)<<8 | uint32(c.A)
}

// WithAlpha returns a copy of c with a replaced alpha channel.
func (c Colour) WithAlpha(a uint8) Colour {
	c.A = a
	return c
}

func toByte(f float32) uint8 {
	if f <= 0 {
		return 0
	}
	if f >= 1 {
		return 255
	}
	return uint8(f * 255.0)
}

func (c Colour) Rf() float32 { return float32(c.R) / 255.0 }
func (c Colour) Gf() float32 { return float32(c.G) / 255.0 }
func (c Colour) Bf() float32 { return float32(c.B) / 255.0 }
func (c Colour) Af() float32 { return float32(c.A) / 255.0 }

// Adjust lightens (factor > 1) or darkens (factor < 1) a colour in HSV
// space, leaving alpha untouched.
func (c Colour) Adjust(factor float32) Colour {
	h, s, v := RGBToHSV(c.Rf(), c.Gf(), c.Bf())
	v = float32(math.Max(0, math.Min(float64(v*factor), 1)))
	r, g, b := HSVToRGB(h, s, v)
	return FromFloat(r, g, b, c.Af())
}

// Lighten returns a colour 1.5x brighter in HSV space.
func (c Colour) Lighten() Colour { return c.Adjust(1.5) }

// Darken returns a colour half as bright in HSV space.
func (c Colour) Darken() Colour { return c.Adjust(0.5) }

// Lerp linearly interpolates between from and to, including alpha.
func Lerp(from, to Colour, factor float32) Colour {
	if factor <= 0 {
		return from
	}
	if factor >= 1 {
		return to
	}
	mix := func(a, b uint8) uint8 {
		return uint8(float32(a) + (float32(b)-float32(a))*factor)
	}
	return Colour{R: mix(from.R, to.R), G: mix(from.G, to.G), B: mix(from.B, to.B), A: mix(from.A, to.A)}
}

// RGBToHSV converts [0,1] RGB channels to hue [0,360), saturation and
// value [0,1].
func RGBToHSV(r, g, b float32) (hue, saturation, value float32) {
	maxC := max3(r, g, b)
	minC := min3(r, g, b)
	delta := maxC - minC
	value = maxC
	if maxC > 0 {
		saturation = delta / maxC
	}
	if delta == 0 {
		return 0, saturation, value
	}
	switch maxC {
	case r:
		hue = 60 * float32(math.Mod(float64((g-b)/delta), 6))
	case g:
		hue = 60 * ((b-r)/delta + 2)
	default:
		hue = 60 * ((r-g)/delta + 4)
	}
	if hue < 0 {
		hue += 360
	}
	return hue, saturation, value
}

// HSVToRGB converts hue [0,360), saturation and value [0,1] to [0,1] RGB
// channels.
func HSVToRGB(hue, saturation, value float32) (r, g, b float32) {
	c := value * saturation
	hp := float64(hue) / 60
	x := c * float32(1-math.Abs(math.Mod(hp, 2)-1))
	var r1, g1, b1 float32
	switch {
	case hp < 1:
		r1, g1, b1 = c, x, 0
	case hp < 2:
		r1, g1, b1 = x, c, 0
	case hp < 3:
		r1, g1, b1 = 0, c, x
	case hp < 4:
		r1, g1, b1 = 0, x, c
	case hp < 5:
		r1, g1, b1 = x, 0, c
	default:
		r1, g1, b1 = c, 0, x
	}
	m := value - c
	return r1 + m, g1 + m, b1 + m
}

func max3(a, b, c float32) float32 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}

func min3(a, b, c float32) float32 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
