package colour

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUint32RoundTrip(t *testing.T) {
	c := New(0x11, 0x22, 0x33, 0x44)
	require.Equal(t, uint32(0x11223344), c.Uint32())
	require.Equal(t, c, FromUint32(0x11223344))
}

func TestLerpEndpoints(t *testing.T) {
	require.Equal(t, Black, Lerp(Black, White, 0))
	require.Equal(t, White, Lerp(Black, White, 1))
	mid := Lerp(Black, White, 0.5)
	require.InDelta(t, 127, mid.R, 1)
}

func TestHSVRoundTrip(t *testing.T) {
	r, g, b := 0.2, 0.6, 0.9
	h, s, v := RGBToHSV(float32(r), float32(g), float32(b))
	r2, g2, b2 := HSVToRGB(h, s, v)
	require.InDelta(t, r, r2, 0.01)
	require.InDelta(t, g, g2, 0.01)
	require.InDelta(t, b, b2, 0.01)
}

func TestLightenDarken(t *testing.T) {
	c := New(100, 100, 100)
	lighter := c.Lighten()
	darker := c.Darken()
	_, _, v0 := RGBToHSV(c.Rf(), c.Gf(), c.Bf())
	_, _, vLight := RGBToHSV(lighter.Rf(), lighter.Gf(), lighter.Bf())
	_, _, vDark := RGBToHSV(darker.Rf(), darker.Gf(), darker.Bf())
	require.Greater(t, vLight, v0)
	require.Less(t, vDark, v0)
}

func TestSetCycleWrapsAndHandlesEmpty(t *testing.T) {
	s := NewSet(Red, Green, Blue)
	require.Equal(t, Red, s.Cycle(0))
	require.Equal(t, Red, s.Cycle(3))
	require.Equal(t, Blue, s.Cycle(-1))

	var empty Set
	require.Equal(t, Colour{}, empty.Cycle(5))
}

func TestPredefinedSets(t *testing.T) {
	require.Greater(t, Predefined(SetStandard).Len(), 0)
	require.Greater(t, Predefined(SetGrey).Len(), 0)
	require.Greater(t, Predefined(SetWebSafe).Len(), 0)
}
