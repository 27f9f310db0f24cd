package colour

// Named web-safe colours, a representative subset of the common
// W3C/X11 names.
var (
	Black   = New(0, 0, 0)
	White   = New(255, 255, 255)
	Grey    = New(128, 128, 128)
	DimGrey = New(105, 105, 105)
	Silver  = New(192, 192, 192)

	Red     = New(255, 0, 0)
	Crimson = New(220, 20, 60)
	FireBrick = New(178, 34, 34)
	DarkRed = New(139, 0, 0)

	OrangeRed = New(255, 69, 0)
	Orange    = New(255, 165, 0)
	Gold      = New(255, 215, 0)

	Yellow       = New(255, 255, 0)
	LemonChiffon = New(255, 250, 205)

	Green      = New(0, 128, 0)
	Lime       = New(0, 255, 0)
	ForestGreen = New(34, 139, 34)
	OliveDrab  = New(107, 142, 35)
	SeaGreen   = New(46, 139, 87)

	Cyan      = New(0, 255, 255)
	Turquoise = New(64, 224, 208)
	Teal      = New(0, 128, 128)

	Blue        = New(0, 0, 255)
	SkyBlue     = New(135, 206, 235)
	SteelBlue   = New(70, 130, 180)
	RoyalBlue   = New(65, 105, 225)
	Navy        = New(0, 0, 128)
	MidnightBlue = New(25, 25, 112)

	Purple     = New(128, 0, 128)
	Violet     = New(238, 130, 238)
	Magenta    = New(255, 0, 255)
	Indigo     = New(75, 0, 130)

	Pink    = New(255, 192, 203)
	HotPink = New(255, 105, 180)

	Brown   = New(165, 42, 42)
	Sienna  = New(160, 82, 45)
	Wheat   = New(245, 222, 179)
)

// PredefinedSet identifies one of the built-in cyclic colour sets.
type PredefinedSet int

const (
	SetWebSafe PredefinedSet = iota
	SetStandard
	SetGrey
)

// Set is a cyclic sequence of colours; indexing wraps via modulus and an
// empty set returns transparent black, so indexing is always valid.
type Set struct {
	colours []Colour
}

// NewSet builds a Set from an explicit colour list.
func NewSet(colours ...Colour) Set {
	return Set{colours: colours}
}

// Len returns the number of colours in the set.
func (s Set) Len() int { return len(s.colours) }

// Cycle returns the colour at number, wrapped into range. An empty set
// always yields zero-alpha black.
func (s Set) Cycle(number int) Colour {
	if len(s.colours) == 0 {
		return Colour{}
	}
	idx := number % len(s.colours)
	if idx < 0 {
		idx += len(s.colours)
	}
	return s.colours[idx]
}

var (
	standardSet = NewSet(Red, Green, Blue, Yellow, Cyan, Magenta, Orange, Purple, Pink, Brown, Teal, Grey)
	greySet     = NewSet(New(32, 32, 32), New(96, 96, 96), New(160, 160, 160), New(224, 224, 224))
	webSafeSet  = NewSet(Black, White, Red, Green, Blue, Yellow, Cyan, Magenta, Silver, Grey, Navy, Purple,
		Teal, Olive, Maroon, Lime)

	// Olive and Maroon are exported like the other named colours; within
	// this package only the web-safe set uses them.
	Olive  = New(128, 128, 0)
	Maroon = New(128, 0, 0)
)

// Predefined returns one of the built-in colour sets by name.
func Predefined(name PredefinedSet) Set {
	switch name {
	case SetStandard:
		return standardSet
	case SetGrey:
		return greySet
	default:
		return webSafeSet
	}
}
