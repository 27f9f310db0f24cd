// Package databuffer implements the strongly-typed, strided, optionally
// quantised array codec used by mesh and shape payloads (vertices,
// indices, colours, normals, UVs). A Buffer is a tagged union with one
// populated slice field per DataStreamType; the Owned bool plus a
// Duplicate() that upgrades to an owned copy distinguish borrowed from
// owned backing storage.
package databuffer

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/tes-go/tes/messages"
	"github.com/tes-go/tes/packet"
)

// Buffer is a typed, strided view of an array used to encode/decode the
// component streams carried by mesh resources and complex shapes.
type Buffer struct {
	// ComponentCount is the number of scalar components per logical
	// element (1-16): 3 for positions, 4 for colours, etc.
	ComponentCount int
	// Stride is the number of type-sized units between successive
	// elements; >= ComponentCount to allow alignment padding.
	Stride int
	// ElementType identifies which of the slices below is populated.
	ElementType messages.DataStreamType
	Owned       bool

	I8  []int8
	U8  []uint8
	I16 []int16
	U16 []uint16
	I32 []int32
	U32 []uint32
	I64 []int64
	U64 []uint64
	F32 []float32
	F64 []float64
}

var (
	// ErrUnrepresentable is returned when a value cannot be represented
	// in the target integer range for a packed write; writes never
	// silently clamp.
	ErrUnrepresentable = eris.New("databuffer: value not representable in target range")
	// ErrComponentMismatch is returned when a component message's element
	// type or component count disagrees with the resource's existing
	// buffer.
	ErrComponentMismatch = eris.New("databuffer: element type or component count mismatch")
)

func typeSize(t messages.DataStreamType) int {
	switch t {
	case messages.DctInt8, messages.DctUInt8:
		return 1
	case messages.DctInt16, messages.DctUInt16:
		return 2
	case messages.DctInt32, messages.DctUInt32, messages.DctFloat32:
		return 4
	case messages.DctInt64, messages.DctUInt64, messages.DctFloat64:
		return 8
	}
	return 0
}

// NewFloat32 wraps data (stride == componentCount, borrowed) as a
// DctFloat32 buffer.
func NewFloat32(componentCount int, data []float32) *Buffer {
	return &Buffer{ComponentCount: componentCount, Stride: componentCount, ElementType: messages.DctFloat32, F32: data}
}

// NewFloat64 wraps data as a DctFloat64 buffer.
func NewFloat64(componentCount int, data []float64) *Buffer {
	return &Buffer{ComponentCount: componentCount, Stride: componentCount, ElementType: messages.DctFloat64, F64: data}
}

// NewUint32 wraps data as a DctUInt32 buffer (e.g. triangle indices).
func NewUint32(componentCount int, data []uint32) *Buffer {
	return &Buffer{ComponentCount: componentCount, Stride: componentCount, ElementType: messages.DctUInt32, U32: data}
}

// NewUint8 wraps data as a DctUInt8 buffer (e.g. packed RGBA colour bytes).
func NewUint8(componentCount int, data []uint8) *Buffer {
	return &Buffer{ComponentCount: componentCount, Stride: componentCount, ElementType: messages.DctUInt8, U8: data}
}

// sliceLen returns the length of whichever slice is populated.
func (b *Buffer) sliceLen() int {
	switch b.ElementType {
	case messages.DctInt8:
		return len(b.I8)
	case messages.DctUInt8:
		return len(b.U8)
	case messages.DctInt16:
		return len(b.I16)
	case messages.DctUInt16:
		return len(b.U16)
	case messages.DctInt32:
		return len(b.I32)
	case messages.DctUInt32:
		return len(b.U32)
	case messages.DctInt64:
		return len(b.I64)
	case messages.DctUInt64:
		return len(b.U64)
	case messages.DctFloat32:
		return len(b.F32)
	case messages.DctFloat64:
		return len(b.F64)
	}
	return 0
}

// Count returns the number of logical elements (groups of ComponentCount
// scalars) currently stored.
func (b *Buffer) Count() int {
	if b.Stride == 0 {
		return 0
	}
	return b.sliceLen() / b.Stride
}

// At returns the componentIndex-th scalar of elementIndex, widened to
// float64 regardless of storage type. Used by normal calculation and
// colour-by-axis, which operate generically over whatever type a mesh
// happened to be sent as.
func (b *Buffer) At(elementIndex, componentIndex int) float64 {
	idx := elementIndex*b.Stride + componentIndex
	switch b.ElementType {
	case messages.DctInt8:
		return float64(b.I8[idx])
	case messages.DctUInt8:
		return float64(b.U8[idx])
	case messages.DctInt16:
		return float64(b.I16[idx])
	case messages.DctUInt16:
		return float64(b.U16[idx])
	case messages.DctInt32:
		return float64(b.I32[idx])
	case messages.DctUInt32:
		return float64(b.U32[idx])
	case messages.DctInt64:
		return float64(b.I64[idx])
	case messages.DctUInt64:
		return float64(b.U64[idx])
	case messages.DctFloat32:
		return float64(b.F32[idx])
	case messages.DctFloat64:
		return b.F64[idx]
	}
	return 0
}

// Duplicate returns a copy that owns its backing storage, upgrading a
// Borrowed view to Owned (copy-on-write).
func (b *Buffer) Duplicate() *Buffer {
	out := *b
	out.Owned = true
	switch b.ElementType {
	case messages.DctInt8:
		out.I8 = append([]int8(nil), b.I8...)
	case messages.DctUInt8:
		out.U8 = append([]uint8(nil), b.U8...)
	case messages.DctInt16:
		out.I16 = append([]int16(nil), b.I16...)
	case messages.DctUInt16:
		out.U16 = append([]uint16(nil), b.U16...)
	case messages.DctInt32:
		out.I32 = append([]int32(nil), b.I32...)
	case messages.DctUInt32:
		out.U32 = append([]uint32(nil), b.U32...)
	case messages.DctInt64:
		out.I64 = append([]int64(nil), b.I64...)
	case messages.DctUInt64:
		out.U64 = append([]uint64(nil), b.U64...)
	case messages.DctFloat32:
		out.F32 = append([]float32(nil), b.F32...)
	case messages.DctFloat64:
		out.F64 = append([]float64(nil), b.F64...)
	}
	return &out
}

// Write encodes up to byteLimit bytes worth of whole elements, starting at
// offset, as writeAsType (which may differ from b.ElementType for the
// float->packed conversions), and returns the number of elements written.
// quantisationUnit is required (and must be > 0) when writeAsType is one
// of the packed forms.
func (b *Buffer) Write(w *packet.Writer, offset int, writeAsType messages.DataStreamType, byteLimit int, quantisationUnit float64) (int, error) {
	total := b.Count()
	if offset > total {
		offset = total
	}
	remaining := total - offset

	elemSize, hasQuant, quantSize := wireElementLayout(writeAsType)
	headerLen := 4 + 2 + 1 + 1 + quantSize // offset+count+component_count+element_type+[quant]
	if byteLimit <= 0 {
		byteLimit = w.BytesRemaining()
	}
	avail := byteLimit - headerLen
	if avail < 0 {
		avail = 0
	}
	maxElems := avail / (elemSize * b.ComponentCount)
	n := remaining
	if n > maxElems {
		n = maxElems
	}
	if n < 0 {
		n = 0
	}

	if err := w.WriteUint32(uint32(offset)); err != nil {
		return 0, err
	}
	if err := w.WriteUint16(uint16(n)); err != nil {
		return 0, err
	}
	if err := w.WriteUint8(uint8(b.ComponentCount)); err != nil {
		return 0, err
	}
	if err := w.WriteUint8(uint8(writeAsType)); err != nil {
		return 0, err
	}
	if hasQuant {
		if quantisationUnit <= 0 {
			return 0, eris.New("databuffer: packed write requires quantisation_unit > 0")
		}
		if quantSize == 4 {
			if err := w.WriteFloat32(float32(quantisationUnit)); err != nil {
				return 0, err
			}
		} else {
			if err := w.WriteFloat64(quantisationUnit); err != nil {
				return 0, err
			}
		}
	}

	for i := 0; i < n; i++ {
		for c := 0; c < b.ComponentCount; c++ {
			v := b.At(offset+i, c)
			if err := writeScalarAs(w, writeAsType, v, quantisationUnit); err != nil {
				return i, err
			}
		}
	}
	return n, nil
}

// ElementSize returns the on-wire byte width of one scalar of t,
// including packed forms. ElementSize does not include the leading
// quantisation unit carried by the packed forms; use ElementLayout for
// that.
func ElementSize(t messages.DataStreamType) int {
	size, _, _ := wireElementLayout(t)
	return size
}

// ElementLayout reports the per-scalar wire width of t, whether it
// carries a leading quantisation unit, and that unit's width in bytes.
func ElementLayout(t messages.DataStreamType) (elemSize int, hasQuant bool, quantSize int) {
	return wireElementLayout(t)
}

// WriteScalar writes one scalar value widened from float64, honouring the
// packed-float forms the same way Buffer.Write does. Exposed so callers
// with a differently shaped wire envelope (see meshres) can reuse the
// same per-type pack/unpack rules.
func WriteScalar(w *packet.Writer, t messages.DataStreamType, v float64, unit float64) error {
	return writeScalarAs(w, t, v, unit)
}

// ReadScalar reads one scalar value, widened to float64, honouring the
// packed-float forms the same way Read does.
func ReadScalar(r *packet.Reader, t messages.DataStreamType, unit float64) (float64, error) {
	return readScalarAs(r, t, unit)
}

func wireElementLayout(t messages.DataStreamType) (elemSize int, hasQuant bool, quantSize int) {
	switch t {
	case messages.DctPackedFloat16:
		return 2, true, 4
	case messages.DctPackedFloat32:
		return 4, true, 8
	default:
		return typeSize(t), false, 0
	}
}

func writeScalarAs(w *packet.Writer, t messages.DataStreamType, v float64, unit float64) error {
	switch t {
	case messages.DctInt8:
		return w.WriteInt8(int8(v))
	case messages.DctUInt8:
		return w.WriteUint8(uint8(v))
	case messages.DctInt16:
		return w.WriteInt16(int16(v))
	case messages.DctUInt16:
		return w.WriteUint16(uint16(v))
	case messages.DctInt32:
		return w.WriteInt32(int32(v))
	case messages.DctUInt32:
		return w.WriteUint32(uint32(v))
	case messages.DctInt64:
		return w.WriteInt64(int64(v))
	case messages.DctUInt64:
		return w.WriteUint64(uint64(v))
	case messages.DctFloat32:
		return w.WriteFloat32(float32(v))
	case messages.DctFloat64:
		return w.WriteFloat64(v)
	case messages.DctPackedFloat16:
		packed := math.Round(v / unit)
		if packed < math.MinInt16 || packed > math.MaxInt16 {
			return ErrUnrepresentable
		}
		return w.WriteInt16(int16(packed))
	case messages.DctPackedFloat32:
		packed := math.Round(v / unit)
		if packed < math.MinInt32 || packed > math.MaxInt32 {
			return ErrUnrepresentable
		}
		return w.WriteInt32(int32(packed))
	}
	return eris.New("databuffer: unsupported element type")
}

// ReadResult is the decoded form of a single component chunk message.
type ReadResult struct {
	Offset         uint32
	Count          uint16
	ComponentCount uint8
	ElementType    messages.DataStreamType
	Values         []float64 // Count*ComponentCount scalars, widened to float64
}

// Read decodes one component chunk message: offset, count, component
// count, element type, an optional quantisation unit, and the packed
// elements, widening everything to float64 for the caller to re-pack into
// its own typed Buffer.
func Read(r *packet.Reader) (ReadResult, error) {
	offset, err := r.ReadUint32()
	if err != nil {
		return ReadResult{}, err
	}
	count, err := r.ReadUint16()
	if err != nil {
		return ReadResult{}, err
	}
	componentCount, err := r.ReadUint8()
	if err != nil {
		return ReadResult{}, err
	}
	elementType, err := r.ReadUint8()
	if err != nil {
		return ReadResult{}, err
	}
	et := messages.DataStreamType(elementType)

	var unit float64 = 1
	switch et {
	case messages.DctPackedFloat16:
		u, err := r.ReadFloat32()
		if err != nil {
			return ReadResult{}, err
		}
		unit = float64(u)
	case messages.DctPackedFloat32:
		u, err := r.ReadFloat64()
		if err != nil {
			return ReadResult{}, err
		}
		unit = u
	}

	total := int(count) * int(componentCount)
	values := make([]float64, total)
	for i := 0; i < total; i++ {
		v, err := readScalarAs(r, et, unit)
		if err != nil {
			return ReadResult{}, err
		}
		values[i] = v
	}
	return ReadResult{
		Offset:         offset,
		Count:          count,
		ComponentCount: componentCount,
		ElementType:    et,
		Values:         values,
	}, nil
}

func readScalarAs(r *packet.Reader, t messages.DataStreamType, unit float64) (float64, error) {
	switch t {
	case messages.DctInt8:
		v, err := r.ReadInt8()
		return float64(v), err
	case messages.DctUInt8:
		v, err := r.ReadUint8()
		return float64(v), err
	case messages.DctInt16:
		v, err := r.ReadInt16()
		return float64(v), err
	case messages.DctUInt16:
		v, err := r.ReadUint16()
		return float64(v), err
	case messages.DctInt32:
		v, err := r.ReadInt32()
		return float64(v), err
	case messages.DctUInt32:
		v, err := r.ReadUint32()
		return float64(v), err
	case messages.DctInt64:
		v, err := r.ReadInt64()
		return float64(v), err
	case messages.DctUInt64:
		v, err := r.ReadUint64()
		return float64(v), err
	case messages.DctFloat32:
		v, err := r.ReadFloat32()
		return float64(v), err
	case messages.DctFloat64:
		return r.ReadFloat64()
	case messages.DctPackedFloat16:
		v, err := r.ReadInt16()
		return float64(v) * unit, err
	case messages.DctPackedFloat32:
		v, err := r.ReadInt32()
		return float64(v) * unit, err
	}
	return 0, eris.New("databuffer: unsupported element type")
}
