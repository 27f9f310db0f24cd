package shapes

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tes-go/tes/databuffer"
	"github.com/tes-go/tes/messages"
	"github.com/tes-go/tes/packet"
)

func newTestVertexBuffer() *databuffer.Buffer {
	return databuffer.NewFloat32(3, []float32{
		0, 0, 0,
		1, 0, 0,
		0, 1, 0,
		1, 1, 0,
	})
}

func newTestIndexBuffer() *databuffer.Buffer {
	return databuffer.NewUint32(1, []uint32{0, 1, 2, 1, 3, 2})
}

func TestSphereCreateRoundTrip(t *testing.T) {
	s := NewSphere()
	s.ID = 0 // transient
	s.Category = 3
	s.Attributes.Position = [3]float64{1, 2, 3}
	s.Attributes.Colour = 0xFFFFFFFF

	w := packet.NewWriter(s.RoutingID(), uint16(messages.OIDCreate), 128)
	require.NoError(t, s.WriteCreate(w))
	require.NoError(t, w.Finalise())

	r, err := packet.NewReader(w.Bytes())
	require.NoError(t, err)
	out := NewSphere()
	require.NoError(t, out.ReadCreate(r))
	require.True(t, out.IsTransient())
	require.Equal(t, s.Category, out.Category)
	require.InDeltaSlice(t, s.Attributes.Position[:], out.Attributes.Position[:], 1e-5)
}

func TestConeCarriesExtraAngle(t *testing.T) {
	c := NewCone()
	c.ID = 5
	c.Extra[0] = 0.78539816 // 45 degrees

	w := packet.NewWriter(c.RoutingID(), uint16(messages.OIDCreate), 128)
	require.NoError(t, c.WriteCreate(w))
	require.NoError(t, w.Finalise())

	r, err := packet.NewReader(w.Bytes())
	require.NoError(t, err)
	out := NewCone()
	require.NoError(t, out.ReadCreate(r))
	require.InDelta(t, c.Extra[0], out.Extra[0], 1e-6)
}

func TestUpdateAppliesOnlySelectedFields(t *testing.T) {
	box := NewBox()
	box.ID = 9
	box.Attributes.Position = [3]float64{1, 1, 1}
	box.Attributes.Colour = 0x112233FF

	w := packet.NewWriter(box.RoutingID(), uint16(messages.OIDUpdate), 128)
	require.NoError(t, box.WriteUpdate(w, messages.UFPosition))
	require.NoError(t, w.Finalise())

	target := NewBox()
	target.Attributes.Colour = 0xAABBCCDD // pre-existing colour must survive
	r, err := packet.NewReader(w.Bytes())
	require.NoError(t, err)
	require.NoError(t, target.ReadUpdate(r))

	require.InDeltaSlice(t, box.Attributes.Position[:], target.Attributes.Position[:], 1e-5)
	require.Equal(t, uint32(0xAABBCCDD), target.Attributes.Colour, "colour field was not selected, must be preserved")
}

func TestUpdateWithNoSelectionReplacesAllAttributes(t *testing.T) {
	// An update with an empty field selection is a full replacement of
	// position, rotation, scale and colour.
	box := NewBox()
	box.ID = 9
	box.Attributes.Position = [3]float64{1, 2, 3}
	box.Attributes.Scale = [3]float64{2, 2, 2}
	box.Attributes.Colour = 0x112233FF

	w := packet.NewWriter(box.RoutingID(), uint16(messages.OIDUpdate), 128)
	require.NoError(t, box.WriteUpdate(w, 0))
	require.NoError(t, w.Finalise())

	target := NewBox()
	target.Attributes.Position = [3]float64{9, 9, 9}
	target.Attributes.Colour = 0xAABBCCDD
	r, err := packet.NewReader(w.Bytes())
	require.NoError(t, err)
	require.NoError(t, target.ReadUpdate(r))

	require.InDeltaSlice(t, box.Attributes.Position[:], target.Attributes.Position[:], 1e-5)
	require.InDeltaSlice(t, box.Attributes.Scale[:], target.Attributes.Scale[:], 1e-5)
	require.Equal(t, uint32(0x112233FF), target.Attributes.Colour)
}

func TestDestroyRoundTrip(t *testing.T) {
	s := NewSphere()
	s.ID = 42
	w := packet.NewWriter(s.RoutingID(), uint16(messages.OIDDestroy), 16)
	require.NoError(t, s.WriteDestroy(w))
	require.NoError(t, w.Finalise())

	r, err := packet.NewReader(w.Bytes())
	require.NoError(t, err)
	out := NewSphere()
	require.NoError(t, out.ReadDestroy(r))
	require.Equal(t, uint32(42), out.ID)
}

func TestTextCreateRoundTrip(t *testing.T) {
	txt := NewText3D()
	txt.ID = 1
	txt.Text = "hello world"

	w := packet.NewWriter(txt.RoutingID(), uint16(messages.OIDCreate), 256)
	require.NoError(t, txt.WriteCreate(w))
	require.NoError(t, w.Finalise())

	r, err := packet.NewReader(w.Bytes())
	require.NoError(t, err)
	out := NewText3D()
	require.NoError(t, out.ReadCreate(r))
	require.Equal(t, "hello world", out.Text)
}

func TestMeshShapeIsComplexAndStreamsInPhases(t *testing.T) {
	m := NewMeshShape()
	m.ID = 7
	m.DrawType = DrawTriangles
	m.Vertices = newTestVertexBuffer()
	m.Indices = newTestIndexBuffer()
	require.True(t, m.IsComplex())

	w := packet.NewWriter(m.RoutingID(), uint16(messages.OIDCreate), 64)
	require.NoError(t, m.WriteCreate(w))
	require.NoError(t, w.Finalise())

	r, err := packet.NewReader(w.Bytes())
	require.NoError(t, err)
	out := NewMeshShape()
	require.NoError(t, out.ReadCreate(r))
	require.Equal(t, m.vertexCount(), out.vertexCount())
	require.Equal(t, m.indexCount(), out.indexCount())

	var writeProgress DataProgress
	var readProgress DataProgress
	target := &MeshShape{Header: Header{ID: 7}}
	for !writeProgress.Complete {
		dw := packet.NewWriter(m.RoutingID(), uint16(messages.OIDData), 512)
		require.NoError(t, m.WriteData(dw, &writeProgress, 512))
		require.NoError(t, dw.Finalise())

		dr, err := packet.NewReader(dw.Bytes())
		require.NoError(t, err)
		require.NoError(t, target.ReadData(dr, &readProgress))
	}
	require.True(t, readProgress.Complete)
	require.Equal(t, m.vertexCount(), target.Vertices.Count())
	for i := 0; i < m.vertexCount()*3; i++ {
		require.InDelta(t, m.Vertices.F32[i], target.Vertices.F32[i], 1e-5)
	}
	require.Equal(t, m.Indices.U32, target.Indices.U32)
}
