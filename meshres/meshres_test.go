package meshres

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tes-go/tes/databuffer"
	"github.com/tes-go/tes/packet"
)

func TestCreateRoundTrip(t *testing.T) {
	r := New(42, 3, 3, DrawTriangles, false)
	w := packet.NewWriter(0, uint16(MIDCreate), 64)
	require.NoError(t, r.WriteCreate(w))
	require.NoError(t, w.Finalise())

	pr, err := packet.NewReader(w.Bytes())
	require.NoError(t, err)
	got, err := ReadCreate(pr)
	require.NoError(t, err)
	require.Equal(t, r.MeshID, got.MeshID)
	require.Equal(t, r.VertexCount, got.VertexCount)
	require.Equal(t, r.IndexCount, got.IndexCount)
	require.Equal(t, r.DrawType, got.DrawType)
}

func TestTransferResumption(t *testing.T) {
	// Small mesh, tiny byte budget: several
	// Transfer calls needed, final call sets Complete.
	const vertCount = 40
	verts := make([]float32, vertCount*3)
	for i := range verts {
		verts[i] = float32(i)
	}
	idx := make([]uint32, 30)
	for i := range idx {
		idx[i] = uint32(i % vertCount)
	}

	r := New(7, vertCount, uint32(len(idx)), DrawTriangles, false)
	r.Vertices = databuffer.NewFloat32(3, verts)
	r.Indices = databuffer.NewUint32(1, idx)

	var progress Progress
	calls := 0
	for !progress.Complete {
		w := packet.NewWriter(0, uint16(progress.PhaseMessageID()), 64)
		require.NoError(t, r.Transfer(w, 64, &progress))
		require.False(t, progress.Failed)
		calls++
		require.Less(t, calls, 1000, "transfer did not converge")
	}
	require.Equal(t, PhaseDone, progress.Phase)
	require.Greater(t, calls, 1)
}

func TestTransferZeroByteLimitCompletesInOneCallPerPhase(t *testing.T) {
	r := New(1, 4, 0, DrawPoints, false)
	r.Vertices = databuffer.NewFloat32(3, []float32{0, 0, 0, 1, 1, 1, 2, 2, 2, 3, 3, 3})

	var progress Progress
	w := packet.NewWriter(0, uint16(progress.PhaseMessageID()), 4096)
	require.NoError(t, r.Transfer(w, 0, &progress))
	// byte_limit = 0 completes in one call regardless of
	// element count, since there is only one non-empty phase here.
	require.True(t, progress.Complete)
}

func TestCalculateNormalsTriangle(t *testing.T) {
	r := New(1, 3, 3, DrawTriangles, false)
	r.Vertices = databuffer.NewFloat32(3, []float32{0, 0, 0, 1, 0, 0, 0, 1, 0})
	r.Indices = databuffer.NewUint32(1, []uint32{0, 1, 2})

	r.CalculateNormals(false)
	require.NotNil(t, r.Normals)
	require.Equal(t, 3, r.Normals.Count())
	// Every vertex of a single triangle shares the same face normal,
	// pointing along +Z for this winding.
	require.InDelta(t, 0, r.Normals.At(0, 0), 1e-6)
	require.InDelta(t, 0, r.Normals.At(0, 1), 1e-6)
	require.InDelta(t, 1, r.Normals.At(0, 2), 1e-6)
}

func TestColourByAxis(t *testing.T) {
	r := New(1, 3, 0, DrawPoints, false)
	r.Vertices = databuffer.NewFloat32(3, []float32{0, 0, 0, 1, 0, 0, 2, 0, 0})
	r.ColourByAxis(0)
	require.NotNil(t, r.VertexColours)
	require.Equal(t, 3, r.VertexColours.Count())
}
