package meshres

import (
	"math"

	"github.com/tes-go/tes/colour"
	"github.com/tes-go/tes/databuffer"
)

// colourFrom and colourTo bound the ColourByAxis gradient.
var (
	colourFrom = colour.New(128, 255, 0)
	colourTo   = colour.New(120, 0, 255)
)

// CalculateNormals computes per-vertex face-normal-accumulated normals
// for a triangle mesh: each triangle's face normal is added into each of
// its three vertices' accumulators, then every accumulator is
// normalised. A no-op for any draw type other than DrawTriangles, or if
// vertices/indices are missing. force overwrites existing normals; if
// force is false and Normals is already populated this is a no-op.
func (r *Resource) CalculateNormals(force bool) {
	if !force && r.Normals != nil && r.Normals.Count() > 0 {
		return
	}
	if r.DrawType != DrawTriangles {
		return
	}
	if r.Vertices == nil || r.Indices == nil {
		return
	}

	vertexCount := r.Vertices.Count()
	accum := make([][3]float64, vertexCount)

	indexCount := r.Indices.Count()
	for i := 0; i+2 < indexCount; i += 3 {
		i0 := int(r.Indices.At(i+0, 0))
		i1 := int(r.Indices.At(i+1, 0))
		i2 := int(r.Indices.At(i+2, 0))

		v0 := vertexAt(r.Vertices, i0)
		v1 := vertexAt(r.Vertices, i1)
		v2 := vertexAt(r.Vertices, i2)

		n := faceNormal(v0, v1, v2)
		accum[i0] = addVec(accum[i0], n)
		accum[i1] = addVec(accum[i1], n)
		accum[i2] = addVec(accum[i2], n)
	}

	normals := make([]float32, vertexCount*3)
	for i, n := range accum {
		n = normalise(n)
		normals[i*3+0] = float32(n[0])
		normals[i*3+1] = float32(n[1])
		normals[i*3+2] = float32(n[2])
	}
	r.Normals = databuffer.NewFloat32(3, normals)
}

// ColourByAxis fills VertexColours with a linear lerp between two fixed
// colours (128,255,0 -> 120,0,255) over the extent of vertex axis (0=X,
// 1=Y, 2=Z), clamped to [0,2]. A no-op if VertexColours is already
// populated or there are no vertices.
func (r *Resource) ColourByAxis(axis int) {
	if r.VertexColours != nil && r.VertexColours.Count() > 0 {
		return
	}
	if axis < 0 {
		axis = 0
	}
	if axis > 2 {
		axis = 2
	}
	if r.Vertices == nil || r.Vertices.Count() == 0 {
		return
	}

	vertexCount := r.Vertices.Count()
	minV := r.Vertices.At(0, axis)
	maxV := minV
	for i := 1; i < vertexCount; i++ {
		v := r.Vertices.At(i, axis)
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}

	rangeInv := 0.0
	if maxV != minV {
		rangeInv = 1.0 / (maxV - minV)
	}

	colours := make([]uint32, vertexCount)
	colours[0] = colourFrom.Uint32()
	for i := 1; i < vertexCount; i++ {
		factor := float32((r.Vertices.At(i, axis) - minV) * rangeInv)
		colours[i] = colour.Lerp(colourFrom, colourTo, factor).Uint32()
	}
	r.VertexColours = databuffer.NewUint32(1, colours)
}

func vertexAt(b *databuffer.Buffer, i int) [3]float64 {
	return [3]float64{b.At(i, 0), b.At(i, 1), b.At(i, 2)}
}

func faceNormal(a, b, c [3]float64) [3]float64 {
	u := subVec(b, a)
	v := subVec(c, a)
	return crossVec(u, v)
}

func subVec(a, b [3]float64) [3]float64 {
	return [3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func addVec(a, b [3]float64) [3]float64 {
	return [3]float64{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

func crossVec(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func normalise(v [3]float64) [3]float64 {
	lenSq := v[0]*v[0] + v[1]*v[1] + v[2]*v[2]
	if lenSq <= 0 {
		return v
	}
	inv := 1.0 / math.Sqrt(lenSq)
	return [3]float64{v[0] * inv, v[1] * inv, v[2] * inv}
}
