package model

import (
	"github.com/go-gl/mathgl/mgl32"
)

// GenerateNormals fills Normals with smooth, area-weighted vertex normals when the primitive has none.
// Triangle lists, strips and fans are handled. Vertices touched by no triangle get +Y.
//
// Returns:
//   - bool: true if normals were generated
func (p *Primitive) GenerateNormals() bool {
	a := &p.Attributes
	if len(a.Normals) > 0 || !p.Topology.IsTriangles() {
		return false
	}

	n := a.Len()
	accum := make([]mgl32.Vec3, n)
	p.eachTriangle(func(i0, i1, i2 uint32) {
		p0, p1, p2 := mgl32.Vec3(a.Positions[i0]), mgl32.Vec3(a.Positions[i1]), mgl32.Vec3(a.Positions[i2])
		// Unnormalized cross product: length is twice the triangle area.
		face := p1.Sub(p0).Cross(p2.Sub(p0))
		accum[i0] = accum[i0].Add(face)
		accum[i1] = accum[i1].Add(face)
		accum[i2] = accum[i2].Add(face)
	})

	a.Normals = make([][3]float32, n)
	for i, v := range accum {
		if v.Len() < 1e-6 {
			a.Normals[i] = [3]float32{0, 1, 0}
			continue
		}
		a.Normals[i] = v.Normalize()
	}
	return true
}

// GenerateTangents fills Tangents from UV gradients when the primitive has none.
// Tangents are Gram-Schmidt orthonormalized against the normals; W carries handedness.
// Requires normals and the given TEXCOORD set on a triangle topology.
//
// Parameters:
//   - texCoordSet: the TEXCOORD_n set that defines tangent space
//
// Returns:
//   - bool: true if tangents were generated
func (p *Primitive) GenerateTangents(texCoordSet int) bool {
	a := &p.Attributes
	if len(a.Tangents) > 0 || len(a.Normals) == 0 || !p.Topology.IsTriangles() ||
		texCoordSet < 0 || texCoordSet >= len(a.TexCoords) {
		return false
	}
	uvs := a.TexCoords[texCoordSet]

	n := a.Len()
	tan := make([]mgl32.Vec3, n)
	btan := make([]mgl32.Vec3, n)
	p.eachTriangle(func(i0, i1, i2 uint32) {
		p0 := mgl32.Vec3(a.Positions[i0])
		e1 := mgl32.Vec3(a.Positions[i1]).Sub(p0)
		e2 := mgl32.Vec3(a.Positions[i2]).Sub(p0)

		uv0 := mgl32.Vec2(uvs[i0])
		d1 := mgl32.Vec2(uvs[i1]).Sub(uv0)
		d2 := mgl32.Vec2(uvs[i2]).Sub(uv0)

		det := d1[0]*d2[1] - d1[1]*d2[0]
		if det == 0 {
			return
		}
		r := 1 / det
		t := e1.Mul(d2[1]).Sub(e2.Mul(d1[1])).Mul(r)
		b := e2.Mul(d1[0]).Sub(e1.Mul(d2[0])).Mul(r)

		for _, idx := range [3]uint32{i0, i1, i2} {
			tan[idx] = tan[idx].Add(t)
			btan[idx] = btan[idx].Add(b)
		}
	})

	a.Tangents = make([][4]float32, n)
	for i := range n {
		normal := mgl32.Vec3(a.Normals[i])
		ortho := tan[i].Sub(normal.Mul(normal.Dot(tan[i])))
		if ortho.Len() < 1e-6 {
			a.Tangents[i] = [4]float32{1, 0, 0, 1}
			continue
		}
		ortho = ortho.Normalize()
		w := float32(1)
		if normal.Cross(ortho).Dot(btan[i]) < 0 {
			w = -1
		}
		a.Tangents[i] = ortho.Vec4(w)
	}
	return true
}

// eachTriangle calls fn with the vertex indices of every complete triangle whose
// indices are in range, expanding strips and fans. Odd strip triangles swap their
// first two vertices so every triangle keeps the same winding.
func (p *Primitive) eachTriangle(fn func(i0, i1, i2 uint32)) {
	n := uint32(p.Attributes.Len())
	count := len(p.Indices)
	vertex := func(i int) uint32 { return p.Indices[i] }
	if p.Indices == nil {
		count = int(n)
		vertex = func(i int) uint32 { return uint32(i) }
	}

	emit := func(a, b, c int) {
		i0, i1, i2 := vertex(a), vertex(b), vertex(c)
		if i0 >= n || i1 >= n || i2 >= n {
			return
		}
		fn(i0, i1, i2)
	}

	switch p.Topology {
	case TopologyTriangleStrip:
		for i := 0; i+2 < count; i++ {
			if i%2 == 0 {
				emit(i, i+1, i+2)
			} else {
				emit(i+1, i, i+2)
			}
		}
	case TopologyTriangleFan:
		for i := 1; i+1 < count; i++ {
			emit(0, i, i+1)
		}
	default:
		for i := 0; i+2 < count; i += 3 {
			emit(i, i+1, i+2)
		}
	}
}
