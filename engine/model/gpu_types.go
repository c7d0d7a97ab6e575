package model

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-gltf/common"
)

// GPUVertex is the interleaved vertex layout a runtime uploads for a static primitive.
// Size: 64 bytes (std430 aligned, no padding required).
type GPUVertex struct {
	Position [3]float32 // offset  0
	Normal   [3]float32 // offset 12
	TexCoord [2]float32 // offset 24
	Color    [4]float32 // offset 32
	Tangent  [4]float32 // offset 48
}

// Size returns the size of the GPUVertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUVertex struct into a little-endian byte buffer.
//
// Returns:
//   - []byte: 64-byte buffer ready for GPU upload.
func (g *GPUVertex) Marshal() []byte {
	buf := make([]byte, 0, 64)
	put := func(v float32) {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}
	for _, v := range g.Position {
		put(v)
	}
	for _, v := range g.Normal {
		put(v)
	}
	for _, v := range g.TexCoord {
		put(v)
	}
	for _, v := range g.Color {
		put(v)
	}
	for _, v := range g.Tangent {
		put(v)
	}
	return buf
}

// Interleave packs a primitive's vertex streams into GPUVertex records.
// Missing streams are filled with neutral values: white color, zero normal and tangent.
//
// Parameters:
//   - texCoordSet: the TEXCOORD_n set to place in TexCoord
//
// Returns:
//   - []GPUVertex: one record per vertex
func (p *Primitive) Interleave(texCoordSet int) []GPUVertex {
	a := &p.Attributes
	out := make([]GPUVertex, a.Len())
	var uvs [][2]float32
	if texCoordSet >= 0 && texCoordSet < len(a.TexCoords) {
		uvs = a.TexCoords[texCoordSet]
	}
	for i := range out {
		v := &out[i]
		v.Position = a.Positions[i]
		v.Color = [4]float32{1, 1, 1, 1}
		if i < len(a.Normals) {
			v.Normal = a.Normals[i]
		}
		if i < len(uvs) {
			v.TexCoord = uvs[i]
		}
		if i < len(a.Colors) {
			v.Color = a.Colors[i]
		}
		if i < len(a.Tangents) {
			v.Tangent = a.Tangents[i]
		}
	}
	return out
}

// IndexData returns the primitive's index buffer as bytes for GPU upload.
// The returned slice shares memory with Indices.
//
// Returns:
//   - []byte: the index data, or nil for non-indexed geometry
func (p *Primitive) IndexData() []byte {
	return common.SliceToBytes(p.Indices)
}
