package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"math"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/require"
)

// discardLogger drops every record.
func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// packFloats encodes little-endian float32 values.
func packFloats(vals ...float32) []byte {
	out := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(v))
	}
	return out
}

// packUint16 encodes little-endian uint16 values.
func packUint16(vals ...uint16) []byte {
	out := make([]byte, 2*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint16(out[2*i:], v)
	}
	return out
}

// concat joins byte slices, padding each to a 4-byte boundary.
func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
		for len(out)%4 != 0 {
			out = append(out, 0)
		}
	}
	return out
}

// dataURI embeds bytes as a base64 data URI.
func dataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// makeGLB assembles a GLB container. A nil bin omits the BIN chunk.
func makeGLB(version uint32, jsonChunk, bin []byte) []byte {
	jsonChunk = append([]byte(nil), jsonChunk...)
	for len(jsonChunk)%4 != 0 {
		jsonChunk = append(jsonChunk, ' ')
	}
	bin = concat(bin)

	var body bytes.Buffer
	binary.Write(&body, binary.LittleEndian, glbChunkHeader{ChunkLength: uint32(len(jsonChunk)), ChunkType: glbChunkJSON})
	body.Write(jsonChunk)
	if bin != nil {
		binary.Write(&body, binary.LittleEndian, glbChunkHeader{ChunkLength: uint32(len(bin)), ChunkType: glbChunkBIN})
		body.Write(bin)
	}

	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, glbHeader{Magic: glbMagic, Version: version, Length: uint32(glbHeaderSize + body.Len())})
	out.Write(body.Bytes())
	return out.Bytes()
}

// decodeDocument unmarshals glTF JSON without any container checks.
func decodeDocument(t *testing.T, js string) *gltf.Document {
	t.Helper()
	var doc gltf.Document
	require.NoError(t, json.Unmarshal([]byte(js), &doc))
	return &doc
}

// parseDocument runs the parser over glTF JSON.
func parseDocument(t *testing.T, js string) gltfParser {
	t.Helper()
	p := newGLTFParser()
	require.NoError(t, p.Parse([]byte(js)))
	return p
}

// encodePNG renders a solid w x h image.
func encodePNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// triangleBuffer holds three positions followed by three ushort indices.
var triangleBuffer = concat(
	packFloats(0, 0, 0, 1, 0, 0, 0, 1, 0),
	packUint16(0, 1, 2),
)

// triangleJSON is a one-node, one-mesh document over triangleBuffer.
// The buffer URI is substituted with fmt verbs: %d byteLength, %s uri fragment.
const triangleJSON = `{
	"asset": {"version": "2.0", "generator": "unit"},
	"scene": 0,
	"scenes": [{"name": "main", "nodes": [0]}],
	"nodes": [{"name": "tri", "mesh": 0, "translation": [1, 2, 3]}],
	"meshes": [{"name": "triangle", "primitives": [{"attributes": {"POSITION": 0}, "indices": 1}]}],
	"accessors": [
		{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3", "min": [0, 0, 0], "max": [1, 1, 0]},
		{"bufferView": 1, "componentType": 5123, "count": 3, "type": "SCALAR"}
	],
	"bufferViews": [
		{"buffer": 0, "byteOffset": 0, "byteLength": 36},
		{"buffer": 0, "byteOffset": 36, "byteLength": 6}
	],
	"buffers": [{"byteLength": %d%s}]
}`
