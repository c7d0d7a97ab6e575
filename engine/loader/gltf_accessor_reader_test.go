package loader

import (
	"fmt"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// accessorDoc wraps accessor and buffer view JSON in a document over a single buffer of n bytes.
func accessorDoc(n int, bufferViews, accessors string) string {
	return fmt.Sprintf(`{
		"asset": {"version": "2.0"},
		"buffers": [{"byteLength": %d}],
		"bufferViews": %s,
		"accessors": %s
	}`, n, bufferViews, accessors)
}

func TestReadVec3Interleaved(t *testing.T) {
	// Two vertices of position + 4 bytes padding, stride 16.
	buf := concat(
		packFloats(1, 2, 3, 0),
		packFloats(4, 5, 6),
	)
	doc := decodeDocument(t, accessorDoc(len(buf),
		`[{"buffer": 0, "byteLength": 28, "byteStride": 16}]`,
		`[{"bufferView": 0, "componentType": 5126, "count": 2, "type": "VEC3"}]`))

	got, err := newGLTFAccessorReader(doc, [][]byte{buf}).ReadVec3(0)
	require.NoError(t, err)
	assert.Equal(t, [][3]float32{{1, 2, 3}, {4, 5, 6}}, got)
}

func TestReadWithByteOffset(t *testing.T) {
	buf := packFloats(9, 9, 1, 2, 3, 4)
	doc := decodeDocument(t, accessorDoc(len(buf),
		`[{"buffer": 0, "byteOffset": 4, "byteLength": 20}]`,
		`[{"bufferView": 0, "byteOffset": 4, "componentType": 5126, "count": 2, "type": "VEC2"}]`))

	got, err := newGLTFAccessorReader(doc, [][]byte{buf}).ReadVec2(0)
	require.NoError(t, err)
	assert.Equal(t, [][2]float32{{1, 2}, {3, 4}}, got)
}

func TestReadNormalizedColor(t *testing.T) {
	buf := []byte{255, 0, 51, 255, 0, 255, 0, 0}
	doc := decodeDocument(t, accessorDoc(len(buf),
		`[{"buffer": 0, "byteLength": 8}]`,
		`[{"bufferView": 0, "componentType": 5121, "normalized": true, "count": 2, "type": "VEC4"}]`))

	got, err := newGLTFAccessorReader(doc, [][]byte{buf}).ReadColor(0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.InDeltaSlice(t, []float32{1, 0, 0.2, 1}, got[0][:], 1e-6)
	assert.InDeltaSlice(t, []float32{0, 1, 0, 0}, got[1][:], 1e-6)
}

func TestReadColorExpandsRGB(t *testing.T) {
	buf := packFloats(0.5, 0.25, 1)
	doc := decodeDocument(t, accessorDoc(len(buf),
		`[{"buffer": 0, "byteLength": 12}]`,
		`[{"bufferView": 0, "componentType": 5126, "count": 1, "type": "VEC3"}]`))

	got, err := newGLTFAccessorReader(doc, [][]byte{buf}).ReadColor(0)
	require.NoError(t, err)
	assert.Equal(t, [][4]float32{{0.5, 0.25, 1, 1}}, got)
}

func TestReadNormalizedSignedShort(t *testing.T) {
	buf := packUint16(0x8000, 0x7FFF)
	doc := decodeDocument(t, accessorDoc(len(buf),
		`[{"buffer": 0, "byteLength": 4}]`,
		`[{"bufferView": 0, "componentType": 5122, "normalized": true, "count": 1, "type": "VEC2"}]`))

	got, err := newGLTFAccessorReader(doc, [][]byte{buf}).ReadVec2(0)
	require.NoError(t, err)
	assert.Equal(t, [][2]float32{{-1, 1}}, got)
}

func TestReadIndices(t *testing.T) {
	buf := []byte{0, 1, 2, 2}
	doc := decodeDocument(t, accessorDoc(len(buf),
		`[{"buffer": 0, "byteLength": 4}]`,
		`[
			{"bufferView": 0, "componentType": 5121, "count": 4, "type": "SCALAR"},
			{"bufferView": 0, "componentType": 5126, "count": 1, "type": "SCALAR"}
		]`))
	r := newGLTFAccessorReader(doc, [][]byte{buf})

	got, err := r.ReadIndices(0)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1, 2, 2}, got)

	_, err = r.ReadIndices(1)
	assert.ErrorIs(t, err, ErrUnsupportedAccessor)
}

func TestReadJoints(t *testing.T) {
	buf := packUint16(1, 2, 3, 400)
	doc := decodeDocument(t, accessorDoc(len(buf),
		`[{"buffer": 0, "byteLength": 8}]`,
		`[{"bufferView": 0, "componentType": 5123, "count": 1, "type": "VEC4"}]`))

	got, err := newGLTFAccessorReader(doc, [][]byte{buf}).ReadJoints(0)
	require.NoError(t, err)
	assert.Equal(t, [][4]uint32{{1, 2, 3, 400}}, got)
}

func TestReadMat4(t *testing.T) {
	m := mgl32.Translate3D(1, 2, 3)
	buf := packFloats(m[:]...)
	doc := decodeDocument(t, accessorDoc(len(buf),
		`[{"buffer": 0, "byteLength": 64}]`,
		`[{"bufferView": 0, "componentType": 5126, "count": 1, "type": "MAT4"}]`))

	got, err := newGLTFAccessorReader(doc, [][]byte{buf}).ReadMat4(0)
	require.NoError(t, err)
	assert.Equal(t, []mgl32.Mat4{m}, got)
}

func TestSparseOverZeros(t *testing.T) {
	buf := concat(
		packUint16(1),
		packFloats(7, 8, 9),
	)
	doc := decodeDocument(t, accessorDoc(len(buf),
		`[{"buffer": 0, "byteLength": 2}, {"buffer": 0, "byteOffset": 4, "byteLength": 12}]`,
		`[{"componentType": 5126, "count": 3, "type": "VEC3", "sparse": {
			"count": 1,
			"indices": {"bufferView": 0, "componentType": 5123},
			"values": {"bufferView": 1}
		}}]`))

	got, err := newGLTFAccessorReader(doc, [][]byte{buf}).ReadVec3(0)
	require.NoError(t, err)
	assert.Equal(t, [][3]float32{{0, 0, 0}, {7, 8, 9}, {0, 0, 0}}, got)
}

func TestZeroFilledAccessorWithinAllowance(t *testing.T) {
	doc := decodeDocument(t, accessorDoc(0, `[]`, `[{"componentType": 5126, "count": 3, "type": "VEC2"}]`))

	got, err := newGLTFAccessorReader(doc, [][]byte{{}}).ReadVec2(0)
	require.NoError(t, err)
	assert.Equal(t, [][2]float32{{}, {}, {}}, got)
}

func TestSparseOverBase(t *testing.T) {
	buf := concat(
		packFloats(1, 2, 3),
		[]byte{0, 2},
		packFloats(10, 30),
	)
	doc := decodeDocument(t, accessorDoc(len(buf),
		`[
			{"buffer": 0, "byteLength": 12},
			{"buffer": 0, "byteOffset": 12, "byteLength": 2},
			{"buffer": 0, "byteOffset": 16, "byteLength": 8}
		]`,
		`[{"bufferView": 0, "componentType": 5126, "count": 3, "type": "SCALAR", "sparse": {
			"count": 2,
			"indices": {"bufferView": 1, "componentType": 5121},
			"values": {"bufferView": 2}
		}}]`))

	v, err := newGLTFAccessorReader(doc, [][]byte{buf}).View(0)
	require.NoError(t, err)
	var got []float32
	for _, c := range v.Floats() {
		got = append(got, c[0])
	}
	assert.Equal(t, []float32{10, 2, 30}, got)
}

func TestSparseRejectsUnorderedIndices(t *testing.T) {
	buf := concat(
		[]byte{2, 1},
		packFloats(5, 6),
	)
	doc := decodeDocument(t, accessorDoc(len(buf),
		`[{"buffer": 0, "byteLength": 2}, {"buffer": 0, "byteOffset": 4, "byteLength": 8}]`,
		`[{"componentType": 5126, "count": 3, "type": "SCALAR", "sparse": {
			"count": 2,
			"indices": {"bufferView": 0, "componentType": 5121},
			"values": {"bufferView": 1}
		}}]`))

	_, err := newGLTFAccessorReader(doc, [][]byte{buf}).View(0)
	assert.ErrorIs(t, err, ErrAccessorBounds)
}

func TestFloatsStopsEarly(t *testing.T) {
	buf := packFloats(1, 2, 3)
	doc := decodeDocument(t, accessorDoc(len(buf),
		`[{"buffer": 0, "byteLength": 12}]`,
		`[{"bufferView": 0, "componentType": 5126, "count": 3, "type": "SCALAR"}]`))

	v, err := newGLTFAccessorReader(doc, [][]byte{buf}).View(0)
	require.NoError(t, err)
	assert.Equal(t, 3, v.Len())
	assert.Equal(t, 1, v.Arity())

	visited := 0
	for i := range v.Floats() {
		visited++
		if i == 1 {
			break
		}
	}
	assert.Equal(t, 2, visited)
}

func TestAccessorErrors(t *testing.T) {
	buf := packFloats(1, 2, 3, 4, 5, 6)

	tests := []struct {
		name      string
		views     string
		accessors string
		read      func(gltfAccessorReader) error
		want      error
	}{
		{
			name:      "count exceeds view",
			views:     `[{"buffer": 0, "byteLength": 24}]`,
			accessors: `[{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"}]`,
			read:      func(r gltfAccessorReader) error { _, err := r.ReadVec3(0); return err },
			want:      ErrAccessorBounds,
		},
		{
			name:      "view exceeds buffer",
			views:     `[{"buffer": 0, "byteOffset": 8, "byteLength": 24}]`,
			accessors: `[{"bufferView": 0, "componentType": 5126, "count": 1, "type": "SCALAR"}]`,
			read:      func(r gltfAccessorReader) error { _, err := r.ReadVec3(0); return err },
			want:      ErrAccessorBounds,
		},
		{
			name:      "stride below element size",
			views:     `[{"buffer": 0, "byteLength": 24, "byteStride": 8}]`,
			accessors: `[{"bufferView": 0, "componentType": 5126, "count": 2, "type": "VEC3"}]`,
			read:      func(r gltfAccessorReader) error { _, err := r.ReadVec3(0); return err },
			want:      ErrUnsupportedAccessor,
		},
		{
			name:      "wrong element type",
			views:     `[{"buffer": 0, "byteLength": 24}]`,
			accessors: `[{"bufferView": 0, "componentType": 5126, "count": 2, "type": "VEC3"}]`,
			read:      func(r gltfAccessorReader) error { _, err := r.ReadVec2(0); return err },
			want:      ErrUnsupportedAccessor,
		},
		{
			name:      "padded matrix components",
			views:     `[{"buffer": 0, "byteLength": 24}]`,
			accessors: `[{"bufferView": 0, "componentType": 5121, "count": 1, "type": "MAT3"}]`,
			read:      func(r gltfAccessorReader) error { _, err := r.View(0); return err },
			want:      ErrUnsupportedAccessor,
		},
		{
			name:      "zero-filled count beyond resolved bytes",
			views:     `[]`,
			accessors: `[{"componentType": 5126, "count": 4294967295, "type": "VEC3"}]`,
			read:      func(r gltfAccessorReader) error { _, err := r.ReadVec3(0); return err },
			want:      ErrAccessorBounds,
		},
		{
			name:      "missing accessor",
			views:     `[]`,
			accessors: `[]`,
			read:      func(r gltfAccessorReader) error { _, err := r.ReadVec3(4); return err },
			want:      ErrIndexOutOfRange,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := decodeDocument(t, accessorDoc(len(buf), tt.views, tt.accessors))
			err := tt.read(newGLTFAccessorReader(doc, [][]byte{buf}))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var ie *Error
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, "build", ie.Op)
		})
	}
}
