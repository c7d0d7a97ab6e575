package loader

import (
	"fmt"
	"testing"

	"github.com/Carmen-Shannon/oxy-gltf/engine/model"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// graphDoc is a document with one triangle mesh over triangleBuffer plus the given members.
func graphDoc(members string) string {
	return `{
		"asset": {"version": "2.0", "generator": "unit"},
		"meshes": [{"name": "triangle", "primitives": [{"attributes": {"POSITION": 0}, "indices": 1}]}],
		"accessors": [
			{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"},
			{"bufferView": 1, "componentType": 5123, "count": 3, "type": "SCALAR"}
		],
		"bufferViews": [
			{"buffer": 0, "byteOffset": 0, "byteLength": 36},
			{"buffer": 0, "byteOffset": 36, "byteLength": 6}
		],
		"buffers": [{"byteLength": 42}],
		` + members + `
	}`
}

func buildModel(t *testing.T, js string, generateNormals bool, buffers ...[]byte) (model.Model, error) {
	t.Helper()
	return newGLTFSceneBuilder(parseDocument(t, js), buffers, discardLogger(), generateNormals).Build("", nil)
}

func TestBuildTriangle(t *testing.T) {
	m, err := buildModel(t, fmt.Sprintf(triangleJSON, 42, ""), false, triangleBuffer)
	require.NoError(t, err)

	assert.Equal(t, "main", m.Name())
	assert.Equal(t, []model.NodeID{0}, m.Roots())
	assert.Equal(t, 1, m.BufferCount())
	require.Len(t, m.Nodes(), 1)

	node := m.Node(0)
	require.NotNil(t, node)
	assert.Equal(t, "tri", node.Name)
	trs, ok := node.Transform.(model.TRSTransform)
	require.True(t, ok)
	assert.Equal(t, [3]float32{1, 2, 3}, trs.Translation)
	assert.Equal(t, [4]float32{0, 0, 0, 1}, trs.Rotation)
	assert.Equal(t, [3]float32{1, 1, 1}, trs.Scale)

	require.NotNil(t, node.Mesh)
	mesh := m.Mesh(*node.Mesh)
	require.NotNil(t, mesh)
	require.Len(t, mesh.Primitives, 1)
	prim := mesh.Primitives[0]
	assert.Equal(t, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, prim.Attributes.Positions)
	assert.Equal(t, []uint32{0, 1, 2}, prim.Indices)
	assert.Equal(t, model.TopologyTriangles, prim.Topology)
	assert.Equal(t, [3]float32{0, 0, 0}, prim.BoundingMin)
	assert.Equal(t, [3]float32{1, 1, 0}, prim.BoundingMax)
	assert.Nil(t, prim.Attributes.Normals)

	def, ok := m.DefaultMaterial()
	require.True(t, ok)
	assert.Equal(t, def, prim.Material)
	assert.Equal(t, -1, m.Material(def).Index)

	world := m.WorldMatrix(0)
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, world.Col(3).Vec3())
}

func TestBuildSceneSelection(t *testing.T) {
	members := `
		"scene": 1,
		"scenes": [{"name": "a", "nodes": [2]}, {"name": "b", "nodes": [0]}],
		"nodes": [
			{"matrix": [1,0,0,0, 0,1,0,0, 0,0,1,0, 5,0,0,1], "children": [1]},
			{"mesh": 0, "translation": [0, 1, 0]},
			{"mesh": 0}
		]`
	m, err := buildModel(t, graphDoc(members), false, triangleBuffer)
	require.NoError(t, err)

	assert.Equal(t, "a", m.Name())
	assert.Equal(t, []model.NodeID{0}, m.Roots())
	require.Len(t, m.Scenes(), 2)
	assert.Equal(t, []model.NodeID{2}, m.Scenes()[0].Roots)

	root := m.Node(0)
	assert.IsType(t, model.MatrixTransform{}, root.Transform)
	assert.Equal(t, []model.NodeID{1}, root.Children)
	require.NotNil(t, m.Node(1).Parent)
	assert.Equal(t, model.NodeID(0), *m.Node(1).Parent)

	// Both nodes share the single mesh.
	require.Len(t, m.Meshes(), 1)
	assert.Equal(t, *m.Node(1).Mesh, *m.Node(2).Mesh)

	p := mgl32.TransformCoordinate(mgl32.Vec3{}, m.WorldMatrix(1))
	assert.True(t, p.ApproxEqual(mgl32.Vec3{5, 1, 0}), "got %v", p)
}

func TestBuildWithoutScenesUsesParentlessNodes(t *testing.T) {
	members := `"nodes": [{"children": [1]}, {}, {"mesh": 0}]`
	m, err := buildModel(t, graphDoc(members), false, triangleBuffer)
	require.NoError(t, err)
	assert.Equal(t, []model.NodeID{0, 2}, m.Roots())
	assert.Empty(t, m.Scenes())
	assert.Equal(t, "unit", m.Name())
}

func TestBuildDeclaredMaterialSkipsDefault(t *testing.T) {
	js := `{
		"asset": {"version": "2.0"},
		"nodes": [{"mesh": 0}],
		"meshes": [{"primitives": [{"attributes": {"POSITION": 0}, "material": 0}]}],
		"materials": [{"name": "red", "pbrMetallicRoughness": {"baseColorFactor": [1, 0, 0, 1]}}],
		"accessors": [{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"}],
		"bufferViews": [{"buffer": 0, "byteLength": 36}],
		"buffers": [{"byteLength": 36}]
	}`
	m, err := buildModel(t, js, false, triangleBuffer)
	require.NoError(t, err)

	_, ok := m.DefaultMaterial()
	assert.False(t, ok)
	require.Len(t, m.Materials(), 1)
	prim := m.Meshes()[0].Primitives[0]
	assert.Equal(t, model.MaterialID(0), prim.Material)
	assert.Nil(t, prim.Indices)
	assert.Equal(t, "red", m.Material(prim.Material).Name)
}

func TestBuildGeneratesNormals(t *testing.T) {
	m, err := buildModel(t, fmt.Sprintf(triangleJSON, 42, ""), true, triangleBuffer)
	require.NoError(t, err)
	prim := m.Meshes()[0].Primitives[0]
	require.Len(t, prim.Attributes.Normals, 3)
	for _, n := range prim.Attributes.Normals {
		assert.Equal(t, [3]float32{0, 0, 1}, n)
	}
	assert.Nil(t, prim.Attributes.Tangents, "no UVs, no tangents")
}

func TestBuildGeneratesNormalsForStripsAndFans(t *testing.T) {
	tests := []struct {
		mode      int
		topology  model.Topology
		positions []float32
	}{
		{mode: 5, topology: model.TopologyTriangleStrip, positions: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0, 1, 1, 0}},
		{mode: 6, topology: model.TopologyTriangleFan, positions: []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.topology.String(), func(t *testing.T) {
			buf := packFloats(tt.positions...)
			js := fmt.Sprintf(`{
				"asset": {"version": "2.0"},
				"meshes": [{"primitives": [{"mode": %d, "attributes": {"POSITION": 0}}]}],
				"accessors": [{"bufferView": 0, "componentType": 5126, "count": 4, "type": "VEC3"}],
				"bufferViews": [{"buffer": 0, "byteLength": 48}],
				"buffers": [{"byteLength": 48}]
			}`, tt.mode)
			m, err := buildModel(t, js, true, buf)
			require.NoError(t, err)

			prim := m.Meshes()[0].Primitives[0]
			assert.Equal(t, tt.topology, prim.Topology)
			require.Len(t, prim.Attributes.Normals, 4)
			for i, n := range prim.Attributes.Normals {
				assert.True(t, mgl32.Vec3(n).ApproxEqual(mgl32.Vec3{0, 0, 1}), "vertex %d: %v", i, n)
			}
		})
	}
}

func TestBuildPrimitiveStreams(t *testing.T) {
	buf := concat(
		packFloats(0, 0, 0, 1, 0, 0, 0, 1, 0),
		packFloats(0, 0, 1, 0, 0, 1),
		packFloats(0.5, 0.5, 0.5, 0.5, 0.5, 0.5),
	)
	js := fmt.Sprintf(`{
		"asset": {"version": "2.0"},
		"meshes": [{"primitives": [{
			"mode": 1,
			"attributes": {"POSITION": 0, "TEXCOORD_0": 1, "TEXCOORD_1": 2, "TEXCOORD_3": 2}
		}]}],
		"accessors": [
			{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"},
			{"bufferView": 1, "componentType": 5126, "count": 3, "type": "VEC2"},
			{"bufferView": 2, "componentType": 5126, "count": 3, "type": "VEC2"}
		],
		"bufferViews": [
			{"buffer": 0, "byteLength": 36},
			{"buffer": 0, "byteOffset": 36, "byteLength": 24},
			{"buffer": 0, "byteOffset": 60, "byteLength": 24}
		],
		"buffers": [{"byteLength": %d}]
	}`, len(buf))
	m, err := buildModel(t, js, false, buf)
	require.NoError(t, err)

	prim := m.Meshes()[0].Primitives[0]
	assert.Equal(t, model.TopologyLines, prim.Topology)
	require.Len(t, prim.Attributes.TexCoords, 2, "sets stop at the first gap")
	assert.Equal(t, [2]float32{1, 0}, prim.Attributes.TexCoords[0][1])
	assert.Equal(t, [2]float32{0.5, 0.5}, prim.Attributes.TexCoords[1][2])
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name    string
		members string
		want    error
	}{
		{
			name:    "duplicate scene root",
			members: `"scenes": [{"nodes": [0, 0]}], "nodes": [{}]`,
			want:    ErrCyclicNodeGraph,
		},
		{
			name:    "scene root with parent",
			members: `"scenes": [{"nodes": [1]}], "nodes": [{"children": [1]}, {}]`,
			want:    ErrCyclicNodeGraph,
		},
		{
			name:    "unrooted cycle",
			members: `"nodes": [{"children": [1]}, {"children": [0]}]`,
			want:    ErrCyclicNodeGraph,
		},
		{
			name:    "node reached twice",
			members: `"nodes": [{"children": [2]}, {"children": [2]}, {}]`,
			want:    ErrCyclicNodeGraph,
		},
		{
			name:    "mesh index",
			members: `"nodes": [{"mesh": 4}]`,
			want:    ErrIndexOutOfRange,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildModel(t, graphDoc(tt.members), false, triangleBuffer)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, CategoryStructural, CategoryOf(err))
		})
	}
}

func TestBuildSemanticErrors(t *testing.T) {
	tests := []struct {
		name      string
		primitive string
		want      error
	}{
		{name: "missing position", primitive: `{"attributes": {"NORMAL": 0}}`, want: ErrMissingPosition},
		{name: "index beyond vertices", primitive: `{"attributes": {"POSITION": 0}, "indices": 2}`, want: ErrAccessorBounds},
		{name: "short stream", primitive: `{"attributes": {"POSITION": 0, "NORMAL": 3}}`, want: ErrUnsupportedAccessor},
		{name: "empty positions", primitive: `{"attributes": {"POSITION": 4}}`, want: ErrMissingPosition},
	}
	buf := concat(
		packFloats(0, 0, 0, 1, 0, 0, 0, 1, 0),
		[]byte{0, 1, 7},
	)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			js := `{
				"asset": {"version": "2.0"},
				"meshes": [{"primitives": [` + tt.primitive + `]}],
				"accessors": [
					{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"},
					{"bufferView": 1, "componentType": 5121, "count": 2, "type": "SCALAR"},
					{"bufferView": 1, "componentType": 5121, "count": 3, "type": "SCALAR"},
					{"bufferView": 0, "componentType": 5126, "count": 2, "type": "VEC3"},
					{"bufferView": 0, "componentType": 5126, "count": 0, "type": "VEC3"}
				],
				"bufferViews": [
					{"buffer": 0, "byteLength": 36},
					{"buffer": 0, "byteOffset": 36, "byteLength": 3}
				],
				"buffers": [{"byteLength": 39}]
			}`
			_, err := buildModel(t, js, false, buf)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, CategorySemantic, CategoryOf(err))
		})
	}
}

func TestBuildSkins(t *testing.T) {
	ibm0 := mgl32.Translate3D(0, -1, 0)
	ibm1 := mgl32.Translate3D(0, -2, 0)
	buf := concat(packFloats(ibm0[:]...), packFloats(ibm1[:]...))
	js := fmt.Sprintf(`{
		"asset": {"version": "2.0"},
		"nodes": [{"children": [1], "skin": 0}, {"translation": [0, 1, 0]}],
		"skins": [
			{"name": "rig", "joints": [0, 1], "skeleton": 0, "inverseBindMatrices": 0},
			{"joints": [1]}
		],
		"accessors": [{"bufferView": 0, "componentType": 5126, "count": 2, "type": "MAT4"}],
		"bufferViews": [{"buffer": 0, "byteLength": 128}],
		"buffers": [{"byteLength": %d}]
	}`, len(buf))
	m, err := buildModel(t, js, false, buf)
	require.NoError(t, err)

	skins := m.Skins()
	require.Len(t, skins, 2)
	assert.Equal(t, "rig", skins[0].Name)
	assert.Equal(t, []model.NodeID{0, 1}, skins[0].Joints)
	require.NotNil(t, skins[0].Skeleton)
	assert.Equal(t, model.NodeID(0), *skins[0].Skeleton)
	assert.Equal(t, []mgl32.Mat4{ibm0, ibm1}, skins[0].InverseBindMatrices)

	assert.Nil(t, skins[1].Skeleton)
	assert.Equal(t, []mgl32.Mat4{mgl32.Ident4()}, skins[1].InverseBindMatrices)

	require.NotNil(t, m.Node(0).Skin)
	assert.Equal(t, 0, *m.Node(0).Skin)
}

func TestBuildSkinTooFewMatrices(t *testing.T) {
	ibm := mgl32.Ident4()
	buf := packFloats(ibm[:]...)
	js := `{
		"asset": {"version": "2.0"},
		"nodes": [{}, {}],
		"skins": [{"joints": [0, 1], "inverseBindMatrices": 0}],
		"accessors": [{"bufferView": 0, "componentType": 5126, "count": 1, "type": "MAT4"}],
		"bufferViews": [{"buffer": 0, "byteLength": 64}],
		"buffers": [{"byteLength": 64}]
	}`
	_, err := buildModel(t, js, false, buf)
	assert.ErrorIs(t, err, ErrAccessorBounds)
}
