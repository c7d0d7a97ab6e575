package loader

import (
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-gltf/engine/model"

	"github.com/qmuntal/gltf"
)

// maxTexCoordSets bounds the TEXCOORD_n probe.
const maxTexCoordSets = 8

// gltfMeshExtractorImpl is the implementation of the gltfMeshExtractor interface.
type gltfMeshExtractorImpl struct {
	doc       *gltf.Document
	accessors gltfAccessorReader
	material  func(index *uint32) model.MaterialID

	// generateNormals fills missing normals and tangents on triangle lists, strips and fans.
	generateNormals bool
}

// gltfMeshExtractor defines the interface for extracting mesh data from a parsed glTF document.
// It converts accessor data into model.Mesh values, one Primitive per glTF primitive.
type gltfMeshExtractor interface {
	// Extract extracts a single mesh by index.
	//
	// Parameters:
	//   - index: the index of the mesh to extract
	//
	// Returns:
	//   - *model.Mesh: the mesh with all primitives decoded
	//   - error: a Semantic *Error if an accessor cannot be read or POSITION is missing
	Extract(index uint32) (*model.Mesh, error)
}

var _ gltfMeshExtractor = &gltfMeshExtractorImpl{}

// newGLTFMeshExtractor creates a new mesh extractor for a parsed document.
//
// Parameters:
//   - doc: the parsed document
//   - accessors: reads accessor data from resolved buffers
//   - material: maps a primitive's optional material index to a MaterialID
//   - generateNormals: whether to synthesize absent normals and tangents
//
// Returns:
//   - gltfMeshExtractor: the mesh extractor
func newGLTFMeshExtractor(doc *gltf.Document, accessors gltfAccessorReader, material func(*uint32) model.MaterialID, generateNormals bool) gltfMeshExtractor {
	return &gltfMeshExtractorImpl{doc: doc, accessors: accessors, material: material, generateNormals: generateNormals}
}

func (e *gltfMeshExtractorImpl) Extract(index uint32) (*model.Mesh, error) {
	if int(index) >= len(e.doc.Meshes) {
		return nil, newError("build", fmt.Sprintf("meshes[%d]", index), ErrIndexOutOfRange, "%d meshes", len(e.doc.Meshes))
	}
	mesh := e.doc.Meshes[index]

	result := &model.Mesh{
		Name:       mesh.Name,
		Index:      int(index),
		Primitives: make([]model.Primitive, 0, len(mesh.Primitives)),
	}
	for i, prim := range mesh.Primitives {
		p, err := e.extractPrimitive(fmt.Sprintf("meshes[%d].primitives[%d]", index, i), prim)
		if err != nil {
			return nil, err
		}
		result.Primitives = append(result.Primitives, *p)
	}
	return result, nil
}

func (e *gltfMeshExtractorImpl) extractPrimitive(ref string, prim *gltf.Primitive) (*model.Primitive, error) {
	posAccessor, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil, newError("build", ref, ErrMissingPosition, "")
	}
	positions, err := e.accessors.ReadVec3(posAccessor)
	if err != nil {
		return nil, wrapError("build", ref+".attributes.POSITION", err)
	}
	if len(positions) == 0 {
		return nil, newError("build", ref, ErrMissingPosition, "POSITION accessor is empty")
	}
	vertexCount := len(positions)

	result := &model.Primitive{
		Attributes:  model.VertexAttributes{Positions: positions},
		Topology:    gltfModeToTopology(prim.Mode),
		Material:    e.material(prim.Material),
		TargetCount: len(prim.Targets),
	}
	attrs := &result.Attributes

	if a, ok := prim.Attributes[gltf.NORMAL]; ok {
		if attrs.Normals, err = e.accessors.ReadVec3(a); err != nil {
			return nil, wrapError("build", ref+".attributes.NORMAL", err)
		}
	}
	if a, ok := prim.Attributes[gltf.TANGENT]; ok {
		if attrs.Tangents, err = e.accessors.ReadVec4(a); err != nil {
			return nil, wrapError("build", ref+".attributes.TANGENT", err)
		}
	}
	for set := range maxTexCoordSets {
		name := fmt.Sprintf("TEXCOORD_%d", set)
		a, ok := prim.Attributes[name]
		if !ok {
			break
		}
		uvs, err := e.accessors.ReadVec2(a)
		if err != nil {
			return nil, wrapError("build", ref+".attributes."+name, err)
		}
		attrs.TexCoords = append(attrs.TexCoords, uvs)
	}
	if a, ok := prim.Attributes[gltf.COLOR_0]; ok {
		if attrs.Colors, err = e.accessors.ReadColor(a); err != nil {
			return nil, wrapError("build", ref+".attributes.COLOR_0", err)
		}
	}
	if a, ok := prim.Attributes[gltf.JOINTS_0]; ok {
		if attrs.Joints, err = e.accessors.ReadJoints(a); err != nil {
			return nil, wrapError("build", ref+".attributes.JOINTS_0", err)
		}
	}
	if a, ok := prim.Attributes[gltf.WEIGHTS_0]; ok {
		if attrs.Weights, err = e.accessors.ReadVec4(a); err != nil {
			return nil, wrapError("build", ref+".attributes.WEIGHTS_0", err)
		}
	}

	type stream struct {
		name string
		n    int
	}
	streams := []stream{
		{"NORMAL", len(attrs.Normals)},
		{"TANGENT", len(attrs.Tangents)},
		{"COLOR_0", len(attrs.Colors)},
		{"JOINTS_0", len(attrs.Joints)},
		{"WEIGHTS_0", len(attrs.Weights)},
	}
	for set, uvs := range attrs.TexCoords {
		streams = append(streams, stream{fmt.Sprintf("TEXCOORD_%d", set), len(uvs)})
	}
	for _, s := range streams {
		if s.n != 0 && s.n != vertexCount {
			return nil, newError("build", ref+".attributes."+s.name, ErrUnsupportedAccessor, "%d elements for %d positions", s.n, vertexCount)
		}
	}

	if prim.Indices != nil {
		if result.Indices, err = e.accessors.ReadIndices(*prim.Indices); err != nil {
			return nil, wrapError("build", ref+".indices", err)
		}
		for i, idx := range result.Indices {
			if int(idx) >= vertexCount {
				return nil, newError("build", ref+".indices", ErrAccessorBounds, "index %d at %d references vertex beyond %d", idx, i, vertexCount)
			}
		}
	}

	if e.generateNormals {
		// Tangent generation orthonormalizes against the normals, so normals go first.
		result.GenerateNormals()
		result.GenerateTangents(0)
	}

	result.BoundingMin, result.BoundingMax = gltfCalculateBoundingBox(positions)
	return result, nil
}

// --- Helper Functions ---

// gltfModeToTopology maps a glTF primitive mode to a Topology.
func gltfModeToTopology(mode gltf.PrimitiveMode) model.Topology {
	switch mode {
	case gltf.PrimitivePoints:
		return model.TopologyPoints
	case gltf.PrimitiveLines:
		return model.TopologyLines
	case gltf.PrimitiveLineLoop:
		return model.TopologyLineLoop
	case gltf.PrimitiveLineStrip:
		return model.TopologyLineStrip
	case gltf.PrimitiveTriangleStrip:
		return model.TopologyTriangleStrip
	case gltf.PrimitiveTriangleFan:
		return model.TopologyTriangleFan
	default:
		return model.TopologyTriangles
	}
}

// gltfCalculateBoundingBox computes the axis-aligned bounding box for positions.
func gltfCalculateBoundingBox(positions [][3]float32) ([3]float32, [3]float32) {
	if len(positions) == 0 {
		return [3]float32{}, [3]float32{}
	}

	bmin := [3]float32{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	bmax := [3]float32{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}

	for _, pos := range positions {
		for j := range 3 {
			bmin[j] = min(bmin[j], pos[j])
			bmax[j] = max(bmax[j], pos[j])
		}
	}

	return bmin, bmax
}
