package model

import (
	"github.com/Carmen-Shannon/oxy-gltf/common"

	"github.com/go-gl/mathgl/mgl32"
)

// NodeID addresses a Node inside a Model's node arena.
type NodeID int

// MeshID addresses a Mesh inside a Model's mesh arena.
type MeshID int

// MaterialID addresses a Material inside a Model's material arena.
type MaterialID int

// ImageID addresses an Image inside a Model's image arena.
type ImageID int

// --- Transform Types ---

// Transform is a node's local transform. It is either a MatrixTransform or a TRSTransform,
// never both; the two variants are kept distinct so the runtime can animate TRS nodes.
type Transform interface {
	// Matrix returns the local transform as a column-major 4x4 matrix.
	//
	// Returns:
	//   - mgl32.Mat4: the local matrix
	Matrix() mgl32.Mat4

	isTransform()
}

// MatrixTransform is a local transform declared as a full 4x4 matrix.
type MatrixTransform struct {
	// M is the column-major matrix.
	M mgl32.Mat4
}

func (t MatrixTransform) Matrix() mgl32.Mat4 { return t.M }
func (MatrixTransform) isTransform()         {}

// Decompose splits the matrix into translation, rotation and scale.
// Shear is discarded; a negative determinant flips the X scale.
//
// Returns:
//   - TRSTransform: the decomposed transform
func (t MatrixTransform) Decompose() TRSTransform {
	tr, r, s := common.DecomposeTRS(t.M)
	return TRSTransform{Translation: tr, Rotation: r, Scale: s}
}

// TRSTransform is a local transform declared as translation, rotation and scale.
type TRSTransform struct {
	// Translation is the position offset.
	Translation [3]float32

	// Rotation is the orientation as a unit quaternion (x, y, z, w).
	Rotation [4]float32

	// Scale is the scale factor along each axis.
	Scale [3]float32
}

// Matrix composes T * R * S.
func (t TRSTransform) Matrix() mgl32.Mat4 {
	return common.ComposeTRS(t.Translation, t.Rotation, t.Scale)
}
func (TRSTransform) isTransform() {}

// IdentityTransform returns the transform of a node that declares none.
//
// Returns:
//   - TRSTransform: zero translation, identity rotation, unit scale
func IdentityTransform() TRSTransform {
	return TRSTransform{
		Rotation: [4]float32{0, 0, 0, 1},
		Scale:    [3]float32{1, 1, 1},
	}
}

// --- Scene Graph Types ---

// Node is one element of the scene graph.
type Node struct {
	// Name is the node identifier from the source document.
	Name string

	// Index is the node's position in the source document.
	Index int

	// Transform is the local transform relative to the parent.
	Transform Transform

	// Parent is the parent node, or nil for a root.
	Parent *NodeID

	// Children are the child nodes in declaration order.
	Children []NodeID

	// Mesh is the mesh drawn at this node, if any.
	Mesh *MeshID

	// Skin is the declared skin, an index into Model.Skins. Skinning is not evaluated.
	Skin *int

	// Camera is the declared camera index.
	Camera *int

	// Weights are the declared default morph target weights.
	Weights []float32
}

// Skin is the declared joint set of a skinned mesh.
type Skin struct {
	Name  string
	Index int

	// Joints are the joint nodes in declaration order.
	Joints []NodeID

	// Skeleton is the declared common root of the joints, if any.
	Skeleton *NodeID

	// InverseBindMatrices has one matrix per joint; identity when the document declares none.
	InverseBindMatrices []mgl32.Mat4
}

// Scene is a named set of root nodes.
type Scene struct {
	// Name is the scene identifier.
	Name string

	// Roots are the scene's root nodes.
	Roots []NodeID
}

// --- Mesh Types ---

// Topology is the primitive assembly mode.
type Topology int

const (
	TopologyTriangles Topology = iota
	TopologyPoints
	TopologyLines
	TopologyLineLoop
	TopologyLineStrip
	TopologyTriangleStrip
	TopologyTriangleFan
)

// IsTriangles reports whether the topology is a triangle list, strip or fan.
func (t Topology) IsTriangles() bool {
	return t == TopologyTriangles || t == TopologyTriangleStrip || t == TopologyTriangleFan
}

// String returns the glTF name of the topology.
func (t Topology) String() string {
	switch t {
	case TopologyPoints:
		return "POINTS"
	case TopologyLines:
		return "LINES"
	case TopologyLineLoop:
		return "LINE_LOOP"
	case TopologyLineStrip:
		return "LINE_STRIP"
	case TopologyTriangleStrip:
		return "TRIANGLE_STRIP"
	case TopologyTriangleFan:
		return "TRIANGLE_FAN"
	default:
		return "TRIANGLES"
	}
}

// VertexAttributes holds the decoded per-vertex streams of a primitive.
// Positions is always non-empty; every other stream is either empty or has the same length.
type VertexAttributes struct {
	Positions [][3]float32
	Normals   [][3]float32
	Tangents  [][4]float32

	// TexCoords holds the TEXCOORD_n sets, indexed by n.
	TexCoords [][][2]float32

	// Colors is COLOR_0 expanded to RGBA.
	Colors [][4]float32

	Joints  [][4]uint32
	Weights [][4]float32
}

// Len returns the vertex count.
func (v *VertexAttributes) Len() int {
	return len(v.Positions)
}

// Primitive is one draw call's worth of geometry.
type Primitive struct {
	Attributes VertexAttributes

	// Indices is nil for non-indexed geometry.
	Indices []uint32

	Topology Topology

	// Material is always set; primitives without a declared material share the model's default material.
	Material MaterialID

	// TargetCount is the number of declared morph targets. Targets are not blended.
	TargetCount int

	// BoundingMin is the minimum corner of the axis-aligned bounding box.
	BoundingMin [3]float32

	// BoundingMax is the maximum corner of the axis-aligned bounding box.
	BoundingMax [3]float32
}

// Mesh is an ordered set of primitives, shared by every node that references it.
type Mesh struct {
	Name       string
	Index      int
	Primitives []Primitive
}

// --- Material Types ---

// AlphaMode is the material alpha coverage mode.
type AlphaMode int

const (
	AlphaOpaque AlphaMode = iota
	AlphaMask
	AlphaBlend
)

// String returns the glTF name of the alpha mode.
func (a AlphaMode) String() string {
	switch a {
	case AlphaMask:
		return "MASK"
	case AlphaBlend:
		return "BLEND"
	default:
		return "OPAQUE"
	}
}

// TextureRef binds a decoded image to a sampler and a texture coordinate set.
type TextureRef struct {
	Image    ImageID
	Sampler  common.SamplerStagingData
	TexCoord int
}

// Workflow is the PBR parameterization of a Material: MetallicRoughness or SpecularGlossiness.
type Workflow interface {
	isWorkflow()
}

// MetallicRoughness is the core glTF PBR workflow.
type MetallicRoughness struct {
	BaseColorFactor          [4]float32
	BaseColorTexture         *TextureRef
	MetallicFactor           float32
	RoughnessFactor          float32
	MetallicRoughnessTexture *TextureRef
}

func (MetallicRoughness) isWorkflow() {}

// SpecularGlossiness is the KHR_materials_pbrSpecularGlossiness workflow.
type SpecularGlossiness struct {
	DiffuseFactor             [4]float32
	DiffuseTexture            *TextureRef
	SpecularFactor            [3]float32
	GlossinessFactor          float32
	SpecularGlossinessTexture *TextureRef
}

func (SpecularGlossiness) isWorkflow() {}

// DefaultMetallicRoughness returns the glTF defaults for the metallic-roughness workflow.
//
// Returns:
//   - MetallicRoughness: white base color, fully metallic, fully rough
func DefaultMetallicRoughness() MetallicRoughness {
	return MetallicRoughness{
		BaseColorFactor: [4]float32{1, 1, 1, 1},
		MetallicFactor:  1,
		RoughnessFactor: 1,
	}
}

// Material is a renderer-ready surface description.
type Material struct {
	Name string

	// Index is the material's position in the source document, or -1 for the implicit default material.
	Index int

	// Workflow is the active PBR workflow.
	Workflow Workflow

	// Fallback holds the metallic-roughness parameters when Workflow is SpecularGlossiness,
	// for runtimes that only implement the core workflow.
	Fallback *MetallicRoughness

	NormalTexture     *TextureRef
	NormalScale       float32
	OcclusionTexture  *TextureRef
	OcclusionStrength float32
	EmissiveTexture   *TextureRef
	EmissiveFactor    [3]float32

	AlphaMode   AlphaMode
	AlphaCutoff float32
	DoubleSided bool
}

// MetallicRoughness returns the material's metallic-roughness parameters,
// using the fallback when the active workflow is specular-glossiness.
//
// Returns:
//   - MetallicRoughness: the core workflow parameters
func (m *Material) MetallicRoughness() MetallicRoughness {
	switch w := m.Workflow.(type) {
	case MetallicRoughness:
		return w
	case *MetallicRoughness:
		return *w
	}
	if m.Fallback != nil {
		return *m.Fallback
	}
	return DefaultMetallicRoughness()
}

// --- Image Types ---

// Image is a decoded texture image, stored once and shared by every texture that references it.
type Image struct {
	Name string

	// Index is the image's position in the source document.
	Index int

	// MimeType is the encoding the image was decoded from.
	MimeType string

	// SourceChannels is the channel count of the encoded image before RGBA expansion.
	SourceChannels int

	// Staging is the RGBA8 pixel data ready for upload.
	Staging common.TextureStagingData
}

// Channels returns the channel count of the staged pixel data.
func (i *Image) Channels() int { return 4 }
