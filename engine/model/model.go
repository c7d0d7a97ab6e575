package model

import (
	"github.com/go-gl/mathgl/mgl32"
)

// model is the implementation of the Model interface.
type model struct {
	name            string
	nodes           []Node
	meshes          []Mesh
	materials       []Material
	images          []Image
	skins           []Skin
	scenes          []Scene
	roots           []NodeID
	defaultMaterial *MaterialID
	bufferCount     int
}

// Model defines the interface for an imported scene graph.
// A Model is an arena: nodes, meshes, materials and images live in flat slices and reference
// each other by ID, so a mesh or image used in several places is stored once.
// It is produced by the Loader and handed to the rendering runtime read-only.
type Model interface {
	// Name retrieves the model identifier.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// Roots retrieves the root nodes of the active scene in traversal order.
	//
	// Returns:
	//   - []NodeID: the root node IDs
	Roots() []NodeID

	// Scenes retrieves every scene declared by the source document.
	//
	// Returns:
	//   - []Scene: the scenes
	Scenes() []Scene

	// Nodes retrieves the node arena in depth-first traversal order.
	//
	// Returns:
	//   - []Node: all nodes
	Nodes() []Node

	// Node retrieves a single node.
	//
	// Parameters:
	//   - id: the node ID
	//
	// Returns:
	//   - *Node: the node, or nil if id is out of range
	Node(id NodeID) *Node

	// Meshes retrieves the mesh arena.
	//
	// Returns:
	//   - []Mesh: all meshes
	Meshes() []Mesh

	// Mesh retrieves a single mesh.
	//
	// Parameters:
	//   - id: the mesh ID
	//
	// Returns:
	//   - *Mesh: the mesh, or nil if id is out of range
	Mesh(id MeshID) *Mesh

	// Materials retrieves the material arena.
	//
	// Returns:
	//   - []Material: all materials
	Materials() []Material

	// Material retrieves a single material.
	//
	// Parameters:
	//   - id: the material ID
	//
	// Returns:
	//   - *Material: the material, or nil if id is out of range
	Material(id MaterialID) *Material

	// DefaultMaterial reports the shared material assigned to primitives that declare none.
	//
	// Returns:
	//   - MaterialID: the default material ID
	//   - bool: false when no primitive needed it
	DefaultMaterial() (MaterialID, bool)

	// Images retrieves the decoded image arena.
	//
	// Returns:
	//   - []Image: all images
	Images() []Image

	// Image retrieves a single decoded image.
	//
	// Parameters:
	//   - id: the image ID
	//
	// Returns:
	//   - *Image: the image, or nil if id is out of range
	Image(id ImageID) *Image

	// Skins retrieves the declared skins. Node.Skin indexes into this slice.
	//
	// Returns:
	//   - []Skin: all skins
	Skins() []Skin

	// BufferCount returns the number of binary buffers resolved for this model.
	//
	// Returns:
	//   - int: the buffer count
	BufferCount() int

	// WorldMatrix composes the local transforms from the root down to the given node.
	//
	// Parameters:
	//   - id: the node ID
	//
	// Returns:
	//   - mgl32.Mat4: the node's world matrix, or identity if id is out of range
	WorldMatrix(id NodeID) mgl32.Mat4

	// Walk visits every node reachable from the roots depth-first, in child declaration order.
	// Returning false from fn skips the node's children.
	//
	// Parameters:
	//   - fn: the visitor, called with the node ID and its world matrix
	Walk(fn func(id NodeID, world mgl32.Mat4) bool)
}

var _ Model = &model{}

// NewModel creates a new Model instance with the provided options applied.
//
// Parameters:
//   - options: a variadic list of ModelBuilderOption functions to configure the Model
//
// Returns:
//   - Model: a new instance of Model configured with the provided options
func NewModel(options ...ModelBuilderOption) Model {
	m := &model{}
	for _, option := range options {
		option(m)
	}
	return m
}

func (m *model) Name() string {
	return m.name
}

func (m *model) Roots() []NodeID {
	return m.roots
}

func (m *model) Scenes() []Scene {
	return m.scenes
}

func (m *model) Nodes() []Node {
	return m.nodes
}

func (m *model) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(m.nodes) {
		return nil
	}
	return &m.nodes[id]
}

func (m *model) Meshes() []Mesh {
	return m.meshes
}

func (m *model) Mesh(id MeshID) *Mesh {
	if id < 0 || int(id) >= len(m.meshes) {
		return nil
	}
	return &m.meshes[id]
}

func (m *model) Materials() []Material {
	return m.materials
}

func (m *model) Material(id MaterialID) *Material {
	if id < 0 || int(id) >= len(m.materials) {
		return nil
	}
	return &m.materials[id]
}

func (m *model) DefaultMaterial() (MaterialID, bool) {
	if m.defaultMaterial == nil {
		return 0, false
	}
	return *m.defaultMaterial, true
}

func (m *model) Images() []Image {
	return m.images
}

func (m *model) Image(id ImageID) *Image {
	if id < 0 || int(id) >= len(m.images) {
		return nil
	}
	return &m.images[id]
}

func (m *model) Skins() []Skin {
	return m.skins
}

func (m *model) BufferCount() int {
	return m.bufferCount
}

func (m *model) WorldMatrix(id NodeID) mgl32.Mat4 {
	world := mgl32.Ident4()
	for n := m.Node(id); n != nil; {
		world = n.Transform.Matrix().Mul4(world)
		if n.Parent == nil {
			break
		}
		n = m.Node(*n.Parent)
	}
	return world
}

func (m *model) Walk(fn func(id NodeID, world mgl32.Mat4) bool) {
	var visit func(id NodeID, parent mgl32.Mat4)
	visit = func(id NodeID, parent mgl32.Mat4) {
		n := m.Node(id)
		if n == nil {
			return
		}
		world := parent.Mul4(n.Transform.Matrix())
		if !fn(id, world) {
			return
		}
		for _, child := range n.Children {
			visit(child, world)
		}
	}
	for _, root := range m.roots {
		visit(root, mgl32.Ident4())
	}
}
