package loader

import (
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-gltf/engine/model"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
)

// gltfSceneBuilderImpl is the implementation of the gltfSceneBuilder interface.
type gltfSceneBuilderImpl struct {
	parser  gltfParser
	buffers [][]byte
	logger  *slog.Logger

	generateNormals bool
}

// gltfSceneBuilder assembles the model arena from a validated document, its resolved
// buffers and its decoded images. Node, mesh, material and image IDs equal their document
// indices; the implicit default material, when needed, is appended after the declared ones.
type gltfSceneBuilder interface {
	// Build constructs the model.
	//
	// Parameters:
	//   - name: the model name
	//   - images: the decoded images, indexed like the document's images
	//
	// Returns:
	//   - model.Model: the scene graph
	//   - error: the first Structural or Semantic *Error encountered
	Build(name string, images []model.Image) (model.Model, error)
}

var _ gltfSceneBuilder = &gltfSceneBuilderImpl{}

// newGLTFSceneBuilder creates a scene builder.
//
// Parameters:
//   - parser: the parser containing a loaded document
//   - buffers: the resolved buffer bytes
//   - logger: receives debug records
//   - generateNormals: whether primitives without normals get generated ones
//
// Returns:
//   - gltfSceneBuilder: the builder
func newGLTFSceneBuilder(parser gltfParser, buffers [][]byte, logger *slog.Logger, generateNormals bool) gltfSceneBuilder {
	return &gltfSceneBuilderImpl{parser: parser, buffers: buffers, logger: logger, generateNormals: generateNormals}
}

func (b *gltfSceneBuilderImpl) Build(name string, images []model.Image) (model.Model, error) {
	doc := b.parser.Document()

	nodes, err := b.buildNodes(doc)
	if err != nil {
		return nil, err
	}
	if err := checkReachable(nodes); err != nil {
		return nil, err
	}

	scenes, roots, err := b.buildScenes(doc, nodes)
	if err != nil {
		return nil, err
	}

	materialExtractor := newGLTFMaterialExtractor(doc, len(images), b.logger)
	materials := make([]model.Material, 0, len(doc.Materials)+1)
	for i := range doc.Materials {
		m, err := materialExtractor.Extract(uint32(i))
		if err != nil {
			return nil, err
		}
		materials = append(materials, *m)
	}

	// Primitives without a material share one default entry, created on first use.
	var defaultID *model.MaterialID
	materialFor := func(index *uint32) model.MaterialID {
		if index != nil {
			return model.MaterialID(*index)
		}
		if defaultID == nil {
			id := model.MaterialID(len(materials))
			materials = append(materials, *materialExtractor.Default())
			defaultID = &id
		}
		return *defaultID
	}

	accessors := newGLTFAccessorReader(doc, b.buffers)
	meshExtractor := newGLTFMeshExtractor(doc, accessors, materialFor, b.generateNormals)
	meshes := make([]model.Mesh, 0, len(doc.Meshes))
	for i := range doc.Meshes {
		m, err := meshExtractor.Extract(uint32(i))
		if err != nil {
			return nil, err
		}
		meshes = append(meshes, *m)
	}

	skinExtractor := newGLTFSkinExtractor(doc, accessors)
	skins := make([]model.Skin, 0, len(doc.Skins))
	for i := range doc.Skins {
		s, err := skinExtractor.Extract(uint32(i))
		if err != nil {
			return nil, err
		}
		skins = append(skins, *s)
	}

	b.logger.Debug("built scene graph",
		"nodes", len(nodes), "roots", len(roots), "scenes", len(scenes),
		"meshes", len(meshes), "materials", len(materials), "images", len(images), "skins", len(skins))

	options := []model.ModelBuilderOption{
		model.WithName(modelName(name, doc)),
		model.WithNodes(nodes),
		model.WithRoots(roots),
		model.WithScenes(scenes),
		model.WithMeshes(meshes),
		model.WithMaterials(materials),
		model.WithImages(images),
		model.WithSkins(skins),
		model.WithBufferCount(len(b.buffers)),
	}
	if defaultID != nil {
		options = append(options, model.WithDefaultMaterial(*defaultID))
	}
	return model.NewModel(options...), nil
}

// buildNodes converts every document node and links parents. A node listed as a child twice,
// or as its own child, is a cycle.
func (b *gltfSceneBuilderImpl) buildNodes(doc *gltf.Document) ([]model.Node, error) {
	nodes := make([]model.Node, len(doc.Nodes))
	for i, n := range doc.Nodes {
		nodes[i] = model.Node{
			Name:      n.Name,
			Index:     i,
			Transform: b.nodeTransform(i, n),
			Mesh:      optID[model.MeshID](n.Mesh),
			Skin:      optID[int](n.Skin),
			Camera:    optID[int](n.Camera),
			Weights:   n.Weights,
		}
	}

	for i, n := range doc.Nodes {
		ref := fmt.Sprintf("nodes[%d]", i)
		if n.Mesh != nil && int(*n.Mesh) >= len(doc.Meshes) {
			return nil, newError("build", ref+".mesh", ErrIndexOutOfRange, "mesh %d of %d", *n.Mesh, len(doc.Meshes))
		}
		for _, c := range n.Children {
			if int(c) >= len(nodes) {
				return nil, newError("build", ref+".children", ErrIndexOutOfRange, "node %d of %d", c, len(nodes))
			}
			if int(c) == i || nodes[c].Parent != nil {
				return nil, newError("build", ref+".children", ErrCyclicNodeGraph, "node %d reached twice", c)
			}
			parent := model.NodeID(i)
			nodes[c].Parent = &parent
			nodes[i].Children = append(nodes[i].Children, model.NodeID(c))
		}
	}
	return nodes, nil
}

// nodeTransform picks the node's transform variant from the keys it declared.
// Absent TRS components take their identity values.
func (b *gltfSceneBuilderImpl) nodeTransform(i int, n *gltf.Node) model.Transform {
	keys := b.parser.TransformKeys(i)
	if keys.matrix {
		return model.MatrixTransform{M: mgl32.Mat4(n.Matrix)}
	}
	t := model.IdentityTransform()
	if keys.translation {
		t.Translation = n.Translation
	}
	if keys.rotation {
		t.Rotation = n.Rotation
	}
	if keys.scale {
		t.Scale = n.Scale
	}
	return t
}

// buildScenes materializes every declared scene and picks the roots of the model:
// the default scene, else the first scene, else every parentless node.
func (b *gltfSceneBuilderImpl) buildScenes(doc *gltf.Document, nodes []model.Node) ([]model.Scene, []model.NodeID, error) {
	scenes := make([]model.Scene, len(doc.Scenes))
	for i, s := range doc.Scenes {
		ref := fmt.Sprintf("scenes[%d]", i)
		seen := make(map[uint32]bool, len(s.Nodes))
		roots := make([]model.NodeID, 0, len(s.Nodes))
		for _, n := range s.Nodes {
			if int(n) >= len(nodes) {
				return nil, nil, newError("build", ref+".nodes", ErrIndexOutOfRange, "node %d of %d", n, len(nodes))
			}
			if seen[n] {
				return nil, nil, newError("build", ref+".nodes", ErrCyclicNodeGraph, "node %d listed twice", n)
			}
			if p := nodes[n].Parent; p != nil {
				return nil, nil, newError("build", ref+".nodes", ErrCyclicNodeGraph, "root node %d is a child of node %d", n, *p)
			}
			seen[n] = true
			roots = append(roots, model.NodeID(n))
		}
		scenes[i] = model.Scene{Name: s.Name, Roots: roots}
	}

	switch {
	case doc.Scene != nil:
		if int(*doc.Scene) >= len(scenes) {
			return nil, nil, newError("build", "scene", ErrIndexOutOfRange, "scene %d of %d", *doc.Scene, len(scenes))
		}
		return scenes, scenes[*doc.Scene].Roots, nil
	case len(scenes) > 0:
		return scenes, scenes[0].Roots, nil
	}

	var roots []model.NodeID
	for i := range nodes {
		if nodes[i].Parent == nil {
			roots = append(roots, model.NodeID(i))
		}
	}
	return scenes, roots, nil
}

// --- Helper Functions ---

// checkReachable walks the forest depth first from every parentless node in document order.
// With single parents enforced, a node that is never reached sits on a cycle.
func checkReachable(nodes []model.Node) error {
	visited := make([]bool, len(nodes))
	var visit func(id model.NodeID) error
	visit = func(id model.NodeID) error {
		if visited[id] {
			return newError("build", fmt.Sprintf("nodes[%d]", id), ErrCyclicNodeGraph, "node %d reached twice", id)
		}
		visited[id] = true
		for _, c := range nodes[id].Children {
			if err := visit(c); err != nil {
				return err
			}
		}
		return nil
	}

	for i := range nodes {
		if nodes[i].Parent == nil {
			if err := visit(model.NodeID(i)); err != nil {
				return err
			}
		}
	}
	for i, ok := range visited {
		if !ok {
			return newError("build", fmt.Sprintf("nodes[%d]", i), ErrCyclicNodeGraph, "node %d is its own ancestor", i)
		}
	}
	return nil
}

// optID converts an optional document index into an optional typed ID.
func optID[T ~int](index *uint32) *T {
	if index == nil {
		return nil
	}
	id := T(*index)
	return &id
}

// modelName prefers the caller's name, then the first scene name, then the generator.
func modelName(name string, doc *gltf.Document) string {
	if name != "" {
		return name
	}
	for _, s := range doc.Scenes {
		if s.Name != "" {
			return s.Name
		}
	}
	return doc.Asset.Generator
}
