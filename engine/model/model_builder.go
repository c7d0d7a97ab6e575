package model

// ModelBuilderOption is a functional option for configuring a Model via NewModel.
type ModelBuilderOption func(*model)

// WithName is an option builder that sets the name of the Model.
//
// Parameters:
//   - name: the model identifier
//
// Returns:
//   - ModelBuilderOption: a function that applies the name option to a model
func WithName(name string) ModelBuilderOption {
	return func(m *model) {
		m.name = name
	}
}

// WithNodes is an option builder that sets the node arena of the Model.
//
// Parameters:
//   - nodes: the nodes, addressed by NodeID
//
// Returns:
//   - ModelBuilderOption: a function that applies the nodes option to a model
func WithNodes(nodes []Node) ModelBuilderOption {
	return func(m *model) {
		m.nodes = nodes
	}
}

// WithRoots is an option builder that sets the root nodes of the active scene.
//
// Parameters:
//   - roots: the root node IDs in traversal order
//
// Returns:
//   - ModelBuilderOption: a function that applies the roots option to a model
func WithRoots(roots []NodeID) ModelBuilderOption {
	return func(m *model) {
		m.roots = roots
	}
}

// WithScenes is an option builder that sets the declared scenes of the Model.
//
// Parameters:
//   - scenes: the scenes
//
// Returns:
//   - ModelBuilderOption: a function that applies the scenes option to a model
func WithScenes(scenes []Scene) ModelBuilderOption {
	return func(m *model) {
		m.scenes = scenes
	}
}

// WithMeshes is an option builder that sets the mesh arena of the Model.
//
// Parameters:
//   - meshes: the meshes, addressed by MeshID
//
// Returns:
//   - ModelBuilderOption: a function that applies the meshes option to a model
func WithMeshes(meshes []Mesh) ModelBuilderOption {
	return func(m *model) {
		m.meshes = meshes
	}
}

// WithMaterials is an option builder that sets the material arena of the Model.
//
// Parameters:
//   - materials: the materials, addressed by MaterialID
//
// Returns:
//   - ModelBuilderOption: a function that applies the materials option to a model
func WithMaterials(materials []Material) ModelBuilderOption {
	return func(m *model) {
		m.materials = materials
	}
}

// WithDefaultMaterial is an option builder that marks the shared default material.
//
// Parameters:
//   - id: the ID of the default material within the material arena
//
// Returns:
//   - ModelBuilderOption: a function that applies the default material option to a model
func WithDefaultMaterial(id MaterialID) ModelBuilderOption {
	return func(m *model) {
		m.defaultMaterial = &id
	}
}

// WithImages is an option builder that sets the decoded image arena of the Model.
//
// Parameters:
//   - images: the images, addressed by ImageID
//
// Returns:
//   - ModelBuilderOption: a function that applies the images option to a model
func WithImages(images []Image) ModelBuilderOption {
	return func(m *model) {
		m.images = images
	}
}

// WithBufferCount is an option builder that records how many binary buffers were resolved.
//
// Parameters:
//   - n: the buffer count
//
// Returns:
//   - ModelBuilderOption: a function that applies the buffer count option to a model
func WithBufferCount(n int) ModelBuilderOption {
	return func(m *model) {
		m.bufferCount = n
	}
}

// WithSkins is an option builder that sets the Model's skin arena.
//
// Parameters:
//   - skins: the declared skins, indexed like the source document
//
// Returns:
//   - ModelBuilderOption: a function that applies the skins option to a model
func WithSkins(skins []Skin) ModelBuilderOption {
	return func(m *model) {
		m.skins = skins
	}
}
