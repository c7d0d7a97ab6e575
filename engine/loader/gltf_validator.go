package loader

import (
	"errors"
	"fmt"

	"github.com/qmuntal/gltf"

	pkgerrors "github.com/pkg/errors"
)

// gltfValidatorImpl is the implementation of the gltfValidator interface.
type gltfValidatorImpl struct {
	parser gltfParser
	issues []error
}

// gltfValidator checks every cross-reference of a parsed document before any resource is touched.
// All problems are collected so a single import reports the whole set at once.
type gltfValidator interface {
	// Validate checks the document.
	//
	// Returns:
	//   - error: nil, a single Structural *Error, or a Structural *Error joining every issue found
	Validate() error
}

var _ gltfValidator = &gltfValidatorImpl{}

// newGLTFValidator creates a validator for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//
// Returns:
//   - gltfValidator: the validator
func newGLTFValidator(parser gltfParser) gltfValidator {
	return &gltfValidatorImpl{parser: parser}
}

func (v *gltfValidatorImpl) Validate() error {
	doc := v.parser.Document()
	if doc == nil {
		return newError("validate", "", ErrMalformedContainer, "no document loaded")
	}
	v.issues = nil

	if doc.Scene != nil {
		v.index("scene", *doc.Scene, len(doc.Scenes))
	}
	for i, s := range doc.Scenes {
		for j, n := range s.Nodes {
			v.index(fmt.Sprintf("scenes[%d].nodes[%d]", i, j), n, len(doc.Nodes))
		}
	}

	v.checkNodes(doc)

	for i, m := range doc.Meshes {
		for j, p := range m.Primitives {
			ref := fmt.Sprintf("meshes[%d].primitives[%d]", i, j)
			for name, a := range p.Attributes {
				v.index(ref+".attributes."+name, a, len(doc.Accessors))
			}
			v.optIndex(ref+".indices", p.Indices, len(doc.Accessors))
			v.optIndex(ref+".material", p.Material, len(doc.Materials))
			for k, target := range p.Targets {
				for name, a := range target {
					v.index(fmt.Sprintf("%s.targets[%d].%s", ref, k, name), a, len(doc.Accessors))
				}
			}
		}
	}

	for i, a := range doc.Accessors {
		ref := fmt.Sprintf("accessors[%d]", i)
		v.optIndex(ref+".bufferView", a.BufferView, len(doc.BufferViews))
		if a.Sparse != nil {
			v.index(ref+".sparse.indices.bufferView", a.Sparse.Indices.BufferView, len(doc.BufferViews))
			v.index(ref+".sparse.values.bufferView", a.Sparse.Values.BufferView, len(doc.BufferViews))
			if a.Sparse.Count > a.Count {
				v.add(newError("validate", ref+".sparse.count", ErrIndexOutOfRange, "%d sparse elements for %d elements", a.Sparse.Count, a.Count))
			}
		}
	}

	for i, bv := range doc.BufferViews {
		v.index(fmt.Sprintf("bufferViews[%d].buffer", i), bv.Buffer, len(doc.Buffers))
	}

	for i, img := range doc.Images {
		v.optIndex(fmt.Sprintf("images[%d].bufferView", i), img.BufferView, len(doc.BufferViews))
	}

	for i, t := range doc.Textures {
		ref := fmt.Sprintf("textures[%d]", i)
		v.optIndex(ref+".source", t.Source, len(doc.Images))
		v.optIndex(ref+".sampler", t.Sampler, len(doc.Samplers))
	}

	for i, m := range doc.Materials {
		v.checkMaterial(fmt.Sprintf("materials[%d]", i), m, len(doc.Textures))
	}

	for i, s := range doc.Skins {
		ref := fmt.Sprintf("skins[%d]", i)
		v.optIndex(ref+".inverseBindMatrices", s.InverseBindMatrices, len(doc.Accessors))
		v.optIndex(ref+".skeleton", s.Skeleton, len(doc.Nodes))
		for j, joint := range s.Joints {
			v.index(fmt.Sprintf("%s.joints[%d]", ref, j), joint, len(doc.Nodes))
		}
	}

	switch len(v.issues) {
	case 0:
		return nil
	case 1:
		return v.issues[0]
	default:
		return &Error{
			Category: CategoryStructural,
			Op:       "validate",
			Ref:      fmt.Sprintf("%d issues", len(v.issues)),
			Err:      pkgerrors.WithStack(errors.Join(v.issues...)),
		}
	}
}

// checkNodes verifies node references, transform exclusivity, single parenthood and acyclicity.
func (v *gltfValidatorImpl) checkNodes(doc *gltf.Document) {
	parents := make([]int, len(doc.Nodes))
	for i := range parents {
		parents[i] = -1
	}

	for i, n := range doc.Nodes {
		ref := fmt.Sprintf("nodes[%d]", i)
		v.optIndex(ref+".mesh", n.Mesh, len(doc.Meshes))
		v.optIndex(ref+".skin", n.Skin, len(doc.Skins))
		v.optIndex(ref+".camera", n.Camera, len(doc.Cameras))

		keys := v.parser.TransformKeys(i)
		if keys.matrix && keys.hasTRS() {
			v.add(newError("validate", ref, ErrConflictingTransform, ""))
		}

		for j, c := range n.Children {
			cref := fmt.Sprintf("%s.children[%d]", ref, j)
			if !v.index(cref, c, len(doc.Nodes)) {
				continue
			}
			if int(c) == i {
				v.add(newError("validate", cref, ErrCyclicNodeGraph, "node %d is its own child", i))
				continue
			}
			if parents[c] >= 0 {
				v.add(newError("validate", cref, ErrCyclicNodeGraph, "node %d already has parent %d", c, parents[c]))
				continue
			}
			parents[c] = i
		}
	}

	// With single parents enforced, a cycle is a parent chain that never reaches a root.
	const (
		unvisited = iota
		onPath
		done
	)
	state := make([]int, len(doc.Nodes))
	for start := range doc.Nodes {
		var path []int
		n := start
		for n >= 0 && state[n] == unvisited {
			state[n] = onPath
			path = append(path, n)
			n = parents[n]
		}
		if n >= 0 && state[n] == onPath {
			v.add(newError("validate", fmt.Sprintf("nodes[%d]", n), ErrCyclicNodeGraph, "node %d is its own ancestor", n))
		}
		for _, p := range path {
			state[p] = done
		}
	}
}

// checkMaterial verifies the core texture references of a material.
// Extension texture references are checked when the extension is bound.
func (v *gltfValidatorImpl) checkMaterial(ref string, m *gltf.Material, textures int) {
	if pbr := m.PBRMetallicRoughness; pbr != nil {
		if pbr.BaseColorTexture != nil {
			v.index(ref+".pbrMetallicRoughness.baseColorTexture", pbr.BaseColorTexture.Index, textures)
		}
		if pbr.MetallicRoughnessTexture != nil {
			v.index(ref+".pbrMetallicRoughness.metallicRoughnessTexture", pbr.MetallicRoughnessTexture.Index, textures)
		}
	}
	if m.NormalTexture != nil {
		v.optIndex(ref+".normalTexture", m.NormalTexture.Index, textures)
	}
	if m.OcclusionTexture != nil {
		v.optIndex(ref+".occlusionTexture", m.OcclusionTexture.Index, textures)
	}
	if m.EmissiveTexture != nil {
		v.index(ref+".emissiveTexture", m.EmissiveTexture.Index, textures)
	}
}

// --- Helper Functions ---

func (v *gltfValidatorImpl) add(err error) {
	v.issues = append(v.issues, err)
}

// index records an issue when idx is not below n and reports whether idx is valid.
func (v *gltfValidatorImpl) index(ref string, idx uint32, n int) bool {
	if int(idx) >= n {
		v.add(newError("validate", ref, ErrIndexOutOfRange, "index %d, %d available", idx, n))
		return false
	}
	return true
}

func (v *gltfValidatorImpl) optIndex(ref string, idx *uint32, n int) {
	if idx != nil {
		v.index(ref, *idx, n)
	}
}
