package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gltf/engine/model"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
)

// gltfSkinExtractorImpl is the implementation of the gltfSkinExtractor interface.
type gltfSkinExtractorImpl struct {
	doc       *gltf.Document
	accessors gltfAccessorReader
}

// gltfSkinExtractor reads declared skin data: joints, skeleton root and inverse bind matrices.
// Skinning itself is left to the runtime.
type gltfSkinExtractor interface {
	// Extract reads a single skin by index.
	//
	// Parameters:
	//   - index: the index of the skin in the document
	//
	// Returns:
	//   - *model.Skin: the skin
	//   - error: error if an index is out of range or the matrices cannot be read
	Extract(index uint32) (*model.Skin, error)
}

var _ gltfSkinExtractor = &gltfSkinExtractorImpl{}

// newGLTFSkinExtractor creates a new skin extractor for a parsed document.
//
// Parameters:
//   - doc: the parsed document
//   - accessors: reads accessor data from resolved buffers
//
// Returns:
//   - gltfSkinExtractor: the skin extractor
func newGLTFSkinExtractor(doc *gltf.Document, accessors gltfAccessorReader) gltfSkinExtractor {
	return &gltfSkinExtractorImpl{doc: doc, accessors: accessors}
}

func (e *gltfSkinExtractorImpl) Extract(index uint32) (*model.Skin, error) {
	ref := fmt.Sprintf("skins[%d]", index)
	if int(index) >= len(e.doc.Skins) {
		return nil, newError("build", ref, ErrIndexOutOfRange, "%d skins", len(e.doc.Skins))
	}
	skin := e.doc.Skins[index]

	result := &model.Skin{
		Name:     skin.Name,
		Index:    int(index),
		Joints:   make([]model.NodeID, len(skin.Joints)),
		Skeleton: optID[model.NodeID](skin.Skeleton),
	}
	for i, j := range skin.Joints {
		if int(j) >= len(e.doc.Nodes) {
			return nil, newError("build", fmt.Sprintf("%s.joints[%d]", ref, i), ErrIndexOutOfRange, "node %d of %d", j, len(e.doc.Nodes))
		}
		result.Joints[i] = model.NodeID(j)
	}

	// Without inverse bind matrices every joint binds with identity.
	result.InverseBindMatrices = make([]mgl32.Mat4, len(skin.Joints))
	for i := range result.InverseBindMatrices {
		result.InverseBindMatrices[i] = mgl32.Ident4()
	}
	if skin.InverseBindMatrices != nil {
		ibm, err := e.accessors.ReadMat4(*skin.InverseBindMatrices)
		if err != nil {
			return nil, wrapError("build", ref+".inverseBindMatrices", err)
		}
		if len(ibm) < len(skin.Joints) {
			return nil, newError("build", ref+".inverseBindMatrices", ErrAccessorBounds, "%d matrices for %d joints", len(ibm), len(skin.Joints))
		}
		copy(result.InverseBindMatrices, ibm)
	}

	return result, nil
}
