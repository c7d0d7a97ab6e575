package loader

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/qmuntal/gltf"
)

// extSpecularGlossiness is the extension name of the specular-glossiness workflow.
const extSpecularGlossiness = "KHR_materials_pbrSpecularGlossiness"

// defaultAlphaCutoff is the glTF default alpha cutoff for MASK materials.
const defaultAlphaCutoff = 0.5

// specularGlossinessExt mirrors the JSON of the specular-glossiness extension.
type specularGlossinessExt struct {
	DiffuseFactor             *[4]float32       `json:"diffuseFactor"`
	DiffuseTexture            *gltf.TextureInfo `json:"diffuseTexture"`
	SpecularFactor            *[3]float32       `json:"specularFactor"`
	GlossinessFactor          *float32          `json:"glossinessFactor"`
	SpecularGlossinessTexture *gltf.TextureInfo `json:"specularGlossinessTexture"`
}

// gltfMaterialExtractorImpl is the implementation of the gltfMaterialExtractor interface.
type gltfMaterialExtractorImpl struct {
	doc    *gltf.Document
	images int
	logger *slog.Logger
}

// gltfMaterialExtractor binds glTF material descriptors to renderer-ready materials.
// Texture references resolve to image IDs of the already decoded image arena.
type gltfMaterialExtractor interface {
	// Extract binds a single material by index.
	// Unset properties take the glTF defaults; unsupported features degrade to defaults with a warning.
	//
	// Parameters:
	//   - index: the index of the material in the document
	//
	// Returns:
	//   - *model.Material: the bound material
	//   - error: a Structural *Error if a texture, image or sampler reference is out of range
	Extract(index uint32) (*model.Material, error)

	// Default returns the implicit material used by primitives that declare none.
	//
	// Returns:
	//   - *model.Material: a material carrying only glTF defaults
	Default() *model.Material
}

var _ gltfMaterialExtractor = &gltfMaterialExtractorImpl{}

// newGLTFMaterialExtractor creates a new material extractor for a parsed document.
//
// Parameters:
//   - doc: the parsed document
//   - images: the number of decoded images available to texture references
//   - logger: receives warnings for degraded features
//
// Returns:
//   - gltfMaterialExtractor: the material extractor
func newGLTFMaterialExtractor(doc *gltf.Document, images int, logger *slog.Logger) gltfMaterialExtractor {
	return &gltfMaterialExtractorImpl{doc: doc, images: images, logger: logger}
}

func (e *gltfMaterialExtractorImpl) Default() *model.Material {
	return &model.Material{
		Name:              "default",
		Index:             -1,
		Workflow:          model.DefaultMetallicRoughness(),
		NormalScale:       1,
		OcclusionStrength: 1,
		AlphaMode:         model.AlphaOpaque,
		AlphaCutoff:       defaultAlphaCutoff,
	}
}

func (e *gltfMaterialExtractorImpl) Extract(index uint32) (*model.Material, error) {
	ref := fmt.Sprintf("materials[%d]", index)
	if int(index) >= len(e.doc.Materials) {
		return nil, newError("build", ref, ErrIndexOutOfRange, "%d materials", len(e.doc.Materials))
	}
	mat := e.doc.Materials[index]

	result := e.Default()
	result.Name = mat.Name
	result.Index = int(index)
	result.EmissiveFactor = mat.EmissiveFactor
	result.DoubleSided = mat.DoubleSided
	result.AlphaCutoff = common.Deref(mat.AlphaCutoff, defaultAlphaCutoff)

	switch mat.AlphaMode {
	case gltf.AlphaMask:
		result.AlphaMode = model.AlphaMask
	case gltf.AlphaBlend:
		result.AlphaMode = model.AlphaBlend
	default:
		result.AlphaMode = model.AlphaOpaque
	}

	mr := model.DefaultMetallicRoughness()
	if pbr := mat.PBRMetallicRoughness; pbr != nil {
		mr.BaseColorFactor = common.Deref(pbr.BaseColorFactor, mr.BaseColorFactor)
		mr.MetallicFactor = common.Deref(pbr.MetallicFactor, mr.MetallicFactor)
		mr.RoughnessFactor = common.Deref(pbr.RoughnessFactor, mr.RoughnessFactor)

		var err error
		if mr.BaseColorTexture, err = e.textureInfo(ref+".baseColorTexture", pbr.BaseColorTexture); err != nil {
			return nil, err
		}
		if mr.MetallicRoughnessTexture, err = e.textureInfo(ref+".metallicRoughnessTexture", pbr.MetallicRoughnessTexture); err != nil {
			return nil, err
		}
	}
	result.Workflow = mr

	if nt := mat.NormalTexture; nt != nil {
		result.NormalScale = common.Deref(nt.Scale, 1)
		if nt.Index != nil {
			tex, err := e.textureRef(ref+".normalTexture", *nt.Index, nt.TexCoord)
			if err != nil {
				return nil, err
			}
			result.NormalTexture = tex
		}
	}

	if ot := mat.OcclusionTexture; ot != nil {
		result.OcclusionStrength = common.Deref(ot.Strength, 1)
		if ot.Index != nil {
			tex, err := e.textureRef(ref+".occlusionTexture", *ot.Index, ot.TexCoord)
			if err != nil {
				return nil, err
			}
			result.OcclusionTexture = tex
		}
	}

	var err error
	if result.EmissiveTexture, err = e.textureInfo(ref+".emissiveTexture", mat.EmissiveTexture); err != nil {
		return nil, err
	}

	for name, raw := range mat.Extensions {
		if name != extSpecularGlossiness {
			e.logger.Warn("ignoring unsupported material extension", "material", index, "extension", name)
			continue
		}
		sg, err := e.specularGlossiness(ref, raw)
		if err != nil {
			return nil, err
		}
		if sg == nil {
			continue
		}
		fallback := mr
		result.Workflow = *sg
		result.Fallback = &fallback
	}

	return result, nil
}

// specularGlossiness decodes the specular-glossiness extension. A payload that cannot be
// decoded degrades to the core workflow.
func (e *gltfMaterialExtractorImpl) specularGlossiness(ref string, raw any) (*model.SpecularGlossiness, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		e.logger.Warn("ignoring undecodable extension", "ref", ref, "extension", extSpecularGlossiness, "error", err)
		return nil, nil
	}
	var ext specularGlossinessExt
	if err := json.Unmarshal(data, &ext); err != nil {
		e.logger.Warn("ignoring undecodable extension", "ref", ref, "extension", extSpecularGlossiness, "error", err)
		return nil, nil
	}

	sg := &model.SpecularGlossiness{
		DiffuseFactor:    common.Deref(ext.DiffuseFactor, [4]float32{1, 1, 1, 1}),
		SpecularFactor:   common.Deref(ext.SpecularFactor, [3]float32{1, 1, 1}),
		GlossinessFactor: common.Deref(ext.GlossinessFactor, 1),
	}
	extRef := ref + ".extensions." + extSpecularGlossiness
	if sg.DiffuseTexture, err = e.textureInfo(extRef+".diffuseTexture", ext.DiffuseTexture); err != nil {
		return nil, err
	}
	if sg.SpecularGlossinessTexture, err = e.textureInfo(extRef+".specularGlossinessTexture", ext.SpecularGlossinessTexture); err != nil {
		return nil, err
	}
	return sg, nil
}

// textureInfo resolves an optional texture binding.
func (e *gltfMaterialExtractorImpl) textureInfo(ref string, info *gltf.TextureInfo) (*model.TextureRef, error) {
	if info == nil {
		return nil, nil
	}
	return e.textureRef(ref, info.Index, info.TexCoord)
}

// textureRef resolves a texture index into an image ID plus sampler state.
// A texture without a source degrades to no texture.
func (e *gltfMaterialExtractorImpl) textureRef(ref string, textureIndex, texCoord uint32) (*model.TextureRef, error) {
	if int(textureIndex) >= len(e.doc.Textures) {
		return nil, newError("build", ref, ErrIndexOutOfRange, "texture %d of %d", textureIndex, len(e.doc.Textures))
	}
	tex := e.doc.Textures[textureIndex]
	if tex.Source == nil {
		e.logger.Warn("texture has no source, binding no texture", "ref", ref, "texture", textureIndex)
		return nil, nil
	}
	if int(*tex.Source) >= e.images {
		return nil, newError("build", ref, ErrIndexOutOfRange, "texture %d source image %d of %d", textureIndex, *tex.Source, e.images)
	}

	sampler := common.DefaultSamplerStagingData()
	if tex.Sampler != nil {
		if int(*tex.Sampler) >= len(e.doc.Samplers) {
			return nil, newError("build", ref, ErrIndexOutOfRange, "texture %d sampler %d of %d", textureIndex, *tex.Sampler, len(e.doc.Samplers))
		}
		sampler = gltfSamplerToStagingData(e.doc.Samplers[*tex.Sampler])
	}

	return &model.TextureRef{
		Image:    model.ImageID(*tex.Source),
		Sampler:  sampler,
		TexCoord: int(texCoord),
	}, nil
}

// --- Helper Functions ---

// gltfSamplerToStagingData converts a glTF sampler definition into engine-ready SamplerStagingData.
// Unset filters fall back to linear filtering; wrapping defaults to repeat.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-sampler
//
// Parameters:
//   - s: the glTF sampler to convert
//
// Returns:
//   - common.SamplerStagingData: the converted sampler staging data
func gltfSamplerToStagingData(s *gltf.Sampler) common.SamplerStagingData {
	result := common.DefaultSamplerStagingData()

	switch s.MagFilter {
	case gltf.MagNearest:
		result.MagFilter = wgpu.FilterModeNearest
	case gltf.MagLinear:
		result.MagFilter = wgpu.FilterModeLinear
	}

	switch s.MinFilter {
	case gltf.MinNearest, gltf.MinNearestMipMapNearest, gltf.MinNearestMipMapLinear:
		result.MinFilter = wgpu.FilterModeNearest
	case gltf.MinLinear, gltf.MinLinearMipMapNearest, gltf.MinLinearMipMapLinear:
		result.MinFilter = wgpu.FilterModeLinear
	}

	// The mipmap filter follows the minification variant.
	switch s.MinFilter {
	case gltf.MinNearestMipMapNearest, gltf.MinLinearMipMapNearest:
		result.MipmapFilter = wgpu.MipmapFilterModeNearest
	case gltf.MinNearestMipMapLinear, gltf.MinLinearMipMapLinear:
		result.MipmapFilter = wgpu.MipmapFilterModeLinear
	case gltf.MinNearest, gltf.MinLinear:
		result.MipmapFilter = wgpu.MipmapFilterModeNearest
	}

	result.AddressModeU = gltfWrapToAddressMode(s.WrapS)
	result.AddressModeV = gltfWrapToAddressMode(s.WrapT)

	return result
}

// gltfWrapToAddressMode converts a glTF wrap mode to a wgpu AddressMode.
//
// Parameters:
//   - wrap: the glTF wrap mode
//
// Returns:
//   - wgpu.AddressMode: the corresponding wgpu address mode
func gltfWrapToAddressMode(wrap gltf.WrappingMode) wgpu.AddressMode {
	switch wrap {
	case gltf.WrapClampToEdge:
		return wgpu.AddressModeClampToEdge
	case gltf.WrapMirroredRepeat:
		return wgpu.AddressModeMirrorRepeat
	default:
		return wgpu.AddressModeRepeat
	}
}
