// package common contains plain data types shared by the import pipeline and the rendering runtime that consumes its output.
// They are not interface-wrapped structs, just plain structs that express commonly used data-types.
package common

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// TextureStagingData holds decoded RGBA pixel data for an image pending GPU upload.
// The import pipeline fills it once per image; every texture referencing the image shares it.
type TextureStagingData struct {
	// Pixels is the pixel data in RGBA8 layout, 4 bytes per pixel, row-major.
	Pixels []byte
	// Width is the width of the image in pixels.
	Width uint32
	// Height is the height of the image in pixels.
	Height uint32
	// Format is the GPU texture format the pixels are laid out in.
	Format wgpu.TextureFormat
}

// BytesPerRow returns the row pitch of the staged pixel data.
//
// Returns:
//   - uint32: the number of bytes in one row of pixels
func (t TextureStagingData) BytesPerRow() uint32 {
	return t.Width * 4
}

// SamplerStagingData holds the configuration for a texture sampler pending GPU creation.
// glTF sampler definitions are translated into this WebGPU vocabulary at import time.
type SamplerStagingData struct {
	// AddressModeU, AddressModeV, AddressModeW specify the addressing mode for texture coordinates outside the [0, 1] range in each dimension (U, V, W).
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter wgpu.FilterMode
	// MipmapFilter specifies the filtering mode for mipmap level selection.
	MipmapFilter wgpu.MipmapFilterMode
	// LodMinClamp and LodMaxClamp specify the minimum and maximum level of detail (LOD) for mipmapping.
	LodMinClamp, LodMaxClamp float32
	// MaxAnisotropy specifies the maximum anisotropy level for anisotropic filtering.
	MaxAnisotropy uint16
}

// DefaultSamplerStagingData returns the sampler used when a texture declares none:
// linear filtering with repeat wrapping on every axis.
//
// Returns:
//   - SamplerStagingData: the default sampler configuration
func DefaultSamplerStagingData() SamplerStagingData {
	return SamplerStagingData{
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	}
}
