package loader

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/h2non/filetype"
	"golang.org/x/image/draw"
)

// Supported image encodings.
const (
	mimePNG  = "image/png"
	mimeJPEG = "image/jpeg"
)

// gltfImageDecoderImpl is the implementation of the gltfImageDecoder interface.
type gltfImageDecoderImpl struct{}

// gltfImageDecoder turns encoded image bytes into RGBA8 pixel data. It performs no I/O.
type gltfImageDecoder interface {
	// Decode decodes one image.
	// A declared PNG or JPEG MIME type selects the codec; any other or missing MIME type
	// falls back to sniffing the magic bytes. Only PNG and JPEG are supported.
	//
	// Parameters:
	//   - data: the encoded bytes
	//   - mimeType: the declared MIME type, may be empty
	//
	// Returns:
	//   - *model.Image: the decoded image with Name and Index unset
	//   - error: ErrUnsupportedImageFormat or ErrCorruptImage
	Decode(data []byte, mimeType string) (*model.Image, error)
}

var _ gltfImageDecoder = &gltfImageDecoderImpl{}

// newGLTFImageDecoder creates a new image decoder.
//
// Returns:
//   - gltfImageDecoder: the decoder
func newGLTFImageDecoder() gltfImageDecoder {
	return &gltfImageDecoderImpl{}
}

func (d *gltfImageDecoderImpl) Decode(data []byte, mimeType string) (*model.Image, error) {
	format, err := imageFormat(data, mimeType)
	if err != nil {
		return nil, err
	}

	var img image.Image
	switch format {
	case mimePNG:
		img, err = png.Decode(bytes.NewReader(data))
	case mimeJPEG:
		img, err = jpeg.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptImage, format, err)
	}

	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("%w: %s has no pixels", ErrCorruptImage, format)
	}

	staging := common.TextureStagingData{
		Pixels: toRGBA(img).Pix,
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
		Format: wgpu.TextureFormatRGBA8Unorm,
	}
	if len(staging.Pixels) != int(staging.BytesPerRow()*staging.Height) {
		return nil, fmt.Errorf("%w: %s decoded to %d bytes for %dx%d", ErrCorruptImage, format, len(staging.Pixels), staging.Width, staging.Height)
	}

	return &model.Image{
		MimeType:       format,
		SourceChannels: sourceChannels(img),
		Staging:        staging,
	}, nil
}

// --- Helper Functions ---

// imageFormat picks the codec for an image: the declared MIME type when it names a supported
// codec, otherwise whatever the magic bytes say.
func imageFormat(data []byte, mimeType string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case mimePNG:
		return mimePNG, nil
	case mimeJPEG, "image/jpg":
		return mimeJPEG, nil
	}

	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return "", fmt.Errorf("%w: unrecognized encoding (declared %q)", ErrUnsupportedImageFormat, mimeType)
	}
	switch kind.MIME.Value {
	case mimePNG, mimeJPEG:
		return kind.MIME.Value, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedImageFormat, kind.MIME.Value)
	}
}

// toRGBA returns the image as tightly packed RGBA8 with its origin at (0, 0).
func toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) && rgba.Stride == 4*b.Dx() {
		return rgba
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// sourceChannels reports the channel count of the decoded image before RGBA expansion.
func sourceChannels(img image.Image) int {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return 1
	case *image.YCbCr:
		return 3
	default:
		return 4
	}
}
