package loader

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-gltf/common"
)

// encodedImage is the undecoded bytes of one image plus the MIME type that applies to them.
type encodedImage struct {
	data     []byte
	mimeType string
}

// resolvedResources is the output of a resolver run. Each slot is written by exactly one job
// and read only after the dispatch barrier.
type resolvedResources struct {
	buffers [][]byte
	images  []encodedImage
}

// gltfByteResolverImpl is the implementation of the gltfByteResolver interface.
type gltfByteResolverImpl struct {
	parser  gltfParser
	fetcher ResourceFetcher
	base    string
	logger  *slog.Logger
}

// gltfByteResolver turns every buffer and image reference of a document into bytes.
// Inline data URIs are decoded, GLB-bound buffers take the BIN chunk, and everything
// else goes through the injected ResourceFetcher.
type gltfByteResolver interface {
	// Resolve produces the bytes of every buffer and the encoded bytes of every image.
	// All external references are dispatched together; the call returns after all of them finished.
	// The first failure in reference order (buffers, then images) is returned and no partial result is.
	//
	// Parameters:
	//   - ctx: cancels in-flight fetches
	//
	// Returns:
	//   - *resolvedResources: the resolved bytes
	//   - error: a Resource *Error naming the failed reference
	Resolve(ctx context.Context) (*resolvedResources, error)

	// ResolveURI resolves a single reference.
	//
	// Parameters:
	//   - ctx: cancels an in-flight fetch
	//   - uri: the reference as written in the document
	//
	// Returns:
	//   - []byte: the bytes
	//   - string: the media type carried by a data URI, empty otherwise
	//   - error: error wrapping a Resource sentinel
	ResolveURI(ctx context.Context, uri string) ([]byte, string, error)
}

var _ gltfByteResolver = &gltfByteResolverImpl{}

// newGLTFByteResolver creates a resolver for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//   - fetcher: the platform fetch capability
//   - base: the document location, a directory or an http(s) URL
//   - logger: receives a debug record per resolved reference
//
// Returns:
//   - gltfByteResolver: the resolver
func newGLTFByteResolver(parser gltfParser, fetcher ResourceFetcher, base string, logger *slog.Logger) gltfByteResolver {
	return &gltfByteResolverImpl{
		parser:  parser,
		fetcher: fetcher,
		base:    base,
		logger:  logger,
	}
}

func (r *gltfByteResolverImpl) ResolveURI(ctx context.Context, uri string) ([]byte, string, error) {
	u, err := parseURI(uri)
	if err != nil {
		return nil, "", err
	}
	if u.scheme == schemeData {
		data, err := u.decodeData()
		return data, u.mediaType, err
	}
	data, err := r.fetcher.Fetch(ctx, r.base, uri)
	if err != nil {
		return nil, "", err
	}
	return data, "", nil
}

func (r *gltfByteResolverImpl) Resolve(ctx context.Context) (*resolvedResources, error) {
	doc := r.parser.Document()
	out := &resolvedResources{
		buffers: make([][]byte, len(doc.Buffers)),
		images:  make([]encodedImage, len(doc.Images)),
	}
	bufErrs := make([]error, len(doc.Buffers))
	imgErrs := make([]error, len(doc.Images))

	var jobs []FetchJob
	for i, buf := range doc.Buffers {
		if buf.URI == "" {
			// GLB-bound buffers need no fetch; bind them before dispatch.
			out.buffers[i], bufErrs[i] = r.bindBinaryChunk(i, int(buf.ByteLength))
			continue
		}
		jobs = append(jobs, func(ctx context.Context) {
			start := time.Now()
			data, _, err := r.ResolveURI(ctx, buf.URI)
			if err != nil {
				bufErrs[i] = wrapError("resolve", fmt.Sprintf("buffers[%d] %s", i, abbreviateURI(buf.URI)), err)
				return
			}
			if len(data) < int(buf.ByteLength) {
				bufErrs[i] = newError("resolve", fmt.Sprintf("buffers[%d]", i), ErrBufferLength,
					"expected %d bytes, got %d", buf.ByteLength, len(data))
				return
			}
			out.buffers[i] = common.PadTo4(data)
			r.logger.Debug("resolved buffer", "index", i, "bytes", len(data), "elapsed", time.Since(start))
		})
	}

	for i, img := range doc.Images {
		if img.URI == "" {
			// Buffer-view images are sliced after the barrier.
			continue
		}
		jobs = append(jobs, func(ctx context.Context) {
			start := time.Now()
			data, mediaType, err := r.ResolveURI(ctx, img.URI)
			if err != nil {
				imgErrs[i] = wrapError("resolve", fmt.Sprintf("images[%d] %s", i, abbreviateURI(img.URI)), err)
				return
			}
			out.images[i] = encodedImage{data: data, mimeType: common.Coalesce(mediaType, img.MimeType)}
			r.logger.Debug("resolved image", "index", i, "bytes", len(data), "elapsed", time.Since(start))
		})
	}

	if len(jobs) > 0 {
		r.fetcher.Dispatch(ctx, jobs)
	}

	for _, err := range bufErrs {
		if err != nil {
			return nil, err
		}
	}

	for i, img := range doc.Images {
		if imgErrs[i] != nil {
			return nil, imgErrs[i]
		}
		if img.URI != "" {
			continue
		}
		if img.BufferView == nil {
			return nil, newError("resolve", fmt.Sprintf("images[%d]", i), ErrResourceNotFound, "image has neither uri nor bufferView")
		}
		data, err := bufferViewBytes(doc, out.buffers, *img.BufferView)
		if err != nil {
			return nil, wrapError("resolve", fmt.Sprintf("images[%d]", i), err)
		}
		out.images[i] = encodedImage{data: data, mimeType: img.MimeType}
	}

	return out, nil
}

// bindBinaryChunk returns the GLB BIN chunk for a buffer without a URI.
// Only buffers[0] may refer to the BIN chunk.
func (r *gltfByteResolverImpl) bindBinaryChunk(index, byteLength int) ([]byte, error) {
	ref := fmt.Sprintf("buffers[%d]", index)
	if index != 0 {
		return nil, newError("resolve", ref, ErrMissingBinaryChunk, "only buffers[0] may refer to the BIN chunk; this buffer needs a uri")
	}
	bin := r.parser.BinaryChunk()
	if bin == nil {
		return nil, newError("resolve", ref, ErrMissingBinaryChunk, "buffer has no uri and the container has no BIN chunk")
	}
	if byteLength > len(bin) {
		return nil, newError("resolve", ref, ErrChunkOutOfBounds, "byteLength %d exceeds BIN chunk of %d bytes", byteLength, len(bin))
	}
	return common.PadTo4(bin), nil
}

// --- Helper Functions ---

// abbreviateURI shortens data URIs for error references.
func abbreviateURI(uri string) string {
	const limit = 48
	if len(uri) <= limit {
		return uri
	}
	return uri[:limit] + "..."
}
