package loader

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/Carmen-Shannon/oxy-gltf/engine/profiler"

	"github.com/google/uuid"
	"github.com/qmuntal/gltf"
)

// importRequest is one document handed to the importer.
type importRequest struct {
	// data is the complete .gltf or .glb bytes.
	data []byte
	// base is the document location external references resolve against.
	base string
	// name becomes the model name; empty falls back to the document.
	name string
}

// gltfImporterImpl is the implementation of the gltfImporter interface.
type gltfImporterImpl struct {
	fetcher         ResourceFetcher
	logger          *slog.Logger
	profile         bool
	generateNormals bool
}

// gltfImporter defines the interface for orchestrating a full glTF/GLB import.
// Each call is a cold pipeline run: parse, validate, resolve, decode, build.
type gltfImporter interface {
	// Import runs the pipeline over one document.
	// The first failing phase aborts the import; no partial model is returned.
	//
	// Parameters:
	//   - ctx: cancels resource resolution
	//   - req: the document and its location
	//
	// Returns:
	//   - model.Model: the scene graph
	//   - error: an *Error classifying the failure
	Import(ctx context.Context, req importRequest) (model.Model, error)
}

var _ gltfImporter = &gltfImporterImpl{}

// newGLTFImporter creates a new glTF importer.
//
// Parameters:
//   - fetcher: the platform fetch capability
//   - logger: the base logger; every import adds its own import_id
//   - profile: whether to record per-phase timings
//   - generateNormals: whether primitives without normals get generated ones
//
// Returns:
//   - gltfImporter: the importer
func newGLTFImporter(fetcher ResourceFetcher, logger *slog.Logger, profile, generateNormals bool) gltfImporter {
	return &gltfImporterImpl{
		fetcher:         fetcher,
		logger:          logger,
		profile:         profile,
		generateNormals: generateNormals,
	}
}

func (imp *gltfImporterImpl) Import(ctx context.Context, req importRequest) (model.Model, error) {
	logger := imp.logger.With("import_id", uuid.NewString())
	if req.name != "" {
		logger = logger.With("model", req.name)
	}

	var prof *profiler.Profiler
	if imp.profile {
		prof = profiler.NewProfiler(logger)
	}
	defer prof.Finish()

	prof.Mark("parse")
	parser := newGLTFParser()
	if err := parser.Parse(req.data); err != nil {
		logger.Debug("parse failed", "error", err)
		return nil, err
	}
	doc := parser.Document()
	logger.Debug("parsed",
		"glb", parser.IsGLB(), "version", doc.Asset.Version, "generator", doc.Asset.Generator,
		"buffers", len(doc.Buffers), "images", len(doc.Images), "nodes", len(doc.Nodes))

	prof.Mark("validate")
	if err := newGLTFValidator(parser).Validate(); err != nil {
		logger.Debug("validation failed", "issues", len(Issues(err)), "error", err)
		return nil, err
	}

	prof.Mark("resolve")
	resolver := newGLTFByteResolver(parser, imp.fetcher, req.base, logger)
	resources, err := resolver.Resolve(ctx)
	if err != nil {
		logger.Debug("resolve failed", "error", err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prof.Mark("decode")
	images, err := imp.decodeImages(ctx, doc.Images, resources.images)
	if err != nil {
		logger.Debug("decode failed", "error", err)
		return nil, err
	}

	prof.Mark("build")
	m, err := newGLTFSceneBuilder(parser, resources.buffers, logger, imp.generateNormals).Build(req.name, images)
	if err != nil {
		logger.Debug("build failed", "error", err)
		return nil, err
	}

	logger.Info("imported model",
		"name", m.Name(),
		"context", imp.fetcher.Context(),
		"nodes", len(m.Nodes()),
		"meshes", len(m.Meshes()),
		"materials", len(m.Materials()),
		"images", len(m.Images()))
	return m, nil
}

// decodeImages decodes every resolved image once, using the fetcher's dispatch for parallelism.
// The lowest failing image index wins.
func (imp *gltfImporterImpl) decodeImages(ctx context.Context, declared []*gltf.Image, encoded []encodedImage) ([]model.Image, error) {
	decoder := newGLTFImageDecoder()
	images := make([]model.Image, len(encoded))
	errs := make([]error, len(encoded))

	jobs := make([]FetchJob, len(encoded))
	for i := range encoded {
		jobs[i] = func(context.Context) {
			img, err := decoder.Decode(encoded[i].data, encoded[i].mimeType)
			if err != nil {
				errs[i] = wrapError("decode", fmt.Sprintf("images[%d]", i), err)
				return
			}
			img.Name = declared[i].Name
			img.Index = i
			images[i] = *img
		}
	}
	if len(jobs) > 0 {
		imp.fetcher.Dispatch(ctx, jobs)
	}

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return images, nil
}
