package loader

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
)

// LoaderBackendType identifies the model file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeGLTF selects the glTF/GLB loader backend.
	BackendTypeGLTF LoaderBackendType = iota
)

// loader is the implementation of the Loader interface.
type loader struct {
	config      Config
	logger      *slog.Logger
	fetcher     ResourceFetcher
	ownsFetcher bool

	backend loaderBackend
}

// Loader defines the public-facing interface for importing 3D models.
// It abstracts the file format behind a backend and the platform behind a ResourceFetcher.
// Every call is a cold import; nothing is cached between calls.
type Loader interface {
	// Load imports a model from a path or URL.
	// The backend is selected from the file extension (.gltf/.glb → glTF backend).
	// Desktop loaders read local paths; sandboxed loaders resolve relative paths against the configured base URL.
	//
	// Parameters:
	//   - ctx: cancels resource resolution
	//   - path: the file path or http(s) URL of the document
	//
	// Returns:
	//   - model.Model: the imported model
	//   - error: an *Error classifying the failure
	Load(ctx context.Context, path string) (model.Model, error)

	// LoadBytes imports a model from in-memory .gltf or .glb bytes.
	//
	// Parameters:
	//   - ctx: cancels resource resolution
	//   - data: the document bytes
	//   - base: the location external references resolve against, a directory or URL; may be empty
	//
	// Returns:
	//   - model.Model: the imported model
	//   - error: an *Error classifying the failure
	LoadBytes(ctx context.Context, data []byte, base string) (model.Model, error)

	// LoadReader imports a model from a reader stream.
	//
	// Parameters:
	//   - ctx: cancels resource resolution
	//   - r: the reader providing the document bytes
	//   - base: the location external references resolve against; may be empty
	//
	// Returns:
	//   - model.Model: the imported model
	//   - error: an *Error classifying the failure
	LoadReader(ctx context.Context, r io.Reader, base string) (model.Model, error)

	// Context reports the execution context imports run in.
	//
	// Returns:
	//   - ExecutionContext: the fetcher's context
	Context() ExecutionContext

	// Close releases the fetcher's workers when the Loader created the fetcher itself.
	//
	// Returns:
	//   - error: error from closing the fetcher
	Close() error
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with the specified backend type and options applied.
// Without WithFetcher, the fetcher is built from the configuration.
//
// Parameters:
//   - backendType: the type of loader backend to use (e.g., BackendTypeGLTF)
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided backend and options
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, option := range options {
		option(l)
	}

	if l.fetcher == nil {
		l.fetcher = l.config.NewFetcher()
		l.ownsFetcher = true
	}

	switch backendType {
	case BackendTypeGLTF:
		l.backend = newGLTFLoaderBackend(newGLTFImporter(l.fetcher, l.logger, l.config.Profile, l.config.GenerateNormals))
	}
	return l
}

func (l *loader) Load(ctx context.Context, path string) (model.Model, error) {
	backend, err := l.resolveBackend(path)
	if err != nil {
		return nil, err
	}

	data, base, err := l.readDocument(ctx, path)
	if err != nil {
		return nil, wrapError("load", path, err)
	}

	return backend.Load(ctx, importRequest{data: data, base: base, name: documentName(path)})
}

func (l *loader) LoadBytes(ctx context.Context, data []byte, base string) (model.Model, error) {
	if base == "" && l.fetcher.Context() == ExecutionSandboxed {
		base = l.config.BaseURL
	}
	return l.backend.Load(ctx, importRequest{data: data, base: base})
}

func (l *loader) LoadReader(ctx context.Context, r io.Reader, base string) (model.Model, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, newError("load", "reader", ErrResourceIO, "%v", err)
	}
	return l.LoadBytes(ctx, data, base)
}

func (l *loader) Context() ExecutionContext {
	return l.fetcher.Context()
}

func (l *loader) Close() error {
	if !l.ownsFetcher {
		return nil
	}
	if c, ok := l.fetcher.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// resolveBackend selects an appropriate loader backend based on the file extension.
// Currently only glTF/GLB is supported.
func (l *loader) resolveBackend(p string) (loaderBackend, error) {
	ext := strings.ToLower(path.Ext(documentPath(p)))
	for _, supported := range l.backend.Extensions() {
		if ext == supported {
			return l.backend, nil
		}
	}
	return nil, newError("load", p, ErrMalformedContainer, "unsupported model format %q", ext)
}

// readDocument reads the document bytes and returns the base its references resolve against.
func (l *loader) readDocument(ctx context.Context, p string) ([]byte, string, error) {
	switch {
	case isRemoteBase(p):
		data, err := l.fetcher.Fetch(ctx, "", p)
		return data, p, err
	case l.fetcher.Context() == ExecutionSandboxed:
		if l.config.BaseURL == "" {
			data, err := l.fetcher.Fetch(ctx, "", p)
			return data, "", err
		}
		target, err := resolveRemote(l.config.BaseURL, p)
		if err != nil {
			return nil, "", err
		}
		data, err := l.fetcher.Fetch(ctx, "", target)
		return data, target, err
	default:
		data, err := readLocalFile(p)
		return data, filepath.Dir(p), err
	}
}

// --- Helper Functions ---

// documentPath returns the slash-separated path component of a file path or URL.
func documentPath(p string) string {
	if isRemoteBase(p) {
		if u, err := url.Parse(p); err == nil {
			return u.Path
		}
	}
	return filepath.ToSlash(p)
}

// documentName derives a model name from the document's file name without its extension.
func documentName(p string) string {
	base := path.Base(documentPath(p))
	return strings.TrimSuffix(base, path.Ext(base))
}
