package loader

import (
	"context"

	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
)

// loaderBackend defines the generic interface for importing one model format.
// Concrete implementations (e.g., gltfLoaderBackend) handle format-specific details.
type loaderBackend interface {
	// Load performs a full import of one document.
	//
	// Parameters:
	//   - ctx: cancels resource resolution
	//   - req: the document bytes and their location
	//
	// Returns:
	//   - model.Model: the imported model
	//   - error: error if importing fails
	Load(ctx context.Context, req importRequest) (model.Model, error)

	// Extensions lists the lower-case file extensions this backend accepts, including the dot.
	//
	// Returns:
	//   - []string: the extensions
	Extensions() []string
}
