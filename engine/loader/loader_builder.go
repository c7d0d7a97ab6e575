package loader

import (
	"log/slog"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
// Options apply in order, so WithConfig replaces settings made by earlier options.
type LoaderBuilderOption func(*loader)

// WithConfig is an option builder that sets the declarative configuration of the Loader.
//
// Parameters:
//   - cfg: the configuration, usually from LoadConfig or ParseConfig
//
// Returns:
//   - LoaderBuilderOption: a function that applies the configuration to a loader
func WithConfig(cfg Config) LoaderBuilderOption {
	return func(l *loader) {
		l.config = cfg
	}
}

// WithLogger is an option builder that sets the structured logger.
//
// Parameters:
//   - logger: the logger, nil keeps slog.Default()
//
// Returns:
//   - LoaderBuilderOption: a function that applies the logger option to a loader
func WithLogger(logger *slog.Logger) LoaderBuilderOption {
	return func(l *loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithFetcher is an option builder that injects the platform fetch capability.
// An injected fetcher is not closed by the Loader.
//
// Parameters:
//   - fetcher: the fetcher
//
// Returns:
//   - LoaderBuilderOption: a function that applies the fetcher option to a loader
func WithFetcher(fetcher ResourceFetcher) LoaderBuilderOption {
	return func(l *loader) {
		l.fetcher = fetcher
	}
}

// WithProfiling is an option builder that toggles per-phase timing logs.
//
// Parameters:
//   - enabled: whether to profile imports
//
// Returns:
//   - LoaderBuilderOption: a function that applies the profiling option to a loader
func WithProfiling(enabled bool) LoaderBuilderOption {
	return func(l *loader) {
		l.config.Profile = enabled
	}
}

// WithNormalGeneration is an option builder that toggles normal and tangent synthesis
// for triangle primitives that declare none.
//
// Parameters:
//   - enabled: whether to generate missing normals and tangents
//
// Returns:
//   - LoaderBuilderOption: a function that applies the option to a loader
func WithNormalGeneration(enabled bool) LoaderBuilderOption {
	return func(l *loader) {
		l.config.GenerateNormals = enabled
	}
}
