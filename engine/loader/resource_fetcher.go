package loader

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ExecutionContext identifies the platform an import runs on.
// It decides which URI schemes are reachable and how resource resolution is parallelized.
type ExecutionContext int

const (
	// ExecutionDesktop is a native process with filesystem access and a worker pool.
	ExecutionDesktop ExecutionContext = iota
	// ExecutionSandboxed is a browser sandbox: HTTP(S) only, cooperative concurrency, no blocking I/O.
	ExecutionSandboxed
)

// String returns the configuration name of the context.
func (c ExecutionContext) String() string {
	if c == ExecutionSandboxed {
		return "sandboxed"
	}
	return "desktop"
}

// ParseExecutionContext parses "desktop" or "sandboxed".
//
// Parameters:
//   - s: the context name, case-insensitive
//
// Returns:
//   - ExecutionContext: the parsed context
//   - error: error if the name is unknown
func ParseExecutionContext(s string) (ExecutionContext, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "desktop", "native":
		return ExecutionDesktop, nil
	case "sandboxed", "sandbox", "web", "wasm":
		return ExecutionSandboxed, nil
	default:
		return 0, fmt.Errorf("unknown execution context %q", s)
	}
}

func (c ExecutionContext) MarshalYAML() (any, error) {
	return c.String(), nil
}

func (c *ExecutionContext) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseExecutionContext(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// FetchJob is one unit of resource resolution handed to a ResourceFetcher for dispatch.
// It owns its result slot; it must not touch shared state.
type FetchJob func(ctx context.Context)

// ResourceFetcher is the platform capability that reaches external resources.
// Inline data URIs and GLB chunks never reach it; it only sees references the document
// points outside of itself. The desktop and sandboxed implementations are injected into
// the Loader; nothing in the pipeline branches on the platform.
type ResourceFetcher interface {
	// Context reports the execution context this fetcher implements.
	//
	// Returns:
	//   - ExecutionContext: the context
	Context() ExecutionContext

	// Fetch retrieves the bytes behind an external reference.
	// Failures wrap ErrResourceNotFound, ErrResourceIO, ErrNetwork, ErrDisallowedScheme or ErrUnsupportedScheme.
	//
	// Parameters:
	//   - ctx: cancels an in-flight fetch
	//   - base: the document location, a directory path or a URL
	//   - uri: the reference as written in the document
	//
	// Returns:
	//   - []byte: the resource bytes
	//   - error: error if the resource could not be produced
	Fetch(ctx context.Context, base, uri string) ([]byte, error)

	// Dispatch runs every job and returns only after all of them have finished.
	//
	// Parameters:
	//   - ctx: passed to each job
	//   - jobs: the jobs to run
	Dispatch(ctx context.Context, jobs []FetchJob)
}
