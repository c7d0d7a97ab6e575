package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// sandboxFetcherImpl is the browser-sandbox implementation of ResourceFetcher.
type sandboxFetcherImpl struct {
	client    *http.Client
	userAgent string
}

// SandboxFetcherOption is a functional option for configuring the sandboxed fetcher via NewSandboxFetcher.
type SandboxFetcherOption func(*sandboxFetcherImpl)

var _ ResourceFetcher = &sandboxFetcherImpl{}

// NewSandboxFetcher creates a ResourceFetcher for browser sandboxes.
// Only http and https are reachable; relative references resolve against the document URL.
// Under js/wasm net/http is backed by the browser fetch API, so every request is non-blocking
// from the event loop's point of view.
//
// Parameters:
//   - options: a variadic list of SandboxFetcherOption functions
//
// Returns:
//   - ResourceFetcher: the sandboxed fetcher
func NewSandboxFetcher(options ...SandboxFetcherOption) ResourceFetcher {
	f := &sandboxFetcherImpl{
		client: http.DefaultClient,
	}
	for _, option := range options {
		option(f)
	}
	return f
}

// WithSandboxClient is an option builder that sets the HTTP client.
//
// Parameters:
//   - client: the client used for every request
//
// Returns:
//   - SandboxFetcherOption: a function that applies the client
func WithSandboxClient(client *http.Client) SandboxFetcherOption {
	return func(f *sandboxFetcherImpl) {
		if client != nil {
			f.client = client
		}
	}
}

// WithSandboxUserAgent is an option builder that sets the User-Agent header.
//
// Parameters:
//   - userAgent: the header value
//
// Returns:
//   - SandboxFetcherOption: a function that applies the header
func WithSandboxUserAgent(userAgent string) SandboxFetcherOption {
	return func(f *sandboxFetcherImpl) {
		f.userAgent = userAgent
	}
}

func (f *sandboxFetcherImpl) Context() ExecutionContext {
	return ExecutionSandboxed
}

func (f *sandboxFetcherImpl) Fetch(ctx context.Context, base, uri string) ([]byte, error) {
	u, err := parseURI(uri)
	if err != nil {
		return nil, err
	}

	switch u.scheme {
	case schemeData:
		return u.decodeData()
	case schemeRemote:
		return fetchHTTP(ctx, f.client, f.userAgent, uri)
	case schemeRelative:
		if !isRemoteBase(base) {
			return nil, fmt.Errorf("%w: relative reference %q needs an http(s) base, got %q", ErrDisallowedScheme, uri, base)
		}
		target, err := resolveRemote(base, uri)
		if err != nil {
			return nil, err
		}
		return fetchHTTP(ctx, f.client, f.userAgent, target)
	case schemeFile:
		return nil, fmt.Errorf("%w: file", ErrDisallowedScheme)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.name)
	}
}

func (f *sandboxFetcherImpl) Dispatch(ctx context.Context, jobs []FetchJob) {
	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Go(func() {
			job(ctx)
		})
	}
	wg.Wait()
}

// --- Helper Functions ---

// isRemoteBase reports whether a document base is an http(s) URL.
func isRemoteBase(base string) bool {
	lower := strings.ToLower(base)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// resolveRemote resolves a relative reference against an http(s) base.
// The base names the document itself, so its last path segment is dropped.
func resolveRemote(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("%w: base %q: %v", ErrNetwork, base, err)
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("%w: reference %q: %v", ErrNetwork, ref, err)
	}
	return b.ResolveReference(r).String(), nil
}

// fetchHTTP performs a GET. 404 and 410 map to ErrResourceNotFound; any other
// non-2xx status and every transport failure map to ErrNetwork.
func fetchHTTP(ctx context.Context, client *http.Client, userAgent, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		return nil, fmt.Errorf("%w: %s (%s)", ErrResourceNotFound, target, resp.Status)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: %s (%s)", ErrNetwork, target, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrNetwork, target, err)
	}
	return data, nil
}
