package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// desktopFetcherImpl is the desktop implementation of ResourceFetcher.
type desktopFetcherImpl struct {
	pool        worker.DynamicWorkerPool
	workers     int
	queueSize   int
	allowRemote bool
	client      *http.Client
	userAgent   string
	closed      atomic.Bool
}

// DesktopFetcherOption is a functional option for configuring the desktop fetcher via NewDesktopFetcher.
type DesktopFetcherOption func(*desktopFetcherImpl)

var _ ResourceFetcher = &desktopFetcherImpl{}

// NewDesktopFetcher creates a ResourceFetcher for native processes.
// Relative paths resolve against the document directory, file: URIs are read directly,
// and http(s) URLs are fetched only when remote access is enabled.
// Dispatch runs jobs on a worker pool that lives until Close. A closed fetcher must not be reused.
//
// Parameters:
//   - options: a variadic list of DesktopFetcherOption functions
//
// Returns:
//   - ResourceFetcher: the desktop fetcher
func NewDesktopFetcher(options ...DesktopFetcherOption) ResourceFetcher {
	f := &desktopFetcherImpl{
		workers:   max(runtime.NumCPU()-1, 1),
		queueSize: 256,
		client:    http.DefaultClient,
	}
	for _, option := range options {
		option(f)
	}
	f.pool = worker.NewDynamicWorkerPool(f.workers, f.queueSize, 1*time.Second)
	return f
}

// WithDesktopWorkers is an option builder that sets the worker pool size.
//
// Parameters:
//   - n: the number of workers, values below 1 are raised to 1
//
// Returns:
//   - DesktopFetcherOption: a function that applies the worker count
func WithDesktopWorkers(n int) DesktopFetcherOption {
	return func(f *desktopFetcherImpl) {
		f.workers = max(n, 1)
	}
}

// WithRemoteAccess is an option builder that allows http(s) references on desktop.
//
// Parameters:
//   - client: the HTTP client to use, nil for http.DefaultClient
//   - userAgent: the User-Agent header, empty to leave the client default
//
// Returns:
//   - DesktopFetcherOption: a function that enables remote fetches
func WithRemoteAccess(client *http.Client, userAgent string) DesktopFetcherOption {
	return func(f *desktopFetcherImpl) {
		f.allowRemote = true
		if client != nil {
			f.client = client
		}
		f.userAgent = userAgent
	}
}

func (f *desktopFetcherImpl) Context() ExecutionContext {
	return ExecutionDesktop
}

func (f *desktopFetcherImpl) Fetch(ctx context.Context, base, uri string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.closed.Load() {
		return nil, fmt.Errorf("%w: fetcher is closed", ErrResourceIO)
	}

	u, err := parseURI(uri)
	if err != nil {
		return nil, err
	}

	switch u.scheme {
	case schemeData:
		return u.decodeData()
	case schemeRelative:
		if isRemoteBase(base) {
			if !f.allowRemote {
				return nil, fmt.Errorf("%w: %s relative to %s", ErrDisallowedScheme, uri, base)
			}
			target, err := resolveRemote(base, uri)
			if err != nil {
				return nil, err
			}
			return fetchHTTP(ctx, f.client, f.userAgent, target)
		}
		p, err := url.PathUnescape(u.path)
		if err != nil {
			p = u.path
		}
		return readLocalFile(filepath.Join(base, filepath.FromSlash(p)))
	case schemeFile:
		p, err := url.PathUnescape(u.path)
		if err != nil {
			p = u.path
		}
		return readLocalFile(filepath.FromSlash(p))
	case schemeRemote:
		if !f.allowRemote {
			return nil, fmt.Errorf("%w: %s", ErrDisallowedScheme, u.name)
		}
		return fetchHTTP(ctx, f.client, f.userAgent, uri)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.name)
	}
}

func (f *desktopFetcherImpl) Dispatch(ctx context.Context, jobs []FetchJob) {
	// The pool is long-lived and its Wait blocks until workers idle-exit,
	// so each dispatch gets its own barrier.
	if f.closed.Load() {
		// Stopped workers may still drain the queue; run on the caller instead.
		for _, job := range jobs {
			job(ctx)
		}
		return
	}
	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Add(1)
		f.pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				job(ctx)
				return nil, nil
			},
		})
	}
	wg.Wait()
}

// Close stops the worker pool. Stopping is best effort: idle workers exit on their own timeout,
// so goroutines may outlive the call. A closed fetcher must not be reused; Fetch fails with
// ErrResourceIO and Dispatch runs jobs on the calling goroutine.
func (f *desktopFetcherImpl) Close() error {
	if f.closed.Swap(true) {
		return nil
	}
	f.pool.Stop()
	return nil
}

// --- Helper Functions ---

// readLocalFile reads a file, mapping a missing file to ErrResourceNotFound and anything else to ErrResourceIO.
func readLocalFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, path)
		}
		return nil, fmt.Errorf("%w: %v", ErrResourceIO, err)
	}
	return data, nil
}
