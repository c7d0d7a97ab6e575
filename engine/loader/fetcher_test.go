package loader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newAssetServer serves files from a map under /assets/ and records the User-Agent of the last request.
func newAssetServer(t *testing.T, files map[string][]byte) (*httptest.Server, *atomic.Value) {
	t.Helper()
	var agent atomic.Value
	agent.Store("")

	r := mux.NewRouter()
	r.HandleFunc("/assets/{name:.+}", func(w http.ResponseWriter, req *http.Request) {
		agent.Store(req.UserAgent())
		data, ok := files[mux.Vars(req)["name"]]
		if !ok {
			http.NotFound(w, req)
			return
		}
		w.Write(data)
	}).Methods(http.MethodGet)
	r.HandleFunc("/broken", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, &agent
}

func TestDesktopFetchLocal(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub dir"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mesh.bin"), []byte{1, 2}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub dir", "a b.png"), []byte{3}, 0o644))

	f := NewDesktopFetcher(WithDesktopWorkers(2))
	t.Cleanup(func() { f.(*desktopFetcherImpl).Close() })
	ctx := context.Background()
	assert.Equal(t, ExecutionDesktop, f.Context())

	data, err := f.Fetch(ctx, dir, "mesh.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, data)

	data, err = f.Fetch(ctx, dir, "sub%20dir/a%20b.png")
	require.NoError(t, err)
	assert.Equal(t, []byte{3}, data)

	data, err = f.Fetch(ctx, "", "file://"+filepath.ToSlash(filepath.Join(dir, "mesh.bin")))
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, data)

	data, err = f.Fetch(ctx, dir, "data:,inline")
	require.NoError(t, err)
	assert.Equal(t, "inline", string(data))
}

func TestDesktopFetchErrors(t *testing.T) {
	dir := t.TempDir()
	f := NewDesktopFetcher()
	t.Cleanup(func() { f.(*desktopFetcherImpl).Close() })
	ctx := context.Background()

	_, err := f.Fetch(ctx, dir, "missing.bin")
	assert.ErrorIs(t, err, ErrResourceNotFound)
	assert.Equal(t, CategoryResource, CategoryOf(err))

	_, err = f.Fetch(ctx, dir, "https://example.com/mesh.bin")
	assert.ErrorIs(t, err, ErrDisallowedScheme)

	_, err = f.Fetch(ctx, "https://example.com/models/", "mesh.bin")
	assert.ErrorIs(t, err, ErrDisallowedScheme)

	_, err = f.Fetch(ctx, dir, "ftp://example.com/mesh.bin")
	assert.ErrorIs(t, err, ErrUnsupportedScheme)

	_, err = f.Fetch(ctx, dir, ".")
	assert.ErrorIs(t, err, ErrResourceIO, "reading a directory")

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = f.Fetch(canceled, dir, "missing.bin")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDesktopFetchRemote(t *testing.T) {
	srv, agent := newAssetServer(t, map[string][]byte{"mesh.bin": {7, 7}})

	f := NewDesktopFetcher(WithRemoteAccess(srv.Client(), "oxy-test"))
	t.Cleanup(func() { f.(*desktopFetcherImpl).Close() })

	data, err := f.Fetch(context.Background(), srv.URL+"/assets/scene.gltf", "mesh.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte{7, 7}, data)
	assert.Equal(t, "oxy-test", agent.Load())
}

func TestDesktopDispatchRunsEveryJob(t *testing.T) {
	f := NewDesktopFetcher(WithDesktopWorkers(3))
	t.Cleanup(func() { f.(*desktopFetcherImpl).Close() })

	var ran atomic.Int32
	jobs := make([]FetchJob, 50)
	for i := range jobs {
		jobs[i] = func(context.Context) { ran.Add(1) }
	}
	f.Dispatch(context.Background(), jobs)
	assert.Equal(t, int32(50), ran.Load())

	// The pool is reusable across dispatches.
	f.Dispatch(context.Background(), jobs[:5])
	assert.Equal(t, int32(55), ran.Load())
}

func TestDesktopFetcherAfterClose(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.bin"), []byte{1}, 0o644))

	f := NewDesktopFetcher(WithDesktopWorkers(2))
	impl := f.(*desktopFetcherImpl)
	require.NoError(t, impl.Close())
	require.NoError(t, impl.Close(), "closing twice is a no-op")

	_, err := f.Fetch(context.Background(), dir, "a.bin")
	assert.ErrorIs(t, err, ErrResourceIO)

	var ran atomic.Int32
	f.Dispatch(context.Background(), []FetchJob{
		func(context.Context) { ran.Add(1) },
		func(context.Context) { ran.Add(1) },
	})
	assert.Equal(t, int32(2), ran.Load())
}

func TestSandboxFetch(t *testing.T) {
	srv, agent := newAssetServer(t, map[string][]byte{
		"mesh.bin":         {1, 2, 3},
		"textures/sky.png": {4},
	})
	f := NewSandboxFetcher(WithSandboxClient(srv.Client()), WithSandboxUserAgent("oxy-web"))
	ctx := context.Background()
	base := srv.URL + "/assets/scene.gltf"
	assert.Equal(t, ExecutionSandboxed, f.Context())

	data, err := f.Fetch(ctx, base, "mesh.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)
	assert.Equal(t, "oxy-web", agent.Load())

	data, err = f.Fetch(ctx, base, "textures/sky.png")
	require.NoError(t, err)
	assert.Equal(t, []byte{4}, data)

	data, err = f.Fetch(ctx, "", srv.URL+"/assets/mesh.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)
}

func TestSandboxFetchErrors(t *testing.T) {
	srv, _ := newAssetServer(t, nil)
	f := NewSandboxFetcher(WithSandboxClient(srv.Client()))
	ctx := context.Background()
	base := srv.URL + "/assets/scene.gltf"

	_, err := f.Fetch(ctx, base, "missing.bin")
	assert.ErrorIs(t, err, ErrResourceNotFound)

	_, err = f.Fetch(ctx, "", srv.URL+"/broken")
	assert.ErrorIs(t, err, ErrNetwork)

	_, err = f.Fetch(ctx, base, "file:///etc/passwd")
	assert.ErrorIs(t, err, ErrDisallowedScheme)

	_, err = f.Fetch(ctx, "/models", "mesh.bin")
	assert.ErrorIs(t, err, ErrDisallowedScheme)

	_, err = f.Fetch(ctx, base, "s3://bucket/mesh.bin")
	assert.ErrorIs(t, err, ErrUnsupportedScheme)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = f.Fetch(canceled, base, "missing.bin")
	assert.ErrorIs(t, err, ErrNetwork)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSandboxDispatch(t *testing.T) {
	f := NewSandboxFetcher()
	var ran atomic.Int32
	jobs := []FetchJob{
		func(context.Context) { ran.Add(1) },
		func(context.Context) { ran.Add(1) },
	}
	f.Dispatch(context.Background(), jobs)
	assert.Equal(t, int32(2), ran.Load())
}

func TestResolveRemote(t *testing.T) {
	got, err := resolveRemote("https://cdn.example.com/models/duck/duck.gltf", "../shared/duck.bin")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/models/shared/duck.bin", got)

	got, err = resolveRemote("https://cdn.example.com/models/duck.gltf", "tex%20a.png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/models/tex%20a.png", got)
}
