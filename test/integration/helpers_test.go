//go:build integration

package integration_test

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/oppnys/oppnys/internal/registry"
)

// testEnv holds paths to isolated test directories.
type testEnv struct {
	HomeDir    string // CLI_HOME
	DepsDir    string // <CLI_HOME>/dependencies, the cache root
	ProjectDir string // working directory of dispatched commands
}

// setupTestEnv creates isolated temp directories and points CLI_HOME at them.
// The env vars are restored after the test.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		HomeDir:    t.TempDir(),
		ProjectDir: t.TempDir(),
	}
	env.DepsDir = filepath.Join(env.HomeDir, "dependencies")

	t.Setenv("CLI_HOME", env.HomeDir)
	t.Setenv("CLI_TARGET_PATH", "")
	return env
}

// fakeRegistry is an in-memory npm registry serving packuments and tarballs.
type fakeRegistry struct {
	t   *testing.T
	srv *httptest.Server

	mu       sync.Mutex
	docs     map[string]*registry.Packument
	tarballs map[string][]byte

	docHits     atomic.Int32
	tarballHits atomic.Int32
}

func newFakeRegistry(t *testing.T) *fakeRegistry {
	t.Helper()
	r := &fakeRegistry{
		t:        t,
		docs:     map[string]*registry.Packument{},
		tarballs: map[string][]byte{},
	}
	r.srv = httptest.NewServer(http.HandlerFunc(r.serve))
	t.Cleanup(r.srv.Close)
	return r
}

func (r *fakeRegistry) URL() string { return r.srv.URL }

func (r *fakeRegistry) serve(w http.ResponseWriter, req *http.Request) {
	path := strings.TrimPrefix(req.URL.Path, "/")

	r.mu.Lock()
	defer r.mu.Unlock()

	if data, ok := r.tarballs[path]; ok {
		r.tarballHits.Add(1)
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(data)
		return
	}
	if doc, ok := r.docs[path]; ok {
		r.docHits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(doc)
		return
	}
	http.NotFound(w, req)
}

// publish adds version of name with the given files, placed under the
// "package/" prefix registry tarballs use.
func (r *fakeRegistry) publish(name, version string, files map[string]fileSpec) {
	r.t.Helper()
	data := buildTarball(r.t, files)
	tarPath := "-/" + strings.ReplaceAll(name, "/", "-") + "-" + version + ".tgz"
	sum := sha512.Sum512(data)

	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[name]
	if !ok {
		doc = &registry.Packument{Name: name, Versions: map[string]registry.VersionMeta{}}
		r.docs[name] = doc
	}
	doc.Versions[version] = registry.VersionMeta{
		Name:    name,
		Version: version,
		Dist: registry.Dist{
			Tarball:   r.srv.URL + "/" + tarPath,
			Integrity: "sha512-" + base64.StdEncoding.EncodeToString(sum[:]),
		},
	}
	r.tarballs[tarPath] = data
}

type fileSpec struct {
	body string
	mode int64
}

func buildTarball(t *testing.T, files map[string]fileSpec) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, f := range files {
		mode := f.mode
		if mode == 0 {
			mode = 0o644
		}
		hdr := &tar.Header{
			Name:     "package/" + name,
			Mode:     mode,
			Size:     int64(len(f.body)),
			Typeflag: tar.TypeReg,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("writing tar header for %s: %v", name, err)
		}
		if _, err := tw.Write([]byte(f.body)); err != nil {
			t.Fatalf("writing tar body for %s: %v", name, err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("closing tar: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("closing gzip: %v", err)
	}
	return buf.Bytes()
}

func packageJSON(name, version, main string) string {
	data, _ := json.Marshal(map[string]string{"name": name, "version": version, "main": main})
	return string(data)
}

func assertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("expected file to exist: %s", path)
	}
}

func assertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("expected directory to exist: %s", path)
		return
	}
	if err == nil && !info.IsDir() {
		t.Errorf("expected %s to be a directory", path)
	}
}

func assertFileContains(t *testing.T, path, substr string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	if !strings.Contains(string(data), substr) {
		t.Errorf("file %s does not contain %q:\n%s", path, substr, data)
	}
}
