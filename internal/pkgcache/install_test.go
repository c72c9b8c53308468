package pkgcache

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha1"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oppnys/oppnys/internal/registry"
)

type tarEntry struct {
	name     string
	body     string
	mode     int64
	typeflag byte
}

func buildTarball(t *testing.T, entries []tarEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: e.mode, Typeflag: e.typeflag}
		if hdr.Typeflag == 0 {
			hdr.Typeflag = tar.TypeReg
		}
		if hdr.Typeflag == tar.TypeReg {
			hdr.Size = int64(len(e.body))
		}
		if hdr.Typeflag == tar.TypeSymlink {
			hdr.Linkname = e.body
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if hdr.Typeflag == tar.TypeReg {
			_, err := tw.Write([]byte(e.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func integrityOf(data []byte) string {
	sum := sha512.Sum512(data)
	return "sha512-" + base64.StdEncoding.EncodeToString(sum[:])
}

func shasumOf(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

// staticFetcher serves one packument.
type staticFetcher struct {
	doc *registry.Packument
	err error
}

func (f staticFetcher) Packument(context.Context, string) (*registry.Packument, error) {
	return f.doc, f.err
}

func serveTarball(t *testing.T, data []byte) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pkg/-/pkg-1.0.0.tgz" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv.URL + "/pkg/-/pkg-1.0.0.tgz"
}

func packumentFor(tarball string, dist registry.Dist) *registry.Packument {
	dist.Tarball = tarball
	return &registry.Packument{
		Name: "pkg",
		Versions: map[string]registry.VersionMeta{
			"1.0.0": {Name: "pkg", Version: "1.0.0", Dist: dist},
		},
	}
}

var samplePackage = []tarEntry{
	{name: "package/", typeflag: tar.TypeDir, mode: 0o755},
	{name: "package/package.json", body: `{"name":"pkg","version":"1.0.0","main":"lib/index.js"}`, mode: 0o644},
	{name: "package/lib/index.js", body: "module.exports = () => 0\n", mode: 0o644},
	{name: "package/bin/pkg", body: "#!/bin/sh\nexit 0\n", mode: 0o755},
	{name: "package/link", body: "/etc/passwd", typeflag: tar.TypeSymlink},
}

func TestTarballInstallerIntegrity(t *testing.T) {
	data := buildTarball(t, samplePackage)
	url := serveTarball(t, data)
	inst := NewTarballInstaller(staticFetcher{doc: packumentFor(url, registry.Dist{Integrity: integrityOf(data)})})

	dir := t.TempDir()
	ref := NewReference("pkg", "1.0.0").WithResolved("1.0.0")
	require.NoError(t, inst.Install(context.Background(), ref, dir))

	assert.FileExists(t, filepath.Join(dir, "package.json"))
	got, err := os.ReadFile(filepath.Join(dir, "lib", "index.js"))
	require.NoError(t, err)
	assert.Equal(t, "module.exports = () => 0\n", string(got))

	_, err = os.Lstat(filepath.Join(dir, "link"))
	assert.True(t, os.IsNotExist(err), "symlink entries must be skipped")

	if runtime.GOOS != "windows" {
		info, err := os.Stat(filepath.Join(dir, "bin", "pkg"))
		require.NoError(t, err)
		assert.NotZero(t, info.Mode().Perm()&0o100, "executable bit lost")
	}
}

func TestTarballInstallerShasumFallback(t *testing.T) {
	data := buildTarball(t, samplePackage)
	url := serveTarball(t, data)
	inst := NewTarballInstaller(staticFetcher{doc: packumentFor(url, registry.Dist{Shasum: shasumOf(data)})})

	err := inst.Install(context.Background(), NewReference("pkg", "").WithResolved("1.0.0"), t.TempDir())
	assert.NoError(t, err)
}

func TestTarballInstallerChecksumMismatch(t *testing.T) {
	data := buildTarball(t, samplePackage)
	url := serveTarball(t, data)
	other := integrityOf([]byte("something else"))
	inst := NewTarballInstaller(staticFetcher{doc: packumentFor(url, registry.Dist{Integrity: other})})

	err := inst.Install(context.Background(), NewReference("pkg", "").WithResolved("1.0.0"), t.TempDir())
	assert.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestTarballInstallerRejectsTraversal(t *testing.T) {
	data := buildTarball(t, []tarEntry{
		{name: "package/package.json", body: `{}`, mode: 0o644},
		{name: "package/../../escape.txt", body: "x", mode: 0o644},
	})
	url := serveTarball(t, data)
	inst := NewTarballInstaller(staticFetcher{doc: packumentFor(url, registry.Dist{Integrity: integrityOf(data)})})

	dest := filepath.Join(t.TempDir(), "dest")
	require.NoError(t, os.Mkdir(dest, 0o755))
	err := inst.Install(context.Background(), NewReference("pkg", "").WithResolved("1.0.0"), dest)
	assert.ErrorIs(t, err, ErrUnsafePath)
	assert.NoFileExists(t, filepath.Join(filepath.Dir(dest), "escape.txt"))
}

func TestTarballInstallerIncompletePackage(t *testing.T) {
	data := buildTarball(t, []tarEntry{{name: "package/index.js", body: "", mode: 0o644}})
	url := serveTarball(t, data)
	inst := NewTarballInstaller(staticFetcher{doc: packumentFor(url, registry.Dist{Integrity: integrityOf(data)})})

	err := inst.Install(context.Background(), NewReference("pkg", "").WithResolved("1.0.0"), t.TempDir())
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestTarballInstallerUnknownVersion(t *testing.T) {
	inst := NewTarballInstaller(staticFetcher{doc: packumentFor("http://unused", registry.Dist{})})
	err := inst.Install(context.Background(), NewReference("pkg", "").WithResolved("9.9.9"), t.TempDir())
	assert.ErrorContains(t, err, "9.9.9")
}

func TestTarballInstallerFetchError(t *testing.T) {
	want := errors.New("registry down")
	inst := NewTarballInstaller(staticFetcher{err: want})
	err := inst.Install(context.Background(), NewReference("pkg", "").WithResolved("1.0.0"), t.TempDir())
	assert.ErrorIs(t, err, want)
}

func TestEntryPath(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"package/package.json", "package.json", false},
		{"package/lib/../index.js", "index.js", false},
		{"package/", "", false},
		{"package", "", false},
		{"other-root/a.js", "a.js", false},
		{"package\\lib\\a.js", "lib/a.js", false},
		{"/etc/passwd", "", true},
		{"package/../../x", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := entryPath(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsafePath)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCacheWithTarballInstaller(t *testing.T) {
	data := buildTarball(t, samplePackage)
	url := serveTarball(t, data)
	fetcher := staticFetcher{doc: packumentFor(url, registry.Dist{Integrity: integrityOf(data)})}
	res := &fakeResolver{versions: map[string]string{"latest": "1.0.0"}}

	c, err := New(filepath.Join(t.TempDir(), "dependencies"), res, NewTarballInstaller(fetcher))
	require.NoError(t, err)

	entry, err := c.EnsureInstalled(context.Background(), NewReference("pkg", "latest"))
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(entry.Dir, "lib", "index.js"))
}
