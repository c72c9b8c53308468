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
	"fmt"
	"hash"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/oppnys/oppnys/internal/branding"
	"github.com/oppnys/oppnys/internal/logging"
	"github.com/oppnys/oppnys/internal/platform"
	"github.com/oppnys/oppnys/internal/registry"
)

// DefaultDownloadTimeout bounds a tarball download.
const DefaultDownloadTimeout = 2 * time.Minute

var (
	// ErrChecksumMismatch is returned when a tarball does not match the
	// digest published by the registry.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrUnsafePath is returned for archive entries that would land outside
	// the destination directory.
	ErrUnsafePath = errors.New("archive entry escapes destination")
	// ErrIncomplete is returned when an extracted package has no package.json.
	ErrIncomplete = errors.New("package has no package.json")
)

// TarballInstaller installs a package version from the tarball its registry
// document points at.
type TarballInstaller struct {
	fetcher    registry.Fetcher
	httpClient *http.Client
	logger     *log.Logger
}

// InstallerOption configures a TarballInstaller.
type InstallerOption func(*TarballInstaller)

// WithDownloadClient sets the HTTP client used for tarball downloads.
func WithDownloadClient(c *http.Client) InstallerOption {
	return func(i *TarballInstaller) {
		if c != nil {
			i.httpClient = c
		}
	}
}

// WithInstallLogger sets the installer's logger.
func WithInstallLogger(l *log.Logger) InstallerOption {
	return func(i *TarballInstaller) {
		if l != nil {
			i.logger = l
		}
	}
}

// NewTarballInstaller creates an installer reading metadata from f.
func NewTarballInstaller(f registry.Fetcher, opts ...InstallerOption) *TarballInstaller {
	i := &TarballInstaller{
		fetcher:    f,
		httpClient: &http.Client{Timeout: DefaultDownloadTimeout},
		logger:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Install downloads, verifies and extracts ref into dir.
func (i *TarballInstaller) Install(ctx context.Context, ref Reference, dir string) error {
	if !ref.IsResolved() {
		return fmt.Errorf("%s is not resolved", ref)
	}
	doc, err := i.fetcher.Packument(ctx, ref.Name)
	if err != nil {
		return err
	}
	meta, ok := doc.Versions[ref.Resolved]
	if !ok {
		return fmt.Errorf("%s: version %s not in registry document", ref.Name, ref.Resolved)
	}
	if meta.Dist.Tarball == "" {
		return fmt.Errorf("%s: no tarball URL", ref)
	}

	archive, err := os.CreateTemp("", branding.CLIName()+"-*.tgz")
	if err != nil {
		return fmt.Errorf("creating download file: %w", err)
	}
	defer func() {
		archive.Close()
		os.Remove(archive.Name())
	}()

	if err := i.download(ctx, meta.Dist, archive); err != nil {
		return err
	}
	if _, err := archive.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewinding archive: %w", err)
	}
	if err := extractTarGz(archive, dir); err != nil {
		return err
	}
	if _, err := os.Stat(filepath.Join(dir, "package.json")); err != nil {
		return fmt.Errorf("%s: %w", ref, ErrIncomplete)
	}
	i.logger.Debug("extracted", "package", ref.String(), "dir", dir)
	return nil
}

// download streams the tarball into w and verifies its digest.
func (i *TarballInstaller) download(ctx context.Context, dist registry.Dist, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, dist.Tarball, nil)
	if err != nil {
		return fmt.Errorf("creating download request: %w", err)
	}
	req.Header.Set("User-Agent", branding.CLIName()+"-dispatcher")

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", dist.Tarball, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	verify, err := newVerifier(dist)
	if err != nil {
		return err
	}
	if _, err := io.Copy(io.MultiWriter(w, verify), resp.Body); err != nil {
		return fmt.Errorf("reading download stream: %w", err)
	}
	return verify.check()
}

// verifier hashes a stream and compares it with the registry digest. The
// integrity field (sha512) takes precedence over the legacy sha1 shasum.
type verifier struct {
	hash.Hash
	algo     string
	expected []byte
}

func newVerifier(dist registry.Dist) (*verifier, error) {
	for _, field := range strings.Fields(dist.Integrity) {
		algo, digest, ok := strings.Cut(field, "-")
		if !ok || algo != "sha512" {
			continue
		}
		// Integrity options ("?foo") follow the digest.
		digest, _, _ = strings.Cut(digest, "?")
		sum, err := base64.StdEncoding.DecodeString(digest)
		if err != nil {
			return nil, fmt.Errorf("malformed integrity %q: %w", field, err)
		}
		return &verifier{Hash: sha512.New(), algo: "sha512", expected: sum}, nil
	}
	if dist.Shasum != "" {
		sum, err := hex.DecodeString(dist.Shasum)
		if err != nil {
			return nil, fmt.Errorf("malformed shasum %q: %w", dist.Shasum, err)
		}
		return &verifier{Hash: sha1.New(), algo: "sha1", expected: sum}, nil
	}
	return nil, fmt.Errorf("registry published no usable digest for %s", dist.Tarball)
}

func (v *verifier) check() error {
	actual := v.Sum(nil)
	if !bytes.Equal(actual, v.expected) {
		return fmt.Errorf("%w (%s): expected %x, got %x", ErrChecksumMismatch, v.algo, v.expected, actual)
	}
	return nil
}

// extractTarGz unpacks an npm tarball into dest. The first path element
// ("package/" in registry tarballs) is stripped. Only directories and regular
// files are written.
func extractTarGz(r io.Reader, dest string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("creating gzip reader: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading tar entry: %w", err)
		}

		rel, err := entryPath(hdr.Name)
		if err != nil {
			return err
		}
		if rel == "" {
			continue
		}
		target := filepath.Join(dest, filepath.FromSlash(rel))

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", rel, err)
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, os.FileMode(hdr.Mode).Perm()); err != nil {
				return fmt.Errorf("extracting %s: %w", rel, err)
			}
		default:
			// Links, devices and fifos are never materialized.
		}
	}
}

// entryPath strips the archive's top-level directory and rejects entries
// that would resolve outside the destination.
func entryPath(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	if strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	_, rest, ok := strings.Cut(name, "/")
	if !ok {
		return "", nil
	}
	clean := path.Clean(rest)
	if clean == "." {
		return "", nil
	}
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return clean, nil
}

func writeFile(target string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	// Owner always gets read/write; execute bits come from the archive.
	perm |= 0o600
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	// OpenFile is subject to umask; restore the archive's bits.
	return platform.Chmod(target, perm)
}
