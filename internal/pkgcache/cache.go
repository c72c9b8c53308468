package pkgcache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/oppnys/oppnys/internal/logging"
	"github.com/oppnys/oppnys/internal/platform"
	"github.com/oppnys/oppnys/pkg/clierr"
)

// VersionResolver picks a concrete version for a constraint.
type VersionResolver interface {
	Resolve(ctx context.Context, name, constraint string) (string, error)
}

// Installer fills dir with the contents of the package version ref.Resolved.
// dir exists and is empty; the cache moves it into place on success and
// removes it on failure.
type Installer interface {
	Install(ctx context.Context, ref Reference, dir string) error
}

// Cache is the on-disk package store.
type Cache struct {
	root      string
	storeDir  string
	resolver  VersionResolver
	installer Installer
	logger    *log.Logger

	group singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used for install progress.
func WithLogger(l *log.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a cache rooted at root (the dependencies directory). Package
// versions are stored under root/node_modules.
func New(root string, resolver VersionResolver, installer Installer, opts ...Option) (*Cache, error) {
	switch {
	case strings.TrimSpace(root) == "":
		return nil, clierr.Newf(clierr.KindConfiguration, "new cache", "cache root is empty")
	case resolver == nil:
		return nil, clierr.Newf(clierr.KindConfiguration, "new cache", "no version resolver")
	case installer == nil:
		return nil, clierr.Newf(clierr.KindConfiguration, "new cache", "no installer")
	}
	c := &Cache{
		root:      root,
		storeDir:  filepath.Join(root, "node_modules"),
		resolver:  resolver,
		installer: installer,
		logger:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Root returns the cache root.
func (c *Cache) Root() string { return c.root }

// StoreDir returns the directory holding one subdirectory per cached version.
func (c *Cache) StoreDir() string { return c.storeDir }

// Entry locates a resolved reference inside the cache.
func (c *Cache) Entry(ref Reference) (Entry, error) {
	if ref.Name == "" {
		return Entry{}, clierr.Newf(clierr.KindConfiguration, "cache entry", "package name is empty")
	}
	if !ref.IsResolved() {
		return Entry{}, clierr.Newf(clierr.KindConfiguration, "cache entry", "%s is not resolved", ref)
	}
	key := Key(ref.Name, ref.Resolved)
	dir := keyDir(c.storeDir, key)
	_, err := os.Stat(dir)
	return Entry{
		CacheRoot: c.root,
		StoreDir:  c.storeDir,
		Key:       key,
		Dir:       dir,
		Exists:    err == nil,
	}, nil
}

// Exists resolves ref and reports whether that version is in the cache. The
// cache root is created if absent. The resolved reference is returned; ref
// itself is not modified.
func (c *Cache) Exists(ctx context.Context, ref Reference) (Reference, bool, error) {
	if err := c.ensureRoot(); err != nil {
		return ref, false, err
	}
	resolved, err := c.resolve(ctx, ref)
	if err != nil {
		return ref, false, err
	}
	entry, err := c.Entry(resolved)
	if err != nil {
		return resolved, false, err
	}
	return resolved, entry.Exists, nil
}

// EnsureInstalled resolves ref and installs it if it is not cached yet.
func (c *Cache) EnsureInstalled(ctx context.Context, ref Reference) (Entry, error) {
	resolved, exists, err := c.Exists(ctx, ref)
	if err != nil {
		return Entry{}, err
	}
	if !exists {
		if err := c.install(ctx, resolved); err != nil {
			return Entry{}, err
		}
	}
	return c.Entry(resolved)
}

// Update re-resolves ref's constraint against the registry, ignoring any
// version ref already carries, and installs the result if it is not cached.
// The returned reference carries the newest version within the constraint;
// with "latest" that is the newest published version.
func (c *Cache) Update(ctx context.Context, ref Reference) (Reference, error) {
	if err := c.ensureRoot(); err != nil {
		return ref, err
	}
	current, err := c.resolve(ctx, NewReference(ref.Name, ref.Constraint))
	if err != nil {
		return ref, err
	}
	entry, err := c.Entry(current)
	if err != nil {
		return ref, err
	}
	if entry.Exists {
		c.logger.Debug("package is current", "package", current.String())
		return current, nil
	}
	if err := c.install(ctx, current); err != nil {
		return ref, err
	}
	return current, nil
}

// Installed returns the cached versions of name, sorted by key.
func (c *Cache) Installed(name string) ([]Reference, error) {
	all, err := List(c.storeDir)
	if err != nil {
		return nil, clierr.Cache("list "+name, err)
	}
	var out []Reference
	for _, ref := range all {
		if ref.Name == name {
			out = append(out, ref)
		}
	}
	return out, nil
}

func (c *Cache) ensureRoot() error {
	if err := os.MkdirAll(c.storeDir, 0o755); err != nil {
		return clierr.Cache("create cache root", err)
	}
	return nil
}

func (c *Cache) resolve(ctx context.Context, ref Reference) (Reference, error) {
	if ref.IsResolved() {
		return ref, nil
	}
	if ref.Name == "" {
		return ref, clierr.Newf(clierr.KindConfiguration, "resolve", "package name is empty")
	}
	v, err := c.resolver.Resolve(ctx, ref.Name, ref.Constraint)
	if err != nil {
		return ref, clierr.Resolution("resolve "+ref.Name, err)
	}
	return ref.WithResolved(v), nil
}

// install places ref under its key. Concurrent callers in this process share
// one attempt; other processes are serialized by the key's file lock.
func (c *Cache) install(ctx context.Context, ref Reference) error {
	key := Key(ref.Name, ref.Resolved)
	_, err, shared := c.group.Do(key, func() (any, error) {
		return nil, c.installLocked(ctx, ref, key)
	})
	if shared {
		c.logger.Debug("joined in-flight install", "key", key)
	}
	return err
}

func (c *Cache) installLocked(ctx context.Context, ref Reference, key string) error {
	op := "install " + ref.String()

	lock, err := acquireLock(filepath.Join(c.storeDir, ".locks", lockName(key)))
	if err != nil {
		return clierr.Cache(op, err)
	}
	defer lock.Release()

	dir := keyDir(c.storeDir, key)
	if _, err := os.Stat(dir); err == nil {
		c.logger.Debug("installed by another process", "key", key)
		return nil
	}

	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return clierr.Cache(op, err)
	}
	staging, err := os.MkdirTemp(parent, ".staging-"+filepath.Base(dir)+"-")
	if err != nil {
		return clierr.Cache(op, fmt.Errorf("creating staging directory: %w", err))
	}
	// After a successful rename the staging path no longer exists.
	defer os.RemoveAll(staging)

	c.logger.Info("installing", "package", ref.String())
	if err := c.installer.Install(ctx, ref, staging); err != nil {
		return clierr.Cache(op, err)
	}
	if err := os.Rename(staging, dir); err != nil {
		return clierr.Cache(op, fmt.Errorf("moving %s into place: %w", key, err))
	}

	if err := c.link(ref, dir); err != nil {
		c.logger.Debug("link not updated", "package", ref.Name, "err", err)
	}
	return nil
}

// link points <storeDir>/<name> at dir unless it already points at a newer
// version.
func (c *Cache) link(ref Reference, dir string) error {
	linkPath := filepath.Join(c.storeDir, filepath.FromSlash(ref.Name))
	if err := os.MkdirAll(filepath.Dir(linkPath), 0o755); err != nil {
		return err
	}
	if current, err := platform.ReadSymlinkTarget(linkPath); err == nil {
		if newerThan(c.linkedVersion(ref.Name, current), ref.Resolved) {
			return nil
		}
	}
	return platform.ReplaceSymlink(dir, linkPath)
}

// linkedVersion extracts the version from a link target inside the store.
func (c *Cache) linkedVersion(name, target string) string {
	rel, err := filepath.Rel(c.storeDir, target)
	if err != nil {
		return ""
	}
	rel = filepath.ToSlash(rel)
	prefix := "_" + strings.ReplaceAll(name, "/", "_") + "@"
	suffix := "@" + name
	if !strings.HasPrefix(rel, prefix) || !strings.HasSuffix(rel, suffix) || len(rel) < len(prefix)+len(suffix) {
		return ""
	}
	return rel[len(prefix) : len(rel)-len(suffix)]
}

func newerThan(a, b string) bool {
	av, err := semver.NewVersion(a)
	if err != nil {
		return false
	}
	bv, err := semver.NewVersion(b)
	if err != nil {
		return false
	}
	return av.GreaterThan(bv)
}
