package dispatch

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/oppnys/oppnys/internal/branding"
	"github.com/oppnys/oppnys/internal/invocation"
	"github.com/oppnys/oppnys/internal/logging"
	"github.com/oppnys/oppnys/internal/manifest"
	"github.com/oppnys/oppnys/internal/pkgcache"
	"github.com/oppnys/oppnys/internal/registry"
	"github.com/oppnys/oppnys/pkg/clierr"
)

// Cache is the package store the dispatcher installs into.
type Cache interface {
	Installed(name string) ([]pkgcache.Reference, error)
	EnsureInstalled(ctx context.Context, ref pkgcache.Reference) (pkgcache.Entry, error)
	Update(ctx context.Context, ref pkgcache.Reference) (pkgcache.Reference, error)
	Entry(ref pkgcache.Reference) (pkgcache.Entry, error)
}

// Executor runs a located entry point.
type Executor interface {
	Run(ctx context.Context, entry string, inv *invocation.Context) (int, error)
}

// DefaultPackages maps built-in commands to their packages.
func DefaultPackages() map[string]string {
	return map[string]string{
		"init": branding.CommandScope() + "/init",
	}
}

// Dispatcher resolves and runs dispatched commands.
type Dispatcher struct {
	cache      Cache
	executor   Executor
	packages   map[string]string
	constraint string
	targetPath string
	logger     *log.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithPackages adds or overrides command → package mappings.
func WithPackages(m map[string]string) Option {
	return func(d *Dispatcher) {
		for cmd, pkg := range m {
			if strings.TrimSpace(pkg) != "" {
				d.packages[cmd] = pkg
			}
		}
	}
}

// WithTargetPath runs commands from a local package directory instead of
// the cache.
func WithTargetPath(dir string) Option {
	return func(d *Dispatcher) { d.targetPath = strings.TrimSpace(dir) }
}

// WithConstraint sets the version constraint for dispatched packages.
// Defaults to latest.
func WithConstraint(c string) Option {
	return func(d *Dispatcher) { d.constraint = c }
}

// WithLogger sets the dispatcher's logger.
func WithLogger(l *log.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// New creates a Dispatcher. cache may be nil only when a target path is set.
func New(cache Cache, executor Executor, opts ...Option) (*Dispatcher, error) {
	if executor == nil {
		return nil, clierr.Newf(clierr.KindConfiguration, "new dispatcher", "no executor")
	}
	d := &Dispatcher{
		cache:      cache,
		executor:   executor,
		packages:   DefaultPackages(),
		constraint: registry.Latest,
		logger:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.cache == nil && d.targetPath == "" {
		return nil, clierr.Newf(clierr.KindConfiguration, "new dispatcher", "no package cache")
	}
	return d, nil
}

// Commands returns the dispatchable command names, sorted.
func (d *Dispatcher) Commands() []string {
	names := make([]string, 0, len(d.packages))
	for cmd := range d.packages {
		names = append(names, cmd)
	}
	sort.Strings(names)
	return names
}

// PackageFor returns the package that implements cmd.
func (d *Dispatcher) PackageFor(cmd string) (string, error) {
	pkg, ok := d.packages[cmd]
	if !ok {
		return "", clierr.Newf(clierr.KindConfiguration, "dispatch", "no package is mapped to command %q", cmd)
	}
	return pkg, nil
}

// Locate makes sure pkg is available and returns its entry point.
func (d *Dispatcher) Locate(ctx context.Context, pkg string) (string, error) {
	dir := d.targetPath
	if dir == "" {
		entry, err := d.install(ctx, pkg)
		if err != nil {
			return "", err
		}
		dir = entry.Dir
	} else {
		d.logger.Debug("using target path", "dir", dir)
	}

	entryPath, err := manifest.Locate(dir)
	if err != nil {
		return "", clierr.Configuration("locate "+pkg, err)
	}
	if entryPath == "" {
		return "", clierr.Newf(clierr.KindConfiguration, "locate "+pkg, "no entry point in %s", dir)
	}
	return entryPath, nil
}

// install updates a cached package or installs it on first use. Each path
// asks the registry once, within the dispatcher's constraint.
func (d *Dispatcher) install(ctx context.Context, pkg string) (pkgcache.Entry, error) {
	ref := pkgcache.NewReference(pkg, d.constraint)
	cached, err := d.cache.Installed(pkg)
	if err != nil {
		return pkgcache.Entry{}, err
	}
	if len(cached) == 0 {
		d.logger.Debug("package not cached", "package", ref.String())
		return d.cache.EnsureInstalled(ctx, ref)
	}

	updated, err := d.cache.Update(ctx, ref)
	if err != nil {
		if !errors.Is(err, clierr.ErrResolution) {
			return pkgcache.Entry{}, err
		}
		fallback, ok := newestCached(cached, ref.Constraint)
		if !ok {
			return pkgcache.Entry{}, err
		}
		// Registry unreachable: keep running the cached version.
		d.logger.Warn("update check failed, using cached package", "package", fallback.String(), "err", err)
		updated = fallback
	}
	return d.cache.Entry(updated)
}

// newestCached picks the newest cached version that satisfies constraint.
func newestCached(cached []pkgcache.Reference, constraint string) (pkgcache.Reference, bool) {
	versions := make([]string, 0, len(cached))
	for _, ref := range cached {
		versions = append(versions, ref.Resolved)
	}
	var (
		best string
		err  error
	)
	if registry.IsLatest(constraint) {
		best, err = registry.MaxVersion(versions)
	} else {
		best, err = registry.MaxSatisfying(versions, constraint)
	}
	if err != nil || best == "" {
		return pkgcache.Reference{}, false
	}
	return pkgcache.NewReference(cached[0].Name, constraint).WithResolved(best), true
}

// Dispatch runs the command described by inv and returns its exit code. On
// error the code is 1.
func (d *Dispatcher) Dispatch(ctx context.Context, inv *invocation.Context) (int, error) {
	if inv == nil {
		return 1, clierr.Newf(clierr.KindConfiguration, "dispatch", "no invocation context")
	}
	pkg, err := d.PackageFor(inv.Command)
	if err != nil {
		return 1, err
	}
	entry, err := d.Locate(ctx, pkg)
	if err != nil {
		return 1, err
	}
	d.logger.Debug("dispatching", "command", inv.Command, "package", pkg, "entry", entry)
	return d.executor.Run(ctx, entry, inv)
}
