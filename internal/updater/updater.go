package updater

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/oppnys/oppnys/internal/branding"
	"github.com/oppnys/oppnys/internal/logging"
)

// DefaultCheckTimeout bounds one registry check.
const DefaultCheckTimeout = 5 * time.Second

// Checker finds a newer compatible release of a package.
// registry.Resolver implements it.
type Checker interface {
	Newer(ctx context.Context, name, current string) (string, error)
}

// Updater checks the registry for newer CLI releases.
type Updater struct {
	currentVersion string
	packageName    string
	checker        Checker
	timeout        time.Duration
	logger         *log.Logger
	now            func() time.Time
}

// Option configures an Updater.
type Option func(*Updater)

// WithPackageName sets the registry package the CLI is published as.
func WithPackageName(name string) Option {
	return func(u *Updater) {
		if name != "" {
			u.packageName = name
		}
	}
}

// WithTimeout bounds each registry check.
func WithTimeout(d time.Duration) Option {
	return func(u *Updater) {
		if d > 0 {
			u.timeout = d
		}
	}
}

// WithLogger sets the updater's logger.
func WithLogger(l *log.Logger) Option {
	return func(u *Updater) {
		if l != nil {
			u.logger = l
		}
	}
}

// New creates an Updater for the running version.
func New(currentVersion string, checker Checker, opts ...Option) *Updater {
	u := &Updater{
		currentVersion: currentVersion,
		packageName:    branding.PackageName(),
		checker:        checker,
		timeout:        DefaultCheckTimeout,
		logger:         logging.Discard(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// PackageName returns the package checked for updates.
func (u *Updater) PackageName() string {
	return u.packageName
}

// Check asks the registry for a newer compatible release. It returns "" when
// the running version is current.
func (u *Updater) Check(ctx context.Context) (string, error) {
	if u.checker == nil {
		return "", fmt.Errorf("no registry configured for update checks")
	}
	if _, err := parseSemver(u.currentVersion); err != nil {
		return "", fmt.Errorf("current version %q is not a release: %w", u.currentVersion, err)
	}
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()
	return u.checker.Newer(ctx, u.packageName, u.currentVersion)
}
