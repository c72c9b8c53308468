package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/oppnys/oppnys/pkg/clierr"
)

// Latest is the constraint that selects the highest published version.
const Latest = "latest"

var (
	// ErrNoVersions is returned when the registry lists no valid versions.
	ErrNoVersions = errors.New("no published versions")
	// ErrNoMatchingVersion is returned when no published version is
	// compatible with the requested base version.
	ErrNoMatchingVersion = errors.New("no compatible version")
)

// Resolver picks concrete versions for package references.
type Resolver struct {
	registry Registry
}

// NewResolver creates a Resolver backed by r.
func NewResolver(r Registry) *Resolver {
	return &Resolver{registry: r}
}

// Resolve returns the version of name selected by constraint. "latest" (or
// an empty constraint) selects the maximum published version; any other
// constraint is a base version V and selects the maximum version in ^V.
//
// Registry failures and empty or non-matching version sets are resolution
// errors; a constraint that is not a version is a configuration error. No
// incompatible version is ever returned.
func (r *Resolver) Resolve(ctx context.Context, name, constraint string) (string, error) {
	versions, err := r.registry.Versions(ctx, name)
	if err != nil {
		return "", clierr.Resolution("resolve "+name, err)
	}

	if IsLatest(constraint) {
		v, err := MaxVersion(versions)
		if err != nil {
			return "", clierr.Resolution("resolve "+name, err)
		}
		return v, nil
	}

	v, err := MaxSatisfying(versions, constraint)
	if err != nil {
		return "", classify("resolve "+name, err)
	}
	return v, nil
}

// Newer returns the highest version of name that is compatible with current
// and strictly greater than it, or "" when current is up to date.
func (r *Resolver) Newer(ctx context.Context, name, current string) (string, error) {
	versions, err := r.registry.Versions(ctx, name)
	if err != nil {
		return "", clierr.Resolution("check "+name, err)
	}
	best, err := MaxSatisfying(versions, current)
	if err != nil {
		if errors.Is(err, ErrNoMatchingVersion) || errors.Is(err, ErrNoVersions) {
			return "", nil
		}
		return "", classify("check "+name, err)
	}
	cur, err := parseVersion(current)
	if err != nil {
		return "", clierr.Configuration("check "+name, err)
	}
	bv, _ := parseVersion(best)
	if bv.GreaterThan(cur) {
		return best, nil
	}
	return "", nil
}

// IsLatest reports whether constraint selects the latest version.
func IsLatest(constraint string) bool {
	c := strings.TrimSpace(constraint)
	return c == "" || c == Latest
}

// MaxVersion returns the maximum of versions by semver ordering. Strings that
// are not strict semver are ignored.
func MaxVersion(versions []string) (string, error) {
	var (
		best    *semver.Version
		bestRaw string
	)
	for _, raw := range versions {
		v, err := semver.StrictNewVersion(raw)
		if err != nil {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best, bestRaw = v, raw
		}
	}
	if best == nil {
		return "", ErrNoVersions
	}
	return bestRaw, nil
}

// MaxSatisfying returns the maximum of versions that satisfies the caret
// range ^base: same major version and not lower than base.
func MaxSatisfying(versions []string, base string) (string, error) {
	if _, err := parseVersion(base); err != nil {
		return "", err
	}
	c, err := semver.NewConstraint("^" + strings.TrimPrefix(strings.TrimSpace(base), "v"))
	if err != nil {
		return "", fmt.Errorf("invalid version constraint %q: %w", base, err)
	}

	var (
		best    *semver.Version
		bestRaw string
		valid   int
	)
	for _, raw := range versions {
		v, err := semver.StrictNewVersion(raw)
		if err != nil {
			continue
		}
		valid++
		if !c.Check(v) {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best, bestRaw = v, raw
		}
	}
	if valid == 0 {
		return "", ErrNoVersions
	}
	if best == nil {
		return "", fmt.Errorf("%w with ^%s", ErrNoMatchingVersion, base)
	}
	return bestRaw, nil
}

// errInvalidBase marks a base version that does not parse.
var errInvalidBase = errors.New("invalid base version")

func parseVersion(raw string) (*semver.Version, error) {
	v, err := semver.NewVersion(strings.TrimPrefix(strings.TrimSpace(raw), "v"))
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", errInvalidBase, raw, err)
	}
	return v, nil
}

func classify(op string, err error) error {
	if errors.Is(err, errInvalidBase) {
		return clierr.Configuration(op, err)
	}
	return clierr.Resolution(op, err)
}
