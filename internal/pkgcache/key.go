package pkgcache

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/oppnys/oppnys/internal/registry"
)

// Reference names a package and the version it should resolve to.
// References are values: resolving one returns a new Reference.
type Reference struct {
	Name string
	// Constraint is a base version or "latest".
	Constraint string
	// Resolved is the concrete version, empty until resolved.
	Resolved string
}

// NewReference returns an unresolved reference. An empty constraint means
// "latest".
func NewReference(name, constraint string) Reference {
	if strings.TrimSpace(constraint) == "" {
		constraint = registry.Latest
	}
	return Reference{Name: name, Constraint: constraint}
}

// IsResolved reports whether the reference carries a concrete version.
func (r Reference) IsResolved() bool {
	return r.Resolved != ""
}

// WithResolved returns a copy of r resolved to version.
func (r Reference) WithResolved(version string) Reference {
	r.Resolved = version
	return r
}

func (r Reference) String() string {
	if r.Resolved != "" {
		return r.Name + "@" + r.Resolved
	}
	return r.Name + "@" + r.Constraint
}

// Entry locates one package version inside the cache.
type Entry struct {
	// CacheRoot is the install prefix (<cliHome>/dependencies).
	CacheRoot string
	// StoreDir holds one directory per cached version (<CacheRoot>/node_modules).
	StoreDir string
	Key      string
	// Dir is StoreDir joined with Key.
	Dir    string
	Exists bool
}

// Key returns the cache key of a package version. It is a pure function of
// its inputs; scoped names keep their slash in the trailing name segment.
//
//	Key("@scope/pkg", "1.2.3") == "_@scope_pkg@1.2.3@@scope/pkg"
func Key(name, version string) string {
	return "_" + strings.ReplaceAll(name, "/", "_") + "@" + version + "@" + name
}

// ParseKey recovers the package name and version from a cache key.
func ParseKey(key string) (name, version string, ok bool) {
	rest, found := strings.CutPrefix(key, "_")
	if !found {
		return "", "", false
	}
	// The name is the trailing segment after some "@"; scoped names start
	// with "@" themselves, so try each split from the right.
	for j := strings.LastIndex(rest, "@"); j > 0; j = strings.LastIndex(rest[:j], "@") {
		name = rest[j+1:]
		if name == "" {
			continue
		}
		prefix := strings.ReplaceAll(name, "/", "_") + "@"
		if !strings.HasPrefix(rest, prefix) || len(prefix) >= j {
			continue
		}
		version = rest[len(prefix):j]
		if Key(name, version) == key {
			return name, version, true
		}
	}
	return "", "", false
}

// List returns the package versions cached in storeDir, sorted by key.
// Staging directories, locks and links are skipped.
func List(storeDir string) ([]Reference, error) {
	entries, err := os.ReadDir(storeDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "_") {
			continue
		}
		if _, _, ok := ParseKey(e.Name()); ok {
			keys = append(keys, e.Name())
			continue
		}
		// Scoped keys span two directory levels.
		sub, err := os.ReadDir(filepath.Join(storeDir, e.Name()))
		if err != nil {
			continue
		}
		for _, s := range sub {
			key := e.Name() + "/" + s.Name()
			if _, _, ok := ParseKey(key); ok && s.IsDir() {
				keys = append(keys, key)
			}
		}
	}
	sort.Strings(keys)
	refs := make([]Reference, 0, len(keys))
	for _, key := range keys {
		name, version, _ := ParseKey(key)
		refs = append(refs, Reference{Name: name, Constraint: version, Resolved: version})
	}
	return refs, nil
}

// keyDir joins a cache key onto the store directory.
func keyDir(storeDir, key string) string {
	return filepath.Join(storeDir, filepath.FromSlash(key))
}

// lockName maps a key to a flat file name for its lock.
func lockName(key string) string {
	return strings.ReplaceAll(key, "/", "%2F") + ".lock"
}
