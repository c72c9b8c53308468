package registry

import "context"

// Packument is the registry document for one package. Only the fields the
// dispatcher consumes are decoded.
type Packument struct {
	Name     string                 `json:"name"`
	DistTags map[string]string      `json:"dist-tags,omitempty"`
	Versions map[string]VersionMeta `json:"versions"`
}

// VersionMeta is the per-version metadata of a packument.
type VersionMeta struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Dist    Dist   `json:"dist"`
}

// Dist locates and authenticates a version's tarball.
type Dist struct {
	Tarball   string `json:"tarball"`
	Shasum    string `json:"shasum,omitempty"`
	Integrity string `json:"integrity,omitempty"`
}

// Registry lists the published versions of a package.
type Registry interface {
	Versions(ctx context.Context, name string) ([]string, error)
}

// Fetcher returns a package's full registry document.
type Fetcher interface {
	Packument(ctx context.Context, name string) (*Packument, error)
}
