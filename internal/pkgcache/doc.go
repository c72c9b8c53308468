// Package pkgcache keeps resolved command packages on local disk.
//
// Each (name, version) pair lives in its own directory under the store,
// named by a deterministic cache key:
//
//	<store>/_<name with "/" replaced by "_">@<version>@<name>/
//
// Installs are staged in a temporary sibling directory and renamed into
// place, under a per-key advisory file lock, so concurrent CLI processes
// never observe a half-written package. Within one process, concurrent
// installs of the same key collapse into one.
package pkgcache
