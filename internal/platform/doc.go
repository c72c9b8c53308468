// Package platform provides cross-platform filesystem and process helpers:
// permission bits, directory links inside the package store, and dropping
// root privileges when the CLI was started through sudo. On Windows, links
// fall back to a .target sidecar and privilege handling is a no-op.
package platform
