// Package dispatch runs one CLI subcommand: it maps the command to its
// package, makes sure the package is on disk, locates the entry point and
// hands it to the executor.
package dispatch
