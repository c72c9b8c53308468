// Package userdata resolves the CLI home directory (~/.oppnys-cli by default)
// and the package cache underneath it, and loads the user's ~/.env file into
// the process environment before any command runs.
package userdata
