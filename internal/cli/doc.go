// Package cli defines the Cobra command tree for the oppnys CLI. The root
// command runs the startup checks; dispatched commands such as init are
// resolved to registry packages and executed through internal/dispatch.
// Local commands (version, config, doctor) are implemented here directly.
package cli
