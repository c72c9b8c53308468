// Package worker is the entry point for command plugins written in Go.
//
// A plugin is an ordinary executable whose main function hands its hooks to
// Main:
//
//	type initCommand struct{ lifecycle.Base }
//
//	func (c *initCommand) Init(l *lifecycle.Lifecycle) error { ... }
//	func (c *initCommand) Exec(ctx context.Context, l *lifecycle.Lifecycle) error { ... }
//
//	func main() { worker.Main(&initCommand{}) }
//
// The dispatcher runs the plugin with the invocation context in its
// environment; Main decodes it, drives the lifecycle and exits 0 on success
// and 1 on failure.
package worker
