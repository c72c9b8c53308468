// Package lifecycle drives a dispatched command through its fixed sequence
// of stages:
//
//	Constructed → VersionChecked → ArgsInitialized → Initialized → Executed → Terminal
//
// A command supplies the Init and Exec stages through the Hooks interface;
// embedding Base gives it defaults that fail with a lifecycle error, so a
// command that forgets a stage fails loudly instead of silently succeeding.
// The driver owns ordering and failure handling: every failure, including a
// panic inside a hook, ends in Terminal and is returned from Run.
package lifecycle
