// Package runtime runs a located command entry point as an isolated child
// process. DispatchRuntime selects the Node.js or native runtime from the
// entry's file extension; the Executor hands the invocation context to the
// child through its environment and relays its exit status.
package runtime
