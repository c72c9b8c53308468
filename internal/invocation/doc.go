// Package invocation carries a dispatched command's arguments and options
// from the CLI process to the command subprocess.
//
// The context travels as JSON in one environment variable. Options are
// restricted to primitive values, and framework bookkeeping keys (anything
// beginning with "_" and the key "parent") are always stripped before
// encoding.
package invocation
