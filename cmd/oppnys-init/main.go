// Command oppnys-init is the init command as a native worker. Published
// inside the @oppnys/init package with its path as "main", it is run by the
// dispatcher with the invocation in CLI_INVOCATION.
package main

import "github.com/oppnys/oppnys/pkg/worker"

func main() {
	worker.Main(&project{})
}
