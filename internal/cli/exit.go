package cli

import (
	"errors"
	"fmt"
)

// ExitError reports a dispatched command that ran and exited with a non-zero
// status. The command has already written its own diagnostics.
type ExitError struct {
	Command string
	Code    int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Command, e.Code)
}

// ExitCode maps an Execute error to the process exit status: 0 for nil, the
// child's own status for an ExitError, 1 for anything else.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exit *ExitError
	if errors.As(err, &exit) && exit.Code > 0 {
		return exit.Code
	}
	return 1
}
