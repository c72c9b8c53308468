package runtime

import (
	"context"
	"fmt"
	"os"
)

// NativeRuntime executes compiled command binaries directly. Go commands are
// built against pkg/worker, which reads the invocation context from the
// environment.
type NativeRuntime struct{}

func (n *NativeRuntime) Name() string { return RuntimeNative }

// Prepare checks that entry is an executable regular file.
func (n *NativeRuntime) Prepare(_ context.Context, entry string) ([]string, error) {
	info, err := os.Stat(entry)
	if err != nil {
		return nil, fmt.Errorf("command entry point not found at %s: %w", entry, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("command entry point %s is not a regular file", entry)
	}
	if !executable(info) {
		return nil, fmt.Errorf("command entry point %s is not executable", entry)
	}
	return []string{entry}, nil
}
