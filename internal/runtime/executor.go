package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/charmbracelet/log"

	"github.com/oppnys/oppnys/internal/invocation"
	"github.com/oppnys/oppnys/internal/logging"
	"github.com/oppnys/oppnys/pkg/clierr"
)

// Executor runs command entry points in child processes.
type Executor struct {
	node   *NodeRuntime
	native *NativeRuntime

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	dir    string
	env    []string
	logger *log.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithNodeRuntime sets the Node.js runtime (loader directory, version floor).
func WithNodeRuntime(n *NodeRuntime) Option {
	return func(e *Executor) {
		if n != nil {
			e.node = n
		}
	}
}

// WithStdio replaces the inherited standard streams. Used by tests.
func WithStdio(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(e *Executor) {
		e.stdin, e.stdout, e.stderr = stdin, stdout, stderr
	}
}

// WithDir sets the child's working directory. Defaults to the current one.
func WithDir(dir string) Option {
	return func(e *Executor) { e.dir = dir }
}

// WithEnv sets the base environment passed to the child. Defaults to
// os.Environ().
func WithEnv(env []string) Option {
	return func(e *Executor) { e.env = env }
}

// WithLogger sets the executor's logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExecutor creates an Executor that inherits the parent's stdio.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{
		node:   &NodeRuntime{LoaderDir: os.TempDir()},
		native: &NativeRuntime{},
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes entry with inv in a child process and waits for it. It
// returns the child's exit code when the child terminated normally, whatever
// that code is. A child that could not be started or was killed by a signal
// is an execution error; the returned code is then 1.
func (e *Executor) Run(ctx context.Context, entry string, inv *invocation.Context) (int, error) {
	if entry == "" {
		return 1, clierr.Newf(clierr.KindConfiguration, "execute", "no entry point")
	}
	if inv == nil {
		return 1, clierr.Newf(clierr.KindConfiguration, "execute", "no invocation context")
	}

	entry = ResolveEntry(entry)
	rt := DispatchRuntime(RuntimeFor(entry), e.node, e.native)
	argv, err := rt.Prepare(ctx, entry)
	if err != nil {
		return 1, clierr.Execution("execute "+entry, err)
	}

	base := e.env
	if base == nil {
		base = os.Environ()
	}
	env, err := inv.Environ(base)
	if err != nil {
		return 1, err
	}

	dir := e.dir
	if dir == "" {
		if dir, err = os.Getwd(); err != nil {
			return 1, clierr.Execution("execute "+entry, fmt.Errorf("resolving working directory: %w", err))
		}
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Env = env
	cmd.Stdin = e.stdin
	cmd.Stdout = e.stdout
	cmd.Stderr = e.stderr

	e.logger.Debug("spawning command", "runtime", rt.Name(), "entry", entry, "dir", dir)

	if err := cmd.Start(); err != nil {
		return 1, clierr.Execution("execute "+entry, fmt.Errorf("starting %s: %w", argv[0], err))
	}
	err = cmd.Wait()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return 1, clierr.Execution("execute "+entry, err)
	}
	// ExitCode is -1 when the process was terminated by a signal.
	if code := exitErr.ExitCode(); code >= 0 {
		e.logger.Debug("command exited", "code", code)
		return code, nil
	}
	return 1, clierr.Execution("execute "+entry, fmt.Errorf("command terminated abnormally: %s", exitErr.ProcessState))
}
