package worker

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/oppnys/oppnys/internal/branding"
	"github.com/oppnys/oppnys/internal/invocation"
	"github.com/oppnys/oppnys/internal/logging"
	"github.com/oppnys/oppnys/pkg/lifecycle"
)

// Main runs hooks for the invocation in the process environment and exits.
// It never returns.
func Main(hooks lifecycle.Hooks) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := Run(ctx, hooks, os.Getenv)
	stop()
	os.Exit(code)
}

// Run decodes the invocation context through getenv, drives hooks through
// the lifecycle and returns the process exit code.
func Run(ctx context.Context, hooks lifecycle.Hooks, getenv func(string) string, opts ...lifecycle.Option) int {
	logger := newLogger(getenv)

	inv, err := invocation.FromEnv(getenv)
	if err != nil {
		logger.Error("reading invocation", "err", err)
		return 1
	}

	opts = append([]lifecycle.Option{lifecycle.WithLogger(logger)}, opts...)
	l, err := lifecycle.New(inv.Argv(), hooks, opts...)
	if err != nil {
		logger.Error("starting command", "command", inv.Command, "err", err)
		return 1
	}
	if err := l.Run(ctx); err != nil {
		// The lifecycle has already logged the failure.
		return 1
	}
	return 0
}

// newLogger honours the CLI's log level so plugin output matches the host.
func newLogger(getenv func(string) string) *log.Logger {
	l, err := logging.New(os.Stderr, getenv(branding.EnvVar("LOG_LEVEL")))
	if err != nil {
		return logging.Default()
	}
	return l
}
