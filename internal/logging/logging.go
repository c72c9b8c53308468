// Package logging builds the CLI's leveled stderr logger on top of
// charmbracelet/log.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/oppnys/oppnys/internal/branding"
)

// Level names accepted by CLI_LOG_LEVEL and the log_level config key.
// "verbose" is kept as an alias for debug.
const (
	LevelDebug   = "debug"
	LevelVerbose = "verbose"
	LevelInfo    = "info"
	LevelWarn    = "warn"
	LevelError   = "error"
)

// New returns a logger writing to w with the CLI name as prefix.
func New(w io.Writer, level string) (*log.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return log.NewWithOptions(w, log.Options{
		Prefix: branding.CLIName(),
		Level:  lvl,
	}), nil
}

// Default returns an info-level logger on stderr.
func Default() *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		Prefix: branding.CLIName(),
		Level:  log.InfoLevel,
	})
}

// Discard returns a logger that drops everything. Used by tests and as the
// zero value for components constructed without a logger.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

// ParseLevel maps a level name to a log.Level. The empty string is info.
func ParseLevel(level string) (log.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", LevelInfo:
		return log.InfoLevel, nil
	case LevelDebug, LevelVerbose:
		return log.DebugLevel, nil
	case LevelWarn, "warning":
		return log.WarnLevel, nil
	case LevelError:
		return log.ErrorLevel, nil
	default:
		return log.InfoLevel, fmt.Errorf("unknown log level %q (want debug, info, warn or error)", level)
	}
}
