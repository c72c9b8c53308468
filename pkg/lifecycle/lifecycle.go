package lifecycle

import (
	"context"
	"errors"
	"fmt"
	goruntime "runtime"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/log"

	"github.com/oppnys/oppnys/internal/logging"
	"github.com/oppnys/oppnys/pkg/clierr"
)

// MinGoVersion is the oldest Go runtime a command may be built with.
const MinGoVersion = "1.21.0"

// State is a lifecycle stage.
type State int

const (
	Constructed State = iota
	VersionChecked
	ArgsInitialized
	Initialized
	Executed
	Terminal
)

func (s State) String() string {
	switch s {
	case Constructed:
		return "constructed"
	case VersionChecked:
		return "version-checked"
	case ArgsInitialized:
		return "args-initialized"
	case Initialized:
		return "initialized"
	case Executed:
		return "executed"
	case Terminal:
		return "terminal"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Hooks are the command-supplied stages.
type Hooks interface {
	// Init extracts and validates the command's parameters from l.Args().
	Init(l *Lifecycle) error
	// Exec performs the command's work.
	Exec(ctx context.Context, l *Lifecycle) error
}

// Base implements Hooks with stages that always fail. Embed it and override
// both methods.
type Base struct{}

// Init fails with a lifecycle error.
func (Base) Init(*Lifecycle) error {
	return clierr.Lifecycle("init", errors.New("must implement init"))
}

// Exec fails with a lifecycle error.
func (Base) Exec(context.Context, *Lifecycle) error {
	return clierr.Lifecycle("exec", errors.New("must implement exec"))
}

// Lifecycle runs one command invocation.
type Lifecycle struct {
	hooks Hooks

	raw     []any
	args    []any
	options any

	minVersion  string
	hostVersion func() string
	logger      *log.Logger

	mu      sync.Mutex
	started bool
	state   State
	history []State
	err     error
}

// Option configures a Lifecycle.
type Option func(*Lifecycle)

// WithLogger sets the logger that reports a failed run.
func WithLogger(l *log.Logger) Option {
	return func(lc *Lifecycle) {
		if l != nil {
			lc.logger = l
		}
	}
}

// WithMinVersion overrides the host runtime floor.
func WithMinVersion(v string) Option {
	return func(lc *Lifecycle) { lc.minVersion = v }
}

// WithHostVersion overrides how the host runtime version is read.
// runtime.Version by default.
func WithHostVersion(fn func() string) Option {
	return func(lc *Lifecycle) {
		if fn != nil {
			lc.hostVersion = fn
		}
	}
}

// New constructs a lifecycle for argv, which must be a non-empty []any or
// []string whose last element is the invoking framework's options object.
// No hook runs when construction fails.
func New(argv any, hooks Hooks, opts ...Option) (*Lifecycle, error) {
	if hooks == nil {
		return nil, clierr.Newf(clierr.KindConfiguration, "new command", "hooks are required")
	}
	list, err := toList(argv)
	if err != nil {
		return nil, clierr.Configuration("new command", err)
	}
	l := &Lifecycle{
		hooks:       hooks,
		raw:         list,
		minVersion:  MinGoVersion,
		hostVersion: goruntime.Version,
		logger:      logging.Discard(),
		state:       Constructed,
		history:     []State{Constructed},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func toList(argv any) ([]any, error) {
	var list []any
	switch v := argv.(type) {
	case nil:
		return nil, fmt.Errorf("argument list is required")
	case []any:
		list = append([]any(nil), v...)
	case []string:
		list = make([]any, len(v))
		for i, s := range v {
			list[i] = s
		}
	default:
		return nil, fmt.Errorf("argument list must be a list, got %T", argv)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("argument list must not be empty")
	}
	return list, nil
}

// Run drives the lifecycle to Terminal. It can be called once; the error of
// the first failing stage is returned, classified.
func (l *Lifecycle) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return clierr.Lifecycle("run", errors.New("lifecycle already ran"))
	}
	l.started = true
	l.mu.Unlock()

	err := l.drive(ctx)
	if err != nil {
		l.logger.Error("command failed", "stage", l.State().String(), "err", err)
	}

	l.mu.Lock()
	l.err = err
	l.mu.Unlock()
	l.advance(Terminal)
	return err
}

func (l *Lifecycle) drive(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = clierr.Lifecycle("run", fmt.Errorf("panic after %s: %v", l.State(), r))
		}
	}()

	if err := l.checkVersion(); err != nil {
		return err
	}
	l.advance(VersionChecked)

	l.initArgs()
	l.advance(ArgsInitialized)

	if err := l.hooks.Init(l); err != nil {
		return clierr.Configuration("init", err)
	}
	l.advance(Initialized)

	if err := l.hooks.Exec(ctx, l); err != nil {
		return clierr.Execution("exec", err)
	}
	l.advance(Executed)
	return nil
}

func (l *Lifecycle) checkVersion() error {
	raw := strings.TrimSpace(l.hostVersion())
	// Development toolchains report "devel go1.x-..." and are accepted.
	if strings.HasPrefix(raw, "devel") {
		return nil
	}
	floor, err := semver.NewVersion(l.minVersion)
	if err != nil {
		return clierr.Configuration("check version", fmt.Errorf("invalid minimum version %q: %w", l.minVersion, err))
	}
	host, err := semver.NewVersion(strings.TrimPrefix(raw, "go"))
	if err != nil {
		return clierr.Configuration("check version", fmt.Errorf("unrecognized runtime version %q: %w", raw, err))
	}
	if host.LessThan(floor) {
		return clierr.Newf(clierr.KindConfiguration, "check version",
			"requires Go %s or newer, running %s", floor, raw)
	}
	return nil
}

// initArgs sets aside the last raw element as the options object.
func (l *Lifecycle) initArgs() {
	n := len(l.raw)
	l.options = l.raw[n-1]
	l.args = append([]any(nil), l.raw[:n-1]...)
}

func (l *Lifecycle) advance(s State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = s
	l.history = append(l.history, s)
}

// State returns the current stage.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// History returns the stages visited so far, in order.
func (l *Lifecycle) History() []State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]State(nil), l.history...)
}

// Err returns the error Run returned, if any.
func (l *Lifecycle) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Args returns the positional arguments, without the options object.
// Empty until ArgsInitialized.
func (l *Lifecycle) Args() []any {
	return append([]any(nil), l.args...)
}

// Arg returns positional argument i as a string.
func (l *Lifecycle) Arg(i int) (string, bool) {
	if i < 0 || i >= len(l.args) {
		return "", false
	}
	s, ok := l.args[i].(string)
	return s, ok
}

// Options returns the options object set aside from the argument list.
func (l *Lifecycle) Options() any {
	return l.options
}

// Option looks up key in the options object when it is a map.
func (l *Lifecycle) Option(key string) (any, bool) {
	m, ok := l.options.(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := m[key]
	return v, ok
}

// BoolOption returns the boolean option key, false when absent.
func (l *Lifecycle) BoolOption(key string) bool {
	v, _ := l.Option(key)
	b, _ := v.(bool)
	return b
}

// StringOption returns the string option key, "" when absent.
func (l *Lifecycle) StringOption(key string) string {
	v, _ := l.Option(key)
	s, _ := v.(string)
	return s
}
