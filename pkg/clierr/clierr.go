package clierr

import (
	"errors"
	"fmt"
)

// Kind identifies the class of a failure.
type Kind int

const (
	// KindConfiguration is a malformed invocation of a component or lifecycle.
	KindConfiguration Kind = iota + 1
	// KindResolution is an unreachable registry or an unsatisfiable version set.
	KindResolution
	// KindCache is a failed install or update of a cached package.
	KindCache
	// KindExecution is a subprocess that could not be spawned or died abnormally.
	KindExecution
	// KindLifecycle is a required plugin hook that was not implemented.
	KindLifecycle
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindResolution:
		return "resolution"
	case KindCache:
		return "cache"
	case KindExecution:
		return "execution"
	case KindLifecycle:
		return "lifecycle"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. A *Error matches the sentinel of its kind.
var (
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrResolution    = &Error{Kind: KindResolution}
	ErrCache         = &Error{Kind: KindCache}
	ErrExecution     = &Error{Kind: KindExecution}
	ErrLifecycle     = &Error{Kind: KindLifecycle}
)

// Error is a classified failure.
type Error struct {
	Kind Kind
	// Op names the operation that failed, e.g. "resolve" or "install".
	Op  string
	Err error
}

func (e *Error) Error() string {
	msg := e.Kind.String() + " error"
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a sentinel (or any *Error) of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op) && (t.Err == nil || t.Err == e.Err)
}

// New returns a classified error. If err is already a *Error it is returned
// unchanged so a failure keeps the kind assigned closest to its origin.
func New(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf formats a message and classifies it.
func Newf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Configuration classifies err as a configuration error.
func Configuration(op string, err error) error { return New(KindConfiguration, op, err) }

// Resolution classifies err as a resolution error.
func Resolution(op string, err error) error { return New(KindResolution, op, err) }

// Cache classifies err as a cache error.
func Cache(op string, err error) error { return New(KindCache, op, err) }

// Execution classifies err as an execution error.
func Execution(op string, err error) error { return New(KindExecution, op, err) }

// Lifecycle classifies err as a lifecycle error.
func Lifecycle(op string, err error) error { return New(KindLifecycle, op, err) }

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
