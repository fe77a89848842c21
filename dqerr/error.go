// Package dqerr defines the error kinds visible at the DQCsim core boundary.
//
// This replaces the `failure`-crate-based ErrorKind/Context chain of the
// original implementation with a plain Go error wrapping idiom: a Kind tag
// plus %w-wrapped causes, inspected with errors.Is/errors.As at RPC
// boundaries instead of matching on an enum.
package dqerr

import (
	"errors"
	"fmt"
)

// Kind classifies an Error for the caller without requiring string matching.
type Kind int

const (
	// Other is a generic error that doesn't fit any of the kinds below.
	Other Kind = iota
	// InvalidArgument signals a user or configuration error: a bad
	// identifier, a malformed pipeline shape, an unknown plugin name.
	InvalidArgument
	// InvalidOperation signals correct types used in the wrong state:
	// calling recv outside the run callback, starting a program twice.
	InvalidOperation
	// Channel signals that a channel peer disappeared or a send/recv failed.
	Channel
	// IO signals a file, process-spawn, or signal-handling failure.
	IO
	// Deadlock signals a detected deadlock; always recoverable, never a hang.
	Deadlock
	// PluginFailure signals that a plugin returned Failure(msg) to an RPC.
	PluginFailure
	// Timeout signals that an accept or shutdown timer expired.
	Timeout
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid argument"
	case InvalidOperation:
		return "invalid operation"
	case Channel:
		return "channel error"
	case IO:
		return "I/O error"
	case Deadlock:
		return "deadlock"
	case PluginFailure:
		return "plugin failure"
	case Timeout:
		return "timeout"
	default:
		return "error"
	}
}

// Error is the error type returned across the DQCsim core boundary.
type Error struct {
	Kind   Kind
	Msg    string
	Plugin string // set for PluginFailure
	Cause  error
}

func (e *Error) Error() string {
	prefix := e.Kind.String()
	if e.Plugin != "" {
		prefix = fmt.Sprintf("%s (plugin %q)", prefix, e.Plugin)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", prefix, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Kind, so that
// errors.Is(err, dqerr.New(dqerr.Deadlock, "")) style checks work without
// comparing messages.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

// New constructs an Error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error of the given kind wrapping cause.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Cause: cause}
}

// WrapPlugin constructs a PluginFailure error carrying the plugin's name.
func WrapPlugin(plugin string, msg string) *Error {
	return &Error{Kind: PluginFailure, Plugin: plugin, Msg: msg}
}

// KindOf extracts the Kind of err, defaulting to Other if err is not (or
// does not wrap) a *dqerr.Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Other
}

// InvalidArgumentf is a shorthand matching the original's inv_arg().
func InvalidArgumentf(format string, args ...interface{}) *Error {
	return New(InvalidArgument, format, args...)
}

// InvalidOperationf is a shorthand matching the original's inv_op().
func InvalidOperationf(format string, args ...interface{}) *Error {
	return New(InvalidOperation, format, args...)
}

// Deadlockf is a shorthand for constructing a Deadlock error.
func Deadlockf(format string, args ...interface{}) *Error {
	return New(Deadlock, format, args...)
}

// Timeoutf is a shorthand for constructing a Timeout error.
func Timeoutf(format string, args ...interface{}) *Error {
	return New(Timeout, format, args...)
}
