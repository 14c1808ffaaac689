// Package errtaxonomy holds the stable, client-visible error codes shared by
// the client handle library, the IPC transport, and the daemon core. Codes
// are never invented ad hoc at a call site; a non-nil error that carries no
// code from here is reported as OperationFailed by CodeOf.
package errtaxonomy

import "fmt"

// Code is a stable negative error code, or 0 for success.
type Code int

const (
	None              Code = 0
	OutOfMemory       Code = -12      // -ENOMEM
	IOError           Code = -5       // -EIO
	InvalidParameter  Code = -22      // -EINVAL
	OutOfNetwork      Code = -100     // -ENETDOWN
	InvalidState      Code = -0x0100021
	InvalidVoice      Code = -0x0100022
	EngineNotFound    Code = -0x0100023
	TimedOut          Code = -0x0100024
	OperationFailed   Code = -0x0100025
	AudioPolicyBlocked Code = -0x0100026
)

var names = map[Code]string{
	None:               "none",
	OutOfMemory:        "out of memory",
	IOError:            "i/o error",
	InvalidParameter:   "invalid parameter",
	OutOfNetwork:       "out of network",
	InvalidState:       "invalid state",
	InvalidVoice:       "invalid voice",
	EngineNotFound:     "engine not found",
	TimedOut:           "timed out",
	OperationFailed:    "operation failed",
	AudioPolicyBlocked: "audio policy blocked",
}

func (c Code) String() string {
	if s, ok := names[c]; ok {
		return s
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// Error wraps a Code so it satisfies the error interface while still
// exposing the numeric code to callers that need to propagate it verbatim
// (the client library's propagation rule: convert engine/IPC codes 1:1,
// never synthesize new ones).
type Error struct {
	Code Code
}

func (e *Error) Error() string { return e.Code.String() }

// Code is 0 for success; New is a convenience constructor.
func New(c Code) error {
	if c == None {
		return nil
	}
	return &Error{Code: c}
}

// CodeOf extracts the Code carried by err, or OperationFailed if err is
// non-nil but not one of ours (defensive default; should not happen if the
// propagation rule is followed everywhere).
func CodeOf(err error) Code {
	if err == nil {
		return None
	}
	var te *Error
	if as(err, &te) {
		return te.Code
	}
	return OperationFailed
}

func as(err error, target **Error) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	*target = e
	return true
}

// Retryable reports whether an operation that failed with this code should
// be retried per §4.2: only TimedOut is retried, consistently across every
// call site including destroy/finalize while Playing or Paused.
func (c Code) Retryable() bool {
	return c == TimedOut
}

// Fatal reports whether the code belongs to the "fatal per-client" class
// that aborts prepare and leaves the handle in Created.
func (c Code) Fatal() bool {
	return c == AudioPolicyBlocked || c == EngineNotFound
}

// Loggable reports whether the code should be appended to the error log:
// every failure code except the parameter/state errors, which are never
// logged.
func (c Code) Loggable() bool {
	switch c {
	case InvalidParameter, InvalidState, None:
		return false
	default:
		return true
	}
}
