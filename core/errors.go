package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure by the boundary where it occurred. Every
// error crossing a component boundary carries exactly one kind so callers can
// decide between abort (configuration), retry-by-resubmit (transport), and
// plain rejection (validation) without string matching.
type ErrorKind int

const (
	// ErrorKindConfiguration: missing or invalid gateway credential. Fatal to
	// any turn until resolved; never retried automatically.
	ErrorKindConfiguration ErrorKind = iota + 1
	// ErrorKindTransport: a streaming call failed mid-flight. Transient; the
	// same input may be re-submitted.
	ErrorKindTransport
	// ErrorKindRecognition: the speech recognizer reported a platform-level
	// failure. Terminates listening, never auto-retried.
	ErrorKindRecognition
	// ErrorKindCapture: tab-audio capture yielded no audio or consent was
	// denied. All acquired resources are released before this surfaces.
	ErrorKindCapture
	// ErrorKindValidation: bad input rejected before reaching any external
	// collaborator. Does not alter conversation state.
	ErrorKindValidation
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindConfiguration:
		return "configuration"
	case ErrorKindTransport:
		return "transport"
	case ErrorKindRecognition:
		return "recognition"
	case ErrorKindCapture:
		return "capture"
	case ErrorKindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Error is the single error type exchanged between components. Op names the
// operation that failed ("session.send_turn", "capture.start", ...).
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with a kind and operation name.
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a classified error from a format string.
func Errorf(kind ErrorKind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the ErrorKind from err, unwrapping as needed. Returns 0
// for unclassified errors.
func KindOf(err error) ErrorKind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return 0
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
