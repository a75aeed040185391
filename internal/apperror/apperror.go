package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so the API layer can pick an HTTP status
// without inspecting individual error codes.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConflict
	KindPolicy
	KindNotFound
	KindDependency
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindPolicy:
		return "policy"
	case KindNotFound:
		return "not_found"
	case KindDependency:
		return "dependency"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is a structured rejection: a machine-readable code, a human
// message and optional metadata (e.g. hours_remaining on a cancellation
// rejection). It can wrap a lower-level cause.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Meta    map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// WithMeta attaches a metadata field and returns the same error for chaining.
func (e *Error) WithMeta(key string, value any) *Error {
	if e.Meta == nil {
		e.Meta = make(map[string]any)
	}
	e.Meta[key] = value
	return e
}

// Wrap records the underlying cause.
func (e *Error) Wrap(err error) *Error {
	e.cause = err
	return e
}

func newError(kind Kind, code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

func Validation(code, format string, args ...any) *Error {
	return newError(KindValidation, code, format, args...)
}

func Conflict(code, format string, args ...any) *Error {
	return newError(KindConflict, code, format, args...)
}

func Policy(code, format string, args ...any) *Error {
	return newError(KindPolicy, code, format, args...)
}

func NotFound(code, format string, args ...any) *Error {
	return newError(KindNotFound, code, format, args...)
}

func Dependency(code, format string, args ...any) *Error {
	return newError(KindDependency, code, format, args...)
}

func Internal(code, format string, args ...any) *Error {
	return newError(KindInternal, code, format, args...)
}

// As extracts an *Error from an error chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// KindOf reports the kind of err, or KindUnknown for plain errors.
func KindOf(err error) Kind {
	if ae, ok := As(err); ok {
		return ae.Kind
	}
	return KindUnknown
}

// IsCode reports whether err carries the given machine code.
func IsCode(err error, code string) bool {
	if ae, ok := As(err); ok {
		return ae.Code == code
	}
	return false
}
