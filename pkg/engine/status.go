package engine

import (
	"errors"
	"fmt"
)

// Status is the return code of an engine call.
type Status int

const (
	StatusOK          Status = 1
	StatusInputError  Status = -2
	StatusMemoryError Status = -3
	StatusFailure     Status = -4
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusInputError:
		return "input error"
	case StatusMemoryError:
		return "memory error"
	case StatusFailure:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

var (
	// ErrInput reports inputs the engine rejected.
	ErrInput = errors.New("engine rejected input")
	// ErrMemory reports an engine allocation failure.
	ErrMemory = errors.New("engine out of memory")
	// ErrEngine reports any other engine failure.
	ErrEngine = errors.New("engine failure")
	// ErrUnsupported is returned when an engine lacks a requested primitive.
	ErrUnsupported = errors.New("operation not supported by engine")
)

// StatusError carries a non-OK status out of an engine call.
type StatusError struct {
	Status Status
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("engine returned %s", e.Status)
	}
	return fmt.Sprintf("engine returned %s: %s", e.Status, e.Detail)
}

// Unwrap maps the status onto its sentinel error.
func (e *StatusError) Unwrap() error {
	switch e.Status {
	case StatusInputError:
		return ErrInput
	case StatusMemoryError:
		return ErrMemory
	default:
		return ErrEngine
	}
}

// CheckStatus converts a raw engine return code into an error.
func CheckStatus(code int, detail string) error {
	if Status(code) == StatusOK {
		return nil
	}
	return &StatusError{Status: Status(code), Detail: detail}
}

// InputError builds a StatusError for rejected input.
func InputError(format string, args ...any) error {
	return &StatusError{Status: StatusInputError, Detail: fmt.Sprintf(format, args...)}
}
