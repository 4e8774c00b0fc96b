package dispatch

import (
	"errors"
	"fmt"

	"github.com/dd0wney/cluso-graphpart/pkg/engine"
)

// Usage errors are detected before any engine call.
var (
	ErrArgCount         = errors.New("wrong number of arguments")
	ErrNotString        = errors.New("operation name must be a string")
	ErrNotSparse        = errors.New("matrix must be sparse")
	ErrNotSquare        = errors.New("matrix must be square")
	ErrMissingNParts    = errors.New("nparts is required")
	ErrTooFewParts      = errors.New("nparts must be at least 2")
	ErrUnknownOperation = errors.New("unknown operation")
)

// UsageError reports a request rejected before the engine ran.
type UsageError struct {
	Op     Operation
	Err    error
	Detail string
}

func (e *UsageError) Error() string {
	msg := e.Err.Error()
	if e.Detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	if e.Op != 0 {
		return e.Op.String() + ": " + msg
	}
	return msg
}

func (e *UsageError) Unwrap() error {
	return e.Err
}

// EngineError reports an engine call that did not succeed. No result
// accompanies it.
type EngineError struct {
	Op     Operation
	Engine string
	Err    error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %s engine: %v", e.Op, e.Engine, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// Status returns the engine status carried by the error, or StatusFailure
// when the cause is not a status error (cancellation, missing program).
func (e *EngineError) Status() engine.Status {
	var se *engine.StatusError
	if errors.As(e.Err, &se) {
		return se.Status
	}
	return engine.StatusFailure
}

// IsUsage reports whether err is a usage error.
func IsUsage(err error) bool {
	var ue *UsageError
	return errors.As(err, &ue)
}

func usage(op Operation, err error, format string, args ...any) *UsageError {
	return &UsageError{Op: op, Err: err, Detail: fmt.Sprintf(format, args...)}
}
