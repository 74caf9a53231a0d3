package engine

import (
	"errors"
	"fmt"

	"github.com/satishbabariya/relq/query/executor"
)

var (
	// ErrUnsupportedOperation is returned for constructs the engine cannot
	// evaluate and for write operations the backend does not offer.
	ErrUnsupportedOperation = executor.ErrUnsupported

	// ErrClosed is returned by an engine after Close.
	ErrClosed = errors.New("engine closed")
)

// EngineError wraps a failure signaled by the backend.
type EngineError struct {
	Op    string
	Table string
	Cause error
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("%s on %s: %v", e.Op, e.Table, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying error.
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// IsEngineError reports whether err carries a backend failure.
func IsEngineError(err error) bool {
	var ee *EngineError
	return errors.As(err, &ee)
}

func backendError(op, table string, cause error) error {
	if cause == nil {
		return nil
	}
	var ee *EngineError
	if errors.As(cause, &ee) {
		return cause
	}
	return &EngineError{Op: op, Table: table, Cause: cause}
}
