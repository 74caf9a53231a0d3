package query

import (
	"errors"
	"fmt"
)

// ErrInvalidQuery is returned when a query's clauses cannot be combined.
var ErrInvalidQuery = errors.New("invalid query")

// InvalidQueryError describes why a query was rejected at validation time.
type InvalidQueryError struct {
	Clause string
	Reason string
}

// Error implements the error interface.
func (e *InvalidQueryError) Error() string {
	if e.Clause != "" {
		return fmt.Sprintf("invalid query: %s: %s", e.Clause, e.Reason)
	}
	return "invalid query: " + e.Reason
}

// Is reports whether the target is ErrInvalidQuery.
func (e *InvalidQueryError) Is(target error) bool {
	return target == ErrInvalidQuery
}

func invalid(clause, format string, args ...any) error {
	return &InvalidQueryError{Clause: clause, Reason: fmt.Sprintf(format, args...)}
}
