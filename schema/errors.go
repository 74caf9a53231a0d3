package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a schema, table or column cannot be resolved.
	ErrNotFound = errors.New("not found")

	// ErrInvalidRelationship is returned when a relationship violates its invariants.
	ErrInvalidRelationship = errors.New("invalid relationship")
)

// NotFoundError describes an unresolvable or ambiguous schema reference.
type NotFoundError struct {
	Kind      string // "schema", "table" or "column"
	Name      string
	Ambiguous bool
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.Ambiguous {
		return fmt.Sprintf("%s %q is ambiguous", e.Kind, e.Name)
	}
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// Is reports whether the target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func notFound(kind, name string) error {
	return &NotFoundError{Kind: kind, Name: name}
}

func ambiguous(kind, name string) error {
	return &NotFoundError{Kind: kind, Name: name, Ambiguous: true}
}
