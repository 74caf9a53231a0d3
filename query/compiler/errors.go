package compiler

import (
	"errors"
	"fmt"
)

var (
	// ErrArgumentCount is returned when the number of bound values does not
	// match the number of parameters.
	ErrArgumentCount = errors.New("wrong number of arguments")
)

// ArgumentCountError reports a parameter arity mismatch.
type ArgumentCountError struct {
	Expected int
	Actual   int
}

func (e *ArgumentCountError) Error() string {
	return fmt.Sprintf("expected %d parameter value(s), got %d", e.Expected, e.Actual)
}

// Is reports whether the target is ErrArgumentCount.
func (e *ArgumentCountError) Is(target error) bool {
	return target == ErrArgumentCount
}
