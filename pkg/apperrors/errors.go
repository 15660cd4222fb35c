package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidStatus       = errors.New("invalid definition status")
	ErrForeignKeysDisabled = errors.New("foreign key enforcement is disabled")
)

// ValidationError reports a value rejected before it reached storage.
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }
