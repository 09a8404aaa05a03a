package projection

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound occurs when no event references the entity
	ErrNotFound = errors.New("cqrs: no entity found")
	// ErrUnknownEvent occurs when the folded event name is not registered
	ErrUnknownEvent = errors.New("cqrs: unknown event")
	// ErrInvalidEventFormat occurs when the folded event has no name or cannot be decoded
	ErrInvalidEventFormat = errors.New("cqrs: invalid event format")

	_ error = &Error{}
)

// Error an error indicating that an entity could not be projected
type Error struct {
	EntityUUID string
	Err        error
}

// Error return the error message
func (e *Error) Error() string {
	return fmt.Sprintf("cqrs: failed to project entity %s: %v", e.EntityUUID, e.Err)
}

// Unwrap returns the cause of the failure
func (e *Error) Unwrap() error {
	return e.Err
}

// Cause returns the cause of the failure.
// This also adds support for github.com/pkg/errors.Cause
func (e *Error) Cause() error {
	return e.Err
}
