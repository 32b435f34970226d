package eventbus

import (
	"errors"
	"fmt"
)

// UnknownTypeError is returned by Subscribe for a type id the registry never
// handed out. Send deliberately does not return it: sends are
// fire-and-forget and report unknown types only through Stats.UnknownType.
type UnknownTypeError struct {
	ID TypeID
}

// Error implements the error interface.
func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("eventbus: unknown event type id %d", e.ID)
}

// IsUnknownTypeError returns true if the error is an UnknownTypeError.
// Uses errors.As to handle wrapped errors.
func IsUnknownTypeError(err error) bool {
	var ue *UnknownTypeError
	return errors.As(err, &ue)
}
