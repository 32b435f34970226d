package entity

import (
	"errors"
	"fmt"
)

// CapacityError is returned by Manager.Create when every slot is live and the
// free list is empty.
//
// Capacity exhaustion is surfaced as an error rather than degraded silently:
// it indicates a sizing problem or an entity leak, not a normal runtime
// condition, and the caller's logic should be interrupted by it.
type CapacityError struct {
	Capacity int // Configured slot capacity of the manager
	Live     int // Number of live entities at the time of the failure
}

// Error implements the error interface.
func (e *CapacityError) Error() string {
	return fmt.Sprintf("entity capacity exhausted: %d live of %d slots", e.Live, e.Capacity)
}

// IsCapacityError returns true if the error is a CapacityError.
// Uses errors.As to handle wrapped errors.
func IsCapacityError(err error) bool {
	var ce *CapacityError
	return errors.As(err, &ce)
}
