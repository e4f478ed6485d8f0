// internal/booking/errors.go
package booking

import "fmt"

// ValidationError rejects malformed input before any availability check.
// Never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// ConflictError reports that a requested slot is already occupied. It
// carries the colliding reservation's time range so callers can suggest
// alternatives. Races lost at the insert point surface as this same error
// so the caller may retry once with a fresh availability read.
type ConflictError struct {
	CourtID       int64
	ReservationID int64 // colliding reservation; 0 when lost to a concurrent insert
	Occupied      Interval
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("slot occupied on court %d: %s", e.CourtID, e.Occupied)
}

// NotFoundError covers references to courts, tenants, clients or
// reservations that do not exist or belong to another tenant. The two
// cases are deliberately indistinguishable to the caller.
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}
