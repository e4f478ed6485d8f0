// internal/booking/conflict.go
package booking

// FindConflicts returns every occupied reservation whose interval overlaps
// the candidate. A linear scan is enough: occupied counts per court/day
// are bounded by operating hours. Rows whose status no longer occupies the
// slot are skipped defensively even though the store should not return
// them.
func FindConflicts(candidate Interval, occupied []Reservation) []Reservation {
	var colliding []Reservation
	for _, res := range occupied {
		if !res.Status.Occupies() {
			continue
		}
		if candidate.Overlaps(res.Interval()) {
			colliding = append(colliding, res)
		}
	}
	return colliding
}

// ConflictFor wraps the first colliding reservation into the error handed
// back to callers.
func ConflictFor(candidate Interval, colliding []Reservation) *ConflictError {
	if len(colliding) == 0 {
		return nil
	}
	first := colliding[0]
	return &ConflictError{
		CourtID:       first.CourtID,
		ReservationID: first.ID,
		Occupied:      first.Interval(),
	}
}
