// internal/booking/recurrence.go
package booking

import "time"

type Frequency string

const (
	FrequencyDaily    Frequency = "daily"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
)

// MaxGeneratedInstances caps recurrence expansion at roughly one year of
// weekly bookings regardless of the stated parameters. An occurrence count
// above the cap is clamped, not rejected; the response reports the
// instances actually attempted so the truncation is visible to the caller.
const MaxGeneratedInstances = 52

// Recurrence describes a recurring booking rule. Occurrences counts the
// anchor reservation itself: {weekly, occurrences: 4} starting on a Monday
// books four Mondays in total. With neither end condition set, expansion
// runs to the cap.
type Recurrence struct {
	Frequency   Frequency `json:"frequency"`
	EndDate     string    `json:"end_date,omitempty"`
	Occurrences int       `json:"occurrences,omitempty"`
}

func (r Recurrence) Validate() error {
	switch r.Frequency {
	case FrequencyDaily, FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly:
	default:
		return ValidationError{Field: "frequency", Reason: "must be one of daily, weekly, biweekly, monthly"}
	}
	if r.Occurrences < 0 {
		return ValidationError{Field: "occurrences", Reason: "must be a positive integer"}
	}
	if r.EndDate != "" {
		if _, err := ParseDate(r.EndDate); err != nil {
			return ValidationError{Field: "end_date", Reason: "must be a valid YYYY-MM-DD date"}
		}
	}
	return nil
}

// ExpandDates generates the concrete instance dates following the anchor,
// in order. The anchor itself is not included: it is the parent
// reservation, created before expansion. Generation stops when the end
// date is exceeded, when the occurrence count is satisfied, or at the
// hard cap, whichever comes first.
func (r Recurrence) ExpandDates(anchorDate string) ([]string, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	anchor, err := ParseDate(anchorDate)
	if err != nil {
		return nil, err
	}

	limit := MaxGeneratedInstances
	if r.Occurrences > 0 && r.Occurrences-1 < limit {
		limit = r.Occurrences - 1
	}

	var endDate time.Time
	if r.EndDate != "" {
		endDate, _ = ParseDate(r.EndDate)
	}

	dates := make([]string, 0, limit)
	current := anchor
	for len(dates) < limit {
		current = r.advance(current)
		if !endDate.IsZero() && current.After(endDate) {
			break
		}
		dates = append(dates, current.Format(DateLayout))
	}
	return dates, nil
}

func (r Recurrence) advance(from time.Time) time.Time {
	switch r.Frequency {
	case FrequencyDaily:
		return from.AddDate(0, 0, 1)
	case FrequencyWeekly:
		return from.AddDate(0, 0, 7)
	case FrequencyBiweekly:
		return from.AddDate(0, 0, 14)
	case FrequencyMonthly:
		return from.AddDate(0, 1, 0)
	default:
		return from
	}
}
