// internal/booking/interval.go
package booking

import (
	"fmt"
	"time"
)

const (
	// DateLayout is the calendar-day format used throughout the engine.
	DateLayout = "2006-01-02"

	minutesPerDay = 24 * 60
)

// Interval is a half-open [start, end) time range on a calendar day.
// Times are minutes since midnight so comparisons never depend on string
// formatting at hour boundaries.
type Interval struct {
	Date        string `json:"date"`
	StartMinute int    `json:"start_minute"`
	EndMinute   int    `json:"end_minute"`
}

// NewInterval validates and builds an interval. End must be strictly after
// start and both must fall within a single day.
func NewInterval(date string, startMinute, endMinute int) (Interval, error) {
	if _, err := ParseDate(date); err != nil {
		return Interval{}, err
	}
	if startMinute < 0 || startMinute >= minutesPerDay {
		return Interval{}, ValidationError{Field: "start_time", Reason: "must be within the day"}
	}
	if endMinute <= 0 || endMinute > minutesPerDay {
		return Interval{}, ValidationError{Field: "end_time", Reason: "must be within the day"}
	}
	if endMinute <= startMinute {
		return Interval{}, ValidationError{Field: "end_time", Reason: "must be after start_time"}
	}
	return Interval{Date: date, StartMinute: startMinute, EndMinute: endMinute}, nil
}

// ParseInterval builds an interval from HH:MM clock strings.
func ParseInterval(date, start, end string) (Interval, error) {
	startMinute, err := ParseClock(start)
	if err != nil {
		return Interval{}, ValidationError{Field: "start_time", Reason: "must be a valid HH:MM time"}
	}
	endMinute, err := ParseClock(end)
	if err != nil {
		return Interval{}, ValidationError{Field: "end_time", Reason: "must be a valid HH:MM time"}
	}
	return NewInterval(date, startMinute, endMinute)
}

// Overlaps reports whether two intervals on the same date share any time.
// Half-open semantics: back-to-back intervals do not overlap.
func (iv Interval) Overlaps(o Interval) bool {
	if iv.Date != o.Date {
		return false
	}
	return iv.StartMinute < o.EndMinute && o.StartMinute < iv.EndMinute
}

// AdjacentTo reports whether o begins exactly where iv ends, or vice
// versa, on the same date. Adjacent intervals never conflict and are the
// merge condition for the aggregator.
func (iv Interval) AdjacentTo(o Interval) bool {
	if iv.Date != o.Date {
		return false
	}
	return iv.EndMinute == o.StartMinute || o.EndMinute == iv.StartMinute
}

func (iv Interval) DurationMinutes() int {
	return iv.EndMinute - iv.StartMinute
}

func (iv Interval) StartClock() string { return FormatClock(iv.StartMinute) }
func (iv Interval) EndClock() string   { return FormatClock(iv.EndMinute) }

func (iv Interval) String() string {
	return fmt.Sprintf("%s %s-%s", iv.Date, iv.StartClock(), iv.EndClock())
}

// ParseClock converts an HH:MM string to minutes since midnight. The
// full-day end boundary 24:00 is accepted and maps to 1440, mirroring
// FormatClock.
func ParseClock(value string) (int, error) {
	if value == "24:00" {
		return minutesPerDay, nil
	}
	parsed, err := time.Parse("15:04", value)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", value, err)
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}

// FormatClock converts minutes since midnight back to HH:MM. A full-day
// end boundary renders as 24:00.
func FormatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// ParseDate validates a YYYY-MM-DD calendar day.
func ParseDate(value string) (time.Time, error) {
	parsed, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, ValidationError{Field: "date", Reason: "must be a valid YYYY-MM-DD date"}
	}
	return parsed, nil
}
