// internal/booking/availability.go
package booking

// Default grid used when a court has no configured operating hours,
// matching the platform's historical 06:00-22:00 window.
const (
	defaultOpenMinute  = 6 * 60
	defaultCloseMinute = 22 * 60

	slotMinutes = 60
)

// AvailabilityIndex is the set of occupied intervals for one court and
// date. It is built fresh from the store for every check; nothing is
// cached, so each check reflects the latest committed state.
type AvailabilityIndex struct {
	CourtID  int64
	Date     string
	Occupied []Reservation
}

func NewAvailabilityIndex(courtID int64, date string, occupied []Reservation) AvailabilityIndex {
	return AvailabilityIndex{CourtID: courtID, Date: date, Occupied: occupied}
}

// Conflicts tests a candidate interval against the occupied set.
func (ix AvailabilityIndex) Conflicts(candidate Interval) []Reservation {
	return FindConflicts(candidate, ix.Occupied)
}

// Slots renders the hourly availability grid over the court's operating
// hours. Each slot carries the price a one-hour booking would cost.
func (ix AvailabilityIndex) Slots(court Court) []Slot {
	open, close := court.OpenMinute, court.CloseMinute
	if open <= 0 && close <= 0 {
		open, close = defaultOpenMinute, defaultCloseMinute
	}

	slots := make([]Slot, 0, (close-open)/slotMinutes)
	for start := open; start+slotMinutes <= close; start += slotMinutes {
		slot := Interval{Date: ix.Date, StartMinute: start, EndMinute: start + slotMinutes}
		slots = append(slots, Slot{
			Start:      slot.StartClock(),
			End:        slot.EndClock(),
			Available:  len(ix.Conflicts(slot)) == 0,
			PriceCents: SlotPriceCents(court.HourlyRateCents, slotMinutes),
		})
	}
	return slots
}
