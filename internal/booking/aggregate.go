// internal/booking/aggregate.go
package booking

import (
	"fmt"
	"sort"
	"strings"
)

// LogicalReservation is the merged view of consecutive physical rows for
// the same client, court and date. ID is the last physical reservation
// absorbed into the group -- a historical quirk, not a stable identifier.
// Callers needing a stable reference must use ReservationIDs, which always
// lists every constituent row.
type LogicalReservation struct {
	ID               int64    `json:"id"`
	TenantID         int64    `json:"tenant_id"`
	CourtID          int64    `json:"court_id"`
	CourtName        string   `json:"court_name"`
	Date             string   `json:"date"`
	Start            string   `json:"start"`
	End              string   `json:"end"`
	Status           Status   `json:"status"`
	ClientName       string   `json:"client_name"`
	TotalAmountCents int64    `json:"total_amount_cents"`
	ReservationIDs   []int64  `json:"reservation_ids"`

	startMinute int
	endMinute   int
	clientKey   string
}

// clientKey is the grouping identity. Registered clients group by their
// stable id; walk-ins fall back to name plus normalized phone so two
// walk-ins sharing a name do not merge.
func clientKey(r Reservation) string {
	if r.ClientID != nil {
		return fmt.Sprintf("client:%d", *r.ClientID)
	}
	return "walkin:" + strings.ToLower(strings.TrimSpace(r.ClientName)) + "|" + r.ClientPhone
}

// Aggregate merges adjacent same-client/court/date reservations into
// logical reservations. Rows are walked in (date, court, start) order; a
// row extends the open group only when its start equals the group's
// current end exactly. The merged price is the sum of each constituent
// slot's independently computed price, never rate x merged duration, so
// per-slot rate differences survive aggregation.
//
// Rows whose court is missing from the catalog snapshot are skipped, and
// only slot-occupying rows participate: cancelled bookings never reappear
// in the logical view.
func Aggregate(rows []Reservation, courts map[int64]Court) []LogicalReservation {
	sorted := make([]Reservation, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Date != sorted[j].Date {
			return sorted[i].Date < sorted[j].Date
		}
		if sorted[i].CourtID != sorted[j].CourtID {
			return sorted[i].CourtID < sorted[j].CourtID
		}
		return sorted[i].StartMinute < sorted[j].StartMinute
	})

	var (
		logical []LogicalReservation
		open    *LogicalReservation
	)
	for _, res := range sorted {
		if !res.Status.Occupies() {
			continue
		}
		court, ok := courts[res.CourtID]
		if !ok {
			continue
		}

		key := clientKey(res)
		slotPrice := SlotPriceCents(court.HourlyRateCents, res.Interval().DurationMinutes())

		if open != nil &&
			open.clientKey == key &&
			open.CourtID == res.CourtID &&
			open.Date == res.Date &&
			open.endMinute == res.StartMinute {
			open.endMinute = res.EndMinute
			open.End = FormatClock(res.EndMinute)
			open.TotalAmountCents += slotPrice
			open.ReservationIDs = append(open.ReservationIDs, res.ID)
			open.ID = res.ID
			continue
		}

		if open != nil {
			logical = append(logical, *open)
		}
		open = &LogicalReservation{
			ID:               res.ID,
			TenantID:         res.TenantID,
			CourtID:          res.CourtID,
			CourtName:        court.Name,
			Date:             res.Date,
			Start:            FormatClock(res.StartMinute),
			End:              FormatClock(res.EndMinute),
			Status:           res.Status,
			ClientName:       res.ClientName,
			TotalAmountCents: slotPrice,
			ReservationIDs:   []int64{res.ID},
			startMinute:      res.StartMinute,
			endMinute:        res.EndMinute,
			clientKey:        key,
		}
	}
	if open != nil {
		logical = append(logical, *open)
	}
	return logical
}
