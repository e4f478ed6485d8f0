// internal/booking/types.go
package booking

import "time"

// Status is the lifecycle state of a reservation row. Rows are never
// deleted; cancellation is a status transition.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusNoShow    Status = "no_show"
	// StatusBlocked marks a staff-entered slot block. It occupies the slot
	// like a regular booking but has no client attached.
	StatusBlocked Status = "blocked"
)

// Occupies reports whether a reservation in this status counts against
// court availability. Cancelled, completed and no-show rows do not.
func (s Status) Occupies() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusBlocked:
		return true
	default:
		return false
	}
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted, StatusNoShow, StatusBlocked:
		return true
	default:
		return false
	}
}

type Kind string

const (
	KindRental    Kind = "rental"
	KindLesson    Kind = "lesson"
	KindEvent     Kind = "event"
	KindRecurring Kind = "recurring"
)

func (k Kind) Valid() bool {
	switch k {
	case KindRental, KindLesson, KindEvent, KindRecurring:
		return true
	default:
		return false
	}
}

type PaymentStatus string

const (
	PaymentAwaiting      PaymentStatus = "awaiting"
	PaymentPaid          PaymentStatus = "paid"
	PaymentPartiallyPaid PaymentStatus = "partially_paid"
	PaymentRefunded      PaymentStatus = "refunded"
)

// Reservation is the central entity. Client fields are a snapshot taken at
// booking time, not a live join; the row stays valid if the client record
// later changes.
type Reservation struct {
	ID       int64 `json:"id"`
	TenantID int64 `json:"tenant_id"`
	CourtID  int64 `json:"court_id"`
	UserID   int64 `json:"user_id"`

	Date        string `json:"date"` // YYYY-MM-DD
	StartMinute int    `json:"start_minute"`
	EndMinute   int    `json:"end_minute"`

	Kind   Kind   `json:"kind"`
	Status Status `json:"status"`

	BasePriceCents       int64         `json:"base_price_cents"`
	TotalAmountCents     int64         `json:"total_amount_cents"`
	AdvancePaymentCents  int64         `json:"advance_payment_cents"`
	RemainingAmountCents int64         `json:"remaining_amount_cents"`
	PaymentStatus        PaymentStatus `json:"payment_status"`

	ClientID    *int64 `json:"client_id,omitempty"`
	ClientName  string `json:"client_name"`
	ClientPhone string `json:"client_phone"`
	ClientEmail string `json:"client_email,omitempty"`

	RecurringParentID *int64      `json:"recurring_parent_id,omitempty"`
	Recurrence        *Recurrence `json:"recurrence,omitempty"`

	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Interval returns the reservation's half-open time range.
func (r *Reservation) Interval() Interval {
	return Interval{Date: r.Date, StartMinute: r.StartMinute, EndMinute: r.EndMinute}
}

type CourtStatus string

const (
	CourtActive      CourtStatus = "active"
	CourtInactive    CourtStatus = "inactive"
	CourtMaintenance CourtStatus = "maintenance"
)

// Court is the catalog view the engine needs: tenant ownership, pricing
// and operating hours. Open/CloseMinute of 0 means "not configured" and
// falls back to the 06:00-22:00 default grid.
type Court struct {
	ID              int64       `json:"id"`
	TenantID        int64       `json:"tenant_id"`
	Name            string      `json:"name"`
	Sport           string      `json:"sport"`
	Status          CourtStatus `json:"status"`
	HourlyRateCents *int64      `json:"hourly_rate_cents,omitempty"`
	OpenMinute      int         `json:"open_minute"`
	CloseMinute     int         `json:"close_minute"`
}

// Slot is one entry of the availability grid returned by CheckAvailability.
type Slot struct {
	Start      string `json:"start"`
	End        string `json:"end"`
	Available  bool   `json:"available"`
	PriceCents int64  `json:"price_cents"`
}
