// internal/booking/ports.go
package booking

import "context"

// Store is the persistence collaborator. CreateReservation and
// RescheduleReservation must run their conflict re-check and write in a
// single transaction so that of two racing requests for the same slot only
// one succeeds; the loser gets a *ConflictError, never a silent overwrite.
type Store interface {
	// ListActiveReservations returns every slot-occupying reservation for
	// the court and date, regardless of who created it. No caching: each
	// call reflects the latest committed state.
	ListActiveReservations(ctx context.Context, tenantID, courtID int64, date string) ([]Reservation, error)
	ListActiveByTenant(ctx context.Context, tenantID int64) ([]Reservation, error)
	ListCalendar(ctx context.Context, tenantID int64, filter CalendarFilter) ([]Reservation, error)
	GetReservation(ctx context.Context, tenantID, id int64) (*Reservation, error)
	CreateReservation(ctx context.Context, res *Reservation) error
	RescheduleReservation(ctx context.Context, tenantID, id int64, slot Interval) (*Reservation, error)
	UpdateReservationStatus(ctx context.Context, tenantID, id int64, status Status) (*Reservation, error)
	UpdateReservationPayment(ctx context.Context, tenantID, id int64, advanceCents, remainingCents int64, status PaymentStatus) (*Reservation, error)
}

// CourtCatalog supplies court ownership, pricing and operating hours.
// Lookups are tenant-scoped; a court belonging to another tenant is a
// NotFoundError, indistinguishable from a missing one.
type CourtCatalog interface {
	GetCourt(ctx context.Context, tenantID, courtID int64) (*Court, error)
	ListCourts(ctx context.Context, tenantID int64) ([]Court, error)
}

// ClientSnapshot is the client identity captured on a reservation at
// booking time. Phone is normalized so the aggregator's walk-in fallback
// key compares reliably.
type ClientSnapshot struct {
	ClientID *int64
	Name     string
	Phone    string
	Email    string
}

// ClientRegistry resolves the client fields to snapshot. With a client id
// it loads the registered record (tenant-scoped); without one it
// normalizes the walk-in fields given in the request.
type ClientRegistry interface {
	Snapshot(ctx context.Context, tenantID int64, clientID *int64, name, phone, email string) (ClientSnapshot, error)
}

// Actor is the already-validated request identity supplied by the auth
// collaborator. The engine trusts it and scopes every query by TenantID.
type Actor struct {
	TenantID int64
	UserID   int64
	Role     string
}

type Action string

const (
	ActionBook          Action = "reservation:book"
	ActionView          Action = "reservation:view"
	ActionCancel        Action = "reservation:cancel"
	ActionReschedule    Action = "reservation:reschedule"
	ActionRecordPayment Action = "reservation:payment"
	ActionManageCourts  Action = "court:manage"
	ActionManageTenants Action = "tenant:manage"
)

// Authorizer is the single capability check the engine performs per
// operation, decoupling it from any HTTP-layer role middleware.
type Authorizer interface {
	Authorize(ctx context.Context, actor Actor, action Action, tenantID int64) error
}

// CalendarFilter narrows a tenant's calendar listing. Zero values mean
// "no filter".
type CalendarFilter struct {
	CourtID       int64
	StartDate     string
	EndDate       string
	Kind          Kind
	PaymentStatus PaymentStatus
}
