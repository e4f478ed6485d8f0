// internal/booking/engine.go
package booking

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
)

// Engine is the reservation conflict-resolution and recurring-booking
// core. It owns no storage or transport: persistence, court catalog,
// client registry and authorization are injected collaborators.
type Engine struct {
	store   Store
	courts  CourtCatalog
	clients ClientRegistry
	authz   Authorizer
}

func NewEngine(store Store, courts CourtCatalog, clients ClientRegistry, authz Authorizer) (*Engine, error) {
	if store == nil || courts == nil || clients == nil || authz == nil {
		return nil, errors.New("booking engine requires store, court catalog, client registry and authorizer")
	}
	return &Engine{store: store, courts: courts, clients: clients, authz: authz}, nil
}

// ReservationInput is a booking request. Times are HH:MM wall clock at
// minute granularity. TotalAmountCents overrides the computed
// rate-x-duration price when set.
type ReservationInput struct {
	CourtID          int64  `json:"court_id"`
	Date             string `json:"date"`
	StartTime        string `json:"start_time"`
	EndTime          string `json:"end_time"`
	Kind             Kind   `json:"kind"`
	ClientID         *int64 `json:"client_id,omitempty"`
	ClientName       string `json:"client_name"`
	ClientPhone      string `json:"client_phone"`
	ClientEmail      string `json:"client_email,omitempty"`
	TotalAmountCents *int64 `json:"total_amount_cents,omitempty"`
	AdvanceCents     int64  `json:"advance_cents,omitempty"`
	Notes            string `json:"notes,omitempty"`
}

// CheckAvailability returns the hourly slot grid for a court on a date.
// Repeated calls without an intervening insert return identical results.
func (e *Engine) CheckAvailability(ctx context.Context, actor Actor, courtID int64, date string) ([]Slot, error) {
	if err := e.authz.Authorize(ctx, actor, ActionView, actor.TenantID); err != nil {
		return nil, err
	}
	if _, err := ParseDate(date); err != nil {
		return nil, err
	}
	court, err := e.courts.GetCourt(ctx, actor.TenantID, courtID)
	if err != nil {
		return nil, err
	}
	occupied, err := e.store.ListActiveReservations(ctx, actor.TenantID, courtID, date)
	if err != nil {
		return nil, err
	}
	index := NewAvailabilityIndex(courtID, date, occupied)
	return index.Slots(*court), nil
}

// CreateReservation books a single slot. The conflict check and insert run
// atomically in the store; a lost race surfaces as *ConflictError exactly
// like a conflict seen up front.
func (e *Engine) CreateReservation(ctx context.Context, actor Actor, input ReservationInput) (*Reservation, error) {
	if err := e.authz.Authorize(ctx, actor, ActionBook, actor.TenantID); err != nil {
		return nil, err
	}
	res, err := e.buildReservation(ctx, actor, input)
	if err != nil {
		return nil, err
	}
	if err := e.store.CreateReservation(ctx, res); err != nil {
		return nil, err
	}
	log.Ctx(ctx).Info().
		Str("component", "booking_engine").
		Int64("reservation_id", res.ID).
		Int64("tenant_id", res.TenantID).
		Int64("court_id", res.CourtID).
		Str("slot", res.Interval().String()).
		Msg("Reservation created")
	return res, nil
}

// RecurringResult reports a best-effort recurrence expansion. Skipped
// instances do not abort the batch; partial success is explicit.
type RecurringResult struct {
	Parent  *Reservation      `json:"parent"`
	Created []*Reservation    `json:"created_instances"`
	Skipped []SkippedInstance `json:"skipped_instances"`
}

// SkippedInstance records one occurrence dropped during expansion along
// with the colliding range that blocked it.
type SkippedInstance struct {
	Date     string   `json:"date"`
	Occupied Interval `json:"occupied"`
}

// CreateRecurringReservation books the anchor reservation, then expands
// the rule into concrete dates and books each independently. Occurrence
// dates whose slot is taken land in Skipped; the remainder are created.
// The parent is inserted first and instances reference it by id.
func (e *Engine) CreateRecurringReservation(ctx context.Context, actor Actor, input ReservationInput, rule Recurrence) (*RecurringResult, error) {
	if err := e.authz.Authorize(ctx, actor, ActionBook, actor.TenantID); err != nil {
		return nil, err
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	parent, err := e.buildReservation(ctx, actor, input)
	if err != nil {
		return nil, err
	}
	parent.Kind = KindRecurring
	ruleCopy := rule
	parent.Recurrence = &ruleCopy
	if err := e.store.CreateReservation(ctx, parent); err != nil {
		return nil, err
	}

	dates, err := rule.ExpandDates(input.Date)
	if err != nil {
		return nil, err
	}

	logger := log.Ctx(ctx).With().
		Str("component", "booking_engine").
		Int64("parent_id", parent.ID).
		Int64("court_id", parent.CourtID).
		Logger()

	result := &RecurringResult{Parent: parent}
	for _, date := range dates {
		instance := *parent
		instance.ID = 0
		instance.Date = date
		instance.RecurringParentID = &parent.ID
		instance.Recurrence = nil
		instance.AdvancePaymentCents = 0
		instance.RemainingAmountCents = instance.TotalAmountCents
		instance.PaymentStatus = PaymentAwaiting

		if err := e.store.CreateReservation(ctx, &instance); err != nil {
			var conflict *ConflictError
			if errors.As(err, &conflict) {
				logger.Info().
					Str("date", date).
					Str("occupied", conflict.Occupied.String()).
					Msg("Recurrence instance skipped: slot occupied")
				result.Skipped = append(result.Skipped, SkippedInstance{Date: date, Occupied: conflict.Occupied})
				continue
			}
			return result, err
		}
		created := instance
		result.Created = append(result.Created, &created)
	}

	logger.Info().
		Int("created", len(result.Created)).
		Int("skipped", len(result.Skipped)).
		Msg("Recurring reservation expanded")
	return result, nil
}

// ListLogicalReservations returns the tenant's bookings with consecutive
// same-client slots merged into single logical reservations.
func (e *Engine) ListLogicalReservations(ctx context.Context, actor Actor, tenantID int64) ([]LogicalReservation, error) {
	if err := e.authz.Authorize(ctx, actor, ActionView, tenantID); err != nil {
		return nil, err
	}
	rows, err := e.store.ListActiveByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	courtList, err := e.courts.ListCourts(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	courts := make(map[int64]Court, len(courtList))
	for _, court := range courtList {
		courts[court.ID] = court
	}
	return Aggregate(rows, courts), nil
}

// ListCalendar returns the tenant's reservations for calendar display,
// ordered by date and start time.
func (e *Engine) ListCalendar(ctx context.Context, actor Actor, filter CalendarFilter) ([]Reservation, error) {
	if err := e.authz.Authorize(ctx, actor, ActionView, actor.TenantID); err != nil {
		return nil, err
	}
	if filter.StartDate != "" {
		if _, err := ParseDate(filter.StartDate); err != nil {
			return nil, ValidationError{Field: "start_date", Reason: "must be a valid YYYY-MM-DD date"}
		}
	}
	if filter.EndDate != "" {
		if _, err := ParseDate(filter.EndDate); err != nil {
			return nil, ValidationError{Field: "end_date", Reason: "must be a valid YYYY-MM-DD date"}
		}
	}
	return e.store.ListCalendar(ctx, actor.TenantID, filter)
}

// CancelReservation soft-cancels a reservation, removing it from conflict
// consideration while preserving the row for history.
func (e *Engine) CancelReservation(ctx context.Context, actor Actor, id int64) (*Reservation, error) {
	if err := e.authz.Authorize(ctx, actor, ActionCancel, actor.TenantID); err != nil {
		return nil, err
	}
	existing, err := e.store.GetReservation(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}
	if existing.Status == StatusCancelled {
		return nil, ValidationError{Field: "status", Reason: "reservation is already cancelled"}
	}
	cancelled, err := e.store.UpdateReservationStatus(ctx, actor.TenantID, id, StatusCancelled)
	if err != nil {
		return nil, err
	}
	log.Ctx(ctx).Info().
		Str("component", "booking_engine").
		Int64("reservation_id", id).
		Int64("tenant_id", actor.TenantID).
		Msg("Reservation cancelled")
	return cancelled, nil
}

// RescheduleReservation moves a reservation to a new date or time. The new
// slot is re-validated for conflicts atomically with the update.
func (e *Engine) RescheduleReservation(ctx context.Context, actor Actor, id int64, date, start, end string) (*Reservation, error) {
	if err := e.authz.Authorize(ctx, actor, ActionReschedule, actor.TenantID); err != nil {
		return nil, err
	}
	existing, err := e.store.GetReservation(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}
	if !existing.Status.Occupies() {
		return nil, ValidationError{Field: "status", Reason: "only active reservations can be rescheduled"}
	}
	slot, err := ParseInterval(date, start, end)
	if err != nil {
		return nil, err
	}
	return e.store.RescheduleReservation(ctx, actor.TenantID, id, slot)
}

// RecordPayment applies a payment toward the reservation's total and
// recomputes the derived payment state. Overpayment is a data-entry error
// surfaced to the caller, never clamped.
func (e *Engine) RecordPayment(ctx context.Context, actor Actor, id int64, amountCents int64) (*Reservation, error) {
	if err := e.authz.Authorize(ctx, actor, ActionRecordPayment, actor.TenantID); err != nil {
		return nil, err
	}
	if amountCents <= 0 {
		return nil, ValidationError{Field: "amount_cents", Reason: "must be greater than 0"}
	}
	existing, err := e.store.GetReservation(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}
	advance := existing.AdvancePaymentCents + amountCents
	if advance > existing.TotalAmountCents {
		return nil, ValidationError{Field: "amount_cents", Reason: "exceeds remaining amount"}
	}
	remaining := existing.TotalAmountCents - advance
	return e.store.UpdateReservationPayment(ctx, actor.TenantID, id, advance, remaining, derivePaymentStatus(advance, existing.TotalAmountCents))
}

// buildReservation validates the input, resolves court and client, and
// computes the derived pricing fields. It does not touch availability:
// the conflict check belongs to the store's atomic insert.
func (e *Engine) buildReservation(ctx context.Context, actor Actor, input ReservationInput) (*Reservation, error) {
	slot, err := ParseInterval(input.Date, input.StartTime, input.EndTime)
	if err != nil {
		return nil, err
	}
	kind := input.Kind
	if kind == "" {
		kind = KindRental
	}
	if !kind.Valid() {
		return nil, ValidationError{Field: "kind", Reason: "must be one of rental, lesson, event, recurring"}
	}
	if input.ClientID == nil && strings.TrimSpace(input.ClientName) == "" {
		return nil, ValidationError{Field: "client_name", Reason: "is required for walk-in bookings"}
	}
	if input.AdvanceCents < 0 {
		return nil, ValidationError{Field: "advance_cents", Reason: "must be 0 or greater"}
	}

	court, err := e.courts.GetCourt(ctx, actor.TenantID, input.CourtID)
	if err != nil {
		return nil, err
	}
	if court.Status != CourtActive {
		return nil, ValidationError{Field: "court_id", Reason: "court is not active"}
	}
	if court.HourlyRateCents == nil {
		log.Ctx(ctx).Warn().
			Str("component", "booking_engine").
			Int64("court_id", court.ID).
			Int64("fallback_rate_cents", DefaultHourlyRateCents).
			Msg("Court has no hourly rate, using fallback")
	}

	snapshot, err := e.clients.Snapshot(ctx, actor.TenantID, input.ClientID, input.ClientName, input.ClientPhone, input.ClientEmail)
	if err != nil {
		return nil, err
	}

	total := SlotPriceCents(court.HourlyRateCents, slot.DurationMinutes())
	if input.TotalAmountCents != nil {
		if *input.TotalAmountCents < 0 {
			return nil, ValidationError{Field: "total_amount_cents", Reason: "must be 0 or greater"}
		}
		total = *input.TotalAmountCents
	}
	if input.AdvanceCents > total {
		return nil, ValidationError{Field: "advance_cents", Reason: "exceeds total amount"}
	}

	return &Reservation{
		TenantID:             actor.TenantID,
		CourtID:              court.ID,
		UserID:               actor.UserID,
		Date:                 slot.Date,
		StartMinute:          slot.StartMinute,
		EndMinute:            slot.EndMinute,
		Kind:                 kind,
		Status:               StatusConfirmed,
		BasePriceCents:       HourlyRateOrDefault(court.HourlyRateCents),
		TotalAmountCents:     total,
		AdvancePaymentCents:  input.AdvanceCents,
		RemainingAmountCents: total - input.AdvanceCents,
		PaymentStatus:        derivePaymentStatus(input.AdvanceCents, total),
		ClientID:             snapshot.ClientID,
		ClientName:           snapshot.Name,
		ClientPhone:          snapshot.Phone,
		ClientEmail:          snapshot.Email,
		Notes:                input.Notes,
	}, nil
}

func derivePaymentStatus(advanceCents, totalCents int64) PaymentStatus {
	switch {
	case totalCents > 0 && advanceCents >= totalCents:
		return PaymentPaid
	case advanceCents > 0:
		return PaymentPartiallyPaid
	default:
		return PaymentAwaiting
	}
}
