package booking

import (
	"context"
	"errors"
	"testing"
)

// memStore is an in-memory Store with the same atomicity contract as the
// SQL implementation: conflict check and insert happen in one step.
type memStore struct {
	nextID       int64
	reservations []Reservation
}

func newMemStore() *memStore {
	return &memStore{nextID: 1}
}

func (m *memStore) active(tenantID, courtID int64, date string) []Reservation {
	var out []Reservation
	for _, r := range m.reservations {
		if r.TenantID == tenantID && r.CourtID == courtID && r.Date == date && r.Status.Occupies() {
			out = append(out, r)
		}
	}
	return out
}

func (m *memStore) ListActiveReservations(_ context.Context, tenantID, courtID int64, date string) ([]Reservation, error) {
	return m.active(tenantID, courtID, date), nil
}

func (m *memStore) ListActiveByTenant(_ context.Context, tenantID int64) ([]Reservation, error) {
	var out []Reservation
	for _, r := range m.reservations {
		if r.TenantID == tenantID && r.Status.Occupies() {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) ListCalendar(_ context.Context, tenantID int64, filter CalendarFilter) ([]Reservation, error) {
	var out []Reservation
	for _, r := range m.reservations {
		if r.TenantID != tenantID {
			continue
		}
		if filter.CourtID > 0 && r.CourtID != filter.CourtID {
			continue
		}
		if filter.StartDate != "" && r.Date < filter.StartDate {
			continue
		}
		if filter.EndDate != "" && r.Date > filter.EndDate {
			continue
		}
		if filter.Kind != "" && r.Kind != filter.Kind {
			continue
		}
		if filter.PaymentStatus != "" && r.PaymentStatus != filter.PaymentStatus {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *memStore) GetReservation(_ context.Context, tenantID, id int64) (*Reservation, error) {
	for i := range m.reservations {
		if m.reservations[i].ID == id && m.reservations[i].TenantID == tenantID {
			res := m.reservations[i]
			return &res, nil
		}
	}
	return nil, NotFoundError{Resource: "reservation", ID: id}
}

func (m *memStore) CreateReservation(_ context.Context, res *Reservation) error {
	occupied := m.active(res.TenantID, res.CourtID, res.Date)
	if colliding := FindConflicts(res.Interval(), occupied); len(colliding) > 0 {
		return ConflictFor(res.Interval(), colliding)
	}
	res.ID = m.nextID
	m.nextID++
	m.reservations = append(m.reservations, *res)
	return nil
}

func (m *memStore) RescheduleReservation(ctx context.Context, tenantID, id int64, slot Interval) (*Reservation, error) {
	existing, err := m.GetReservation(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	occupied := m.active(tenantID, existing.CourtID, slot.Date)
	var others []Reservation
	for _, o := range occupied {
		if o.ID != id {
			others = append(others, o)
		}
	}
	if colliding := FindConflicts(slot, others); len(colliding) > 0 {
		return nil, ConflictFor(slot, colliding)
	}
	for i := range m.reservations {
		if m.reservations[i].ID == id && m.reservations[i].TenantID == tenantID {
			m.reservations[i].Date = slot.Date
			m.reservations[i].StartMinute = slot.StartMinute
			m.reservations[i].EndMinute = slot.EndMinute
			res := m.reservations[i]
			return &res, nil
		}
	}
	return nil, NotFoundError{Resource: "reservation", ID: id}
}

func (m *memStore) UpdateReservationStatus(_ context.Context, tenantID, id int64, status Status) (*Reservation, error) {
	for i := range m.reservations {
		if m.reservations[i].ID == id && m.reservations[i].TenantID == tenantID {
			m.reservations[i].Status = status
			res := m.reservations[i]
			return &res, nil
		}
	}
	return nil, NotFoundError{Resource: "reservation", ID: id}
}

func (m *memStore) UpdateReservationPayment(_ context.Context, tenantID, id int64, advanceCents, remainingCents int64, status PaymentStatus) (*Reservation, error) {
	for i := range m.reservations {
		if m.reservations[i].ID == id && m.reservations[i].TenantID == tenantID {
			m.reservations[i].AdvancePaymentCents = advanceCents
			m.reservations[i].RemainingAmountCents = remainingCents
			m.reservations[i].PaymentStatus = status
			res := m.reservations[i]
			return &res, nil
		}
	}
	return nil, NotFoundError{Resource: "reservation", ID: id}
}

type memCatalog struct {
	courts map[int64]Court
}

func (c *memCatalog) GetCourt(_ context.Context, tenantID, courtID int64) (*Court, error) {
	court, ok := c.courts[courtID]
	if !ok || court.TenantID != tenantID {
		return nil, NotFoundError{Resource: "court", ID: courtID}
	}
	return &court, nil
}

func (c *memCatalog) ListCourts(_ context.Context, tenantID int64) ([]Court, error) {
	var out []Court
	for _, court := range c.courts {
		if court.TenantID == tenantID {
			out = append(out, court)
		}
	}
	return out, nil
}

type memRegistry struct{}

func (memRegistry) Snapshot(_ context.Context, _ int64, clientID *int64, name, phone, email string) (ClientSnapshot, error) {
	return ClientSnapshot{ClientID: clientID, Name: name, Phone: phone, Email: email}, nil
}

type allowAll struct{}

func (allowAll) Authorize(context.Context, Actor, Action, int64) error { return nil }

type denyAll struct{ err error }

func (d denyAll) Authorize(context.Context, Actor, Action, int64) error { return d.err }

func newTestEngine(t *testing.T) (*Engine, *memStore) {
	t.Helper()
	store := newMemStore()
	catalog := &memCatalog{courts: map[int64]Court{
		1: {ID: 1, TenantID: 1, Name: "Court 1", Status: CourtActive, HourlyRateCents: rateCents(5000)},
		2: {ID: 2, TenantID: 1, Name: "Court 2", Status: CourtInactive, HourlyRateCents: rateCents(5000)},
		3: {ID: 3, TenantID: 1, Name: "Court 3", Status: CourtActive},
		4: {ID: 4, TenantID: 2, Name: "Other Tenant", Status: CourtActive, HourlyRateCents: rateCents(5000)},
	}}
	engine, err := NewEngine(store, catalog, memRegistry{}, allowAll{})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine, store
}

var testActor = Actor{TenantID: 1, UserID: 100, Role: "admin"}

func slotInput(courtID int64, date, start, end string) ReservationInput {
	return ReservationInput{
		CourtID:    courtID,
		Date:       date,
		StartTime:  start,
		EndTime:    end,
		ClientName: "Ana",
	}
}

func TestCreateReservation(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	res, err := engine.CreateReservation(ctx, testActor, slotInput(1, "2025-03-10", "10:00", "11:00"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.ID == 0 {
		t.Error("reservation should be assigned an id")
	}
	if res.Status != StatusConfirmed {
		t.Errorf("status = %s, want confirmed", res.Status)
	}
	if res.Kind != KindRental {
		t.Errorf("kind = %s, want default rental", res.Kind)
	}
	if res.TotalAmountCents != 5000 {
		t.Errorf("total = %d, want 5000", res.TotalAmountCents)
	}
	if res.RemainingAmountCents != 5000 || res.PaymentStatus != PaymentAwaiting {
		t.Errorf("payment = %d/%s, want 5000/awaiting", res.RemainingAmountCents, res.PaymentStatus)
	}
}

func TestCreateReservationConflict(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	first, err := engine.CreateReservation(ctx, testActor, slotInput(1, "2025-03-10", "10:00", "11:00"))
	if err != nil {
		t.Fatalf("first create: %v", err)
	}

	_, err = engine.CreateReservation(ctx, testActor, slotInput(1, "2025-03-10", "10:30", "11:30"))
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("overlapping create returned %v, want ConflictError", err)
	}
	if conflict.ReservationID != first.ID {
		t.Errorf("conflict names reservation %d, want %d", conflict.ReservationID, first.ID)
	}

	// Back-to-back bookings never conflict.
	if _, err := engine.CreateReservation(ctx, testActor, slotInput(1, "2025-03-10", "11:00", "12:00")); err != nil {
		t.Errorf("adjacent create failed: %v", err)
	}
}

func TestCreateReservationValidation(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input ReservationInput
	}{
		{"end before start", slotInput(1, "2025-03-10", "11:00", "10:00")},
		{"zero duration", slotInput(1, "2025-03-10", "10:00", "10:00")},
		{"bad date", slotInput(1, "10-03-2025", "10:00", "11:00")},
		{"missing client", ReservationInput{CourtID: 1, Date: "2025-03-10", StartTime: "10:00", EndTime: "11:00"}},
		{"inactive court", slotInput(2, "2025-03-10", "10:00", "11:00")},
		{"bad kind", func() ReservationInput {
			in := slotInput(1, "2025-03-10", "10:00", "11:00")
			in.Kind = "tournament"
			return in
		}()},
		{"negative advance", func() ReservationInput {
			in := slotInput(1, "2025-03-10", "10:00", "11:00")
			in.AdvanceCents = -1
			return in
		}()},
		{"advance exceeds total", func() ReservationInput {
			in := slotInput(1, "2025-03-10", "10:00", "11:00")
			in.AdvanceCents = 6000
			return in
		}()},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.CreateReservation(ctx, testActor, tc.input)
			var validationErr ValidationError
			if !errors.As(err, &validationErr) {
				t.Errorf("got %v, want ValidationError", err)
			}
		})
	}
}

func TestCreateReservationUnknownCourt(t *testing.T) {
	engine, _ := newTestEngine(t)
	_, err := engine.CreateReservation(context.Background(), testActor, slotInput(99, "2025-03-10", "10:00", "11:00"))
	var notFound NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("got %v, want NotFoundError", err)
	}

	// A court owned by another tenant is indistinguishable from a missing one.
	_, err = engine.CreateReservation(context.Background(), testActor, slotInput(4, "2025-03-10", "10:00", "11:00"))
	if !errors.As(err, &notFound) {
		t.Fatalf("cross-tenant court: got %v, want NotFoundError", err)
	}
}

func TestCreateReservationFallbackRate(t *testing.T) {
	engine, _ := newTestEngine(t)
	res, err := engine.CreateReservation(context.Background(), testActor, slotInput(3, "2025-03-10", "10:00", "11:00"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.TotalAmountCents != DefaultHourlyRateCents {
		t.Errorf("total = %d, want fallback %d", res.TotalAmountCents, DefaultHourlyRateCents)
	}
}

func TestCreateReservationPriceOverrideAndAdvance(t *testing.T) {
	engine, _ := newTestEngine(t)
	in := slotInput(1, "2025-03-10", "10:00", "12:00")
	override := int64(7500)
	in.TotalAmountCents = &override
	in.AdvanceCents = 2500

	res, err := engine.CreateReservation(context.Background(), testActor, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.TotalAmountCents != 7500 {
		t.Errorf("total = %d, want override 7500", res.TotalAmountCents)
	}
	if res.RemainingAmountCents != 5000 {
		t.Errorf("remaining = %d, want 5000", res.RemainingAmountCents)
	}
	if res.PaymentStatus != PaymentPartiallyPaid {
		t.Errorf("payment status = %s, want partially_paid", res.PaymentStatus)
	}
}

func TestAuthorizationDenied(t *testing.T) {
	store := newMemStore()
	catalog := &memCatalog{courts: map[int64]Court{}}
	wantErr := errors.New("forbidden")
	engine, err := NewEngine(store, catalog, memRegistry{}, denyAll{err: wantErr})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if _, err := engine.CreateReservation(context.Background(), testActor, slotInput(1, "2025-03-10", "10:00", "11:00")); !errors.Is(err, wantErr) {
		t.Errorf("create returned %v, want authorization error", err)
	}
	if len(store.reservations) != 0 {
		t.Error("denied request must not write")
	}
}

func TestCancelFreesSlot(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	res, err := engine.CreateReservation(ctx, testActor, slotInput(1, "2025-03-10", "10:00", "11:00"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	cancelled, err := engine.CancelReservation(ctx, testActor, res.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Errorf("status = %s, want cancelled", cancelled.Status)
	}

	// The slot is free again.
	if _, err := engine.CreateReservation(ctx, testActor, slotInput(1, "2025-03-10", "10:00", "11:00")); err != nil {
		t.Errorf("rebooking cancelled slot failed: %v", err)
	}

	// Cancelling twice is a validation error.
	if _, err := engine.CancelReservation(ctx, testActor, res.ID); err == nil {
		t.Error("double cancel should fail")
	}
}

func TestCheckAvailability(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	slots, err := engine.CheckAvailability(ctx, testActor, 1, "2025-03-10")
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	// Default 06:00-22:00 grid.
	if len(slots) != 16 {
		t.Fatalf("got %d slots, want 16", len(slots))
	}
	for _, s := range slots {
		if !s.Available {
			t.Errorf("slot %s should be available on empty court", s.Start)
		}
		if s.PriceCents != 5000 {
			t.Errorf("slot %s price = %d, want 5000", s.Start, s.PriceCents)
		}
	}

	if _, err := engine.CreateReservation(ctx, testActor, slotInput(1, "2025-03-10", "10:00", "11:00")); err != nil {
		t.Fatalf("create: %v", err)
	}

	slots, err = engine.CheckAvailability(ctx, testActor, 1, "2025-03-10")
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	for _, s := range slots {
		wantAvailable := s.Start != "10:00"
		if s.Available != wantAvailable {
			t.Errorf("slot %s available = %v, want %v", s.Start, s.Available, wantAvailable)
		}
	}

	// Checking again without inserts returns identical results.
	again, err := engine.CheckAvailability(ctx, testActor, 1, "2025-03-10")
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	for i := range slots {
		if slots[i] != again[i] {
			t.Errorf("slot %d changed between identical checks", i)
		}
	}
}

func TestCreateRecurringReservation(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	// Occupy the slot two weeks in so one instance gets skipped.
	blocker, err := engine.CreateReservation(ctx, testActor, slotInput(1, "2025-01-20", "10:00", "11:00"))
	if err != nil {
		t.Fatalf("blocker create: %v", err)
	}

	rule := Recurrence{Frequency: FrequencyWeekly, Occurrences: 4}
	result, err := engine.CreateRecurringReservation(ctx, testActor, slotInput(1, "2025-01-06", "10:00", "11:00"), rule)
	if err != nil {
		t.Fatalf("recurring create: %v", err)
	}

	if result.Parent.Kind != KindRecurring {
		t.Errorf("parent kind = %s, want recurring", result.Parent.Kind)
	}
	if result.Parent.Recurrence == nil {
		t.Error("parent should carry the recurrence rule")
	}
	if len(result.Created) != 2 {
		t.Fatalf("created %d instances, want 2", len(result.Created))
	}
	if len(result.Skipped) != 1 {
		t.Fatalf("skipped %d instances, want 1", len(result.Skipped))
	}
	if result.Skipped[0].Date != "2025-01-20" {
		t.Errorf("skipped date = %s, want 2025-01-20", result.Skipped[0].Date)
	}

	for _, inst := range result.Created {
		if inst.RecurringParentID == nil || *inst.RecurringParentID != result.Parent.ID {
			t.Errorf("instance %d not linked to parent", inst.ID)
		}
		if inst.Recurrence != nil {
			t.Errorf("instance %d should not carry the rule", inst.ID)
		}
	}

	wantDates := map[string]bool{"2025-01-13": true, "2025-01-27": true}
	for _, inst := range result.Created {
		if !wantDates[inst.Date] {
			t.Errorf("unexpected instance date %s", inst.Date)
		}
	}

	// Parent + 2 instances + the blocker.
	if len(store.reservations) != 4 {
		t.Errorf("store holds %d rows, want 4", len(store.reservations))
	}
	_ = blocker
}

func TestRescheduleReservation(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	res, err := engine.CreateReservation(ctx, testActor, slotInput(1, "2025-03-10", "10:00", "11:00"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	other, err := engine.CreateReservation(ctx, testActor, slotInput(1, "2025-03-10", "14:00", "15:00"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Moving onto an occupied slot conflicts.
	_, err = engine.RescheduleReservation(ctx, testActor, res.ID, "2025-03-10", "14:00", "15:00")
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("got %v, want ConflictError", err)
	}

	// Moving within the reservation's own window succeeds.
	moved, err := engine.RescheduleReservation(ctx, testActor, res.ID, "2025-03-10", "10:30", "11:30")
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if moved.StartMinute != 630 || moved.EndMinute != 690 {
		t.Errorf("moved to [%d, %d), want [630, 690)", moved.StartMinute, moved.EndMinute)
	}

	// Cancelled reservations cannot be rescheduled.
	if _, err := engine.CancelReservation(ctx, testActor, other.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := engine.RescheduleReservation(ctx, testActor, other.ID, "2025-03-11", "10:00", "11:00"); err == nil {
		t.Error("rescheduling a cancelled reservation should fail")
	}
}

func TestRecordPayment(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	res, err := engine.CreateReservation(ctx, testActor, slotInput(1, "2025-03-10", "10:00", "11:00"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	partial, err := engine.RecordPayment(ctx, testActor, res.ID, 2000)
	if err != nil {
		t.Fatalf("payment: %v", err)
	}
	if partial.PaymentStatus != PaymentPartiallyPaid || partial.RemainingAmountCents != 3000 {
		t.Errorf("after partial payment: %s/%d", partial.PaymentStatus, partial.RemainingAmountCents)
	}

	// Overpayment is rejected, not clamped.
	if _, err := engine.RecordPayment(ctx, testActor, res.ID, 4000); err == nil {
		t.Error("overpayment should fail")
	}

	paid, err := engine.RecordPayment(ctx, testActor, res.ID, 3000)
	if err != nil {
		t.Fatalf("payment: %v", err)
	}
	if paid.PaymentStatus != PaymentPaid || paid.RemainingAmountCents != 0 {
		t.Errorf("after full payment: %s/%d", paid.PaymentStatus, paid.RemainingAmountCents)
	}

	if _, err := engine.RecordPayment(ctx, testActor, res.ID, 0); err == nil {
		t.Error("zero payment should fail")
	}
}

func TestListLogicalReservations(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	in := slotInput(1, "2025-03-10", "10:00", "11:00")
	in.ClientID = clientID(7)
	if _, err := engine.CreateReservation(ctx, testActor, in); err != nil {
		t.Fatalf("create: %v", err)
	}
	in = slotInput(1, "2025-03-10", "11:00", "12:00")
	in.ClientID = clientID(7)
	if _, err := engine.CreateReservation(ctx, testActor, in); err != nil {
		t.Fatalf("create: %v", err)
	}

	logical, err := engine.ListLogicalReservations(ctx, testActor, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logical) != 1 {
		t.Fatalf("got %d logical reservations, want 1", len(logical))
	}
	if logical[0].Start != "10:00" || logical[0].End != "12:00" {
		t.Errorf("range %s-%s, want 10:00-12:00", logical[0].Start, logical[0].End)
	}
	if logical[0].TotalAmountCents != 10000 {
		t.Errorf("merged price = %d, want 10000", logical[0].TotalAmountCents)
	}
}

func TestListCalendarValidatesDates(t *testing.T) {
	engine, _ := newTestEngine(t)
	_, err := engine.ListCalendar(context.Background(), testActor, CalendarFilter{StartDate: "bad"})
	var validationErr ValidationError
	if !errors.As(err, &validationErr) {
		t.Errorf("got %v, want ValidationError", err)
	}
}
