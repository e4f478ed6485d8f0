// internal/store/store.go
// SQLite-backed implementation of the reservation engine's persistence
// ports. Conflict re-checks and writes share one transaction.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/arenadesk/arenadesk/internal/booking"
	"github.com/arenadesk/arenadesk/internal/db"
)

// Store implements booking.Store and booking.CourtCatalog on top of the
// database wrapper.
type Store struct {
	db *db.DB
}

func New(database *db.DB) *Store {
	return &Store{db: database}
}

func (s *Store) ListActiveReservations(ctx context.Context, tenantID, courtID int64, date string) ([]booking.Reservation, error) {
	return s.db.Queries.ListActiveForSlot(ctx, tenantID, courtID, date)
}

func (s *Store) ListActiveByTenant(ctx context.Context, tenantID int64) ([]booking.Reservation, error) {
	return s.db.Queries.ListActiveByTenant(ctx, tenantID)
}

func (s *Store) ListCalendar(ctx context.Context, tenantID int64, filter booking.CalendarFilter) ([]booking.Reservation, error) {
	return s.db.Queries.ListCalendar(ctx, tenantID, filter)
}

func (s *Store) GetReservation(ctx context.Context, tenantID, id int64) (*booking.Reservation, error) {
	res, err := s.db.Queries.GetReservation(ctx, tenantID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, booking.NotFoundError{Resource: "reservation", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get reservation %d: %w", id, err)
	}
	return res, nil
}

// CreateReservation re-checks the slot and inserts inside one transaction.
// The partial unique index on active (court, date, start_time) rows is the
// backstop for two inserts racing past the re-check; its violation is
// reported as a conflict, not an internal error.
func (s *Store) CreateReservation(ctx context.Context, res *booking.Reservation) error {
	err := s.runSlotTx(ctx, func(tx *db.DB) error {
		occupied, err := tx.Queries.ListActiveForSlot(ctx, res.TenantID, res.CourtID, res.Date)
		if err != nil {
			return fmt.Errorf("list active reservations: %w", err)
		}
		if colliding := booking.FindConflicts(res.Interval(), occupied); len(colliding) > 0 {
			return booking.ConflictFor(res.Interval(), colliding)
		}
		return tx.Queries.InsertReservation(ctx, res)
	})
	if err != nil {
		return s.mapSlotError(ctx, err, res.CourtID, res.Interval())
	}
	return nil
}

// RescheduleReservation moves an existing reservation to a new slot after
// re-checking conflicts in the same transaction. The reservation itself is
// excluded from the check so moving within its own window works.
func (s *Store) RescheduleReservation(ctx context.Context, tenantID, id int64, slot booking.Interval) (*booking.Reservation, error) {
	var moved *booking.Reservation
	var courtID int64
	err := s.runSlotTx(ctx, func(tx *db.DB) error {
		current, err := tx.Queries.GetReservation(ctx, tenantID, id)
		if errors.Is(err, sql.ErrNoRows) {
			return booking.NotFoundError{Resource: "reservation", ID: id}
		}
		if err != nil {
			return fmt.Errorf("get reservation %d: %w", id, err)
		}
		courtID = current.CourtID

		occupied, err := tx.Queries.ListActiveForSlot(ctx, tenantID, current.CourtID, slot.Date)
		if err != nil {
			return fmt.Errorf("list active reservations: %w", err)
		}
		others := occupied[:0]
		for _, o := range occupied {
			if o.ID != id {
				others = append(others, o)
			}
		}
		if colliding := booking.FindConflicts(slot, others); len(colliding) > 0 {
			return booking.ConflictFor(slot, colliding)
		}

		moved, err = tx.Queries.UpdateReservationSchedule(ctx, tenantID, id,
			slot.Date, booking.FormatClock(slot.StartMinute), booking.FormatClock(slot.EndMinute))
		return err
	})
	if err != nil {
		return nil, s.mapSlotError(ctx, err, courtID, slot)
	}
	return moved, nil
}

func (s *Store) UpdateReservationStatus(ctx context.Context, tenantID, id int64, status booking.Status) (*booking.Reservation, error) {
	res, err := s.db.Queries.UpdateReservationStatus(ctx, tenantID, id, status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, booking.NotFoundError{Resource: "reservation", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("update reservation %d status: %w", id, err)
	}
	return res, nil
}

func (s *Store) UpdateReservationPayment(ctx context.Context, tenantID, id int64, advanceCents, remainingCents int64, status booking.PaymentStatus) (*booking.Reservation, error) {
	res, err := s.db.Queries.UpdateReservationPayment(ctx, tenantID, id, advanceCents, remainingCents, status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, booking.NotFoundError{Resource: "reservation", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("update reservation %d payment: %w", id, err)
	}
	return res, nil
}

func (s *Store) GetCourt(ctx context.Context, tenantID, courtID int64) (*booking.Court, error) {
	court, err := s.db.Queries.GetCourt(ctx, tenantID, courtID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, booking.NotFoundError{Resource: "court", ID: courtID}
	}
	if err != nil {
		return nil, fmt.Errorf("get court %d: %w", courtID, err)
	}
	return &court, nil
}

func (s *Store) ListCourts(ctx context.Context, tenantID int64) ([]booking.Court, error) {
	return s.db.Queries.ListCourts(ctx, tenantID)
}

// runSlotTx runs a slot-writing transaction, retrying once if the busy
// timeout expired while another writer held the lock. On the retry the
// conflict re-check sees the other writer's committed row.
func (s *Store) runSlotTx(ctx context.Context, fn func(tx *db.DB) error) error {
	err := s.db.RunInTx(ctx, fn)
	if isBusy(err) {
		err = s.db.RunInTx(ctx, fn)
	}
	return err
}

func isBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
}

// mapSlotError converts a unique-index violation from a lost insert race
// into the same conflict the re-check would have produced. The winning
// reservation id is unknown at this point, so it is left zero.
func (s *Store) mapSlotError(ctx context.Context, err error, courtID int64, slot booking.Interval) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		log.Ctx(ctx).Warn().
			Int64("court_id", courtID).
			Str("slot", slot.String()).
			Msg("reservation insert lost slot race")
		return &booking.ConflictError{
			CourtID:  courtID,
			Occupied: slot,
		}
	}
	return err
}
