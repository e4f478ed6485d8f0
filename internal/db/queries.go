// internal/db/queries.go
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/arenadesk/arenadesk/internal/booking"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so the same queries run
// inside and outside transactions.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

type Tenant struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Client struct {
	ID              int64     `json:"id"`
	TenantID        int64     `json:"tenant_id"`
	Name            string    `json:"name"`
	Phone           string    `json:"phone"`
	PhoneNormalized string    `json:"phone_normalized"`
	Email           string    `json:"email"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// activeStatusClause matches the partial unique index in the schema; keep
// the two in sync.
const activeStatusClause = "status IN ('pending', 'confirmed', 'blocked')"

// ---- tenants ----

func (q *Queries) CreateTenant(ctx context.Context, name, slug string) (Tenant, error) {
	result, err := q.db.ExecContext(ctx,
		"INSERT INTO tenants (name, slug) VALUES (?, ?)",
		name, slug,
	)
	if err != nil {
		return Tenant{}, fmt.Errorf("insert tenant: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return Tenant{}, err
	}
	return q.GetTenant(ctx, id)
}

func (q *Queries) GetTenant(ctx context.Context, id int64) (Tenant, error) {
	var t Tenant
	err := q.db.QueryRowContext(ctx,
		"SELECT id, name, slug, status, created_at, updated_at FROM tenants WHERE id = ?",
		id,
	).Scan(&t.ID, &t.Name, &t.Slug, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return Tenant{}, err
	}
	return t, nil
}

func (q *Queries) ListTenants(ctx context.Context) ([]Tenant, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT id, name, slug, status, created_at, updated_at FROM tenants ORDER BY id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []Tenant
	for rows.Next() {
		var t Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

func (q *Queries) UpdateTenantStatus(ctx context.Context, id int64, status string) (Tenant, error) {
	result, err := q.db.ExecContext(ctx,
		"UPDATE tenants SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		status, id,
	)
	if err != nil {
		return Tenant{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return Tenant{}, err
	}
	if affected == 0 {
		return Tenant{}, sql.ErrNoRows
	}
	return q.GetTenant(ctx, id)
}

// ---- courts ----

type CreateCourtParams struct {
	TenantID        int64
	Name            string
	Sport           string
	HourlyRateCents *int64
	OpenMinute      int
	CloseMinute     int
}

func (q *Queries) CreateCourt(ctx context.Context, params CreateCourtParams) (booking.Court, error) {
	result, err := q.db.ExecContext(ctx,
		`INSERT INTO courts (tenant_id, name, sport, hourly_rate_cents, open_minute, close_minute)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		params.TenantID, params.Name, params.Sport,
		toNullInt64(params.HourlyRateCents), params.OpenMinute, params.CloseMinute,
	)
	if err != nil {
		return booking.Court{}, fmt.Errorf("insert court: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return booking.Court{}, err
	}
	return q.GetCourt(ctx, params.TenantID, id)
}

func (q *Queries) GetCourt(ctx context.Context, tenantID, id int64) (booking.Court, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, name, sport, status, hourly_rate_cents, open_minute, close_minute
		 FROM courts WHERE id = ? AND tenant_id = ?`,
		id, tenantID,
	)
	return scanCourt(row)
}

func (q *Queries) ListCourts(ctx context.Context, tenantID int64) ([]booking.Court, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, tenant_id, name, sport, status, hourly_rate_cents, open_minute, close_minute
		 FROM courts WHERE tenant_id = ? ORDER BY id`,
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courts []booking.Court
	for rows.Next() {
		court, err := scanCourt(rows)
		if err != nil {
			return nil, err
		}
		courts = append(courts, court)
	}
	return courts, rows.Err()
}

func (q *Queries) UpdateCourtStatus(ctx context.Context, tenantID, id int64, status string) (booking.Court, error) {
	result, err := q.db.ExecContext(ctx,
		"UPDATE courts SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND tenant_id = ?",
		status, id, tenantID,
	)
	if err != nil {
		return booking.Court{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return booking.Court{}, err
	}
	if affected == 0 {
		return booking.Court{}, sql.ErrNoRows
	}
	return q.GetCourt(ctx, tenantID, id)
}

// ---- clients ----

type CreateClientParams struct {
	TenantID        int64
	Name            string
	Phone           string
	PhoneNormalized string
	Email           string
}

func (q *Queries) CreateClient(ctx context.Context, params CreateClientParams) (Client, error) {
	result, err := q.db.ExecContext(ctx,
		`INSERT INTO clients (tenant_id, name, phone, phone_normalized, email)
		 VALUES (?, ?, ?, ?, ?)`,
		params.TenantID, params.Name, params.Phone, params.PhoneNormalized, params.Email,
	)
	if err != nil {
		return Client{}, fmt.Errorf("insert client: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return Client{}, err
	}
	return q.GetClient(ctx, params.TenantID, id)
}

func (q *Queries) GetClient(ctx context.Context, tenantID, id int64) (Client, error) {
	var c Client
	err := q.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, name, phone, phone_normalized, email, created_at, updated_at
		 FROM clients WHERE id = ? AND tenant_id = ?`,
		id, tenantID,
	).Scan(&c.ID, &c.TenantID, &c.Name, &c.Phone, &c.PhoneNormalized, &c.Email, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Client{}, err
	}
	return c, nil
}

func (q *Queries) SearchClients(ctx context.Context, tenantID int64, term string) ([]Client, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(term)) + "%"
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, tenant_id, name, phone, phone_normalized, email, created_at, updated_at
		 FROM clients
		 WHERE tenant_id = ? AND (LOWER(name) LIKE ? OR phone LIKE ? OR phone_normalized LIKE ?)
		 ORDER BY name`,
		tenantID, pattern, pattern, pattern,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []Client
	for rows.Next() {
		var c Client
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Name, &c.Phone, &c.PhoneNormalized, &c.Email, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// ---- reservations ----

const reservationColumns = `id, tenant_id, court_id, user_id, date, start_time, end_time,
	kind, status, base_price_cents, total_amount_cents, advance_payment_cents,
	remaining_amount_cents, payment_status, client_id, client_name, client_phone,
	client_email, recurring_parent_id, recurrence_frequency, recurrence_end_date,
	recurrence_occurrences, notes, created_at, updated_at`

// InsertReservation writes the row and fills in the generated id and
// timestamps on res.
func (q *Queries) InsertReservation(ctx context.Context, res *booking.Reservation) error {
	var frequency, endDate sql.NullString
	var occurrences sql.NullInt64
	if res.Recurrence != nil {
		frequency = sql.NullString{String: string(res.Recurrence.Frequency), Valid: true}
		if res.Recurrence.EndDate != "" {
			endDate = sql.NullString{String: res.Recurrence.EndDate, Valid: true}
		}
		if res.Recurrence.Occurrences > 0 {
			occurrences = sql.NullInt64{Int64: int64(res.Recurrence.Occurrences), Valid: true}
		}
	}

	result, err := q.db.ExecContext(ctx,
		`INSERT INTO reservations (
			tenant_id, court_id, user_id, date, start_time, end_time,
			kind, status, base_price_cents, total_amount_cents, advance_payment_cents,
			remaining_amount_cents, payment_status, client_id, client_name, client_phone,
			client_email, recurring_parent_id, recurrence_frequency, recurrence_end_date,
			recurrence_occurrences, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.TenantID, res.CourtID, res.UserID, res.Date,
		booking.FormatClock(res.StartMinute), booking.FormatClock(res.EndMinute),
		string(res.Kind), string(res.Status), res.BasePriceCents, res.TotalAmountCents,
		res.AdvancePaymentCents, res.RemainingAmountCents, string(res.PaymentStatus),
		toNullInt64(res.ClientID), res.ClientName, res.ClientPhone, res.ClientEmail,
		toNullInt64(res.RecurringParentID), frequency, endDate, occurrences, res.Notes,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}

	inserted, err := q.GetReservation(ctx, res.TenantID, id)
	if err != nil {
		return err
	}
	*res = *inserted
	return nil
}

func (q *Queries) GetReservation(ctx context.Context, tenantID, id int64) (*booking.Reservation, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+reservationColumns+" FROM reservations WHERE id = ? AND tenant_id = ?",
		id, tenantID,
	)
	return scanReservation(row)
}

// ListActiveForSlot returns every slot-occupying reservation for the
// court and date, regardless of creator.
func (q *Queries) ListActiveForSlot(ctx context.Context, tenantID, courtID int64, date string) ([]booking.Reservation, error) {
	return q.listReservations(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE tenant_id = ? AND court_id = ? AND date = ? AND `+activeStatusClause+`
		 ORDER BY start_time`,
		tenantID, courtID, date,
	)
}

func (q *Queries) ListActiveByTenant(ctx context.Context, tenantID int64) ([]booking.Reservation, error) {
	return q.listReservations(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE tenant_id = ? AND `+activeStatusClause+`
		 ORDER BY date, court_id, start_time`,
		tenantID,
	)
}

func (q *Queries) ListCalendar(ctx context.Context, tenantID int64, filter booking.CalendarFilter) ([]booking.Reservation, error) {
	query := "SELECT " + reservationColumns + " FROM reservations WHERE tenant_id = ?"
	args := []any{tenantID}

	if filter.CourtID > 0 {
		query += " AND court_id = ?"
		args = append(args, filter.CourtID)
	}
	if filter.StartDate != "" {
		query += " AND date >= ?"
		args = append(args, filter.StartDate)
	}
	if filter.EndDate != "" {
		query += " AND date <= ?"
		args = append(args, filter.EndDate)
	}
	if filter.Kind != "" {
		query += " AND kind = ?"
		args = append(args, string(filter.Kind))
	}
	if filter.PaymentStatus != "" {
		query += " AND payment_status = ?"
		args = append(args, string(filter.PaymentStatus))
	}
	query += " ORDER BY date, start_time"

	return q.listReservations(ctx, query, args...)
}

func (q *Queries) UpdateReservationStatus(ctx context.Context, tenantID, id int64, status booking.Status) (*booking.Reservation, error) {
	result, err := q.db.ExecContext(ctx,
		"UPDATE reservations SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND tenant_id = ?",
		string(status), id, tenantID,
	)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, sql.ErrNoRows
	}
	return q.GetReservation(ctx, tenantID, id)
}

func (q *Queries) UpdateReservationSchedule(ctx context.Context, tenantID, id int64, date, startTime, endTime string) (*booking.Reservation, error) {
	result, err := q.db.ExecContext(ctx,
		`UPDATE reservations SET date = ?, start_time = ?, end_time = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND tenant_id = ?`,
		date, startTime, endTime, id, tenantID,
	)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, sql.ErrNoRows
	}
	return q.GetReservation(ctx, tenantID, id)
}

func (q *Queries) UpdateReservationPayment(ctx context.Context, tenantID, id int64, advanceCents, remainingCents int64, status booking.PaymentStatus) (*booking.Reservation, error) {
	result, err := q.db.ExecContext(ctx,
		`UPDATE reservations
		 SET advance_payment_cents = ?, remaining_amount_cents = ?, payment_status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND tenant_id = ?`,
		advanceCents, remainingCents, string(status), id, tenantID,
	)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, sql.ErrNoRows
	}
	return q.GetReservation(ctx, tenantID, id)
}

// MarkFinishedReservationsCompleted transitions confirmed reservations
// whose end time has passed to completed. Used by the background sweep.
func (q *Queries) MarkFinishedReservationsCompleted(ctx context.Context, today, nowClock string) (int64, error) {
	result, err := q.db.ExecContext(ctx,
		`UPDATE reservations SET status = 'completed', updated_at = CURRENT_TIMESTAMP
		 WHERE status = 'confirmed' AND (date < ? OR (date = ? AND end_time <= ?))`,
		today, today, nowClock,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (q *Queries) listReservations(ctx context.Context, query string, args ...any) ([]booking.Reservation, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reservations []booking.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, *res)
	}
	return reservations, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCourt(row rowScanner) (booking.Court, error) {
	var court booking.Court
	var rate sql.NullInt64
	var status string
	err := row.Scan(
		&court.ID, &court.TenantID, &court.Name, &court.Sport, &status,
		&rate, &court.OpenMinute, &court.CloseMinute,
	)
	if err != nil {
		return booking.Court{}, err
	}
	court.Status = booking.CourtStatus(status)
	if rate.Valid {
		value := rate.Int64
		court.HourlyRateCents = &value
	}
	return court, nil
}

func scanReservation(row rowScanner) (*booking.Reservation, error) {
	var (
		res                  booking.Reservation
		startTime, endTime   string
		kind, status         string
		paymentStatus        string
		clientID, parentID   sql.NullInt64
		frequency, endDate   sql.NullString
		occurrences          sql.NullInt64
	)
	err := row.Scan(
		&res.ID, &res.TenantID, &res.CourtID, &res.UserID, &res.Date, &startTime, &endTime,
		&kind, &status, &res.BasePriceCents, &res.TotalAmountCents, &res.AdvancePaymentCents,
		&res.RemainingAmountCents, &paymentStatus, &clientID, &res.ClientName, &res.ClientPhone,
		&res.ClientEmail, &parentID, &frequency, &endDate, &occurrences, &res.Notes,
		&res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	res.Kind = booking.Kind(kind)
	res.Status = booking.Status(status)
	res.PaymentStatus = booking.PaymentStatus(paymentStatus)

	if res.StartMinute, err = booking.ParseClock(startTime); err != nil {
		return nil, fmt.Errorf("reservation %d: %w", res.ID, err)
	}
	if res.EndMinute, err = booking.ParseClock(endTime); err != nil {
		return nil, fmt.Errorf("reservation %d: %w", res.ID, err)
	}

	if clientID.Valid {
		value := clientID.Int64
		res.ClientID = &value
	}
	if parentID.Valid {
		value := parentID.Int64
		res.RecurringParentID = &value
	}
	if frequency.Valid {
		res.Recurrence = &booking.Recurrence{
			Frequency:   booking.Frequency(frequency.String),
			EndDate:     endDate.String,
			Occurrences: int(occurrences.Int64),
		}
	}
	return &res, nil
}

func toNullInt64(value *int64) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *value, Valid: true}
}
