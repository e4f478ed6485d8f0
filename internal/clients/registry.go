// internal/clients/registry.go
// Client lookups and walk-in identity normalization for the reservation
// engine.
package clients

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/arenadesk/arenadesk/internal/booking"
	"github.com/arenadesk/arenadesk/internal/db"
)

// defaultRegion resolves national-format numbers when no country code is
// dialed.
const defaultRegion = "BR"

// Registry implements booking.ClientRegistry against the clients table.
type Registry struct {
	db *db.DB
}

func NewRegistry(database *db.DB) *Registry {
	return &Registry{db: database}
}

// Snapshot resolves the client identity stamped onto a reservation. A
// client id loads the registered record; otherwise the walk-in fields from
// the request are used with the phone normalized for stable grouping.
func (r *Registry) Snapshot(ctx context.Context, tenantID int64, clientID *int64, name, phone, email string) (booking.ClientSnapshot, error) {
	if clientID != nil {
		client, err := r.db.Queries.GetClient(ctx, tenantID, *clientID)
		if errors.Is(err, sql.ErrNoRows) {
			return booking.ClientSnapshot{}, booking.NotFoundError{Resource: "client", ID: *clientID}
		}
		if err != nil {
			return booking.ClientSnapshot{}, fmt.Errorf("get client %d: %w", *clientID, err)
		}
		return booking.ClientSnapshot{
			ClientID: clientID,
			Name:     client.Name,
			Phone:    client.PhoneNormalized,
			Email:    client.Email,
		}, nil
	}

	return booking.ClientSnapshot{
		Name:  strings.TrimSpace(name),
		Phone: NormalizePhone(phone),
		Email: strings.TrimSpace(email),
	}, nil
}

// Register stores a new client with its phone pre-normalized so later
// searches and walk-in matching compare the same form.
func (r *Registry) Register(ctx context.Context, tenantID int64, name, phone, email string) (db.Client, error) {
	return r.db.Queries.CreateClient(ctx, db.CreateClientParams{
		TenantID:        tenantID,
		Name:            strings.TrimSpace(name),
		Phone:           strings.TrimSpace(phone),
		PhoneNormalized: NormalizePhone(phone),
		Email:           strings.TrimSpace(email),
	})
}

func (r *Registry) Search(ctx context.Context, tenantID int64, term string) ([]db.Client, error) {
	return r.db.Queries.SearchClients(ctx, tenantID, term)
}

// NormalizePhone canonicalizes a phone number to E.164. Numbers that do
// not parse fall back to their digits so two spellings of the same number
// still compare equal.
func NormalizePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parsed, err := phonenumbers.Parse(raw, defaultRegion)
	if err == nil && phonenumbers.IsValidNumber(parsed) {
		return phonenumbers.Format(parsed, phonenumbers.E164)
	}
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	return digits.String()
}
