package clients

import (
	"context"
	"errors"
	"testing"

	"github.com/arenadesk/arenadesk/internal/booking"
	"github.com/arenadesk/arenadesk/internal/testutil"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"already e164", "+5511999990001", "+5511999990001"},
		{"national with punctuation", "(11) 99999-0001", "+5511999990001"},
		{"national plain", "11999990001", "+5511999990001"},
		{"empty", "", ""},
		{"garbage falls back to digits", "ext. 12-34", "1234"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizePhone(tc.raw); got != tc.want {
				t.Errorf("NormalizePhone(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestNormalizePhoneEquivalentSpellings(t *testing.T) {
	a := NormalizePhone("+55 (11) 99999-0001")
	b := NormalizePhone("11 99999 0001")
	if a != b {
		t.Errorf("spellings normalize differently: %q vs %q", a, b)
	}
}

func TestSnapshotRegisteredClient(t *testing.T) {
	database := testutil.NewTestDB(t)
	registry := NewRegistry(database)
	ctx := context.Background()

	tenant, err := database.Queries.CreateTenant(ctx, "Arena Centro", "arena-centro")
	if err != nil {
		t.Fatalf("seed tenant: %v", err)
	}
	client, err := registry.Register(ctx, tenant.ID, "Ana Silva", "(11) 99999-0001", "ana@example.com")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if client.PhoneNormalized != "+5511999990001" {
		t.Errorf("stored normalized phone = %q", client.PhoneNormalized)
	}

	snapshot, err := registry.Snapshot(ctx, tenant.ID, &client.ID, "ignored", "ignored", "ignored")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snapshot.ClientID == nil || *snapshot.ClientID != client.ID {
		t.Errorf("snapshot client id = %v", snapshot.ClientID)
	}
	// Registered record wins over request fields.
	if snapshot.Name != "Ana Silva" || snapshot.Phone != "+5511999990001" || snapshot.Email != "ana@example.com" {
		t.Errorf("snapshot = %+v", snapshot)
	}
}

func TestSnapshotWalkIn(t *testing.T) {
	database := testutil.NewTestDB(t)
	registry := NewRegistry(database)
	ctx := context.Background()

	snapshot, err := registry.Snapshot(ctx, 1, nil, "  Carlos ", "(11) 99999-0002", " carlos@example.com ")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snapshot.ClientID != nil {
		t.Error("walk-in snapshot should have no client id")
	}
	if snapshot.Name != "Carlos" {
		t.Errorf("name = %q", snapshot.Name)
	}
	if snapshot.Phone != "+5511999990002" {
		t.Errorf("phone = %q", snapshot.Phone)
	}
}

func TestSnapshotMissingClient(t *testing.T) {
	database := testutil.NewTestDB(t)
	registry := NewRegistry(database)

	missing := int64(404)
	_, err := registry.Snapshot(context.Background(), 1, &missing, "", "", "")
	var notFound booking.NotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("got %v, want NotFoundError", err)
	}
}

func TestSearchClients(t *testing.T) {
	database := testutil.NewTestDB(t)
	registry := NewRegistry(database)
	ctx := context.Background()

	tenant, err := database.Queries.CreateTenant(ctx, "Arena Centro", "arena-centro")
	if err != nil {
		t.Fatalf("seed tenant: %v", err)
	}
	other, err := database.Queries.CreateTenant(ctx, "Arena Sul", "arena-sul")
	if err != nil {
		t.Fatalf("seed tenant: %v", err)
	}
	if _, err := registry.Register(ctx, tenant.ID, "Ana Silva", "11999990001", ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := registry.Register(ctx, other.ID, "Ana Costa", "11999990002", ""); err != nil {
		t.Fatalf("register: %v", err)
	}

	results, err := registry.Search(ctx, tenant.ID, "ana")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].Name != "Ana Silva" {
		t.Errorf("search results = %v, want only the tenant's own client", results)
	}
}
