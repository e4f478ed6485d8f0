// internal/api/tenants/handlers.go
// Platform-level tenant administration, restricted to super admins.
package tenants

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/arenadesk/arenadesk/internal/api/apiutil"
	"github.com/arenadesk/arenadesk/internal/booking"
	"github.com/arenadesk/arenadesk/internal/db"
)

var (
	queries  *db.Queries
	authzSvc booking.Authorizer
	initOnce sync.Once
)

const tenantQueryTimeout = 5 * time.Second

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(database *db.DB, authorizer booking.Authorizer) {
	if database == nil || authorizer == nil {
		return
	}
	initOnce.Do(func() {
		queries = database.Queries
		authzSvc = authorizer
	})
}

func ready(w http.ResponseWriter, r *http.Request) bool {
	if queries == nil || authzSvc == nil {
		log.Ctx(r.Context()).Error().Msg("Tenant handlers not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return false
	}
	return true
}

// GET /api/v1/tenants
func HandleTenantList(w http.ResponseWriter, r *http.Request) {
	if !ready(w, r) {
		return
	}
	actor, ok := apiutil.RequireActor(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), tenantQueryTimeout)
	defer cancel()

	if err := authzSvc.Authorize(ctx, actor, booking.ActionManageTenants, 0); err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	tenants, err := queries.ListTenants(ctx)
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{"tenants": tenants})
}

type createTenantRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// POST /api/v1/tenants
func HandleTenantCreate(w http.ResponseWriter, r *http.Request) {
	if !ready(w, r) {
		return
	}
	actor, ok := apiutil.RequireActor(w, r)
	if !ok {
		return
	}

	var req createTenantRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Slug = strings.ToLower(strings.TrimSpace(req.Slug))
	if req.Name == "" {
		apiutil.WriteError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Slug == "" {
		apiutil.WriteError(w, http.StatusBadRequest, "slug is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), tenantQueryTimeout)
	defer cancel()

	if err := authzSvc.Authorize(ctx, actor, booking.ActionManageTenants, 0); err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	tenant, err := queries.CreateTenant(ctx, req.Name, req.Slug)
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	log.Ctx(ctx).Info().
		Int64("tenant_id", tenant.ID).
		Str("slug", tenant.Slug).
		Msg("Tenant created")
	apiutil.WriteJSON(w, http.StatusCreated, tenant)
}

type tenantStatusRequest struct {
	Status string `json:"status"`
}

// PUT /api/v1/tenants/{id}/status
func HandleTenantStatus(w http.ResponseWriter, r *http.Request) {
	if !ready(w, r) {
		return
	}
	actor, ok := apiutil.RequireActor(w, r)
	if !ok {
		return
	}
	id, err := apiutil.PathID(r, "/api/v1/tenants/")
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req tenantStatusRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	switch req.Status {
	case "active", "inactive", "suspended":
	default:
		apiutil.WriteError(w, http.StatusBadRequest, "status must be one of active, inactive, suspended")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), tenantQueryTimeout)
	defer cancel()

	if err := authzSvc.Authorize(ctx, actor, booking.ActionManageTenants, 0); err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	tenant, err := queries.UpdateTenantStatus(ctx, id, req.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "tenant not found")
			return
		}
		apiutil.WriteEngineError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, tenant)
}
