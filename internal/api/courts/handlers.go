// internal/api/courts/handlers.go
package courts

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/arenadesk/arenadesk/internal/api/apiutil"
	"github.com/arenadesk/arenadesk/internal/booking"
	"github.com/arenadesk/arenadesk/internal/db"
)

var (
	engine   *booking.Engine
	queries  *db.Queries
	authzSvc booking.Authorizer
	initOnce sync.Once
)

const courtQueryTimeout = 5 * time.Second

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(e *booking.Engine, database *db.DB, authorizer booking.Authorizer) {
	if e == nil || database == nil || authorizer == nil {
		return
	}
	initOnce.Do(func() {
		engine = e
		queries = database.Queries
		authzSvc = authorizer
	})
}

func ready(w http.ResponseWriter, r *http.Request) bool {
	if engine == nil || queries == nil || authzSvc == nil {
		log.Ctx(r.Context()).Error().Msg("Court handlers not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return false
	}
	return true
}

// GET /api/v1/courts
func HandleCourtList(w http.ResponseWriter, r *http.Request) {
	if !ready(w, r) {
		return
	}
	actor, ok := apiutil.RequireActor(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), courtQueryTimeout)
	defer cancel()

	if err := authzSvc.Authorize(ctx, actor, booking.ActionView, actor.TenantID); err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	courts, err := queries.ListCourts(ctx, actor.TenantID)
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{"courts": courts})
}

type createCourtRequest struct {
	Name            string `json:"name"`
	Sport           string `json:"sport"`
	HourlyRateCents *int64 `json:"hourly_rate_cents,omitempty"`
	OpenTime        string `json:"open_time,omitempty"`
	CloseTime       string `json:"close_time,omitempty"`
}

// POST /api/v1/courts
func HandleCourtCreate(w http.ResponseWriter, r *http.Request) {
	if !ready(w, r) {
		return
	}
	actor, ok := apiutil.RequireActor(w, r)
	if !ok {
		return
	}

	var req createCourtRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" {
		apiutil.WriteError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Sport == "" {
		apiutil.WriteError(w, http.StatusBadRequest, "sport is required")
		return
	}
	if req.HourlyRateCents != nil && *req.HourlyRateCents < 0 {
		apiutil.WriteError(w, http.StatusBadRequest, "hourly_rate_cents must be 0 or greater")
		return
	}

	var openMinute, closeMinute int
	var err error
	if req.OpenTime != "" || req.CloseTime != "" {
		if openMinute, err = booking.ParseClock(req.OpenTime); err != nil {
			apiutil.WriteError(w, http.StatusBadRequest, "open_time must be HH:MM")
			return
		}
		if closeMinute, err = booking.ParseClock(req.CloseTime); err != nil {
			apiutil.WriteError(w, http.StatusBadRequest, "close_time must be HH:MM")
			return
		}
		if closeMinute <= openMinute {
			apiutil.WriteError(w, http.StatusBadRequest, "close_time must be after open_time")
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), courtQueryTimeout)
	defer cancel()

	if err := authzSvc.Authorize(ctx, actor, booking.ActionManageCourts, actor.TenantID); err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}

	court, err := queries.CreateCourt(ctx, db.CreateCourtParams{
		TenantID:        actor.TenantID,
		Name:            req.Name,
		Sport:           req.Sport,
		HourlyRateCents: req.HourlyRateCents,
		OpenMinute:      openMinute,
		CloseMinute:     closeMinute,
	})
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	log.Ctx(ctx).Info().
		Int64("court_id", court.ID).
		Int64("tenant_id", actor.TenantID).
		Msg("Court created")
	apiutil.WriteJSON(w, http.StatusCreated, court)
}

type courtStatusRequest struct {
	Status string `json:"status"`
}

// PUT /api/v1/courts/{id}/status
func HandleCourtStatus(w http.ResponseWriter, r *http.Request) {
	if !ready(w, r) {
		return
	}
	actor, ok := apiutil.RequireActor(w, r)
	if !ok {
		return
	}
	id, err := apiutil.PathID(r, "/api/v1/courts/")
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req courtStatusRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	switch booking.CourtStatus(req.Status) {
	case booking.CourtActive, booking.CourtInactive, booking.CourtMaintenance:
	default:
		apiutil.WriteError(w, http.StatusBadRequest, "status must be one of active, inactive, maintenance")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), courtQueryTimeout)
	defer cancel()

	if err := authzSvc.Authorize(ctx, actor, booking.ActionManageCourts, actor.TenantID); err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	court, err := queries.UpdateCourtStatus(ctx, actor.TenantID, id, req.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "court not found")
			return
		}
		apiutil.WriteEngineError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, court)
}

// GET /api/v1/courts/{id}/availability?date=YYYY-MM-DD
func HandleCourtAvailability(w http.ResponseWriter, r *http.Request) {
	if !ready(w, r) {
		return
	}
	actor, ok := apiutil.RequireActor(w, r)
	if !ok {
		return
	}
	id, err := apiutil.PathID(r, "/api/v1/courts/")
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	date := r.URL.Query().Get("date")

	ctx, cancel := context.WithTimeout(r.Context(), courtQueryTimeout)
	defer cancel()

	slots, err := engine.CheckAvailability(ctx, actor, id, date)
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{
		"court_id": id,
		"date":     date,
		"slots":    slots,
	})
}
