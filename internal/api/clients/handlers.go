// internal/api/clients/handlers.go
package clients

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/arenadesk/arenadesk/internal/api/apiutil"
	"github.com/arenadesk/arenadesk/internal/booking"
	clientreg "github.com/arenadesk/arenadesk/internal/clients"
)

var (
	registry *clientreg.Registry
	authzSvc booking.Authorizer
	initOnce sync.Once
)

const clientQueryTimeout = 5 * time.Second

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(reg *clientreg.Registry, authorizer booking.Authorizer) {
	if reg == nil || authorizer == nil {
		return
	}
	initOnce.Do(func() {
		registry = reg
		authzSvc = authorizer
	})
}

func ready(w http.ResponseWriter, r *http.Request) bool {
	if registry == nil || authzSvc == nil {
		log.Ctx(r.Context()).Error().Msg("Client handlers not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return false
	}
	return true
}

// GET /api/v1/clients?q=term
func HandleClientSearch(w http.ResponseWriter, r *http.Request) {
	if !ready(w, r) {
		return
	}
	actor, ok := apiutil.RequireActor(w, r)
	if !ok {
		return
	}
	term := strings.TrimSpace(r.URL.Query().Get("q"))
	if term == "" {
		apiutil.WriteError(w, http.StatusBadRequest, "q is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), clientQueryTimeout)
	defer cancel()

	if err := authzSvc.Authorize(ctx, actor, booking.ActionView, actor.TenantID); err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	results, err := registry.Search(ctx, actor.TenantID, term)
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{"clients": results})
}

type createClientRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// POST /api/v1/clients
func HandleClientCreate(w http.ResponseWriter, r *http.Request) {
	if !ready(w, r) {
		return
	}
	actor, ok := apiutil.RequireActor(w, r)
	if !ok {
		return
	}

	var req createClientRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		apiutil.WriteError(w, http.StatusBadRequest, "name is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), clientQueryTimeout)
	defer cancel()

	if err := authzSvc.Authorize(ctx, actor, booking.ActionBook, actor.TenantID); err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	client, err := registry.Register(ctx, actor.TenantID, req.Name, req.Phone, req.Email)
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	log.Ctx(ctx).Info().
		Int64("client_id", client.ID).
		Int64("tenant_id", actor.TenantID).
		Msg("Client registered")
	apiutil.WriteJSON(w, http.StatusCreated, client)
}
