// cmd/server/server.go
package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/arenadesk/arenadesk/internal/api"
	"github.com/arenadesk/arenadesk/internal/api/authz"
	clientsapi "github.com/arenadesk/arenadesk/internal/api/clients"
	"github.com/arenadesk/arenadesk/internal/api/courts"
	"github.com/arenadesk/arenadesk/internal/api/reservations"
	"github.com/arenadesk/arenadesk/internal/api/tenants"
	"github.com/arenadesk/arenadesk/internal/booking"
	"github.com/arenadesk/arenadesk/internal/clients"
	"github.com/arenadesk/arenadesk/internal/config"
	"github.com/arenadesk/arenadesk/internal/db"
	"github.com/arenadesk/arenadesk/internal/ratelimit"
	"github.com/arenadesk/arenadesk/internal/store"
)

const shutdownTimeout = 30 * time.Second

func newServer(cfg *config.Config, database *db.DB) (*http.Server, error) {
	st := store.New(database)
	registry := clients.NewRegistry(database)
	authorizer := authz.NewService()

	engine, err := booking.NewEngine(st, st, registry, authorizer)
	if err != nil {
		return nil, fmt.Errorf("build reservation engine: %w", err)
	}

	reservations.InitHandlers(engine)
	courts.InitHandlers(engine, database, authorizer)
	clientsapi.InitHandlers(registry, authorizer)
	tenants.InitHandlers(database, authorizer)

	limiter := ratelimit.New(nil)

	router := http.NewServeMux()
	registerRoutes(router, limiter)

	// Setup middleware chain
	handler := api.ChainMiddleware(
		router,
		api.WithLogging,
		api.WithActor,
		api.WithRecovery,
		api.WithRequestID,
	)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, nil
}

func registerRoutes(mux *http.ServeMux, limiter *ratelimit.Limiter) {
	throttled := api.WithBookingRateLimit(limiter, false)
	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Reservation routes
	mux.Handle("POST /api/v1/reservations", throttled(http.HandlerFunc(reservations.HandleReservationCreate)))
	mux.HandleFunc("GET /api/v1/reservations/calendar", reservations.HandleCalendar)
	mux.HandleFunc("GET /api/v1/reservations/logical", reservations.HandleLogicalList)
	mux.HandleFunc("DELETE /api/v1/reservations/{id}", reservations.HandleReservationCancel)
	mux.HandleFunc("PUT /api/v1/reservations/{id}/schedule", reservations.HandleReservationReschedule)
	mux.HandleFunc("POST /api/v1/reservations/{id}/payments", reservations.HandleReservationPayment)

	// Court routes
	mux.HandleFunc("GET /api/v1/courts", courts.HandleCourtList)
	mux.HandleFunc("POST /api/v1/courts", courts.HandleCourtCreate)
	mux.HandleFunc("PUT /api/v1/courts/{id}/status", courts.HandleCourtStatus)
	mux.HandleFunc("GET /api/v1/courts/{id}/availability", courts.HandleCourtAvailability)

	// Client routes
	mux.HandleFunc("GET /api/v1/clients", clientsapi.HandleClientSearch)
	mux.HandleFunc("POST /api/v1/clients", clientsapi.HandleClientCreate)

	// Tenant administration
	mux.HandleFunc("GET /api/v1/tenants", tenants.HandleTenantList)
	mux.HandleFunc("POST /api/v1/tenants", tenants.HandleTenantCreate)
	mux.HandleFunc("PUT /api/v1/tenants/{id}/status", tenants.HandleTenantStatus)
}
