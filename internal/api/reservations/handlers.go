// internal/api/reservations/handlers.go
package reservations

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/arenadesk/arenadesk/internal/api/apiutil"
	"github.com/arenadesk/arenadesk/internal/booking"
)

var (
	engine     *booking.Engine
	engineOnce sync.Once
)

const reservationQueryTimeout = 5 * time.Second

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(e *booking.Engine) {
	if e == nil {
		return
	}
	engineOnce.Do(func() {
		engine = e
	})
}

func loadEngine(w http.ResponseWriter, r *http.Request) *booking.Engine {
	if engine == nil {
		log.Ctx(r.Context()).Error().Msg("Reservation engine not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return nil
	}
	return engine
}

type createRequest struct {
	booking.ReservationInput
	Recurrence *booking.Recurrence `json:"recurrence,omitempty"`
}

// POST /api/v1/reservations
func HandleReservationCreate(w http.ResponseWriter, r *http.Request) {
	e := loadEngine(w, r)
	if e == nil {
		return
	}
	actor, ok := apiutil.RequireActor(w, r)
	if !ok {
		return
	}

	var req createRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), reservationQueryTimeout)
	defer cancel()

	if req.Recurrence != nil {
		result, err := e.CreateRecurringReservation(ctx, actor, req.ReservationInput, *req.Recurrence)
		if err != nil {
			apiutil.WriteEngineError(w, r, err)
			return
		}
		apiutil.WriteJSON(w, http.StatusCreated, result)
		return
	}

	created, err := e.CreateReservation(ctx, actor, req.ReservationInput)
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusCreated, created)
}

// GET /api/v1/reservations/calendar
func HandleCalendar(w http.ResponseWriter, r *http.Request) {
	e := loadEngine(w, r)
	if e == nil {
		return
	}
	actor, ok := apiutil.RequireActor(w, r)
	if !ok {
		return
	}

	courtID, err := apiutil.OptionalPositiveInt64Query(r, "court_id")
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	query := r.URL.Query()
	filter := booking.CalendarFilter{
		CourtID:       courtID,
		StartDate:     strings.TrimSpace(query.Get("start_date")),
		EndDate:       strings.TrimSpace(query.Get("end_date")),
		Kind:          booking.Kind(strings.TrimSpace(query.Get("kind"))),
		PaymentStatus: booking.PaymentStatus(strings.TrimSpace(query.Get("payment_status"))),
	}

	ctx, cancel := context.WithTimeout(r.Context(), reservationQueryTimeout)
	defer cancel()

	rows, err := e.ListCalendar(ctx, actor, filter)
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{"reservations": rows})
}

// GET /api/v1/reservations/logical
func HandleLogicalList(w http.ResponseWriter, r *http.Request) {
	e := loadEngine(w, r)
	if e == nil {
		return
	}
	actor, ok := apiutil.RequireActor(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), reservationQueryTimeout)
	defer cancel()

	logical, err := e.ListLogicalReservations(ctx, actor, actor.TenantID)
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{"reservations": logical})
}

// DELETE /api/v1/reservations/{id}
func HandleReservationCancel(w http.ResponseWriter, r *http.Request) {
	e := loadEngine(w, r)
	if e == nil {
		return
	}
	actor, ok := apiutil.RequireActor(w, r)
	if !ok {
		return
	}
	id, err := apiutil.PathID(r, "/api/v1/reservations/")
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), reservationQueryTimeout)
	defer cancel()

	cancelled, err := e.CancelReservation(ctx, actor, id)
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, cancelled)
}

type rescheduleRequest struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// PUT /api/v1/reservations/{id}/schedule
func HandleReservationReschedule(w http.ResponseWriter, r *http.Request) {
	e := loadEngine(w, r)
	if e == nil {
		return
	}
	actor, ok := apiutil.RequireActor(w, r)
	if !ok {
		return
	}
	id, err := apiutil.PathID(r, "/api/v1/reservations/")
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req rescheduleRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), reservationQueryTimeout)
	defer cancel()

	moved, err := e.RescheduleReservation(ctx, actor, id, req.Date, req.StartTime, req.EndTime)
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, moved)
}

type paymentRequest struct {
	AmountCents int64 `json:"amount_cents"`
}

// POST /api/v1/reservations/{id}/payments
func HandleReservationPayment(w http.ResponseWriter, r *http.Request) {
	e := loadEngine(w, r)
	if e == nil {
		return
	}
	actor, ok := apiutil.RequireActor(w, r)
	if !ok {
		return
	}
	id, err := apiutil.PathID(r, "/api/v1/reservations/")
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req paymentRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), reservationQueryTimeout)
	defer cancel()

	updated, err := e.RecordPayment(ctx, actor, id, req.AmountCents)
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, updated)
}
