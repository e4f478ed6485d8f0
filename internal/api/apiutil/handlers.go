package apiutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/arenadesk/arenadesk/internal/api/authz"
	"github.com/arenadesk/arenadesk/internal/booking"
)

type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

type HandlerError struct {
	Status  int
	Message string
	Err     error
}

func (e HandlerError) Error() string {
	return e.Message
}

func (e HandlerError) Unwrap() error {
	return e.Err
}

func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("missing request body")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	if err := encoder.Encode(payload); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

func WriteError(w http.ResponseWriter, status int, message string) {
	_ = WriteJSON(w, status, map[string]string{"error": message})
}

// RequireActor fetches the actor placed in context by the identity
// middleware, writing a 401 if none is present.
func RequireActor(w http.ResponseWriter, r *http.Request) (booking.Actor, bool) {
	actor, ok := authz.ActorFromContext(r.Context())
	if !ok {
		log.Ctx(r.Context()).Warn().Msg("Request without actor identity")
		WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return booking.Actor{}, false
	}
	return actor, true
}

// WriteEngineError maps reservation engine errors onto HTTP statuses.
// Anything unrecognized is a 500 with a generic body.
func WriteEngineError(w http.ResponseWriter, r *http.Request, err error) {
	logger := log.Ctx(r.Context())

	var validationErr booking.ValidationError
	var conflictErr *booking.ConflictError
	var notFoundErr booking.NotFoundError

	switch {
	case errors.Is(err, authz.ErrUnauthenticated):
		logger.Warn().Msg("Request denied: unauthenticated")
		WriteError(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, authz.ErrForbidden):
		logger.Warn().Msg("Request denied: forbidden")
		WriteError(w, http.StatusForbidden, "Forbidden")
	case errors.As(err, &validationErr):
		WriteError(w, http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &conflictErr):
		_ = WriteJSON(w, http.StatusConflict, map[string]any{
			"error":          conflictErr.Error(),
			"court_id":       conflictErr.CourtID,
			"reservation_id": conflictErr.ReservationID,
		})
	case errors.As(err, &notFoundErr):
		WriteError(w, http.StatusNotFound, notFoundErr.Error())
	default:
		logger.Error().Err(err).Msg("Request failed")
		WriteError(w, http.StatusInternalServerError, "Internal Server Error")
	}
}
