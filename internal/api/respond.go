package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"hoteldesk/internal/billing"
	"hoteldesk/internal/database"
	"hoteldesk/internal/service"

	"github.com/rs/zerolog"
)

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, billing.ErrCollision),
		errors.Is(err, database.ErrDuplicate),
		errors.Is(err, database.ErrConcurrentModification),
		errors.Is(err, database.ErrInsufficientStock),
		errors.Is(err, database.ErrInUse),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrTimeOutImmutable),
		errors.Is(err, service.ErrNoFineToWaive):
		return http.StatusConflict
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, billing.ErrInvalidFineInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError reports err to the client. Internal errors are logged and masked.
func writeServiceError(w http.ResponseWriter, logger *zerolog.Logger, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		logger.Error().Err(err).Msg("request failed")
		writeError(w, code, "internal error")
		return
	}

	body := map[string]any{"error": err.Error()}
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		body["field"] = ve.Field
	}
	var ce *billing.CollisionError
	if errors.As(err, &ce) {
		body["field"] = ce.Field
		body["attempts"] = ce.Attempts
	}
	writeJSON(w, code, body)
}
