package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"hoteldesk/internal/billing"
	"hoteldesk/internal/database"
	"hoteldesk/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&billing.CollisionError{Field: "booking_no", Attempts: 3}, http.StatusConflict},
		{fmt.Errorf("insert: %w", database.ErrDuplicate), http.StatusConflict},
		{database.ErrConcurrentModification, http.StatusConflict},
		{fmt.Errorf("%w: booked -> checked_out", service.ErrInvalidTransition), http.StatusConflict},
		{service.ErrTimeOutImmutable, http.StatusConflict},
		{service.ErrNoFineToWaive, http.StatusConflict},
		{fmt.Errorf("stock-out: %w", database.ErrInsufficientStock), http.StatusConflict},
		{database.ErrInUse, http.StatusConflict},
		{&service.ValidationError{Field: "guest_name", Message: "is required"}, http.StatusUnprocessableEntity},
		{fmt.Errorf("time out: %w", billing.ErrInvalidFineInput), http.StatusUnprocessableEntity},
		{fmt.Errorf("booking 7: %w", database.ErrNotFound), http.StatusNotFound},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestWriteServiceError(t *testing.T) {
	logger := zerolog.New(io.Discard)

	rec := httptest.NewRecorder()
	writeServiceError(rec, &logger, &billing.CollisionError{Field: "invoice_number", Attempts: 3})
	require.Equal(t, http.StatusConflict, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invoice_number", body["field"])
	assert.EqualValues(t, 3, body["attempts"])

	rec = httptest.NewRecorder()
	writeServiceError(rec, &logger, errors.New("secret detail"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret detail")
}
