package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"hoteldesk/internal/export"
	"hoteldesk/internal/models"
	"hoteldesk/internal/service"

	"github.com/go-chi/chi/v5"
)

type fineInput struct {
	FinePerHour        float64 `json:"fine_per_hour"`
	GracePeriodMinutes int     `json:"grace_period_minutes"`
}

type bookingRequest struct {
	GRCNo            string     `json:"grc_no"`
	CategoryID       int64      `json:"category_id"`
	GuestName        string     `json:"guest_name"`
	MobileNo         string     `json:"mobile_no"`
	Email            string     `json:"email"`
	RoomNumber       string     `json:"room_number"`
	NumberOfRooms    int        `json:"number_of_rooms"`
	CheckInDate      string     `json:"check_in_date"`
	CheckOutDate     string     `json:"check_out_date"`
	TimeIn           string     `json:"time_in"`
	TimeOut          string     `json:"time_out"`
	Rate             float64    `json:"rate"`
	PaymentStatus    string     `json:"payment_status"`
	LateCheckoutFine *fineInput `json:"late_checkout_fine"`
}

type patchRequest struct {
	Version       int64    `json:"version"`
	GuestName     *string  `json:"guest_name"`
	MobileNo      *string  `json:"mobile_no"`
	Email         *string  `json:"email"`
	RoomNumber    *string  `json:"room_number"`
	CategoryID    *int64   `json:"category_id"`
	NumberOfRooms *int     `json:"number_of_rooms"`
	CheckInDate   *string  `json:"check_in_date"`
	CheckOutDate  *string  `json:"check_out_date"`
	TimeIn        *string  `json:"time_in"`
	TimeOut       *string  `json:"time_out"`
	Rate          *float64 `json:"rate"`
	PaymentStatus *string  `json:"payment_status"`
}

type transitionRequest struct {
	Version int64  `json:"version"`
	At      string `json:"at"`
	By      string `json:"by"`
	Reason  string `json:"reason"`
}

type fineResponse struct {
	MinutesLate     int     `json:"minutes_late"`
	ChargeableHours int     `json:"chargeable_hours"`
	Amount          float64 `json:"amount"`
	Applied         bool    `json:"applied"`
	Anomalous       bool    `json:"anomalous"`
}

type checkOutResponse struct {
	Booking *models.Booking `json:"booking"`
	Fine    fineResponse    `json:"fine"`
}

var errEmptyBody = errors.New("empty body")

// decodeBody reads a JSON body into v. An empty body is allowed when optional is set.
func decodeBody(r *http.Request, v any, optional bool) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			if optional {
				return nil
			}
			return errEmptyBody
		}
		return err
	}
	return nil
}

func (s *HTTPServer) parseDate(field, v string) (time.Time, error) {
	if strings.TrimSpace(v) == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(models.DateLayout, strings.TrimSpace(v), s.loc)
	if err != nil {
		return time.Time{}, &service.ValidationError{Field: field, Message: "must be YYYY-MM-DD", Err: err}
	}
	return t, nil
}

func parseInstant(field, v string) (time.Time, error) {
	if strings.TrimSpace(v) == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(v))
	if err != nil {
		return time.Time{}, &service.ValidationError{Field: field, Message: "must be RFC3339", Err: err}
	}
	return t, nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", chi.URLParam(r, "id"))
	}
	return id, nil
}

func (s *HTTPServer) toBooking(req bookingRequest) (*models.Booking, error) {
	in, err := s.parseDate("check_in_date", req.CheckInDate)
	if err != nil {
		return nil, err
	}
	out, err := s.parseDate("check_out_date", req.CheckOutDate)
	if err != nil {
		return nil, err
	}

	b := &models.Booking{
		GRCNo:         req.GRCNo,
		CategoryID:    req.CategoryID,
		GuestName:     req.GuestName,
		MobileNo:      req.MobileNo,
		Email:         req.Email,
		RoomNumber:    req.RoomNumber,
		NumberOfRooms: req.NumberOfRooms,
		CheckInDate:   in,
		CheckOutDate:  out,
		TimeIn:        req.TimeIn,
		TimeOut:       req.TimeOut,
		Rate:          req.Rate,
		PaymentStatus: req.PaymentStatus,
	}
	if req.LateCheckoutFine != nil {
		b.LateCheckoutFine.FinePerHour = req.LateCheckoutFine.FinePerHour
		b.LateCheckoutFine.GracePeriodMinutes = req.LateCheckoutFine.GracePeriodMinutes
	}
	return b, nil
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	b, err := s.toBooking(req)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	if err := s.deps.Bookings.CreateBooking(r.Context(), b); err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *HTTPServer) listFilter(r *http.Request) (models.BookingFilter, error) {
	q := r.URL.Query()
	from, err := s.parseDate("from", q.Get("from"))
	if err != nil {
		return models.BookingFilter{}, err
	}
	to, err := s.parseDate("to", q.Get("to"))
	if err != nil {
		return models.BookingFilter{}, err
	}
	includeDeleted, _ := strconv.ParseBool(q.Get("include_deleted"))
	return models.BookingFilter{
		From:           from,
		To:             to,
		Status:         strings.TrimSpace(q.Get("status")),
		IncludeDeleted: includeDeleted,
	}, nil
}

func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	filter, err := s.listFilter(r)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	bookings, err := s.deps.Bookings.ListBookings(r.Context(), filter)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	if bookings == nil {
		bookings = []*models.Booking{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings, "count": len(bookings)})
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	b, err := s.deps.Bookings.GetBooking(r.Context(), id)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *HTTPServer) handleGetBookingByNo(w http.ResponseWriter, r *http.Request) {
	b, err := s.deps.Bookings.GetBookingByNo(r.Context(), chi.URLParam(r, "bookingNo"))
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *HTTPServer) handleUpdateBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req patchRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	patch := service.BookingPatch{
		GuestName:     req.GuestName,
		MobileNo:      req.MobileNo,
		Email:         req.Email,
		RoomNumber:    req.RoomNumber,
		CategoryID:    req.CategoryID,
		NumberOfRooms: req.NumberOfRooms,
		TimeIn:        req.TimeIn,
		TimeOut:       req.TimeOut,
		Rate:          req.Rate,
		PaymentStatus: req.PaymentStatus,
	}
	if req.CheckInDate != nil {
		t, err := s.parseDate("check_in_date", *req.CheckInDate)
		if err != nil {
			writeServiceError(w, s.logger, err)
			return
		}
		patch.CheckInDate = &t
	}
	if req.CheckOutDate != nil {
		t, err := s.parseDate("check_out_date", *req.CheckOutDate)
		if err != nil {
			writeServiceError(w, s.logger, err)
			return
		}
		patch.CheckOutDate = &t
	}

	b, err := s.deps.Bookings.UpdateBooking(r.Context(), id, req.Version, patch)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *HTTPServer) handleDeleteBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	by := strings.TrimSpace(r.URL.Query().Get("deleted_by"))
	if by == "" {
		writeServiceError(w, s.logger, &service.ValidationError{Field: "deleted_by", Message: "is required", Err: service.ErrValidation})
		return
	}
	if err := s.deps.Bookings.DeleteBooking(r.Context(), id, by); err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// transition decodes the shared body of the lifecycle endpoints.
func (s *HTTPServer) transition(w http.ResponseWriter, r *http.Request) (int64, transitionRequest, time.Time, bool) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, transitionRequest{}, time.Time{}, false
	}
	var req transitionRequest
	if err := decodeBody(r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return 0, transitionRequest{}, time.Time{}, false
	}
	at, err := parseInstant("at", req.At)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return 0, transitionRequest{}, time.Time{}, false
	}
	return id, req, at, true
}

func (s *HTTPServer) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	id, req, at, ok := s.transition(w, r)
	if !ok {
		return
	}
	b, err := s.deps.Bookings.CheckIn(r.Context(), id, req.Version, at)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *HTTPServer) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	id, req, at, ok := s.transition(w, r)
	if !ok {
		return
	}
	b, res, err := s.deps.Bookings.CheckOut(r.Context(), id, req.Version, at)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, checkOutResponse{
		Booking: b,
		Fine: fineResponse{
			MinutesLate:     res.MinutesLate,
			ChargeableHours: res.ChargeableHours,
			Amount:          res.Amount,
			Applied:         res.Applied,
			Anomalous:       res.Anomalous,
		},
	})
}

func (s *HTTPServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, req, _, ok := s.transition(w, r)
	if !ok {
		return
	}
	b, err := s.deps.Bookings.CancelBooking(r.Context(), id, req.Version, req.By)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *HTTPServer) handleWaiveFine(w http.ResponseWriter, r *http.Request) {
	id, req, _, ok := s.transition(w, r)
	if !ok {
		return
	}
	b, err := s.deps.Bookings.WaiveFine(r.Context(), id, req.Version, req.By, req.Reason)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *HTTPServer) handleListInspections(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	list, err := s.deps.Inspections.ListByBooking(r.Context(), id)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	if list == nil {
		list = []*models.RoomInspection{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"inspections": list})
}

func (s *HTTPServer) handleCreateInspection(w http.ResponseWriter, r *http.Request) {
	var in models.RoomInspection
	if err := decodeBody(r, &in, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	in.ID = 0
	if err := s.deps.Inspections.CreateInspection(r.Context(), &in); err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, &in)
}

func (s *HTTPServer) handleGetInspection(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	in, err := s.deps.Inspections.GetInspection(r.Context(), id)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

// exportRange reads from/to, defaulting to the current month.
func (s *HTTPServer) exportRange(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()
	from, err := s.parseDate("from", q.Get("from"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := s.parseDate("to", q.Get("to"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	now := time.Now().In(s.loc)
	if from.IsZero() {
		from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)
	}
	if to.IsZero() {
		to = from.AddDate(0, 1, -1)
	}
	return from, to, nil
}

func (s *HTTPServer) exportBookings(r *http.Request) ([]*models.Booking, time.Time, time.Time, error) {
	if s.deps.Exporter == nil {
		return nil, time.Time{}, time.Time{}, errExportsDisabled
	}
	from, to, err := s.exportRange(r)
	if err != nil {
		return nil, from, to, err
	}
	bookings, err := s.deps.Bookings.ListBookings(r.Context(), models.BookingFilter{
		From:   from,
		To:     to,
		Status: strings.TrimSpace(r.URL.Query().Get("status")),
	})
	return bookings, from, to, err
}

var errExportsDisabled = errors.New("exports are not configured")

func (s *HTTPServer) handleExportBookings(w http.ResponseWriter, r *http.Request) {
	bookings, from, to, err := s.exportBookings(r)
	if errors.Is(err, errExportsDisabled) {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(from, to)))
	w.WriteHeader(http.StatusOK)
	if err := s.deps.Exporter.Write(w, bookings, from, to); err != nil {
		s.logger.Error().Err(err).Msg("xlsx export failed")
	}
}

func (s *HTTPServer) handleSaveExport(w http.ResponseWriter, r *http.Request) {
	bookings, from, to, err := s.exportBookings(r)
	if errors.Is(err, errExportsDisabled) {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	path, err := s.deps.Exporter.Save(bookings, from, to)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"path": path, "count": len(bookings)})
}

func (s *HTTPServer) handleResync(w http.ResponseWriter, r *http.Request) {
	if s.deps.Sync == nil {
		writeError(w, http.StatusServiceUnavailable, "sheets sync is disabled")
		return
	}
	if err := s.deps.Sync.EnqueueResync(r.Context()); err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (s *HTTPServer) handleRequeue(w http.ResponseWriter, r *http.Request) {
	if s.deps.Sync == nil {
		writeError(w, http.StatusServiceUnavailable, "sheets sync is disabled")
		return
	}
	n, err := s.deps.Sync.RequeueFailed(r.Context())
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"requeued": n})
}
