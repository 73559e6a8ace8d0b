package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"hoteldesk/internal/billing"
	"hoteldesk/internal/database"
	"hoteldesk/internal/domain"
	"hoteldesk/internal/events"
	"hoteldesk/internal/metrics"
	"hoteldesk/internal/models"

	"github.com/rs/zerolog"
)

const (
	TaskUpsert       = models.SyncTaskUpsert
	TaskDelete       = models.SyncTaskDelete
	TaskUpdateStatus = models.SyncTaskUpdateStatus
)

// FineDefaults seed the fine sub-record of new bookings.
type FineDefaults struct {
	FinePerHour        float64
	GracePeriodMinutes int
}

type BookingService struct {
	repo         domain.BookingRepository
	pipeline     *billing.Pipeline
	eventBus     domain.EventPublisher
	sheetsWorker domain.SyncWorker
	categories   domain.CategoryRepository
	defaults     FineDefaults
	loc          *time.Location
	logger       *zerolog.Logger
	now          func() time.Time
}

func NewBookingService(
	repo domain.BookingRepository,
	pipeline *billing.Pipeline,
	eventBus domain.EventPublisher,
	sheetsWorker domain.SyncWorker,
	defaults FineDefaults,
	loc *time.Location,
	logger *zerolog.Logger,
) *BookingService {
	if defaults.FinePerHour <= 0 {
		defaults.FinePerHour = models.DefaultFinePerHour
	}
	if defaults.GracePeriodMinutes <= 0 {
		defaults.GracePeriodMinutes = models.DefaultGracePeriodMinutes
	}
	if loc == nil {
		loc = time.Local
	}
	return &BookingService{
		repo:         repo,
		pipeline:     pipeline,
		eventBus:     eventBus,
		sheetsWorker: sheetsWorker,
		defaults:     defaults,
		loc:          loc,
		logger:       logger,
		now:          time.Now,
	}
}

// UseCategories makes the service reject bookings that name an unknown or inactive room category.
func (s *BookingService) UseCategories(repo domain.CategoryRepository) {
	s.categories = repo
}

func (s *BookingService) checkCategory(ctx context.Context, id int64) error {
	if id == 0 || s.categories == nil {
		return nil
	}
	c, err := s.categories.GetCategory(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return invalid("category_id", "unknown category")
	}
	if err != nil {
		return err
	}
	if c.Status != models.CategoryActive {
		return invalid("category_id", "category "+c.Name+" is inactive")
	}
	return nil
}

// day truncates t to the hotel calendar day.
func (s *BookingService) day(t time.Time) time.Time {
	y, m, d := t.In(s.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

func (s *BookingService) validateNew(b *models.Booking) error {
	b.GuestName = strings.TrimSpace(b.GuestName)
	b.MobileNo = strings.TrimSpace(b.MobileNo)
	b.GRCNo = strings.TrimSpace(b.GRCNo)

	switch {
	case b.GRCNo == "":
		return invalid("grc_no", "is required")
	case b.GuestName == "":
		return invalid("guest_name", "is required")
	case b.MobileNo == "":
		return invalid("mobile_no", "is required")
	case b.CheckInDate.IsZero():
		return invalid("check_in_date", "is required")
	case b.CheckOutDate.IsZero():
		return invalid("check_out_date", "is required")
	case b.NumberOfRooms < 0:
		return invalid("number_of_rooms", "must not be negative")
	case b.Rate < 0:
		return invalid("rate", "must not be negative")
	}

	b.CheckInDate = s.day(b.CheckInDate)
	b.CheckOutDate = s.day(b.CheckOutDate)
	if b.CheckOutDate.Before(b.CheckInDate) {
		return invalid("check_out_date", "is before check_in_date")
	}

	if b.TimeOut == "" {
		b.TimeOut = models.DefaultTimeOut
	}
	if _, _, err := billing.ParseTimeOut(b.TimeOut); err != nil {
		return &ValidationError{Field: "time_out", Message: "must be HH:MM", Err: err}
	}

	if b.NumberOfRooms == 0 {
		b.NumberOfRooms = 1
	}
	if b.Status == "" {
		b.Status = models.StatusBooked
	}
	if !models.ValidStatus(b.Status) {
		return invalid("status", "unknown status "+b.Status)
	}
	if b.PaymentStatus == "" {
		b.PaymentStatus = models.PaymentPending
	}
	if !models.ValidPaymentStatus(b.PaymentStatus) {
		return invalid("payment_status", "unknown payment status "+b.PaymentStatus)
	}
	return nil
}

// CreateBooking validates b, assigns its booking and invoice numbers and stores it.
func (s *BookingService) CreateBooking(ctx context.Context, b *models.Booking) error {
	if err := s.validateNew(b); err != nil {
		return err
	}
	if err := s.checkCategory(ctx, b.CategoryID); err != nil {
		return err
	}

	// clients may choose the rate and grace but never the fine outcome
	f := models.LateCheckoutFine{
		FinePerHour:        b.LateCheckoutFine.FinePerHour,
		GracePeriodMinutes: b.LateCheckoutFine.GracePeriodMinutes,
	}
	if f.FinePerHour <= 0 {
		f.FinePerHour = s.defaults.FinePerHour
	}
	if f.GracePeriodMinutes <= 0 {
		f.GracePeriodMinutes = s.defaults.GracePeriodMinutes
	}
	b.LateCheckoutFine = f
	b.Deleted, b.DeletedAt, b.DeletedBy = false, nil, ""

	res, err := s.pipeline.Create(ctx, b, s.repo.InsertBooking)
	if err != nil {
		return err
	}

	metrics.IncBookingCreated()
	s.logger.Info().
		Int64("booking_id", b.ID).
		Str("booking_no", b.BookingNo).
		Str("invoice", b.InvoiceNumber).
		Msg("Booking created")

	s.publishEvent(events.EventBookingCreated, b, "", "")
	if res.Applied {
		s.fineApplied(b)
	}
	s.enqueueSync(ctx, b, TaskUpsert)
	return nil
}

// load fetches a booking and checks the caller's version; version 0 skips the check.
func (s *BookingService) load(ctx context.Context, id, version int64) (*models.Booking, error) {
	b, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if version != 0 && version != b.Version {
		return nil, database.ErrConcurrentModification
	}
	return b, nil
}

func (s *BookingService) at(t time.Time) time.Time {
	if t.IsZero() {
		return s.now()
	}
	return t
}

func (s *BookingService) CheckIn(ctx context.Context, id, version int64, at time.Time) (*models.Booking, error) {
	b, err := s.load(ctx, id, version)
	if err != nil {
		return nil, err
	}
	if b.Status != models.StatusBooked {
		return nil, transition(b.Status, models.StatusCheckedIn)
	}

	in := s.at(at)
	b.Status = models.StatusCheckedIn
	b.ActualCheckInTime = &in
	if err := s.repo.UpdateBooking(ctx, b); err != nil {
		return nil, err
	}

	s.publishEvent(events.EventBookingCheckedIn, b, "", "")
	s.enqueueSync(ctx, b, TaskUpsert)
	return b, nil
}

// CheckOut records the departure and applies the late checkout fine if one is due.
func (s *BookingService) CheckOut(ctx context.Context, id, version int64, at time.Time) (*models.Booking, billing.FineResult, error) {
	b, err := s.load(ctx, id, version)
	if err != nil {
		return nil, billing.FineResult{}, err
	}
	if b.Status != models.StatusCheckedIn {
		return nil, billing.FineResult{}, transition(b.Status, models.StatusCheckedOut)
	}

	out := s.at(at)
	b.Status = models.StatusCheckedOut
	b.ActualCheckOutTime = &out

	res, err := s.pipeline.Finalize(ctx, b, s.now())
	if err != nil {
		return nil, billing.FineResult{}, err
	}
	if err := s.repo.UpdateBooking(ctx, b); err != nil {
		return nil, billing.FineResult{}, err
	}

	if res.Anomalous {
		s.logger.Warn().
			Str("booking_no", b.BookingNo).
			Int("minutes_late", res.MinutesLate).
			Msg("Checkout gap too large, fine not applied")
	}

	s.publishEvent(events.EventBookingCheckedOut, b, "", "")
	if res.Applied {
		s.fineApplied(b)
	}
	s.enqueueSync(ctx, b, TaskUpsert)
	return b, res, nil
}

func (s *BookingService) CancelBooking(ctx context.Context, id, version int64, by string) (*models.Booking, error) {
	b, err := s.load(ctx, id, version)
	if err != nil {
		return nil, err
	}
	if b.Status != models.StatusBooked && b.Status != models.StatusCheckedIn {
		return nil, transition(b.Status, models.StatusCancelled)
	}

	b.Status = models.StatusCancelled
	if err := s.repo.UpdateBooking(ctx, b); err != nil {
		return nil, err
	}

	s.publishEvent(events.EventBookingCancelled, b, by, "")
	s.enqueueSync(ctx, b, TaskUpdateStatus)
	return b, nil
}

// WaiveFine cancels an applied fine. The fine stays applied so it is never recomputed.
func (s *BookingService) WaiveFine(ctx context.Context, id, version int64, by, reason string) (*models.Booking, error) {
	by, reason = strings.TrimSpace(by), strings.TrimSpace(reason)
	if by == "" {
		return nil, invalid("waived_by", "is required")
	}
	if reason == "" {
		return nil, invalid("reason", "is required")
	}

	b, err := s.load(ctx, id, version)
	if err != nil {
		return nil, err
	}
	f := &b.LateCheckoutFine
	if !f.Applied || f.Waived {
		return nil, ErrNoFineToWaive
	}

	waived := f.Amount
	f.Amount = 0
	f.Waived = true
	f.WaivedBy = by
	f.WaivedReason = reason
	if err := s.repo.UpdateBooking(ctx, b); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("booking_no", b.BookingNo).
		Float64("amount", waived).
		Str("by", by).
		Msg("Late checkout fine waived")

	s.publishEvent(events.EventLateFineWaived, b, by, reason)
	s.enqueueSync(ctx, b, TaskUpsert)
	return b, nil
}

// BookingPatch carries the editable fields of a booking; nil fields are left as is.
type BookingPatch struct {
	GuestName     *string
	MobileNo      *string
	Email         *string
	RoomNumber    *string
	CategoryID    *int64
	NumberOfRooms *int
	CheckInDate   *time.Time
	CheckOutDate  *time.Time
	TimeIn        *string
	TimeOut       *string
	Rate          *float64
	PaymentStatus *string
}

// UpdateBooking applies patch and re-runs the late fine for checked out bookings.
// The contractual time out is fixed at creation.
func (s *BookingService) UpdateBooking(ctx context.Context, id, version int64, p BookingPatch) (*models.Booking, error) {
	b, err := s.load(ctx, id, version)
	if err != nil {
		return nil, err
	}

	if p.TimeOut != nil && *p.TimeOut != b.TimeOut {
		return nil, ErrTimeOutImmutable
	}
	if p.GuestName != nil {
		if strings.TrimSpace(*p.GuestName) == "" {
			return nil, invalid("guest_name", "is required")
		}
		b.GuestName = strings.TrimSpace(*p.GuestName)
	}
	if p.MobileNo != nil {
		if strings.TrimSpace(*p.MobileNo) == "" {
			return nil, invalid("mobile_no", "is required")
		}
		b.MobileNo = strings.TrimSpace(*p.MobileNo)
	}
	if p.Email != nil {
		b.Email = *p.Email
	}
	if p.RoomNumber != nil {
		b.RoomNumber = *p.RoomNumber
	}
	if p.CategoryID != nil && *p.CategoryID != b.CategoryID {
		if err := s.checkCategory(ctx, *p.CategoryID); err != nil {
			return nil, err
		}
		b.CategoryID = *p.CategoryID
	}
	if p.NumberOfRooms != nil {
		if *p.NumberOfRooms < 1 {
			return nil, invalid("number_of_rooms", "must be at least 1")
		}
		b.NumberOfRooms = *p.NumberOfRooms
	}
	if p.CheckInDate != nil {
		b.CheckInDate = s.day(*p.CheckInDate)
	}
	if p.CheckOutDate != nil {
		b.CheckOutDate = s.day(*p.CheckOutDate)
	}
	if b.CheckOutDate.Before(b.CheckInDate) {
		return nil, invalid("check_out_date", "is before check_in_date")
	}
	if p.TimeIn != nil {
		b.TimeIn = *p.TimeIn
	}
	if p.Rate != nil {
		if *p.Rate < 0 {
			return nil, invalid("rate", "must not be negative")
		}
		b.Rate = *p.Rate
	}
	if p.PaymentStatus != nil {
		if !models.ValidPaymentStatus(*p.PaymentStatus) {
			return nil, invalid("payment_status", "unknown payment status "+*p.PaymentStatus)
		}
		b.PaymentStatus = *p.PaymentStatus
	}

	// a corrected checkout date can make a checked out stay late after the fact
	res, err := s.pipeline.Finalize(ctx, b, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateBooking(ctx, b); err != nil {
		return nil, err
	}

	if res.Applied {
		s.fineApplied(b)
	}
	s.enqueueSync(ctx, b, TaskUpsert)
	return b, nil
}

// DeleteBooking soft-deletes a booking. Its booking number stays reserved.
func (s *BookingService) DeleteBooking(ctx context.Context, id int64, by string) error {
	b, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.SoftDeleteBooking(ctx, id, by); err != nil {
		return err
	}

	b.Deleted = true
	b.DeletedBy = by
	s.publishEvent(events.EventBookingDeleted, b, by, "")
	s.enqueueSync(ctx, b, TaskDelete)
	return nil
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return s.repo.GetBooking(ctx, id)
}

func (s *BookingService) GetBookingByNo(ctx context.Context, bookingNo string) (*models.Booking, error) {
	return s.repo.GetBookingByNo(ctx, bookingNo)
}

func (s *BookingService) ListBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error) {
	if filter.Status != "" && !models.ValidStatus(filter.Status) {
		return nil, invalid("status", "unknown status "+filter.Status)
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return nil, invalid("to", "is before from")
	}
	return s.repo.ListBookings(ctx, filter)
}

func (s *BookingService) fineApplied(b *models.Booking) {
	metrics.ObserveFine(b.LateCheckoutFine.Amount)
	s.logger.Info().
		Str("booking_no", b.BookingNo).
		Int("minutes_late", b.LateCheckoutFine.MinutesLate).
		Float64("amount", b.LateCheckoutFine.Amount).
		Msg("Late checkout fine applied")
	s.publishEvent(events.EventLateFineApplied, b, "", "")
}

func (s *BookingService) publishEvent(eventType string, b *models.Booking, changedBy, reason string) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:     b.ID,
		BookingNo:     b.BookingNo,
		InvoiceNumber: b.InvoiceNumber,
		GuestName:     b.GuestName,
		RoomNumber:    b.RoomNumber,
		Status:        b.Status,
		CheckOutDate:  b.CheckOutDate,
		ActualOut:     b.ActualCheckOutTime,
		FineAmount:    b.LateCheckoutFine.Amount,
		MinutesLate:   b.LateCheckoutFine.MinutesLate,
		ChangedBy:     changedBy,
		Reason:        reason,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", b.ID).Msg("publish event error")
	}
}

func (s *BookingService) enqueueSync(ctx context.Context, b *models.Booking, taskType string) {
	if s.sheetsWorker == nil {
		return
	}
	if err := s.sheetsWorker.EnqueueTask(ctx, taskType, b); err != nil {
		s.logger.Error().Err(err).Int64("booking_id", b.ID).Str("task", taskType).Msg("sheets enqueue error")
	}
}

// IsNotFound reports whether err means the booking or inspection does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, database.ErrNotFound)
}
