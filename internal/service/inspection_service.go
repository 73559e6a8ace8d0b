package service

import (
	"context"
	"fmt"
	"strings"

	"hoteldesk/internal/domain"
	"hoteldesk/internal/events"
	"hoteldesk/internal/models"

	"github.com/rs/zerolog"
)

type InspectionService struct {
	inspections domain.InspectionRepository
	bookings    domain.BookingRepository
	eventBus    domain.EventPublisher
	logger      *zerolog.Logger
}

func NewInspectionService(inspections domain.InspectionRepository, bookings domain.BookingRepository, eventBus domain.EventPublisher, logger *zerolog.Logger) *InspectionService {
	return &InspectionService{
		inspections: inspections,
		bookings:    bookings,
		eventBus:    eventBus,
		logger:      logger,
	}
}

// CreateInspection stores a room inspection for an existing booking and totals its charges.
func (s *InspectionService) CreateInspection(ctx context.Context, in *models.RoomInspection) error {
	if in.BookingID == 0 {
		return invalid("booking_id", "is required")
	}
	b, err := s.bookings.GetBooking(ctx, in.BookingID)
	if err != nil {
		return fmt.Errorf("booking %d: %w", in.BookingID, err)
	}

	in.RoomID = strings.TrimSpace(in.RoomID)
	if in.RoomID == "" {
		in.RoomID = b.RoomNumber
	}
	if in.RoomID == "" {
		return invalid("room_id", "is required")
	}

	for i := range in.Items {
		it := &in.Items[i]
		it.ItemName = strings.TrimSpace(it.ItemName)
		if it.ItemName == "" {
			return invalid(fmt.Sprintf("items[%d].item_name", i), "is required")
		}
		if it.Status == "" {
			it.Status = models.InspectionOK
		}
		if !models.ValidInspectionStatus(it.Status) {
			return invalid(fmt.Sprintf("items[%d].status", i), "unknown status "+it.Status)
		}
		if it.Charge < 0 {
			return invalid(fmt.Sprintf("items[%d].charge", i), "must not be negative")
		}
	}
	in.RecalculateTotal()

	if err := s.inspections.CreateInspection(ctx, in); err != nil {
		return err
	}

	s.logger.Info().
		Int64("inspection_id", in.ID).
		Str("booking_no", b.BookingNo).
		Float64("total_charge", in.TotalCharge).
		Msg("Room inspection recorded")

	if s.eventBus != nil {
		payload := events.BookingEventPayload{
			BookingID:  b.ID,
			BookingNo:  b.BookingNo,
			GuestName:  b.GuestName,
			RoomNumber: in.RoomID,
			Status:     b.Status,
			ChangedBy:  in.InspectedBy,
			Reason:     in.Remarks,
		}
		if err := s.eventBus.PublishJSON(events.EventInspectionCreated, payload); err != nil {
			s.logger.Error().Err(err).Int64("inspection_id", in.ID).Msg("publish event error")
		}
	}
	return nil
}

func (s *InspectionService) GetInspection(ctx context.Context, id int64) (*models.RoomInspection, error) {
	return s.inspections.GetInspection(ctx, id)
}

func (s *InspectionService) ListByBooking(ctx context.Context, bookingID int64) ([]*models.RoomInspection, error) {
	if _, err := s.bookings.GetBooking(ctx, bookingID); err != nil {
		return nil, err
	}
	return s.inspections.ListInspectionsByBooking(ctx, bookingID)
}
