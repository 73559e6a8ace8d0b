package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"hoteldesk/internal/database"
	"hoteldesk/internal/domain"
	"hoteldesk/internal/events"
	"hoteldesk/internal/metrics"
	"hoteldesk/internal/models"

	"github.com/rs/zerolog"
)

// OrderService takes restaurant orders and charges room service to the booking that holds the table's room.
type OrderService struct {
	orders   domain.OrderRepository
	bookings domain.BookingRepository
	rooms    domain.RoomBookingFinder
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewOrderService(
	orders domain.OrderRepository,
	bookings domain.BookingRepository,
	rooms domain.RoomBookingFinder,
	eventBus domain.EventPublisher,
	logger *zerolog.Logger,
) *OrderService {
	return &OrderService{orders: orders, bookings: bookings, rooms: rooms, eventBus: eventBus, logger: logger}
}

func validateOrderItems(items []models.OrderItem) error {
	if len(items) == 0 {
		return invalid("items", "at least one item is required")
	}
	for i := range items {
		it := &items[i]
		it.ItemName = strings.TrimSpace(it.ItemName)
		switch {
		case it.ItemName == "":
			return invalid(fmt.Sprintf("items[%d].item_name", i), "is required")
		case it.Quantity <= 0:
			return invalid(fmt.Sprintf("items[%d].quantity", i), "must be positive")
		case it.Price < 0:
			return invalid(fmt.Sprintf("items[%d].price", i), "must not be negative")
		}
	}
	return nil
}

// CreateOrder stores o. An order naming a booking is charged to it; otherwise a table number
// that is an occupied room links the order to that room's booking. Walk-in tables stay unlinked.
func (s *OrderService) CreateOrder(ctx context.Context, o *models.RestaurantOrder) error {
	o.TableNo = strings.TrimSpace(o.TableNo)
	o.CustomerName = strings.TrimSpace(o.CustomerName)
	if err := validateOrderItems(o.Items); err != nil {
		return err
	}
	if o.Status == "" {
		o.Status = models.OrderPending
	}
	if !models.ValidOrderStatus(o.Status) {
		return invalid("status", "unknown status "+o.Status)
	}

	bookingID := o.BookingID
	o.BookingID, o.GRCNo, o.RoomNumber, o.GuestName, o.GuestPhone = 0, "", "", "", ""
	if bookingID != 0 {
		b, err := s.bookings.GetBooking(ctx, bookingID)
		if err != nil {
			return fmt.Errorf("booking %d: %w", bookingID, err)
		}
		o.LinkTo(b)
	} else if b := s.bookingForTable(ctx, o.TableNo); b != nil {
		o.LinkTo(b)
	}
	if o.CustomerName == "" {
		o.CustomerName = o.GuestName
	}

	if err := s.orders.CreateOrder(ctx, o); err != nil {
		return err
	}

	metrics.IncOrder(o.Linked())
	s.logger.Info().
		Int64("order_id", o.ID).
		Str("table", o.TableNo).
		Int64("booking_id", o.BookingID).
		Float64("amount", o.Amount).
		Msg("Restaurant order created")

	s.publish(events.EventOrderCreated, o)
	if o.Linked() {
		s.publish(events.EventOrderLinked, o)
	}
	return nil
}

// bookingForTable returns the active booking of the room named by table, or nil.
// Lookup failures only cost the link, never the order.
func (s *OrderService) bookingForTable(ctx context.Context, table string) *models.Booking {
	if table == "" || s.rooms == nil {
		return nil
	}
	b, err := s.rooms.FindActiveBookingByRoom(ctx, table)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			s.logger.Warn().Err(err).Str("table", table).Msg("Room lookup failed, order left unlinked")
		}
		return nil
	}
	return b
}

func (s *OrderService) GetOrder(ctx context.Context, id int64) (*models.RestaurantOrder, error) {
	return s.orders.GetOrder(ctx, id)
}

func (s *OrderService) ListOrders(ctx context.Context, filter models.OrderFilter) ([]*models.RestaurantOrder, error) {
	if filter.Status != "" && !models.ValidOrderStatus(filter.Status) {
		return nil, invalid("status", "unknown status "+filter.Status)
	}
	return s.orders.ListOrders(ctx, filter)
}

// ListByBooking returns the room service charged to an existing booking.
func (s *OrderService) ListByBooking(ctx context.Context, bookingID int64) ([]*models.RestaurantOrder, error) {
	if _, err := s.bookings.GetBooking(ctx, bookingID); err != nil {
		return nil, err
	}
	return s.orders.ListOrders(ctx, models.OrderFilter{BookingID: bookingID})
}

// UpdateStatus moves an open order to status. Completed and cancelled orders are final.
func (s *OrderService) UpdateStatus(ctx context.Context, id int64, status string) (*models.RestaurantOrder, error) {
	if !models.ValidOrderStatus(status) {
		return nil, invalid("status", "unknown status "+status)
	}
	o, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if models.OrderClosed(o.Status) {
		return nil, transition(o.Status, status)
	}

	if err := s.orders.UpdateOrderStatus(ctx, id, status); err != nil {
		return nil, err
	}
	o.Status = status
	s.publish(events.EventOrderStatusChanged, o)
	return o, nil
}

// OrderPatch carries the editable fields of an order; nil fields are left as is.
type OrderPatch struct {
	TableNo      *string
	CustomerName *string
	Notes        *string
	Items        []models.OrderItem
}

// UpdateOrder edits an open order. Moving it to another table re-resolves the booking it is charged to.
func (s *OrderService) UpdateOrder(ctx context.Context, id int64, p OrderPatch) (*models.RestaurantOrder, error) {
	o, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if models.OrderClosed(o.Status) {
		return nil, fmt.Errorf("%w: order is %s", ErrInvalidTransition, o.Status)
	}

	if p.Items != nil {
		if err := validateOrderItems(p.Items); err != nil {
			return nil, err
		}
		o.Items = p.Items
	}
	if p.CustomerName != nil {
		o.CustomerName = strings.TrimSpace(*p.CustomerName)
	}
	if p.Notes != nil {
		o.Notes = *p.Notes
	}

	relinked := false
	if p.TableNo != nil && strings.TrimSpace(*p.TableNo) != o.TableNo {
		o.TableNo = strings.TrimSpace(*p.TableNo)
		o.BookingID, o.GRCNo, o.RoomNumber, o.GuestName, o.GuestPhone = 0, "", "", "", ""
		if b := s.bookingForTable(ctx, o.TableNo); b != nil {
			o.LinkTo(b)
			relinked = true
		}
	}

	if err := s.orders.UpdateOrder(ctx, o); err != nil {
		return nil, err
	}
	if relinked {
		s.publish(events.EventOrderLinked, o)
	}
	return o, nil
}

// LinkResult reports a bulk linking pass.
type LinkResult struct {
	Linked        int `json:"linked"`
	TotalUnlinked int `json:"total_unlinked"`
}

// LinkUnlinked charges every unlinked order whose table is an occupied room to that room's booking.
func (s *OrderService) LinkUnlinked(ctx context.Context) (LinkResult, error) {
	open, err := s.orders.ListUnlinkedOrders(ctx)
	if err != nil {
		return LinkResult{}, err
	}

	res := LinkResult{TotalUnlinked: len(open)}
	for _, o := range open {
		b := s.bookingForTable(ctx, o.TableNo)
		if b == nil {
			continue
		}
		if err := s.orders.LinkOrder(ctx, o.ID, b); err != nil {
			s.logger.Error().Err(err).Int64("order_id", o.ID).Msg("Failed to link order")
			continue
		}
		o.LinkTo(b)
		res.Linked++
		s.publish(events.EventOrderLinked, o)
	}

	s.logger.Info().Int("linked", res.Linked).Int("unlinked", res.TotalUnlinked).Msg("Orders linked to bookings")
	return res, nil
}

func (s *OrderService) publish(eventType string, o *models.RestaurantOrder) {
	if s.eventBus == nil {
		return
	}
	payload := events.OrderEventPayload{
		OrderID:    o.ID,
		TableNo:    o.TableNo,
		Status:     o.Status,
		Amount:     o.Amount,
		BookingID:  o.BookingID,
		GRCNo:      o.GRCNo,
		RoomNumber: o.RoomNumber,
		GuestName:  o.GuestName,
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("order_id", o.ID).Msg("publish event error")
	}
}
