package service

import (
	"context"
	"strings"

	"hoteldesk/internal/domain"
	"hoteldesk/internal/events"
	"hoteldesk/internal/metrics"
	"hoteldesk/internal/models"

	"github.com/rs/zerolog"
)

const (
	DefaultMovementLimit = 100
	MaxMovementLimit     = 500

	reasonStockIn     = "Stock replenishment"
	reasonStockOut    = "Stock issued"
	reasonRoomService = "Room service order"
	notesRoomService  = "Stock reduced via room service"
)

type InventoryService struct {
	repo     domain.InventoryRepository
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewInventoryService(repo domain.InventoryRepository, eventBus domain.EventPublisher, logger *zerolog.Logger) *InventoryService {
	return &InventoryService{repo: repo, eventBus: eventBus, logger: logger}
}

func validateItem(it *models.InventoryItem) error {
	it.Name = strings.TrimSpace(it.Name)
	it.ItemCode = strings.TrimSpace(it.ItemCode)
	it.Category = strings.TrimSpace(it.Category)

	switch {
	case it.Name == "":
		return invalid("name", "is required")
	case it.CurrentStock < 0:
		return invalid("current_stock", "must not be negative")
	case it.MinStockLevel < 0:
		return invalid("min_stock_level", "must not be negative")
	case it.UnitPrice < 0:
		return invalid("unit_price", "must not be negative")
	}
	return nil
}

// CreateItem stores a new item; any opening stock lands in the movement ledger.
func (s *InventoryService) CreateItem(ctx context.Context, it *models.InventoryItem) error {
	if err := validateItem(it); err != nil {
		return err
	}
	if err := s.repo.CreateItem(ctx, it); err != nil {
		return err
	}

	s.logger.Info().
		Int64("item_id", it.ID).
		Str("name", it.Name).
		Int("stock", it.CurrentStock).
		Msg("Inventory item created")
	return nil
}

// ItemPatch carries the descriptive fields of an item; nil fields are left as is.
type ItemPatch struct {
	ItemCode      *string
	Name          *string
	Category      *string
	Description   *string
	Unit          *string
	MinStockLevel *int
	UnitPrice     *float64
	SupplierName  *string
}

func (s *InventoryService) UpdateItem(ctx context.Context, id int64, p ItemPatch) (*models.InventoryItem, error) {
	it, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}

	if p.ItemCode != nil {
		it.ItemCode = *p.ItemCode
	}
	if p.Name != nil {
		it.Name = *p.Name
	}
	if p.Category != nil {
		it.Category = *p.Category
	}
	if p.Description != nil {
		it.Description = *p.Description
	}
	if p.Unit != nil {
		it.Unit = *p.Unit
	}
	if p.MinStockLevel != nil {
		it.MinStockLevel = *p.MinStockLevel
	}
	if p.UnitPrice != nil {
		it.UnitPrice = *p.UnitPrice
	}
	if p.SupplierName != nil {
		it.SupplierName = *p.SupplierName
	}
	if err := validateItem(it); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateItem(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

func (s *InventoryService) DeleteItem(ctx context.Context, id int64) error {
	if err := s.repo.DeleteItem(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("item_id", id).Msg("Inventory item deleted")
	return nil
}

func (s *InventoryService) GetItem(ctx context.Context, id int64) (*models.InventoryItem, error) {
	return s.repo.GetItem(ctx, id)
}

func (s *InventoryService) ListItems(ctx context.Context, filter models.InventoryFilter) ([]*models.InventoryItem, error) {
	return s.repo.ListItems(ctx, filter)
}

func (s *InventoryService) LowStock(ctx context.Context) ([]*models.InventoryItem, error) {
	return s.repo.ListLowStockItems(ctx)
}

// Movements returns the newest ledger entries, for one item when itemID is set.
func (s *InventoryService) Movements(ctx context.Context, itemID int64, limit int) ([]*models.StockMovement, error) {
	if limit <= 0 {
		limit = DefaultMovementLimit
	}
	if limit > MaxMovementLimit {
		limit = MaxMovementLimit
	}
	return s.repo.ListStockMovements(ctx, itemID, limit)
}

func (s *InventoryService) StockIn(ctx context.Context, m *models.StockMovement) (*models.InventoryItem, error) {
	m.Type = models.MovementStockIn
	return s.move(ctx, m)
}

func (s *InventoryService) StockOut(ctx context.Context, m *models.StockMovement) (*models.InventoryItem, error) {
	m.Type = models.MovementStockOut
	return s.move(ctx, m)
}

// ConsumeForRoomService issues stock for a room service order, optionally charged to a booking.
func (s *InventoryService) ConsumeForRoomService(ctx context.Context, itemID int64, quantity int, bookingID int64) (*models.InventoryItem, error) {
	return s.StockOut(ctx, &models.StockMovement{
		ItemID:    itemID,
		Quantity:  quantity,
		Reason:    reasonRoomService,
		Notes:     notesRoomService,
		BookingID: bookingID,
	})
}

func (s *InventoryService) move(ctx context.Context, m *models.StockMovement) (*models.InventoryItem, error) {
	if m.Quantity <= 0 {
		return nil, invalid("quantity", "must be positive")
	}
	m.Reason = strings.TrimSpace(m.Reason)
	if m.Reason == "" {
		m.Reason = reasonStockIn
		if m.Type == models.MovementStockOut {
			m.Reason = reasonStockOut
		}
	}

	it, err := s.repo.MoveStock(ctx, m)
	if err != nil {
		return nil, err
	}

	metrics.IncStockMovement(m.Type)
	s.logger.Info().
		Int64("item_id", it.ID).
		Str("type", m.Type).
		Int("quantity", m.Quantity).
		Int("stock", it.CurrentStock).
		Msg("Stock moved")

	payload := events.StockEventPayload{
		ItemID:        it.ID,
		ItemName:      it.Name,
		ItemCode:      it.ItemCode,
		Type:          m.Type,
		Quantity:      m.Quantity,
		CurrentStock:  it.CurrentStock,
		MinStockLevel: it.MinStockLevel,
		BookingID:     m.BookingID,
		IssuedTo:      m.IssuedTo,
		Reason:        m.Reason,
	}
	s.publish(events.EventStockMoved, payload)

	// announce only the movement that crosses the reorder level
	before := it.CurrentStock - m.Delta()
	if it.LowStock() && before > it.MinStockLevel {
		s.logger.Warn().Int64("item_id", it.ID).Str("name", it.Name).Int("stock", it.CurrentStock).Msg("Stock below reorder level")
		s.publish(events.EventStockLow, payload)
	}
	return it, nil
}

func (s *InventoryService) publish(eventType string, p events.StockEventPayload) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(eventType, p); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("item_id", p.ItemID).Msg("publish event error")
	}
}
