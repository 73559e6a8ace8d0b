package service

import (
	"context"
	"time"

	"hoteldesk/internal/models"

	"github.com/stretchr/testify/mock"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) BookingNoExists(ctx context.Context, no string) (bool, error) {
	args := m.Called(ctx, no)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepo) ListInvoiceNumbers(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockRepo) InsertBooking(ctx context.Context, b *models.Booking) error {
	return m.Called(ctx, b).Error(0)
}

func (m *mockRepo) UpdateBooking(ctx context.Context, b *models.Booking) error {
	return m.Called(ctx, b).Error(0)
}

func (m *mockRepo) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockRepo) GetBookingByNo(ctx context.Context, no string) (*models.Booking, error) {
	args := m.Called(ctx, no)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockRepo) ListBookings(ctx context.Context, f models.BookingFilter) ([]*models.Booking, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}

func (m *mockRepo) SoftDeleteBooking(ctx context.Context, id int64, by string) error {
	return m.Called(ctx, id, by).Error(0)
}

type mockInspections struct {
	mock.Mock
}

func (m *mockInspections) CreateInspection(ctx context.Context, in *models.RoomInspection) error {
	return m.Called(ctx, in).Error(0)
}

func (m *mockInspections) GetInspection(ctx context.Context, id int64) (*models.RoomInspection, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RoomInspection), args.Error(1)
}

func (m *mockInspections) ListInspectionsByBooking(ctx context.Context, id int64) ([]*models.RoomInspection, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RoomInspection), args.Error(1)
}

type mockEventBus struct {
	mock.Mock
}

func (m *mockEventBus) PublishJSON(et string, p interface{}) error { return m.Called(et, p).Error(0) }

type mockWorker struct {
	mock.Mock
}

func (m *mockWorker) EnqueueTask(ctx context.Context, tt string, b *models.Booking) error {
	return m.Called(ctx, tt, b).Error(0)
}

type mockInventory struct {
	mock.Mock
}

func (m *mockInventory) CreateItem(ctx context.Context, it *models.InventoryItem) error {
	return m.Called(ctx, it).Error(0)
}

func (m *mockInventory) UpdateItem(ctx context.Context, it *models.InventoryItem) error {
	return m.Called(ctx, it).Error(0)
}

func (m *mockInventory) DeleteItem(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockInventory) GetItem(ctx context.Context, id int64) (*models.InventoryItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InventoryItem), args.Error(1)
}

func (m *mockInventory) ListItems(ctx context.Context, f models.InventoryFilter) ([]*models.InventoryItem, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.InventoryItem), args.Error(1)
}

func (m *mockInventory) ListLowStockItems(ctx context.Context) ([]*models.InventoryItem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.InventoryItem), args.Error(1)
}

func (m *mockInventory) MoveStock(ctx context.Context, mv *models.StockMovement) (*models.InventoryItem, error) {
	args := m.Called(ctx, mv)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InventoryItem), args.Error(1)
}

func (m *mockInventory) ListStockMovements(ctx context.Context, itemID int64, limit int) ([]*models.StockMovement, error) {
	args := m.Called(ctx, itemID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.StockMovement), args.Error(1)
}

type mockOrders struct {
	mock.Mock
}

func (m *mockOrders) CreateOrder(ctx context.Context, o *models.RestaurantOrder) error {
	return m.Called(ctx, o).Error(0)
}

func (m *mockOrders) UpdateOrder(ctx context.Context, o *models.RestaurantOrder) error {
	return m.Called(ctx, o).Error(0)
}

func (m *mockOrders) UpdateOrderStatus(ctx context.Context, id int64, status string) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *mockOrders) LinkOrder(ctx context.Context, id int64, b *models.Booking) error {
	return m.Called(ctx, id, b).Error(0)
}

func (m *mockOrders) GetOrder(ctx context.Context, id int64) (*models.RestaurantOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RestaurantOrder), args.Error(1)
}

func (m *mockOrders) ListOrders(ctx context.Context, f models.OrderFilter) ([]*models.RestaurantOrder, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RestaurantOrder), args.Error(1)
}

func (m *mockOrders) ListUnlinkedOrders(ctx context.Context) ([]*models.RestaurantOrder, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RestaurantOrder), args.Error(1)
}

type mockRooms struct {
	mock.Mock
}

func (m *mockRooms) FindActiveBookingByRoom(ctx context.Context, room string) (*models.Booking, error) {
	args := m.Called(ctx, room)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

type mockCategories struct {
	mock.Mock
}

func (m *mockCategories) CreateCategory(ctx context.Context, c *models.RoomCategory) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockCategories) UpdateCategory(ctx context.Context, c *models.RoomCategory) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockCategories) DeleteCategory(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockCategories) GetCategory(ctx context.Context, id int64) (*models.RoomCategory, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RoomCategory), args.Error(1)
}

func (m *mockCategories) ListCategories(ctx context.Context) ([]*models.RoomCategory, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RoomCategory), args.Error(1)
}

var testLoc = time.FixedZone("IST", 5*3600+1800)
