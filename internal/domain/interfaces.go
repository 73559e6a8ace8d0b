package domain

import (
	"context"
	"time"

	"hoteldesk/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type BookingRepository interface {
	BookingNoExists(ctx context.Context, bookingNo string) (bool, error)
	ListInvoiceNumbers(ctx context.Context) ([]string, error)
	InsertBooking(ctx context.Context, b *models.Booking) error
	UpdateBooking(ctx context.Context, b *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	GetBookingByNo(ctx context.Context, bookingNo string) (*models.Booking, error)
	ListBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error)
	SoftDeleteBooking(ctx context.Context, id int64, deletedBy string) error
}

type InspectionRepository interface {
	CreateInspection(ctx context.Context, in *models.RoomInspection) error
	GetInspection(ctx context.Context, id int64) (*models.RoomInspection, error)
	ListInspectionsByBooking(ctx context.Context, bookingID int64) ([]*models.RoomInspection, error)
}

type InventoryRepository interface {
	CreateItem(ctx context.Context, it *models.InventoryItem) error
	UpdateItem(ctx context.Context, it *models.InventoryItem) error
	DeleteItem(ctx context.Context, id int64) error
	GetItem(ctx context.Context, id int64) (*models.InventoryItem, error)
	ListItems(ctx context.Context, filter models.InventoryFilter) ([]*models.InventoryItem, error)
	ListLowStockItems(ctx context.Context) ([]*models.InventoryItem, error)
	MoveStock(ctx context.Context, m *models.StockMovement) (*models.InventoryItem, error)
	ListStockMovements(ctx context.Context, itemID int64, limit int) ([]*models.StockMovement, error)
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, o *models.RestaurantOrder) error
	UpdateOrder(ctx context.Context, o *models.RestaurantOrder) error
	UpdateOrderStatus(ctx context.Context, id int64, status string) error
	LinkOrder(ctx context.Context, orderID int64, b *models.Booking) error
	GetOrder(ctx context.Context, id int64) (*models.RestaurantOrder, error)
	ListOrders(ctx context.Context, filter models.OrderFilter) ([]*models.RestaurantOrder, error)
	ListUnlinkedOrders(ctx context.Context) ([]*models.RestaurantOrder, error)
}

// RoomBookingFinder resolves a room number to the booking currently holding it.
type RoomBookingFinder interface {
	FindActiveBookingByRoom(ctx context.Context, room string) (*models.Booking, error)
}

type CategoryRepository interface {
	CreateCategory(ctx context.Context, c *models.RoomCategory) error
	UpdateCategory(ctx context.Context, c *models.RoomCategory) error
	DeleteCategory(ctx context.Context, id int64) error
	GetCategory(ctx context.Context, id int64) (*models.RoomCategory, error)
	ListCategories(ctx context.Context) ([]*models.RoomCategory, error)
}

type SyncQueueRepository interface {
	CreateSyncTask(ctx context.Context, task *models.SyncTask) error
	GetPendingSyncTasks(ctx context.Context, limit int) ([]models.SyncTask, error)
	UpdateSyncTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error
	RequeueFailedSyncTasks(ctx context.Context) (int64, error)
}

// RateLimitStore counts requests per key in fixed windows.
type RateLimitStore interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, retryAfter time.Duration, err error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type SyncWorker interface {
	EnqueueTask(ctx context.Context, taskType string, booking *models.Booking) error
}
