package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	EventBookingCreated    = "booking_created"
	EventBookingCheckedIn  = "booking_checked_in"
	EventBookingCheckedOut = "booking_checked_out"
	EventBookingCancelled  = "booking_cancelled"
	EventBookingDeleted    = "booking_deleted"
	EventLateFineApplied   = "late_fine_applied"
	EventLateFineWaived    = "late_fine_waived"
	EventInspectionCreated = "inspection_created"

	EventStockMoved         = "stock_moved"
	EventStockLow           = "stock_low"
	EventOrderCreated       = "order_created"
	EventOrderStatusChanged = "order_status_changed"
	EventOrderLinked        = "order_linked"
)

// All lists every event type the bus carries.
var All = []string{
	EventBookingCreated,
	EventBookingCheckedIn,
	EventBookingCheckedOut,
	EventBookingCancelled,
	EventBookingDeleted,
	EventLateFineApplied,
	EventLateFineWaived,
	EventInspectionCreated,
	EventStockMoved,
	EventStockLow,
	EventOrderCreated,
	EventOrderStatusChanged,
	EventOrderLinked,
}

// BookingEventPayload is the booking snapshot handed to event consumers.
type BookingEventPayload struct {
	BookingID     int64      `json:"booking_id"`
	BookingNo     string     `json:"booking_no"`
	InvoiceNumber string     `json:"invoice_number,omitempty"`
	GuestName     string     `json:"guest_name"`
	RoomNumber    string     `json:"room_number,omitempty"`
	Status        string     `json:"status"`
	CheckOutDate  time.Time  `json:"check_out_date"`
	ActualOut     *time.Time `json:"actual_check_out_time,omitempty"`
	FineAmount    float64    `json:"fine_amount,omitempty"`
	MinutesLate   int        `json:"minutes_late,omitempty"`
	ChangedBy     string     `json:"changed_by,omitempty"`
	Reason        string     `json:"reason,omitempty"`
}

// StockEventPayload describes a stock movement and the stock it left behind.
type StockEventPayload struct {
	ItemID        int64  `json:"item_id"`
	ItemName      string `json:"item_name"`
	ItemCode      string `json:"item_code,omitempty"`
	Type          string `json:"type,omitempty"`
	Quantity      int    `json:"quantity,omitempty"`
	CurrentStock  int    `json:"current_stock"`
	MinStockLevel int    `json:"min_stock_level"`
	BookingID     int64  `json:"booking_id,omitempty"`
	IssuedTo      string `json:"issued_to,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

type OrderEventPayload struct {
	OrderID    int64   `json:"order_id"`
	TableNo    string  `json:"table_no,omitempty"`
	Status     string  `json:"status"`
	Amount     float64 `json:"amount"`
	BookingID  int64   `json:"booking_id,omitempty"`
	GRCNo      string  `json:"grc_no,omitempty"`
	RoomNumber string  `json:"room_number,omitempty"`
	GuestName  string  `json:"guest_name,omitempty"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
	logger      *zerolog.Logger
}

// NewEventBus constructs an empty bus. Handler errors are logged to logger when it is set.
func NewEventBus(logger *zerolog.Logger) *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler), logger: logger}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// SubscribeAll registers handler for every type in All.
func (b *EventBus) SubscribeAll(handler EventHandler) {
	for _, t := range All {
		b.Subscribe(t, handler)
	}
}

// Publish notifies subscribers of the event type synchronously.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		if err := handler(event); err != nil && b.logger != nil {
			b.logger.Warn().Err(err).Str("event", event.Type).Msg("Event handler failed")
		}
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}

// Decode unmarshals the event payload into v.
func (e *Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}
