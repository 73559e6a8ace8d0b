package models

import (
	"strings"
	"time"
)

const (
	OrderPending   = "pending"
	OrderPreparing = "preparing"
	OrderReady     = "ready"
	OrderServed    = "served"
	OrderCompleted = "completed"
	OrderCancelled = "cancelled"
)

type RestaurantOrder struct {
	ID           int64       `json:"id"`
	TableNo      string      `json:"table_no,omitempty"`
	CustomerName string      `json:"customer_name,omitempty"`
	Items        []OrderItem `json:"items"`
	Amount       float64     `json:"amount"`
	Status       string      `json:"status"`
	Notes        string      `json:"notes,omitempty"`
	BookingID    int64       `json:"booking_id,omitempty"`
	GRCNo        string      `json:"grc_no,omitempty"`
	RoomNumber   string      `json:"room_number,omitempty"`
	GuestName    string      `json:"guest_name,omitempty"`
	GuestPhone   string      `json:"guest_phone,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

type OrderItem struct {
	ItemName string  `json:"item_name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	Note     string  `json:"note,omitempty"`
}

type OrderFilter struct {
	BookingID int64
	Status    string
}

// RecalculateAmount sums quantity times price into Amount.
func (o *RestaurantOrder) RecalculateAmount() float64 {
	var total float64
	for _, it := range o.Items {
		total += float64(it.Quantity) * it.Price
	}
	o.Amount = total
	return total
}

// Linked reports whether the order is charged to a booking.
func (o *RestaurantOrder) Linked() bool {
	return o.BookingID != 0
}

// LinkTo copies the guest details of b onto the order.
func (o *RestaurantOrder) LinkTo(b *Booking) {
	o.BookingID = b.ID
	o.GRCNo = b.GRCNo
	o.RoomNumber = b.RoomNumber
	o.GuestName = b.GuestName
	o.GuestPhone = b.MobileNo
}

// HasRoom reports whether room is one of the comma separated numbers in rooms.
func HasRoom(rooms, room string) bool {
	room = strings.TrimSpace(room)
	if room == "" {
		return false
	}
	for _, r := range strings.Split(rooms, ",") {
		if strings.TrimSpace(r) == room {
			return true
		}
	}
	return false
}

func ValidOrderStatus(s string) bool {
	switch s {
	case OrderPending, OrderPreparing, OrderReady, OrderServed, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

// OrderClosed reports whether an order in status s can no longer change.
func OrderClosed(s string) bool {
	return s == OrderCompleted || s == OrderCancelled
}
