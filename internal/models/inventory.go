package models

import "time"

const (
	MovementStockIn  = "stock-in"
	MovementStockOut = "stock-out"
)

type InventoryItem struct {
	ID            int64     `json:"id"`
	ItemCode      string    `json:"item_code,omitempty"`
	Name          string    `json:"name"`
	Category      string    `json:"category,omitempty"`
	Description   string    `json:"description,omitempty"`
	Unit          string    `json:"unit,omitempty"`
	CurrentStock  int       `json:"current_stock"`
	MinStockLevel int       `json:"min_stock_level"`
	UnitPrice     float64   `json:"unit_price"`
	SupplierName  string    `json:"supplier_name,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// LowStock reports whether the item is at or below its reorder level.
func (i *InventoryItem) LowStock() bool {
	return i.CurrentStock <= i.MinStockLevel
}

// StockMovement is one entry of the stock ledger. Quantity is always positive; Type gives the direction.
type StockMovement struct {
	ID        int64     `json:"id"`
	ItemID    int64     `json:"item_id"`
	ItemName  string    `json:"item_name,omitempty"`
	ItemCode  string    `json:"item_code,omitempty"`
	Type      string    `json:"type"`
	Quantity  int       `json:"quantity"`
	IssuedTo  string    `json:"issued_to,omitempty"`
	Reason    string    `json:"reason"`
	Notes     string    `json:"notes,omitempty"`
	BookingID int64     `json:"booking_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Delta is the signed change the movement makes to current stock.
func (m *StockMovement) Delta() int {
	if m.Type == MovementStockOut {
		return -m.Quantity
	}
	return m.Quantity
}

type InventoryFilter struct {
	Category string
	Query    string
}
