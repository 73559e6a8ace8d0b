package models

import "time"

type RoomInspection struct {
	ID          int64            `json:"id"`
	RoomID      string           `json:"room_id"`
	BookingID   int64            `json:"booking_id"`
	InspectedBy string           `json:"inspected_by"`
	Items       []InspectionItem `json:"items"`
	TotalCharge float64          `json:"total_charge"`
	Remarks     string           `json:"remarks,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

type InspectionItem struct {
	ItemName string  `json:"item_name"`
	Status   string  `json:"status"`
	Charge   float64 `json:"charge"`
}

// RecalculateTotal sums item charges into TotalCharge.
func (r *RoomInspection) RecalculateTotal() float64 {
	var total float64
	for _, it := range r.Items {
		total += it.Charge
	}
	r.TotalCharge = total
	return total
}
