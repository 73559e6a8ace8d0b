package models

import "time"

const (
	CategoryActive   = "active"
	CategoryInactive = "inactive"
)

// RoomCategory groups rooms sold at the same tariff, e.g. Deluxe or Suite.
type RoomCategory struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func ValidCategoryStatus(s string) bool {
	return s == CategoryActive || s == CategoryInactive
}
