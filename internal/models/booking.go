package models

import "time"

type Booking struct {
	ID                 int64            `json:"id"`
	BookingNo          string           `json:"booking_no"`
	GRCNo              string           `json:"grc_no"`
	InvoiceNumber      string           `json:"invoice_number"`
	CategoryID         int64            `json:"category_id,omitempty"`
	GuestName          string           `json:"guest_name"`
	MobileNo           string           `json:"mobile_no"`
	Email              string           `json:"email,omitempty"`
	RoomNumber         string           `json:"room_number,omitempty"`
	NumberOfRooms      int              `json:"number_of_rooms"`
	CheckInDate        time.Time        `json:"check_in_date"`
	CheckOutDate       time.Time        `json:"check_out_date"`
	TimeIn             string           `json:"time_in,omitempty"`
	TimeOut            string           `json:"time_out"`
	ActualCheckInTime  *time.Time       `json:"actual_check_in_time,omitempty"`
	ActualCheckOutTime *time.Time       `json:"actual_check_out_time,omitempty"`
	Rate               float64          `json:"rate"`
	Status             string           `json:"status"`
	PaymentStatus      string           `json:"payment_status"`
	LateCheckoutFine   LateCheckoutFine `json:"late_checkout_fine"`
	Deleted            bool             `json:"deleted"`
	DeletedAt          *time.Time       `json:"deleted_at,omitempty"`
	DeletedBy          string           `json:"deleted_by,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
	Version            int64            `json:"version"`
}

// LateCheckoutFine is applied at most once per booking; only a waive may change it afterwards.
type LateCheckoutFine struct {
	Amount             float64    `json:"amount"`
	MinutesLate        int        `json:"minutes_late"`
	FinePerHour        float64    `json:"fine_per_hour"`
	GracePeriodMinutes int        `json:"grace_period_minutes"`
	Applied            bool       `json:"applied"`
	AppliedAt          *time.Time `json:"applied_at,omitempty"`
	Waived             bool       `json:"waived"`
	WaivedBy           string     `json:"waived_by,omitempty"`
	WaivedReason       string     `json:"waived_reason,omitempty"`
}

// Nights returns the number of nights between check-in and check-out, at least 1.
func (b *Booking) Nights() int {
	nights := int(b.CheckOutDate.Sub(b.CheckInDate).Hours() / 24)
	if nights < 1 {
		return 1
	}
	return nights
}

type BookingFilter struct {
	From           time.Time
	To             time.Time
	Status         string
	IncludeDeleted bool
}
