package models

const (
	StatusBooked     = "Booked"
	StatusCheckedIn  = "Checked In"
	StatusCheckedOut = "Checked Out"
	StatusCancelled  = "Cancelled"
)

const (
	PaymentPending = "Pending"
	PaymentPaid    = "Paid"
	PaymentFailed  = "Failed"
	PaymentPartial = "Partial"
)

const (
	InspectionOK      = "ok"
	InspectionMissing = "missing"
	InspectionDamaged = "damaged"
	InspectionUsed    = "used"
)

const (
	// DefaultTimeOut contractual checkout time
	DefaultTimeOut = "12:00"

	// DefaultFinePerHour late checkout fine per started hour after grace
	DefaultFinePerHour = 500

	// DefaultGracePeriodMinutes minutes after TimeOut without a fine
	DefaultGracePeriodMinutes = 15

	// MaxLateMinutes gaps above this are treated as data errors and never fined
	MaxLateMinutes = 24 * 60

	// DefaultInvoicePrefix first part of PREFIX/MM/NNN
	DefaultInvoicePrefix = "MPZ"

	// DateLayout calendar-day format used by the API and storage
	DateLayout = "2006-01-02"

	// TimestampLayout used in exports and sheets
	TimestampLayout = "2006-01-02 15:04:05"
)

// ValidStatus reports whether s is a known booking status.
func ValidStatus(s string) bool {
	switch s {
	case StatusBooked, StatusCheckedIn, StatusCheckedOut, StatusCancelled:
		return true
	}
	return false
}

// ValidPaymentStatus reports whether s is a known payment status.
func ValidPaymentStatus(s string) bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentPartial:
		return true
	}
	return false
}

func ValidInspectionStatus(s string) bool {
	switch s {
	case InspectionOK, InspectionMissing, InspectionDamaged, InspectionUsed:
		return true
	}
	return false
}
