package billing

import (
	"errors"
	"fmt"
)

var (
	// ErrCollision means a unique identifier could not be allocated within the retry bound.
	ErrCollision = errors.New("identifier collision")

	// ErrInvalidFineInput means the fine inputs could not be interpreted.
	ErrInvalidFineInput = errors.New("invalid fine input")
)

const (
	FieldBookingNo     = "booking_no"
	FieldInvoiceNumber = "invoice_number"
)

type CollisionError struct {
	Field    string
	Attempts int
	Err      error
}

func (e *CollisionError) Error() string {
	msg := fmt.Sprintf("could not allocate unique %s after %d attempts", e.Field, e.Attempts)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CollisionError) Is(target error) bool {
	return target == ErrCollision
}

func (e *CollisionError) Unwrap() error {
	return e.Err
}
