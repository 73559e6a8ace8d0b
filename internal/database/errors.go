package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound               = errors.New("record not found")
	ErrConcurrentModification = errors.New("record was modified concurrently")
	ErrDuplicate              = errors.New("duplicate value")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrInUse                  = errors.New("record is still referenced")
)

// DuplicateError reports a UNIQUE constraint violation on Field.
type DuplicateError struct {
	Field string
	Err   error
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate %s", e.Field)
}

func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

func (e *DuplicateError) Unwrap() error {
	return e.Err
}

// asDuplicate converts a sqlite UNIQUE violation into *DuplicateError and returns other errors unchanged.
func asDuplicate(err error) error {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) || sqliteErr.ExtendedCode != sqlite3.ErrConstraintUnique {
		return err
	}
	return &DuplicateError{Field: uniqueField(sqliteErr.Error()), Err: err}
}

// uniqueField extracts "booking_no" from "UNIQUE constraint failed: bookings.booking_no".
func uniqueField(msg string) string {
	const marker = "UNIQUE constraint failed:"
	idx := strings.Index(msg, marker)
	if idx < 0 {
		return "unknown"
	}
	cols := strings.TrimSpace(msg[idx+len(marker):])
	if comma := strings.Index(cols, ","); comma >= 0 {
		cols = cols[:comma]
	}
	if dot := strings.LastIndex(cols, "."); dot >= 0 {
		cols = cols[dot+1:]
	}
	return strings.TrimSpace(cols)
}
