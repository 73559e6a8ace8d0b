package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"hoteldesk/internal/models"
)

const bookingColumns = `id, booking_no, grc_no, invoice_number, category_id, guest_name, mobile_no, email,
	room_number, number_of_rooms, check_in_date, check_out_date, time_in, time_out,
	actual_check_in_time, actual_check_out_time, rate, status, payment_status,
	fine_amount, fine_minutes_late, fine_per_hour, fine_grace_minutes, fine_applied, fine_applied_at,
	fine_waived, fine_waived_by, fine_waived_reason,
	deleted, deleted_at, deleted_by, created_at, updated_at, version`

type rowScanner interface {
	Scan(dest ...any) error
}

func (db *DB) scanBooking(row rowScanner) (*models.Booking, error) {
	var (
		b                        models.Booking
		invoice                  sql.NullString
		checkIn, checkOut        string
		actualIn, actualOut      sql.NullTime
		fineAppliedAt, deletedAt sql.NullTime
	)

	err := row.Scan(
		&b.ID, &b.BookingNo, &b.GRCNo, &invoice, &b.CategoryID, &b.GuestName, &b.MobileNo, &b.Email,
		&b.RoomNumber, &b.NumberOfRooms, &checkIn, &checkOut, &b.TimeIn, &b.TimeOut,
		&actualIn, &actualOut, &b.Rate, &b.Status, &b.PaymentStatus,
		&b.LateCheckoutFine.Amount, &b.LateCheckoutFine.MinutesLate, &b.LateCheckoutFine.FinePerHour,
		&b.LateCheckoutFine.GracePeriodMinutes, &b.LateCheckoutFine.Applied, &fineAppliedAt,
		&b.LateCheckoutFine.Waived, &b.LateCheckoutFine.WaivedBy, &b.LateCheckoutFine.WaivedReason,
		&b.Deleted, &deletedAt, &b.DeletedBy, &b.CreatedAt, &b.UpdatedAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}

	b.InvoiceNumber = invoice.String
	if b.CheckInDate, err = time.ParseInLocation(models.DateLayout, checkIn, db.loc); err != nil {
		return nil, fmt.Errorf("invalid check_in_date %q: %w", checkIn, err)
	}
	if b.CheckOutDate, err = time.ParseInLocation(models.DateLayout, checkOut, db.loc); err != nil {
		return nil, fmt.Errorf("invalid check_out_date %q: %w", checkOut, err)
	}
	b.ActualCheckInTime = db.localTime(actualIn)
	b.ActualCheckOutTime = db.localTime(actualOut)
	b.LateCheckoutFine.AppliedAt = db.localTime(fineAppliedAt)
	b.DeletedAt = db.localTime(deletedAt)
	b.CreatedAt = b.CreatedAt.In(db.loc)
	b.UpdatedAt = b.UpdatedAt.In(db.loc)

	return &b, nil
}

func (db *DB) localTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.In(db.loc)
	return &v
}

func nullableInvoice(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// day formats a calendar day as seen in the hotel timezone.
func (db *DB) day(t time.Time) string {
	return t.In(db.loc).Format(models.DateLayout)
}

// BookingNoExists reports whether any booking, deleted or not, holds bookingNo.
func (db *DB) BookingNoExists(ctx context.Context, bookingNo string) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM bookings WHERE booking_no = ?)`, bookingNo).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check booking number: %w", err)
	}
	return exists, nil
}

// ListInvoiceNumbers returns the invoice numbers of non-deleted bookings.
func (db *DB) ListInvoiceNumbers(ctx context.Context) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT invoice_number FROM bookings WHERE deleted = 0 AND invoice_number IS NOT NULL AND invoice_number <> ''`)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoice numbers: %w", err)
	}
	defer rows.Close()

	var numbers []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to scan invoice number: %w", err)
		}
		numbers = append(numbers, n)
	}
	return numbers, rows.Err()
}

// InsertBooking stores a finalized booking. UNIQUE violations surface as *DuplicateError.
func (db *DB) InsertBooking(ctx context.Context, b *models.Booking) error {
	query := `INSERT INTO bookings (
				booking_no, grc_no, invoice_number, category_id, guest_name, mobile_no, email,
				room_number, number_of_rooms, check_in_date, check_out_date, time_in, time_out,
				actual_check_in_time, actual_check_out_time, rate, status, payment_status,
				fine_amount, fine_minutes_late, fine_per_hour, fine_grace_minutes, fine_applied, fine_applied_at,
				fine_waived, fine_waived_by, fine_waived_reason,
				created_at, updated_at, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`

	now := time.Now()
	f := b.LateCheckoutFine
	result, err := db.ExecContext(ctx, query,
		b.BookingNo, b.GRCNo, nullableInvoice(b.InvoiceNumber), b.CategoryID, b.GuestName, b.MobileNo, b.Email,
		b.RoomNumber, b.NumberOfRooms, db.day(b.CheckInDate), db.day(b.CheckOutDate), b.TimeIn, b.TimeOut,
		b.ActualCheckInTime, b.ActualCheckOutTime, b.Rate, b.Status, b.PaymentStatus,
		f.Amount, f.MinutesLate, f.FinePerHour, f.GracePeriodMinutes, f.Applied, f.AppliedAt,
		f.Waived, f.WaivedBy, f.WaivedReason,
		now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", asDuplicate(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	b.ID = id
	b.CreatedAt = now
	b.UpdatedAt = now
	b.Version = 1
	return nil
}

// UpdateBooking writes every mutable column when the stored version still equals b.Version.
func (db *DB) UpdateBooking(ctx context.Context, b *models.Booking) error {
	query := `UPDATE bookings SET
				grc_no = ?, invoice_number = ?, category_id = ?, guest_name = ?, mobile_no = ?, email = ?,
				room_number = ?, number_of_rooms = ?, check_in_date = ?, check_out_date = ?, time_in = ?, time_out = ?,
				actual_check_in_time = ?, actual_check_out_time = ?, rate = ?, status = ?, payment_status = ?,
				fine_amount = ?, fine_minutes_late = ?, fine_per_hour = ?, fine_grace_minutes = ?,
				fine_applied = ?, fine_applied_at = ?, fine_waived = ?, fine_waived_by = ?, fine_waived_reason = ?,
				updated_at = ?, version = version + 1
			WHERE id = ? AND version = ? AND deleted = 0`

	now := time.Now()
	f := b.LateCheckoutFine
	result, err := db.ExecContext(ctx, query,
		b.GRCNo, nullableInvoice(b.InvoiceNumber), b.CategoryID, b.GuestName, b.MobileNo, b.Email,
		b.RoomNumber, b.NumberOfRooms, db.day(b.CheckInDate), db.day(b.CheckOutDate), b.TimeIn, b.TimeOut,
		b.ActualCheckInTime, b.ActualCheckOutTime, b.Rate, b.Status, b.PaymentStatus,
		f.Amount, f.MinutesLate, f.FinePerHour, f.GracePeriodMinutes,
		f.Applied, f.AppliedAt, f.Waived, f.WaivedBy, f.WaivedReason,
		now, b.ID, b.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", asDuplicate(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return db.missingOrStale(ctx, b.ID)
	}

	b.UpdatedAt = now
	b.Version++
	return nil
}

func (db *DB) missingOrStale(ctx context.Context, id int64) error {
	var deleted bool
	err := db.QueryRowContext(ctx, `SELECT deleted FROM bookings WHERE id = ?`, id).Scan(&deleted)
	if errors.Is(err, sql.ErrNoRows) || deleted {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check booking: %w", err)
	}
	return ErrConcurrentModification
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	row := db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ? AND deleted = 0`, id)
	b, err := db.scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

func (db *DB) GetBookingByNo(ctx context.Context, bookingNo string) (*models.Booking, error) {
	row := db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE booking_no = ? AND deleted = 0`, bookingNo)
	b, err := db.scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking by number: %w", err)
	}
	return b, nil
}

// ListBookings returns bookings whose check-in day falls within [From, To], newest first.
func (db *DB) ListBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error) {
	var (
		where []string
		args  []any
	)
	if !filter.IncludeDeleted {
		where = append(where, "deleted = 0")
	}
	if !filter.From.IsZero() {
		where = append(where, "check_in_date >= ?")
		args = append(args, db.day(filter.From))
	}
	if !filter.To.IsZero() {
		where = append(where, "check_in_date <= ?")
		args = append(args, db.day(filter.To))
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY check_in_date DESC, id DESC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := db.scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// SoftDeleteBooking marks the booking deleted; its invoice number becomes reusable.
func (db *DB) SoftDeleteBooking(ctx context.Context, id int64, deletedBy string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE bookings SET deleted = 1, deleted_at = ?, deleted_by = ?, updated_at = ?, version = version + 1
		 WHERE id = ? AND deleted = 0`,
		time.Now(), deletedBy, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// FindActiveBookingByRoom returns the live booking occupying room, preferring a checked in
// stay over a reservation and then the latest check-in. Room numbers are stored comma
// separated for multi-room bookings.
func (db *DB) FindActiveBookingByRoom(ctx context.Context, room string) (*models.Booking, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE deleted = 0 AND status IN (?, ?) AND room_number LIKE ?
		 ORDER BY CASE status WHEN ? THEN 0 ELSE 1 END, check_in_date DESC, id DESC`,
		models.StatusCheckedIn, models.StatusBooked, "%"+strings.TrimSpace(room)+"%", models.StatusCheckedIn)
	if err != nil {
		return nil, fmt.Errorf("failed to find booking by room: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		b, err := db.scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		// LIKE also matches 101 inside 1011
		if models.HasRoom(b.RoomNumber, room) {
			return b, nil
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to find booking by room: %w", err)
	}
	return nil, ErrNotFound
}
