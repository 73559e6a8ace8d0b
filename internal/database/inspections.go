package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"hoteldesk/internal/models"
)

// CreateInspection stores the inspection header and its items in one transaction.
func (db *DB) CreateInspection(ctx context.Context, in *models.RoomInspection) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	in.RecalculateTotal()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO room_inspections (room_id, booking_id, inspected_by, total_charge, remarks, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		in.RoomID, in.BookingID, in.InspectedBy, in.TotalCharge, in.Remarks, now, now)
	if err != nil {
		return fmt.Errorf("failed to create inspection: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	for _, item := range in.Items {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO inspection_items (inspection_id, item_name, status, charge) VALUES (?, ?, ?, ?)`,
			id, item.ItemName, item.Status, item.Charge)
		if err != nil {
			return fmt.Errorf("failed to create inspection item %q: %w", item.ItemName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit inspection: %w", err)
	}

	in.ID = id
	in.CreatedAt = now
	in.UpdatedAt = now
	return nil
}

func (db *DB) GetInspection(ctx context.Context, id int64) (*models.RoomInspection, error) {
	var in models.RoomInspection
	err := db.QueryRowContext(ctx,
		`SELECT id, room_id, booking_id, inspected_by, total_charge, remarks, created_at, updated_at
		 FROM room_inspections WHERE id = ?`, id,
	).Scan(&in.ID, &in.RoomID, &in.BookingID, &in.InspectedBy, &in.TotalCharge, &in.Remarks, &in.CreatedAt, &in.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get inspection: %w", err)
	}

	items, err := db.inspectionItems(ctx, id)
	if err != nil {
		return nil, err
	}
	in.Items = items
	return &in, nil
}

func (db *DB) ListInspectionsByBooking(ctx context.Context, bookingID int64) ([]*models.RoomInspection, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, room_id, booking_id, inspected_by, total_charge, remarks, created_at, updated_at
		 FROM room_inspections WHERE booking_id = ? ORDER BY created_at ASC, id ASC`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list inspections: %w", err)
	}

	var list []*models.RoomInspection
	for rows.Next() {
		var in models.RoomInspection
		if err := rows.Scan(&in.ID, &in.RoomID, &in.BookingID, &in.InspectedBy, &in.TotalCharge, &in.Remarks, &in.CreatedAt, &in.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan inspection: %w", err)
		}
		list = append(list, &in)
	}
	// items are loaded after the cursor is released; in-memory databases run on one connection
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list inspections: %w", err)
	}

	for _, in := range list {
		if in.Items, err = db.inspectionItems(ctx, in.ID); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func (db *DB) inspectionItems(ctx context.Context, inspectionID int64) ([]models.InspectionItem, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT item_name, status, charge FROM inspection_items WHERE inspection_id = ? ORDER BY id`, inspectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get inspection items: %w", err)
	}
	defer rows.Close()

	items := []models.InspectionItem{}
	for rows.Next() {
		var it models.InspectionItem
		if err := rows.Scan(&it.ItemName, &it.Status, &it.Charge); err != nil {
			return nil, fmt.Errorf("failed to scan inspection item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
