package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"hoteldesk/internal/models"
)

const categoryColumns = `id, name, description, status, created_at, updated_at`

func scanCategory(row rowScanner) (*models.RoomCategory, error) {
	var c models.RoomCategory
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (db *DB) CreateCategory(ctx context.Context, c *models.RoomCategory) error {
	now := time.Now()
	result, err := db.ExecContext(ctx,
		`INSERT INTO room_categories (name, description, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		c.Name, c.Description, c.Status, now, now)
	if err != nil {
		return fmt.Errorf("failed to create category: %w", asDuplicate(err))
	}
	if c.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

func (db *DB) UpdateCategory(ctx context.Context, c *models.RoomCategory) error {
	now := time.Now()
	result, err := db.ExecContext(ctx,
		`UPDATE room_categories SET name = ?, description = ?, status = ?, updated_at = ? WHERE id = ?`,
		c.Name, c.Description, c.Status, now, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", asDuplicate(err))
	}
	if err := expectRow(result); err != nil {
		return err
	}
	c.UpdatedAt = now
	return nil
}

// DeleteCategory removes a category no live booking refers to.
func (db *DB) DeleteCategory(ctx context.Context, id int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var inUse bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM bookings WHERE category_id = ? AND deleted = 0)`, id).Scan(&inUse)
	if err != nil {
		return fmt.Errorf("failed to check category usage: %w", err)
	}
	if inUse {
		return ErrInUse
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM room_categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if err := expectRow(result); err != nil {
		return err
	}
	return tx.Commit()
}

func (db *DB) GetCategory(ctx context.Context, id int64) (*models.RoomCategory, error) {
	c, err := scanCategory(db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM room_categories WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return c, nil
}

func (db *DB) ListCategories(ctx context.Context) ([]*models.RoomCategory, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM room_categories ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var list []*models.RoomCategory
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		list = append(list, c)
	}
	return list, rows.Err()
}
