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

const itemColumns = `id, item_code, name, category, description, unit, current_stock, min_stock_level,
	unit_price, supplier_name, created_at, updated_at`

const openingStockReason = "Opening stock"

func scanItem(row rowScanner) (*models.InventoryItem, error) {
	var (
		it   models.InventoryItem
		code sql.NullString
	)
	err := row.Scan(&it.ID, &code, &it.Name, &it.Category, &it.Description, &it.Unit, &it.CurrentStock,
		&it.MinStockLevel, &it.UnitPrice, &it.SupplierName, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	it.ItemCode = code.String
	return &it, nil
}

// nullableCode stores an empty item code as NULL so several items may go without one.
func nullableCode(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// CreateItem stores a new inventory item. Opening stock is written to the movement ledger
// in the same transaction so the ledger always adds up to current_stock.
func (db *DB) CreateItem(ctx context.Context, it *models.InventoryItem) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	result, err := tx.ExecContext(ctx,
		`INSERT INTO inventory_items (item_code, name, category, description, unit, current_stock, min_stock_level,
			unit_price, supplier_name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullableCode(it.ItemCode), it.Name, it.Category, it.Description, it.Unit, it.CurrentStock, it.MinStockLevel,
		it.UnitPrice, it.SupplierName, now, now)
	if err != nil {
		return fmt.Errorf("failed to create inventory item: %w", asDuplicate(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	if it.CurrentStock > 0 {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO stock_movements (item_id, type, quantity, reason, created_at) VALUES (?, ?, ?, ?, ?)`,
			id, models.MovementStockIn, it.CurrentStock, openingStockReason, now)
		if err != nil {
			return fmt.Errorf("failed to record opening stock: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit inventory item: %w", err)
	}

	it.ID = id
	it.CreatedAt = now
	it.UpdatedAt = now
	return nil
}

// UpdateItem writes the descriptive columns of it. Stock only changes through MoveStock.
func (db *DB) UpdateItem(ctx context.Context, it *models.InventoryItem) error {
	now := time.Now()
	result, err := db.ExecContext(ctx,
		`UPDATE inventory_items SET item_code = ?, name = ?, category = ?, description = ?, unit = ?,
			min_stock_level = ?, unit_price = ?, supplier_name = ?, updated_at = ?
		 WHERE id = ?`,
		nullableCode(it.ItemCode), it.Name, it.Category, it.Description, it.Unit,
		it.MinStockLevel, it.UnitPrice, it.SupplierName, now, it.ID)
	if err != nil {
		return fmt.Errorf("failed to update inventory item: %w", asDuplicate(err))
	}
	if err := expectRow(result); err != nil {
		return err
	}
	it.UpdatedAt = now
	return nil
}

// DeleteItem removes the item together with its movement ledger.
func (db *DB) DeleteItem(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM inventory_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete inventory item: %w", err)
	}
	return expectRow(result)
}

func (db *DB) GetItem(ctx context.Context, id int64) (*models.InventoryItem, error) {
	it, err := scanItem(db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory item: %w", err)
	}
	return it, nil
}

// ListItems returns items matching the filter ordered by name. Query matches name, code,
// description and supplier, case-insensitively.
func (db *DB) ListItems(ctx context.Context, filter models.InventoryFilter) ([]*models.InventoryItem, error) {
	var (
		where []string
		args  []any
	)
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, filter.Category)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		like := "%" + q + "%"
		where = append(where, "(name LIKE ? OR item_code LIKE ? OR description LIKE ? OR supplier_name LIKE ?)")
		args = append(args, like, like, like, like)
	}

	query := `SELECT ` + itemColumns + ` FROM inventory_items`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY name ASC, id ASC"
	return db.queryItems(ctx, query, args...)
}

// ListLowStockItems returns items at or below their reorder level, emptiest first.
func (db *DB) ListLowStockItems(ctx context.Context) ([]*models.InventoryItem, error) {
	return db.queryItems(ctx,
		`SELECT `+itemColumns+` FROM inventory_items WHERE current_stock <= min_stock_level
		 ORDER BY current_stock ASC, name ASC`)
}

func (db *DB) queryItems(ctx context.Context, query string, args ...any) ([]*models.InventoryItem, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory items: %w", err)
	}
	defer rows.Close()

	var items []*models.InventoryItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inventory item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// MoveStock applies m to its item and appends it to the ledger atomically.
// A stock-out larger than the current stock fails with ErrInsufficientStock.
func (db *DB) MoveStock(ctx context.Context, m *models.StockMovement) (*models.InventoryItem, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	delta := m.Delta()
	result, err := tx.ExecContext(ctx,
		`UPDATE inventory_items SET current_stock = current_stock + ?, updated_at = ?
		 WHERE id = ? AND current_stock + ? >= 0`,
		delta, now, m.ItemID, delta)
	if err != nil {
		return nil, fmt.Errorf("failed to move stock: %w", err)
	}
	if rows, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	} else if rows == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM inventory_items WHERE id = ?)`, m.ItemID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("failed to check inventory item: %w", err)
		}
		if !exists {
			return nil, ErrNotFound
		}
		return nil, ErrInsufficientStock
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO stock_movements (item_id, type, quantity, issued_to, reason, notes, booking_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ItemID, m.Type, m.Quantity, m.IssuedTo, m.Reason, m.Notes, m.BookingID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to record stock movement: %w", err)
	}
	if m.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	it, err := scanItem(tx.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE id = ?`, m.ItemID))
	if err != nil {
		return nil, fmt.Errorf("failed to reload inventory item: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit stock movement: %w", err)
	}

	m.CreatedAt = now
	m.ItemName = it.Name
	m.ItemCode = it.ItemCode
	return it, nil
}

// ListStockMovements returns the newest movements first, for one item when itemID is set.
func (db *DB) ListStockMovements(ctx context.Context, itemID int64, limit int) ([]*models.StockMovement, error) {
	query := `SELECT m.id, m.item_id, i.name, COALESCE(i.item_code, ''), m.type, m.quantity, m.issued_to,
			m.reason, m.notes, m.booking_id, m.created_at
		 FROM stock_movements m JOIN inventory_items i ON i.id = m.item_id`
	var args []any
	if itemID != 0 {
		query += ` WHERE m.item_id = ?`
		args = append(args, itemID)
	}
	query += ` ORDER BY m.created_at DESC, m.id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock movements: %w", err)
	}
	defer rows.Close()

	var list []*models.StockMovement
	for rows.Next() {
		var m models.StockMovement
		if err := rows.Scan(&m.ID, &m.ItemID, &m.ItemName, &m.ItemCode, &m.Type, &m.Quantity, &m.IssuedTo,
			&m.Reason, &m.Notes, &m.BookingID, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stock movement: %w", err)
		}
		list = append(list, &m)
	}
	return list, rows.Err()
}

// expectRow turns a write that touched nothing into ErrNotFound.
func expectRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
