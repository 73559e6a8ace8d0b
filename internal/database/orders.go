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

const orderColumns = `id, table_no, customer_name, amount, status, notes, booking_id, grc_no, room_number,
	guest_name, guest_phone, created_at, updated_at`

func scanOrder(row rowScanner) (*models.RestaurantOrder, error) {
	var o models.RestaurantOrder
	err := row.Scan(&o.ID, &o.TableNo, &o.CustomerName, &o.Amount, &o.Status, &o.Notes, &o.BookingID, &o.GRCNo,
		&o.RoomNumber, &o.GuestName, &o.GuestPhone, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateOrder stores the order header and its lines in one transaction.
func (db *DB) CreateOrder(ctx context.Context, o *models.RestaurantOrder) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	o.RecalculateAmount()
	result, err := tx.ExecContext(ctx,
		`INSERT INTO restaurant_orders (table_no, customer_name, amount, status, notes, booking_id, grc_no,
			room_number, guest_name, guest_phone, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.TableNo, o.CustomerName, o.Amount, o.Status, o.Notes, o.BookingID, o.GRCNo,
		o.RoomNumber, o.GuestName, o.GuestPhone, now, now)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	if err := insertOrderItems(ctx, tx, id, o.Items); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}

	o.ID = id
	o.CreatedAt = now
	o.UpdatedAt = now
	return nil
}

func insertOrderItems(ctx context.Context, tx *sql.Tx, orderID int64, items []models.OrderItem) error {
	for _, it := range items {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, item_name, quantity, price, note) VALUES (?, ?, ?, ?, ?)`,
			orderID, it.ItemName, it.Quantity, it.Price, it.Note)
		if err != nil {
			return fmt.Errorf("failed to create order item %q: %w", it.ItemName, err)
		}
	}
	return nil
}

// UpdateOrder rewrites the order header and replaces its lines.
func (db *DB) UpdateOrder(ctx context.Context, o *models.RestaurantOrder) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	o.RecalculateAmount()
	result, err := tx.ExecContext(ctx,
		`UPDATE restaurant_orders SET table_no = ?, customer_name = ?, amount = ?, status = ?, notes = ?,
			booking_id = ?, grc_no = ?, room_number = ?, guest_name = ?, guest_phone = ?, updated_at = ?
		 WHERE id = ?`,
		o.TableNo, o.CustomerName, o.Amount, o.Status, o.Notes,
		o.BookingID, o.GRCNo, o.RoomNumber, o.GuestName, o.GuestPhone, now, o.ID)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if err := expectRow(result); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = ?`, o.ID); err != nil {
		return fmt.Errorf("failed to clear order items: %w", err)
	}
	if err := insertOrderItems(ctx, tx, o.ID, o.Items); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}

	o.UpdatedAt = now
	return nil
}

func (db *DB) UpdateOrderStatus(ctx context.Context, id int64, status string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE restaurant_orders SET status = ?, updated_at = ? WHERE id = ?`, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	return expectRow(result)
}

// LinkOrder charges the order to booking b.
func (db *DB) LinkOrder(ctx context.Context, orderID int64, b *models.Booking) error {
	result, err := db.ExecContext(ctx,
		`UPDATE restaurant_orders SET booking_id = ?, grc_no = ?, room_number = ?, guest_name = ?, guest_phone = ?,
			updated_at = ?
		 WHERE id = ?`,
		b.ID, b.GRCNo, b.RoomNumber, b.GuestName, b.MobileNo, time.Now(), orderID)
	if err != nil {
		return fmt.Errorf("failed to link order: %w", err)
	}
	return expectRow(result)
}

func (db *DB) GetOrder(ctx context.Context, id int64) (*models.RestaurantOrder, error) {
	o, err := scanOrder(db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM restaurant_orders WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if o.Items, err = db.orderItems(ctx, id); err != nil {
		return nil, err
	}
	return o, nil
}

// ListOrders returns orders newest first.
func (db *DB) ListOrders(ctx context.Context, filter models.OrderFilter) ([]*models.RestaurantOrder, error) {
	var (
		where []string
		args  []any
	)
	if filter.BookingID != 0 {
		where = append(where, "booking_id = ?")
		args = append(args, filter.BookingID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}

	query := `SELECT ` + orderColumns + ` FROM restaurant_orders`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	return db.queryOrders(ctx, query, args...)
}

// ListUnlinkedOrders returns orders not yet charged to a booking, oldest first.
func (db *DB) ListUnlinkedOrders(ctx context.Context) ([]*models.RestaurantOrder, error) {
	return db.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM restaurant_orders WHERE booking_id = 0 OR grc_no = ''
		 ORDER BY created_at ASC, id ASC`)
}

func (db *DB) queryOrders(ctx context.Context, query string, args ...any) ([]*models.RestaurantOrder, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	var list []*models.RestaurantOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		list = append(list, o)
	}
	// lines are loaded after the cursor is released; in-memory databases run on one connection
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	for _, o := range list {
		if o.Items, err = db.orderItems(ctx, o.ID); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func (db *DB) orderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT item_name, quantity, price, note FROM order_items WHERE order_id = ? ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}
	defer rows.Close()

	items := []models.OrderItem{}
	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.ItemName, &it.Quantity, &it.Price, &it.Note); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
