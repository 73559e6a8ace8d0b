package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

type DB struct {
	*sql.DB
	path   string
	loc    *time.Location
	logger *zerolog.Logger
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite3", path+dsnOptions(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		// every new connection would see its own empty in-memory database
		sqlDB.SetMaxOpenConns(1)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{DB: sqlDB, path: path, loc: time.Local, logger: logger}
	if err := db.createTables(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return db, nil
}

func dsnOptions(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return sep + "_busy_timeout=5000&_foreign_keys=on"
}

// SetLocation sets the hotel timezone used to rebuild calendar-day columns.
func (db *DB) SetLocation(loc *time.Location) {
	if loc != nil {
		db.loc = loc
	}
}

func (db *DB) Location() *time.Location {
	return db.loc
}

func (db *DB) Path() string {
	return db.path
}

func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS bookings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            booking_no TEXT NOT NULL UNIQUE,
            grc_no TEXT NOT NULL UNIQUE,
            invoice_number TEXT,
            category_id INTEGER NOT NULL DEFAULT 0,
            guest_name TEXT NOT NULL,
            mobile_no TEXT NOT NULL,
            email TEXT NOT NULL DEFAULT '',
            room_number TEXT NOT NULL DEFAULT '',
            number_of_rooms INTEGER NOT NULL DEFAULT 1,
            check_in_date TEXT NOT NULL,
            check_out_date TEXT NOT NULL,
            time_in TEXT NOT NULL DEFAULT '',
            time_out TEXT NOT NULL DEFAULT '12:00',
            actual_check_in_time DATETIME,
            actual_check_out_time DATETIME,
            rate REAL NOT NULL DEFAULT 0,
            status TEXT NOT NULL DEFAULT 'Booked',
            payment_status TEXT NOT NULL DEFAULT 'Pending',
            fine_amount REAL NOT NULL DEFAULT 0,
            fine_minutes_late INTEGER NOT NULL DEFAULT 0,
            fine_per_hour REAL NOT NULL DEFAULT 500,
            fine_grace_minutes INTEGER NOT NULL DEFAULT 15,
            fine_applied BOOLEAN NOT NULL DEFAULT 0,
            fine_applied_at DATETIME,
            fine_waived BOOLEAN NOT NULL DEFAULT 0,
            fine_waived_by TEXT NOT NULL DEFAULT '',
            fine_waived_reason TEXT NOT NULL DEFAULT '',
            deleted BOOLEAN NOT NULL DEFAULT 0,
            deleted_at DATETIME,
            deleted_by TEXT NOT NULL DEFAULT '',
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL,
            version INTEGER NOT NULL DEFAULT 1
        )`,
		`CREATE TABLE IF NOT EXISTS room_inspections (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            room_id TEXT NOT NULL,
            booking_id INTEGER NOT NULL REFERENCES bookings(id),
            inspected_by TEXT NOT NULL DEFAULT '',
            total_charge REAL NOT NULL DEFAULT 0,
            remarks TEXT NOT NULL DEFAULT '',
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS inspection_items (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            inspection_id INTEGER NOT NULL REFERENCES room_inspections(id) ON DELETE CASCADE,
            item_name TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'ok',
            charge REAL NOT NULL DEFAULT 0
        )`,
		`CREATE TABLE IF NOT EXISTS room_categories (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL UNIQUE,
            description TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'active',
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS inventory_items (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            item_code TEXT UNIQUE,
            name TEXT NOT NULL,
            category TEXT NOT NULL DEFAULT '',
            description TEXT NOT NULL DEFAULT '',
            unit TEXT NOT NULL DEFAULT '',
            current_stock INTEGER NOT NULL DEFAULT 0 CHECK (current_stock >= 0),
            min_stock_level INTEGER NOT NULL DEFAULT 0,
            unit_price REAL NOT NULL DEFAULT 0,
            supplier_name TEXT NOT NULL DEFAULT '',
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS stock_movements (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            item_id INTEGER NOT NULL REFERENCES inventory_items(id) ON DELETE CASCADE,
            type TEXT NOT NULL,
            quantity INTEGER NOT NULL,
            issued_to TEXT NOT NULL DEFAULT '',
            reason TEXT NOT NULL DEFAULT '',
            notes TEXT NOT NULL DEFAULT '',
            booking_id INTEGER NOT NULL DEFAULT 0,
            created_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS restaurant_orders (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            table_no TEXT NOT NULL DEFAULT '',
            customer_name TEXT NOT NULL DEFAULT '',
            amount REAL NOT NULL DEFAULT 0,
            status TEXT NOT NULL DEFAULT 'pending',
            notes TEXT NOT NULL DEFAULT '',
            booking_id INTEGER NOT NULL DEFAULT 0,
            grc_no TEXT NOT NULL DEFAULT '',
            room_number TEXT NOT NULL DEFAULT '',
            guest_name TEXT NOT NULL DEFAULT '',
            guest_phone TEXT NOT NULL DEFAULT '',
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS order_items (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            order_id INTEGER NOT NULL REFERENCES restaurant_orders(id) ON DELETE CASCADE,
            item_name TEXT NOT NULL,
            quantity INTEGER NOT NULL,
            price REAL NOT NULL DEFAULT 0,
            note TEXT NOT NULL DEFAULT ''
        )`,
		`CREATE TABLE IF NOT EXISTS sync_queue (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            task_type TEXT NOT NULL,
            booking_id INTEGER NOT NULL,
            payload TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            retry_count INTEGER NOT NULL DEFAULT 0,
            last_error TEXT,
            created_at DATETIME NOT NULL,
            processed_at DATETIME,
            next_retry_at DATETIME
        )`,

		// invoice numbers of soft-deleted bookings may be reissued; booking numbers never are
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_bookings_invoice_number
            ON bookings(invoice_number)
            WHERE deleted = 0 AND invoice_number IS NOT NULL AND invoice_number <> ''`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_check_in ON bookings(check_in_date)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_inspections_booking ON room_inspections(booking_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_category ON bookings(category_id)`,
		`CREATE INDEX IF NOT EXISTS idx_stock_movements_item ON stock_movements(item_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_booking ON restaurant_orders(booking_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_queue_status ON sync_queue(status, next_retry_at)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}
