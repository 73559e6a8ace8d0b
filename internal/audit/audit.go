// Package audit keeps a best-effort trail of domain events in a separate SQLite database.
// A missing or slow audit database never fails a booking operation.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"hoteldesk/internal/config"
	"hoteldesk/internal/events"
	"hoteldesk/internal/models"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

const (
	EntityBooking   = "booking"
	EntityInventory = "inventory_item"
	EntityOrder     = "restaurant_order"
)

type Recorder struct {
	db     *sql.DB
	logger *zerolog.Logger
}

// Connect opens the audit database within cfg.ConnectTimeout.
// On any failure it returns a recorder that drops entries.
func Connect(ctx context.Context, cfg config.AuditConfig, logger *zerolog.Logger) *Recorder {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	r := &Recorder{logger: logger}
	if !cfg.Enabled || cfg.Path == "" {
		logger.Info().Msg("Audit log disabled")
		return r
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	db, err := open(ctx, cfg.Path)
	if err != nil {
		logger.Warn().Err(err).Str("path", cfg.Path).Msg("Audit database unavailable, continuing without audit")
		return r
	}

	r.db = db
	logger.Info().Str("path", cfg.Path).Msg("Audit database connected")
	return r
}

func open(ctx context.Context, path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create audit directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=2000")
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping audit database: %w", err)
	}

	_, err = db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS audit_entries (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            action TEXT NOT NULL,
            entity TEXT NOT NULL,
            entity_id INTEGER NOT NULL,
            actor TEXT NOT NULL DEFAULT '',
            details TEXT NOT NULL DEFAULT '',
            created_at DATETIME NOT NULL
        )`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create audit table: %w", err)
	}
	return db, nil
}

// Enabled reports whether entries are being persisted.
func (r *Recorder) Enabled() bool {
	return r != nil && r.db != nil
}

// Record stores e. Errors are logged, never returned.
func (r *Recorder) Record(ctx context.Context, e models.AuditEntry) {
	if !r.Enabled() {
		return
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_entries (action, entity, entity_id, actor, details, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.Action, e.Entity, e.EntityID, e.Actor, e.Details, e.CreatedAt)
	if err != nil {
		r.logger.Warn().Err(err).Str("action", e.Action).Int64("entity_id", e.EntityID).Msg("Failed to write audit entry")
	}
}

// HandleEvent converts an event into an audit entry keyed by the entity it touched.
func (r *Recorder) HandleEvent(ev *events.Event) error {
	entry := models.AuditEntry{
		Action:    ev.Type,
		Details:   string(ev.Payload),
		CreatedAt: ev.CreatedAt,
	}

	switch ev.Type {
	case events.EventStockMoved, events.EventStockLow:
		var p events.StockEventPayload
		if err := ev.Decode(&p); err != nil {
			return fmt.Errorf("decode %s payload: %w", ev.Type, err)
		}
		entry.Entity, entry.EntityID, entry.Actor = EntityInventory, p.ItemID, p.IssuedTo
	case events.EventOrderCreated, events.EventOrderStatusChanged, events.EventOrderLinked:
		var p events.OrderEventPayload
		if err := ev.Decode(&p); err != nil {
			return fmt.Errorf("decode %s payload: %w", ev.Type, err)
		}
		entry.Entity, entry.EntityID = EntityOrder, p.OrderID
	default:
		var p events.BookingEventPayload
		if err := ev.Decode(&p); err != nil {
			return fmt.Errorf("decode %s payload: %w", ev.Type, err)
		}
		entry.Entity, entry.EntityID, entry.Actor = EntityBooking, p.BookingID, p.ChangedBy
	}

	r.Record(context.Background(), entry)
	return nil
}

// Subscribe attaches the recorder to every event on bus.
func (r *Recorder) Subscribe(bus *events.EventBus) {
	if !r.Enabled() {
		return
	}
	bus.SubscribeAll(r.HandleEvent)
}

// List returns the trail for one entity, oldest first.
func (r *Recorder) List(ctx context.Context, entity string, id int64) ([]models.AuditEntry, error) {
	if !r.Enabled() {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, action, entity, entity_id, actor, details, created_at FROM audit_entries
		 WHERE entity = ? AND entity_id = ? ORDER BY id`, entity, id)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.ID, &e.Action, &e.Entity, &e.EntityID, &e.Actor, &e.Details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *Recorder) Close() error {
	if !r.Enabled() {
		return nil
	}
	return r.db.Close()
}
