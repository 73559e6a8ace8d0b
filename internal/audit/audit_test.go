package audit

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"hoteldesk/internal/config"
	"hoteldesk/internal/events"
	"hoteldesk/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectAndRecord(t *testing.T) {
	logger := zerolog.New(io.Discard)
	r := Connect(context.Background(), config.AuditConfig{
		Enabled:        true,
		Path:           filepath.Join(t.TempDir(), "audit", "audit.db"),
		ConnectTimeout: time.Second,
	}, &logger)
	defer r.Close()
	require.True(t, r.Enabled())

	ctx := context.Background()
	r.Record(ctx, models.AuditEntry{Action: "booking_created", Entity: "booking", EntityID: 7, Actor: "frontdesk"})
	r.Record(ctx, models.AuditEntry{Action: "booking_checked_out", Entity: "booking", EntityID: 7})
	r.Record(ctx, models.AuditEntry{Action: "booking_created", Entity: "booking", EntityID: 8})

	entries, err := r.List(ctx, "booking", 7)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "booking_created", entries[0].Action)
	assert.Equal(t, "frontdesk", entries[0].Actor)
	assert.False(t, entries[0].CreatedAt.IsZero())
}

func TestSubscribeRecordsEvents(t *testing.T) {
	logger := zerolog.New(io.Discard)
	r := Connect(context.Background(), config.AuditConfig{Enabled: true, Path: ":memory:"}, &logger)
	defer r.Close()

	bus := events.NewEventBus(&logger)
	r.Subscribe(bus)

	require.NoError(t, bus.PublishJSON(events.EventLateFineWaived, events.BookingEventPayload{
		BookingID: 3,
		BookingNo: "BK1",
		ChangedBy: "manager",
		Reason:    "flight delayed",
	}))

	entries, err := r.List(context.Background(), "booking", 3)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, events.EventLateFineWaived, entries[0].Action)
	assert.Equal(t, "manager", entries[0].Actor)
	assert.Contains(t, entries[0].Details, "flight delayed")
}

func TestConnectFallsBackToNoop(t *testing.T) {
	logger := zerolog.New(io.Discard)

	t.Run("disabled", func(t *testing.T) {
		r := Connect(context.Background(), config.AuditConfig{Enabled: false, Path: "x.db"}, &logger)
		assert.False(t, r.Enabled())
	})

	t.Run("unreachable path", func(t *testing.T) {
		// a regular file where the directory should be
		blocker := filepath.Join(t.TempDir(), "blocker")
		require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

		r := Connect(context.Background(), config.AuditConfig{
			Enabled: true,
			Path:    filepath.Join(blocker, "audit.db"),
		}, &logger)
		assert.False(t, r.Enabled())
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		r := Connect(ctx, config.AuditConfig{Enabled: true, Path: filepath.Join(t.TempDir(), "a.db")}, &logger)
		assert.False(t, r.Enabled())
	})
}

func TestNoopRecorder(t *testing.T) {
	r := Connect(context.Background(), config.AuditConfig{}, nil)

	assert.NotPanics(t, func() {
		r.Record(context.Background(), models.AuditEntry{Action: "x"})
	})
	entries, err := r.List(context.Background(), "booking", 1)
	assert.NoError(t, err)
	assert.Nil(t, entries)
	assert.NoError(t, r.Close())

	bus := events.NewEventBus(nil)
	r.Subscribe(bus)
	assert.NoError(t, bus.PublishJSON(events.EventBookingCreated, events.BookingEventPayload{BookingID: 1}))
}

func TestHandleEventPicksEntity(t *testing.T) {
	logger := zerolog.New(io.Discard)
	r := Connect(context.Background(), config.AuditConfig{Enabled: true, Path: ":memory:"}, &logger)
	defer r.Close()

	bus := events.NewEventBus(&logger)
	r.Subscribe(bus)

	require.NoError(t, bus.PublishJSON(events.EventStockMoved, events.StockEventPayload{
		ItemID: 3, ItemName: "Bath towel", Type: models.MovementStockOut, Quantity: 2, IssuedTo: "housekeeping",
	}))
	require.NoError(t, bus.PublishJSON(events.EventOrderLinked, events.OrderEventPayload{
		OrderID: 3, BookingID: 9, RoomNumber: "204",
	}))

	ctx := context.Background()
	stock, err := r.List(ctx, EntityInventory, 3)
	require.NoError(t, err)
	require.Len(t, stock, 1)
	assert.Equal(t, events.EventStockMoved, stock[0].Action)
	assert.Equal(t, "housekeeping", stock[0].Actor)

	orders, err := r.List(ctx, EntityOrder, 3)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Contains(t, orders[0].Details, `"room_number":"204"`)

	bookings, err := r.List(ctx, EntityBooking, 3)
	require.NoError(t, err)
	assert.Empty(t, bookings)
}
