package database

import (
	"context"
	"testing"

	"hoteldesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder(table string) *models.RestaurantOrder {
	return &models.RestaurantOrder{
		TableNo:      table,
		CustomerName: "Walk-in",
		Status:       models.OrderPending,
		Items: []models.OrderItem{
			{ItemName: "Masala dosa", Quantity: 2, Price: 120},
			{ItemName: "Filter coffee", Quantity: 1, Price: 60, Note: "less sugar"},
		},
	}
}

func TestOrderCRUD(t *testing.T) {
	db := setupBookingsDB(t)
	ctx := context.Background()

	o := newTestOrder("T4")
	require.NoError(t, db.CreateOrder(ctx, o))
	assert.NotZero(t, o.ID)
	assert.Equal(t, float64(300), o.Amount)

	got, err := db.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "T4", got.TableNo)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "less sugar", got.Items[1].Note)

	got.Items = got.Items[:1]
	got.Notes = "coffee dropped"
	require.NoError(t, db.UpdateOrder(ctx, got))
	got, err = db.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, float64(240), got.Amount)

	require.NoError(t, db.UpdateOrderStatus(ctx, o.ID, models.OrderServed))
	got, err = db.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderServed, got.Status)

	_, err = db.GetOrder(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, db.UpdateOrderStatus(ctx, 999, models.OrderServed), ErrNotFound)
}

func TestLinkOrderAndFilters(t *testing.T) {
	db := setupBookingsDB(t)
	ctx := context.Background()

	b := newTestBooking(1)
	require.NoError(t, db.InsertBooking(ctx, b))

	linked := newTestOrder("204")
	unlinked := newTestOrder("T9")
	require.NoError(t, db.CreateOrder(ctx, linked))
	require.NoError(t, db.CreateOrder(ctx, unlinked))

	open, err := db.ListUnlinkedOrders(ctx)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, linked.ID, open[0].ID)

	require.NoError(t, db.LinkOrder(ctx, linked.ID, b))

	got, err := db.GetOrder(ctx, linked.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.BookingID)
	assert.Equal(t, b.GRCNo, got.GRCNo)
	assert.Equal(t, b.MobileNo, got.GuestPhone)

	open, err = db.ListUnlinkedOrders(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, unlinked.ID, open[0].ID)

	byBooking, err := db.ListOrders(ctx, models.OrderFilter{BookingID: b.ID})
	require.NoError(t, err)
	require.Len(t, byBooking, 1)
	assert.Len(t, byBooking[0].Items, 2)

	pending, err := db.ListOrders(ctx, models.OrderFilter{Status: models.OrderPending})
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	assert.ErrorIs(t, db.LinkOrder(ctx, 999, b), ErrNotFound)
}

func TestFindActiveBookingByRoom(t *testing.T) {
	db := setupBookingsDB(t)
	ctx := context.Background()

	booked := newTestBooking(1)
	booked.RoomNumber = "101, 102"
	checkedIn := newTestBooking(2)
	checkedIn.RoomNumber = "102"
	checkedIn.Status = models.StatusCheckedIn
	gone := newTestBooking(3)
	gone.RoomNumber = "1011"
	gone.Status = models.StatusCheckedIn
	left := newTestBooking(4)
	left.RoomNumber = "303"
	left.Status = models.StatusCheckedOut
	for _, b := range []*models.Booking{booked, checkedIn, gone, left} {
		require.NoError(t, db.InsertBooking(ctx, b))
	}

	got, err := db.FindActiveBookingByRoom(ctx, "102")
	require.NoError(t, err)
	assert.Equal(t, checkedIn.ID, got.ID)

	got, err = db.FindActiveBookingByRoom(ctx, " 101 ")
	require.NoError(t, err)
	assert.Equal(t, booked.ID, got.ID)

	_, err = db.FindActiveBookingByRoom(ctx, "303")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = db.FindActiveBookingByRoom(ctx, "10")
	assert.ErrorIs(t, err, ErrNotFound)
}
