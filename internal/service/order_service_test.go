package service

import (
	"context"
	"errors"
	"io"
	"testing"

	"hoteldesk/internal/database"
	"hoteldesk/internal/events"
	"hoteldesk/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type orderFixture struct {
	svc    *OrderService
	orders *mockOrders
	repo   *mockRepo
	rooms  *mockRooms
	bus    *mockEventBus
}

func newOrderFixture() *orderFixture {
	logger := zerolog.New(io.Discard)
	f := &orderFixture{
		orders: new(mockOrders),
		repo:   new(mockRepo),
		rooms:  new(mockRooms),
		bus:    new(mockEventBus),
	}
	f.svc = NewOrderService(f.orders, f.repo, f.rooms, f.bus, &logger)
	return f
}

func newOrder(table string) *models.RestaurantOrder {
	return &models.RestaurantOrder{
		TableNo: table,
		Items:   []models.OrderItem{{ItemName: "Paneer tikka", Quantity: 2, Price: 280}},
	}
}

func TestCreateOrderLinksRoomTable(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()

	guest := stored(models.StatusCheckedIn)
	f.rooms.On("FindActiveBookingByRoom", ctx, "204").Return(guest, nil).Once()
	f.orders.On("CreateOrder", ctx, mock.AnythingOfType("*models.RestaurantOrder")).Run(func(args mock.Arguments) {
		args.Get(1).(*models.RestaurantOrder).ID = 11
	}).Return(nil).Once()
	f.bus.On("PublishJSON", events.EventOrderCreated, mock.Anything).Return(nil).Once()
	f.bus.On("PublishJSON", events.EventOrderLinked, mock.MatchedBy(func(p events.OrderEventPayload) bool {
		return p.OrderID == 11 && p.BookingID == guest.ID && p.GRCNo == guest.GRCNo
	})).Return(nil).Once()

	o := newOrder(" 204 ")
	require.NoError(t, f.svc.CreateOrder(ctx, o))

	assert.Equal(t, models.OrderPending, o.Status)
	assert.Equal(t, guest.ID, o.BookingID)
	assert.Equal(t, guest.MobileNo, o.GuestPhone)
	assert.Equal(t, guest.GuestName, o.CustomerName)
	f.bus.AssertExpectations(t)
}

func TestCreateOrderWalkIn(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()

	f.rooms.On("FindActiveBookingByRoom", ctx, "T3").Return(nil, database.ErrNotFound).Once()
	f.orders.On("CreateOrder", ctx, mock.Anything).Return(nil).Once()
	f.bus.On("PublishJSON", events.EventOrderCreated, mock.Anything).Return(nil).Once()

	o := newOrder("T3")
	o.BookingID = 0
	o.GRCNo = "forged"
	require.NoError(t, f.svc.CreateOrder(ctx, o))
	assert.False(t, o.Linked())
	assert.Empty(t, o.GRCNo)
	f.bus.AssertNotCalled(t, "PublishJSON", events.EventOrderLinked, mock.Anything)
}

func TestCreateOrderLookupFailureKeepsOrder(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()

	f.rooms.On("FindActiveBookingByRoom", ctx, "204").Return(nil, errors.New("database is locked")).Once()
	f.orders.On("CreateOrder", ctx, mock.Anything).Return(nil).Once()
	f.bus.On("PublishJSON", events.EventOrderCreated, mock.Anything).Return(nil).Once()

	o := newOrder("204")
	require.NoError(t, f.svc.CreateOrder(ctx, o))
	assert.False(t, o.Linked())
}

func TestCreateOrderExplicitBooking(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()

	t.Run("known booking", func(t *testing.T) {
		f.repo.On("GetBooking", ctx, int64(1)).Return(stored(models.StatusCheckedIn), nil).Once()
		f.orders.On("CreateOrder", ctx, mock.Anything).Return(nil).Once()
		f.bus.On("PublishJSON", mock.Anything, mock.Anything).Return(nil)

		o := newOrder("")
		o.BookingID = 1
		require.NoError(t, f.svc.CreateOrder(ctx, o))
		assert.Equal(t, "GRC-1", o.GRCNo)
		f.rooms.AssertNotCalled(t, "FindActiveBookingByRoom", mock.Anything, mock.Anything)
	})

	t.Run("unknown booking", func(t *testing.T) {
		f.repo.On("GetBooking", ctx, int64(8)).Return(nil, database.ErrNotFound).Once()
		o := newOrder("")
		o.BookingID = 8
		assert.True(t, IsNotFound(f.svc.CreateOrder(ctx, o)))
	})
}

func TestCreateOrderValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(o *models.RestaurantOrder)
		field  string
	}{
		{"no items", func(o *models.RestaurantOrder) { o.Items = nil }, "items"},
		{"blank item", func(o *models.RestaurantOrder) { o.Items[0].ItemName = " " }, "items[0].item_name"},
		{"zero quantity", func(o *models.RestaurantOrder) { o.Items[0].Quantity = 0 }, "items[0].quantity"},
		{"negative price", func(o *models.RestaurantOrder) { o.Items[0].Price = -1 }, "items[0].price"},
		{"unknown status", func(o *models.RestaurantOrder) { o.Status = "eaten" }, "status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrderFixture()
			o := newOrder("T1")
			tt.mutate(o)

			err := f.svc.CreateOrder(context.Background(), o)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			f.orders.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
		})
	}
}

func TestUpdateOrderStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("open order moves", func(t *testing.T) {
		f := newOrderFixture()
		f.orders.On("GetOrder", ctx, int64(3)).Return(&models.RestaurantOrder{ID: 3, Status: models.OrderReady}, nil).Once()
		f.orders.On("UpdateOrderStatus", ctx, int64(3), models.OrderServed).Return(nil).Once()
		f.bus.On("PublishJSON", events.EventOrderStatusChanged, mock.Anything).Return(nil).Once()

		o, err := f.svc.UpdateStatus(ctx, 3, models.OrderServed)
		require.NoError(t, err)
		assert.Equal(t, models.OrderServed, o.Status)
	})

	t.Run("closed order is final", func(t *testing.T) {
		f := newOrderFixture()
		f.orders.On("GetOrder", ctx, int64(3)).Return(&models.RestaurantOrder{ID: 3, Status: models.OrderCancelled}, nil).Once()

		_, err := f.svc.UpdateStatus(ctx, 3, models.OrderPending)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		f.orders.AssertNotCalled(t, "UpdateOrderStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown status", func(t *testing.T) {
		f := newOrderFixture()
		_, err := f.svc.UpdateStatus(ctx, 3, "lost")
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestUpdateOrderMovesTable(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()

	guest := stored(models.StatusCheckedIn)
	f.orders.On("GetOrder", ctx, int64(5)).Return(&models.RestaurantOrder{
		ID: 5, TableNo: "T2", Status: models.OrderPending,
		Items: []models.OrderItem{{ItemName: "Tea", Quantity: 1, Price: 40}},
	}, nil).Once()
	f.rooms.On("FindActiveBookingByRoom", ctx, "204").Return(guest, nil).Once()
	f.orders.On("UpdateOrder", ctx, mock.MatchedBy(func(o *models.RestaurantOrder) bool {
		return o.TableNo == "204" && o.BookingID == guest.ID
	})).Return(nil).Once()
	f.bus.On("PublishJSON", events.EventOrderLinked, mock.Anything).Return(nil).Once()

	table := "204"
	o, err := f.svc.UpdateOrder(ctx, 5, OrderPatch{TableNo: &table})
	require.NoError(t, err)
	assert.Equal(t, guest.RoomNumber, o.RoomNumber)
	f.orders.AssertExpectations(t)
}

func TestUpdateClosedOrder(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()
	f.orders.On("GetOrder", ctx, int64(5)).Return(&models.RestaurantOrder{ID: 5, Status: models.OrderCompleted}, nil).Once()

	notes := "extra chutney"
	_, err := f.svc.UpdateOrder(ctx, 5, OrderPatch{Notes: &notes})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestLinkUnlinked(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()

	guest := stored(models.StatusCheckedIn)
	f.orders.On("ListUnlinkedOrders", ctx).Return([]*models.RestaurantOrder{
		{ID: 1, TableNo: "204"},
		{ID: 2, TableNo: "T7"},
		{ID: 3},
		{ID: 4, TableNo: "204"},
	}, nil).Once()
	f.rooms.On("FindActiveBookingByRoom", ctx, "204").Return(guest, nil).Twice()
	f.rooms.On("FindActiveBookingByRoom", ctx, "T7").Return(nil, database.ErrNotFound).Once()
	f.orders.On("LinkOrder", ctx, int64(1), guest).Return(nil).Once()
	f.orders.On("LinkOrder", ctx, int64(4), guest).Return(errors.New("disk full")).Once()
	f.bus.On("PublishJSON", events.EventOrderLinked, mock.Anything).Return(nil).Once()

	res, err := f.svc.LinkUnlinked(ctx)
	require.NoError(t, err)
	assert.Equal(t, LinkResult{Linked: 1, TotalUnlinked: 4}, res)
	f.orders.AssertExpectations(t)
	f.bus.AssertExpectations(t)
}

func TestListByBookingRequiresBooking(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()
	f.repo.On("GetBooking", ctx, int64(9)).Return(nil, database.ErrNotFound).Once()

	_, err := f.svc.ListByBooking(ctx, 9)
	assert.True(t, IsNotFound(err))
	f.orders.AssertNotCalled(t, "ListOrders", mock.Anything, mock.Anything)
}
