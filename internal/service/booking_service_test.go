package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"hoteldesk/internal/billing"
	"hoteldesk/internal/database"
	"hoteldesk/internal/events"
	"hoteldesk/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	repo   *mockRepo
	bus    *mockEventBus
	worker *mockWorker
	svc    *BookingService
}

func newFixture() *fixture {
	logger := zerolog.New(io.Discard)
	repo := new(mockRepo)
	bus := new(mockEventBus)
	worker := new(mockWorker)

	codes := billing.NewCodeAllocator(repo, 3)
	invoices := billing.NewScanSequencer(repo, "MPZ", testLoc)
	pipeline := billing.NewPipeline(codes, invoices, 3, &logger)

	svc := NewBookingService(repo, pipeline, bus, worker, FineDefaults{}, testLoc, &logger)
	return &fixture{repo: repo, bus: bus, worker: worker, svc: svc}
}

func newBooking() *models.Booking {
	return &models.Booking{
		GRCNo:        "GRC-1",
		GuestName:    " Asha Verma ",
		MobileNo:     "9876543210",
		RoomNumber:   "204",
		CheckInDate:  time.Date(2024, 3, 8, 0, 0, 0, 0, testLoc),
		CheckOutDate: time.Date(2024, 3, 10, 0, 0, 0, 0, testLoc),
		Rate:         3500,
	}
}

func stored(status string) *models.Booking {
	b := newBooking()
	b.ID = 1
	b.Version = 3
	b.BookingNo = "BK1710000000000"
	b.InvoiceNumber = "MPZ/03/001"
	b.GuestName = "Asha Verma"
	b.TimeOut = "12:00"
	b.Status = status
	b.LateCheckoutFine = models.LateCheckoutFine{FinePerHour: 500, GracePeriodMinutes: 15}
	return b
}

func TestCreateBooking(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.repo.On("BookingNoExists", ctx, mock.AnythingOfType("string")).Return(false, nil).Once()
	f.repo.On("ListInvoiceNumbers", ctx).Return([]string{"MPZ/01/001", "MPZ/03/002", "bad-format"}, nil).Once()
	f.repo.On("InsertBooking", ctx, mock.AnythingOfType("*models.Booking")).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Booking).ID = 42
	}).Return(nil).Once()
	f.bus.On("PublishJSON", events.EventBookingCreated, mock.Anything).Return(nil).Once()
	f.worker.On("EnqueueTask", ctx, TaskUpsert, mock.AnythingOfType("*models.Booking")).Return(nil).Once()

	b := newBooking()
	b.LateCheckoutFine.Applied = true
	b.LateCheckoutFine.Amount = 9999

	require.NoError(t, f.svc.CreateBooking(ctx, b))

	assert.Equal(t, int64(42), b.ID)
	assert.Regexp(t, `^BK\d{13}$`, b.BookingNo)
	assert.Regexp(t, `^MPZ/\d{2}/003$`, b.InvoiceNumber)
	assert.Equal(t, "Asha Verma", b.GuestName)
	assert.Equal(t, models.DefaultTimeOut, b.TimeOut)
	assert.Equal(t, models.StatusBooked, b.Status)
	assert.Equal(t, models.PaymentPending, b.PaymentStatus)
	assert.Equal(t, 1, b.NumberOfRooms)
	assert.False(t, b.LateCheckoutFine.Applied)
	assert.Zero(t, b.LateCheckoutFine.Amount)
	assert.Equal(t, float64(500), b.LateCheckoutFine.FinePerHour)
	assert.Equal(t, 15, b.LateCheckoutFine.GracePeriodMinutes)

	f.repo.AssertExpectations(t)
	f.bus.AssertExpectations(t)
	f.worker.AssertExpectations(t)
}

func TestCreateBookingValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(b *models.Booking)
		field  string
	}{
		{"missing grc", func(b *models.Booking) { b.GRCNo = "" }, "grc_no"},
		{"missing guest", func(b *models.Booking) { b.GuestName = "  " }, "guest_name"},
		{"missing mobile", func(b *models.Booking) { b.MobileNo = "" }, "mobile_no"},
		{"missing check-in", func(b *models.Booking) { b.CheckInDate = time.Time{} }, "check_in_date"},
		{"checkout before check-in", func(b *models.Booking) { b.CheckOutDate = b.CheckInDate.AddDate(0, 0, -1) }, "check_out_date"},
		{"bad time out", func(b *models.Booking) { b.TimeOut = "noon" }, "time_out"},
		{"unknown status", func(b *models.Booking) { b.Status = "Lost" }, "status"},
		{"negative rate", func(b *models.Booking) { b.Rate = -1 }, "rate"},
		{"unknown payment status", func(b *models.Booking) { b.PaymentStatus = "Refunded" }, "payment_status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			b := newBooking()
			tt.mutate(b)

			err := f.svc.CreateBooking(context.Background(), b)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)

			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
			f.repo.AssertNotCalled(t, "InsertBooking", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateBookingBadTimeOutIsFineInputError(t *testing.T) {
	f := newFixture()
	b := newBooking()
	b.TimeOut = "25:99"

	err := f.svc.CreateBooking(context.Background(), b)
	assert.ErrorIs(t, err, billing.ErrInvalidFineInput)
}

func TestCreateBookingCollision(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.repo.On("BookingNoExists", ctx, mock.Anything).Return(false, nil)
	f.repo.On("ListInvoiceNumbers", ctx).Return([]string{}, nil)
	f.repo.On("InsertBooking", ctx, mock.Anything).Return(&database.DuplicateError{Field: "invoice_number"})

	err := f.svc.CreateBooking(ctx, newBooking())
	assert.ErrorIs(t, err, billing.ErrCollision)
	f.repo.AssertNumberOfCalls(t, "InsertBooking", 3)
	f.bus.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything)
	f.worker.AssertNotCalled(t, "EnqueueTask", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateBookingCategory(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown category", func(t *testing.T) {
		f := newFixture()
		cats := new(mockCategories)
		f.svc.UseCategories(cats)
		cats.On("GetCategory", ctx, int64(9)).Return(nil, database.ErrNotFound).Once()

		b := newBooking()
		b.CategoryID = 9
		err := f.svc.CreateBooking(ctx, b)
		var ve *ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "category_id", ve.Field)
		f.repo.AssertNotCalled(t, "InsertBooking", mock.Anything, mock.Anything)
	})

	t.Run("inactive category", func(t *testing.T) {
		f := newFixture()
		cats := new(mockCategories)
		f.svc.UseCategories(cats)
		cats.On("GetCategory", ctx, int64(2)).Return(&models.RoomCategory{ID: 2, Name: "Suite", Status: models.CategoryInactive}, nil).Once()

		b := newBooking()
		b.CategoryID = 2
		assert.ErrorIs(t, f.svc.CreateBooking(ctx, b), ErrValidation)
	})

	t.Run("category changed on update", func(t *testing.T) {
		f := newFixture()
		cats := new(mockCategories)
		f.svc.UseCategories(cats)
		f.repo.On("GetBooking", ctx, int64(1)).Return(stored(models.StatusBooked), nil).Once()
		cats.On("GetCategory", ctx, int64(3)).Return(&models.RoomCategory{ID: 3, Name: "Deluxe", Status: models.CategoryActive}, nil).Once()
		f.repo.On("UpdateBooking", ctx, mock.Anything).Return(nil).Once()
		f.worker.On("EnqueueTask", ctx, TaskUpsert, mock.Anything).Return(nil).Once()

		id := int64(3)
		b, err := f.svc.UpdateBooking(ctx, 1, 0, BookingPatch{CategoryID: &id})
		require.NoError(t, err)
		assert.Equal(t, int64(3), b.CategoryID)
		cats.AssertExpectations(t)
	})
}

func TestCheckIn(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	at := time.Date(2024, 3, 8, 14, 5, 0, 0, testLoc)

	f.repo.On("GetBooking", ctx, int64(1)).Return(stored(models.StatusBooked), nil).Once()
	f.repo.On("UpdateBooking", ctx, mock.AnythingOfType("*models.Booking")).Return(nil).Once()
	f.bus.On("PublishJSON", events.EventBookingCheckedIn, mock.Anything).Return(nil).Once()
	f.worker.On("EnqueueTask", ctx, TaskUpsert, mock.Anything).Return(nil).Once()

	b, err := f.svc.CheckIn(ctx, 1, 3, at)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCheckedIn, b.Status)
	require.NotNil(t, b.ActualCheckInTime)
	assert.Equal(t, at, *b.ActualCheckInTime)
}

func TestCheckInRejects(t *testing.T) {
	ctx := context.Background()

	t.Run("stale version", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetBooking", ctx, int64(1)).Return(stored(models.StatusBooked), nil).Once()

		_, err := f.svc.CheckIn(ctx, 1, 2, time.Time{})
		assert.ErrorIs(t, err, database.ErrConcurrentModification)
	})

	t.Run("wrong status", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetBooking", ctx, int64(1)).Return(stored(models.StatusCancelled), nil).Once()

		_, err := f.svc.CheckIn(ctx, 1, 0, time.Time{})
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("missing", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetBooking", ctx, int64(9)).Return(nil, database.ErrNotFound).Once()

		_, err := f.svc.CheckIn(ctx, 9, 0, time.Time{})
		assert.True(t, IsNotFound(err))
	})
}

func TestCheckOutAppliesFine(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	at := time.Date(2024, 3, 10, 12, 20, 0, 0, testLoc)

	f.repo.On("GetBooking", ctx, int64(1)).Return(stored(models.StatusCheckedIn), nil).Once()
	f.repo.On("UpdateBooking", ctx, mock.AnythingOfType("*models.Booking")).Return(nil).Once()
	f.bus.On("PublishJSON", events.EventBookingCheckedOut, mock.Anything).Return(nil).Once()
	f.bus.On("PublishJSON", events.EventLateFineApplied, mock.MatchedBy(func(p events.BookingEventPayload) bool {
		return p.FineAmount == 500 && p.MinutesLate == 20
	})).Return(nil).Once()
	f.worker.On("EnqueueTask", ctx, TaskUpsert, mock.Anything).Return(nil).Once()

	b, res, err := f.svc.CheckOut(ctx, 1, 3, at)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, models.StatusCheckedOut, b.Status)
	assert.True(t, b.LateCheckoutFine.Applied)
	assert.Equal(t, float64(500), b.LateCheckoutFine.Amount)
	assert.Equal(t, 20, b.LateCheckoutFine.MinutesLate)
	assert.Equal(t, "MPZ/03/001", b.InvoiceNumber)

	f.bus.AssertExpectations(t)
}

func TestCheckOutWithoutFine(t *testing.T) {
	for name, at := range map[string]time.Time{
		"early":     time.Date(2024, 3, 10, 11, 50, 0, 0, testLoc),
		"anomalous": time.Date(2024, 3, 11, 18, 0, 0, 0, testLoc),
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture()
			ctx := context.Background()

			f.repo.On("GetBooking", ctx, int64(1)).Return(stored(models.StatusCheckedIn), nil).Once()
			f.repo.On("UpdateBooking", ctx, mock.Anything).Return(nil).Once()
			f.bus.On("PublishJSON", events.EventBookingCheckedOut, mock.Anything).Return(nil).Once()
			f.worker.On("EnqueueTask", ctx, TaskUpsert, mock.Anything).Return(nil).Once()

			b, res, err := f.svc.CheckOut(ctx, 1, 0, at)
			require.NoError(t, err)
			assert.False(t, res.Applied)
			assert.False(t, b.LateCheckoutFine.Applied)
			assert.Zero(t, b.LateCheckoutFine.Amount)
			f.bus.AssertNotCalled(t, "PublishJSON", events.EventLateFineApplied, mock.Anything)
		})
	}
}

func TestCheckOutRequiresCheckIn(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.repo.On("GetBooking", ctx, int64(1)).Return(stored(models.StatusBooked), nil).Once()

	_, _, err := f.svc.CheckOut(ctx, 1, 0, time.Time{})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	f.repo.AssertNotCalled(t, "UpdateBooking", mock.Anything, mock.Anything)
}

func TestCheckOutPersistenceFailure(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	boom := errors.New("database is locked")

	f.repo.On("GetBooking", ctx, int64(1)).Return(stored(models.StatusCheckedIn), nil).Once()
	f.repo.On("UpdateBooking", ctx, mock.Anything).Return(boom).Once()

	_, _, err := f.svc.CheckOut(ctx, 1, 0, time.Date(2024, 3, 10, 13, 0, 0, 0, testLoc))
	assert.ErrorIs(t, err, boom)
	f.bus.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything)
}

func TestCancelBooking(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.repo.On("GetBooking", ctx, int64(1)).Return(stored(models.StatusBooked), nil).Once()
	f.repo.On("UpdateBooking", ctx, mock.Anything).Return(nil).Once()
	f.bus.On("PublishJSON", events.EventBookingCancelled, mock.MatchedBy(func(p events.BookingEventPayload) bool {
		return p.ChangedBy == "manager"
	})).Return(nil).Once()
	f.worker.On("EnqueueTask", ctx, TaskUpdateStatus, mock.Anything).Return(nil).Once()

	b, err := f.svc.CancelBooking(ctx, 1, 3, "manager")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, b.Status)

	f2 := newFixture()
	f2.repo.On("GetBooking", ctx, int64(1)).Return(stored(models.StatusCheckedOut), nil).Once()
	_, err = f2.svc.CancelBooking(ctx, 1, 0, "manager")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestWaiveFine(t *testing.T) {
	ctx := context.Background()
	applied := func() *models.Booking {
		b := stored(models.StatusCheckedOut)
		b.LateCheckoutFine.Applied = true
		b.LateCheckoutFine.Amount = 1000
		b.LateCheckoutFine.MinutesLate = 76
		return b
	}

	t.Run("waives", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetBooking", ctx, int64(1)).Return(applied(), nil).Once()
		f.repo.On("UpdateBooking", ctx, mock.Anything).Return(nil).Once()
		f.bus.On("PublishJSON", events.EventLateFineWaived, mock.Anything).Return(nil).Once()
		f.worker.On("EnqueueTask", ctx, TaskUpsert, mock.Anything).Return(nil).Once()

		b, err := f.svc.WaiveFine(ctx, 1, 3, "manager", "flight delayed")
		require.NoError(t, err)
		fine := b.LateCheckoutFine
		assert.True(t, fine.Applied)
		assert.True(t, fine.Waived)
		assert.Zero(t, fine.Amount)
		assert.Equal(t, 76, fine.MinutesLate)
		assert.Equal(t, "manager", fine.WaivedBy)
		assert.Equal(t, "flight delayed", fine.WaivedReason)
	})

	t.Run("nothing to waive", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetBooking", ctx, int64(1)).Return(stored(models.StatusCheckedOut), nil).Once()

		_, err := f.svc.WaiveFine(ctx, 1, 0, "manager", "goodwill")
		assert.ErrorIs(t, err, ErrNoFineToWaive)
	})

	t.Run("already waived", func(t *testing.T) {
		f := newFixture()
		b := applied()
		b.LateCheckoutFine.Waived = true
		f.repo.On("GetBooking", ctx, int64(1)).Return(b, nil).Once()

		_, err := f.svc.WaiveFine(ctx, 1, 0, "manager", "goodwill")
		assert.ErrorIs(t, err, ErrNoFineToWaive)
	})

	t.Run("reason required", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.WaiveFine(ctx, 1, 0, "manager", " ")
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestUpdateBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("time out is immutable", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetBooking", ctx, int64(1)).Return(stored(models.StatusBooked), nil).Once()

		late := "14:00"
		_, err := f.svc.UpdateBooking(ctx, 1, 0, BookingPatch{TimeOut: &late})
		assert.ErrorIs(t, err, ErrTimeOutImmutable)
		f.repo.AssertNotCalled(t, "UpdateBooking", mock.Anything, mock.Anything)
	})

	t.Run("same time out is accepted", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetBooking", ctx, int64(1)).Return(stored(models.StatusBooked), nil).Once()
		f.repo.On("UpdateBooking", ctx, mock.Anything).Return(nil).Once()
		f.worker.On("EnqueueTask", ctx, TaskUpsert, mock.Anything).Return(nil).Once()

		same, room := "12:00", "305"
		b, err := f.svc.UpdateBooking(ctx, 1, 0, BookingPatch{TimeOut: &same, RoomNumber: &room})
		require.NoError(t, err)
		assert.Equal(t, "305", b.RoomNumber)
	})

	t.Run("dates are validated", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetBooking", ctx, int64(1)).Return(stored(models.StatusBooked), nil).Once()

		early := time.Date(2024, 3, 1, 0, 0, 0, 0, testLoc)
		_, err := f.svc.UpdateBooking(ctx, 1, 0, BookingPatch{CheckOutDate: &early})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("unknown payment status", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetBooking", ctx, int64(1)).Return(stored(models.StatusBooked), nil).Once()

		refunded := "Refunded"
		_, err := f.svc.UpdateBooking(ctx, 1, 0, BookingPatch{PaymentStatus: &refunded})
		var ve *ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "payment_status", ve.Field)
		f.repo.AssertNotCalled(t, "UpdateBooking", mock.Anything, mock.Anything)
	})

	t.Run("corrected checkout date applies the late fine", func(t *testing.T) {
		f := newFixture()
		b := stored(models.StatusCheckedOut)
		b.CheckOutDate = time.Date(2024, 3, 12, 0, 0, 0, 0, testLoc)
		out := time.Date(2024, 3, 10, 14, 0, 0, 0, testLoc)
		b.ActualCheckOutTime = &out

		f.repo.On("GetBooking", ctx, int64(1)).Return(b, nil).Once()
		f.repo.On("UpdateBooking", ctx, mock.MatchedBy(func(b *models.Booking) bool {
			return b.LateCheckoutFine.Applied && b.LateCheckoutFine.Amount == 1000
		})).Return(nil).Once()
		f.bus.On("PublishJSON", events.EventLateFineApplied, mock.MatchedBy(func(p events.BookingEventPayload) bool {
			return p.FineAmount == 1000 && p.MinutesLate == 120
		})).Return(nil).Once()
		f.worker.On("EnqueueTask", ctx, TaskUpsert, mock.Anything).Return(nil).Once()

		corrected := time.Date(2024, 3, 10, 0, 0, 0, 0, testLoc)
		got, err := f.svc.UpdateBooking(ctx, 1, 3, BookingPatch{CheckOutDate: &corrected})
		require.NoError(t, err)
		assert.True(t, got.LateCheckoutFine.Applied)
		assert.Equal(t, 120, got.LateCheckoutFine.MinutesLate)
		assert.Equal(t, float64(1000), got.LateCheckoutFine.Amount)
		assert.Equal(t, "MPZ/03/001", got.InvoiceNumber)

		f.repo.AssertExpectations(t)
		f.bus.AssertExpectations(t)
	})

	t.Run("applied fine is not recomputed", func(t *testing.T) {
		f := newFixture()
		b := stored(models.StatusCheckedOut)
		out := time.Date(2024, 3, 10, 12, 20, 0, 0, testLoc)
		b.ActualCheckOutTime = &out
		b.LateCheckoutFine.Applied = true
		b.LateCheckoutFine.Amount = 500
		b.LateCheckoutFine.MinutesLate = 20

		f.repo.On("GetBooking", ctx, int64(1)).Return(b, nil).Once()
		f.repo.On("UpdateBooking", ctx, mock.Anything).Return(nil).Once()
		f.worker.On("EnqueueTask", ctx, TaskUpsert, mock.Anything).Return(nil).Once()

		earlier := time.Date(2024, 3, 9, 0, 0, 0, 0, testLoc)
		got, err := f.svc.UpdateBooking(ctx, 1, 0, BookingPatch{CheckOutDate: &earlier})
		require.NoError(t, err)
		assert.Equal(t, float64(500), got.LateCheckoutFine.Amount)
		f.bus.AssertNotCalled(t, "PublishJSON", events.EventLateFineApplied, mock.Anything)
	})
}

func TestDeleteBooking(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.repo.On("GetBooking", ctx, int64(1)).Return(stored(models.StatusBooked), nil).Once()
	f.repo.On("SoftDeleteBooking", ctx, int64(1), "manager").Return(nil).Once()
	f.bus.On("PublishJSON", events.EventBookingDeleted, mock.Anything).Return(nil).Once()
	f.worker.On("EnqueueTask", ctx, TaskDelete, mock.MatchedBy(func(b *models.Booking) bool {
		return b.Deleted && b.BookingNo == "BK1710000000000"
	})).Return(nil).Once()

	require.NoError(t, f.svc.DeleteBooking(ctx, 1, "manager"))
	f.worker.AssertExpectations(t)
}

func TestListBookingsValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.ListBookings(ctx, models.BookingFilter{Status: "Gone"})
	assert.ErrorIs(t, err, ErrValidation)

	from := time.Date(2024, 3, 10, 0, 0, 0, 0, testLoc)
	_, err = f.svc.ListBookings(ctx, models.BookingFilter{From: from, To: from.AddDate(0, 0, -1)})
	assert.ErrorIs(t, err, ErrValidation)

	filter := models.BookingFilter{Status: models.StatusCheckedOut}
	f.repo.On("ListBookings", ctx, filter).Return([]*models.Booking{stored(models.StatusCheckedOut)}, nil).Once()
	list, err := f.svc.ListBookings(ctx, filter)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestServiceWorksWithoutBusOrWorker(t *testing.T) {
	logger := zerolog.New(io.Discard)
	repo := new(mockRepo)
	pipeline := billing.NewPipeline(billing.NewCodeAllocator(repo, 1), billing.NewScanSequencer(repo, "", testLoc), 1, &logger)
	svc := NewBookingService(repo, pipeline, nil, nil, FineDefaults{FinePerHour: 300, GracePeriodMinutes: 10}, testLoc, &logger)

	ctx := context.Background()
	repo.On("BookingNoExists", ctx, mock.Anything).Return(false, nil)
	repo.On("ListInvoiceNumbers", ctx).Return(nil, nil)
	repo.On("InsertBooking", ctx, mock.Anything).Return(nil)

	b := newBooking()
	require.NoError(t, svc.CreateBooking(ctx, b))
	assert.Equal(t, float64(300), b.LateCheckoutFine.FinePerHour)
	assert.Equal(t, 10, b.LateCheckoutFine.GracePeriodMinutes)
}
