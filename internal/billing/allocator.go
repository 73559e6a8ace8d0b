package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hoteldesk/internal/metrics"

	"github.com/google/uuid"
)

const (
	DefaultCodeAttempts = 10
	codeRetryDelay      = time.Millisecond
)

// BookingNoStore reports whether a booking number is taken, including by deleted bookings.
type BookingNoStore interface {
	BookingNoExists(ctx context.Context, bookingNo string) (bool, error)
}

// CodeAllocator issues BK<unix-millis> booking numbers.
type CodeAllocator struct {
	store       BookingNoStore
	maxAttempts int
	now         func() time.Time
	delay       time.Duration
	suffix      func() string
}

func NewCodeAllocator(store BookingNoStore, maxAttempts int) *CodeAllocator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultCodeAttempts
	}
	return &CodeAllocator{
		store:       store,
		maxAttempts: maxAttempts,
		now:         time.Now,
		delay:       codeRetryDelay,
		suffix: func() string {
			return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
		},
	}
}

// Allocate returns a booking number not yet present in the store.
// Once the timestamp candidates are exhausted a single UUID-suffixed candidate is tried.
func (a *CodeAllocator) Allocate(ctx context.Context) (string, error) {
	var last string
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		last = fmt.Sprintf("BK%d", a.now().UnixMilli())
		free, err := a.free(ctx, last)
		if err != nil {
			return "", err
		}
		if free {
			return last, nil
		}

		metrics.IncCollision(FieldBookingNo)
		if err := sleep(ctx, a.delay); err != nil {
			return "", err
		}
	}

	fallback := fmt.Sprintf("%s-%s", last, a.suffix())
	free, err := a.free(ctx, fallback)
	if err != nil {
		return "", err
	}
	if free {
		return fallback, nil
	}

	metrics.IncCollision(FieldBookingNo)
	return "", &CollisionError{Field: FieldBookingNo, Attempts: a.maxAttempts + 1}
}

func (a *CodeAllocator) free(ctx context.Context, candidate string) (bool, error) {
	exists, err := a.store.BookingNoExists(ctx, candidate)
	if err != nil {
		return false, fmt.Errorf("check booking number %s: %w", candidate, err)
	}
	return !exists, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
