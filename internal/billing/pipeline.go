package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hoteldesk/internal/database"
	"hoteldesk/internal/metrics"
	"hoteldesk/internal/models"

	"github.com/rs/zerolog"
)

const DefaultInsertRetries = 3

// InsertFunc durably writes a finalized booking.
type InsertFunc func(ctx context.Context, b *models.Booking) error

type invalidator interface {
	Invalidate()
}

// Pipeline finalizes generated identifiers and the late fine before a booking is written.
type Pipeline struct {
	codes         *CodeAllocator
	invoices      InvoiceSequencer
	insertRetries int
	logger        *zerolog.Logger
	now           func() time.Time
}

func NewPipeline(codes *CodeAllocator, invoices InvoiceSequencer, insertRetries int, logger *zerolog.Logger) *Pipeline {
	if insertRetries <= 0 {
		insertRetries = DefaultInsertRetries
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Pipeline{
		codes:         codes,
		invoices:      invoices,
		insertRetries: insertRetries,
		logger:        logger,
		now:           time.Now,
	}
}

// Finalize fills a missing booking number and invoice number, then applies any late fine.
// b is left untouched unless every step succeeds.
func (p *Pipeline) Finalize(ctx context.Context, b *models.Booking, now time.Time) (FineResult, error) {
	work := *b

	if work.BookingNo == "" {
		no, err := p.codes.Allocate(ctx)
		if err != nil {
			return FineResult{}, fmt.Errorf("allocate booking number: %w", err)
		}
		work.BookingNo = no
	}

	if work.InvoiceNumber == "" {
		inv, err := p.invoices.Next(ctx, now)
		if err != nil {
			return FineResult{}, fmt.Errorf("next invoice number: %w", err)
		}
		work.InvoiceNumber = inv
	}

	res, err := ApplyFine(&work, now)
	if err != nil {
		return FineResult{}, fmt.Errorf("late checkout fine: %w", err)
	}

	*b = work
	return res, nil
}

// Create finalizes b and inserts it. A uniqueness violation on a generated
// identifier clears that identifier and retries, up to the configured bound.
func (p *Pipeline) Create(ctx context.Context, b *models.Booking, insert InsertFunc) (FineResult, error) {
	generatedNo := b.BookingNo == ""
	generatedInvoice := b.InvoiceNumber == ""

	var lastErr error
	field := ""
	for attempt := 1; attempt <= p.insertRetries; attempt++ {
		work := *b
		res, err := p.Finalize(ctx, &work, p.now())
		if err != nil {
			return FineResult{}, err
		}

		err = insert(ctx, &work)
		if err == nil {
			*b = work
			return res, nil
		}

		// the invoice number issued for work was never stored
		if generatedInvoice {
			p.releaseInvoice()
		}

		var dup *database.DuplicateError
		if !errors.As(err, &dup) {
			return FineResult{}, err
		}

		switch {
		case dup.Field == FieldBookingNo && generatedNo:
		case dup.Field == FieldInvoiceNumber && generatedInvoice:
		default:
			return FineResult{}, err
		}

		metrics.IncCollision(dup.Field)
		p.logger.Warn().
			Str("field", dup.Field).
			Int("attempt", attempt).
			Msg("Generated identifier collided on insert, retrying")

		field = dup.Field
		lastErr = err
	}

	return FineResult{}, &CollisionError{Field: field, Attempts: p.insertRetries, Err: lastErr}
}

func (p *Pipeline) releaseInvoice() {
	if inv, ok := p.invoices.(invalidator); ok {
		inv.Invalidate()
	}
}
