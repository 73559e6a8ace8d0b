package billing

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"hoteldesk/internal/models"

	"github.com/rs/zerolog"
)

const (
	InvoiceCounterKey = "hoteldesk:invoice_seq"

	counterCooldown = time.Minute
)

// InvoiceSequencer issues PREFIX/MM/NNN invoice numbers. NNN is global across months.
type InvoiceSequencer interface {
	Next(ctx context.Context, now time.Time) (string, error)
}

// InvoiceStore lists invoice numbers of non-deleted bookings.
type InvoiceStore interface {
	ListInvoiceNumbers(ctx context.Context) ([]string, error)
}

// ParseSequence returns the numeric third part of PREFIX/MM/NNN.
// Leading digits are taken as the value, so "007a" reads as 7.
func ParseSequence(invoice string) (int, bool) {
	parts := strings.Split(invoice, "/")
	if len(parts) != 3 {
		return 0, false
	}

	digits := strings.TrimLeft(parts[2], " \t")
	end := 0
	for end < len(digits) && digits[end] >= '0' && digits[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}

	n, err := strconv.Atoi(digits[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// FormatInvoice renders PREFIX/MM/NNN with at least three sequence digits.
func FormatInvoice(prefix string, month time.Month, seq int64) string {
	return fmt.Sprintf("%s/%02d/%03d", prefix, int(month), seq)
}

// MaxSequence is the highest well-formed sequence among numbers, 0 when there is none.
func MaxSequence(numbers []string) int64 {
	var highest int64
	for _, n := range numbers {
		seq, ok := ParseSequence(n)
		if ok && int64(seq) > highest {
			highest = int64(seq)
		}
	}
	return highest
}

// ScanSequencer derives the next number from a full scan of existing invoices.
type ScanSequencer struct {
	store  InvoiceStore
	prefix string
	loc    *time.Location
}

func NewScanSequencer(store InvoiceStore, prefix string, loc *time.Location) *ScanSequencer {
	if prefix == "" {
		prefix = models.DefaultInvoicePrefix
	}
	if loc == nil {
		loc = time.Local
	}
	return &ScanSequencer{store: store, prefix: prefix, loc: loc}
}

func (s *ScanSequencer) Next(ctx context.Context, now time.Time) (string, error) {
	highest, err := s.Max(ctx)
	if err != nil {
		return "", err
	}
	return FormatInvoice(s.prefix, now.In(s.loc).Month(), highest+1), nil
}

// Max scans the store for the current highest sequence.
func (s *ScanSequencer) Max(ctx context.Context) (int64, error) {
	numbers, err := s.store.ListInvoiceNumbers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list invoice numbers: %w", err)
	}
	return MaxSequence(numbers), nil
}

// SequenceCounter is an atomic counter. NextSequence never returns a value at or
// below floor; RewindSequence resets the counter to value and returns value+1.
type SequenceCounter interface {
	NextSequence(ctx context.Context, key string, floor int64) (int64, error)
	RewindSequence(ctx context.Context, key string, value int64) (int64, error)
}

// CounterSequencer issues numbers from an atomic counter and falls back to
// scanning while the counter is unavailable.
type CounterSequencer struct {
	counter SequenceCounter
	scan    *ScanSequencer
	key     string
	logger  *zerolog.Logger

	mu        sync.Mutex
	needsSync bool
	rewind    bool
	downUntil time.Time
	now       func() time.Time
}

func NewCounterSequencer(counter SequenceCounter, scan *ScanSequencer, logger *zerolog.Logger) *CounterSequencer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &CounterSequencer{
		counter:   counter,
		scan:      scan,
		key:       InvoiceCounterKey,
		logger:    logger,
		needsSync: true,
		now:       time.Now,
	}
}

func (c *CounterSequencer) Next(ctx context.Context, now time.Time) (string, error) {
	c.mu.Lock()
	down := c.now().Before(c.downUntil)
	resync := c.needsSync
	rewind := c.rewind
	c.mu.Unlock()

	if down {
		return c.scan.Next(ctx, now)
	}

	var floor int64
	if resync {
		highest, err := c.scan.Max(ctx)
		if err != nil {
			return "", err
		}
		floor = highest
	}

	var (
		seq int64
		err error
	)
	if rewind {
		seq, err = c.counter.RewindSequence(ctx, c.key, floor)
	} else {
		seq, err = c.counter.NextSequence(ctx, c.key, floor)
	}
	if err != nil {
		c.logger.Warn().Err(err).Msg("Invoice counter unavailable, falling back to scan")
		c.mu.Lock()
		c.downUntil = c.now().Add(counterCooldown)
		c.needsSync = true
		c.mu.Unlock()
		return c.scan.Next(ctx, now)
	}

	if resync {
		c.mu.Lock()
		c.needsSync = false
		c.rewind = false
		c.mu.Unlock()
	}
	return FormatInvoice(c.scan.prefix, now.In(c.scan.loc).Month(), seq), nil
}

// Invalidate forces the next call to reset the counter to the scanned maximum,
// so a number issued for a booking that was never stored is issued again.
func (c *CounterSequencer) Invalidate() {
	c.mu.Lock()
	c.needsSync = true
	c.rewind = true
	c.mu.Unlock()
}
