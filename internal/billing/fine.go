package billing

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"hoteldesk/internal/models"
)

type FineInput struct {
	CheckOutDate       time.Time
	TimeOut            string
	ActualCheckOut     time.Time
	GracePeriodMinutes int
	FinePerHour        float64
}

type FineResult struct {
	MinutesLate     int
	ChargeableHours int
	Amount          float64
	Applied         bool
	// Anomalous is set when the checkout is more than a day late; no fine is charged.
	Anomalous bool
	AppliedAt time.Time
}

// ParseTimeOut parses a HH:MM time of day.
func ParseTimeOut(s string) (hour, minute int, err error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: time out %q is not HH:MM", ErrInvalidFineInput, s)
	}
	hour, herr := strconv.Atoi(h)
	minute, merr := strconv.Atoi(m)
	if herr != nil || merr != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: time out %q is not HH:MM", ErrInvalidFineInput, s)
	}
	return hour, minute, nil
}

// ExpectedCheckout combines the checkout calendar day with timeOut in the day's own location.
func ExpectedCheckout(checkOutDate time.Time, timeOut string) (time.Time, error) {
	if checkOutDate.IsZero() {
		return time.Time{}, fmt.Errorf("%w: missing check-out date", ErrInvalidFineInput)
	}
	hour, minute, err := ParseTimeOut(timeOut)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := checkOutDate.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, checkOutDate.Location()), nil
}

// ComputeFine charges FinePerHour for every started hour past the grace period.
// Zero grace or rate fall back to 15 minutes and 500.
func ComputeFine(in FineInput, now time.Time) (FineResult, error) {
	expected, err := ExpectedCheckout(in.CheckOutDate, in.TimeOut)
	if err != nil {
		return FineResult{}, err
	}

	diffMs := in.ActualCheckOut.UnixMilli() - expected.UnixMilli()
	if diffMs <= 0 {
		return FineResult{}, nil
	}

	grace := in.GracePeriodMinutes
	if grace == 0 {
		grace = models.DefaultGracePeriodMinutes
	}
	rate := in.FinePerHour
	if rate == 0 {
		rate = models.DefaultFinePerHour
	}

	res := FineResult{MinutesLate: int(math.Ceil(float64(diffMs) / 60000))}
	switch {
	case res.MinutesLate <= grace:
		return res, nil
	case res.MinutesLate > models.MaxLateMinutes:
		res.Anomalous = true
		return res, nil
	}

	res.ChargeableHours = int(math.Ceil(float64(res.MinutesLate-grace) / 60))
	res.Amount = float64(res.ChargeableHours) * rate
	res.Applied = true
	res.AppliedAt = now
	return res, nil
}

// ApplyFine computes the late checkout fine for a checked-out booking that has none yet.
// The fine sub-record is only touched when a fine is applied.
func ApplyFine(b *models.Booking, now time.Time) (FineResult, error) {
	f := &b.LateCheckoutFine
	if b.Status != models.StatusCheckedOut || b.ActualCheckOutTime == nil || f.Applied {
		return FineResult{}, nil
	}

	timeOut := b.TimeOut
	if timeOut == "" {
		timeOut = models.DefaultTimeOut
	}

	res, err := ComputeFine(FineInput{
		CheckOutDate:       b.CheckOutDate,
		TimeOut:            timeOut,
		ActualCheckOut:     *b.ActualCheckOutTime,
		GracePeriodMinutes: f.GracePeriodMinutes,
		FinePerHour:        f.FinePerHour,
	}, now)
	if err != nil || !res.Applied {
		return res, err
	}

	appliedAt := res.AppliedAt
	f.MinutesLate = res.MinutesLate
	f.Amount = res.Amount
	f.Applied = true
	f.AppliedAt = &appliedAt
	return res, nil
}
