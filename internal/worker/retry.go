package worker

import "time"

// RetryPolicy spaces out the attempts of a failing sync task.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryPolicy fills the zero fields of any policy handed to the worker.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:    5,
	InitialDelay:  2 * time.Second,
	MaxDelay:      time.Minute,
	BackoffFactor: 2,
}

func (r RetryPolicy) withDefaults() RetryPolicy {
	if r.MaxRetries <= 0 {
		r.MaxRetries = DefaultRetryPolicy.MaxRetries
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = DefaultRetryPolicy.InitialDelay
	}
	if r.MaxDelay <= 0 {
		r.MaxDelay = DefaultRetryPolicy.MaxDelay
	}
	if r.BackoffFactor < 1 {
		r.BackoffFactor = DefaultRetryPolicy.BackoffFactor
	}
	return r
}

// Exhausted reports whether a task that has now failed attempt times is dead.
func (r RetryPolicy) Exhausted(attempt int) bool {
	return attempt >= r.withDefaults().MaxRetries
}

// NextDelay is the pause after the attempt-th failure (1-based), capped at MaxDelay.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	r = r.withDefaults()
	d := r.InitialDelay
	for i := 1; i < attempt && d < r.MaxDelay; i++ {
		d = time.Duration(float64(d) * r.BackoffFactor)
	}
	if d > r.MaxDelay {
		d = r.MaxDelay
	}
	return d
}

// NextAttempt is when a task that failed at now for the attempt-th time runs again.
func (r RetryPolicy) NextAttempt(now time.Time, attempt int) time.Time {
	return now.Add(r.NextDelay(attempt))
}
