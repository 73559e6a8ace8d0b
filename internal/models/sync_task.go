package models

import "time"

const (
	SyncPending   = "pending"
	SyncRetry     = "retry"
	SyncCompleted = "completed"
	SyncFailed    = "failed"
)

const (
	SyncTaskUpsert       = "upsert"
	SyncTaskDelete       = "delete"
	SyncTaskUpdateStatus = "update_status"
	SyncTaskResync       = "resync"
)

// SyncTask is a queued push of one booking to the Sheets register.
type SyncTask struct {
	ID          int64      `json:"id"`
	TaskType    string     `json:"task_type"`
	BookingID   int64      `json:"booking_id"`
	Payload     string     `json:"payload"`
	Status      string     `json:"status"`
	RetryCount  int        `json:"retry_count"`
	LastError   *string    `json:"last_error"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at"`
	NextRetryAt *time.Time `json:"next_retry_at"`
}

// Due reports whether the task may be picked up at now.
func (t *SyncTask) Due(now time.Time) bool {
	if t.Status != SyncPending && t.Status != SyncRetry {
		return false
	}
	return t.NextRetryAt == nil || !t.NextRetryAt.After(now)
}
