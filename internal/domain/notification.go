package domain

import "time"

// DeliveryStatus is the outcome recorded for one notification attempt.
type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "SENT"
	DeliveryFailed DeliveryStatus = "FAILED"
)

// NotificationLog is a write-once audit row, updated only by the retry pass.
type NotificationLog struct {
	ID          int64
	UserID      *int64
	RecipientID string
	Category    string
	Title       string
	Body        string
	Status      DeliveryStatus
	Error       string
	RetryCount  int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
