package dto

import "time"

// SendNotificationRequest is an ad-hoc message to one user.
type SendNotificationRequest struct {
	UserID    int64  `json:"user_id" validate:"required,gt=0"`
	Title     string `json:"title" validate:"required,max=200"`
	Body      string `json:"body" validate:"required,max=2000"`
	ActionURL string `json:"action_url" validate:"omitempty,url"`
}

// NotificationLogResponse is one delivery log row.
type NotificationLogResponse struct {
	ID          int64     `json:"id"`
	UserID      *int64    `json:"user_id"`
	RecipientID string    `json:"recipient_id"`
	Category    string    `json:"category"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	RetryCount  int       `json:"retry_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
