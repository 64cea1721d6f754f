package dto

import "time"

// CreateTicketRequest carries reporter fields. Form tags let the same struct
// bind multipart submissions.
type CreateTicketRequest struct {
	ReporterName string     `json:"reporter_name" form:"reporter_name" validate:"max=120"`
	Department   string     `json:"department" form:"department" validate:"max=120"`
	Phone        string     `json:"phone" form:"phone" validate:"max=40"`
	LineID       string     `json:"line_id" form:"line_id" validate:"max=80"`
	Category     string     `json:"category" form:"category"`
	Title        string     `json:"title" form:"title" validate:"required,max=200"`
	Description  string     `json:"description" form:"description" validate:"max=4000"`
	Location     string     `json:"location" form:"location" validate:"required,max=200"`
	Urgency      string     `json:"urgency" form:"urgency"`
	ScheduledAt  *time.Time `json:"scheduled_at" form:"-"`
}

// LiffTicketRequest is a LIFF submission; identity comes from the body.
type LiffTicketRequest struct {
	CreateTicketRequest
	LineUserID  string `json:"line_user_id" form:"line_user_id" validate:"max=80"`
	DisplayName string `json:"display_name" form:"display_name" validate:"max=120"`
}

// UpdateTicketRequest lists staff-editable fields; omitted fields are unchanged.
type UpdateTicketRequest struct {
	Status      *string    `json:"status" validate:"omitempty,oneof=PENDING IN_PROGRESS WAITING_PARTS COMPLETED CANCELLED"`
	AssigneeID  *int64     `json:"assignee_id" validate:"omitempty,gt=0"`
	Unassign    bool       `json:"unassign"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	Notes       *string    `json:"notes" validate:"omitempty,max=4000"`
	Comment     string     `json:"comment" validate:"max=1000"`
}

// CancelTicketRequest optionally explains a cancellation.
type CancelTicketRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

// TicketResponse is the full ticket view.
type TicketResponse struct {
	ID           int64                `json:"id"`
	Code         string               `json:"code"`
	ReporterName string               `json:"reporter_name"`
	Department   string               `json:"department"`
	Phone        string               `json:"phone"`
	LineID       string               `json:"line_id,omitempty"`
	Category     string               `json:"category"`
	Title        string               `json:"title"`
	Description  string               `json:"description"`
	Location     string               `json:"location"`
	Urgency      string               `json:"urgency"`
	Status       string               `json:"status"`
	AssigneeID   *int64               `json:"assignee_id"`
	AssigneeName string               `json:"assignee_name,omitempty"`
	OwnerID      int64                `json:"owner_id"`
	OwnerName    string               `json:"owner_name,omitempty"`
	Notes        string               `json:"notes,omitempty"`
	ScheduledAt  *time.Time           `json:"scheduled_at"`
	CompletedAt  *time.Time           `json:"completed_at"`
	CancelledAt  *time.Time           `json:"cancelled_at"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
	Attachments  []AttachmentResponse `json:"attachments"`
	Logs         []StatusLogResponse  `json:"logs"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID        int64  `json:"id"`
	FileName  string `json:"file_name"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
	URL       string `json:"url"`
}

// StatusLogResponse is one lifecycle entry.
type StatusLogResponse struct {
	ID        int64     `json:"id"`
	Status    string    `json:"status"`
	Comment   string    `json:"comment"`
	ActorID   *int64    `json:"actor_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TicketStatusResponse is the public status view served by code. It carries
// no reporter contact details, attachments or history.
type TicketStatusResponse struct {
	Code        string     `json:"code"`
	Title       string     `json:"title"`
	Category    string     `json:"category"`
	Urgency     string     `json:"urgency"`
	Status      string     `json:"status"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ScheduleItemResponse is a calendar entry.
type ScheduleItemResponse struct {
	ID          int64     `json:"id"`
	Code        string    `json:"code"`
	Title       string    `json:"title"`
	Status      string    `json:"status"`
	Urgency     string    `json:"urgency"`
	Location    string    `json:"location"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

// AssignTicketRequest hands a ticket to a staff member.
type AssignTicketRequest struct {
	AssigneeID int64  `json:"assignee_id" validate:"required,gt=0"`
	Comment    string `json:"comment" validate:"max=1000"`
}
