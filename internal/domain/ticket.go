package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for repair tickets.
type TicketStatus string

const (
	TicketStatusPending      TicketStatus = "PENDING"
	TicketStatusInProgress   TicketStatus = "IN_PROGRESS"
	TicketStatusWaitingParts TicketStatus = "WAITING_PARTS"
	TicketStatusCompleted    TicketStatus = "COMPLETED"
	TicketStatusCancelled    TicketStatus = "CANCELLED"
)

// AllTicketStatuses lists statuses in lifecycle order.
var AllTicketStatuses = []TicketStatus{
	TicketStatusPending,
	TicketStatusInProgress,
	TicketStatusWaitingParts,
	TicketStatusCompleted,
	TicketStatusCancelled,
}

// Valid reports enum membership. Transitions between members are not guarded.
func (s TicketStatus) Valid() bool {
	for _, candidate := range AllTicketStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// Terminal reports whether the status ends the lifecycle.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusCompleted || s == TicketStatusCancelled
}

// TicketUrgency enumerates how quickly a ticket needs attention.
type TicketUrgency string

const (
	TicketUrgencyNormal   TicketUrgency = "NORMAL"
	TicketUrgencyUrgent   TicketUrgency = "URGENT"
	TicketUrgencyCritical TicketUrgency = "CRITICAL"
)

// ParseUrgency defaults unknown or empty values to NORMAL.
func ParseUrgency(raw string) TicketUrgency {
	switch u := TicketUrgency(strings.ToUpper(strings.TrimSpace(raw))); u {
	case TicketUrgencyNormal, TicketUrgencyUrgent, TicketUrgencyCritical:
		return u
	}
	return TicketUrgencyNormal
}

// TicketCategory is the closed set of problem categories.
type TicketCategory string

const (
	CategoryHardware TicketCategory = "HARDWARE"
	CategorySoftware TicketCategory = "SOFTWARE"
	CategoryNetwork  TicketCategory = "NETWORK"
	CategoryPrinter  TicketCategory = "PRINTER"
	CategoryEmail    TicketCategory = "EMAIL"
	CategoryAccount  TicketCategory = "ACCOUNT"
	CategoryOther    TicketCategory = "OTHER"
)

// ParseCategory defaults unknown values to OTHER.
func ParseCategory(raw string) TicketCategory {
	switch c := TicketCategory(strings.ToUpper(strings.TrimSpace(raw))); c {
	case CategoryHardware, CategorySoftware, CategoryNetwork, CategoryPrinter,
		CategoryEmail, CategoryAccount, CategoryOther:
		return c
	}
	return CategoryOther
}

// Ticket is the aggregate for repair requests.
type Ticket struct {
	ID   int64
	Code string

	ReporterName       string
	ReporterDepartment string
	ReporterPhone      string
	ReporterLineID     string

	Category    TicketCategory
	Title       string
	Description string
	Location    string
	Urgency     TicketUrgency

	Status      TicketStatus
	AssigneeID  *int64
	ScheduledAt *time.Time
	CompletedAt *time.Time
	CancelledAt *time.Time
	Notes       string

	UserID int64

	CreatedAt time.Time
	UpdatedAt time.Time

	// Populated by reads; not written back.
	OwnerName    string
	AssigneeName string
	Attachments  []Attachment
	Logs         []StatusLog
}

// Attachment is file metadata; the content lives behind Locator.
type Attachment struct {
	ID        int64
	TicketID  int64
	FileName  string
	Locator   string
	SizeBytes int64
	MimeType  string
	CreatedAt time.Time
}

// StatusLog is an append-only lifecycle entry.
type StatusLog struct {
	ID        int64
	TicketID  int64
	Status    TicketStatus
	Comment   string
	ActorID   *int64
	CreatedAt time.Time
}

// ScheduleItem is the projection used by the schedule view.
type ScheduleItem struct {
	ID          int64
	Code        string
	Title       string
	Status      TicketStatus
	Urgency     TicketUrgency
	ScheduledAt time.Time
	Location    string
}
