package events

import (
	"time"

	"github.com/helpdesk-line/repair-service/internal/domain"
	"github.com/helpdesk-line/repair-service/internal/notify"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketStatusChanged EventType = "ticket_status_changed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  int64       `json:"ticket_id"`
	ActorID   *int64      `json:"actor_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Code         string               `json:"code"`
	ReporterName string               `json:"reporter_name"`
	Department   string               `json:"department"`
	Title        string               `json:"title"`
	Location     string               `json:"location"`
	Urgency      domain.TicketUrgency `json:"urgency"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	Code               string                  `json:"code"`
	Title              string                  `json:"title"`
	ReporterName       string                  `json:"reporter_name"`
	Urgency            domain.TicketUrgency    `json:"urgency"`
	PreviousAssigneeID *int64                  `json:"previous_assignee_id,omitempty"`
	AssigneeID         int64                   `json:"assignee_id"`
	Action             notify.AssignmentAction `json:"action"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	Code           string              `json:"code"`
	Title          string              `json:"title"`
	OwnerID        int64               `json:"owner_id"`
	OldStatus      domain.TicketStatus `json:"old_status"`
	NewStatus      domain.TicketStatus `json:"new_status"`
	Remark         string              `json:"remark,omitempty"`
	TechnicianName string              `json:"technician_name,omitempty"`
	UpdatedAt      time.Time           `json:"updated_at"`
}
