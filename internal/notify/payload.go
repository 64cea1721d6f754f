package notify

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/helpdesk-line/repair-service/internal/domain"
)

// Category tags a notification for rendering and for the delivery log.
type Category string

const (
	CategoryNewTicket    Category = "NEW_TICKET"
	CategoryAssignment   Category = "ASSIGNMENT"
	CategoryStatusUpdate Category = "STATUS_UPDATE"
	CategoryGeneral      Category = "GENERAL"
)

// Payload is the closed set of notification shapes. Each variant has a
// dedicated render function.
type Payload interface {
	Category() Category
	// Summary is the plain title/body recorded in the delivery log and used
	// for text fallbacks.
	Summary() (title, body string)
	validate() error
}

// NewTicketPayload announces a new ticket to the support team.
type NewTicketPayload struct {
	Code         string
	ReporterName string
	Department   string
	Title        string
	Location     string
	Urgency      domain.TicketUrgency
}

func (NewTicketPayload) Category() Category { return CategoryNewTicket }

func (p NewTicketPayload) Summary() (string, string) {
	return "แจ้งซ่อมใหม่ " + p.Code, fmt.Sprintf("%s | %s | %s", p.Title, p.Location, urgencyLabel(p.Urgency))
}

func (p NewTicketPayload) validate() error {
	return requireFields(map[string]string{
		"code":         p.Code,
		"reporterName": p.ReporterName,
		"title":        p.Title,
		"location":     p.Location,
	})
}

// AssignmentAction distinguishes how a ticket reached its assignee.
type AssignmentAction string

const (
	ActionAssigned    AssignmentAction = "ASSIGNED"
	ActionTransferred AssignmentAction = "TRANSFERRED"
	ActionClaimed     AssignmentAction = "CLAIMED"
)

// DetermineAssignmentAction compares previous assignee, new assignee and actor.
// A staff member taking the ticket for themselves is a claim even when it was
// previously held by someone else.
func DetermineAssignmentAction(previous *int64, next, actor int64) AssignmentAction {
	switch {
	case actor == next:
		return ActionClaimed
	case previous != nil && *previous != next:
		return ActionTransferred
	default:
		return ActionAssigned
	}
}

// AssignmentPayload tells a technician a ticket is now theirs.
type AssignmentPayload struct {
	Code         string
	Title        string
	ReporterName string
	Urgency      domain.TicketUrgency
	Action       AssignmentAction
}

func (AssignmentPayload) Category() Category { return CategoryAssignment }

func (p AssignmentPayload) Summary() (string, string) {
	return assignmentHeadline(p.Action) + " " + p.Code, fmt.Sprintf("%s | ผู้แจ้ง %s", p.Title, p.ReporterName)
}

func (p AssignmentPayload) validate() error {
	if err := requireFields(map[string]string{"code": p.Code, "title": p.Title}); err != nil {
		return err
	}
	switch p.Action {
	case ActionAssigned, ActionTransferred, ActionClaimed:
		return nil
	}
	return fmt.Errorf("unknown assignment action %q", p.Action)
}

// StatusUpdatePayload informs the ticket owner of progress. Every field but
// Code and Status is optional.
type StatusUpdatePayload struct {
	Code           string
	Title          string
	Status         domain.TicketStatus
	Remark         string
	TechnicianName string
	NextStep       string
	UpdatedAt      *time.Time
}

func (StatusUpdatePayload) Category() Category { return CategoryStatusUpdate }

func (p StatusUpdatePayload) Summary() (string, string) {
	body := StatusLabel(p.Status)
	if p.Remark != "" {
		body += " | " + p.Remark
	}
	return "อัปเดตสถานะ " + p.Code, body
}

func (p StatusUpdatePayload) validate() error {
	if err := requireFields(map[string]string{"code": p.Code}); err != nil {
		return err
	}
	if !p.Status.Valid() {
		return fmt.Errorf("unknown status %q", p.Status)
	}
	return nil
}

// GenericPayload is a plain announcement with an optional link.
type GenericPayload struct {
	Title       string
	Body        string
	ActionURL   string
	ActionLabel string
}

func (GenericPayload) Category() Category { return CategoryGeneral }

func (p GenericPayload) Summary() (string, string) { return p.Title, p.Body }

func (p GenericPayload) validate() error {
	if strings.TrimSpace(p.Title) == "" && strings.TrimSpace(p.Body) == "" {
		return errors.New("title or body required")
	}
	return nil
}

func requireFields(fields map[string]string) error {
	var missing []string
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("missing payload fields: %s", strings.Join(missing, ", "))
}
