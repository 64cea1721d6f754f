package service

import (
	"context"

	"github.com/helpdesk-line/repair-service/internal/domain"
	"github.com/helpdesk-line/repair-service/internal/repository"
	apperrors "github.com/helpdesk-line/repair-service/pkg/util/errorutil"
)

// AssignmentService handles claim and assign shortcuts on top of the ticket
// lifecycle. Both end in TicketService.UpdateTicket so logging and
// notifications stay in one place.
type AssignmentService struct {
	tickets *TicketService
	users   repository.UserRepository
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	TicketService *TicketService
	UserRepo      repository.UserRepository
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{tickets: deps.TicketService, users: deps.UserRepo}
}

// ClaimTicket assigns the ticket to the acting staff member. A pending ticket
// moves to IN_PROGRESS in the same update.
func (s *AssignmentService) ClaimTicket(ctx context.Context, actor *domain.User, ticketID int64) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("staff required")
	}
	if !actor.Role.IsStaff() {
		return nil, apperrors.NewForbidden("insufficient role for claim")
	}
	actorID := actor.ID
	changes := TicketChanges{AssigneeID: &actorID, StartIfPending: true, RequireOpen: true}
	return s.tickets.UpdateTicket(ctx, ticketID, changes, actor.ID)
}

// AssignTicket hands the ticket to another staff member.
func (s *AssignmentService) AssignTicket(ctx context.Context, actor *domain.User, ticketID, assigneeID int64, comment string) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("staff required")
	}
	if !actor.Role.IsStaff() {
		return nil, apperrors.NewForbidden("insufficient role for assign")
	}
	assignee, err := s.users.GetByID(ctx, assigneeID)
	if err != nil {
		return nil, mapNotFound(err, "assignee", map[string]any{"assignee_id": assigneeID})
	}
	if !assignee.Role.IsStaff() {
		return nil, apperrors.NewValidationError("assignee must be IT or ADMIN", map[string]any{"assignee_id": assigneeID})
	}
	return s.tickets.UpdateTicket(ctx, ticketID, TicketChanges{AssigneeID: &assignee.ID, Comment: comment}, actor.ID)
}
