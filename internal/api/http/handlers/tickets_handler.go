package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-line/repair-service/internal/api/dto"
	"github.com/helpdesk-line/repair-service/internal/auth"
	"github.com/helpdesk-line/repair-service/internal/domain"
	"github.com/helpdesk-line/repair-service/internal/service"
	apperrors "github.com/helpdesk-line/repair-service/pkg/util/errorutil"
)

// TicketsHandler serves the authenticated ticket API. Requesters see their
// own tickets; IT and ADMIN see and change everything.
type TicketsHandler struct {
	service     *service.TicketService
	assignments *service.AssignmentService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, assignmentService *service.AssignmentService) *TicketsHandler {
	return &TicketsHandler{service: ticketService, assignments: assignmentService}
}

// CreateTicket POST /api/tickets (JSON or multipart with up to three files).
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ScheduledAt == nil {
		req.ScheduledAt = parseTime(c.FormValue("scheduled_at"))
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	files, err := readFiles(c)
	if err != nil {
		return err
	}

	ticket, err := h.service.CreateTicket(c.UserContext(), principal.User, ticketInput(req), files)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ListTickets GET /api/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	filter := parseTicketQuery(c)
	scopeToCaller(principal, &filter, c.Query("scope"))

	tickets, err := h.service.ListTickets(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponses(tickets)})
}

// GetTicket GET /api/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ticket, err := h.service.GetTicket(c.UserContext(), id)
	if err != nil {
		return err
	}
	if err := canView(principal, ticket); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// GetTicketByCode GET /api/tickets/code/:code.
func (h *TicketsHandler) GetTicketByCode(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	ticket, err := h.service.GetTicketByCode(c.UserContext(), c.Params("code"))
	if err != nil {
		return err
	}
	if err := canView(principal, ticket); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// UpdateTicket PATCH /api/tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status != nil {
		upper := strings.ToUpper(strings.TrimSpace(*req.Status))
		req.Status = &upper
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	if req.Unassign && req.AssigneeID != nil {
		return apperrors.NewValidationError("assignee_id and unassign are exclusive", nil)
	}

	changes := service.TicketChanges{
		AssigneeID:  req.AssigneeID,
		Unassign:    req.Unassign,
		ScheduledAt: req.ScheduledAt,
		Notes:       req.Notes,
		Comment:     req.Comment,
	}
	if req.Status != nil {
		status := domain.TicketStatus(*req.Status)
		changes.Status = &status
	}
	ticket, err := h.service.UpdateTicket(c.UserContext(), id, changes, principal.UserID())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// CancelTicket DELETE /api/tickets/:id. The ticket is kept with status CANCELLED.
func (h *TicketsHandler) CancelTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.CancelTicketRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
		if err := dto.Validate(req); err != nil {
			return err
		}
	}
	ticket, err := h.service.CancelTicket(c.UserContext(), id, principal.UserID(), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ClaimTicket POST /api/tickets/:id/claim.
func (h *TicketsHandler) ClaimTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ticket, err := h.assignments.ClaimTicket(c.UserContext(), principal.User, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// AssignTicket POST /api/tickets/:id/assign.
func (h *TicketsHandler) AssignTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	ticket, err := h.assignments.AssignTicket(c.UserContext(), principal.User, id, req.AssigneeID, req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Stats GET /api/tickets/stats.
func (h *TicketsHandler) Stats(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	filter := parseTicketQuery(c)
	filter.Statuses = nil
	scopeToCaller(principal, &filter, c.Query("scope"))

	stats, err := h.service.Stats(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}

// Schedule GET /api/tickets/schedule?from=&to=.
func (h *TicketsHandler) Schedule(c *fiber.Ctx) error {
	items, err := h.service.Schedule(c.UserContext(), parseTime(c.Query("from")), parseTime(c.Query("to")))
	if err != nil {
		return err
	}
	resp := make([]dto.ScheduleItemResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, dto.ScheduleItemResponse{
			ID:          item.ID,
			Code:        item.Code,
			Title:       item.Title,
			Status:      string(item.Status),
			Urgency:     string(item.Urgency),
			Location:    item.Location,
			ScheduledAt: item.ScheduledAt,
		})
	}
	return c.JSON(fiber.Map{"data": resp})
}

// scopeToCaller limits requesters to their own tickets. Staff may opt into
// their own queue with scope=mine.
func scopeToCaller(principal *auth.Principal, filter *service.TicketListFilter, scope string) {
	uid := principal.UserID()
	if !principal.IsStaff() {
		filter.OwnerID = &uid
		filter.AssigneeID = nil
		return
	}
	if scope == "mine" {
		filter.AssigneeID = &uid
	}
}

func canView(principal *auth.Principal, ticket *domain.Ticket) error {
	if principal.IsStaff() || ticket.UserID == principal.UserID() {
		return nil
	}
	return apperrors.NewForbidden("ticket belongs to another user")
}
