package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-line/repair-service/internal/api/dto"
	"github.com/helpdesk-line/repair-service/internal/service"
	apperrors "github.com/helpdesk-line/repair-service/pkg/util/errorutil"
)

// LiffHandler serves the public submission surface opened inside LINE.
type LiffHandler struct {
	tickets  *service.TicketService
	identity *service.IdentityService
}

// NewLiffHandler constructs handler.
func NewLiffHandler(ticketService *service.TicketService, identityService *service.IdentityService) *LiffHandler {
	return &LiffHandler{tickets: ticketService, identity: identityService}
}

// Submit POST /api/liff/tickets.
func (h *LiffHandler) Submit(c *fiber.Ctx) error {
	var req dto.LiffTicketRequest
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

	owner, err := h.identity.ResolveLiffUser(c.UserContext(), req.LineUserID, req.DisplayName)
	if err != nil {
		return err
	}
	input := ticketInput(req.CreateTicketRequest)
	if input.ReporterLineID == "" {
		input.ReporterLineID = req.LineUserID
	}
	if input.ReporterName == "" {
		input.ReporterName = req.DisplayName
	}

	ticket, err := h.tickets.CreateTicket(c.UserContext(), owner, input, files)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ListMine GET /api/liff/tickets?line_user_id=.
func (h *LiffHandler) ListMine(c *fiber.Ctx) error {
	lineUserID := c.Query("line_user_id")
	if lineUserID == "" {
		return apperrors.NewValidationError("line_user_id required", nil)
	}
	owner, err := h.identity.FindByLineID(c.UserContext(), lineUserID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return c.JSON(fiber.Map{"data": []dto.TicketResponse{}})
		}
		return err
	}
	filter := parseTicketQuery(c)
	filter.OwnerID = &owner.ID
	filter.AssigneeID = nil
	tickets, err := h.tickets.ListTickets(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponses(tickets)})
}

// GetByCode GET /api/liff/tickets/:code. Codes are guessable, so the route
// is unauthenticated but only returns the status view.
func (h *LiffHandler) GetByCode(c *fiber.Ctx) error {
	ticket, err := h.tickets.GetTicketByCode(c.UserContext(), c.Params("code"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketStatusResponse(ticket)})
}
