package handlers

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-line/repair-service/internal/api/dto"
	"github.com/helpdesk-line/repair-service/internal/domain"
	"github.com/helpdesk-line/repair-service/internal/service"
	"github.com/helpdesk-line/repair-service/internal/storage"
	apperrors "github.com/helpdesk-line/repair-service/pkg/util/errorutil"
)

const filesField = "files"

func parseID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid "+name, map[string]any{name: c.Params(name)})
	}
	return id, nil
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func pagination(c *fiber.Ctx) (limit, offset int) {
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	if pageSize > 200 {
		pageSize = 200
	}
	return pageSize, (page - 1) * pageSize
}

func splitCSV(val string) []string {
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToUpper(part))
		}
	}
	return out
}

func parseTicketQuery(c *fiber.Ctx) service.TicketListFilter {
	filter := service.TicketListFilter{}
	for _, status := range splitCSV(c.Query("status")) {
		filter.Statuses = append(filter.Statuses, domain.TicketStatus(status))
	}
	for _, urgency := range splitCSV(c.Query("urgency")) {
		filter.Urgencies = append(filter.Urgencies, domain.TicketUrgency(urgency))
	}
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		filter.SearchTerm = &q
	}
	if assignee, err := strconv.ParseInt(c.Query("assignee_id"), 10, 64); err == nil && assignee > 0 {
		filter.AssigneeID = &assignee
	}
	filter.Limit, filter.Offset = pagination(c)
	return filter
}

// readFiles collects uploaded files from a multipart request. Requests that
// are not multipart carry no files.
func readFiles(c *fiber.Ctx) ([]storage.File, error) {
	if !strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, apperrors.NewValidationError("invalid multipart payload", nil)
	}
	headers := form.File[filesField]
	files := make([]storage.File, 0, len(headers))
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			return nil, apperrors.NewValidationError("unreadable attachment", map[string]any{"file": header.Filename})
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, apperrors.NewValidationError("unreadable attachment", map[string]any{"file": header.Filename})
		}
		files = append(files, storage.File{
			Name:        header.Filename,
			ContentType: header.Header.Get(fiber.HeaderContentType),
			Data:        data,
		})
	}
	return files, nil
}

func ticketInput(req dto.CreateTicketRequest) service.TicketCreateInput {
	return service.TicketCreateInput{
		ReporterName:       req.ReporterName,
		ReporterDepartment: req.Department,
		ReporterPhone:      req.Phone,
		ReporterLineID:     req.LineID,
		Category:           req.Category,
		Title:              req.Title,
		Description:        req.Description,
		Location:           req.Location,
		Urgency:            req.Urgency,
		ScheduledAt:        req.ScheduledAt,
	}
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	attachments := make([]dto.AttachmentResponse, 0, len(ticket.Attachments))
	for _, att := range ticket.Attachments {
		attachments = append(attachments, dto.AttachmentResponse{
			ID:        att.ID,
			FileName:  att.FileName,
			MimeType:  att.MimeType,
			SizeBytes: att.SizeBytes,
			URL:       att.Locator,
		})
	}
	logs := make([]dto.StatusLogResponse, 0, len(ticket.Logs))
	for _, entry := range ticket.Logs {
		logs = append(logs, dto.StatusLogResponse{
			ID:        entry.ID,
			Status:    string(entry.Status),
			Comment:   entry.Comment,
			ActorID:   entry.ActorID,
			CreatedAt: entry.CreatedAt,
		})
	}
	return dto.TicketResponse{
		ID:           ticket.ID,
		Code:         ticket.Code,
		ReporterName: ticket.ReporterName,
		Department:   ticket.ReporterDepartment,
		Phone:        ticket.ReporterPhone,
		LineID:       ticket.ReporterLineID,
		Category:     string(ticket.Category),
		Title:        ticket.Title,
		Description:  ticket.Description,
		Location:     ticket.Location,
		Urgency:      string(ticket.Urgency),
		Status:       string(ticket.Status),
		AssigneeID:   ticket.AssigneeID,
		AssigneeName: ticket.AssigneeName,
		OwnerID:      ticket.UserID,
		OwnerName:    ticket.OwnerName,
		Notes:        ticket.Notes,
		ScheduledAt:  ticket.ScheduledAt,
		CompletedAt:  ticket.CompletedAt,
		CancelledAt:  ticket.CancelledAt,
		CreatedAt:    ticket.CreatedAt,
		UpdatedAt:    ticket.UpdatedAt,
		Attachments:  attachments,
		Logs:         logs,
	}
}

func ticketStatusResponse(ticket *domain.Ticket) dto.TicketStatusResponse {
	return dto.TicketStatusResponse{
		Code:        ticket.Code,
		Title:       ticket.Title,
		Category:    string(ticket.Category),
		Urgency:     string(ticket.Urgency),
		Status:      string(ticket.Status),
		ScheduledAt: ticket.ScheduledAt,
		CompletedAt: ticket.CompletedAt,
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
	}
}

func ticketResponses(tickets []domain.Ticket) []dto.TicketResponse {
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return items
}

func userResponse(user *domain.User, link *domain.LineLink) dto.UserResponse {
	resp := dto.UserResponse{
		ID:         user.ID,
		Name:       user.Name,
		Email:      user.Email,
		Role:       string(user.Role),
		Department: user.Department,
		Phone:      user.Phone,
		CreatedAt:  user.CreatedAt,
	}
	if link != nil {
		lr := linkResponse(link)
		resp.LineLink = &lr
	}
	return resp
}

func linkResponse(link *domain.LineLink) dto.LinkResponse {
	return dto.LinkResponse{
		LineUserID:  link.LineUserID,
		DisplayName: link.DisplayName,
		Status:      string(link.Status),
		VerifiedAt:  link.VerifiedAt,
	}
}
