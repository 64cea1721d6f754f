package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-line/repair-service/internal/api/dto"
	"github.com/helpdesk-line/repair-service/internal/service"
	apperrors "github.com/helpdesk-line/repair-service/pkg/util/errorutil"
)

// NotificationsHandler exposes delivery log administration.
type NotificationsHandler struct {
	service *service.NotificationService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notificationService *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{service: notificationService}
}

// ListLogs GET /api/notifications/logs.
func (h *NotificationsHandler) ListLogs(c *fiber.Ctx) error {
	limit, offset := pagination(c)
	logs, err := h.service.ListLogs(c.UserContext(), limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.NotificationLogResponse, 0, len(logs))
	for _, entry := range logs {
		items = append(items, dto.NotificationLogResponse{
			ID:          entry.ID,
			UserID:      entry.UserID,
			RecipientID: entry.RecipientID,
			Category:    entry.Category,
			Title:       entry.Title,
			Body:        entry.Body,
			Status:      string(entry.Status),
			Error:       entry.Error,
			RetryCount:  entry.RetryCount,
			CreatedAt:   entry.CreatedAt,
			UpdatedAt:   entry.UpdatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// ClearLogs DELETE /api/notifications/logs.
func (h *NotificationsHandler) ClearLogs(c *fiber.Ctx) error {
	deleted, err := h.service.ClearLogs(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": deleted}})
}

// Retry POST /api/notifications/retry.
func (h *NotificationsHandler) Retry(c *fiber.Ctx) error {
	summary, err := h.service.RetryFailedNotifications(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summary})
}

// Send POST /api/notifications/send.
func (h *NotificationsHandler) Send(c *fiber.Ctx) error {
	var req dto.SendNotificationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	result, err := h.service.SendAnnouncement(c.UserContext(), req.UserID, req.Title, req.Body, req.ActionURL)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}
