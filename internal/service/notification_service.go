package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/helpdesk-line/repair-service/internal/config"
	"github.com/helpdesk-line/repair-service/internal/domain"
	"github.com/helpdesk-line/repair-service/internal/events"
	"github.com/helpdesk-line/repair-service/internal/notify"
	"github.com/helpdesk-line/repair-service/internal/observability"
	"github.com/helpdesk-line/repair-service/internal/repository"
)

const (
	ReasonNotLinked    = "not linked"
	ReasonNoRecipients = "no recipients"
)

// DeliveryResult reports a send attempt. A false Success is an outcome, not
// an error, and callers never fail their own operation because of it.
type DeliveryResult struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
	Count   int    `json:"count"`
}

// RetrySummary reports one retry pass.
type RetrySummary struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// NotificationService renders and delivers LINE notifications and keeps the
// delivery log.
type NotificationService struct {
	users      repository.UserRepository
	links      repository.LineLinkRepository
	logs       repository.NotificationLogRepository
	client     notify.Client
	renderer   *notify.Renderer
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	cfg        config.NotificationConfig
}

// NotificationDependencies bundles collaborators for the notification service.
type NotificationDependencies struct {
	UserRepo     repository.UserRepository
	LinkRepo     repository.LineLinkRepository
	LogRepo      repository.NotificationLogRepository
	Client       notify.Client
	Renderer     *notify.Renderer
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	Metrics      *observability.Metrics
	Notification config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := deps.Notification
	if cfg.RetryBatchSize <= 0 {
		cfg.RetryBatchSize = 10
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.SupportRole == "" {
		cfg.SupportRole = string(domain.UserRoleIT)
	}
	renderer := deps.Renderer
	if renderer == nil {
		renderer = notify.NewRenderer(cfg)
	}
	return &NotificationService{
		users:      deps.UserRepo,
		links:      deps.LinkRepo,
		logs:       deps.LogRepo,
		client:     deps.Client,
		renderer:   renderer,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		metrics:    deps.Metrics,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to ticket lifecycle events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return errors.New("unexpected ticket_created payload")
	}
	result := n.BroadcastToRole(ctx, domain.UserRole(n.cfg.SupportRole), notify.NewTicketPayload{
		Code:         payload.Code,
		ReporterName: payload.ReporterName,
		Department:   payload.Department,
		Title:        payload.Title,
		Location:     payload.Location,
		Urgency:      payload.Urgency,
	})
	n.logOutcome("new ticket broadcast", event, result)
	return nil
}

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return errors.New("unexpected ticket_assigned payload")
	}
	result := n.SendToUser(ctx, payload.AssigneeID, notify.AssignmentPayload{
		Code:         payload.Code,
		Title:        payload.Title,
		ReporterName: payload.ReporterName,
		Urgency:      payload.Urgency,
		Action:       payload.Action,
	})
	n.logOutcome("assignment notice", event, result)
	return nil
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return errors.New("unexpected ticket_status_changed payload")
	}
	updatedAt := payload.UpdatedAt
	result := n.SendToUser(ctx, payload.OwnerID, notify.StatusUpdatePayload{
		Code:           payload.Code,
		Title:          payload.Title,
		Status:         payload.NewStatus,
		Remark:         payload.Remark,
		TechnicianName: payload.TechnicianName,
		NextStep:       nextStepFor(payload.NewStatus),
		UpdatedAt:      &updatedAt,
	})
	n.logOutcome("status update", event, result)
	return nil
}

func (n *NotificationService) logOutcome(kind string, event events.Event, result DeliveryResult) {
	if result.Success {
		n.logger.Debug(kind+" delivered", zap.Int64("ticket_id", event.TicketID), zap.Int("count", result.Count))
		return
	}
	n.logger.Info(kind+" not delivered", zap.Int64("ticket_id", event.TicketID), zap.String("reason", result.Reason))
}

// SendToUser delivers payload to one user if they hold a verified LINE link.
func (n *NotificationService) SendToUser(ctx context.Context, userID int64, payload notify.Payload) DeliveryResult {
	link, err := n.links.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DeliveryResult{Reason: ReasonNotLinked}
		}
		n.logger.Warn("line link lookup failed", zap.Int64("user_id", userID), zap.Error(err))
		return DeliveryResult{Reason: "link lookup failed"}
	}
	if !link.Verified() {
		return DeliveryResult{Reason: ReasonNotLinked}
	}

	title, body := payload.Summary()
	msg, err := n.renderer.Render(payload)
	if err == nil {
		err = n.client.Push(ctx, link.LineUserID, msg)
	}

	uid := userID
	entry := &domain.NotificationLog{
		UserID:      &uid,
		RecipientID: link.LineUserID,
		Category:    string(payload.Category()),
		Title:       title,
		Body:        body,
		Status:      domain.DeliverySent,
	}
	if err != nil {
		entry.Status = domain.DeliveryFailed
		entry.Error = err.Error()
		n.logger.Warn("notification push failed",
			zap.Int64("user_id", userID),
			zap.String("category", entry.Category),
			zap.Error(err))
	}
	n.writeLog(ctx, entry)

	if err != nil {
		return DeliveryResult{Reason: err.Error()}
	}
	return DeliveryResult{Success: true, Count: 1}
}

// BroadcastToRole delivers payload to every verified user of role through
// multicast calls of at most notify.MaxMulticastRecipients ids.
func (n *NotificationService) BroadcastToRole(ctx context.Context, role domain.UserRole, payload notify.Payload) DeliveryResult {
	recipients, err := n.users.ListRecipientsByRole(ctx, role)
	if err != nil {
		n.logger.Warn("recipient lookup failed", zap.String("role", string(role)), zap.Error(err))
		return DeliveryResult{Reason: "recipient lookup failed"}
	}
	if len(recipients) == 0 {
		return DeliveryResult{Reason: ReasonNoRecipients}
	}

	title, body := payload.Summary()
	msg, renderErr := n.renderer.Render(payload)

	delivered := 0
	var lastErr error
	for start := 0; start < len(recipients); start += notify.MaxMulticastRecipients {
		end := start + notify.MaxMulticastRecipients
		if end > len(recipients) {
			end = len(recipients)
		}
		batch := recipients[start:end]

		sendErr := renderErr
		if sendErr == nil {
			ids := make([]string, 0, len(batch))
			for _, recipient := range batch {
				ids = append(ids, recipient.LineUserID)
			}
			sendErr = n.client.Multicast(ctx, ids, msg)
		}
		if sendErr != nil {
			lastErr = sendErr
			n.logger.Warn("notification multicast failed",
				zap.String("role", string(role)),
				zap.Int("recipients", len(batch)),
				zap.Error(sendErr))
		} else {
			delivered += len(batch)
		}

		for _, recipient := range batch {
			uid := recipient.UserID
			entry := &domain.NotificationLog{
				UserID:      &uid,
				RecipientID: recipient.LineUserID,
				Category:    string(payload.Category()),
				Title:       title,
				Body:        body,
				Status:      domain.DeliverySent,
			}
			if sendErr != nil {
				entry.Status = domain.DeliveryFailed
				entry.Error = sendErr.Error()
			}
			n.writeLog(ctx, entry)
		}
	}

	if lastErr != nil {
		return DeliveryResult{Reason: lastErr.Error(), Count: delivered}
	}
	return DeliveryResult{Success: true, Count: delivered}
}

// RetryFailedNotifications re-sends one bounded batch of FAILED log entries
// as plain text. Entries that reached the retry limit are left alone.
func (n *NotificationService) RetryFailedNotifications(ctx context.Context) (RetrySummary, error) {
	var summary RetrySummary
	entries, err := n.logs.ListRetryable(ctx, n.cfg.MaxRetries, n.cfg.RetryBatchSize)
	if err != nil {
		return summary, err
	}
	for _, entry := range entries {
		summary.Attempted++
		var sendErr error
		recipient, err := n.currentRecipient(ctx, entry)
		if err != nil {
			sendErr = err
		} else {
			sendErr = n.client.Push(ctx, recipient, notify.RenderText(entry.Title, entry.Body, ""))
		}

		status, errText := domain.DeliverySent, ""
		if sendErr != nil {
			status, errText = domain.DeliveryFailed, sendErr.Error()
			summary.Failed++
		} else {
			summary.Succeeded++
		}
		n.metrics.RecordNotification(entry.Category, string(status))
		if err := n.logs.RecordRetry(ctx, entry.ID, status, errText); err != nil {
			n.logger.Warn("record retry failed", zap.Int64("log_id", entry.ID), zap.Error(err))
		}
	}
	if summary.Attempted > 0 {
		n.logger.Info("notification retry pass",
			zap.Int("attempted", summary.Attempted),
			zap.Int("succeeded", summary.Succeeded),
			zap.Int("failed", summary.Failed))
	}
	return summary, nil
}

// currentRecipient re-reads the user's link so a retry follows the latest
// binding and never reaches an id that was unlinked or unverified since.
func (n *NotificationService) currentRecipient(ctx context.Context, entry domain.NotificationLog) (string, error) {
	if entry.UserID == nil {
		return "", errors.New("delivery log has no user")
	}
	link, err := n.links.GetByUserID(ctx, *entry.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", errors.New(ReasonNotLinked)
		}
		return "", err
	}
	if !link.Verified() {
		return "", errors.New(ReasonNotLinked)
	}
	return link.LineUserID, nil
}

// SendAnnouncement sends a generic text message to one user.
func (n *NotificationService) SendAnnouncement(ctx context.Context, userID int64, title, body, link string) (DeliveryResult, error) {
	if _, err := n.users.GetByID(ctx, userID); err != nil {
		return DeliveryResult{}, mapNotFound(err, "user", map[string]any{"user_id": userID})
	}
	return n.SendToUser(ctx, userID, notify.GenericPayload{Title: title, Body: body, ActionURL: link}), nil
}

// ListLogs returns delivery log rows, newest first.
func (n *NotificationService) ListLogs(ctx context.Context, limit, offset int) ([]domain.NotificationLog, error) {
	return n.logs.List(ctx, limit, offset)
}

// ClearLogs removes every delivery log row.
func (n *NotificationService) ClearLogs(ctx context.Context) (int64, error) {
	return n.logs.DeleteAll(ctx)
}

func (n *NotificationService) writeLog(ctx context.Context, entry *domain.NotificationLog) {
	n.metrics.RecordNotification(entry.Category, string(entry.Status))
	if err := n.logs.Create(ctx, entry); err != nil {
		n.logger.Warn("write notification log failed",
			zap.String("recipient", entry.RecipientID),
			zap.String("status", string(entry.Status)),
			zap.Error(err))
	}
}

func nextStepFor(status domain.TicketStatus) string {
	switch status {
	case domain.TicketStatusInProgress:
		return "ช่างกำลังดำเนินการซ่อม"
	case domain.TicketStatusWaitingParts:
		return "รอการจัดหาอะไหล่"
	case domain.TicketStatusCompleted:
		return "กรุณาตรวจสอบอุปกรณ์"
	default:
		return ""
	}
}
