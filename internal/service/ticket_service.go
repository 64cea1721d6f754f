package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/helpdesk-line/repair-service/internal/domain"
	"github.com/helpdesk-line/repair-service/internal/events"
	"github.com/helpdesk-line/repair-service/internal/notify"
	"github.com/helpdesk-line/repair-service/internal/repository"
	"github.com/helpdesk-line/repair-service/internal/storage"
	"github.com/helpdesk-line/repair-service/pkg/util/errorutil"
)

const (
	maxCodeAttempts  = 3
	maxLoggedLocator = 200
)

// TicketService coordinates repair ticket workflows.
type TicketService struct {
	tickets      repository.TicketRepository
	attachments  repository.AttachmentRepository
	statusLogs   repository.StatusLogRepository
	users        repository.UserRepository
	codes        repository.TicketCodeSequence
	files        storage.Storage
	dispatcher   events.Dispatcher
	logger       *zap.Logger
	maxFiles     int
	maxFileBytes int64
	now          func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	AttachmentRepo repository.AttachmentRepository
	StatusLogRepo  repository.StatusLogRepository
	UserRepo       repository.UserRepository
	CodeSequence   repository.TicketCodeSequence
	Storage        storage.Storage
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
	MaxFiles       int
	MaxFileBytes   int64
	Clock          func() time.Time
}

// TicketCreateInput describes the reporter-supplied fields of a new ticket.
type TicketCreateInput struct {
	ReporterName       string
	ReporterDepartment string
	ReporterPhone      string
	ReporterLineID     string
	Category           string
	Title              string
	Description        string
	Location           string
	Urgency            string
	ScheduledAt        *time.Time
}

// TicketChanges lists the fields staff may change. Nil fields are left as is.
type TicketChanges struct {
	Status      *domain.TicketStatus
	AssigneeID  *int64
	Unassign    bool
	ScheduledAt *time.Time
	Notes       *string
	Comment     string
	// StartIfPending moves a PENDING ticket to IN_PROGRESS when Status is nil.
	StartIfPending bool
	// RequireOpen rejects the update when the ticket is already closed.
	RequireOpen bool
}

// TicketListFilter describes listing filters.
type TicketListFilter struct {
	OwnerID    *int64
	AssigneeID *int64
	Statuses   []domain.TicketStatus
	Urgencies  []domain.TicketUrgency
	SearchTerm *string
	Limit      int
	Offset     int
}

// TicketStats counts tickets per status.
type TicketStats struct {
	Total    int                         `json:"total"`
	ByStatus map[domain.TicketStatus]int `json:"by_status"`
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &TicketService{
		tickets:      deps.TicketRepo,
		attachments:  deps.AttachmentRepo,
		statusLogs:   deps.StatusLogRepo,
		users:        deps.UserRepo,
		codes:        deps.CodeSequence,
		files:        deps.Storage,
		dispatcher:   deps.Dispatcher,
		logger:       logger,
		maxFiles:     deps.MaxFiles,
		maxFileBytes: deps.MaxFileBytes,
		now:          clock,
	}
}

// CreateTicket stores attachments, persists the ticket with its initial log
// entry and announces it to the support team.
func (s *TicketService) CreateTicket(ctx context.Context, submitter *domain.User, input TicketCreateInput, files []storage.File) (*domain.Ticket, error) {
	if submitter == nil {
		return nil, errorutil.NewUnauthorized("submitter required")
	}
	reporterName := strings.TrimSpace(input.ReporterName)
	if reporterName == "" {
		reporterName = submitter.Name
	}
	ticket := &domain.Ticket{
		ReporterName:       reporterName,
		ReporterDepartment: strings.TrimSpace(input.ReporterDepartment),
		ReporterPhone:      strings.TrimSpace(input.ReporterPhone),
		ReporterLineID:     strings.TrimSpace(input.ReporterLineID),
		Category:           domain.ParseCategory(input.Category),
		Title:              strings.TrimSpace(input.Title),
		Description:        strings.TrimSpace(input.Description),
		Location:           strings.TrimSpace(input.Location),
		Urgency:            domain.ParseUrgency(input.Urgency),
		Status:             domain.TicketStatusPending,
		ScheduledAt:        input.ScheduledAt,
		UserID:             submitter.ID,
		OwnerName:          submitter.Name,
	}
	if ticket.ReporterDepartment == "" {
		ticket.ReporterDepartment = submitter.Department
	}
	if ticket.ReporterPhone == "" {
		ticket.ReporterPhone = submitter.Phone
	}

	missing := map[string]any{}
	if ticket.ReporterName == "" {
		missing["reporter_name"] = "required"
	}
	if ticket.Title == "" {
		missing["title"] = "required"
	}
	if ticket.Location == "" {
		missing["location"] = "required"
	}
	if len(missing) > 0 {
		return nil, errorutil.NewValidationError("missing required ticket fields", missing)
	}
	if err := s.checkFiles(files); err != nil {
		return nil, err
	}

	for _, file := range files {
		locator, err := s.files.Save(ctx, file)
		if err != nil {
			s.logger.Error("attachment upload failed", zap.String("file", file.Name), zap.Error(err))
			s.logOrphans(ticket.Attachments, err)
			return nil, errorutil.NewDependencyError("file storage", err)
		}
		ticket.Attachments = append(ticket.Attachments, domain.Attachment{
			FileName:  file.Name,
			Locator:   locator,
			SizeBytes: int64(len(file.Data)),
			MimeType:  file.ContentType,
		})
	}

	actorID := submitter.ID
	var err error
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		ticket.Code = s.nextCode(ctx)
		ticket.Logs = nil
		initial := &domain.StatusLog{
			Status:  domain.TicketStatusPending,
			Comment: "ticket created",
			ActorID: &actorID,
		}
		err = s.tickets.Create(ctx, ticket, initial)
		if !errors.Is(err, repository.ErrDuplicate) {
			break
		}
		s.logger.Warn("ticket code collision", zap.String("code", ticket.Code))
	}
	if err != nil {
		s.logOrphans(ticket.Attachments, err)
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, errorutil.NewConflict("ticket code already in use", map[string]any{"code": ticket.Code})
		}
		return nil, err
	}
	ensureCollections(ticket)

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		ActorID:  &actorID,
		Payload: events.TicketCreatedPayload{
			Code:         ticket.Code,
			ReporterName: ticket.ReporterName,
			Department:   ticket.ReporterDepartment,
			Title:        ticket.Title,
			Location:     ticket.Location,
			Urgency:      ticket.Urgency,
		},
	})
	return ticket, nil
}

// UpdateTicket applies staff changes. A status or assignee change appends one
// log entry and notifies the affected people; other edits are silent.
// The change is computed against the locked row so concurrent edits never
// overwrite each other's status.
func (s *TicketService) UpdateTicket(ctx context.Context, ticketID int64, changes TicketChanges, actorID int64) (*domain.Ticket, error) {
	if changes.Status != nil && !changes.Status.Valid() {
		return nil, errorutil.NewValidationError("invalid status", map[string]any{"status": *changes.Status})
	}
	var assignee *domain.User
	if !changes.Unassign && changes.AssigneeID != nil {
		found, err := s.users.GetByID(ctx, *changes.AssigneeID)
		if err != nil {
			return nil, mapNotFound(err, "assignee", map[string]any{"assignee_id": *changes.AssigneeID})
		}
		assignee = found
	}

	var (
		oldStatus        domain.TicketStatus
		previousAssignee *int64
		nextAssignee     *int64
		statusChanged    bool
		action           notify.AssignmentAction
	)
	ticket, err := s.tickets.Update(ctx, ticketID, func(ticket *domain.Ticket) (*domain.StatusLog, error) {
		if changes.RequireOpen && ticket.Status.Terminal() {
			return nil, errorutil.NewConflict("ticket already closed", map[string]any{"status": ticket.Status})
		}
		oldStatus = ticket.Status
		previousAssignee = ticket.AssigneeID
		previousAssigneeName := ticket.AssigneeName

		nextStatus := oldStatus
		switch {
		case changes.Status != nil:
			nextStatus = *changes.Status
		case changes.StartIfPending && oldStatus == domain.TicketStatusPending:
			nextStatus = domain.TicketStatusInProgress
		}

		nextAssignee = previousAssignee
		nextAssigneeName := previousAssigneeName
		switch {
		case changes.Unassign:
			nextAssignee, nextAssigneeName = nil, ""
		case assignee != nil:
			id := assignee.ID
			nextAssignee, nextAssigneeName = &id, assignee.Name
		}

		statusChanged = nextStatus != oldStatus
		assigneeChanged := !sameID(previousAssignee, nextAssignee)
		action = ""
		if assigneeChanged && nextAssignee != nil {
			action = notify.DetermineAssignmentAction(previousAssignee, *nextAssignee, actorID)
		}

		now := s.now()
		if statusChanged {
			ticket.Status = nextStatus
			switch nextStatus {
			case domain.TicketStatusCompleted:
				ticket.CompletedAt = &now
			case domain.TicketStatusCancelled:
				ticket.CancelledAt = &now
			}
		}
		ticket.AssigneeID = nextAssignee
		ticket.AssigneeName = nextAssigneeName
		if changes.ScheduledAt != nil {
			ticket.ScheduledAt = changes.ScheduledAt
		}
		if changes.Notes != nil {
			ticket.Notes = strings.TrimSpace(*changes.Notes)
		}

		if !statusChanged && !assigneeChanged {
			return nil, nil
		}
		comment := strings.TrimSpace(changes.Comment)
		if comment == "" {
			comment = describeChange(oldStatus, nextStatus, statusChanged, assigneeChanged, action, previousAssigneeName, nextAssigneeName)
		}
		return &domain.StatusLog{
			Status:  nextStatus,
			Comment: comment,
			ActorID: actorRef(actorID),
		}, nil
	})
	if err != nil {
		return nil, mapNotFound(err, "ticket", map[string]any{"ticket_id": ticketID})
	}

	updated, err := s.hydrate(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}

	if action != "" {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketAssigned,
			TicketID: updated.ID,
			ActorID:  actorRef(actorID),
			Payload: events.TicketAssignedPayload{
				Code:               updated.Code,
				Title:              updated.Title,
				ReporterName:       updated.ReporterName,
				Urgency:            updated.Urgency,
				PreviousAssigneeID: previousAssignee,
				AssigneeID:         *nextAssignee,
				Action:             action,
			},
		})
	}
	if statusChanged {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: updated.ID,
			ActorID:  actorRef(actorID),
			Payload: events.TicketStatusChangedPayload{
				Code:           updated.Code,
				Title:          updated.Title,
				OwnerID:        updated.UserID,
				OldStatus:      oldStatus,
				NewStatus:      updated.Status,
				Remark:         strings.TrimSpace(changes.Comment),
				TechnicianName: updated.AssigneeName,
				UpdatedAt:      updated.UpdatedAt,
			},
		})
	}
	return updated, nil
}

// CancelTicket is the soft delete: the ticket stays queryable with status
// CANCELLED. Cancelling a cancelled ticket is a no-op.
func (s *TicketService) CancelTicket(ctx context.Context, ticketID int64, actorID int64, reason string) (*domain.Ticket, error) {
	status := domain.TicketStatusCancelled
	comment := strings.TrimSpace(reason)
	if comment == "" {
		comment = "ticket cancelled"
	}
	return s.UpdateTicket(ctx, ticketID, TicketChanges{Status: &status, Comment: comment}, actorID)
}

// GetTicket returns a ticket with its attachments and log history.
func (s *TicketService) GetTicket(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	return s.hydrate(ctx, ticketID)
}

// GetTicketByCode looks a ticket up by its human-readable code.
func (s *TicketService) GetTicketByCode(ctx context.Context, code string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, mapNotFound(err, "ticket", map[string]any{"code": code})
	}
	if err := s.loadChildren(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// ListTickets returns tickets newest first.
func (s *TicketService) ListTickets(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, error) {
	tickets, err := s.tickets.List(ctx, toRepoFilter(filter))
	if err != nil {
		return nil, err
	}
	if tickets == nil {
		tickets = []domain.Ticket{}
	}
	return tickets, nil
}

// Stats counts tickets per status within the filter scope.
func (s *TicketService) Stats(ctx context.Context, filter TicketListFilter) (*TicketStats, error) {
	counts, err := s.tickets.CountByStatus(ctx, toRepoFilter(filter))
	if err != nil {
		return nil, err
	}
	stats := &TicketStats{ByStatus: make(map[domain.TicketStatus]int, len(domain.AllTicketStatuses))}
	for _, status := range domain.AllTicketStatuses {
		stats.ByStatus[status] = counts[status]
		stats.Total += counts[status]
	}
	return stats, nil
}

// Schedule lists tickets with a scheduled visit inside the window.
func (s *TicketService) Schedule(ctx context.Context, from, to *time.Time) ([]domain.ScheduleItem, error) {
	if from != nil && to != nil && to.Before(*from) {
		return nil, errorutil.NewValidationError("schedule window ends before it starts", nil)
	}
	items, err := s.tickets.ListScheduled(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.ScheduleItem{}
	}
	return items, nil
}

func (s *TicketService) hydrate(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapNotFound(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	if err := s.loadChildren(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (s *TicketService) loadChildren(ctx context.Context, ticket *domain.Ticket) error {
	attachments, err := s.attachments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return err
	}
	logs, err := s.statusLogs.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return err
	}
	ticket.Attachments = attachments
	ticket.Logs = logs
	ensureCollections(ticket)
	return nil
}

func (s *TicketService) checkFiles(files []storage.File) error {
	if s.maxFiles > 0 && len(files) > s.maxFiles {
		return errorutil.NewValidationError("too many attachments", map[string]any{"max_files": s.maxFiles, "received": len(files)})
	}
	for _, file := range files {
		if s.maxFileBytes > 0 && int64(len(file.Data)) > s.maxFileBytes {
			return errorutil.NewValidationError("attachment too large", map[string]any{"file": file.Name, "max_bytes": s.maxFileBytes})
		}
	}
	return nil
}

// logOrphans records stored files whose ticket was never written so they can
// be removed from the backend by hand.
func (s *TicketService) logOrphans(attachments []domain.Attachment, cause error) {
	if len(attachments) == 0 {
		return
	}
	locators := make([]string, 0, len(attachments))
	for _, att := range attachments {
		locator := att.Locator
		if len(locator) > maxLoggedLocator {
			locator = locator[:maxLoggedLocator] + "..."
		}
		locators = append(locators, locator)
	}
	s.logger.Warn("stored attachments orphaned, ticket not persisted",
		zap.Strings("locators", locators),
		zap.Error(cause))
}

// nextCode returns REP-yyyymmdd-NNNN from the daily sequence, or an
// epoch-based code when the sequence is unavailable.
func (s *TicketService) nextCode(ctx context.Context) string {
	now := s.now()
	if s.codes != nil {
		seq, err := s.codes.Next(ctx, now)
		if err == nil {
			return fmt.Sprintf("REP-%s-%04d", now.Format("20060102"), seq)
		}
		s.logger.Warn("ticket code sequence unavailable", zap.Error(err))
	}
	return fmt.Sprintf("REP-%d", now.UnixMilli())
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func describeChange(oldStatus, newStatus domain.TicketStatus, statusChanged, assigneeChanged bool, action notify.AssignmentAction, previousName, nextName string) string {
	var parts []string
	if statusChanged {
		parts = append(parts, fmt.Sprintf("status changed from %s to %s", oldStatus, newStatus))
	}
	if assigneeChanged {
		switch action {
		case notify.ActionClaimed:
			parts = append(parts, "claimed by "+nextName)
		case notify.ActionTransferred:
			parts = append(parts, fmt.Sprintf("transferred from %s to %s", previousName, nextName))
		case notify.ActionAssigned:
			parts = append(parts, "assigned to "+nextName)
		default:
			parts = append(parts, "unassigned from "+previousName)
		}
	}
	return strings.Join(parts, "; ")
}

func toRepoFilter(filter TicketListFilter) repository.TicketFilter {
	return repository.TicketFilter{
		OwnerID:    filter.OwnerID,
		AssigneeID: filter.AssigneeID,
		Statuses:   filter.Statuses,
		Urgencies:  filter.Urgencies,
		SearchTerm: filter.SearchTerm,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
}

func ensureCollections(ticket *domain.Ticket) {
	if ticket.Attachments == nil {
		ticket.Attachments = []domain.Attachment{}
	}
	if ticket.Logs == nil {
		ticket.Logs = []domain.StatusLog{}
	}
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func actorRef(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}

func mapNotFound(err error, resource string, details map[string]any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return errorutil.NewNotFound(resource, details)
	}
	return err
}
