package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/helpdesk-line/repair-service/internal/domain"
	"github.com/helpdesk-line/repair-service/internal/notify"
	"github.com/helpdesk-line/repair-service/internal/repository"
	"github.com/helpdesk-line/repair-service/internal/storage"
)

// memStore backs every fake repository so joins (owner/assignee names,
// verified recipients) behave like the SQL versions.
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	users    map[int64]*domain.User
	links    map[int64]*domain.LineLink
	tickets  map[int64]*domain.Ticket
	logs     map[int64][]domain.StatusLog
	atts     map[int64][]domain.Attachment
	notifs   []*domain.NotificationLog
	clock    time.Time
	failNext error
	// beforeUpdate runs once at the start of the next ticket update, standing
	// in for a write that commits just before the row lock is taken.
	beforeUpdate func()
}

func newMemStore() *memStore {
	return &memStore{
		users:   map[int64]*domain.User{},
		links:   map[int64]*domain.LineLink{},
		tickets: map[int64]*domain.Ticket{},
		logs:    map[int64][]domain.StatusLog{},
		atts:    map[int64][]domain.Attachment{},
		clock:   time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) addUser(name string, role domain.UserRole) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &domain.User{ID: m.id(), Name: name, Email: strings.ToLower(name) + "@example.com", Role: role}
	m.users[u.ID] = u
	return u
}

func (m *memStore) link(userID int64, lineID string, status domain.LinkStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[userID] = &domain.LineLink{ID: m.id(), UserID: userID, LineUserID: lineID, Status: status}
}

// users

type fakeUserRepo struct{ s *memStore }

func (r fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	user.ID = r.s.id()
	user.CreatedAt = r.s.tick()
	copied := *user
	r.s.users[user.ID] = &copied
	return nil
}

func (r fakeUserRepo) CreateWithLink(ctx context.Context, user *domain.User, link *domain.LineLink) error {
	r.s.mu.Lock()
	for _, existing := range r.s.links {
		if existing.LineUserID == link.LineUserID {
			r.s.mu.Unlock()
			return repository.ErrDuplicate
		}
	}
	r.s.mu.Unlock()
	if err := r.Create(ctx, user); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	link.ID = r.s.id()
	link.UserID = user.ID
	copied := *link
	r.s.links[user.ID] = &copied
	return nil
}

func (r fakeUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *u
	return &copied, nil
}

func (r fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r fakeUserRepo) ListRecipientsByRole(_ context.Context, role domain.UserRole) ([]domain.Recipient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Recipient
	for _, u := range r.s.users {
		link := r.s.links[u.ID]
		if u.Role == role && link.Verified() {
			out = append(out, domain.Recipient{UserID: u.ID, Name: u.Name, LineUserID: link.LineUserID})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// links

type fakeLinkRepo struct{ s *memStore }

func (r fakeLinkRepo) Create(_ context.Context, link *domain.LineLink) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	link.ID = r.s.id()
	copied := *link
	r.s.links[link.UserID] = &copied
	return nil
}

func (r fakeLinkRepo) Update(_ context.Context, link *domain.LineLink) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.links[link.UserID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *link
	r.s.links[link.UserID] = &copied
	return nil
}

func (r fakeLinkRepo) GetByUserID(_ context.Context, userID int64) (*domain.LineLink, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.links[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *l
	return &copied, nil
}

func (r fakeLinkRepo) GetByLineUserID(_ context.Context, lineUserID string) (*domain.LineLink, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, l := range r.s.links {
		if l.LineUserID == lineUserID {
			copied := *l
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

// tickets

type fakeTicketRepo struct{ s *memStore }

func (r fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket, initial *domain.StatusLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failNext != nil {
		err := r.s.failNext
		r.s.failNext = nil
		return err
	}
	for _, existing := range r.s.tickets {
		if existing.Code == ticket.Code {
			return repository.ErrDuplicate
		}
	}
	ticket.ID = r.s.id()
	ticket.CreatedAt = r.s.tick()
	ticket.UpdatedAt = ticket.CreatedAt
	for i := range ticket.Attachments {
		ticket.Attachments[i].ID = r.s.id()
		ticket.Attachments[i].TicketID = ticket.ID
	}
	r.s.atts[ticket.ID] = append([]domain.Attachment(nil), ticket.Attachments...)
	if initial != nil {
		initial.ID = r.s.id()
		initial.TicketID = ticket.ID
		initial.CreatedAt = ticket.CreatedAt
		r.s.logs[ticket.ID] = append(r.s.logs[ticket.ID], *initial)
		ticket.Logs = append(ticket.Logs, *initial)
	}
	copied := *ticket
	copied.Attachments, copied.Logs = nil, nil
	r.s.tickets[ticket.ID] = &copied
	return nil
}

func (r fakeTicketRepo) Update(_ context.Context, id int64, mutate repository.TicketMutation) (*domain.Ticket, error) {
	if hook := r.s.beforeUpdate; hook != nil {
		r.s.beforeUpdate = nil
		hook()
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	current := r.joined(stored)
	entry, err := mutate(&current)
	if err != nil {
		return nil, err
	}
	if entry != nil {
		entry.ID = r.s.id()
		entry.TicketID = id
		entry.CreatedAt = r.s.tick()
		r.s.logs[id] = append(r.s.logs[id], *entry)
	}
	stored.Status = current.Status
	stored.AssigneeID = current.AssigneeID
	stored.ScheduledAt = current.ScheduledAt
	stored.CompletedAt = current.CompletedAt
	stored.CancelledAt = current.CancelledAt
	stored.Notes = current.Notes
	stored.UpdatedAt = r.s.tick()
	current.UpdatedAt = stored.UpdatedAt
	return &current, nil
}

func (r fakeTicketRepo) joined(t *domain.Ticket) domain.Ticket {
	copied := *t
	if owner, ok := r.s.users[t.UserID]; ok {
		copied.OwnerName = owner.Name
	}
	copied.AssigneeName = ""
	if t.AssigneeID != nil {
		if a, ok := r.s.users[*t.AssigneeID]; ok {
			copied.AssigneeName = a.Name
		}
	}
	return copied
}

func (r fakeTicketRepo) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	joined := r.joined(t)
	return &joined, nil
}

func (r fakeTicketRepo) GetByCode(_ context.Context, code string) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.tickets {
		if t.Code == code {
			joined := r.joined(t)
			return &joined, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r fakeTicketRepo) matching(filter repository.TicketFilter) []domain.Ticket {
	var out []domain.Ticket
	for _, t := range r.s.tickets {
		if filter.OwnerID != nil && t.UserID != *filter.OwnerID {
			continue
		}
		if filter.AssigneeID != nil && (t.AssigneeID == nil || *t.AssigneeID != *filter.AssigneeID) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, t.Status) {
			continue
		}
		out = append(out, r.joined(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r fakeTicketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.matching(filter), nil
}

func (r fakeTicketRepo) CountByStatus(_ context.Context, filter repository.TicketFilter) (map[domain.TicketStatus]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := map[domain.TicketStatus]int{}
	for _, t := range r.matching(filter) {
		counts[t.Status]++
	}
	return counts, nil
}

func (r fakeTicketRepo) ListScheduled(_ context.Context, from, to *time.Time) ([]domain.ScheduleItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.ScheduleItem
	for _, t := range r.s.tickets {
		if t.ScheduledAt == nil {
			continue
		}
		if from != nil && t.ScheduledAt.Before(*from) {
			continue
		}
		if to != nil && t.ScheduledAt.After(*to) {
			continue
		}
		out = append(out, domain.ScheduleItem{ID: t.ID, Code: t.Code, Title: t.Title, Status: t.Status, Urgency: t.Urgency, ScheduledAt: *t.ScheduledAt, Location: t.Location})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func containsStatus(list []domain.TicketStatus, s domain.TicketStatus) bool {
	for _, candidate := range list {
		if candidate == s {
			return true
		}
	}
	return false
}

type fakeAttachmentRepo struct{ s *memStore }

func (r fakeAttachmentRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.Attachment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]domain.Attachment(nil), r.s.atts[ticketID]...), nil
}

type fakeStatusLogRepo struct{ s *memStore }

func (r fakeStatusLogRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.StatusLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]domain.StatusLog(nil), r.s.logs[ticketID]...), nil
}

// notification log

type fakeNotificationLogRepo struct{ s *memStore }

func (r fakeNotificationLogRepo) Create(_ context.Context, entry *domain.NotificationLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	entry.ID = r.s.id()
	entry.CreatedAt = r.s.tick()
	entry.UpdatedAt = entry.CreatedAt
	copied := *entry
	r.s.notifs = append(r.s.notifs, &copied)
	return nil
}

func (r fakeNotificationLogRepo) ListRetryable(_ context.Context, maxRetries, limit int) ([]domain.NotificationLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.NotificationLog
	for _, n := range r.s.notifs {
		if n.Status == domain.DeliveryFailed && n.RetryCount < maxRetries {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r fakeNotificationLogRepo) RecordRetry(_ context.Context, id int64, status domain.DeliveryStatus, errText string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, n := range r.s.notifs {
		if n.ID == id {
			n.Status = status
			n.Error = errText
			n.RetryCount++
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r fakeNotificationLogRepo) List(_ context.Context, limit, offset int) ([]domain.NotificationLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.NotificationLog
	for i := len(r.s.notifs) - 1; i >= 0; i-- {
		out = append(out, *r.s.notifs[i])
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r fakeNotificationLogRepo) DeleteAll(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := int64(len(r.s.notifs))
	r.s.notifs = nil
	return n, nil
}

func (m *memStore) notificationsWith(status domain.DeliveryStatus) []domain.NotificationLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.NotificationLog
	for _, n := range m.notifs {
		if n.Status == status {
			out = append(out, *n)
		}
	}
	return out
}

// collaborators

type fakeSequence struct {
	n   int64
	err error
}

func (f *fakeSequence) Next(context.Context, time.Time) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.n++
	return f.n, nil
}

type fakeStorage struct {
	saved []storage.File
	err   error
}

func (f *fakeStorage) Save(_ context.Context, file storage.File) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.saved = append(f.saved, file)
	return "/uploads/" + file.Name, nil
}

type sentMessage struct {
	to  []string
	msg notify.Message
}

type fakeClient struct {
	mu         sync.Mutex
	pushes     []sentMessage
	multicasts []sentMessage
	err        error
}

func (f *fakeClient) Push(_ context.Context, to string, msg notify.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes = append(f.pushes, sentMessage{to: []string{to}, msg: msg})
	return f.err
}

func (f *fakeClient) Multicast(_ context.Context, to []string, msg notify.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.multicasts = append(f.multicasts, sentMessage{to: append([]string(nil), to...), msg: msg})
	return f.err
}

func (f *fakeClient) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pushes) + len(f.multicasts)
}

var errChannelDown = errors.New("line api unavailable")
