package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpdesk-line/repair-service/internal/domain"
)

// TicketFilter captures listing parameters.
type TicketFilter struct {
	OwnerID    *int64
	AssigneeID *int64
	Statuses   []domain.TicketStatus
	Urgencies  []domain.TicketUrgency
	SearchTerm *string
	Limit      int
	Offset     int
}

// TicketMutation edits the locked current state of a ticket and returns the
// log entry to append with it, or nil when nothing worth logging changed.
type TicketMutation func(ticket *domain.Ticket) (*domain.StatusLog, error)

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	// Create writes the ticket, its attachments and the initial status log
	// entry in one transaction.
	Create(ctx context.Context, ticket *domain.Ticket, initial *domain.StatusLog) error
	// Update locks the ticket row, hands the current state to mutate and writes
	// the result together with the returned log entry. Concurrent updates of
	// the same ticket are serialized by the row lock.
	Update(ctx context.Context, id int64, mutate TicketMutation) (*domain.Ticket, error)
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	GetByCode(ctx context.Context, code string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	CountByStatus(ctx context.Context, filter TicketFilter) (map[domain.TicketStatus]int, error)
	ListScheduled(ctx context.Context, from, to *time.Time) ([]domain.ScheduleItem, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `t.id, t.code, t.reporter_name, t.reporter_department, t.reporter_phone, t.reporter_line_id,
       t.category, t.title, t.description, t.location, t.urgency, t.status, t.assignee_id,
       t.scheduled_at, t.completed_at, t.cancelled_at, t.notes, t.user_id, t.created_at, t.updated_at,
       COALESCE(o.name, ''), COALESCE(a.name, '')`

const ticketFrom = `FROM repair_tickets t
        LEFT JOIN users o ON o.id = t.user_id
        LEFT JOIN users a ON a.id = t.assignee_id`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket, initial *domain.StatusLog) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const insertTicket = `
        INSERT INTO repair_tickets (code, reporter_name, reporter_department, reporter_phone, reporter_line_id,
            category, title, description, location, urgency, status, assignee_id, scheduled_at, notes, user_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
        RETURNING id, created_at, updated_at`
		if err := tx.QueryRow(ctx, insertTicket,
			ticket.Code,
			ticket.ReporterName,
			ticket.ReporterDepartment,
			ticket.ReporterPhone,
			ticket.ReporterLineID,
			ticket.Category,
			ticket.Title,
			ticket.Description,
			ticket.Location,
			ticket.Urgency,
			ticket.Status,
			ticket.AssigneeID,
			ticket.ScheduledAt,
			ticket.Notes,
			ticket.UserID,
		).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt); err != nil {
			return err
		}

		const insertAttachment = `
        INSERT INTO repair_attachments (ticket_id, file_name, locator, size_bytes, mime_type)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
		for i := range ticket.Attachments {
			att := &ticket.Attachments[i]
			att.TicketID = ticket.ID
			if err := tx.QueryRow(ctx, insertAttachment,
				att.TicketID,
				att.FileName,
				att.Locator,
				att.SizeBytes,
				att.MimeType,
			).Scan(&att.ID, &att.CreatedAt); err != nil {
				return err
			}
		}

		if initial != nil {
			initial.TicketID = ticket.ID
			if err := insertStatusLog(ctx, tx, initial); err != nil {
				return err
			}
			ticket.Logs = append(ticket.Logs, *initial)
		}
		return nil
	})
	return translateError(err)
}

func (r *ticketRepository) Update(ctx context.Context, id int64, mutate TicketMutation) (*domain.Ticket, error) {
	var ticket *domain.Ticket
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		lockQuery := `SELECT ` + ticketColumns + ` ` + ticketFrom + ` WHERE t.id=$1 FOR UPDATE OF t`
		rows, err := tx.Query(ctx, lockQuery, id)
		if err != nil {
			return err
		}
		tickets, err := scanTickets(rows)
		rows.Close()
		if err != nil {
			return err
		}
		if len(tickets) == 0 {
			return pgx.ErrNoRows
		}
		ticket = &tickets[0]

		entry, err := mutate(ticket)
		if err != nil {
			return err
		}
		if entry != nil {
			entry.TicketID = ticket.ID
			if err := insertStatusLog(ctx, tx, entry); err != nil {
				return err
			}
		}
		const query = `
        UPDATE repair_tickets SET status=$1, assignee_id=$2, scheduled_at=$3, completed_at=$4,
            cancelled_at=$5, notes=$6, updated_at=NOW()
        WHERE id=$7
        RETURNING updated_at`
		return tx.QueryRow(ctx, query,
			ticket.Status,
			ticket.AssigneeID,
			ticket.ScheduledAt,
			ticket.CompletedAt,
			ticket.CancelledAt,
			ticket.Notes,
			ticket.ID,
		).Scan(&ticket.UpdatedAt)
	})
	if err != nil {
		return nil, translateError(err)
	}
	return ticket, nil
}

func insertStatusLog(ctx context.Context, tx pgx.Tx, entry *domain.StatusLog) error {
	const query = `
        INSERT INTO repair_status_logs (ticket_id, status, comment, actor_id)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return tx.QueryRow(ctx, query,
		entry.TicketID,
		entry.Status,
		entry.Comment,
		entry.ActorID,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` ` + ticketFrom + ` WHERE t.id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByCode(ctx context.Context, code string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` ` + ticketFrom + ` WHERE t.code=$1`
	return r.fetchSingle(ctx, query, code)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &tickets[0], nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	where, args := filterClauses(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s %s WHERE %s ORDER BY t.created_at DESC, t.id DESC LIMIT %d OFFSET %d`,
		ticketColumns, ticketFrom, where, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) CountByStatus(ctx context.Context, filter TicketFilter) (map[domain.TicketStatus]int, error) {
	where, args := filterClauses(filter)
	query := fmt.Sprintf(`SELECT t.status, COUNT(*) FROM repair_tickets t WHERE %s GROUP BY t.status`, where)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.TicketStatus]int, len(domain.AllTicketStatuses))
	for _, status := range domain.AllTicketStatuses {
		counts[status] = 0
	}
	for rows.Next() {
		var (
			status domain.TicketStatus
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (r *ticketRepository) ListScheduled(ctx context.Context, from, to *time.Time) ([]domain.ScheduleItem, error) {
	clauses := []string{"scheduled_at IS NOT NULL"}
	args := []any{}
	if from != nil {
		args = append(args, *from)
		clauses = append(clauses, fmt.Sprintf("scheduled_at >= $%d", len(args)))
	}
	if to != nil {
		args = append(args, *to)
		clauses = append(clauses, fmt.Sprintf("scheduled_at <= $%d", len(args)))
	}
	query := fmt.Sprintf(`
        SELECT id, code, title, status, urgency, scheduled_at, location
        FROM repair_tickets WHERE %s ORDER BY scheduled_at ASC`, strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ScheduleItem
	for rows.Next() {
		var item domain.ScheduleItem
		if err := rows.Scan(
			&item.ID,
			&item.Code,
			&item.Title,
			&item.Status,
			&item.Urgency,
			&item.ScheduledAt,
			&item.Location,
		); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

func filterClauses(filter TicketFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		clauses = append(clauses, fmt.Sprintf("t.user_id=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("t.assignee_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("t.status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Urgencies) > 0 {
		placeholders := make([]string, len(filter.Urgencies))
		for i, urgency := range filter.Urgencies {
			args = append(args, urgency)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("t.urgency IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(t.title) LIKE %s OR LOWER(t.code) LIKE %s)", placeholder, placeholder))
	}
	return strings.Join(clauses, " AND "), args
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Code,
			&ticket.ReporterName,
			&ticket.ReporterDepartment,
			&ticket.ReporterPhone,
			&ticket.ReporterLineID,
			&ticket.Category,
			&ticket.Title,
			&ticket.Description,
			&ticket.Location,
			&ticket.Urgency,
			&ticket.Status,
			&ticket.AssigneeID,
			&ticket.ScheduledAt,
			&ticket.CompletedAt,
			&ticket.CancelledAt,
			&ticket.Notes,
			&ticket.UserID,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&ticket.OwnerName,
			&ticket.AssigneeName,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
