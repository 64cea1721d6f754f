package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpdesk-line/repair-service/internal/domain"
)

// StatusLogRepository reads the append-only ticket status log.
type StatusLogRepository interface {
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.StatusLog, error)
}

type statusLogRepository struct {
	pool *pgxpool.Pool
}

// NewStatusLogRepository builds repository.
func NewStatusLogRepository(pool *pgxpool.Pool) StatusLogRepository {
	return &statusLogRepository{pool: pool}
}

func (r *statusLogRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.StatusLog, error) {
	const query = `
        SELECT id, ticket_id, status, comment, actor_id, created_at
        FROM repair_status_logs WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.StatusLog{}
	for rows.Next() {
		var entry domain.StatusLog
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.Status,
			&entry.Comment,
			&entry.ActorID,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
