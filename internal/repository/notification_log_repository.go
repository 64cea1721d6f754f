package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpdesk-line/repair-service/internal/domain"
)

// NotificationLogRepository persists delivery audit rows.
type NotificationLogRepository interface {
	Create(ctx context.Context, entry *domain.NotificationLog) error
	// ListRetryable returns FAILED rows with retry_count below maxRetries, oldest first.
	ListRetryable(ctx context.Context, maxRetries, limit int) ([]domain.NotificationLog, error)
	// RecordRetry stores the outcome of a retry attempt and increments retry_count.
	RecordRetry(ctx context.Context, id int64, status domain.DeliveryStatus, errText string) error
	List(ctx context.Context, limit, offset int) ([]domain.NotificationLog, error)
	DeleteAll(ctx context.Context) (int64, error)
}

type notificationLogRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationLogRepository builds repository.
func NewNotificationLogRepository(pool *pgxpool.Pool) NotificationLogRepository {
	return &notificationLogRepository{pool: pool}
}

const notificationLogColumns = `id, user_id, recipient_id, category, title, body, status, error, retry_count, created_at, updated_at`

func (r *notificationLogRepository) Create(ctx context.Context, entry *domain.NotificationLog) error {
	const query = `
        INSERT INTO notification_logs (user_id, recipient_id, category, title, body, status, error)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, retry_count, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		entry.UserID,
		entry.RecipientID,
		entry.Category,
		entry.Title,
		entry.Body,
		entry.Status,
		entry.Error,
	).Scan(&entry.ID, &entry.RetryCount, &entry.CreatedAt, &entry.UpdatedAt)
}

func (r *notificationLogRepository) ListRetryable(ctx context.Context, maxRetries, limit int) ([]domain.NotificationLog, error) {
	const query = `
        SELECT ` + notificationLogColumns + `
        FROM notification_logs
        WHERE status=$1 AND retry_count < $2
        ORDER BY created_at ASC, id ASC
        LIMIT $3`
	rows, err := r.pool.Query(ctx, query, domain.DeliveryFailed, maxRetries, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNotificationLogs(rows)
}

func (r *notificationLogRepository) RecordRetry(ctx context.Context, id int64, status domain.DeliveryStatus, errText string) error {
	const query = `
        UPDATE notification_logs SET status=$1, error=$2, retry_count=retry_count+1, updated_at=NOW()
        WHERE id=$3`
	cmd, err := r.pool.Exec(ctx, query, status, errText, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *notificationLogRepository) List(ctx context.Context, limit, offset int) ([]domain.NotificationLog, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT ` + notificationLogColumns + `
        FROM notification_logs ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNotificationLogs(rows)
}

func (r *notificationLogRepository) DeleteAll(ctx context.Context) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM notification_logs`)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func scanNotificationLogs(rows pgx.Rows) ([]domain.NotificationLog, error) {
	result := []domain.NotificationLog{}
	for rows.Next() {
		var entry domain.NotificationLog
		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.RecipientID,
			&entry.Category,
			&entry.Title,
			&entry.Body,
			&entry.Status,
			&entry.Error,
			&entry.RetryCount,
			&entry.CreatedAt,
			&entry.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
