package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpdesk-line/repair-service/internal/domain"
)

// LineLinkRepository stores user to LINE identity bindings.
type LineLinkRepository interface {
	Create(ctx context.Context, link *domain.LineLink) error
	Update(ctx context.Context, link *domain.LineLink) error
	GetByUserID(ctx context.Context, userID int64) (*domain.LineLink, error)
	GetByLineUserID(ctx context.Context, lineUserID string) (*domain.LineLink, error)
}

type lineLinkRepository struct {
	pool *pgxpool.Pool
}

// NewLineLinkRepository instantiates the repository.
func NewLineLinkRepository(pool *pgxpool.Pool) LineLinkRepository {
	return &lineLinkRepository{pool: pool}
}

const insertLinkQuery = `
        INSERT INTO line_links (user_id, line_user_id, display_name, status, verified_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`

func (r *lineLinkRepository) Create(ctx context.Context, link *domain.LineLink) error {
	err := r.pool.QueryRow(ctx, insertLinkQuery,
		link.UserID,
		link.LineUserID,
		link.DisplayName,
		link.Status,
		link.VerifiedAt,
	).Scan(&link.ID, &link.CreatedAt, &link.UpdatedAt)
	return translateError(err)
}

func (r *lineLinkRepository) Update(ctx context.Context, link *domain.LineLink) error {
	const query = `
        UPDATE line_links SET line_user_id=$1, display_name=$2, status=$3, verified_at=$4, updated_at=NOW()
        WHERE id=$5`
	cmd, err := r.pool.Exec(ctx, query,
		link.LineUserID,
		link.DisplayName,
		link.Status,
		link.VerifiedAt,
		link.ID,
	)
	if err != nil {
		return translateError(err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *lineLinkRepository) GetByUserID(ctx context.Context, userID int64) (*domain.LineLink, error) {
	const query = `
        SELECT id, user_id, line_user_id, display_name, status, verified_at, created_at, updated_at
        FROM line_links WHERE user_id=$1`
	return r.fetchSingle(ctx, query, userID)
}

func (r *lineLinkRepository) GetByLineUserID(ctx context.Context, lineUserID string) (*domain.LineLink, error) {
	const query = `
        SELECT id, user_id, line_user_id, display_name, status, verified_at, created_at, updated_at
        FROM line_links WHERE line_user_id=$1`
	return r.fetchSingle(ctx, query, lineUserID)
}

func (r *lineLinkRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.LineLink, error) {
	var link domain.LineLink
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&link.ID,
		&link.UserID,
		&link.LineUserID,
		&link.DisplayName,
		&link.Status,
		&link.VerifiedAt,
		&link.CreatedAt,
		&link.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &link, nil
}
