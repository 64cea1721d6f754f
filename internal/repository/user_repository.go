package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpdesk-line/repair-service/internal/domain"
)

// UserRepository defines persistence access for accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	// CreateWithLink provisions a user together with its LINE binding.
	CreateWithLink(ctx context.Context, user *domain.User, link *domain.LineLink) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// ListRecipientsByRole returns users of role holding a verified LINE link.
	ListRecipientsByRole(ctx context.Context, role domain.UserRole) ([]domain.Recipient, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const insertUserQuery = `
        INSERT INTO users (name, email, password_hash, role, department, phone)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	err := r.pool.QueryRow(ctx, insertUserQuery,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.Department,
		user.Phone,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	return translateError(err)
}

func (r *userRepository) CreateWithLink(ctx context.Context, user *domain.User, link *domain.LineLink) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, insertUserQuery,
			user.Name,
			user.Email,
			user.PasswordHash,
			user.Role,
			user.Department,
			user.Phone,
		).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return err
		}
		link.UserID = user.ID
		return tx.QueryRow(ctx, insertLinkQuery,
			link.UserID,
			link.LineUserID,
			link.DisplayName,
			link.Status,
			link.VerifiedAt,
		).Scan(&link.ID, &link.CreatedAt, &link.UpdatedAt)
	})
	return translateError(err)
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	const query = `
        SELECT id, name, email, password_hash, role, department, phone, created_at, updated_at
        FROM users WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `
        SELECT id, name, email, password_hash, role, department, phone, created_at, updated_at
        FROM users WHERE email=$1`
	return r.fetchSingle(ctx, query, email)
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.Department,
		&user.Phone,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) ListRecipientsByRole(ctx context.Context, role domain.UserRole) ([]domain.Recipient, error) {
	const query = `
        SELECT u.id, u.name, l.line_user_id
        FROM users u JOIN line_links l ON l.user_id = u.id
        WHERE u.role=$1 AND l.status=$2 AND l.line_user_id <> ''
        ORDER BY u.id ASC`
	rows, err := r.pool.Query(ctx, query, role, domain.LinkStatusVerified)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Recipient
	for rows.Next() {
		var recipient domain.Recipient
		if err := rows.Scan(&recipient.UserID, &recipient.Name, &recipient.LineUserID); err != nil {
			return nil, err
		}
		result = append(result, recipient)
	}
	return result, rows.Err()
}
