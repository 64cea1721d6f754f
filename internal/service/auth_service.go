package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/helpdesk-line/repair-service/internal/auth"
	"github.com/helpdesk-line/repair-service/internal/config"
	"github.com/helpdesk-line/repair-service/internal/domain"
	"github.com/helpdesk-line/repair-service/internal/repository"
	"github.com/helpdesk-line/repair-service/pkg/util/errorutil"
)

// AuthService coordinates registration, login and staff account creation.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo repository.UserRepository
}

// AccountInput describes a new account.
type AccountInput struct {
	Name       string
	Email      string
	Password   string
	Role       domain.UserRole
	Department string
	Phone      string
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// RegisterUser creates a requester account and signs it in.
func (s *AuthService) RegisterUser(ctx context.Context, input AccountInput) (*domain.User, string, time.Time, error) {
	input.Role = domain.UserRoleUser
	user, err := s.createAccount(ctx, input)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// CreateAccount lets an administrator create an account with any role.
func (s *AuthService) CreateAccount(ctx context.Context, input AccountInput) (*domain.User, error) {
	if input.Role == "" {
		input.Role = domain.UserRoleUser
	}
	if !input.Role.Valid() {
		return nil, errorutil.NewValidationError("invalid role", map[string]any{"role": input.Role})
	}
	return s.createAccount(ctx, input)
}

// LoginUser authenticates by email and password.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, errorutil.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, errorutil.NewUnauthorized("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) createAccount(ctx context.Context, input AccountInput) (*domain.User, error) {
	email := normalizeEmail(input.Email)
	// LIFF guest and provisioned accounts live under this domain and are
	// looked up by email, so nobody may register into it.
	if strings.HasSuffix(email, liffEmailDomain) {
		return nil, errorutil.NewValidationError("email domain is reserved", map[string]any{"email": email})
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, errorutil.NewConflict("email already registered", map[string]any{"email": email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         input.Role,
		Department:   strings.TrimSpace(input.Department),
		Phone:        strings.TrimSpace(input.Phone),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, errorutil.NewConflict("email already registered", map[string]any{"email": email})
		}
		return nil, err
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
