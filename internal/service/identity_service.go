package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/helpdesk-line/repair-service/internal/auth"
	"github.com/helpdesk-line/repair-service/internal/domain"
	"github.com/helpdesk-line/repair-service/internal/repository"
	"github.com/helpdesk-line/repair-service/pkg/util/errorutil"
)

const (
	GuestEmail      = "guest@liff.local"
	guestName       = "LIFF Guest"
	liffEmailDomain = "@liff.local"
	defaultLiffName = "LINE User"
)

// IdentityService maps LIFF callers onto local accounts.
type IdentityService struct {
	users      repository.UserRepository
	links      repository.LineLinkRepository
	logger     *zap.Logger
	bcryptCost int
	autoVerify bool
	now        func() time.Time
}

// IdentityDependencies bundles collaborators for identity resolution.
type IdentityDependencies struct {
	UserRepo        repository.UserRepository
	LinkRepo        repository.LineLinkRepository
	Logger          *zap.Logger
	BcryptCost      int
	AutoVerifyLinks bool
}

// NewIdentityService builds the service.
func NewIdentityService(deps IdentityDependencies) *IdentityService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityService{
		users:      deps.UserRepo,
		links:      deps.LinkRepo,
		logger:     logger,
		bcryptCost: deps.BcryptCost,
		autoVerify: deps.AutoVerifyLinks,
		now:        time.Now,
	}
}

// ResolveLiffUser returns the owner for a LIFF submission. An existing link
// wins; an unknown LINE id provisions a user and link; anything else falls
// back to the shared guest account, which is created on first use.
func (s *IdentityService) ResolveLiffUser(ctx context.Context, lineUserID, displayName string) (*domain.User, error) {
	lineUserID = strings.TrimSpace(lineUserID)
	if lineUserID != "" {
		user, err := s.userForLineID(ctx, lineUserID, strings.TrimSpace(displayName))
		if err == nil {
			return user, nil
		}
		s.logger.Warn("liff identity resolution failed, using guest",
			zap.String("line_user_id", lineUserID),
			zap.Error(err))
	}
	return s.guest(ctx)
}

func (s *IdentityService) userForLineID(ctx context.Context, lineUserID, displayName string) (*domain.User, error) {
	link, err := s.links.GetByLineUserID(ctx, lineUserID)
	if err == nil {
		return s.users.GetByID(ctx, link.UserID)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	name := displayName
	if name == "" {
		name = defaultLiffName
	}
	hash, err := auth.HashPassword(uuid.NewString(), s.bcryptCost)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		Name:         name,
		Email:        "line_" + strings.ToLower(lineUserID) + liffEmailDomain,
		PasswordHash: hash,
		Role:         domain.UserRoleUser,
	}
	link = &domain.LineLink{
		LineUserID:  lineUserID,
		DisplayName: displayName,
		Status:      domain.LinkStatusUnverified,
	}
	if s.autoVerify {
		now := s.now()
		link.Status = domain.LinkStatusVerified
		link.VerifiedAt = &now
	}
	if err := s.users.CreateWithLink(ctx, user, link); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// A concurrent submission provisioned the same id first.
			if existing, lookupErr := s.links.GetByLineUserID(ctx, lineUserID); lookupErr == nil {
				return s.users.GetByID(ctx, existing.UserID)
			}
		}
		return nil, err
	}
	s.logger.Info("provisioned liff user", zap.Int64("user_id", user.ID), zap.String("link_status", string(link.Status)))
	return user, nil
}

func (s *IdentityService) guest(ctx context.Context) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, GuestEmail)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	hash, err := auth.HashPassword(uuid.NewString(), s.bcryptCost)
	if err != nil {
		return nil, err
	}
	user = &domain.User{
		Name:         guestName,
		Email:        GuestEmail,
		PasswordHash: hash,
		Role:         domain.UserRoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return s.users.GetByEmail(ctx, GuestEmail)
		}
		return nil, err
	}
	return user, nil
}

// FindByLineID returns the owner of an existing link without provisioning.
func (s *IdentityService) FindByLineID(ctx context.Context, lineUserID string) (*domain.User, error) {
	link, err := s.links.GetByLineUserID(ctx, strings.TrimSpace(lineUserID))
	if err != nil {
		return nil, mapNotFound(err, "line link", map[string]any{"line_user_id": lineUserID})
	}
	return s.users.GetByID(ctx, link.UserID)
}

// LinkAccount binds a LINE id to an existing user, replacing any earlier id.
func (s *IdentityService) LinkAccount(ctx context.Context, userID int64, lineUserID, displayName string, verified bool) (*domain.LineLink, error) {
	lineUserID = strings.TrimSpace(lineUserID)
	if lineUserID == "" {
		return nil, errorutil.NewValidationError("line user id required", nil)
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, mapNotFound(err, "user", map[string]any{"user_id": userID})
	}

	status := domain.LinkStatusUnverified
	var verifiedAt *time.Time
	if verified {
		now := s.now()
		status, verifiedAt = domain.LinkStatusVerified, &now
	}

	link, err := s.links.GetByUserID(ctx, userID)
	switch {
	case err == nil:
		link.LineUserID = lineUserID
		link.DisplayName = strings.TrimSpace(displayName)
		link.Status = status
		link.VerifiedAt = verifiedAt
		err = s.links.Update(ctx, link)
	case errors.Is(err, pgx.ErrNoRows):
		link = &domain.LineLink{
			UserID:      userID,
			LineUserID:  lineUserID,
			DisplayName: strings.TrimSpace(displayName),
			Status:      status,
			VerifiedAt:  verifiedAt,
		}
		err = s.links.Create(ctx, link)
	}
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, errorutil.NewConflict("line user id already linked", map[string]any{"line_user_id": lineUserID})
		}
		return nil, err
	}
	return link, nil
}

// VerifyLink marks a user's link as eligible for notifications.
func (s *IdentityService) VerifyLink(ctx context.Context, userID int64) (*domain.LineLink, error) {
	link, err := s.links.GetByUserID(ctx, userID)
	if err != nil {
		return nil, mapNotFound(err, "line link", map[string]any{"user_id": userID})
	}
	if link.Status == domain.LinkStatusVerified {
		return link, nil
	}
	now := s.now()
	link.Status = domain.LinkStatusVerified
	link.VerifiedAt = &now
	if err := s.links.Update(ctx, link); err != nil {
		return nil, err
	}
	return link, nil
}

// GetUser loads a user by id.
func (s *IdentityService) GetUser(ctx context.Context, userID int64) (*domain.User, *domain.LineLink, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, mapNotFound(err, "user", map[string]any{"user_id": userID})
	}
	link, err := s.links.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user, nil, nil
		}
		return nil, nil, err
	}
	return user, link, nil
}
