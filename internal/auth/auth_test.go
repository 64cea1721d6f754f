package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/helpdesk-line/repair-service/internal/domain"
	apperrors "github.com/helpdesk-line/repair-service/pkg/util/errorutil"
)

type stubUsers struct {
	users map[int64]*domain.User
}

func (s stubUsers) Create(context.Context, *domain.User) error { return nil }

func (s stubUsers) CreateWithLink(context.Context, *domain.User, *domain.LineLink) error { return nil }

func (s stubUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, pgx.ErrNoRows
}

func (s stubUsers) GetByEmail(context.Context, string) (*domain.User, error) {
	return nil, pgx.ErrNoRows
}

func (s stubUsers) ListRecipientsByRole(context.Context, domain.UserRole) ([]domain.Recipient, error) {
	return nil, nil
}

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	token, exp, err := tm.GenerateToken(7, domain.UserRoleIT)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if time.Until(exp) > 5*time.Minute || time.Until(exp) < 4*time.Minute {
		t.Fatalf("unexpected expiry %v", exp)
	}

	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	meta := claims.Token()
	if meta.UserID != 7 || meta.Role != domain.UserRoleIT || meta.ID == "" || meta.ExpiresAt.IsZero() {
		t.Fatalf("unexpected token metadata %+v", meta)
	}

	if _, err := NewTokenManager("other", 5).ParseToken(token); err == nil {
		t.Fatal("token signed with another secret must be rejected")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret123", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if ComparePassword(hash, "secret123") != nil {
		t.Fatal("matching password rejected")
	}
	if ComparePassword(hash, "secret124") == nil {
		t.Fatal("wrong password accepted")
	}
}

func newGuardedApp(tm *TokenManager, users stubUsers) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.SendStatus(fiberErr.Code)
		}
		return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
	}})
	mw := NewAuthMiddleware(tm, users)
	app.Get("/me", mw.Handle, RequireAnyRole(), func(c *fiber.Ctx) error {
		principal, _ := PrincipalFromContext(c)
		return c.SendString(principal.User.Name)
	})
	app.Get("/staff", mw.Handle, RequireStaff(), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})
	return app
}

func TestAuthMiddleware(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	users := stubUsers{users: map[int64]*domain.User{
		1: {ID: 1, Name: "Somchai", Role: domain.UserRoleUser},
		2: {ID: 2, Name: "Tech", Role: domain.UserRoleIT},
	}}
	app := newGuardedApp(tm, users)

	requesterToken, _, _ := tm.GenerateToken(1, domain.UserRoleUser)
	// Role in the token is ignored; the stored role decides.
	promotedToken, _, _ := tm.GenerateToken(1, domain.UserRoleAdmin)
	techToken, _, _ := tm.GenerateToken(2, domain.UserRoleIT)
	ghostToken, _, _ := tm.GenerateToken(99, domain.UserRoleAdmin)

	cases := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"missing header", "/me", "", http.StatusUnauthorized},
		{"wrong scheme", "/me", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "/me", "Bearer abc", http.StatusUnauthorized},
		{"deleted user", "/me", "Bearer " + ghostToken, http.StatusUnauthorized},
		{"requester", "/me", "Bearer " + requesterToken, http.StatusOK},
		{"requester on staff route", "/staff", "Bearer " + requesterToken, http.StatusForbidden},
		{"stale admin claim", "/staff", "Bearer " + promotedToken, http.StatusForbidden},
		{"staff", "/staff", "Bearer " + techToken, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			if resp.StatusCode != tc.want {
				t.Fatalf("want %d, got %d", tc.want, resp.StatusCode)
			}
		})
	}
}
