package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-line/repair-service/internal/api/dto"
	"github.com/helpdesk-line/repair-service/internal/auth"
	"github.com/helpdesk-line/repair-service/internal/domain"
	"github.com/helpdesk-line/repair-service/internal/service"
	apperrors "github.com/helpdesk-line/repair-service/pkg/util/errorutil"
)

// UsersHandler exposes account and LINE link endpoints.
type UsersHandler struct {
	auth     *service.AuthService
	identity *service.IdentityService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService, identityService *service.IdentityService) *UsersHandler {
	return &UsersHandler{auth: authService, identity: identityService}
}

// Register handles POST /api/auth/register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.UserRegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	user, token, exp, err := h.auth.RegisterUser(c.UserContext(), accountInput(req, domain.UserRoleUser))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": dto.AuthResponse{Token: token, ExpiresAt: exp, User: userResponse(user, nil)},
	})
}

// Login handles POST /api/auth/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.UserLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	user, token, exp, err := h.auth.LoginUser(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": dto.AuthResponse{Token: token, ExpiresAt: exp, User: userResponse(user, nil)},
	})
}

// Me handles GET /api/users/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	user, link, err := h.identity.GetUser(c.UserContext(), principal.UserID())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user, link)})
}

// CreateUser handles POST /api/users (admin).
func (h *UsersHandler) CreateUser(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	user, err := h.auth.CreateAccount(c.UserContext(), accountInput(req.UserRegisterRequest, domain.UserRole(req.Role)))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": userResponse(user, nil)})
}

// GetUser handles GET /api/users/:id (staff).
func (h *UsersHandler) GetUser(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	user, link, err := h.identity.GetUser(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user, link)})
}

// LinkLine handles PUT /api/users/:id/line-link (admin).
func (h *UsersHandler) LinkLine(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.LinkLineRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	link, err := h.identity.LinkAccount(c.UserContext(), id, req.LineUserID, req.DisplayName, req.Verified)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": linkResponse(link)})
}

// VerifyLink handles PATCH /api/users/:id/line-link/verify (admin).
func (h *UsersHandler) VerifyLink(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	link, err := h.identity.VerifyLink(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": linkResponse(link)})
}

func accountInput(req dto.UserRegisterRequest, role domain.UserRole) service.AccountInput {
	return service.AccountInput{
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		Role:       role,
		Department: req.Department,
		Phone:      req.Phone,
	}
}
