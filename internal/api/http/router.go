package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-line/repair-service/internal/api/http/handlers"
	"github.com/helpdesk-line/repair-service/internal/auth"
	"github.com/helpdesk-line/repair-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Liff           *handlers.LiffHandler
	Notifications  *handlers.NotificationsHandler
	AuthMiddleware *auth.AuthMiddleware
	// UploadsDir is served under UploadsPrefix when local storage is in use.
	UploadsDir    string
	UploadsPrefix string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	if cfg.UploadsDir != "" && cfg.UploadsPrefix != "" {
		app.Static(cfg.UploadsPrefix, cfg.UploadsDir)
	}

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	liff := api.Group("/liff")
	liff.Post("/tickets", cfg.Liff.Submit)
	liff.Get("/tickets", cfg.Liff.ListMine)
	liff.Get("/tickets/:code", cfg.Liff.GetByCode)

	protected := api.Group("", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	staff := auth.RequireStaff()
	admin := auth.RequireRole(domain.UserRoleAdmin)

	protected.Get("/users/me", cfg.Users.Me)
	protected.Post("/users", admin, cfg.Users.CreateUser)
	protected.Get("/users/:id", staff, cfg.Users.GetUser)
	protected.Put("/users/:id/line-link", admin, cfg.Users.LinkLine)
	protected.Patch("/users/:id/line-link/verify", admin, cfg.Users.VerifyLink)

	protected.Post("/tickets", cfg.Tickets.CreateTicket)
	protected.Get("/tickets", cfg.Tickets.ListTickets)
	protected.Get("/tickets/stats", cfg.Tickets.Stats)
	protected.Get("/tickets/schedule", staff, cfg.Tickets.Schedule)
	protected.Get("/tickets/code/:code", cfg.Tickets.GetTicketByCode)
	protected.Get("/tickets/:id", cfg.Tickets.GetTicket)
	protected.Patch("/tickets/:id", staff, cfg.Tickets.UpdateTicket)
	protected.Delete("/tickets/:id", staff, cfg.Tickets.CancelTicket)
	protected.Post("/tickets/:id/claim", staff, cfg.Tickets.ClaimTicket)
	protected.Post("/tickets/:id/assign", staff, cfg.Tickets.AssignTicket)

	protected.Get("/notifications/logs", admin, cfg.Notifications.ListLogs)
	protected.Delete("/notifications/logs", admin, cfg.Notifications.ClearLogs)
	protected.Post("/notifications/retry", admin, cfg.Notifications.Retry)
	protected.Post("/notifications/send", staff, cfg.Notifications.Send)
}
