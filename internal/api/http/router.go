package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/bugtrack/internal/api/http/handlers"
	"github.com/spec-kit/bugtrack/internal/auth"
	"github.com/spec-kit/bugtrack/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	api := app.Group("/api", cfg.AuthMiddleware.Handle)

	api.Get("/users/me", cfg.Users.Me)
	api.Get("/users/:id", cfg.Users.Get)
	api.Post("/users", auth.RequireRole(domain.RoleAdmin), cfg.Users.Create)

	api.Post("/tickets", cfg.Tickets.Create)
	api.Get("/tickets/:id", cfg.Tickets.Get)
	api.Post("/tickets/:id/dev-report", cfg.Tickets.SubmitDevReport)
	api.Post("/tickets/:id/qa-review", cfg.Tickets.SubmitQAReview)
	api.Post("/tickets/:id/regression", cfg.Tickets.SubmitRegression)
}
