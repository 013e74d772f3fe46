package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/blogkit/auth-gateway/internal/api/http/handlers"
	"github.com/blogkit/auth-gateway/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health        *handlers.HealthHandler
	Auth          *handlers.AuthHandler
	Users         *handlers.UsersHandler
	Admin         *handlers.AdminHandler
	Authenticator *auth.Authenticator
}

// RegisterRoutes wires HTTP routes. The authenticator runs on every route
// before any handler; route-class guards then decide access per group.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Use(cfg.Authenticator.Handle)

	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/password/reset/request", cfg.Auth.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Auth.ConfirmPasswordReset)
	authGroup.Post("/password/change", auth.Require(auth.RouteClassAuthenticated), cfg.Auth.ChangePassword)

	users := app.Group("/users")
	users.Get("/me", auth.Require(auth.RouteClassAuthenticated), cfg.Users.Me)
	users.Get("/:username", cfg.Users.Profile)

	admin := app.Group("/admin", auth.Require(auth.RouteClassAdmin))
	admin.Get("/users", cfg.Admin.ListUsers)
	admin.Get("/users/:id", cfg.Admin.GetUser)
	admin.Put("/users/:id/ban", cfg.Admin.BanUser)
	admin.Put("/users/:id/unban", cfg.Admin.UnbanUser)
	admin.Put("/users/:id/role", cfg.Admin.SetRole)
	admin.Post("/users/:id/revoke-sessions", cfg.Admin.RevokeSessions)
	admin.Get("/stats", cfg.Admin.Stats)
}
