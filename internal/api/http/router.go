package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Chat           *handlers.ChatHandler
	Intelligence   *handlers.IntelligenceHandler
	Stats          *handlers.StatsHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Post("/password/change", cfg.AuthMiddleware.Handle, cfg.Users.ChangePassword)

	users := app.Group("/users", cfg.AuthMiddleware.Handle)
	users.Get("/me", cfg.Users.Me)
	users.Get("/agents", auth.RequireAgent(), cfg.Users.ListAgents)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Post("", cfg.Tickets.Create)
	tickets.Get("", cfg.Tickets.List)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Patch("/:id/status", auth.RequireAgent(), cfg.Tickets.UpdateStatus)
	tickets.Patch("/:id/assign", auth.RequireAgent(), cfg.Tickets.Assign)
	tickets.Post("/:id/reopen", cfg.Tickets.Reopen)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
	tickets.Post("/:id/feedback", cfg.Tickets.SubmitFeedback)
	tickets.Get("/:id/risk", cfg.Intelligence.TicketRisk)
	tickets.Get("/:id/recommendations", auth.RequireAgent(), cfg.Intelligence.Recommendations)

	chatGroup := app.Group("/chat", cfg.AuthMiddleware.Handle)
	chatGroup.Post("/sessions", cfg.Chat.StartSession)
	chatGroup.Get("/sessions/:id/messages", cfg.Chat.History)
	chatGroup.Post("", cfg.Chat.Message)

	intel := app.Group("/intelligence", cfg.AuthMiddleware.Handle, auth.RequireAgent())
	intel.Get("/top-risky", cfg.Intelligence.TopRisky)

	stats := app.Group("/stats", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleAgent, domain.RoleAdmin))
	stats.Get("", cfg.Stats.Overview)
	stats.Get("/agents", cfg.Stats.AgentWorkload)
	stats.Get("/categories", cfg.Stats.Categories)
	stats.Get("/chat-turns", cfg.Stats.ChatTurns)
}
