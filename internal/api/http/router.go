package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/praveen2025work/ticketapp-sub000/internal/api/http/handlers"
	"github.com/praveen2025work/ticketapp-sub000/internal/auth"
	"github.com/praveen2025work/ticketapp-sub000/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health     *handlers.HealthHandler
	Tickets    *handlers.TicketsHandler
	Approvals  *handlers.ApprovalsHandler
	Dashboard  *handlers.DashboardHandler
	Jobs       *handlers.JobsHandler
	Authorizer fiber.Handler
}

// NewApp builds the fiber app. Immutable makes params and body values safe to
// keep after the handler returns; services store ticket ids from the path.
func NewApp(name string) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:   name,
		Immutable: true,
	})
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	api := app.Group("/api/v1", cfg.Authorizer)

	tickets := api.Group("/tickets")
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)
	tickets.Post("/:id/status", cfg.Tickets.ChangeStatus)
	tickets.Delete("/:id", auth.RequireRole(domain.RoleAdmin), cfg.Tickets.DeleteTicket)
	tickets.Get("/:id/audit", cfg.Tickets.AuditTrail)
	tickets.Get("/:id/article", cfg.Tickets.GetArticle)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
	tickets.Get("/:id/comments", cfg.Tickets.ListComments)
	tickets.Post("/:id/approvals", cfg.Approvals.Submit)
	tickets.Get("/:id/approvals", cfg.Approvals.History)

	approvals := api.Group("/approvals")
	approvals.Get("/pending", cfg.Approvals.Pending)
	approvals.Post("/:id/approve", cfg.Approvals.Approve)
	approvals.Post("/:id/reject", cfg.Approvals.Reject)

	api.Get("/dashboard/summary", cfg.Dashboard.Summary)

	admin := api.Group("/admin", auth.RequireRole(domain.RoleAdmin))
	admin.Post("/jobs/:name/run", cfg.Jobs.Run)
}
