package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/supportdesk/ticketflow/internal/api/http/handlers"
	"github.com/supportdesk/ticketflow/internal/auth"
	"github.com/supportdesk/ticketflow/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	StaffTickets   *handlers.StaffTicketsHandler
	Rules          *handlers.RulesHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/users/register", cfg.Users.Register)
	authGroup.Post("/users/login", cfg.Users.Login)
	authGroup.Post("/staff/login", cfg.Users.StaffLogin)
	authGroup.Post("/password/change", cfg.AuthMiddleware.Handle, cfg.Users.ChangePassword)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireUser())
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/reopen", cfg.Tickets.ReopenTicket)

	staff := app.Group("/staff", cfg.AuthMiddleware.Handle, auth.RequireStaff())
	staff.Get("/tickets", cfg.StaffTickets.ListTickets)
	staff.Get("/tickets/:id", cfg.StaffTickets.GetTicket)
	staff.Patch("/tickets/:id", cfg.StaffTickets.UpdateTicket)
	staff.Get("/tickets/:id/history", cfg.StaffTickets.ListHistory)
	staff.Get("/tickets/:id/executions", cfg.StaffTickets.ListExecutions)
	staff.Get("/queue", cfg.StaffTickets.Queue)

	rules := staff.Group("/rules", auth.RequireStaffRole(domain.StaffRoleSupervisor, domain.StaffRoleAdmin))
	rules.Post("/", cfg.Rules.CreateRule)
	rules.Get("/", cfg.Rules.ListRules)
	rules.Get("/:id", cfg.Rules.GetRule)
	rules.Put("/:id", cfg.Rules.UpdateRule)
	rules.Post("/:id/toggle", cfg.Rules.ToggleRule)
	rules.Delete("/:id", cfg.Rules.DeleteRule)
	rules.Get("/:id/executions", cfg.Rules.ListRuleExecutions)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireStaffRole(domain.StaffRoleAdmin))
	admin.Post("/staff", cfg.Users.CreateStaff)
}
