package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/re4388/event-sourcing0/internal/account"
)

// RegisterAccountRoutes wires account command, query, and recovery endpoints.
func RegisterAccountRoutes(r fiber.Router, h *account.Handler) {
	r.Post("/accounts", h.Create)
	r.Post("/accounts/:id/deposit", h.Deposit)
	r.Post("/accounts/:id/withdraw", h.Withdraw)
	r.Get("/accounts/:id", h.State)
	r.Get("/accounts/:id/events", h.Events)
	r.Post("/admin/read-models/rebuild", h.RebuildReadModels)
}
