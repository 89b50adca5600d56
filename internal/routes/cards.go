package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/greenpay/greenpay/internal/cards"
)

// RegisterCardRoutes wires virtual card management for the authenticated
// account.
func RegisterCardRoutes(r fiber.Router, h *cards.Handler) {
	r.Post("/cards", h.Issue)
	r.Get("/cards", h.Get)
	r.Patch("/cards/status", h.SetFrozen)
}
