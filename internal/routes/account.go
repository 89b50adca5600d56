package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/greenpay/greenpay/internal/account"
)

// RegisterAccountRoutes wires the authenticated account endpoints.
func RegisterAccountRoutes(r fiber.Router, h *account.Handler) {
	r.Get("/me", h.Me)
	r.Get("/me/balance", h.Balance)
}
