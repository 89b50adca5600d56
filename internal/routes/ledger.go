package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/greenpay/greenpay/internal/ledger"
)

// RegisterLedgerRoutes wires transaction creation and history for the
// authenticated account.
func RegisterLedgerRoutes(r fiber.Router, h *ledger.Handler) {
	r.Post("/transactions", h.Create)
	r.Get("/transactions", h.List)
	r.Get("/transactions/:id", h.Get)
}
