package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/greenpay/greenpay/internal/account"
	"github.com/greenpay/greenpay/internal/identity"
	"github.com/greenpay/greenpay/internal/ledger"
)

// RegisterAdminRoutes wires the back-office endpoints. The caller mounts
// these behind the admin role check.
func RegisterAdminRoutes(r fiber.Router, accounts *account.Handler, ids *identity.Handler, txns *ledger.Handler) {
	r.Get("/accounts", accounts.List)
	r.Get("/accounts/:accountId/transactions", txns.ListForAccount)
	r.Post("/kyc/:accountId/review", ids.ReviewKYC)
	r.Patch("/transactions/:id/status", txns.OverrideStatus)
}
