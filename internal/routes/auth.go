package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/greenpay/greenpay/internal/auth"
)

// RegisterAuthRoutes wires login and token refresh. The rate limiter guards
// the login endpoint only.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, rateLimiter fiber.Handler) {
	r.Post("/login", rateLimiter, h.Login)
	r.Post("/refresh", h.Refresh)
}
