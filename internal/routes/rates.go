package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/greenpay/greenpay/internal/rates"
)

// RegisterRateRoutes wires the rate lookup endpoint.
func RegisterRateRoutes(r fiber.Router, h *rates.Handler) {
	r.Get("/rates", h.Get)
}
