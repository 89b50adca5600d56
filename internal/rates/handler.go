package rates

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes rate lookup endpoints.
type Handler struct {
	resolver Resolver
}

// NewHandler constructs a rates handler.
func NewHandler(resolver Resolver) *Handler {
	return &Handler{resolver: resolver}
}

// Get resolves rates for a base currency against one or more targets,
// e.g. GET /rates?base=USD&targets=NGN,EUR.
func (h *Handler) Get(c *fiber.Ctx) error {
	base := strings.ToUpper(c.Query("base", "USD"))
	targetsParam := c.Query("targets")
	if targetsParam == "" {
		return fiber.NewError(http.StatusBadRequest, "targets query parameter is required")
	}
	targets := strings.Split(strings.ToUpper(targetsParam), ",")

	resolved, err := h.resolver.Rates(c.UserContext(), base, targets)
	if err != nil {
		if errors.Is(err, ErrRateUnavailable) {
			return fiber.NewError(http.StatusBadGateway, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	out := make(map[string]string, len(resolved))
	for code, rate := range resolved {
		out[code] = rate.String()
	}
	return c.JSON(fiber.Map{"base": base, "rates": out})
}
