package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/greenpay/greenpay/internal/auth"
	"github.com/greenpay/greenpay/internal/config"
	"github.com/greenpay/greenpay/internal/identity"
)

// Locals keys set by JWTAuth.
const (
	LocalUserID = "user_id"
	LocalRole   = "role"
)

// JWTAuth validates bearer tokens and checks the user's token version so
// logged-out tokens stop working immediately.
func JWTAuth(cfg config.Config, repo identity.Repository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])
		claims, err := auth.Parse(tokenStr, []byte(cfg.JWTSecret))
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}

		user, err := repo.FindByID(c.UserContext(), claims.Subject)
		if err != nil || user.TokenVersion != claims.TokenVersion {
			return fiber.NewError(http.StatusUnauthorized, "token invalidated")
		}

		c.Locals(LocalUserID, user.ID)
		c.Locals(LocalRole, user.Role)
		return c.Next()
	}
}

// RequireAdmin gates administrative routes on the role claim.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals(LocalRole).(string)
		if role != identity.RoleAdmin {
			return fiber.NewError(http.StatusForbidden, "admin access required")
		}
		return c.Next()
	}
}
