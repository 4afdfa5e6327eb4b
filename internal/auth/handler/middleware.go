package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	autherror "github.com/harshsingh-chauhan/Gyan-setu-backend/internal/errors"
)

const (
	localUserID = "user_id"
	localRole   = "role"
)

// RequireRole admits only requests carrying a valid access token for role.
func (h *AuthHandler) RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(header, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing or malformed token"})
		}

		claims, err := h.tokenService.VerifyAccessToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
		}
		if claims.Role != role {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden"})
		}

		c.Locals(localUserID, claims.UserID)
		c.Locals(localRole, claims.Role)
		return c.Next()
	}
}

// RateLimit throttles credential endpoints per client IP.
func (h *AuthHandler) RateLimit() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if h.limiter == nil {
			return c.Next()
		}
		if err := h.limiter.CheckLimit(c.IP()); err != nil {
			c.Set(fiber.HeaderRetryAfter, "1")
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": err.Error(),
				"code":  autherror.KindOf(err),
			})
		}
		return c.Next()
	}
}
