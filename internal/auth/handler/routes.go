package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/harshsingh-chauhan/Gyan-setu-backend/internal/auth/domain"
)

func RegisterRoutes(app *fiber.App, h *AuthHandler) {
	api := app.Group("/api/v1")
	api.Get("/health", h.Health)

	auth := api.Group("/auth")
	auth.Post("/register", h.RateLimit(), h.Register)
	auth.Post("/login", h.RateLimit(), h.Login)
	auth.Post("/refresh", h.RateLimit(), h.Refresh)
	auth.Delete("/session", h.Logout)

	// Admin-only endpoints
	admin := api.Group("/admin", h.RequireRole(string(domain.RoleAdmin)))
	admin.Post("/accounts/:id/unlock", h.UnlockAccount)
}
