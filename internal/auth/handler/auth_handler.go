package handler

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/harshsingh-chauhan/Gyan-setu-backend/internal/auth/dto"
	"github.com/harshsingh-chauhan/Gyan-setu-backend/internal/auth/service"
	"github.com/harshsingh-chauhan/Gyan-setu-backend/internal/ratelimit"
)

type AuthHandler struct {
	authService  *service.AuthService
	tokenService service.TokenGenerator
	limiter      *ratelimit.RateLimiter
	logger       *slog.Logger
}

// NewAuthHandler wires the HTTP surface. limiter may be nil to disable rate limiting.
func NewAuthHandler(authService *service.AuthService, tokenService service.TokenGenerator,
	limiter *ratelimit.RateLimiter, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		authService:  authService,
		tokenService: tokenService,
		limiter:      limiter,
		logger:       logger,
	}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var input dto.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid input",
		})
	}
	if input.Email == "" || input.Password == "" || input.SchoolCode == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "email, password and school_code are required",
		})
	}

	input.IPAddress = c.IP()
	input.UserAgent = string(c.Request().Header.UserAgent())

	account, err := h.authService.Register(c.UserContext(), input)
	if err != nil {
		return h.respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(account)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input dto.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid input",
		})
	}

	// Capture metadata
	input.IPAddress = c.IP()
	input.UserAgent = string(c.Request().Header.UserAgent())

	tokens, err := h.authService.Login(c.UserContext(), input)
	if err != nil {
		return h.respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(tokens)
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var input dto.RefreshInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}

	input.IPAddress = c.IP()
	input.UserAgent = string(c.Request().Header.UserAgent())

	tokens, err := h.authService.Refresh(c.UserContext(), input)
	if err != nil {
		return h.respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(tokens)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var input dto.LogoutInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}

	if err := h.authService.Logout(c.UserContext(), input.RefreshToken); err != nil {
		return h.respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "logged out"})
}

// UnlockAccount is the admin override for a locked account.
func (h *AuthHandler) UnlockAccount(c *fiber.Ctx) error {
	accountID := c.Params("id")
	if err := h.authService.UnlockAccount(c.UserContext(), accountID); err != nil {
		return h.respondError(c, err)
	}

	h.logger.Info("admin unlocked account", "account_id", accountID, "admin_id", c.Locals(localUserID))
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "account unlocked"})
}

func (h *AuthHandler) Health(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
}
