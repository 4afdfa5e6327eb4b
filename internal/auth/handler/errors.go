package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	autherror "github.com/harshsingh-chauhan/Gyan-setu-backend/internal/errors"
	authconstant "github.com/harshsingh-chauhan/Gyan-setu-backend/pkg/constant"
)

const genericErrorMessage = "internal server error"

var statusByKind = map[autherror.Kind]int{
	autherror.KindInvalidTenantCode:   fiber.StatusBadRequest,
	autherror.KindDuplicateIdentity:   fiber.StatusConflict,
	autherror.KindInvalidCredentials:  fiber.StatusUnauthorized,
	autherror.KindAccountLocked:       fiber.StatusLocked,
	autherror.KindInvalidRefreshToken: fiber.StatusUnauthorized,
	autherror.KindAccountNotFound:     fiber.StatusNotFound,
	autherror.KindRateLimited:         fiber.StatusTooManyRequests,
}

// respondError maps a service error onto a status code and body. Infrastructure
// faults are logged in full and answered with a generic message only.
func (h *AuthHandler) respondError(c *fiber.Ctx, err error) error {
	kind := autherror.KindOf(err)

	if autherror.IsInfrastructure(err) {
		h.logger.Error("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"kind", kind,
			"error", err,
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": genericErrorMessage,
			"code":  kind,
		})
	}

	body := fiber.Map{
		"error": err.Error(),
		"code":  kind,
	}

	var locked *autherror.AccountLockedError
	if errors.As(err, &locked) {
		c.Set(authconstant.HeaderRetryAfter, strconv.Itoa(locked.RetryAfterSeconds))
		body["retry_after_seconds"] = locked.RetryAfterSeconds
	}

	status, ok := statusByKind[kind]
	if !ok {
		status = fiber.StatusBadRequest
	}
	return c.Status(status).JSON(body)
}
