package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/dmitrijs2005/auctionchat/internal/common"
	"github.com/dmitrijs2005/auctionchat/internal/server/services"
)

// jsonError writes the {"message": ...} body the client reads errors from.
func jsonError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"message": msg})
}

func statusFor(err error) (int, string) {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code, fe.Message
	case errors.Is(err, common.ErrValidation):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrTokenExpired):
		return fiber.StatusUnauthorized, "token expired"
	case errors.Is(err, common.ErrUnauthorized), errors.Is(err, common.ErrInvalidToken):
		return fiber.StatusUnauthorized, "unauthorized"
	case errors.Is(err, common.ErrForbidden):
		return fiber.StatusForbidden, "forbidden"
	case errors.Is(err, common.ErrNotFound):
		return fiber.StatusNotFound, "not found"
	case errors.Is(err, common.ErrAlreadyExists):
		return fiber.StatusConflict, "already exists"
	case errors.Is(err, services.ErrMediaDisabled):
		return fiber.StatusServiceUnavailable, err.Error()
	default:
		return fiber.StatusInternalServerError, "internal error"
	}
}

func (s *HTTPServer) errorHandler(c *fiber.Ctx, err error) error {
	status, msg := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		s.logger.Error(c.UserContext(), "request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return jsonError(c, status, msg)
}
