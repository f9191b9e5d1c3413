package handler

import (
	"context"
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/harborchat/harbor-api/internal/middleware"
	"github.com/harborchat/harbor-api/internal/service"
	"github.com/harborchat/harbor-api/internal/utils"
)

// withRequestContext returns the request's user context with the correlation
// identifier attached.
func withRequestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

func parseIDParam(c *fiber.Ctx, key string) (uint, error) {
	raw := c.Params(key)
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(parsed), nil
}

// sendServiceError translates service failures into HTTP responses. Sentinel
// errors carry their own status; everything else is a 500.
func sendServiceError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrMessageEmpty),
		errors.Is(err, service.ErrMessageTooLong),
		errors.Is(err, service.ErrChannelNameInvalid),
		errors.Is(err, service.ErrGeneralChannelProtected):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrChannelExists):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrMessageNotFound),
		errors.Is(err, service.ErrChannelNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrUnauthenticated):
		return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrNotAdmin):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrUploadTooLarge):
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
	default:
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	}
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}
