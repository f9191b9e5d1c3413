package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/harborchat/harbor-api/internal/dto"
	"github.com/harborchat/harbor-api/internal/service"
	"github.com/harborchat/harbor-api/internal/utils"
)

// PresenceHandler wires the presence endpoints.
type PresenceHandler struct {
	service   service.PresenceService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewPresenceHandler creates a presence handler instance.
func NewPresenceHandler(service service.PresenceService, validator *validator.Validate, logger zerolog.Logger) *PresenceHandler {
	return &PresenceHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "presence_handler").Logger(),
	}
}

// Register binds presence routes under the provided router group.
func (h *PresenceHandler) Register(router fiber.Router) {
	router.Post("/heartbeat", h.heartbeat)
	router.Get("/online/count", h.onlineCount)
	router.Get("/online", h.onlineUsers)
}

func (h *PresenceHandler) heartbeat(c *fiber.Ctx) error {
	var payload dto.HeartbeatRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.service.Heartbeat(withRequestContext(c), payload); err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "presence updated", nil)
}

func (h *PresenceHandler) onlineCount(c *fiber.Ctx) error {
	count, err := h.service.OnlineCount(withRequestContext(c))
	if err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "online users count", fiber.Map{"count": count})
}

func (h *PresenceHandler) onlineUsers(c *fiber.Ctx) error {
	users, err := h.service.OnlineUsers(withRequestContext(c))
	if err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "online users", users)
}
