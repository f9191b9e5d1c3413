package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/harborchat/harbor-api/internal/auth"
	"github.com/harborchat/harbor-api/internal/dto"
	"github.com/harborchat/harbor-api/internal/service"
	"github.com/harborchat/harbor-api/internal/utils"
)

// ChannelHandler wires the channel endpoints.
type ChannelHandler struct {
	service   service.ChannelService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewChannelHandler creates a channel handler instance.
func NewChannelHandler(service service.ChannelService, validator *validator.Validate, logger zerolog.Logger) *ChannelHandler {
	return &ChannelHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "channel_handler").Logger(),
	}
}

// Register binds channel routes under the provided router group.
func (h *ChannelHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Post("/", h.create)
	router.Delete("/:id", h.delete)
}

func (h *ChannelHandler) list(c *fiber.Ctx) error {
	channels, err := h.service.List(withRequestContext(c))
	if err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "channels retrieved", channels)
}

func (h *ChannelHandler) create(c *fiber.Ctx) error {
	var payload dto.CreateChannelRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	channel, err := h.service.Create(withRequestContext(c), payload)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "channel created", channel)
}

func (h *ChannelHandler) delete(c *fiber.Ctx) error {
	channelID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid channel id")
	}

	if err := h.service.Delete(withRequestContext(c), channelID); err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "channel deleted", nil)
}

// Me reports the normalized identity of the caller and whether it belongs to
// the admin set. Serves the client's admin gating.
func (h *ChannelHandler) Me(c *fiber.Ctx) error {
	identity := auth.IdentityFromContext(c.UserContext())

	response := dto.IdentityResponse{
		Authenticated: identity != nil,
		IsAdmin:       h.service.IsAdmin(identity),
	}
	if identity != nil {
		response.Subject = identity.Subject
		response.Email = identity.Email
		response.Username = identity.Username
	}

	return utils.SendSuccess(c, "identity", response)
}
