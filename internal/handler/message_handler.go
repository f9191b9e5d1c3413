package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/harborchat/harbor-api/internal/dto"
	"github.com/harborchat/harbor-api/internal/service"
	"github.com/harborchat/harbor-api/internal/utils"
)

// MessageHandler wires the message endpoints.
type MessageHandler struct {
	service   service.MessageService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewMessageHandler creates a message handler instance.
func NewMessageHandler(service service.MessageService, validator *validator.Validate, logger zerolog.Logger) *MessageHandler {
	return &MessageHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "message_handler").Logger(),
	}
}

// Register binds message routes under the provided router group.
func (h *MessageHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Post("/", h.send)
	router.Get("/search", h.search)
	router.Post("/:id/reactions", h.toggleReaction)
}

func (h *MessageHandler) list(c *fiber.Ctx) error {
	messages, err := h.service.List(withRequestContext(c), c.Query("channel"))
	if err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "messages retrieved", messages)
}

func (h *MessageHandler) send(c *fiber.Ctx) error {
	var payload dto.SendMessageRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	message, err := h.service.Send(withRequestContext(c), payload)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "message sent", message)
}

func (h *MessageHandler) search(c *fiber.Ctx) error {
	results, err := h.service.Search(withRequestContext(c), c.Query("channel"), c.Query("q"))
	if err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "search results", results)
}

func (h *MessageHandler) toggleReaction(c *fiber.Ctx) error {
	messageID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid message id")
	}

	var payload dto.ToggleReactionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	message, err := h.service.ToggleReaction(withRequestContext(c), messageID, payload)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "reaction toggled", message)
}
