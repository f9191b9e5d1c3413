package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/harborchat/harbor-api/internal/service"
	"github.com/harborchat/harbor-api/internal/utils"
)

// AdminHandler wires the destructive bulk-clear endpoints. The router only
// registers these outside production.
type AdminHandler struct {
	service service.AdminService
	logger  zerolog.Logger
}

// NewAdminHandler creates an admin handler instance.
func NewAdminHandler(service service.AdminService, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_handler").Logger(),
	}
}

// Register binds the bulk-clear routes under the provided router group.
func (h *AdminHandler) Register(router fiber.Router) {
	router.Delete("/messages", h.clearMessages)
	router.Delete("/channels", h.clearChannels)
	router.Delete("/all", h.clearAll)
}

func (h *AdminHandler) clearMessages(c *fiber.Ctx) error {
	report, err := h.service.ClearMessages(withRequestContext(c))
	if err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "messages cleared", report)
}

func (h *AdminHandler) clearChannels(c *fiber.Ctx) error {
	report, err := h.service.ClearChannels(withRequestContext(c))
	if err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "channels cleared", report)
}

func (h *AdminHandler) clearAll(c *fiber.Ctx) error {
	report, err := h.service.ClearAll(withRequestContext(c))
	if err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "all data cleared", report)
}
