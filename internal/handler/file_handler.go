package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/harborchat/harbor-api/internal/service"
	"github.com/harborchat/harbor-api/internal/utils"
)

// FileHandler wires the attachment endpoints.
type FileHandler struct {
	service service.FileService
	logger  zerolog.Logger
}

// NewFileHandler creates a file handler instance.
func NewFileHandler(service service.FileService, logger zerolog.Logger) *FileHandler {
	return &FileHandler{
		service: service,
		logger:  logger.With().Str("component", "file_handler").Logger(),
	}
}

// Register binds file routes under the provided router group.
func (h *FileHandler) Register(router fiber.Router) {
	router.Post("/upload-ticket", h.uploadTicket)
	router.Post("/upload", h.upload)
	router.Get("/:storageId/url", h.resolveURL)
}

func (h *FileHandler) uploadTicket(c *fiber.Ctx) error {
	ticket, err := h.service.IssueUploadTicket(withRequestContext(c))
	if err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "upload ticket issued", ticket)
}

func (h *FileHandler) upload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	stored, err := h.service.Upload(withRequestContext(c), file)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "file uploaded", stored)
}

func (h *FileHandler) resolveURL(c *fiber.Ctx) error {
	storageID := strings.TrimSpace(c.Params("storageId"))
	if storageID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "storage id required")
	}

	resolved, err := h.service.ResolveURL(withRequestContext(c), storageID)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "file url resolved", resolved)
}
