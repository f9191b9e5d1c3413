package handler

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/harborchat/harbor-api/internal/auth"
	"github.com/harborchat/harbor-api/internal/middleware"
	"github.com/harborchat/harbor-api/internal/service"
)

// RealtimeHandler wires the websocket subscription endpoint.
type RealtimeHandler struct {
	service service.RealtimeService
	logger  zerolog.Logger
}

// NewRealtimeHandler creates a realtime handler instance.
func NewRealtimeHandler(service service.RealtimeService, logger zerolog.Logger) *RealtimeHandler {
	return &RealtimeHandler{
		service: service,
		logger:  logger.With().Str("component", "realtime_handler").Logger(),
	}
}

// Register binds the websocket route under the provided router group.
func (h *RealtimeHandler) Register(router fiber.Router) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			ctx := c.UserContext()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
			c.Locals("request_ctx", ctx)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("/ws", websocket.New(h.handleConnection))
}

func (h *RealtimeHandler) handleConnection(conn *websocket.Conn) {
	channel := strings.TrimSpace(conn.Query("channel"))
	baseCtx, _ := conn.Locals("request_ctx").(context.Context)

	userID := ""
	if identity := auth.IdentityFromContext(baseCtx); identity != nil {
		userID = identity.Subject
	}

	opts := service.SubscriptionOptions{
		UserID:  userID,
		Channel: channel,
		Context: baseCtx,
	}

	h.logger.Info().Str("user_id", userID).Str("channel", channel).Msg("realtime client connected")
	h.service.ServeConnection(conn, opts)
	h.logger.Info().Str("user_id", userID).Str("channel", channel).Msg("realtime client disconnected")
}
