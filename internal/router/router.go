package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/harborchat/harbor-api/internal/config"
	"github.com/harborchat/harbor-api/internal/handler"
	"github.com/harborchat/harbor-api/internal/middleware"
	"github.com/harborchat/harbor-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	MessageHandler  *handler.MessageHandler
	ChannelHandler  *handler.ChannelHandler
	PresenceHandler *handler.PresenceHandler
	FileHandler     *handler.FileHandler
	RealtimeHandler *handler.RealtimeHandler
	AdminHandler    *handler.AdminHandler
	AuthMiddleware  fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	// Identity is optional on most routes; handlers fall back to synthetic
	// ids for anonymous callers.
	authMiddleware := deps.AuthMiddleware
	if authMiddleware == nil {
		authMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.MessageHandler != nil {
		messages := api.Group("/messages", authMiddleware)
		messages.Use(middleware.RateLimit("messages", cfg.MessageRateLimit, time.Minute))
		deps.MessageHandler.Register(messages)
	}

	if deps.ChannelHandler != nil {
		channels := api.Group("/channels", authMiddleware)
		deps.ChannelHandler.Register(channels)
		api.Get("/auth/me", authMiddleware, deps.ChannelHandler.Me)
	}

	if deps.PresenceHandler != nil {
		presence := api.Group("/presence", authMiddleware)
		deps.PresenceHandler.Register(presence)
	}

	if deps.FileHandler != nil {
		files := api.Group("/files", authMiddleware)
		deps.FileHandler.Register(files)
	}

	if deps.RealtimeHandler != nil {
		realtime := api.Group("/realtime", authMiddleware)
		deps.RealtimeHandler.Register(realtime)
	}

	// Destructive bulk wipes stay out of production deployments.
	if deps.AdminHandler != nil && cfg.AppEnv != "production" {
		admin := api.Group("/admin")
		deps.AdminHandler.Register(admin)
	}
}
