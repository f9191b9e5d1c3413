package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/harborchat/harbor-api/internal/auth"
	"github.com/harborchat/harbor-api/internal/config"
	"github.com/harborchat/harbor-api/internal/database"
	"github.com/harborchat/harbor-api/internal/handler"
	"github.com/harborchat/harbor-api/internal/middleware"
	"github.com/harborchat/harbor-api/internal/models"
	"github.com/harborchat/harbor-api/internal/repository"
	"github.com/harborchat/harbor-api/internal/router"
	"github.com/harborchat/harbor-api/internal/service"
	cloud "github.com/harborchat/harbor-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.Message{}, &models.Channel{}, &models.User{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	general := models.Channel{Name: models.GeneralChannel, Description: "Default channel", CreatedBy: "system"}
	if err := db.Where(models.Channel{Name: models.GeneralChannel}).FirstOrCreate(&general).Error; err != nil {
		log.Fatalf("failed to seed general channel: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	}

	uploader, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create cloudinary client: %v", err)
	}

	var verifier auth.Verifier
	if cfg.ClerkSecretKey != "" {
		verifier, err = auth.NewClerkVerifier(cfg.ClerkSecretKey, logger)
		if err != nil {
			log.Fatalf("failed to create clerk verifier: %v", err)
		}
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	admins := auth.NewAdminSet(cfg.AdminSubjects, cfg.AdminEmails)

	messageRepo := repository.NewMessageRepository(db)
	channelRepo := repository.NewChannelRepository(db)
	presenceRepo := repository.NewPresenceRepository(db)

	realtimeService := service.NewRealtimeService(redisClient, "harbor", natsConn, logger)
	messageService := service.NewMessageService(messageRepo, uploader, realtimeService, validate, logger)
	channelService := service.NewChannelService(channelRepo, admins, realtimeService, validate, logger)
	presenceService := service.NewPresenceService(presenceRepo, redisClient, realtimeService, validate, logger)
	fileService := service.NewFileService(uploader, cfg.MaxUploadSizeMB, logger)
	adminService := service.NewAdminService(messageRepo, channelRepo, presenceRepo, logger)

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	realtimeService.Start(runCtx)
	presenceService.Start(runCtx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		MessageHandler:  handler.NewMessageHandler(messageService, validate, logger),
		ChannelHandler:  handler.NewChannelHandler(channelService, validate, logger),
		PresenceHandler: handler.NewPresenceHandler(presenceService, validate, logger),
		FileHandler:     handler.NewFileHandler(fileService, logger),
		RealtimeHandler: handler.NewRealtimeHandler(realtimeService, logger),
		AdminHandler:    handler.NewAdminHandler(adminService, logger),
		AuthMiddleware:  middleware.WithIdentity(verifier, logger),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, cancel)
}

func waitForShutdown(app *fiber.App, cancel context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()
	cancel()

	ctx, cancelTimeout := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelTimeout()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
