package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/harborchat/harbor-api/internal/auth"
	"github.com/harborchat/harbor-api/internal/dto"
	"github.com/harborchat/harbor-api/internal/models"
	"github.com/harborchat/harbor-api/internal/repository"
)

const anonymousCreator = "anonymous"

// ChannelService exposes channel use-cases.
type ChannelService interface {
	List(ctx context.Context) ([]dto.ChannelResponse, error)
	Create(ctx context.Context, payload dto.CreateChannelRequest) (dto.ChannelResponse, error)
	Delete(ctx context.Context, channelID uint) error
	IsAdmin(identity *auth.Identity) bool
}

type channelService struct {
	repo      repository.ChannelRepository
	admins    *auth.AdminSet
	realtime  Broadcaster
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewChannelService constructs a channel service.
func NewChannelService(repo repository.ChannelRepository, admins *auth.AdminSet, realtime Broadcaster, validate *validator.Validate, logger zerolog.Logger) ChannelService {
	return &channelService{
		repo:      repo,
		admins:    admins,
		realtime:  realtime,
		validator: validate,
		logger:    logger.With().Str("component", "channel_service").Logger(),
		tracer:    otel.Tracer("github.com/harborchat/harbor-api/internal/service/channel"),
	}
}

func (s *channelService) List(ctx context.Context) ([]dto.ChannelResponse, error) {
	channels, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return dto.NewChannelResponseSlice(channels), nil
}

func (s *channelService) Create(ctx context.Context, payload dto.CreateChannelRequest) (dto.ChannelResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ChannelResponse{}, err
	}

	name := NormalizeChannelName(payload.Name)
	if name == "" {
		return dto.ChannelResponse{}, ErrChannelNameInvalid
	}

	spanCtx, span := s.tracer.Start(ctx, "channel.create", trace.WithAttributes(
		attribute.String("chat.channel", name),
	))
	defer span.End()

	if _, err := s.repo.GetByName(spanCtx, name); err == nil {
		return dto.ChannelResponse{}, ErrChannelExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		span.RecordError(err)
		return dto.ChannelResponse{}, err
	}

	createdBy := anonymousCreator
	if identity := auth.IdentityFromContext(ctx); identity != nil && identity.Subject != "" {
		createdBy = identity.Subject
	}

	channel := models.Channel{
		Name:        name,
		Description: strings.TrimSpace(payload.Description),
		CreatedBy:   createdBy,
	}

	if err := s.repo.Create(spanCtx, &channel); err != nil {
		span.RecordError(err)
		return dto.ChannelResponse{}, err
	}

	s.logger.Info().Str("channel", name).Str("created_by", createdBy).Msg("channel created")

	response := dto.NewChannelResponse(channel)
	s.realtime.Publish(spanCtx, Event{Type: EventChannelCreated, Data: response})

	return response, nil
}

func (s *channelService) Delete(ctx context.Context, channelID uint) error {
	identity := auth.IdentityFromContext(ctx)
	if identity == nil {
		return ErrUnauthenticated
	}
	if !s.admins.Contains(identity) {
		return ErrNotAdmin
	}

	spanCtx, span := s.tracer.Start(ctx, "channel.delete", trace.WithAttributes(
		attribute.Int("chat.channel_id", int(channelID)),
	))
	defer span.End()

	channel, err := s.repo.GetByID(spanCtx, channelID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrChannelNotFound
		}
		span.RecordError(err)
		return err
	}

	if channel.Name == models.GeneralChannel {
		return ErrGeneralChannelProtected
	}

	reassigned, err := s.repo.DeleteWithCascade(spanCtx, channelID, models.GeneralChannel)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrChannelNotFound
		}
		span.RecordError(err)
		return err
	}

	s.logger.Info().
		Str("channel", channel.Name).
		Int64("reassigned_messages", reassigned).
		Str("deleted_by", identity.Subject).
		Msg("channel deleted")

	s.realtime.Publish(spanCtx, Event{Type: EventChannelDeleted, Data: dto.NewChannelResponse(channel)})

	return nil
}

// IsAdmin reports whether the identity belongs to the configured admin set.
// Fail-closed: a nil identity is never an admin.
func (s *channelService) IsAdmin(identity *auth.Identity) bool {
	return s.admins.Contains(identity)
}

// NormalizeChannelName lowercases the name and strips everything outside
// [a-z0-9-]. An empty result means the name was invalid.
func NormalizeChannelName(name string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return -1
	}, lowered)
}
