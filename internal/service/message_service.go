package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/harborchat/harbor-api/internal/auth"
	"github.com/harborchat/harbor-api/internal/dto"
	"github.com/harborchat/harbor-api/internal/models"
	"github.com/harborchat/harbor-api/internal/observability"
	"github.com/harborchat/harbor-api/internal/repository"
)

const (
	maxMessageLength  = 2000
	messageListLimit  = 100
	searchResultLimit = 50
	minSearchLength   = 2
)

// MessageService exposes message read and mutation use-cases.
type MessageService interface {
	List(ctx context.Context, channel string) ([]dto.MessageResponse, error)
	Send(ctx context.Context, payload dto.SendMessageRequest) (dto.MessageResponse, error)
	ToggleReaction(ctx context.Context, messageID uint, payload dto.ToggleReactionRequest) (dto.MessageResponse, error)
	Search(ctx context.Context, channel, query string) ([]dto.MessageResponse, error)
}

type messageService struct {
	repo      repository.MessageRepository
	storage   FileStorage
	realtime  Broadcaster
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	sanitizer *bluemonday.Policy
	now       func() time.Time
}

// NewMessageService constructs a message service.
func NewMessageService(repo repository.MessageRepository, storage FileStorage, realtime Broadcaster, validate *validator.Validate, logger zerolog.Logger) MessageService {
	sanitizer := bluemonday.UGCPolicy()
	sanitizer.AllowElements("br")

	return &messageService{
		repo:      repo,
		storage:   storage,
		realtime:  realtime,
		validator: validate,
		logger:    logger.With().Str("component", "message_service").Logger(),
		tracer:    otel.Tracer("github.com/harborchat/harbor-api/internal/service/message"),
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

func (s *messageService) List(ctx context.Context, channel string) ([]dto.MessageResponse, error) {
	channel = normalizeChannel(channel)

	messages, err := s.repo.ListByChannel(ctx, channel, messageListLimit)
	if err != nil {
		return nil, err
	}

	return dto.NewMessageResponseSlice(messages), nil
}

func (s *messageService) Send(ctx context.Context, payload dto.SendMessageRequest) (dto.MessageResponse, error) {
	// Length is checked before sanitization so the limit applies to what the
	// user actually typed. Counted in characters, not bytes.
	if utf8.RuneCountInString(payload.Text) > maxMessageLength {
		return dto.MessageResponse{}, ErrMessageTooLong
	}

	trimmed := strings.TrimSpace(payload.Text)
	if trimmed == "" && payload.FileID == "" {
		return dto.MessageResponse{}, ErrMessageEmpty
	}

	if err := s.validator.Struct(payload); err != nil {
		return dto.MessageResponse{}, err
	}

	channel := normalizeChannel(payload.Channel)
	identity := auth.IdentityFromContext(ctx)

	attrs := []attribute.KeyValue{
		attribute.String("chat.channel", channel),
		attribute.Bool("chat.has_file", payload.FileID != ""),
	}
	spanCtx, span := s.tracer.Start(ctx, "message.send", trace.WithAttributes(attrs...))
	defer span.End()

	fileURL := ""
	if payload.FileID != "" {
		url, err := s.storage.ResolveURL(spanCtx, payload.FileID)
		if err != nil {
			span.RecordError(err)
			return dto.MessageResponse{}, err
		}
		fileURL = url
	}

	message := models.Message{
		Text:      s.sanitizer.Sanitize(trimmed),
		Author:    strings.TrimSpace(payload.Author),
		AvatarURL: payload.AvatarURL,
		Channel:   channel,
		Reactions: []models.Reaction{},
		FileURL:   fileURL,
		FileName:  payload.FileName,
		FileType:  payload.FileType,
	}
	if identity != nil {
		message.UserID = identity.Subject
	}

	if err := s.repo.Create(spanCtx, &message); err != nil {
		span.RecordError(err)
		return dto.MessageResponse{}, err
	}

	response := dto.NewMessageResponse(message)
	s.realtime.Publish(spanCtx, Event{Type: EventMessageCreated, Channel: channel, Data: response})
	observability.MessagesSent().WithLabelValues(messageKind(payload.FileID)).Inc()

	return response, nil
}

func (s *messageService) ToggleReaction(ctx context.Context, messageID uint, payload dto.ToggleReactionRequest) (dto.MessageResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.MessageResponse{}, err
	}

	identity := auth.IdentityFromContext(ctx)
	userID := auth.SubjectOrSynthetic(identity, payload.Username)

	spanCtx, span := s.tracer.Start(ctx, "message.toggle_reaction", trace.WithAttributes(
		attribute.String("chat.emoji", payload.Emoji),
	))
	defer span.End()

	message, err := s.repo.GetByID(spanCtx, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.MessageResponse{}, ErrMessageNotFound
		}
		span.RecordError(err)
		return dto.MessageResponse{}, err
	}

	reactions, added := toggleReaction(message.Reactions, payload.Emoji, userID, payload.Username)
	if err := s.repo.UpdateReactions(spanCtx, messageID, reactions); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.MessageResponse{}, ErrMessageNotFound
		}
		span.RecordError(err)
		return dto.MessageResponse{}, err
	}
	message.Reactions = reactions

	action := "removed"
	if added {
		action = "added"
	}
	observability.ReactionsToggled().WithLabelValues(action).Inc()

	response := dto.NewMessageResponse(message)
	s.realtime.Publish(spanCtx, Event{Type: EventReactionToggled, Channel: response.Channel, Data: response})

	return response, nil
}

func (s *messageService) Search(ctx context.Context, channel, query string) ([]dto.MessageResponse, error) {
	// Short queries return empty without touching the store.
	if utf8.RuneCountInString(query) < minSearchLength {
		return []dto.MessageResponse{}, nil
	}

	channel = normalizeChannel(channel)

	start := time.Now()
	messages, err := s.repo.Search(ctx, channel, query, searchResultLimit)
	observability.SearchLatency().Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	return dto.NewMessageResponseSlice(messages), nil
}

// toggleReaction flips the (userID, emoji) reaction. Duplicate reactions by
// the same user for the same emoji are collapsed before toggling on.
func toggleReaction(reactions []models.Reaction, emoji, userID, username string) ([]models.Reaction, bool) {
	existing := false
	kept := make([]models.Reaction, 0, len(reactions)+1)
	for _, reaction := range reactions {
		if reaction.UserID == userID && reaction.Emoji == emoji {
			existing = true
			continue
		}
		kept = append(kept, reaction)
	}

	if existing {
		return kept, false
	}

	kept = append(kept, models.Reaction{Emoji: emoji, UserID: userID, Username: username})
	return kept, true
}

func normalizeChannel(channel string) string {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return models.GeneralChannel
	}
	return channel
}

func messageKind(fileID string) string {
	if fileID != "" {
		return "file"
	}
	return "text"
}
