package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/harborchat/harbor-api/internal/auth"
	"github.com/harborchat/harbor-api/internal/dto"
	"github.com/harborchat/harbor-api/internal/models"
	"github.com/harborchat/harbor-api/internal/observability"
	"github.com/harborchat/harbor-api/internal/repository"
)

const (
	// OnlineWindow is how long after the last heartbeat a user still counts
	// as online.
	OnlineWindow = 5 * time.Minute

	onlineCountCacheKey = "presence:online_count"
	onlineCountCacheTTL = 15 * time.Second
	expireInterval      = time.Minute
)

// PresenceService tracks who is currently online.
type PresenceService interface {
	Heartbeat(ctx context.Context, payload dto.HeartbeatRequest) error
	OnlineCount(ctx context.Context) (int64, error)
	OnlineUsers(ctx context.Context) ([]dto.OnlineUserResponse, error)
	Start(ctx context.Context)
}

type presenceService struct {
	repo      repository.PresenceRepository
	cache     *redis.Client
	realtime  Broadcaster
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewPresenceService constructs a presence service. The Redis cache is
// optional and only absorbs count polling.
func NewPresenceService(repo repository.PresenceRepository, cache *redis.Client, realtime Broadcaster, validate *validator.Validate, logger zerolog.Logger) PresenceService {
	return &presenceService{
		repo:      repo,
		cache:     cache,
		realtime:  realtime,
		validator: validate,
		logger:    logger.With().Str("component", "presence_service").Logger(),
		now:       time.Now,
	}
}

// Start launches the background expirer that clears stale online flags. The
// flag is only a hint; the time window stays authoritative either way.
func (s *presenceService) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(expireInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cleared, err := s.repo.ExpireStale(ctx, s.now().Add(-OnlineWindow))
				if err != nil {
					s.logger.Warn().Err(err).Msg("failed to expire stale presence rows")
					continue
				}
				if cleared > 0 {
					s.logger.Debug().Int64("cleared", cleared).Msg("stale presence flags cleared")
				}
			}
		}
	}()
}

func (s *presenceService) Heartbeat(ctx context.Context, payload dto.HeartbeatRequest) error {
	if err := s.validator.Struct(payload); err != nil {
		return err
	}

	identity := auth.IdentityFromContext(ctx)
	clerkID := auth.SubjectOrSynthetic(identity, payload.Username)

	user := models.User{
		ClerkID:   clerkID,
		Username:  strings.TrimSpace(payload.Username),
		AvatarURL: payload.AvatarURL,
		LastSeen:  s.now(),
		IsOnline:  true,
	}

	if err := s.repo.Upsert(ctx, &user); err != nil {
		return err
	}

	s.invalidateCountCache(ctx)
	observability.PresencePings().Inc()
	s.realtime.Publish(ctx, Event{Type: EventPresenceUpdated})

	return nil
}

func (s *presenceService) OnlineCount(ctx context.Context) (int64, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, onlineCountCacheKey).Result(); err == nil {
			if count, err := strconv.ParseInt(cached, 10, 64); err == nil {
				return count, nil
			}
		}
	}

	count, err := s.repo.CountOnline(ctx, s.now().Add(-OnlineWindow))
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, onlineCountCacheKey, strconv.FormatInt(count, 10), onlineCountCacheTTL).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to cache online count")
		}
	}

	return count, nil
}

func (s *presenceService) OnlineUsers(ctx context.Context) ([]dto.OnlineUserResponse, error) {
	users, err := s.repo.ListOnline(ctx, s.now().Add(-OnlineWindow))
	if err != nil {
		return nil, err
	}
	return dto.NewOnlineUserResponseSlice(users), nil
}

func (s *presenceService) invalidateCountCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, onlineCountCacheKey).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate online count cache")
	}
}
