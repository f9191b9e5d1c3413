package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/harborchat/harbor-api/internal/repository"
)

// ClearReport summarizes a bulk wipe.
type ClearReport struct {
	Messages int64 `json:"messages"`
	Channels int64 `json:"channels"`
	Users    int64 `json:"users"`
}

// AdminService exposes the destructive bulk-clear operations. These wipe
// whole collections without confirmation and are intended for development
// and test environments only.
type AdminService interface {
	ClearMessages(ctx context.Context) (ClearReport, error)
	ClearChannels(ctx context.Context) (ClearReport, error)
	ClearAll(ctx context.Context) (ClearReport, error)
}

type adminService struct {
	messages repository.MessageRepository
	channels repository.ChannelRepository
	presence repository.PresenceRepository
	logger   zerolog.Logger
}

// NewAdminService constructs the admin service.
func NewAdminService(messages repository.MessageRepository, channels repository.ChannelRepository, presence repository.PresenceRepository, logger zerolog.Logger) AdminService {
	return &adminService{
		messages: messages,
		channels: channels,
		presence: presence,
		logger:   logger.With().Str("component", "admin_service").Logger(),
	}
}

func (s *adminService) ClearMessages(ctx context.Context) (ClearReport, error) {
	deleted, err := s.messages.DeleteAll(ctx)
	if err != nil {
		return ClearReport{}, err
	}
	s.logger.Warn().Int64("deleted", deleted).Msg("all messages cleared")
	return ClearReport{Messages: deleted}, nil
}

func (s *adminService) ClearChannels(ctx context.Context) (ClearReport, error) {
	deleted, err := s.channels.DeleteAll(ctx)
	if err != nil {
		return ClearReport{}, err
	}
	s.logger.Warn().Int64("deleted", deleted).Msg("all channels cleared")
	return ClearReport{Channels: deleted}, nil
}

func (s *adminService) ClearAll(ctx context.Context) (ClearReport, error) {
	report := ClearReport{}

	messages, err := s.messages.DeleteAll(ctx)
	if err != nil {
		return report, err
	}
	report.Messages = messages

	channels, err := s.channels.DeleteAll(ctx)
	if err != nil {
		return report, err
	}
	report.Channels = channels

	users, err := s.presence.DeleteAll(ctx)
	if err != nil {
		return report, err
	}
	report.Users = users

	s.logger.Warn().
		Int64("messages", report.Messages).
		Int64("channels", report.Channels).
		Int64("users", report.Users).
		Msg("all data cleared")

	return report, nil
}
