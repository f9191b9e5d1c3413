package dto

import (
	"time"

	"github.com/harborchat/harbor-api/internal/models"
)

// SendMessageRequest is the payload for posting a message into a channel.
// Text may be empty when a file attachment is present.
type SendMessageRequest struct {
	Text      string `json:"text" validate:"max=2000"`
	Author    string `json:"author" validate:"required,min=1,max=128"`
	Channel   string `json:"channel" validate:"omitempty,max=64"`
	AvatarURL string `json:"avatar_url" validate:"omitempty,url,max=512"`
	FileID    string `json:"file_id" validate:"omitempty,max=255"`
	FileName  string `json:"file_name" validate:"omitempty,max=255"`
	FileType  string `json:"file_type" validate:"omitempty,max=128"`
}

// ToggleReactionRequest toggles an emoji reaction on a message.
type ToggleReactionRequest struct {
	Emoji    string `json:"emoji" validate:"required,min=1,max=32"`
	Username string `json:"username" validate:"required,min=1,max=128"`
}

// MessageResponse is the serialized representation of a message.
type MessageResponse struct {
	ID        uint              `json:"id"`
	Text      string            `json:"text"`
	Author    string            `json:"author"`
	UserID    string            `json:"user_id,omitempty"`
	AvatarURL string            `json:"avatar_url,omitempty"`
	Channel   string            `json:"channel"`
	Reactions []models.Reaction `json:"reactions"`
	FileURL   string            `json:"file_url,omitempty"`
	FileName  string            `json:"file_name,omitempty"`
	FileType  string            `json:"file_type,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewMessageResponse converts a model into a DTO.
func NewMessageResponse(message models.Message) MessageResponse {
	channel := message.Channel
	if channel == "" {
		channel = models.GeneralChannel
	}

	reactions := []models.Reaction(message.Reactions)
	if reactions == nil {
		reactions = []models.Reaction{}
	}

	return MessageResponse{
		ID:        message.ID,
		Text:      message.Text,
		Author:    message.Author,
		UserID:    message.UserID,
		AvatarURL: message.AvatarURL,
		Channel:   channel,
		Reactions: reactions,
		FileURL:   message.FileURL,
		FileName:  message.FileName,
		FileType:  message.FileType,
		CreatedAt: message.CreatedAt,
	}
}

// NewMessageResponseSlice converts a slice of models into DTOs.
func NewMessageResponseSlice(messages []models.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(messages))
	for _, message := range messages {
		out = append(out, NewMessageResponse(message))
	}
	return out
}

// CreateChannelRequest is the payload to create a channel.
type CreateChannelRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=64"`
	Description string `json:"description" validate:"omitempty,max=255"`
}

// ChannelResponse describes a channel returned by the API.
type ChannelResponse struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewChannelResponse converts a channel model to a DTO.
func NewChannelResponse(channel models.Channel) ChannelResponse {
	return ChannelResponse{
		ID:          channel.ID,
		Name:        channel.Name,
		Description: channel.Description,
		CreatedBy:   channel.CreatedBy,
		CreatedAt:   channel.CreatedAt,
	}
}

// NewChannelResponseSlice converts channels to DTOs.
func NewChannelResponseSlice(channels []models.Channel) []ChannelResponse {
	out := make([]ChannelResponse, 0, len(channels))
	for _, channel := range channels {
		out = append(out, NewChannelResponse(channel))
	}
	return out
}

// HeartbeatRequest refreshes the caller's presence record.
type HeartbeatRequest struct {
	Username  string `json:"username" validate:"required,min=1,max=128"`
	AvatarURL string `json:"avatar_url" validate:"omitempty,url,max=512"`
}

// OnlineUserResponse is one entry of the online users listing.
type OnlineUserResponse struct {
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	LastSeen  time.Time `json:"last_seen"`
}

// NewOnlineUserResponseSlice converts presence rows to DTOs.
func NewOnlineUserResponseSlice(users []models.User) []OnlineUserResponse {
	out := make([]OnlineUserResponse, 0, len(users))
	for _, user := range users {
		out = append(out, OnlineUserResponse{
			Username:  user.Username,
			AvatarURL: user.AvatarURL,
			LastSeen:  user.LastSeen,
		})
	}
	return out
}

// UploadTicketResponse carries the signed parameters a client needs for a
// direct upload to the storage backend.
type UploadTicketResponse struct {
	UploadURL string            `json:"upload_url"`
	Params    map[string]string `json:"params"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// FileResponse describes a stored attachment.
type FileResponse struct {
	StorageID string `json:"storage_id"`
	URL       string `json:"url"`
	FileName  string `json:"file_name,omitempty"`
	MimeType  string `json:"mime_type,omitempty"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
}

// IdentityResponse echoes the normalized caller identity.
type IdentityResponse struct {
	Subject       string `json:"subject,omitempty"`
	Email         string `json:"email,omitempty"`
	Username      string `json:"username,omitempty"`
	Authenticated bool   `json:"authenticated"`
	IsAdmin       bool   `json:"is_admin"`
}
