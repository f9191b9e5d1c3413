package models

import (
	"time"

	"gorm.io/datatypes"
)

// GeneralChannel is the reserved default channel every deployment starts with.
// It cannot be deleted and adopts messages whose channel disappears.
const GeneralChannel = "general"

// Reaction is a single emoji tag placed on a message by a user. A message
// holds at most one reaction per (UserID, Emoji) pair.
type Reaction struct {
	Emoji    string `json:"emoji"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// Message represents one chat message posted into a channel.
type Message struct {
	ID        uint                           `gorm:"primaryKey" json:"id"`
	Text      string                         `gorm:"type:text" json:"text"`
	Author    string                         `gorm:"size:128;not null" json:"author"`
	UserID    string                         `gorm:"size:128;index" json:"user_id"`
	AvatarURL string                         `gorm:"size:512" json:"avatar_url"`
	Channel   string                         `gorm:"size:64;index" json:"channel"`
	Reactions datatypes.JSONSlice[Reaction]  `gorm:"type:json" json:"reactions"`
	FileURL   string                         `gorm:"size:512" json:"file_url"`
	FileName  string                         `gorm:"size:255" json:"file_name"`
	FileType  string                         `gorm:"size:128" json:"file_type"`
	CreatedAt time.Time                      `json:"created_at"`
}

// Channel is a named message partition.
type Channel struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:64;uniqueIndex;not null" json:"name"`
	Description string    `gorm:"size:255" json:"description"`
	CreatedBy   string    `gorm:"size:128" json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// User is a presence record keyed by the external auth subject. Rows are
// upserted on every heartbeat and only removed by the bulk admin wipe.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ClerkID   string    `gorm:"size:128;uniqueIndex;not null" json:"clerk_id"`
	Username  string    `gorm:"size:128;not null" json:"username"`
	AvatarURL string    `gorm:"size:512" json:"avatar_url"`
	LastSeen  time.Time `gorm:"index" json:"last_seen"`
	IsOnline  bool      `gorm:"index;not null;default:false" json:"is_online"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
