package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/harborchat/harbor-api/internal/models"
)

// MessageRepository persists chat messages and serves channel-scoped reads.
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	GetByID(ctx context.Context, id uint) (models.Message, error)
	UpdateReactions(ctx context.Context, id uint, reactions []models.Reaction) error
	ListByChannel(ctx context.Context, channel string, limit int) ([]models.Message, error)
	Search(ctx context.Context, channel, query string, limit int) ([]models.Message, error)
	ReassignChannel(ctx context.Context, tx *gorm.DB, from, to string) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository constructs a message repository backed by GORM.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *messageRepository) GetByID(ctx context.Context, id uint) (models.Message, error) {
	var message models.Message
	if err := r.db.WithContext(ctx).First(&message, id).Error; err != nil {
		return models.Message{}, err
	}
	return message, nil
}

func (r *messageRepository) UpdateReactions(ctx context.Context, id uint, reactions []models.Reaction) error {
	result := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ?", id).
		Update("reactions", datatypes.NewJSONSlice(reactions))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *messageRepository) ListByChannel(ctx context.Context, channel string, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	query := r.db.WithContext(ctx)
	if channel == models.GeneralChannel {
		// Rows written before channels existed carry no channel value and
		// belong to "general".
		query = query.Where("channel = ? OR channel = '' OR channel IS NULL", channel)
	} else {
		query = query.Where("channel = ?", channel)
	}

	var messages []models.Message
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, err
	}

	// Reverse to chronological order ascending for clients.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

func (r *messageRepository) Search(ctx context.Context, channel, query string, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}

	pattern := fmt.Sprintf("%%%s%%", strings.ToLower(strings.TrimSpace(query)))

	var messages []models.Message
	if err := r.db.WithContext(ctx).
		Where("channel = ?", channel).
		Where("LOWER(text) LIKE ?", pattern).
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, err
	}

	return messages, nil
}

func (r *messageRepository) ReassignChannel(ctx context.Context, tx *gorm.DB, from, to string) (int64, error) {
	db := tx
	if db == nil {
		db = r.db
	}

	result := db.WithContext(ctx).Model(&models.Message{}).
		Where("channel = ?", from).
		Update("channel", to)
	return result.RowsAffected, result.Error
}

func (r *messageRepository) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Where("1 = 1").Delete(&models.Message{})
	return result.RowsAffected, result.Error
}
