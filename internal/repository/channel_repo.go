package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/harborchat/harbor-api/internal/models"
)

// ChannelRepository persists channel records.
type ChannelRepository interface {
	List(ctx context.Context) ([]models.Channel, error)
	GetByID(ctx context.Context, id uint) (models.Channel, error)
	GetByName(ctx context.Context, name string) (models.Channel, error)
	Create(ctx context.Context, channel *models.Channel) error
	DeleteWithCascade(ctx context.Context, id uint, fallback string) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
}

type channelRepository struct {
	db *gorm.DB
}

// NewChannelRepository constructs a GORM-backed channel repository.
func NewChannelRepository(db *gorm.DB) ChannelRepository {
	return &channelRepository{db: db}
}

func (r *channelRepository) List(ctx context.Context) ([]models.Channel, error) {
	var channels []models.Channel
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&channels).Error; err != nil {
		return nil, err
	}
	return channels, nil
}

func (r *channelRepository) GetByID(ctx context.Context, id uint) (models.Channel, error) {
	var channel models.Channel
	if err := r.db.WithContext(ctx).First(&channel, id).Error; err != nil {
		return models.Channel{}, err
	}
	return channel, nil
}

func (r *channelRepository) GetByName(ctx context.Context, name string) (models.Channel, error) {
	var channel models.Channel
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&channel).Error; err != nil {
		return models.Channel{}, err
	}
	return channel, nil
}

func (r *channelRepository) Create(ctx context.Context, channel *models.Channel) error {
	return r.db.WithContext(ctx).Create(channel).Error
}

// DeleteWithCascade removes the channel and re-points every member message to
// the fallback channel inside one transaction, so no orphaned channel
// references can remain. Returns the number of reassigned messages.
func (r *channelRepository) DeleteWithCascade(ctx context.Context, id uint, fallback string) (int64, error) {
	var reassigned int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var channel models.Channel
		if err := tx.First(&channel, id).Error; err != nil {
			return err
		}

		if err := tx.Delete(&models.Channel{}, id).Error; err != nil {
			return err
		}

		result := tx.Model(&models.Message{}).
			Where("channel = ?", channel.Name).
			Update("channel", fallback)
		if result.Error != nil {
			return result.Error
		}
		reassigned = result.RowsAffected
		return nil
	})

	return reassigned, err
}

func (r *channelRepository) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Where("1 = 1").Delete(&models.Channel{})
	return result.RowsAffected, result.Error
}
