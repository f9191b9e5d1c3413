package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/harborchat/harbor-api/internal/models"
)

// PresenceRepository persists user presence records keyed by clerk id.
type PresenceRepository interface {
	Upsert(ctx context.Context, user *models.User) error
	CountOnline(ctx context.Context, since time.Time) (int64, error)
	ListOnline(ctx context.Context, since time.Time) ([]models.User, error)
	ExpireStale(ctx context.Context, before time.Time) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
}

type presenceRepository struct {
	db *gorm.DB
}

// NewPresenceRepository constructs a GORM-backed presence repository.
func NewPresenceRepository(db *gorm.DB) PresenceRepository {
	return &presenceRepository{db: db}
}

func (r *presenceRepository) Upsert(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "clerk_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "avatar_url", "last_seen", "is_online", "updated_at"}),
	}).Create(user).Error
}

// CountOnline counts users seen within the window. The time window is
// authoritative; the is_online flag is only a hint and is not trusted here.
func (r *presenceRepository) CountOnline(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("is_online = ?", true).
		Where("last_seen >= ?", since).
		Count(&count).Error
	return count, err
}

func (r *presenceRepository) ListOnline(ctx context.Context, since time.Time) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("is_online = ?", true).
		Where("last_seen >= ?", since).
		Order("username ASC").
		Find(&users).Error
	return users, err
}

// ExpireStale clears the online flag on rows outside the window so the hint
// eventually converges with the authoritative time check.
func (r *presenceRepository) ExpireStale(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.User{}).
		Where("is_online = ?", true).
		Where("last_seen < ?", before).
		Update("is_online", false)
	return result.RowsAffected, result.Error
}

func (r *presenceRepository) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Where("1 = 1").Delete(&models.User{})
	return result.RowsAffected, result.Error
}
