package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/harborchat/harbor-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Message{}, &models.Channel{}, &models.User{}))
	return db
}

func TestMessageRepositoryListByChannelIncludesLegacyRows(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	legacy := models.Message{Text: "before channels existed", Author: "old-timer", Channel: ""}
	general := models.Message{Text: "hello general", Author: "alice", Channel: "general"}
	random := models.Message{Text: "hello random", Author: "bob", Channel: "random"}
	require.NoError(t, repo.Create(ctx, &legacy))
	require.NoError(t, repo.Create(ctx, &general))
	require.NoError(t, repo.Create(ctx, &random))

	messages, err := repo.ListByChannel(ctx, "general", 100)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, "before channels existed", messages[0].Text)
	require.Equal(t, "hello general", messages[1].Text)

	scoped, err := repo.ListByChannel(ctx, "random", 100)
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	require.Equal(t, "hello random", scoped[0].Text)
}

func TestMessageRepositoryListByChannelOrdersAscendingAfterCap(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		message := models.Message{
			Text:      fmt.Sprintf("message %d", i),
			Author:    "alice",
			Channel:   "general",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(&message).Error)
	}

	messages, err := repo.ListByChannel(ctx, "general", 3)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	// The newest three, oldest of them first.
	require.Equal(t, "message 2", messages[0].Text)
	require.Equal(t, "message 4", messages[2].Text)
}

func TestMessageRepositorySearchScopesToChannel(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Message{Text: "Hello World", Author: "alice", Channel: "general"}))
	require.NoError(t, repo.Create(ctx, &models.Message{Text: "hello from random", Author: "bob", Channel: "random"}))
	require.NoError(t, repo.Create(ctx, &models.Message{Text: "unrelated", Author: "carol", Channel: "general"}))

	results, err := repo.Search(ctx, "general", "hello", 50)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "Hello World", results[0].Text)
}

func TestMessageRepositoryUpdateReactionsMissingRow(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMessageRepository(db)

	err := repo.UpdateReactions(context.Background(), 999, []models.Reaction{{Emoji: "👍", UserID: "u1", Username: "alice"}})
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestChannelRepositoryDeleteWithCascade(t *testing.T) {
	db := setupTestDB(t)
	channels := NewChannelRepository(db)
	messages := NewMessageRepository(db)
	ctx := context.Background()

	channel := models.Channel{Name: "random", CreatedBy: "alice"}
	require.NoError(t, channels.Create(ctx, &channel))

	require.NoError(t, messages.Create(ctx, &models.Message{Text: "one", Author: "alice", Channel: "random"}))
	require.NoError(t, messages.Create(ctx, &models.Message{Text: "two", Author: "bob", Channel: "random"}))
	require.NoError(t, messages.Create(ctx, &models.Message{Text: "stays", Author: "carol", Channel: "general"}))

	reassigned, err := channels.DeleteWithCascade(ctx, channel.ID, models.GeneralChannel)
	require.NoError(t, err)
	require.Equal(t, int64(2), reassigned)

	_, err = channels.GetByName(ctx, "random")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var orphaned int64
	require.NoError(t, db.Model(&models.Message{}).Where("channel = ?", "random").Count(&orphaned).Error)
	require.Zero(t, orphaned)

	general, err := messages.ListByChannel(ctx, models.GeneralChannel, 100)
	require.NoError(t, err)
	require.Len(t, general, 3)
}

func TestChannelRepositoryDeleteWithCascadeMissingChannel(t *testing.T) {
	db := setupTestDB(t)
	channels := NewChannelRepository(db)

	_, err := channels.DeleteWithCascade(context.Background(), 42, models.GeneralChannel)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestPresenceRepositoryUpsertKeyedByClerkID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPresenceRepository(db)
	ctx := context.Background()

	first := models.User{ClerkID: "user_1", Username: "alice", LastSeen: time.Now().Add(-time.Hour), IsOnline: true}
	require.NoError(t, repo.Upsert(ctx, &first))

	update := models.User{ClerkID: "user_1", Username: "alice-renamed", LastSeen: time.Now(), IsOnline: true}
	require.NoError(t, repo.Upsert(ctx, &update))

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	require.Equal(t, int64(1), count)

	var stored models.User
	require.NoError(t, db.Where("clerk_id = ?", "user_1").First(&stored).Error)
	require.Equal(t, "alice-renamed", stored.Username)
}

func TestPresenceRepositoryCountOnlineHonorsWindow(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPresenceRepository(db)
	ctx := context.Background()
	now := time.Now()

	fresh := models.User{ClerkID: "user_fresh", Username: "fresh", LastSeen: now.Add(-time.Minute), IsOnline: true}
	// Flag still set, but last seen one millisecond past the window.
	stale := models.User{ClerkID: "user_stale", Username: "stale", LastSeen: now.Add(-5*time.Minute - time.Millisecond), IsOnline: true}
	offline := models.User{ClerkID: "user_off", Username: "off", LastSeen: now, IsOnline: false}
	require.NoError(t, repo.Upsert(ctx, &fresh))
	require.NoError(t, repo.Upsert(ctx, &stale))
	require.NoError(t, repo.Upsert(ctx, &offline))

	count, err := repo.CountOnline(ctx, now.Add(-5*time.Minute))
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestPresenceRepositoryExpireStale(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPresenceRepository(db)
	ctx := context.Background()
	now := time.Now()

	stale := models.User{ClerkID: "user_stale", Username: "stale", LastSeen: now.Add(-time.Hour), IsOnline: true}
	fresh := models.User{ClerkID: "user_fresh", Username: "fresh", LastSeen: now, IsOnline: true}
	require.NoError(t, repo.Upsert(ctx, &stale))
	require.NoError(t, repo.Upsert(ctx, &fresh))

	cleared, err := repo.ExpireStale(ctx, now.Add(-5*time.Minute))
	require.NoError(t, err)
	require.Equal(t, int64(1), cleared)

	var stored models.User
	require.NoError(t, db.Where("clerk_id = ?", "user_stale").First(&stored).Error)
	require.False(t, stored.IsOnline)
}
