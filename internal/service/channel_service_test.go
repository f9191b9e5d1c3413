package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/harborchat/harbor-api/internal/auth"
	"github.com/harborchat/harbor-api/internal/dto"
	"github.com/harborchat/harbor-api/internal/models"
)

type stubChannelRepo struct {
	channels map[uint]models.Channel
	nextID   uint
	cascades []uint
}

func newStubChannelRepo() *stubChannelRepo {
	return &stubChannelRepo{channels: make(map[uint]models.Channel), nextID: 1}
}

func (r *stubChannelRepo) List(_ context.Context) ([]models.Channel, error) {
	out := make([]models.Channel, 0, len(r.channels))
	for _, channel := range r.channels {
		out = append(out, channel)
	}
	return out, nil
}

func (r *stubChannelRepo) GetByID(_ context.Context, id uint) (models.Channel, error) {
	channel, ok := r.channels[id]
	if !ok {
		return models.Channel{}, gorm.ErrRecordNotFound
	}
	return channel, nil
}

func (r *stubChannelRepo) GetByName(_ context.Context, name string) (models.Channel, error) {
	for _, channel := range r.channels {
		if channel.Name == name {
			return channel, nil
		}
	}
	return models.Channel{}, gorm.ErrRecordNotFound
}

func (r *stubChannelRepo) Create(_ context.Context, channel *models.Channel) error {
	channel.ID = r.nextID
	r.nextID++
	r.channels[channel.ID] = *channel
	return nil
}

func (r *stubChannelRepo) DeleteWithCascade(_ context.Context, id uint, _ string) (int64, error) {
	if _, ok := r.channels[id]; !ok {
		return 0, gorm.ErrRecordNotFound
	}
	delete(r.channels, id)
	r.cascades = append(r.cascades, id)
	return 2, nil
}

func (r *stubChannelRepo) DeleteAll(_ context.Context) (int64, error) {
	count := int64(len(r.channels))
	r.channels = make(map[uint]models.Channel)
	return count, nil
}

func newTestChannelService(repo *stubChannelRepo, admins *auth.AdminSet) (ChannelService, *recordingBroadcaster) {
	if admins == nil {
		admins = auth.NewAdminSet(nil, nil)
	}
	broadcaster := &recordingBroadcaster{}
	svc := NewChannelService(repo, admins, broadcaster, validator.New(), zerolog.Nop())
	return svc, broadcaster
}

func TestCreateChannelNormalizesName(t *testing.T) {
	repo := newStubChannelRepo()
	svc, broadcaster := newTestChannelService(repo, nil)

	response, err := svc.Create(context.Background(), dto.CreateChannelRequest{Name: "My Channel!"})
	require.NoError(t, err)
	require.Equal(t, "mychannel", response.Name)
	require.Equal(t, "anonymous", response.CreatedBy)

	require.Len(t, broadcaster.events, 1)
	require.Equal(t, EventChannelCreated, broadcaster.events[0].Type)
}

func TestCreateChannelRejectsUnusableName(t *testing.T) {
	svc, _ := newTestChannelService(newStubChannelRepo(), nil)

	_, err := svc.Create(context.Background(), dto.CreateChannelRequest{Name: "!!!"})
	require.ErrorIs(t, err, ErrChannelNameInvalid)
}

func TestCreateChannelRejectsDuplicate(t *testing.T) {
	repo := newStubChannelRepo()
	svc, _ := newTestChannelService(repo, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, dto.CreateChannelRequest{Name: "random"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, dto.CreateChannelRequest{Name: "Random"})
	require.ErrorIs(t, err, ErrChannelExists)
}

func TestCreateChannelRecordsAuthenticatedCreator(t *testing.T) {
	repo := newStubChannelRepo()
	svc, _ := newTestChannelService(repo, nil)
	ctx := auth.ContextWithIdentity(context.Background(), &auth.Identity{Subject: "user_1"})

	response, err := svc.Create(ctx, dto.CreateChannelRequest{Name: "random"})
	require.NoError(t, err)
	require.Equal(t, "user_1", response.CreatedBy)
}

func TestDeleteChannelRequiresAuthentication(t *testing.T) {
	svc, _ := newTestChannelService(newStubChannelRepo(), nil)

	err := svc.Delete(context.Background(), 1)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestDeleteChannelRequiresAdmin(t *testing.T) {
	svc, _ := newTestChannelService(newStubChannelRepo(), auth.NewAdminSet([]string{"user_admin"}, nil))
	ctx := auth.ContextWithIdentity(context.Background(), &auth.Identity{Subject: "user_regular"})

	err := svc.Delete(ctx, 1)
	require.ErrorIs(t, err, ErrNotAdmin)
}

func TestDeleteChannelProtectsGeneral(t *testing.T) {
	repo := newStubChannelRepo()
	general := models.Channel{Name: models.GeneralChannel, CreatedBy: "system"}
	require.NoError(t, repo.Create(context.Background(), &general))

	svc, _ := newTestChannelService(repo, auth.NewAdminSet([]string{"user_admin"}, nil))
	ctx := auth.ContextWithIdentity(context.Background(), &auth.Identity{Subject: "user_admin"})

	err := svc.Delete(ctx, general.ID)
	require.ErrorIs(t, err, ErrGeneralChannelProtected)
}

func TestDeleteChannelCascades(t *testing.T) {
	repo := newStubChannelRepo()
	channel := models.Channel{Name: "random", CreatedBy: "alice"}
	require.NoError(t, repo.Create(context.Background(), &channel))

	svc, broadcaster := newTestChannelService(repo, auth.NewAdminSet([]string{"user_admin"}, nil))
	ctx := auth.ContextWithIdentity(context.Background(), &auth.Identity{Subject: "user_admin"})

	require.NoError(t, svc.Delete(ctx, channel.ID))
	require.Equal(t, []uint{channel.ID}, repo.cascades)

	require.Len(t, broadcaster.events, 1)
	require.Equal(t, EventChannelDeleted, broadcaster.events[0].Type)
}

func TestDeleteChannelMissing(t *testing.T) {
	svc, _ := newTestChannelService(newStubChannelRepo(), auth.NewAdminSet([]string{"user_admin"}, nil))
	ctx := auth.ContextWithIdentity(context.Background(), &auth.Identity{Subject: "user_admin"})

	err := svc.Delete(ctx, 42)
	require.ErrorIs(t, err, ErrChannelNotFound)
}

func TestNormalizeChannelName(t *testing.T) {
	cases := map[string]string{
		"My Channel!": "mychannel",
		"dev-team":    "dev-team",
		"  General  ": "general",
		"проект":      "",
		"!!!":         "",
	}
	for input, want := range cases {
		require.Equal(t, want, NormalizeChannelName(input), "input %q", input)
	}
}
