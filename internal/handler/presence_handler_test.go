package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/harborchat/harbor-api/internal/dto"
)

type stubPresenceService struct {
	heartbeats []dto.HeartbeatRequest
	count      int64
}

func (s *stubPresenceService) Heartbeat(_ context.Context, payload dto.HeartbeatRequest) error {
	s.heartbeats = append(s.heartbeats, payload)
	return nil
}

func (s *stubPresenceService) OnlineCount(_ context.Context) (int64, error) {
	return s.count, nil
}

func (s *stubPresenceService) OnlineUsers(_ context.Context) ([]dto.OnlineUserResponse, error) {
	return []dto.OnlineUserResponse{{Username: "alice"}}, nil
}

func (s *stubPresenceService) Start(_ context.Context) {}

func newPresenceTestApp(stub *stubPresenceService) *fiber.App {
	app := fiber.New()
	h := NewPresenceHandler(stub, validator.New(), zerolog.Nop())
	h.Register(app.Group("/api/v1/presence"))
	return app
}

func TestHeartbeatEndpoint(t *testing.T) {
	stub := &stubPresenceService{}
	app := newPresenceTestApp(stub)

	body, err := json.Marshal(dto.HeartbeatRequest{Username: "alice"})
	require.NoError(t, err)

	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/presence/heartbeat", bytes.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Len(t, stub.heartbeats, 1)
	require.Equal(t, "alice", stub.heartbeats[0].Username)
}

func TestOnlineCountEndpoint(t *testing.T) {
	app := newPresenceTestApp(&stubPresenceService{count: 7})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/api/v1/presence/online/count", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	response := decodeAPIResponse(t, resp.Body)
	data, ok := response.Data.(map[string]interface{})
	require.True(t, ok)
	require.EqualValues(t, 7, data["count"])
}

func TestOnlineUsersEndpoint(t *testing.T) {
	app := newPresenceTestApp(&stubPresenceService{})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/api/v1/presence/online", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}
