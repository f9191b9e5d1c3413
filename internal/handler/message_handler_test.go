package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/harborchat/harbor-api/internal/dto"
	"github.com/harborchat/harbor-api/internal/service"
	"github.com/harborchat/harbor-api/internal/utils"
)

type stubMessageService struct {
	listChannel   string
	searchChannel string
	searchQuery   string
	sendErr       error
	toggleID      uint
}

func (s *stubMessageService) List(_ context.Context, channel string) ([]dto.MessageResponse, error) {
	s.listChannel = channel
	return []dto.MessageResponse{{ID: 1, Text: "hi", Author: "alice", Channel: "general"}}, nil
}

func (s *stubMessageService) Send(_ context.Context, payload dto.SendMessageRequest) (dto.MessageResponse, error) {
	if s.sendErr != nil {
		return dto.MessageResponse{}, s.sendErr
	}
	return dto.MessageResponse{ID: 2, Text: payload.Text, Author: payload.Author, Channel: "general"}, nil
}

func (s *stubMessageService) ToggleReaction(_ context.Context, messageID uint, _ dto.ToggleReactionRequest) (dto.MessageResponse, error) {
	s.toggleID = messageID
	if messageID == 404 {
		return dto.MessageResponse{}, service.ErrMessageNotFound
	}
	return dto.MessageResponse{ID: messageID}, nil
}

func (s *stubMessageService) Search(_ context.Context, channel, query string) ([]dto.MessageResponse, error) {
	s.searchChannel = channel
	s.searchQuery = query
	return []dto.MessageResponse{}, nil
}

func newMessageTestApp(stub *stubMessageService) *fiber.App {
	app := fiber.New()
	h := NewMessageHandler(stub, validator.New(), zerolog.Nop())
	h.Register(app.Group("/api/v1/messages"))
	return app
}

func decodeAPIResponse(t *testing.T, body io.Reader) utils.APIResponse {
	t.Helper()
	var response utils.APIResponse
	require.NoError(t, json.NewDecoder(body).Decode(&response))
	return response
}

func TestMessageListPassesChannelQuery(t *testing.T) {
	stub := &stubMessageService{}
	app := newMessageTestApp(stub)

	req := httptest.NewRequest(fiber.MethodGet, "/api/v1/messages/?channel=random", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "random", stub.listChannel)

	response := decodeAPIResponse(t, resp.Body)
	require.True(t, response.Success)
}

func TestMessageSendReturnsCreated(t *testing.T) {
	app := newMessageTestApp(&stubMessageService{})

	body, err := json.Marshal(dto.SendMessageRequest{Text: "hello", Author: "alice"})
	require.NoError(t, err)

	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/messages/", bytes.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
}

func TestMessageSendMapsEmptyMessageError(t *testing.T) {
	app := newMessageTestApp(&stubMessageService{sendErr: service.ErrMessageEmpty})

	body, err := json.Marshal(dto.SendMessageRequest{Author: "alice"})
	require.NoError(t, err)

	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/messages/", bytes.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	response := decodeAPIResponse(t, resp.Body)
	require.False(t, response.Success)
}

func TestMessageSendRejectsMalformedBody(t *testing.T) {
	app := newMessageTestApp(&stubMessageService{})

	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/messages/", bytes.NewReader([]byte("{not json")))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestToggleReactionParsesMessageID(t *testing.T) {
	stub := &stubMessageService{}
	app := newMessageTestApp(stub)

	body, err := json.Marshal(dto.ToggleReactionRequest{Emoji: "👍", Username: "bob"})
	require.NoError(t, err)

	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/messages/7/reactions", bytes.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint(7), stub.toggleID)
}

func TestToggleReactionMissingMessageIs404(t *testing.T) {
	app := newMessageTestApp(&stubMessageService{})

	body, err := json.Marshal(dto.ToggleReactionRequest{Emoji: "👍", Username: "bob"})
	require.NoError(t, err)

	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/messages/404/reactions", bytes.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestToggleReactionRejectsBadID(t *testing.T) {
	app := newMessageTestApp(&stubMessageService{})

	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/messages/abc/reactions", bytes.NewReader([]byte("{}")))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSearchPassesQueryParams(t *testing.T) {
	stub := &stubMessageService{}
	app := newMessageTestApp(stub)

	req := httptest.NewRequest(fiber.MethodGet, "/api/v1/messages/search?q=hello&channel=random", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "hello", stub.searchQuery)
	require.Equal(t, "random", stub.searchChannel)
}
