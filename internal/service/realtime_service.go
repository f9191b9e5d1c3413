package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/harborchat/harbor-api/internal/observability"
)

const realtimeSendBufferSize = 32

// Event types pushed to subscribed clients.
const (
	EventMessageCreated  = "message.created"
	EventReactionToggled = "reaction.toggled"
	EventChannelCreated  = "channel.created"
	EventChannelDeleted  = "channel.deleted"
	EventPresenceUpdated = "presence.updated"
)

// Event is a store-change notification fanned out to subscribers. Channel
// scopes delivery; events with an empty Channel reach every client.
type Event struct {
	Type    string      `json:"type"`
	Channel string      `json:"channel,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Broadcaster is the mutation-side view of the realtime layer.
type Broadcaster interface {
	Publish(ctx context.Context, event Event)
}

// SubscriptionOptions wraps metadata extracted during the HTTP upgrade.
type SubscriptionOptions struct {
	UserID  string
	Channel string
	Context context.Context
}

// RealtimeService manages websocket subscriptions and event delivery.
type RealtimeService interface {
	Broadcaster
	ServeConnection(conn *websocket.Conn, opts SubscriptionOptions)
	Start(ctx context.Context)
}

type realtimeService struct {
	redis       *redis.Client
	redisStream string
	nats        *nats.Conn
	natsSubject string
	logger      zerolog.Logger
	hub         *subscriberHub
	nodeID      string
}

// subscriberHub tracks active websocket clients per channel.
type subscriberHub struct {
	mu      sync.RWMutex
	clients map[*realtimeClient]struct{}
	log     zerolog.Logger
}

type realtimeClient struct {
	conn    *websocket.Conn
	send    chan Event
	options SubscriptionOptions
	service *realtimeService
	closed  chan struct{}
	once    sync.Once
}

type nodeEvent struct {
	Source string    `json:"source"`
	Event  Event     `json:"event"`
	SentAt time.Time `json:"sent_at"`
}

// NewRealtimeService creates the websocket fan-out service. Redis and NATS
// are optional; when present they relay events between nodes.
func NewRealtimeService(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) RealtimeService {
	hub := &subscriberHub{
		clients: make(map[*realtimeClient]struct{}),
		log:     logger.With().Str("component", "realtime_hub").Logger(),
	}

	redisStream := ""
	natsSubject := ""
	if channelBase != "" {
		redisStream = channelBase + ":events"
		natsSubject = strings.ReplaceAll(channelBase, ":", ".") + ".events"
	}

	return &realtimeService{
		redis:       redisClient,
		redisStream: redisStream,
		nats:        natsConn,
		natsSubject: natsSubject,
		logger:      logger.With().Str("component", "realtime_service").Logger(),
		hub:         hub,
		nodeID:      uuid.NewString(),
	}
}

func (s *realtimeService) Start(ctx context.Context) {
	if s.redis != nil && s.redisStream != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

func (s *realtimeService) ServeConnection(conn *websocket.Conn, opts SubscriptionOptions) {
	client := &realtimeClient{
		conn:    conn,
		send:    make(chan Event, realtimeSendBufferSize),
		options: opts,
		service: s,
		closed:  make(chan struct{}),
	}

	s.hub.register(client)
	observability.RealtimeConnections().Inc()
	defer observability.RealtimeConnections().Dec()

	go client.writer()
	client.reader()
}

// Publish fans the event out to local subscribers and relays it to peers.
func (s *realtimeService) Publish(ctx context.Context, event Event) {
	s.hub.broadcast(event)

	payload, err := json.Marshal(nodeEvent{Source: s.nodeID, Event: event, SentAt: time.Now().UTC()})
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to marshal realtime event")
		return
	}

	if s.redis != nil && s.redisStream != "" {
		if err := s.redis.Publish(ctx, s.redisStream, payload).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish realtime event to redis")
		}
	}
	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish realtime event to nats")
		}
	}
}

func (s *realtimeService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisStream)
	defer func() {
		_ = pubsub.Close()
	}()
	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("realtime redis subscription closed")
			return
		}
		s.handlePeerEvent([]byte(msg.Payload))
	}
}

func (s *realtimeService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.QueueSubscribe(s.natsSubject, "harbor-realtime", func(msg *nats.Msg) {
		s.handlePeerEvent(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats realtime subject")
		return
	}
	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain realtime nats subscription")
		}
	}()
}

func (s *realtimeService) handlePeerEvent(data []byte) {
	var event nodeEvent
	if err := json.Unmarshal(data, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid realtime peer event")
		return
	}
	if event.Source == s.nodeID {
		return
	}
	s.hub.broadcast(event.Event)
}

func (h *subscriberHub) register(client *realtimeClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client.options.Channel == "" {
		client.options.Channel = "general"
	}
	h.clients[client] = struct{}{}
	h.log.Debug().Str("channel", client.options.Channel).Str("user_id", client.options.UserID).Msg("realtime client subscribed")
}

func (h *subscriberHub) unregister(client *realtimeClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.clients, client)
	h.log.Debug().Str("channel", client.options.Channel).Str("user_id", client.options.UserID).Msg("realtime client unsubscribed")
}

func (h *subscriberHub) broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if event.Channel != "" && client.options.Channel != event.Channel {
			continue
		}
		select {
		case client.send <- event:
		default:
			h.log.Warn().Str("channel", client.options.Channel).Str("user_id", client.options.UserID).Msg("dropping realtime event for slow client")
		}
	}
}

// subscribeRequest lets a connected client switch the channel it watches.
type subscribeRequest struct {
	Channel string `json:"channel"`
}

func (c *realtimeClient) reader() {
	defer c.close()

	for {
		var payload subscribeRequest
		if err := c.conn.ReadJSON(&payload); err != nil {
			c.service.logger.Debug().Err(err).Msg("realtime read loop ended")
			return
		}

		if channel := strings.TrimSpace(payload.Channel); channel != "" {
			c.service.hub.mu.Lock()
			c.options.Channel = channel
			c.service.hub.mu.Unlock()
		}
	}
}

func (c *realtimeClient) writer() {
	defer c.close()

	for {
		select {
		case event, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				c.service.logger.Debug().Err(err).Msg("realtime write loop terminated")
				return
			}
		case <-time.After(30 * time.Second):
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				c.service.logger.Debug().Err(err).Msg("realtime ping failed")
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *realtimeClient) close() {
	c.once.Do(func() {
		close(c.closed)
		c.service.hub.unregister(c)
		_ = c.conn.Close()
	})
}
