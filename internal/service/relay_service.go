package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/dto"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/middleware"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/observability"
)

const (
	relaySendBufferSize = 32
	relayPingInterval   = 30 * time.Second
	relayQueueGroup     = "gcquest-relay"
	relayReservedPrefix = "system."
	// RelayMaxFrameBytes bounds a single client frame, payload included.
	RelayMaxFrameBytes = 16 << 10
)

// Server generated frame names.
const (
	RelayEventError        = "error"
	RelayEventPong         = "pong"
	RelayEventSubscribed   = "subscribed"
	RelayEventUnsubscribed = "unsubscribed"
)

var (
	// ErrRelayChannelInvalid indicates the channel name is not user, class or assessment scoped.
	ErrRelayChannelInvalid = errors.New("invalid relay channel")
	// ErrRelayNotAllowed indicates the client may not subscribe to the channel.
	ErrRelayNotAllowed = errors.New("not allowed on relay channel")
	// ErrRelayNotSubscribed indicates a publish to a channel the client did not join.
	ErrRelayNotSubscribed = errors.New("subscribe before publishing")
	// ErrRelayReservedEvent indicates a client tried to publish a server-only event.
	ErrRelayReservedEvent = errors.New("system events are reserved for the server")
	// ErrRelayFrameTooLarge indicates a client frame above RelayMaxFrameBytes.
	ErrRelayFrameTooLarge = errors.New("relay frame too large")
)

// RelayConnectionOptions carries identity extracted during the HTTP upgrade.
type RelayConnectionOptions struct {
	UserID        uint
	Role          string
	CorrelationID string
	Context       context.Context
}

// RelayService fans events out to websocket subscribers, across nodes when Redis or NATS is configured.
type RelayService interface {
	Publisher
	ServeConnection(conn *websocket.Conn, opts RelayConnectionOptions)
	Start(ctx context.Context)
}

// relayConn is the subset of a websocket connection the relay uses.
type relayConn interface {
	ReadMessage() (int, []byte, error)
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type relayService struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	validator    *validator.Validate
	logger       zerolog.Logger
	tracer       trace.Tracer
	hub          *relayHub
	nodeID       string
	now          func() time.Time
}

// relayHub tracks subscribers per channel.
type relayHub struct {
	mu       sync.RWMutex
	channels map[string]map[*relayClient]struct{}
	log      zerolog.Logger
}

type relayClient struct {
	conn    relayConn
	send    chan dto.RelayEvent
	options RelayConnectionOptions
	service *relayService
	closed  chan struct{}
	once    sync.Once

	mu            sync.Mutex
	subscriptions map[string]struct{}
}

// relayEnvelope is the cross-node wire format.
type relayEnvelope struct {
	Source string         `json:"source"`
	Event  dto.RelayEvent `json:"event"`
}

// NewRelayService creates the relay. redisClient and natsConn may be nil for a single node.
func NewRelayService(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, validate *validator.Validate, logger zerolog.Logger) RelayService {
	hub := &relayHub{
		channels: make(map[string]map[*relayClient]struct{}),
		log:      logger.With().Str("component", "relay_hub").Logger(),
	}

	redisChannel := ""
	natsSubject := ""
	if channelBase != "" {
		redisChannel = channelBase + ":relay"
		natsSubject = strings.ReplaceAll(channelBase, ":", ".") + ".relay"
	}

	return &relayService{
		redis:        redisClient,
		redisChannel: redisChannel,
		nats:         natsConn,
		natsSubject:  natsSubject,
		validator:    validate,
		logger:       logger.With().Str("component", "relay_service").Logger(),
		tracer:       otel.Tracer("github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/service/relay"),
		hub:          hub,
		nodeID:       uuid.NewString(),
		now:          time.Now,
	}
}

func (s *relayService) Start(ctx context.Context) {
	if s.redis != nil && s.redisChannel != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

func (s *relayService) ServeConnection(conn *websocket.Conn, opts RelayConnectionOptions) {
	// Oversized frames abort the read with an error, which ends the connection.
	conn.SetReadLimit(RelayMaxFrameBytes)
	s.serve(conn, opts)
}

func (s *relayService) serve(conn relayConn, opts RelayConnectionOptions) {
	if opts.Context == nil {
		opts.Context = context.Background()
	}

	client := s.newClient(conn, opts)

	observability.RelayConnections().WithLabelValues(opts.Role).Inc()
	defer observability.RelayConnections().WithLabelValues(opts.Role).Dec()

	go client.writer()
	client.reader()
}

func (s *relayService) newClient(conn relayConn, opts RelayConnectionOptions) *relayClient {
	return &relayClient{
		conn:          conn,
		send:          make(chan dto.RelayEvent, relaySendBufferSize),
		options:       opts,
		service:       s,
		closed:        make(chan struct{}),
		subscriptions: make(map[string]struct{}),
	}
}

// Publish delivers a server event to local subscribers and to peer nodes.
func (s *relayService) Publish(ctx context.Context, channel, event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	message := dto.RelayEvent{
		Channel: channel,
		Event:   event,
		Data:    payload,
		SentAt:  s.now().UTC(),
	}

	ctx, span := s.tracer.Start(ctx, "relay.publish", trace.WithAttributes(
		attribute.String("relay.channel", channel),
		attribute.String("relay.event", event),
	))
	defer span.End()

	observability.RelayMessages().WithLabelValues("server").Inc()
	s.hub.broadcast(message)
	if err := s.fanOut(ctx, message); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (s *relayService) handleFrame(ctx context.Context, client *relayClient, frame dto.RelayClientFrame) error {
	frame.Channel = strings.TrimSpace(frame.Channel)
	frame.Event = strings.TrimSpace(frame.Event)
	if err := s.validator.Struct(frame); err != nil {
		return err
	}

	switch frame.Action {
	case dto.RelayActionPing:
		client.enqueue(dto.RelayEvent{Event: RelayEventPong, SentAt: s.now().UTC()})
		return nil
	case dto.RelayActionSubscribe:
		if err := authoriseChannel(client.options, frame.Channel); err != nil {
			return err
		}
		if !client.subscribe(frame.Channel) {
			return nil
		}
		client.enqueue(dto.RelayEvent{Channel: frame.Channel, Event: RelayEventSubscribed, SentAt: s.now().UTC()})
		return nil
	case dto.RelayActionUnsubscribe:
		client.unsubscribe(frame.Channel)
		s.hub.unregister(frame.Channel, client)
		client.enqueue(dto.RelayEvent{Channel: frame.Channel, Event: RelayEventUnsubscribed, SentAt: s.now().UTC()})
		return nil
	case dto.RelayActionPublish:
		if !client.subscribed(frame.Channel) {
			return ErrRelayNotSubscribed
		}
		if reservedEvent(frame.Event) {
			return ErrRelayReservedEvent
		}

		message := dto.RelayEvent{
			Channel: frame.Channel,
			Event:   frame.Event,
			Data:    frame.Data,
			SentAt:  s.now().UTC(),
		}
		observability.RelayMessages().WithLabelValues("client").Inc()
		s.hub.broadcast(message)
		if err := s.fanOut(ctx, message); err != nil {
			s.logger.Warn().Err(err).Str("channel", frame.Channel).Msg("failed to fan out relay message")
		}
		return nil
	default:
		return ErrRelayChannelInvalid
	}
}

// reservedEvent reports whether a client-supplied event name could be mistaken
// for one the server publishes.
func reservedEvent(event string) bool {
	if strings.HasPrefix(event, relayReservedPrefix) {
		return true
	}
	namespace, _, _ := strings.Cut(event, ".")
	_, ok := serverEventNamespaces[namespace]
	return ok
}

// authoriseChannel applies the channel rules: user channels are private to
// their owner and staff, class and assessment channels are open to any
// authenticated user.
func authoriseChannel(opts RelayConnectionOptions, channel string) error {
	scope, rawID, ok := strings.Cut(channel, ":")
	if !ok {
		return ErrRelayChannelInvalid
	}
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil || id == 0 {
		return ErrRelayChannelInvalid
	}

	switch scope {
	case "user":
		actor := Actor{ID: opts.UserID, Role: opts.Role}
		if uint(id) == opts.UserID || actor.IsStaff() {
			return nil
		}
		return ErrRelayNotAllowed
	case "class", "assessment":
		return nil
	default:
		return ErrRelayChannelInvalid
	}
}

func (s *relayService) fanOut(ctx context.Context, message dto.RelayEvent) error {
	if (s.redis == nil || s.redisChannel == "") && (s.nats == nil || s.natsSubject == "") {
		return nil
	}

	payload, err := json.Marshal(relayEnvelope{Source: s.nodeID, Event: message})
	if err != nil {
		return err
	}

	if s.redis != nil && s.redisChannel != "" {
		if err := s.redis.Publish(ctx, s.redisChannel, payload).Err(); err != nil {
			return err
		}
	}
	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			return err
		}
	}
	return nil
}

func (s *relayService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisChannel)
	defer func() {
		_ = pubsub.Close()
	}()
	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, redis.ErrClosed) {
				return
			}
			s.logger.Error().Err(err).Msg("relay redis subscription closed")
			return
		}
		s.handleRemote([]byte(msg.Payload))
	}
}

func (s *relayService) consumeNATS(ctx context.Context) {
	// Every node needs every message, so the queue group is scoped to this node.
	sub, err := s.nats.QueueSubscribe(s.natsSubject, relayQueueGroup+"-"+s.nodeID, func(msg *nats.Msg) {
		s.handleRemote(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats relay subject")
		return
	}
	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain relay nats subscription")
		}
	}()
}

func (s *relayService) handleRemote(data []byte) {
	var envelope relayEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		s.logger.Warn().Err(err).Msg("invalid relay envelope")
		return
	}
	if envelope.Source == s.nodeID {
		return
	}
	observability.RelayMessages().WithLabelValues("remote").Inc()
	s.hub.broadcast(envelope.Event)
}

func (h *relayHub) register(channel string, client *relayClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.channels[channel]; !exists {
		h.channels[channel] = make(map[*relayClient]struct{})
	}
	h.channels[channel][client] = struct{}{}
	h.log.Debug().Str("channel", channel).Uint("user_id", client.options.UserID).Msg("relay subscription added")
}

func (h *relayHub) unregister(channel string, client *relayClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.channels[channel]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.channels, channel)
		}
	}
}

func (h *relayHub) subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

func (h *relayHub) broadcast(message dto.RelayEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.channels[message.Channel] {
		if !client.enqueue(message) {
			h.log.Warn().Str("channel", message.Channel).Uint("user_id", client.options.UserID).Msg("dropping relay message for slow client")
		}
	}
}

func (c *relayClient) enqueue(message dto.RelayEvent) bool {
	select {
	case c.send <- message:
		return true
	default:
		observability.RelayDropped().Inc()
		return false
	}
}

// subscribe records and registers the channel unless the client already closed.
// close reads subscriptions under the same lock, so nothing is left in the hub.
func (c *relayClient) subscribe(channel string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.closed:
		return false
	default:
	}
	c.subscriptions[channel] = struct{}{}
	c.service.hub.register(channel, c)
	return true
}

func (c *relayClient) unsubscribe(channel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscriptions, channel)
}

func (c *relayClient) subscribed(channel string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.subscriptions[channel]
	return ok
}

func (c *relayClient) channels() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	channels := make([]string, 0, len(c.subscriptions))
	for channel := range c.subscriptions {
		channels = append(channels, channel)
	}
	return channels
}

func (c *relayClient) reader() {
	defer c.close()

	ctx := c.options.Context
	correlation := c.options.CorrelationID
	if correlation == "" {
		correlation = middleware.CorrelationIDFromContext(ctx)
	}
	logger := c.service.logger.With().Uint("user_id", c.options.UserID).Str("correlation_id", correlation).Logger()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			logger.Debug().Err(err).Msg("relay read loop ended")
			return
		}

		if len(raw) > RelayMaxFrameBytes {
			c.sendError(ErrRelayFrameTooLarge.Error())
			logger.Debug().Int("bytes", len(raw)).Msg("relay frame rejected")
			continue
		}

		var frame dto.RelayClientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.sendError("malformed frame")
			continue
		}

		if err := c.service.handleFrame(ctx, c, frame); err != nil {
			var validationErrs validator.ValidationErrors
			if errors.As(err, &validationErrs) {
				c.sendError("invalid frame")
			} else {
				c.sendError(err.Error())
			}
			logger.Debug().Err(err).Str("action", frame.Action).Str("channel", frame.Channel).Msg("relay frame rejected")
		}

		select {
		case <-c.closed:
			return
		default:
		}
	}
}

func (c *relayClient) sendError(message string) {
	data, _ := json.Marshal(map[string]string{"message": message})
	c.enqueue(dto.RelayEvent{Event: RelayEventError, Data: data, SentAt: c.service.now().UTC()})
}

func (c *relayClient) writer() {
	defer c.close()

	ticker := time.NewTicker(relayPingInterval)
	defer ticker.Stop()

	for {
		select {
		case message := <-c.send:
			if err := c.conn.WriteJSON(message); err != nil {
				c.service.logger.Debug().Err(err).Msg("relay write loop terminated")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				c.service.logger.Debug().Err(err).Msg("relay ping failed")
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *relayClient) close() {
	c.once.Do(func() {
		close(c.closed)
		for _, channel := range c.channels() {
			c.service.hub.unregister(channel, c)
		}
		_ = c.conn.Close()
	})
}
