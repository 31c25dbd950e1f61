package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/campus-evote-api/internal/observability"
)

const liveBufferSize = 16

// Live topics.
const (
	LiveTopicResults  = "results"
	LiveTopicElection = "election"
)

// Live event types.
const (
	LiveEventBallotCast       = "ballot.cast"
	LiveEventElectionStarted  = "election.started"
	LiveEventElectionClosed   = "election.closed"
	LiveEventResultsPublished = "election.published"
	LiveEventElectionReset    = "election.reset"
	LiveEventTieResolved      = "results.tie_resolved"
)

// LiveEvent is a change notification pushed to open streams.
type LiveEvent struct {
	Topic   string          `json:"topic"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	SentAt  time.Time       `json:"sent_at"`
}

// Subscription is a handle on a live stream. Cancel must be called when the consumer goes
// away; it is safe to call more than once.
type Subscription struct {
	C <-chan LiveEvent

	once   sync.Once
	cancel func()
}

// Cancel stops delivery and closes C.
func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
}

// LiveService fans election changes out to open streams on this and other nodes.
type LiveService interface {
	Publish(ctx context.Context, topic, eventType string, payload interface{}) error
	Watch(topic string) *Subscription
	Start(ctx context.Context)
}

type liveService struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
	broker       *liveBroker
	nodeID       string
	now          func() time.Time
}

type liveEnvelope struct {
	Source string    `json:"source"`
	Event  LiveEvent `json:"event"`
}

type liveBroker struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan LiveEvent]struct{}
}

// NewLiveService constructs a live service. The Redis client and NATS connection are optional;
// without them events only reach subscribers on this node.
func NewLiveService(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) LiveService {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":events"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".events"
	}

	return &liveService{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		logger:       logger.With().Str("component", "live_service").Logger(),
		broker:       &liveBroker{subscribers: make(map[string]map[chan LiveEvent]struct{})},
		nodeID:       uuid.NewString(),
		now:          time.Now,
	}
}

func (s *liveService) Start(ctx context.Context) {
	if s.redis != nil && s.redisChannel != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

func (s *liveService) Publish(ctx context.Context, topic, eventType string, payload interface{}) error {
	event := LiveEvent{Topic: topic, Type: eventType, SentAt: s.now().UTC()}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		event.Payload = raw
	}

	s.deliver(event)

	envelope, err := json.Marshal(liveEnvelope{Source: s.nodeID, Event: event})
	if err != nil {
		return err
	}

	if s.redis != nil && s.redisChannel != "" {
		if err := s.redis.Publish(ctx, s.redisChannel, envelope).Err(); err != nil {
			return err
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, envelope); err != nil {
			return err
		}
	}

	return nil
}

func (s *liveService) Watch(topic string) *Subscription {
	channel := make(chan LiveEvent, liveBufferSize)

	s.broker.subscribe(topic, channel)
	observability.LiveSubscribers().Inc()

	return &Subscription{
		C: channel,
		cancel: func() {
			s.broker.unsubscribe(topic, channel)
			observability.LiveSubscribers().Dec()
		},
	}
}

func (s *liveService) deliver(event LiveEvent) {
	observability.LiveEvents().WithLabelValues(event.Type).Inc()
	s.broker.broadcast(event.Topic, event)
}

func (s *liveService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisChannel)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, redis.ErrClosed) {
				return
			}
			s.logger.Error().Err(err).Msg("live redis subscription closed")
			return
		}
		s.handleEnvelope([]byte(msg.Payload))
	}
}

func (s *liveService) consumeNATS(ctx context.Context) {
	// No queue group: every node must see every event.
	sub, err := s.nats.Subscribe(s.natsSubject, func(msg *nats.Msg) {
		s.handleEnvelope(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats live subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain live nats subscription")
		}
	}()
}

func (s *liveService) handleEnvelope(payload []byte) {
	var envelope liveEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		s.logger.Warn().Err(err).Msg("invalid live event payload")
		return
	}

	if envelope.Source == s.nodeID || envelope.Event.Topic == "" {
		return
	}

	s.deliver(envelope.Event)
}

func (b *liveBroker) subscribe(topic string, ch chan LiveEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[topic]; !exists {
		b.subscribers[topic] = make(map[chan LiveEvent]struct{})
	}
	b.subscribers[topic][ch] = struct{}{}
}

func (b *liveBroker) unsubscribe(topic string, ch chan LiveEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, ok := b.subscribers[topic]; ok {
		if _, found := subscribers[ch]; !found {
			return
		}
		delete(subscribers, ch)
		close(ch)
		if len(subscribers) == 0 {
			delete(b.subscribers, topic)
		}
	}
}

func (b *liveBroker) broadcast(topic string, event LiveEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers[topic] {
		select {
		case ch <- event:
		default:
		}
	}
}

func (b *liveBroker) count(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[topic])
}
