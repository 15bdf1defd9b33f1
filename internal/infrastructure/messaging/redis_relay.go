package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/studyhub/study-hub/internal/domain/shared"
	"github.com/studyhub/study-hub/pkg/logger"
)

// DefaultChannel is the Pub/Sub channel used when none is configured.
const DefaultChannel = "studyhub:events"

// ══════════════════════════════════════════════════════════════════════════════
// REDIS RELAY
// Publishes events to a Redis channel and replays events received from other
// instances onto a local bus. Events published by this instance are not
// replayed back to it.
// ══════════════════════════════════════════════════════════════════════════════

// RedisRelayConfig contains configuration for RedisRelay.
type RedisRelayConfig struct {
	Client     *redis.Client
	Channel    string
	InstanceID string

	// DeliverLocally also publishes on the local bus when this instance publishes.
	DeliverLocally bool

	Logger *logger.Logger
}

// RedisRelay is a shared.EventPublisher backed by Redis Pub/Sub.
type RedisRelay struct {
	client         *redis.Client
	local          *InMemoryEventBus
	channel        string
	instanceID     string
	deliverLocally bool
	log            *logger.Logger

	mu     sync.Mutex
	closed bool
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRedisRelay creates a relay delivering received events to local.
func NewRedisRelay(config RedisRelayConfig, local *InMemoryEventBus) (*RedisRelay, error) {
	if config.Client == nil {
		return nil, errors.New("redis client is required")
	}
	if local == nil {
		return nil, errors.New("local bus is required")
	}
	if config.Channel == "" {
		config.Channel = DefaultChannel
	}
	if config.InstanceID == "" {
		config.InstanceID = uuid.NewString()
	}
	if config.Logger == nil {
		config.Logger = logger.Nop()
	}

	return &RedisRelay{
		client:         config.Client,
		local:          local,
		channel:        config.Channel,
		instanceID:     config.InstanceID,
		deliverLocally: config.DeliverLocally,
		log:            config.Logger.With(logger.Component("redis_relay")),
	}, nil
}

// Publish sends event to the channel, and to the local bus when configured.
func (r *RedisRelay) Publish(event shared.Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}

	data, err := encodeEnvelope(r.instanceID, event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	pubErr := r.client.Publish(ctx, r.channel, data).Err()
	if pubErr != nil {
		r.log.Error("failed to publish event to redis",
			logger.String("event_type", string(event.EventType())), logger.Err(pubErr))
	}

	if r.deliverLocally {
		return r.local.Publish(event)
	}
	if pubErr != nil {
		return fmt.Errorf("redis relay: publish: %w", pubErr)
	}
	return nil
}

// Start subscribes to the channel and replays received events until ctx is
// done or Close is called.
func (r *RedisRelay) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrEventBusClosed
	}

	ctx, r.cancel = context.WithCancel(ctx)
	sub := r.client.Subscribe(ctx, r.channel)
	if _, err := sub.Receive(ctx); err != nil {
		r.cancel()
		_ = sub.Close()
		return fmt.Errorf("redis relay: subscribe %s: %w", r.channel, err)
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer sub.Close()
		r.loop(ctx, sub.Channel())
	}()

	r.log.Info("subscribed to event channel", logger.String("channel", r.channel))
	return nil
}

func (r *RedisRelay) loop(ctx context.Context, messages <-chan *redis.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			r.handleMessage(msg.Payload)
		}
	}
}

func (r *RedisRelay) handleMessage(payload string) {
	origin, event, err := decodeEnvelope(payload)
	if err != nil {
		r.log.Warn("dropping undecodable event", logger.Err(err))
		return
	}
	if origin == r.instanceID {
		return
	}
	if err := r.local.Publish(event); err != nil {
		r.log.Error("failed to deliver remote event", logger.Err(err))
	}
}

// Close stops the subscription loop. The local bus is left open.
func (r *RedisRelay) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Unlock()

	r.wg.Wait()
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ENVELOPE
// ══════════════════════════════════════════════════════════════════════════════

type envelope struct {
	InstanceID string           `json:"instance_id"`
	EventType  shared.EventType `json:"event_type"`
	Payload    json.RawMessage  `json:"payload"`
}

func encodeEnvelope(instanceID string, event shared.Event) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return json.Marshal(envelope{InstanceID: instanceID, EventType: event.EventType(), Payload: payload})
}

func decodeEnvelope(data string) (string, shared.Event, error) {
	var env envelope
	if err := json.Unmarshal([]byte(data), &env); err != nil {
		return "", nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	var event shared.Event
	switch env.EventType {
	case shared.EventSessionCompleted:
		var e shared.SessionCompletedEvent
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return "", nil, fmt.Errorf("unmarshal %s: %w", env.EventType, err)
		}
		event = e
	case shared.EventBadgeAwarded:
		var e shared.BadgeAwardedEvent
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return "", nil, fmt.Errorf("unmarshal %s: %w", env.EventType, err)
		}
		event = e
	default:
		return "", nil, fmt.Errorf("unknown event type %q", env.EventType)
	}
	return env.InstanceID, event, nil
}
