package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/medconnect/clinic-backend/internal/domain/entities"
	"github.com/medconnect/clinic-backend/internal/domain/providers"
	redisclient "github.com/medconnect/clinic-backend/internal/infrastructure/clients/redis"
	"github.com/medconnect/clinic-backend/internal/infrastructure/observability"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	subscriberBuffer = 64
	pubsubBuffer     = 256
)

// subscribePattern covers every per-user channel and the broadcast channel
var subscribePattern = providers.EventChannelUserPrefix + "*"

// RedisEventBus implements EventBus on Redis Pub/Sub. A process holds one
// pattern subscription and routes messages to local subscribers by channel.
type RedisEventBus struct {
	client *redisclient.Client
	logger *zerolog.Logger

	mu          sync.RWMutex
	subscribers map[string]map[chan *entities.RealtimeEvent]struct{}
	pubsub      *redis.PubSub
	closed      bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewRedisEventBus creates a new Redis-based event bus
func NewRedisEventBus(client *redisclient.Client) providers.EventBus {
	return newRedisEventBus(client)
}

func newRedisEventBus(client *redisclient.Client) *RedisEventBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisEventBus{
		client:      client,
		logger:      observability.GetLogger(),
		subscribers: make(map[string]map[chan *entities.RealtimeEvent]struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Publish publishes an event to all subscribers of channel across processes
func (b *RedisEventBus) Publish(ctx context.Context, channel string, event *entities.RealtimeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := b.client.Client().Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	observability.LoggerFromContext(ctx).Debug().
		Str("channel", channel).
		Str("event_id", event.ID).
		Msg("Published realtime event")
	return nil
}

// Subscribe returns a channel receiving events published on channel until ctx
// is done, Unsubscribe is called for channel, or the bus closes.
func (b *RedisEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.RealtimeEvent, error) {
	if !strings.HasPrefix(channel, providers.EventChannelUserPrefix) {
		return nil, fmt.Errorf("channel %q is outside %s", channel, subscribePattern)
	}
	if err := b.ensureListening(ctx); err != nil {
		return nil, err
	}

	events, err := b.addSubscriber(channel)
	if err != nil {
		return nil, err
	}

	go func() {
		select {
		case <-ctx.Done():
		case <-b.ctx.Done():
		}
		b.removeSubscriber(channel, events)
	}()
	return events, nil
}

// ensureListening opens the shared pattern subscription on first use
func (b *RedisEventBus) ensureListening(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("event bus is closed")
	}
	if b.pubsub != nil {
		return nil
	}

	pubsub := b.client.Client().PSubscribe(b.ctx, subscribePattern)
	// The first reply confirms the subscription or surfaces a connection error
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", subscribePattern, err)
	}
	b.pubsub = pubsub
	go b.listen(pubsub)

	b.logger.Info().Str("pattern", subscribePattern).Msg("Listening for realtime events")
	return nil
}

func (b *RedisEventBus) listen(pubsub *redis.PubSub) {
	for msg := range pubsub.Channel(redis.WithChannelSize(pubsubBuffer)) {
		b.dispatch(msg.Channel, msg.Payload)
	}
	b.logger.Debug().Msg("Realtime listener stopped")
}

// dispatch delivers payload to the local subscribers of channel. A subscriber
// whose buffer is full misses the event rather than stalling the others.
func (b *RedisEventBus) dispatch(channel, payload string) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	subscribers := b.subscribers[channel]
	if len(subscribers) == 0 {
		return
	}

	var event entities.RealtimeEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		b.logger.Warn().Err(err).Str("channel", channel).Msg("Dropping malformed realtime event")
		return
	}

	for subscriber := range subscribers {
		select {
		case subscriber <- &event:
		default:
			b.logger.Warn().Str("channel", channel).Str("event_id", event.ID).Msg("Subscriber buffer full, skipping event")
		}
	}
}

func (b *RedisEventBus) addSubscriber(channel string) (chan *entities.RealtimeEvent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("event bus is closed")
	}
	if b.subscribers[channel] == nil {
		b.subscribers[channel] = make(map[chan *entities.RealtimeEvent]struct{})
	}
	events := make(chan *entities.RealtimeEvent, subscriberBuffer)
	b.subscribers[channel][events] = struct{}{}

	b.logger.Debug().Str("channel", channel).Int("subscribers", len(b.subscribers[channel])).Msg("Subscribed to channel")
	return events, nil
}

// removeSubscriber closes events unless Unsubscribe or Close already did
func (b *RedisEventBus) removeSubscriber(channel string, events chan *entities.RealtimeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subscribers := b.subscribers[channel]
	if _, ok := subscribers[events]; !ok {
		return
	}
	delete(subscribers, events)
	close(events)
	if len(subscribers) == 0 {
		delete(b.subscribers, channel)
	}
}

// Unsubscribe ends every local subscription to channel
func (b *RedisEventBus) Unsubscribe(ctx context.Context, channel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for events := range b.subscribers[channel] {
		close(events)
	}
	delete(b.subscribers, channel)
	return nil
}

// Close stops the listener and ends every subscription
func (b *RedisEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	for channel, subscribers := range b.subscribers {
		for events := range subscribers {
			close(events)
		}
		delete(b.subscribers, channel)
	}
	pubsub := b.pubsub
	b.pubsub = nil
	b.mu.Unlock()

	b.cancel()
	if pubsub != nil {
		if err := pubsub.Close(); err != nil {
			return fmt.Errorf("failed to close subscription: %w", err)
		}
	}
	b.logger.Info().Msg("Event bus closed")
	return nil
}
