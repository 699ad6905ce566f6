package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/example/salon-scheduler/internal/persistence"
)

// DefaultChannel is the Redis pub/sub channel carrying change events.
const DefaultChannel = "salon:changes"

// RedisFeed is a persistence.ChangeFeed shared across processes. Publish
// sends to Redis; events received from Redis, including this process's own,
// are dispatched to local subscribers once Start has been called.
type RedisFeed struct {
	client  redis.UniversalClient
	channel string
	local   *Hub
	logger  *slog.Logger

	wg sync.WaitGroup
}

var _ persistence.ChangeFeed = (*RedisFeed)(nil)

// NewRedisFeed constructs a feed on client. An empty channel uses DefaultChannel.
func NewRedisFeed(client redis.UniversalClient, channel string, logger *slog.Logger) *RedisFeed {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisFeed{
		client:  client,
		channel: channel,
		local:   NewHub(),
		logger:  logger.With("component", "realtime.redis", "channel", channel),
	}
}

// Publish serialises event as JSON onto the channel.
func (f *RedisFeed) Publish(ctx context.Context, event persistence.ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("realtime: encode change event: %w", err)
	}
	if err := f.client.Publish(ctx, f.channel, payload).Err(); err != nil {
		return fmt.Errorf("realtime: publish change event: %w", err)
	}
	return nil
}

// Subscribe registers fn for events received from Redis.
func (f *RedisFeed) Subscribe(entity persistence.Entity, fn func(persistence.ChangeEvent)) func() {
	return f.local.Subscribe(entity, fn)
}

// Start subscribes to the channel and returns once Redis confirms the
// subscription. Delivery runs until ctx is cancelled.
func (f *RedisFeed) Start(ctx context.Context) error {
	pubsub := f.client.Subscribe(ctx, f.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("realtime: subscribe %s: %w", f.channel, err)
	}

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		defer pubsub.Close()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				f.dispatch(ctx, msg.Payload)
			}
		}
	}()
	return nil
}

// Wait blocks until the delivery loop started by Start has exited.
func (f *RedisFeed) Wait() {
	f.wg.Wait()
}

func (f *RedisFeed) dispatch(ctx context.Context, payload string) {
	var event persistence.ChangeEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		f.logger.WarnContext(ctx, "discarding malformed change event", "error", err)
		return
	}
	_ = f.local.Publish(ctx, event)
}
