package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// RedisBridge publishes events to Redis pub/sub channels so other nodes can
// relay them to their own websocket clients. Publishes go through a circuit
// breaker: when Redis is down the breaker opens and publishes fail fast
// instead of stalling the write path.
type RedisBridge struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker
	logger  zerolog.Logger
}

// NewRedisBridge connects to Redis using the given URL.
func NewRedisBridge(ctx context.Context, redisURL string, logger zerolog.Logger) (*RedisBridge, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "realtime-redis",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})

	return &RedisBridge{client: client, breaker: breaker, logger: logger}, nil
}

// Publish implements Broadcaster over Redis pub/sub.
func (b *RedisBridge) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	_, err = b.breaker.Execute(func() (interface{}, error) {
		return nil, b.client.Publish(ctx, Topic(event.Department), data).Err()
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", Topic(event.Department), err)
	}
	return nil
}

// Relay subscribes to all queue channels and feeds events published by other
// nodes into the local hub. It blocks until ctx is cancelled.
func (b *RedisBridge) Relay(ctx context.Context, hub *Hub) {
	pubsub := b.client.PSubscribe(ctx, Topic("*"))
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.logger.Warn().Err(err).Str("channel", msg.Channel).Msg("malformed relayed event")
				continue
			}
			_ = hub.Publish(ctx, event)
		}
	}
}

// Close releases the Redis connection.
func (b *RedisBridge) Close() error {
	return b.client.Close()
}
