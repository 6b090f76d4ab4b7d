package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// channelFor returns the per-user pub/sub channel name.
func channelFor(userID string) string {
	return "wallet:events:" + userID
}

// RedisPublisher publishes events on per-user Redis pub/sub channels.
type RedisPublisher struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisPublisher creates a publisher backed by the given Redis client.
func NewRedisPublisher(client *redis.Client, logger *zap.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, logger: logger}
}

func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, channelFor(event.UserID), string(data)).Err()
}

// RedisSubscriber consumes a user's events from Redis pub/sub.
type RedisSubscriber struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisSubscriber creates a subscriber backed by the given Redis client.
func NewRedisSubscriber(client *redis.Client, logger *zap.Logger) *RedisSubscriber {
	return &RedisSubscriber{client: client, logger: logger}
}

// Subscribe starts a goroutine that forwards the user's events to handler
// until ctx is canceled.
func (s *RedisSubscriber) Subscribe(ctx context.Context, userID string, handler func(Event)) error {
	pubsub := s.client.Subscribe(ctx, channelFor(userID))
	ch := pubsub.Channel()

	go func() {
		defer pubsub.Close()
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
					s.logger.Error("failed to unmarshal event", zap.Error(err))
					continue
				}
				handler(event)
			}
		}
	}()

	return nil
}
