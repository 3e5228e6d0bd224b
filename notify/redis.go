package notify

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultChannelPrefix namespaces per-user channels.
const DefaultChannelPrefix = "meetings:"

// NewRedisClient connects to url and pings it.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("notify: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("notify: ping redis: %w", err)
	}
	return client, nil
}

// RedisPublisher publishes events on a channel per recipient so connected
// clients of that user can refresh.
type RedisPublisher struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisPublisher wraps client. An empty prefix uses DefaultChannelPrefix.
func NewRedisPublisher(client redis.UniversalClient, prefix string) *RedisPublisher {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	return &RedisPublisher{client: client, prefix: prefix}
}

// Channel returns the channel events for userID are published on.
func (p *RedisPublisher) Channel(userID string) string {
	return p.prefix + userID
}

func (p *RedisPublisher) Notify(ctx context.Context, ev Event) error {
	body, err := marshalEvent(ev)
	if err != nil {
		return fmt.Errorf("notify: marshal redis payload: %w", err)
	}
	if err := p.client.Publish(ctx, p.Channel(ev.RecipientID), body).Err(); err != nil {
		return fmt.Errorf("notify: publish %s: %w", ev.Topic, err)
	}
	return nil
}
