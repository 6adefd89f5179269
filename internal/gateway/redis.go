package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisNotifier 通过 Redis Pub/Sub 广播文档变更。
type RedisNotifier struct {
	client redis.UniversalClient
	logger *slog.Logger
}

// NewRedisNotifier 构造 RedisNotifier。
func NewRedisNotifier(client redis.UniversalClient, logger *slog.Logger) *RedisNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisNotifier{client: client, logger: logger}
}

// ChannelFor returns the pub/sub channel of a collection.
func ChannelFor(collection string) string {
	return "doc_changes:" + collection
}

// Publish 将事件序列化后发布到集合对应的频道。
func (n *RedisNotifier) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := n.client.Publish(ctx, ChannelFor(ev.Collection), payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Subscribe 订阅集合频道，id 非空时只转发该文档的事件。
func (n *RedisNotifier) Subscribe(ctx context.Context, collection, id string) (<-chan Event, error) {
	channel := ChannelFor(collection)
	pubsub := n.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	out := make(chan Event, 16)
	go func() {
		defer close(out)
		defer pubsub.Close()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					n.logger.Warn("drop malformed document event", slog.String("channel", channel), slog.Any("error", err))
					continue
				}
				if id != "" && ev.ID != id {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
