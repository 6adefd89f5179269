package listcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"resumeBuilder/internal/resume"
)

type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// RedisSnapshot 将列表快照保存在 Redis 中，带过期时间。
type RedisSnapshot struct {
	client redisKV
	ttl    time.Duration
}

// NewRedisSnapshot 构造 RedisSnapshot。
func NewRedisSnapshot(client redisKV, ttl time.Duration) *RedisSnapshot {
	return &RedisSnapshot{client: client, ttl: ttl}
}

func snapshotKey(ownerID string) string {
	return "resume_list:" + ownerID
}

func (s *RedisSnapshot) Save(ctx context.Context, ownerID string, items []resume.ListItem) error {
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return s.client.Set(ctx, snapshotKey(ownerID), payload, s.ttl).Err()
}

func (s *RedisSnapshot) Load(ctx context.Context, ownerID string) ([]resume.ListItem, error) {
	raw, err := s.client.Get(ctx, snapshotKey(ownerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoSnapshot
		}
		return nil, err
	}
	var items []resume.ListItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return items, nil
}
