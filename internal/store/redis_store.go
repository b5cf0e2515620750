package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	viewKeyPrefix   = "interaction:view:"
	dirtyKeyPrefix  = "interaction:dirty:"
	viewMarkerValue = "1"
)

// Config holds the Redis connection settings.
type Config struct {
	Address      string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RedisStore implements DedupStore and DirtyTracker backed by Redis.
type RedisStore struct {
	client *redis.Client
}

// NewClient builds a Redis client without connecting.
func NewClient(cfg Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
}

// NewRedisStore connects to Redis and verifies the connection with PING.
func NewRedisStore(ctx context.Context, cfg Config) (*RedisStore, error) {
	client := NewClient(cfg)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// ViewKey is the dedup key of one viewer on one content item.
func ViewKey(contentID, viewerID string) string {
	return viewKeyPrefix + contentID + ":" + viewerID
}

func dirtyKey(scope Scope) string {
	return dirtyKeyPrefix + string(scope)
}

// SetIfAbsent issues SET key 1 NX EX ttl.
func (s *RedisStore) SetIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, viewMarkerValue, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: setnx %s: %v", ErrUnavailable, key, err)
	}
	return ok, nil
}

// MarkDirty bumps the score of each id in the scope's sorted set.
func (s *RedisStore) MarkDirty(ctx context.Context, scope Scope, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	key := dirtyKey(scope)
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, id := range ids {
			p.ZIncrBy(ctx, key, 1, id)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis mark dirty %s: %w", scope, err)
	}
	return nil
}

// TopDirty returns up to n records with the highest mutation counts.
func (s *RedisStore) TopDirty(ctx context.Context, scope Scope, n int64) ([]DirtyRecord, error) {
	zs, err := s.client.ZRevRangeWithScores(ctx, dirtyKey(scope), 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis top dirty %s: %w", scope, err)
	}
	records := make([]DirtyRecord, 0, len(zs))
	for _, z := range zs {
		id, ok := z.Member.(string)
		if !ok {
			continue
		}
		records = append(records, DirtyRecord{ID: id, Score: z.Score})
	}
	return records, nil
}

// clearDirtyScript takes member/score pairs in ARGV. Members whose score has
// not grown are removed, the rest keep what was added since.
var clearDirtyScript = redis.NewScript(`
local key = KEYS[1]
for i = 1, #ARGV, 2 do
  local cur = redis.call("ZSCORE", key, ARGV[i])
  if cur then
    local seen = tonumber(ARGV[i + 1])
    if tonumber(cur) <= seen then
      redis.call("ZREM", key, ARGV[i])
    else
      redis.call("ZINCRBY", key, -seen, ARGV[i])
    end
  end
end
return 0
`)

// ClearDirty drops the scores observed by a previous TopDirty call.
func (s *RedisStore) ClearDirty(ctx context.Context, scope Scope, records ...DirtyRecord) error {
	if len(records) == 0 {
		return nil
	}
	args := make([]interface{}, 0, len(records)*2)
	for _, r := range records {
		args = append(args, r.ID, r.Score)
	}
	err := clearDirtyScript.Run(ctx, s.client, []string{dirtyKey(scope)}, args...).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis clear dirty %s: %w", scope, err)
	}
	return nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ensure interfaces are satisfied at compile time.
var (
	_ DedupStore   = (*RedisStore)(nil)
	_ DirtyTracker = (*RedisStore)(nil)
)
