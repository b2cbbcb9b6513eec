package fx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"subtrack/internal/core"
)

const defaultRedisKey = "subtrack:fx:usd_krw"

// RedisStore keeps the cached rate in Redis so several processes share it.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, key: defaultRedisKey}
}

// NewRedisStoreFromURL parses a redis:// URL and verifies the connection.
func NewRedisStoreFromURL(ctx context.Context, url string) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisStore(client), nil
}

func (s *RedisStore) LoadRates(ctx context.Context) (core.FxRateCache, bool, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return core.FxRateCache{}, false, nil
	}
	if err != nil {
		return core.FxRateCache{}, false, fmt.Errorf("redis get fx rate: %w", err)
	}
	var c core.FxRateCache
	if err := json.Unmarshal(raw, &c); err != nil {
		return core.FxRateCache{}, false, fmt.Errorf("decode cached fx rate: %w", err)
	}
	return c, true, nil
}

// SaveRates stores the rate without expiry; staleness is decided by the Provider.
func (s *RedisStore) SaveRates(ctx context.Context, c core.FxRateCache) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode fx rate: %w", err)
	}
	if err := s.client.Set(ctx, s.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set fx rate: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
