package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is the JSON-over-Redis store behind the scoreboard snapshots
// (CacheKeyOverall, CacheKeyWave) and the refresh-token records. Get
// returns redis.Nil for an absent key; the scoreboard read path treats
// that as "compute live".
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
}

type scoreboardCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) Cache {
	return &scoreboardCache{client: client}
}

func (r *scoreboardCache) Get(ctx context.Context, key string, dest interface{}) error {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(val), dest)
}

func (r *scoreboardCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, expiration).Err()
}

func (r *scoreboardCache) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}
