package services

import (
	"context"
	"fmt"
	"time"

	"heistctf/internal/logger"
	"heistctf/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ScoreboardStream is the Redis stream the notifier pool consumes.
const ScoreboardStream = "scoreboard_events"

const (
	CacheKeyOverall    = "scoreboard:overall"
	cacheKeyWavePrefix = "scoreboard:wave:"
)

func CacheKeyWave(wave models.Wave) string {
	return cacheKeyWavePrefix + string(wave)
}

// ScoreboardNotifier publishes a best-effort "standings changed" signal.
// The payload carries no scores; subscribers re-query the rank endpoints.
type ScoreboardNotifier interface {
	ScoreboardChanged(ctx context.Context, wave models.Wave) error
}

type redisNotifier struct {
	rdb *redis.Client
}

func NewScoreboardNotifier(rdb *redis.Client) ScoreboardNotifier {
	return &redisNotifier{rdb: rdb}
}

func (n *redisNotifier) ScoreboardChanged(ctx context.Context, wave models.Wave) error {
	// Drop the cached snapshots first so readers racing the event see
	// fresh standings.
	keys := []string{CacheKeyOverall}
	if wave.Valid() {
		keys = append(keys, CacheKeyWave(wave))
	}
	if err := n.rdb.Del(ctx, keys...).Err(); err != nil {
		logger.Log.Warn("Failed to drop scoreboard cache keys", zap.Error(err))
	}

	err := n.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: ScoreboardStream,
		ID:     "*",
		Values: map[string]interface{}{
			"type":      "scoreboard-update",
			"wave":      string(wave),
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish scoreboard event: %w", err)
	}
	return nil
}
