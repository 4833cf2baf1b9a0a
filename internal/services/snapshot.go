package services

import (
	"context"
	"time"

	"heistctf/internal/logger"
	"heistctf/internal/models"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// TeamTotalsRefresher refreshes the non-authoritative stored team totals.
type TeamTotalsRefresher interface {
	UpdateStoredTotals(ctx context.Context) error
}

// SnapshotService periodically recomputes the scoreboards and stores them
// as JSON in the cache. Readers treat the snapshot as stale-tolerant; the
// notifier drops the keys on every correct solve.
type SnapshotService struct {
	ranks    *RankService
	cache    Cache
	teams    TeamTotalsRefresher
	interval time.Duration
}

func NewSnapshotService(ranks *RankService, cache Cache, teams TeamTotalsRefresher, interval time.Duration) *SnapshotService {
	return &SnapshotService{ranks: ranks, cache: cache, teams: teams, interval: interval}
}

func (s *SnapshotService) Start() (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	if _, err := sched.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(s.Refresh),
	); err != nil {
		return nil, err
	}

	sched.Start()
	logger.Log.Info("Scoreboard snapshot scheduler started",
		zap.Duration("interval", s.interval))
	return sched, nil
}

func (s *SnapshotService) Refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	board, err := s.ranks.Overall(ctx)
	if err != nil {
		logger.Log.Error("Failed to compute scoreboard snapshot", zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, CacheKeyOverall, board, 2*s.interval); err != nil {
		logger.Log.Error("Failed to cache scoreboard snapshot", zap.Error(err))
	}

	for _, wave := range models.Waves() {
		waveBoard, err := s.ranks.WaveBoard(ctx, wave)
		if err != nil {
			logger.Log.Error("Failed to compute wave snapshot",
				zap.String("wave", string(wave)),
				zap.Error(err))
			continue
		}
		if err := s.cache.Set(ctx, CacheKeyWave(wave), waveBoard, 2*s.interval); err != nil {
			logger.Log.Error("Failed to cache wave snapshot",
				zap.String("wave", string(wave)),
				zap.Error(err))
		}
	}

	if err := s.teams.UpdateStoredTotals(ctx); err != nil {
		logger.Log.Warn("Failed to refresh stored team totals", zap.Error(err))
	}
}
