package notifier

import (
	"context"
	"fmt"
	"time"

	"heistctf/internal/logger"
	"heistctf/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Worker drains scoreboard events from the Redis stream and pushes them to
// the hub. Events carry no standings, so losing one only delays a re-fetch.
type Worker struct {
	id     string
	quit   chan bool
	rdb    *redis.Client
	stream string
	group  string
	hub    *Hub
}

func NewWorker(id string, rdb *redis.Client, stream, group string, hub *Hub) *Worker {
	return &Worker{
		id:     id,
		quit:   make(chan bool),
		rdb:    rdb,
		stream: stream,
		group:  group,
		hub:    hub,
	}
}

func (w *Worker) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-w.quit:
				return
			default:
				entries, err := w.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
					Group:    w.group,
					Consumer: w.id,
					Streams:  []string{w.stream, ">"},
					Count:    1,
					Block:    5 * time.Second,
				}).Result()

				if err != nil {
					if err != redis.Nil {
						logger.Log.Error("Redis operation failed",
							zap.String("worker_id", w.id),
							zap.Error(err))
					}
					continue
				}

				for _, stream := range entries {
					for _, msg := range stream.Messages {
						w.fanOut(ctx, msg)
					}
				}
			}
		}
	}()
}

func (w *Worker) Stop() {
	logger.Log.Info("Closing notifier worker",
		zap.String("worker_id", w.id))
	w.quit <- true
	close(w.quit)
}

func (w *Worker) fanOut(ctx context.Context, msg redis.XMessage) {
	if err := w.rdb.XAck(ctx, w.stream, w.group, msg.ID).Err(); err != nil {
		logger.Log.Error("Failed to acknowledge event",
			zap.String("worker_id", w.id),
			zap.Error(err))
	}

	eventType, _ := msg.Values["type"].(string)
	waveStr, _ := msg.Values["wave"].(string)

	timestamp := time.Now().UTC()
	if raw, ok := msg.Values["timestamp"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			timestamp = parsed
		}
	}

	event := models.ScoreboardEvent{
		Type:      eventType,
		Timestamp: timestamp,
	}
	w.hub.Broadcast(TopicScoreboard, event)

	wave := models.Wave(waveStr)
	if wave.Valid() {
		event.Wave = wave
		w.hub.Broadcast(WaveTopic(wave), event)
	}
}

type Pool struct {
	workers    []*Worker
	numWorkers int
	rdb        *redis.Client
	stream     string
	group      string
	hub        *Hub
}

func NewPool(numWorkers int, rdb *redis.Client, stream, group string, hub *Hub) *Pool {
	return &Pool{
		workers:    make([]*Worker, numWorkers),
		numWorkers: numWorkers,
		rdb:        rdb,
		stream:     stream,
		group:      group,
		hub:        hub,
	}
}

func (p *Pool) Start(ctx context.Context) error {
	// Create consumer group if it doesn't exist
	_, err := p.rdb.XGroupCreateMkStream(ctx, p.stream, p.group, "$").Result()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	for i := 0; i < p.numWorkers; i++ {
		worker := NewWorker(
			fmt.Sprintf("NotifierWorker-%d", i+1),
			p.rdb,
			p.stream,
			p.group,
			p.hub,
		)

		worker.Start(ctx)
		p.workers[i] = worker

		logger.Log.Info("Starting notifier worker",
			zap.String("worker_id", worker.id))
	}

	logger.Log.Info("Notifier pool started",
		zap.Int("num_workers", p.numWorkers))
	return nil
}

func (p *Pool) Stop() {
	for _, worker := range p.workers {
		worker.Stop()
	}
}
