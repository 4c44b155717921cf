package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	defaultQueueScanInterval = 30 * time.Second
	defaultQueueScanLimit    = 100
)

// QueueRunner drives the delivery queue on a fixed interval.
type QueueRunner struct {
	queue    *QueueService
	logger   *zap.Logger
	interval time.Duration
	limit    int
}

func NewQueueRunner(queueSvc *QueueService, interval time.Duration, limit int, logger *zap.Logger) (*QueueRunner, error) {
	if interval <= 0 {
		interval = defaultQueueScanInterval
	}
	if limit <= 0 {
		limit = defaultQueueScanLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &QueueRunner{
		queue:    queueSvc,
		logger:   logger,
		interval: interval,
		limit:    limit,
	}, nil
}

func (r *QueueRunner) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Run an initial pass so already-due entries do not wait for the first
	// ticker edge.
	r.runOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.runOnce(ctx)
			if ctx.Err() != nil {
				return nil
			}
		}
	}
}

func (r *QueueRunner) runOnce(ctx context.Context) {
	result, err := r.queue.ProcessDue(ctx, r.limit)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Error("queue processing pass failed", zap.Error(err))
		}
		return
	}
	if result.Total > 0 {
		r.logger.Info("queue processing pass finished",
			zap.Int("processed", result.Processed),
			zap.Int("failed", result.Failed),
			zap.Int("total", result.Total),
		)
	}
}
