package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	defaultFollowupScanInterval = time.Minute
	defaultFollowupScanLimit    = 100
)

// FollowupRunner drives follow-up task processing on a fixed interval.
type FollowupRunner struct {
	followups *FollowupService
	logger    *zap.Logger
	interval  time.Duration
	limit     int
}

func NewFollowupRunner(followups *FollowupService, interval time.Duration, limit int, logger *zap.Logger) (*FollowupRunner, error) {
	if interval <= 0 {
		interval = defaultFollowupScanInterval
	}
	if limit <= 0 {
		limit = defaultFollowupScanLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &FollowupRunner{
		followups: followups,
		logger:    logger,
		interval:  interval,
		limit:     limit,
	}, nil
}

func (r *FollowupRunner) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

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

func (r *FollowupRunner) runOnce(ctx context.Context) {
	result, err := r.followups.Process(ctx, r.limit)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Error("followup processing pass failed", zap.Error(err))
		}
		return
	}
	if result.Total > 0 {
		r.logger.Info("followup processing pass finished",
			zap.Int("processed", result.Processed),
			zap.Int("failed", result.Failed),
			zap.Int("total", result.Total),
		)
	}
}
