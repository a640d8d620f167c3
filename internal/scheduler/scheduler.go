// Package scheduler runs the periodic coupon maintenance jobs.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultExpirySpec runs the expiry sweep at 00:05:00 UTC every day.
const DefaultExpirySpec = "0 5 0 * * *"

const jobTimeout = 2 * time.Minute

// ExpiryTask expires overdue coupons.
type ExpiryTask interface {
	ExpireOverdue(ctx context.Context) (int64, error)
}

// NewScheduler registers the expiry sweep on a seconds-aware UTC cron.
// An empty spec falls back to DefaultExpirySpec.
func NewScheduler(spec string, task ExpiryTask, logger *zap.Logger) (*cron.Cron, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if spec == "" {
		spec = DefaultExpirySpec
	}

	c := cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(spec, wrap("coupon.expire_overdue", logger, func(ctx context.Context) error {
		_, err := task.ExpireOverdue(ctx)
		return err
	})); err != nil {
		return nil, err
	}
	return c, nil
}

func wrap(name string, logger *zap.Logger, fn func(context.Context) error) func() {
	return func() {
		defer func() {
			if recovered := recover(); recovered != nil {
				logger.Error("scheduler job panic recovered", zap.String("job", name), zap.Any("panic", recovered))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		start := time.Now()
		if err := fn(ctx); err != nil {
			logger.Warn("scheduler job failed", zap.String("job", name), zap.Error(err))
			return
		}
		logger.Debug("scheduler job finished", zap.String("job", name), zap.Duration("cost", time.Since(start)))
	}
}
