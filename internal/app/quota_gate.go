package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/archivist-go/internal/domain"
)

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

func contextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// QuotaGate blocks callers while remote API usage is at or above a threshold
type QuotaGate struct {
	usage       domain.UsageProvider
	threshold   *float64
	waitSeconds int
	sleep       SleepFunc
	logger      *zap.Logger
}

// NewQuotaGate creates a gate. A nil threshold never blocks.
func NewQuotaGate(usage domain.UsageProvider, threshold *float64, waitSeconds int, logger *zap.Logger) *QuotaGate {
	if waitSeconds <= 0 {
		waitSeconds = domain.DefaultQuotaWaitSeconds
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuotaGate{
		usage:       usage,
		threshold:   threshold,
		waitSeconds: waitSeconds,
		sleep:       contextSleep,
		logger:      logger,
	}
}

// WithSleep replaces the one-second tick, for tests
func (g *QuotaGate) WithSleep(sleep SleepFunc) *QuotaGate {
	g.sleep = sleep
	return g
}

// UsagePercent returns the current usage percent from the cached snapshot, 0 on error
func (g *QuotaGate) UsagePercent(ctx context.Context) float64 {
	if g.usage == nil {
		return 0
	}
	u, err := g.usage.GetUsage(ctx, false)
	if err != nil {
		return 0
	}
	return u.Percent()
}

// WaitUntilBelow returns once usage is below the threshold. It sleeps in
// one-second ticks for the configured wait, then refreshes usage. Cancellation
// is observed on every tick and reported as ErrCancelled.
func (g *QuotaGate) WaitUntilBelow(ctx context.Context) error {
	if g.threshold == nil || g.usage == nil {
		return nil
	}
	if ctx.Err() != nil {
		return domain.ErrCancelled
	}

	u, err := g.usage.GetUsage(ctx, false)
	if err != nil {
		return fmt.Errorf("get api usage: %w", err)
	}

	for u.Percent() >= *g.threshold {
		g.logger.Info("API usage above threshold, waiting",
			zap.Float64("usage_percent", u.Percent()),
			zap.Float64("threshold", *g.threshold),
			zap.Int("wait_seconds", g.waitSeconds))

		for i := 0; i < g.waitSeconds; i++ {
			if err := g.sleep(ctx, time.Second); err != nil || ctx.Err() != nil {
				return domain.ErrCancelled
			}
		}

		u, err = g.usage.GetUsage(ctx, true)
		if err != nil {
			return fmt.Errorf("refresh api usage: %w", err)
		}
	}
	return nil
}
