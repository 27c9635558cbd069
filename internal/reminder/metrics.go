package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/Nathech23/High-Five/pkg/interfaces"
	"github.com/Nathech23/High-Five/pkg/logger"
)

// Aggregator rolls reminder outcomes up into per-day rows keyed by
// (date, reminder type, channel). Reruns over the same day overwrite the
// previous rollup, so late delivery confirmations are folded in on the next
// pass.
type Aggregator struct {
	repo   interfaces.ReminderRepository
	logger *logger.Logger
}

// NewAggregator creates a new daily metrics aggregator
func NewAggregator(repo interfaces.ReminderRepository, log *logger.Logger) *Aggregator {
	return &Aggregator{repo: repo, logger: log}
}

// RollupDay recomputes and upserts all metric rows for one calendar day
func (a *Aggregator) RollupDay(ctx context.Context, day time.Time) error {
	day = day.Truncate(24 * time.Hour)

	rows, err := a.repo.AggregateDay(ctx, day)
	if err != nil {
		return fmt.Errorf("failed to aggregate day %s: %w", day.Format("2006-01-02"), err)
	}

	for _, metric := range rows {
		finished := metric.SentCount + metric.DeliveredCount
		if finished > 0 {
			metric.DeliveryRate = float64(metric.DeliveredCount) / float64(finished)
		}
		if metric.TotalCount > 0 {
			metric.RetryRate = float64(metric.RetriedCount) / float64(metric.TotalCount)
		}

		if err := a.repo.UpsertDailyMetric(ctx, metric); err != nil {
			return fmt.Errorf("failed to upsert daily metric: %w", err)
		}
	}

	a.logger.WithFields(map[string]interface{}{
		"metric_date": day.Format("2006-01-02"),
		"rows":        len(rows),
	}).Info("Daily metrics rollup completed")

	return nil
}

// RollupRange reruns the rollup for each day in [from, to]
func (a *Aggregator) RollupRange(ctx context.Context, from, to time.Time) error {
	for day := from.Truncate(24 * time.Hour); !day.After(to); day = day.Add(24 * time.Hour) {
		if err := a.RollupDay(ctx, day); err != nil {
			return err
		}
	}
	return nil
}
