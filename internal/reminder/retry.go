package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/Nathech23/High-Five/pkg/interfaces"
	"github.com/Nathech23/High-Five/pkg/logger"
	"github.com/Nathech23/High-Five/pkg/monitoring"
	"github.com/Nathech23/High-Five/pkg/types"
)

// Backoff growth modes
const (
	GrowthLinear      = "linear"
	GrowthExponential = "exponential"
)

// BackoffPolicy computes the delay before the next attempt
type BackoffPolicy struct {
	Growth string
}

// Delay returns the wait before attempt number retryCount (1-based).
// Linear growth scales the base interval by the attempt number; exponential
// growth doubles it each attempt. Delays never decrease as retryCount grows.
func (p BackoffPolicy) Delay(base time.Duration, retryCount int) time.Duration {
	if retryCount < 1 {
		retryCount = 1
	}

	switch p.Growth {
	case GrowthExponential:
		return base * time.Duration(1<<(retryCount-1))
	default:
		return base * time.Duration(retryCount)
	}
}

// RetryController decides, after a failed attempt, whether a reminder gets
// another try or is terminally failed.
type RetryController struct {
	repo    interfaces.ReminderRepository
	policy  BackoffPolicy
	logger  *logger.Logger
	metrics *monitoring.MetricsCollector
	now     func() time.Time
}

// NewRetryController creates a new retry controller
func NewRetryController(repo interfaces.ReminderRepository, policy BackoffPolicy, log *logger.Logger, metrics *monitoring.MetricsCollector) *RetryController {
	return &RetryController{
		repo:    repo,
		policy:  policy,
		logger:  log,
		metrics: metrics,
		now:     time.Now,
	}
}

// HandleFailure processes one failed attempt of a reminder currently in the
// given status. The retry count is incremented for every failure; when the
// budget is exhausted the reminder moves to failed, otherwise to retry with
// its next eligible time materialized.
func (c *RetryController) HandleFailure(ctx context.Context, rem *types.Reminder, from types.ReminderStatus, cause error, actor string) error {
	retryCount := rem.RetryCount + 1
	lastError := ""
	if cause != nil {
		lastError = cause.Error()
	}

	if retryCount >= rem.MaxRetries {
		if err := c.repo.MarkFailed(ctx, rem.ID, from, lastError, actor); err != nil {
			return fmt.Errorf("failed to mark reminder failed: %w", err)
		}
		c.logger.StateTransition(rem.ID, string(from), string(types.StatusFailed), "retry budget exhausted: "+lastError)
		c.metrics.RecordRetryExhausted()
		return nil
	}

	now := c.now()
	delay := c.policy.Delay(rem.BackoffInterval, retryCount)
	nextAttempt := now.Add(delay)

	if err := c.repo.ScheduleRetry(ctx, rem.ID, from, retryCount, now, nextAttempt, lastError, actor); err != nil {
		return fmt.Errorf("failed to schedule retry: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"reminder_id":     rem.ID,
		"retry_count":     retryCount,
		"max_retries":     rem.MaxRetries,
		"next_attempt_at": nextAttempt,
		"delay_seconds":   delay.Seconds(),
	}).Info("Retry scheduled")
	c.logger.StateTransition(rem.ID, string(from), string(types.StatusRetry), lastError)
	c.metrics.RecordRetryScheduled()

	return nil
}
