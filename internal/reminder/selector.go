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

// Selector finds due reminders and claims them for dispatch. Multiple worker
// processes can run selectors against the same database; the conditional
// claim update guarantees a reminder is handed to at most one worker.
type Selector struct {
	repo       interfaces.ReminderRepository
	retry      *RetryController
	logger     *logger.Logger
	metrics    *monitoring.MetricsCollector
	stuckAfter time.Duration
	now        func() time.Time
}

// NewSelector creates a new due-queue selector
func NewSelector(repo interfaces.ReminderRepository, retry *RetryController, log *logger.Logger, metrics *monitoring.MetricsCollector, stuckAfter time.Duration) *Selector {
	return &Selector{
		repo:       repo,
		retry:      retry,
		logger:     log,
		metrics:    metrics,
		stuckAfter: stuckAfter,
		now:        time.Now,
	}
}

// ClaimDue returns up to limit reminders claimed by this worker. Candidates
// are selected in priority order (urgent first, then earliest scheduled time)
// and each one is claimed individually; candidates claimed by another worker
// in the meantime are skipped.
func (s *Selector) ClaimDue(ctx context.Context, limit int) ([]*types.Reminder, error) {
	now := s.now()

	candidates, err := s.repo.ListDueReminders(ctx, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list due reminders: %w", err)
	}

	claimed := make([]*types.Reminder, 0, len(candidates))
	for _, rem := range candidates {
		won, err := s.repo.ClaimReminder(ctx, rem.ID, now)
		if err != nil {
			s.logger.WithReminder(rem.ID).WithError(err).Error("Claim attempt failed")
			continue
		}
		if !won {
			s.metrics.RecordClaim("lost")
			s.logger.WithReminder(rem.ID).Debug("Reminder claimed by another worker")
			continue
		}

		s.metrics.RecordClaim("won")
		s.logger.StateTransition(rem.ID, string(rem.Status), string(types.StatusSending), "claimed for dispatch")

		rem.Status = types.StatusSending
		attemptAt := now
		rem.LastAttemptAt = &attemptAt
		claimed = append(claimed, rem)
	}

	return claimed, nil
}

// ReclaimStuck finds reminders stuck in sending longer than the configured
// timeout (a worker crashed mid-dispatch) and routes them through the retry
// controller as an implicit retryable failure.
func (s *Selector) ReclaimStuck(ctx context.Context) error {
	cutoff := s.now().Add(-s.stuckAfter)

	stuck, err := s.repo.ListStuckSending(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to list stuck reminders: %w", err)
	}

	for _, rem := range stuck {
		s.logger.WithFields(map[string]interface{}{
			"reminder_id":     rem.ID,
			"last_attempt_at": rem.LastAttemptAt,
		}).Warn("Reclaiming reminder stuck in sending")

		cause := fmt.Errorf("claim expired after %s without completion", s.stuckAfter)
		if err := s.retry.HandleFailure(ctx, rem, types.StatusSending, cause, "reclaimer"); err != nil {
			s.logger.WithReminder(rem.ID).WithError(err).Error("Failed to reclaim stuck reminder")
		}
	}

	return nil
}
