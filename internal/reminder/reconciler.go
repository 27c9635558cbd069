package reminder

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Nathech23/High-Five/pkg/interfaces"
	"github.com/Nathech23/High-Five/pkg/logger"
	"github.com/Nathech23/High-Five/pkg/monitoring"
	"github.com/Nathech23/High-Five/pkg/types"
)

// Reconciler applies asynchronous delivery results reported by the provider
// to reminder state. Events can arrive duplicated, late or out of order;
// applying the same stream twice leaves the reminders unchanged.
type Reconciler struct {
	repo    interfaces.ReminderRepository
	retry   *RetryController
	logger  *logger.Logger
	metrics *monitoring.MetricsCollector
}

// NewReconciler creates a new status reconciler
func NewReconciler(repo interfaces.ReminderRepository, retry *RetryController, log *logger.Logger, metrics *monitoring.MetricsCollector) *Reconciler {
	return &Reconciler{
		repo:    repo,
		retry:   retry,
		logger:  log,
		metrics: metrics,
	}
}

// Apply processes one delivery event. Events referencing no known reminder
// are logged and dropped; the provider feed is not trusted to be consistent.
func (r *Reconciler) Apply(ctx context.Context, event *types.DeliveryEvent) error {
	rem, err := r.repo.GetReminderByProviderRef(ctx, event.ProviderRef)
	if err != nil {
		if errors.Is(err, types.ErrReminderNotFound) {
			r.logger.WithFields(map[string]interface{}{
				"provider_reference": event.ProviderRef,
				"result":             string(event.Result),
			}).Warn("Delivery event references no known reminder, dropping")
			r.metrics.RecordDeliveryCallback("unknown_reference")
			return nil
		}
		return fmt.Errorf("failed to look up reminder for delivery event: %w", err)
	}

	log := r.logger.WithFields(map[string]interface{}{
		"reminder_id":        rem.ID,
		"provider_reference": event.ProviderRef,
		"result":             string(event.Result),
		"status":             string(rem.Status),
	})

	switch event.Result {
	case types.ResultDelivered:
		return r.applyDelivered(ctx, rem, event, log)
	case types.ResultSentConfirmed:
		// The provider confirmed hand-off; the reminder is already in sent
		// (or further along), so there is no state to change
		log.Debug("Send confirmation acknowledged")
		r.metrics.RecordDeliveryCallback("acknowledged")
		return nil
	case types.ResultFailed:
		return r.applyFailed(ctx, rem, event, log)
	default:
		log.Warn("Delivery event with unknown result, dropping")
		r.metrics.RecordDeliveryCallback("unknown_result")
		return nil
	}
}

func (r *Reconciler) applyDelivered(ctx context.Context, rem *types.Reminder, event *types.DeliveryEvent, log *logrus.Entry) error {
	switch rem.Status {
	case types.StatusDelivered:
		log.Info("Duplicate delivered event, no-op")
		r.metrics.RecordDeliveryCallback("duplicate")
		return nil
	case types.StatusSent:
		if err := r.repo.MarkDelivered(ctx, rem.ID, event.Timestamp); err != nil {
			var invalid *types.InvalidTransitionError
			if errors.As(err, &invalid) {
				log.Warn("Delivered event lost transition race, dropping")
				r.metrics.RecordDeliveryCallback("out_of_order")
				return nil
			}
			return fmt.Errorf("failed to mark reminder delivered: %w", err)
		}
		r.logger.StateTransition(rem.ID, string(types.StatusSent), string(types.StatusDelivered), "provider confirmed delivery")
		r.metrics.RecordDeliveryCallback("applied")
		return nil
	default:
		log.Warn("Delivered event arrived out of order, dropping")
		r.metrics.RecordDeliveryCallback("out_of_order")
		return nil
	}
}

func (r *Reconciler) applyFailed(ctx context.Context, rem *types.Reminder, event *types.DeliveryEvent, log *logrus.Entry) error {
	switch rem.Status {
	case types.StatusDelivered:
		// Delivered is sticky; a late failure report never un-delivers
		log.Warn("Failure event for already delivered reminder, rejected")
		r.metrics.RecordDeliveryCallback("out_of_order")
		return nil
	case types.StatusFailed, types.StatusCancelled:
		log.Info("Duplicate terminal failure event, no-op")
		r.metrics.RecordDeliveryCallback("duplicate")
		return nil
	case types.StatusSent:
		cause := &types.TransportError{
			Channel: rem.SentChannel,
			Err:     fmt.Errorf("provider reported delivery failure: %s", event.ErrorMessage),
		}
		if err := r.retry.HandleFailure(ctx, rem, types.StatusSent, cause, "reconciler"); err != nil {
			var invalid *types.InvalidTransitionError
			if errors.As(err, &invalid) {
				log.Warn("Failure event lost transition race, dropping")
				r.metrics.RecordDeliveryCallback("out_of_order")
				return nil
			}
			return err
		}
		r.metrics.RecordDeliveryCallback("applied")
		return nil
	default:
		log.Warn("Failure event arrived out of order, dropping")
		r.metrics.RecordDeliveryCallback("out_of_order")
		return nil
	}
}
