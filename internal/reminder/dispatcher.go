package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Nathech23/High-Five/pkg/interfaces"
	"github.com/Nathech23/High-Five/pkg/logger"
	"github.com/Nathech23/High-Five/pkg/monitoring"
	"github.com/Nathech23/High-Five/pkg/types"
)

// Dispatcher takes a claimed reminder through channel resolution, template
// rendering and the provider send, then records the outcome.
type Dispatcher struct {
	repo            interfaces.ReminderRepository
	provider        interfaces.Provider
	renderer        *Renderer
	retry           *RetryController
	logger          *logger.Logger
	metrics         *monitoring.MetricsCollector
	providerTimeout time.Duration
	now             func() time.Time
}

// NewDispatcher creates a new dispatcher
func NewDispatcher(repo interfaces.ReminderRepository, provider interfaces.Provider, renderer *Renderer, retry *RetryController, log *logger.Logger, metrics *monitoring.MetricsCollector, providerTimeout time.Duration) *Dispatcher {
	return &Dispatcher{
		repo:            repo,
		provider:        provider,
		renderer:        renderer,
		retry:           retry,
		logger:          log,
		metrics:         metrics,
		providerTimeout: providerTimeout,
		now:             time.Now,
	}
}

// Dispatch processes one claimed reminder. Transport failures feed the retry
// controller; configuration failures (no eligible channel, broken template)
// are terminal because retrying cannot change the outcome. Infrastructure
// errors leave the claim in place for the stuck reclaimer.
func (d *Dispatcher) Dispatch(ctx context.Context, rem *types.Reminder) error {
	text, channel, endpoint, err := d.prepare(ctx, rem)
	if err != nil {
		if isConfigFailure(err) {
			if markErr := d.repo.MarkFailed(ctx, rem.ID, types.StatusSending, err.Error(), "dispatcher"); markErr != nil {
				return fmt.Errorf("failed to record terminal dispatch failure: %w", markErr)
			}
			d.logger.StateTransition(rem.ID, string(types.StatusSending), string(types.StatusFailed), err.Error())
			d.metrics.RecordSend(string(rem.Channel), "config_failed", 0)
			return nil
		}
		return fmt.Errorf("dispatch preparation failed: %w", err)
	}

	start := d.now()
	sendCtx, cancel := context.WithTimeout(ctx, d.providerTimeout)
	providerRef, err := d.provider.Send(sendCtx, endpoint, channel, text)
	cancel()
	elapsed := time.Since(start)

	if err != nil {
		d.metrics.RecordSend(string(channel), "failed", elapsed)
		d.logger.Dispatch(rem.ID, string(channel), rem.RetryCount+1, false, err.Error())

		// Provider failures, including timeouts, are transport-class
		sendErr := err
		if !types.IsRetryable(sendErr) {
			sendErr = &types.TransportError{Channel: channel, Err: err}
		}
		return d.retry.HandleFailure(ctx, rem, types.StatusSending, sendErr, "dispatcher")
	}

	sentAt := d.now()
	if err := d.repo.MarkSent(ctx, rem.ID, channel, providerRef, sentAt); err != nil {
		return fmt.Errorf("failed to mark reminder sent: %w", err)
	}

	d.metrics.RecordSend(string(channel), "sent", elapsed)
	d.logger.Dispatch(rem.ID, string(channel), rem.RetryCount+1, true, providerRef)
	d.logger.StateTransition(rem.ID, string(types.StatusSending), string(types.StatusSent), "provider accepted")
	return nil
}

// isConfigFailure reports whether a dispatch error is a configuration defect
// that no amount of retrying can fix
func isConfigFailure(err error) bool {
	var chanErr *types.ChannelResolutionError
	var tplErr *types.TemplateError
	return errors.As(err, &chanErr) || errors.As(err, &tplErr)
}

// prepare resolves the channel and renders the message text
func (d *Dispatcher) prepare(ctx context.Context, rem *types.Reminder) (text string, channel types.Channel, endpoint string, err error) {
	patient, err := d.repo.GetPatientByID(ctx, rem.PatientID)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to load patient: %w", err)
	}

	pref, err := d.repo.GetContactPreference(ctx, rem.PatientID)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to load contact preference: %w", err)
	}

	channel, endpoint, err = d.resolveChannel(rem, patient, pref)
	if err != nil {
		return "", "", "", err
	}

	if rem.MessageOverride != "" {
		return rem.MessageOverride, channel, endpoint, nil
	}

	rt, err := d.repo.GetReminderTypeByName(ctx, rem.ReminderType)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to load reminder type: %w", err)
	}

	text, err = d.renderer.Render(rt, preferredLanguage(patient, pref), d.templateVars(rem, patient))
	if err != nil {
		return "", "", "", err
	}

	return text, channel, endpoint, nil
}

// resolveChannel picks the concrete channel for a reminder. An explicit
// channel is honored as long as the patient has an endpoint for it; auto
// resolution walks the fixed fallback order, skipping channels the patient
// disabled or cannot be reached on right now. Urgent reminders ignore the
// contact window and weekday exclusions.
func (d *Dispatcher) resolveChannel(rem *types.Reminder, patient *types.Patient, pref *types.ContactPreference) (types.Channel, string, error) {
	if rem.Channel != "" && rem.Channel != types.ChannelAuto {
		endpoint := patient.Endpoint(rem.Channel)
		if endpoint == "" {
			return "", "", &types.ChannelResolutionError{
				PatientID: rem.PatientID,
				Reason:    fmt.Sprintf("no endpoint for requested channel %s", rem.Channel),
			}
		}
		return rem.Channel, endpoint, nil
	}

	bypassWindow := rem.Priority == types.PriorityUrgent
	now := d.now()

	for _, candidate := range types.ChannelFallbackOrder {
		endpoint := patient.Endpoint(candidate)
		if endpoint == "" {
			continue
		}
		if pref != nil {
			if !pref.Enabled(candidate) {
				continue
			}
			if !bypassWindow && !pref.InContactWindow(now) {
				continue
			}
		}
		return candidate, endpoint, nil
	}

	reason := "no enabled channel with a configured endpoint"
	if pref != nil && !bypassWindow && !pref.InContactWindow(now) {
		reason = "outside preferred contact window"
	}
	return "", "", &types.ChannelResolutionError{PatientID: rem.PatientID, Reason: reason}
}

// templateVars merges the reminder's stored variables with defaults derived
// from the patient and schedule. Stored variables win.
func (d *Dispatcher) templateVars(rem *types.Reminder, patient *types.Patient) map[string]string {
	vars := make(map[string]string, len(rem.Variables)+3)
	vars["patient_name"] = patient.FullName()
	vars["date"] = rem.ScheduledTime.Format("02/01/2006")
	vars["time"] = rem.ScheduledTime.Format("15:04")
	for k, v := range rem.Variables {
		vars[k] = v
	}
	return vars
}

// preferredLanguage resolves the language for rendering: contact preference,
// then patient profile. The renderer applies the type default after that.
func preferredLanguage(patient *types.Patient, pref *types.ContactPreference) string {
	if pref != nil && pref.PreferredLanguage != "" {
		return pref.PreferredLanguage
	}
	return patient.PreferredLanguage
}
