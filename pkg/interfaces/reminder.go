package interfaces

import (
	"context"
	"time"

	"github.com/Nathech23/High-Five/pkg/types"
)

// ReminderEngine defines the operations exposed by the reminder service
type ReminderEngine interface {
	// Command interface
	CreateReminder(ctx context.Context, reminder *types.Reminder) (*types.Reminder, error)
	CancelReminder(ctx context.Context, reminderID, actor string) error
	GetReminder(ctx context.Context, reminderID string) (*types.Reminder, error)
	ListReminders(ctx context.Context, filters *types.ReminderFilters) ([]*types.Reminder, error)
	GetDailyMetrics(ctx context.Context, from, to time.Time) ([]*types.DailyMetric, error)

	// Asynchronous delivery-result feed
	ApplyDeliveryEvent(ctx context.Context, event *types.DeliveryEvent) error

	// Service lifecycle
	Start(addr string) error
	Stop() error
}

// ReminderRepository defines persistence for the reminder engine.
// Every status mutation writes its StatusHistory row in the same transaction.
type ReminderRepository interface {
	// Reminders
	CreateReminder(ctx context.Context, reminder *types.Reminder) error
	GetReminderByID(ctx context.Context, id string) (*types.Reminder, error)
	GetReminderByProviderRef(ctx context.Context, ref string) (*types.Reminder, error)
	ListReminders(ctx context.Context, filters *types.ReminderFilters) ([]*types.Reminder, error)

	// Due-queue selection and claiming
	ListDueReminders(ctx context.Context, now time.Time, limit int) ([]*types.Reminder, error)
	ClaimReminder(ctx context.Context, id string, now time.Time) (bool, error)
	ListStuckSending(ctx context.Context, olderThan time.Time) ([]*types.Reminder, error)

	// Status transitions (conditional on current status, history write-through)
	MarkSent(ctx context.Context, id string, channel types.Channel, providerRef string, sentAt time.Time) error
	MarkDelivered(ctx context.Context, id string, deliveredAt time.Time) error
	MarkFailed(ctx context.Context, id string, from types.ReminderStatus, lastError, actor string) error
	ScheduleRetry(ctx context.Context, id string, from types.ReminderStatus, retryCount int, lastAttemptAt, nextAttemptAt time.Time, lastError, actor string) error
	NudgeRetry(ctx context.Context, id string, now time.Time) error
	CancelReminder(ctx context.Context, id, actor string) error

	// Read-only collaborator data
	GetPatientByID(ctx context.Context, id string) (*types.Patient, error)
	GetContactPreference(ctx context.Context, patientID string) (*types.ContactPreference, error)
	GetReminderTypeByName(ctx context.Context, name string) (*types.ReminderType, error)

	// History and metrics
	GetStatusHistory(ctx context.Context, reminderID string) ([]*types.StatusHistory, error)
	AggregateDay(ctx context.Context, day time.Time) ([]*types.DailyMetric, error)
	UpsertDailyMetric(ctx context.Context, metric *types.DailyMetric) error
	GetDailyMetrics(ctx context.Context, from, to time.Time) ([]*types.DailyMetric, error)
}

// Provider is the external communication collaborator. Send returns an opaque
// provider reference used to correlate asynchronous delivery results.
type Provider interface {
	Send(ctx context.Context, endpoint string, channel types.Channel, text string) (string, error)
}
