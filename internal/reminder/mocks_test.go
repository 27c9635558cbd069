package reminder

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/Nathech23/High-Five/pkg/logger"
	"github.com/Nathech23/High-Five/pkg/monitoring"
	"github.com/Nathech23/High-Five/pkg/types"
)

var (
	metricsOnce     sync.Once
	sharedCollector *monitoring.MetricsCollector
)

// testMetrics returns a process-wide collector; Prometheus collectors can only
// be registered once per process
func testMetrics() *monitoring.MetricsCollector {
	metricsOnce.Do(func() {
		sharedCollector = monitoring.NewMetricsCollector("reminder-test")
	})
	return sharedCollector
}

func newTestLogger() *logger.Logger {
	log := logger.New("error")
	log.SetOutput(io.Discard)
	return log
}

// MockReminderRepository is a mock implementation of ReminderRepository
type MockReminderRepository struct {
	mock.Mock
}

func (m *MockReminderRepository) CreateReminder(ctx context.Context, rem *types.Reminder) error {
	args := m.Called(ctx, rem)
	return args.Error(0)
}

func (m *MockReminderRepository) GetReminderByID(ctx context.Context, id string) (*types.Reminder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Reminder), args.Error(1)
}

func (m *MockReminderRepository) GetReminderByProviderRef(ctx context.Context, ref string) (*types.Reminder, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Reminder), args.Error(1)
}

func (m *MockReminderRepository) ListReminders(ctx context.Context, filters *types.ReminderFilters) ([]*types.Reminder, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Reminder), args.Error(1)
}

func (m *MockReminderRepository) ListDueReminders(ctx context.Context, now time.Time, limit int) ([]*types.Reminder, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Reminder), args.Error(1)
}

func (m *MockReminderRepository) ClaimReminder(ctx context.Context, id string, now time.Time) (bool, error) {
	args := m.Called(ctx, id, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockReminderRepository) ListStuckSending(ctx context.Context, olderThan time.Time) ([]*types.Reminder, error) {
	args := m.Called(ctx, olderThan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Reminder), args.Error(1)
}

func (m *MockReminderRepository) MarkSent(ctx context.Context, id string, channel types.Channel, providerRef string, sentAt time.Time) error {
	args := m.Called(ctx, id, channel, providerRef, sentAt)
	return args.Error(0)
}

func (m *MockReminderRepository) MarkDelivered(ctx context.Context, id string, deliveredAt time.Time) error {
	args := m.Called(ctx, id, deliveredAt)
	return args.Error(0)
}

func (m *MockReminderRepository) MarkFailed(ctx context.Context, id string, from types.ReminderStatus, lastError, actor string) error {
	args := m.Called(ctx, id, from, lastError, actor)
	return args.Error(0)
}

func (m *MockReminderRepository) ScheduleRetry(ctx context.Context, id string, from types.ReminderStatus, retryCount int, lastAttemptAt, nextAttemptAt time.Time, lastError, actor string) error {
	args := m.Called(ctx, id, from, retryCount, lastAttemptAt, nextAttemptAt, lastError, actor)
	return args.Error(0)
}

func (m *MockReminderRepository) NudgeRetry(ctx context.Context, id string, now time.Time) error {
	args := m.Called(ctx, id, now)
	return args.Error(0)
}

func (m *MockReminderRepository) CancelReminder(ctx context.Context, id, actor string) error {
	args := m.Called(ctx, id, actor)
	return args.Error(0)
}

func (m *MockReminderRepository) GetPatientByID(ctx context.Context, id string) (*types.Patient, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Patient), args.Error(1)
}

func (m *MockReminderRepository) GetContactPreference(ctx context.Context, patientID string) (*types.ContactPreference, error) {
	args := m.Called(ctx, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.ContactPreference), args.Error(1)
}

func (m *MockReminderRepository) GetReminderTypeByName(ctx context.Context, name string) (*types.ReminderType, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.ReminderType), args.Error(1)
}

func (m *MockReminderRepository) GetStatusHistory(ctx context.Context, reminderID string) ([]*types.StatusHistory, error) {
	args := m.Called(ctx, reminderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.StatusHistory), args.Error(1)
}

func (m *MockReminderRepository) AggregateDay(ctx context.Context, day time.Time) ([]*types.DailyMetric, error) {
	args := m.Called(ctx, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.DailyMetric), args.Error(1)
}

func (m *MockReminderRepository) UpsertDailyMetric(ctx context.Context, metric *types.DailyMetric) error {
	args := m.Called(ctx, metric)
	return args.Error(0)
}

func (m *MockReminderRepository) GetDailyMetrics(ctx context.Context, from, to time.Time) ([]*types.DailyMetric, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.DailyMetric), args.Error(1)
}

// MockProvider is a mock implementation of the communication provider
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Send(ctx context.Context, endpoint string, channel types.Channel, text string) (string, error) {
	args := m.Called(ctx, endpoint, channel, text)
	return args.String(0), args.Error(1)
}
