package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Nathech23/High-Five/pkg/types"
)

func TestBackoffPolicy_Delay_Linear(t *testing.T) {
	policy := BackoffPolicy{Growth: GrowthLinear}
	base := 5 * time.Minute

	assert.Equal(t, 5*time.Minute, policy.Delay(base, 1))
	assert.Equal(t, 10*time.Minute, policy.Delay(base, 2))
	assert.Equal(t, 15*time.Minute, policy.Delay(base, 3))
}

func TestBackoffPolicy_Delay_Exponential(t *testing.T) {
	policy := BackoffPolicy{Growth: GrowthExponential}
	base := 5 * time.Minute

	assert.Equal(t, 5*time.Minute, policy.Delay(base, 1))
	assert.Equal(t, 10*time.Minute, policy.Delay(base, 2))
	assert.Equal(t, 20*time.Minute, policy.Delay(base, 3))
	assert.Equal(t, 40*time.Minute, policy.Delay(base, 4))
}

func TestBackoffPolicy_Delay_NeverDecreases(t *testing.T) {
	base := 30 * time.Second

	for _, growth := range []string{GrowthLinear, GrowthExponential} {
		policy := BackoffPolicy{Growth: growth}
		previous := time.Duration(0)
		for rc := 1; rc <= 8; rc++ {
			delay := policy.Delay(base, rc)
			assert.GreaterOrEqual(t, delay, previous, "%s growth at retry %d", growth, rc)
			previous = delay
		}
	}
}

func TestBackoffPolicy_Delay_FloorsRetryCount(t *testing.T) {
	policy := BackoffPolicy{Growth: GrowthLinear}
	assert.Equal(t, time.Minute, policy.Delay(time.Minute, 0))
	assert.Equal(t, time.Minute, policy.Delay(time.Minute, -3))
}

func TestRetryController_HandleFailure_SchedulesRetry(t *testing.T) {
	mockRepo := &MockReminderRepository{}
	controller := NewRetryController(mockRepo, BackoffPolicy{Growth: GrowthLinear}, newTestLogger(), testMetrics())

	now := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	controller.now = func() time.Time { return now }

	rem := &types.Reminder{
		ID:              "rem-1",
		RetryCount:      0,
		MaxRetries:      3,
		BackoffInterval: 5 * time.Minute,
	}

	expectedNext := now.Add(5 * time.Minute)
	mockRepo.On("ScheduleRetry", context.Background(), "rem-1", types.StatusSending, 1, now, expectedNext, "provider unreachable", "dispatcher").Return(nil)

	err := controller.HandleFailure(context.Background(), rem, types.StatusSending, errors.New("provider unreachable"), "dispatcher")
	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestRetryController_HandleFailure_BackoffGrowsWithAttempts(t *testing.T) {
	mockRepo := &MockReminderRepository{}
	controller := NewRetryController(mockRepo, BackoffPolicy{Growth: GrowthExponential}, newTestLogger(), testMetrics())

	now := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	controller.now = func() time.Time { return now }

	// Second failure of a reminder with a generous budget
	rem := &types.Reminder{
		ID:              "rem-2",
		RetryCount:      1,
		MaxRetries:      5,
		BackoffInterval: time.Minute,
	}

	expectedNext := now.Add(2 * time.Minute)
	mockRepo.On("ScheduleRetry", context.Background(), "rem-2", types.StatusSending, 2, now, expectedNext, "timeout", "dispatcher").Return(nil)

	err := controller.HandleFailure(context.Background(), rem, types.StatusSending, errors.New("timeout"), "dispatcher")
	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestRetryController_HandleFailure_BudgetExhausted(t *testing.T) {
	mockRepo := &MockReminderRepository{}
	controller := NewRetryController(mockRepo, BackoffPolicy{Growth: GrowthLinear}, newTestLogger(), testMetrics())

	// Third failure with max_retries = 3 ends the reminder
	rem := &types.Reminder{
		ID:              "rem-3",
		RetryCount:      2,
		MaxRetries:      3,
		BackoffInterval: 5 * time.Minute,
	}

	mockRepo.On("MarkFailed", context.Background(), "rem-3", types.StatusSending, "still unreachable", "dispatcher").Return(nil)

	err := controller.HandleFailure(context.Background(), rem, types.StatusSending, errors.New("still unreachable"), "dispatcher")
	require.NoError(t, err)

	mockRepo.AssertExpectations(t)
	mockRepo.AssertNotCalled(t, "ScheduleRetry", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRetryController_HandleFailure_ZeroBudgetFailsImmediately(t *testing.T) {
	mockRepo := &MockReminderRepository{}
	controller := NewRetryController(mockRepo, BackoffPolicy{Growth: GrowthLinear}, newTestLogger(), testMetrics())

	rem := &types.Reminder{
		ID:              "rem-4",
		RetryCount:      0,
		MaxRetries:      1,
		BackoffInterval: time.Minute,
	}

	mockRepo.On("MarkFailed", context.Background(), "rem-4", types.StatusSending, "rejected", "dispatcher").Return(nil)

	err := controller.HandleFailure(context.Background(), rem, types.StatusSending, errors.New("rejected"), "dispatcher")
	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}
