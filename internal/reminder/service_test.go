package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Nathech23/High-Five/pkg/config"
	"github.com/Nathech23/High-Five/pkg/monitoring"
	"github.com/Nathech23/High-Five/pkg/types"
)

func setupTestService() (*Service, *MockReminderRepository) {
	cfg := &config.Config{
		Retry: config.RetryConfig{
			Growth:            "linear",
			DefaultMaxRetries: 3,
			DefaultInterval:   300,
		},
		Monitoring: config.MonitoringConfig{
			HealthPath: "/health",
		},
	}

	log := newTestLogger()
	mockRepo := &MockReminderRepository{}

	retry := NewRetryController(mockRepo, BackoffPolicy{Growth: GrowthLinear}, log, testMetrics())

	service := &Service{
		config:     cfg,
		logger:     log,
		repository: mockRepo,
		metrics:    testMetrics(),
		health:     monitoring.NewHealthManager("reminder-test", "1.0.0"),
		renderer:   NewRenderer(log),
		retry:      retry,
		reconciler: NewReconciler(mockRepo, retry, log, testMetrics()),
		aggregator: NewAggregator(mockRepo, log),
	}

	return service, mockRepo
}

func TestService_CreateReminder_AppliesDefaults(t *testing.T) {
	service, mockRepo := setupTestService()

	mockRepo.On("GetPatientByID", mock.Anything, "patient-1").Return(testPatient(), nil)
	mockRepo.On("GetReminderTypeByName", mock.Anything, "appointment").Return(testReminderType(), nil)
	mockRepo.On("CreateReminder", mock.Anything, mock.Anything).Return(nil)

	rem := &types.Reminder{
		PatientID:     "patient-1",
		ReminderType:  "appointment",
		ScheduledTime: time.Date(2026, 9, 15, 10, 30, 0, 0, time.UTC),
	}

	created, err := service.CreateReminder(context.Background(), rem)
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, types.StatusScheduled, created.Status)
	assert.Equal(t, types.ChannelAuto, created.Channel)
	assert.Equal(t, types.PriorityNormal, created.Priority)
	assert.Equal(t, 3, created.MaxRetries)
	assert.Equal(t, 300*time.Second, created.BackoffInterval)
	assert.Equal(t, 0, created.RetryCount)
	mockRepo.AssertExpectations(t)
}

func TestService_CreateReminder_KeepsExplicitValues(t *testing.T) {
	service, mockRepo := setupTestService()

	mockRepo.On("GetPatientByID", mock.Anything, "patient-1").Return(testPatient(), nil)
	mockRepo.On("GetReminderTypeByName", mock.Anything, "medication").Return(testReminderType(), nil)
	mockRepo.On("CreateReminder", mock.Anything, mock.Anything).Return(nil)

	rem := &types.Reminder{
		PatientID:       "patient-1",
		ReminderType:    "medication",
		Channel:         types.ChannelVoice,
		Priority:        types.PriorityUrgent,
		ScheduledTime:   time.Date(2026, 9, 15, 8, 0, 0, 0, time.UTC),
		MaxRetries:      5,
		BackoffInterval: time.Minute,
	}

	created, err := service.CreateReminder(context.Background(), rem)
	require.NoError(t, err)
	assert.Equal(t, types.ChannelVoice, created.Channel)
	assert.Equal(t, types.PriorityUrgent, created.Priority)
	assert.Equal(t, 5, created.MaxRetries)
	assert.Equal(t, time.Minute, created.BackoffInterval)
}

func TestService_CreateReminder_ValidationFailures(t *testing.T) {
	service, mockRepo := setupTestService()

	cases := []struct {
		name string
		rem  *types.Reminder
	}{
		{"missing patient", &types.Reminder{ReminderType: "appointment", ScheduledTime: time.Now()}},
		{"missing type", &types.Reminder{PatientID: "patient-1", ScheduledTime: time.Now()}},
		{"missing scheduled time", &types.Reminder{PatientID: "patient-1", ReminderType: "appointment"}},
		{"max retries too high", &types.Reminder{PatientID: "patient-1", ReminderType: "appointment", ScheduledTime: time.Now(), MaxRetries: 99}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.CreateReminder(context.Background(), tc.rem)
			require.Error(t, err)
		})
	}

	mockRepo.AssertNotCalled(t, "CreateReminder", mock.Anything, mock.Anything)
}

func TestService_CreateReminder_UnknownPatient(t *testing.T) {
	service, mockRepo := setupTestService()

	mockRepo.On("GetPatientByID", mock.Anything, "ghost").Return(nil, types.ErrPatientNotFound)

	_, err := service.CreateReminder(context.Background(), &types.Reminder{
		PatientID:     "ghost",
		ReminderType:  "appointment",
		ScheduledTime: time.Now().Add(time.Hour),
	})
	assert.ErrorIs(t, err, types.ErrPatientNotFound)
}

func TestService_CreateReminder_OverrideSkipsTypeLookup(t *testing.T) {
	service, mockRepo := setupTestService()

	mockRepo.On("GetPatientByID", mock.Anything, "patient-1").Return(testPatient(), nil)
	mockRepo.On("CreateReminder", mock.Anything, mock.Anything).Return(nil)

	_, err := service.CreateReminder(context.Background(), &types.Reminder{
		PatientID:       "patient-1",
		ReminderType:    "ad_hoc",
		ScheduledTime:   time.Now().Add(time.Hour),
		MessageOverride: "La clinique sera fermee demain.",
	})
	require.NoError(t, err)

	mockRepo.AssertNotCalled(t, "GetReminderTypeByName", mock.Anything, mock.Anything)
}

func TestService_RetryNow(t *testing.T) {
	service, mockRepo := setupTestService()

	rem := &types.Reminder{ID: "rem-1", Status: types.StatusRetry}
	mockRepo.On("GetReminderByID", mock.Anything, "rem-1").Return(rem, nil)
	mockRepo.On("NudgeRetry", mock.Anything, "rem-1", mock.Anything).Return(nil)

	require.NoError(t, service.RetryNow(context.Background(), "rem-1"))
	mockRepo.AssertExpectations(t)
}

func TestService_RetryNow_NotWaitingForRetry(t *testing.T) {
	service, mockRepo := setupTestService()

	rem := &types.Reminder{ID: "rem-1", Status: types.StatusScheduled}
	mockRepo.On("GetReminderByID", mock.Anything, "rem-1").Return(rem, nil)

	err := service.RetryNow(context.Background(), "rem-1")
	require.Error(t, err)

	var invalid *types.InvalidTransitionError
	assert.True(t, errors.As(err, &invalid))
	mockRepo.AssertNotCalled(t, "NudgeRetry", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_GetStatusHistory_UnknownReminder(t *testing.T) {
	service, mockRepo := setupTestService()

	mockRepo.On("GetReminderByID", mock.Anything, "missing").Return(nil, types.ErrReminderNotFound)

	_, err := service.GetStatusHistory(context.Background(), "missing")
	assert.ErrorIs(t, err, types.ErrReminderNotFound)
	mockRepo.AssertNotCalled(t, "GetStatusHistory", mock.Anything, mock.Anything)
}

func TestService_ApplyDeliveryEvent(t *testing.T) {
	service, mockRepo := setupTestService()

	event := &types.DeliveryEvent{
		ProviderRef: "prov-ref-1",
		Result:      types.ResultDelivered,
		Timestamp:   time.Now(),
	}

	mockRepo.On("GetReminderByProviderRef", mock.Anything, "prov-ref-1").Return(sentReminder(), nil)
	mockRepo.On("MarkDelivered", mock.Anything, "rem-1", event.Timestamp).Return(nil)

	require.NoError(t, service.ApplyDeliveryEvent(context.Background(), event))
	mockRepo.AssertExpectations(t)
}
