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

func testPatient() *types.Patient {
	return &types.Patient{
		ID:                "patient-1",
		FirstName:         "Awa",
		LastName:          "Diallo",
		PhoneNumber:       "+221770000001",
		Email:             "awa.diallo@example.org",
		PreferredLanguage: "fr",
	}
}

func setupDispatcher(t *testing.T) (*Dispatcher, *MockReminderRepository, *MockProvider) {
	t.Helper()

	mockRepo := &MockReminderRepository{}
	mockProvider := &MockProvider{}
	log := newTestLogger()

	retry := NewRetryController(mockRepo, BackoffPolicy{Growth: GrowthLinear}, log, testMetrics())
	now := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	retry.now = func() time.Time { return now }

	d := NewDispatcher(mockRepo, mockProvider, NewRenderer(log), retry, log, testMetrics(), 15*time.Second)
	d.now = func() time.Time { return now }

	return d, mockRepo, mockProvider
}

func TestDispatcher_Dispatch_Success(t *testing.T) {
	d, mockRepo, mockProvider := setupDispatcher(t)

	rem := &types.Reminder{
		ID:            "rem-1",
		PatientID:     "patient-1",
		ReminderType:  "appointment",
		Channel:       types.ChannelSMS,
		Priority:      types.PriorityNormal,
		ScheduledTime: time.Date(2026, 9, 15, 10, 30, 0, 0, time.UTC),
		Status:        types.StatusSending,
		MaxRetries:    3,
	}

	mockRepo.On("GetPatientByID", mock.Anything, "patient-1").Return(testPatient(), nil)
	mockRepo.On("GetContactPreference", mock.Anything, "patient-1").Return(nil, nil)
	mockRepo.On("GetReminderTypeByName", mock.Anything, "appointment").Return(testReminderType(), nil)

	expectedText := "Bonjour Awa Diallo, rendez-vous le 15/09/2026 a 10:30."
	mockProvider.On("Send", mock.Anything, "+221770000001", types.ChannelSMS, expectedText).Return("prov-ref-1", nil)
	mockRepo.On("MarkSent", mock.Anything, "rem-1", types.ChannelSMS, "prov-ref-1", mock.Anything).Return(nil)

	err := d.Dispatch(context.Background(), rem)
	require.NoError(t, err)

	mockRepo.AssertExpectations(t)
	mockProvider.AssertExpectations(t)
}

func TestDispatcher_Dispatch_MessageOverrideSkipsTemplate(t *testing.T) {
	d, mockRepo, mockProvider := setupDispatcher(t)

	rem := &types.Reminder{
		ID:              "rem-2",
		PatientID:       "patient-1",
		ReminderType:    "appointment",
		Channel:         types.ChannelSMS,
		Status:          types.StatusSending,
		MessageOverride: "Votre consultation est avancee a 9h.",
		MaxRetries:      3,
	}

	mockRepo.On("GetPatientByID", mock.Anything, "patient-1").Return(testPatient(), nil)
	mockRepo.On("GetContactPreference", mock.Anything, "patient-1").Return(nil, nil)
	mockProvider.On("Send", mock.Anything, "+221770000001", types.ChannelSMS, rem.MessageOverride).Return("prov-ref-2", nil)
	mockRepo.On("MarkSent", mock.Anything, "rem-2", types.ChannelSMS, "prov-ref-2", mock.Anything).Return(nil)

	err := d.Dispatch(context.Background(), rem)
	require.NoError(t, err)

	mockRepo.AssertNotCalled(t, "GetReminderTypeByName", mock.Anything, mock.Anything)
	mockRepo.AssertExpectations(t)
}

func TestDispatcher_Dispatch_TransportFailureSchedulesRetry(t *testing.T) {
	d, mockRepo, mockProvider := setupDispatcher(t)

	rem := &types.Reminder{
		ID:              "rem-3",
		PatientID:       "patient-1",
		ReminderType:    "appointment",
		Channel:         types.ChannelSMS,
		Status:          types.StatusSending,
		RetryCount:      0,
		MaxRetries:      3,
		BackoffInterval: 5 * time.Minute,
	}

	mockRepo.On("GetPatientByID", mock.Anything, "patient-1").Return(testPatient(), nil)
	mockRepo.On("GetContactPreference", mock.Anything, "patient-1").Return(nil, nil)
	mockRepo.On("GetReminderTypeByName", mock.Anything, "appointment").Return(testReminderType(), nil)
	mockProvider.On("Send", mock.Anything, mock.Anything, types.ChannelSMS, mock.Anything).Return("", errors.New("gateway unreachable"))

	mockRepo.On("ScheduleRetry", mock.Anything, "rem-3", types.StatusSending, 1, mock.Anything, mock.Anything, mock.Anything, "dispatcher").Return(nil)

	err := d.Dispatch(context.Background(), rem)
	require.NoError(t, err)

	mockRepo.AssertExpectations(t)
	mockRepo.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatcher_Dispatch_TransportFailureExhaustsBudget(t *testing.T) {
	d, mockRepo, mockProvider := setupDispatcher(t)

	// Two retries already recorded with max_retries = 3: this failure is final
	rem := &types.Reminder{
		ID:              "rem-4",
		PatientID:       "patient-1",
		ReminderType:    "appointment",
		Channel:         types.ChannelSMS,
		Status:          types.StatusSending,
		RetryCount:      2,
		MaxRetries:      3,
		BackoffInterval: 5 * time.Minute,
	}

	mockRepo.On("GetPatientByID", mock.Anything, "patient-1").Return(testPatient(), nil)
	mockRepo.On("GetContactPreference", mock.Anything, "patient-1").Return(nil, nil)
	mockRepo.On("GetReminderTypeByName", mock.Anything, "appointment").Return(testReminderType(), nil)
	mockProvider.On("Send", mock.Anything, mock.Anything, types.ChannelSMS, mock.Anything).Return("", errors.New("gateway unreachable"))

	mockRepo.On("MarkFailed", mock.Anything, "rem-4", types.StatusSending, mock.Anything, "dispatcher").Return(nil)

	err := d.Dispatch(context.Background(), rem)
	require.NoError(t, err)

	mockRepo.AssertExpectations(t)
	mockRepo.AssertNotCalled(t, "ScheduleRetry", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatcher_Dispatch_NoEligibleChannelIsTerminal(t *testing.T) {
	d, mockRepo, mockProvider := setupDispatcher(t)

	rem := &types.Reminder{
		ID:           "rem-5",
		PatientID:    "patient-2",
		ReminderType: "appointment",
		Channel:      types.ChannelWhatsApp,
		Status:       types.StatusSending,
		MaxRetries:   3,
	}

	// Patient has no WhatsApp number; retrying cannot fix that
	patient := testPatient()
	patient.ID = "patient-2"
	patient.WhatsAppNumber = ""

	mockRepo.On("GetPatientByID", mock.Anything, "patient-2").Return(patient, nil)
	mockRepo.On("GetContactPreference", mock.Anything, "patient-2").Return(nil, nil)
	mockRepo.On("MarkFailed", mock.Anything, "rem-5", types.StatusSending, mock.Anything, "dispatcher").Return(nil)

	err := d.Dispatch(context.Background(), rem)
	require.NoError(t, err)

	mockProvider.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mockRepo.AssertNotCalled(t, "ScheduleRetry", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mockRepo.AssertExpectations(t)
}

func TestDispatcher_Dispatch_InfrastructureErrorLeavesClaim(t *testing.T) {
	d, mockRepo, mockProvider := setupDispatcher(t)

	rem := &types.Reminder{
		ID:           "rem-6",
		PatientID:    "patient-1",
		ReminderType: "appointment",
		Channel:      types.ChannelSMS,
		Status:       types.StatusSending,
		MaxRetries:   3,
	}

	mockRepo.On("GetPatientByID", mock.Anything, "patient-1").Return(nil, errors.New("connection refused"))

	err := d.Dispatch(context.Background(), rem)
	require.Error(t, err)

	// The reminder stays in sending for the stuck reclaimer
	mockProvider.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mockRepo.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatcher_ResolveChannel(t *testing.T) {
	d := &Dispatcher{now: func() time.Time {
		// A Monday at noon
		return time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	}}

	patient := testPatient()
	patient.WhatsAppNumber = "+221770000001"

	pref := &types.ContactPreference{
		PatientID:       "patient-1",
		SMSEnabled:      true,
		VoiceEnabled:    true,
		EmailEnabled:    true,
		WhatsAppEnabled: true,
		WindowStart:     "08:00",
		WindowEnd:       "18:00",
	}

	t.Run("auto picks sms first", func(t *testing.T) {
		rem := &types.Reminder{PatientID: "patient-1", Channel: types.ChannelAuto}
		channel, endpoint, err := d.resolveChannel(rem, patient, pref)
		require.NoError(t, err)
		assert.Equal(t, types.ChannelSMS, channel)
		assert.Equal(t, "+221770000001", endpoint)
	})

	t.Run("auto skips disabled channels", func(t *testing.T) {
		restricted := *pref
		restricted.SMSEnabled = false
		restricted.VoiceEnabled = false

		rem := &types.Reminder{PatientID: "patient-1", Channel: types.ChannelAuto}
		channel, endpoint, err := d.resolveChannel(rem, patient, &restricted)
		require.NoError(t, err)
		assert.Equal(t, types.ChannelEmail, channel)
		assert.Equal(t, "awa.diallo@example.org", endpoint)
	})

	t.Run("outside window blocks normal priority", func(t *testing.T) {
		night := &Dispatcher{now: func() time.Time {
			return time.Date(2026, 8, 24, 22, 0, 0, 0, time.UTC)
		}}

		rem := &types.Reminder{PatientID: "patient-1", Channel: types.ChannelAuto, Priority: types.PriorityNormal}
		_, _, err := night.resolveChannel(rem, patient, pref)
		require.Error(t, err)

		var chanErr *types.ChannelResolutionError
		require.True(t, errors.As(err, &chanErr))
		assert.Contains(t, chanErr.Reason, "contact window")
	})

	t.Run("urgent bypasses contact window", func(t *testing.T) {
		night := &Dispatcher{now: func() time.Time {
			return time.Date(2026, 8, 24, 22, 0, 0, 0, time.UTC)
		}}

		rem := &types.Reminder{PatientID: "patient-1", Channel: types.ChannelAuto, Priority: types.PriorityUrgent}
		channel, _, err := night.resolveChannel(rem, patient, pref)
		require.NoError(t, err)
		assert.Equal(t, types.ChannelSMS, channel)
	})

	t.Run("urgent bypasses excluded weekdays", func(t *testing.T) {
		excluded := *pref
		excluded.ExcludedWeekdays = []string{"Monday"}

		rem := &types.Reminder{PatientID: "patient-1", Channel: types.ChannelAuto, Priority: types.PriorityUrgent}
		channel, _, err := d.resolveChannel(rem, patient, &excluded)
		require.NoError(t, err)
		assert.Equal(t, types.ChannelSMS, channel)

		rem.Priority = types.PriorityNormal
		_, _, err = d.resolveChannel(rem, patient, &excluded)
		require.Error(t, err)
	})

	t.Run("explicit channel honored despite preferences", func(t *testing.T) {
		restricted := *pref
		restricted.EmailEnabled = false

		rem := &types.Reminder{PatientID: "patient-1", Channel: types.ChannelEmail}
		channel, endpoint, err := d.resolveChannel(rem, patient, &restricted)
		require.NoError(t, err)
		assert.Equal(t, types.ChannelEmail, channel)
		assert.Equal(t, "awa.diallo@example.org", endpoint)
	})

	t.Run("explicit channel without endpoint fails", func(t *testing.T) {
		bare := &types.Patient{ID: "patient-3", FirstName: "Moussa"}
		rem := &types.Reminder{PatientID: "patient-3", Channel: types.ChannelSMS}
		_, _, err := d.resolveChannel(rem, bare, nil)
		require.Error(t, err)

		var chanErr *types.ChannelResolutionError
		assert.True(t, errors.As(err, &chanErr))
	})

	t.Run("nil preference means unrestricted", func(t *testing.T) {
		rem := &types.Reminder{PatientID: "patient-1", Channel: types.ChannelAuto}
		channel, _, err := d.resolveChannel(rem, patient, nil)
		require.NoError(t, err)
		assert.Equal(t, types.ChannelSMS, channel)
	})
}

func TestDispatcher_TemplateVars_StoredVariablesWin(t *testing.T) {
	d := &Dispatcher{}

	rem := &types.Reminder{
		ScheduledTime: time.Date(2026, 9, 15, 10, 30, 0, 0, time.UTC),
		Variables:     map[string]string{"patient_name": "Mme Diallo", "medication": "Paracetamol"},
	}

	vars := d.templateVars(rem, testPatient())
	assert.Equal(t, "Mme Diallo", vars["patient_name"])
	assert.Equal(t, "Paracetamol", vars["medication"])
	assert.Equal(t, "15/09/2026", vars["date"])
	assert.Equal(t, "10:30", vars["time"])
}

func TestPreferredLanguage(t *testing.T) {
	patient := testPatient()

	assert.Equal(t, "fr", preferredLanguage(patient, nil))
	assert.Equal(t, "en", preferredLanguage(patient, &types.ContactPreference{PreferredLanguage: "en"}))
	assert.Equal(t, "fr", preferredLanguage(patient, &types.ContactPreference{}))
}
