package reminder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Nathech23/High-Five/pkg/types"
)

func TestAggregator_RollupDay_ComputesRates(t *testing.T) {
	mockRepo := &MockReminderRepository{}
	aggregator := NewAggregator(mockRepo, newTestLogger())

	day := time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC)
	raw := []*types.DailyMetric{
		{
			MetricDate:     day,
			ReminderType:   "appointment",
			Channel:        types.ChannelSMS,
			TotalCount:     10,
			SentCount:      2,
			DeliveredCount: 6,
			FailedCount:    1,
			CancelledCount: 1,
			RetriedCount:   3,
		},
	}

	mockRepo.On("AggregateDay", mock.Anything, day).Return(raw, nil)
	mockRepo.On("UpsertDailyMetric", mock.Anything, mock.MatchedBy(func(m *types.DailyMetric) bool {
		return m.ReminderType == "appointment" &&
			m.DeliveryRate == 0.75 && // 6 delivered / (2 sent + 6 delivered)
			m.RetryRate == 0.3 // 3 retried / 10 total
	})).Return(nil)

	require.NoError(t, aggregator.RollupDay(context.Background(), day))
	mockRepo.AssertExpectations(t)
}

func TestAggregator_RollupDay_ZeroDenominators(t *testing.T) {
	mockRepo := &MockReminderRepository{}
	aggregator := NewAggregator(mockRepo, newTestLogger())

	day := time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC)
	raw := []*types.DailyMetric{
		{
			MetricDate:     day,
			ReminderType:   "health_tip",
			Channel:        types.ChannelEmail,
			TotalCount:     0,
			CancelledCount: 0,
		},
	}

	mockRepo.On("AggregateDay", mock.Anything, day).Return(raw, nil)
	mockRepo.On("UpsertDailyMetric", mock.Anything, mock.MatchedBy(func(m *types.DailyMetric) bool {
		return m.DeliveryRate == 0 && m.RetryRate == 0
	})).Return(nil)

	require.NoError(t, aggregator.RollupDay(context.Background(), day))
}

func TestAggregator_RollupDay_Rerun(t *testing.T) {
	mockRepo := &MockReminderRepository{}
	aggregator := NewAggregator(mockRepo, newTestLogger())

	day := time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC)
	raw := []*types.DailyMetric{
		{
			MetricDate:     day,
			ReminderType:   "medication",
			Channel:        types.ChannelVoice,
			TotalCount:     4,
			DeliveredCount: 4,
		},
	}

	mockRepo.On("AggregateDay", mock.Anything, day).Return(raw, nil).Twice()
	mockRepo.On("UpsertDailyMetric", mock.Anything, mock.MatchedBy(func(m *types.DailyMetric) bool {
		return m.DeliveryRate == 1.0
	})).Return(nil).Twice()

	// Rerunning the same day overwrites the previous rollup rather than
	// accumulating on top of it
	require.NoError(t, aggregator.RollupDay(context.Background(), day))
	require.NoError(t, aggregator.RollupDay(context.Background(), day))
	mockRepo.AssertExpectations(t)
}

func TestAggregator_RollupRange(t *testing.T) {
	mockRepo := &MockReminderRepository{}
	aggregator := NewAggregator(mockRepo, newTestLogger())

	from := time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC)

	var days []time.Time
	mockRepo.On("AggregateDay", mock.Anything, mock.Anything).Return(nil, nil).Run(func(args mock.Arguments) {
		days = append(days, args.Get(1).(time.Time))
	})

	require.NoError(t, aggregator.RollupRange(context.Background(), from, to))
	assert.Equal(t, []time.Time{
		time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 22, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC),
	}, days)
}
