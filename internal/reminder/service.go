package reminder

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/Nathech23/High-Five/pkg/config"
	"github.com/Nathech23/High-Five/pkg/database"
	"github.com/Nathech23/High-Five/pkg/interfaces"
	"github.com/Nathech23/High-Five/pkg/logger"
	"github.com/Nathech23/High-Five/pkg/monitoring"
	"github.com/Nathech23/High-Five/pkg/types"
)

// Service wires the reminder engine together and implements the
// ReminderEngine interface
type Service struct {
	config     *config.Config
	logger     *logger.Logger
	repository interfaces.ReminderRepository
	db         *database.DB
	server     *http.Server
	metrics    *monitoring.MetricsCollector
	health     *monitoring.HealthManager

	renderer   *Renderer
	retry      *RetryController
	selector   *Selector
	dispatcher *Dispatcher
	reconciler *Reconciler
	aggregator *Aggregator
}

// New creates a new reminder service with the default logging provider
func New(cfg *config.Config, log *logger.Logger, serviceName string) (*Service, error) {
	db, err := database.NewConnection(&cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	provider := NewLogProvider(log)
	return NewWithProvider(cfg, log, serviceName, db, provider)
}

// NewWithProvider creates a reminder service with an explicit communication
// provider
func NewWithProvider(cfg *config.Config, log *logger.Logger, serviceName string, db *database.DB, provider interfaces.Provider) (*Service, error) {
	metrics := monitoring.NewMetricsCollector(serviceName)

	health := monitoring.NewHealthManager(serviceName, "1.0.0")
	health.RegisterChecker("database", monitoring.NewDatabaseHealthChecker(db.DB))

	repository := NewRepository(db, log)
	renderer := NewRenderer(log)

	policy := BackoffPolicy{Growth: cfg.Retry.Growth}
	retry := NewRetryController(repository, policy, log, metrics)

	stuckAfter := time.Duration(cfg.Scheduler.StuckClaimAfter) * time.Second
	selector := NewSelector(repository, retry, log, metrics, stuckAfter)

	providerTimeout := time.Duration(cfg.Scheduler.ProviderTimeout) * time.Second
	dispatcher := NewDispatcher(repository, provider, renderer, retry, log, metrics, providerTimeout)

	reconciler := NewReconciler(repository, retry, log, metrics)
	aggregator := NewAggregator(repository, log)

	return &Service{
		config:     cfg,
		logger:     log,
		repository: repository,
		db:         db,
		metrics:    metrics,
		health:     health,
		renderer:   renderer,
		retry:      retry,
		selector:   selector,
		dispatcher: dispatcher,
		reconciler: reconciler,
		aggregator: aggregator,
	}, nil
}

// CreateReminder validates and persists a new reminder in scheduled status
func (s *Service) CreateReminder(ctx context.Context, rem *types.Reminder) (*types.Reminder, error) {
	if err := s.validateReminder(ctx, rem); err != nil {
		return nil, fmt.Errorf("reminder validation failed: %w", err)
	}

	rem.ID = uuid.New().String()
	rem.Status = types.StatusScheduled
	rem.RetryCount = 0
	rem.CreatedAt = time.Now()
	rem.UpdatedAt = rem.CreatedAt

	if rem.Channel == "" {
		rem.Channel = types.ChannelAuto
	}
	if rem.Priority == "" {
		rem.Priority = types.PriorityNormal
	}
	if rem.MaxRetries == 0 {
		rem.MaxRetries = s.config.Retry.DefaultMaxRetries
	}
	if rem.BackoffInterval == 0 {
		rem.BackoffInterval = time.Duration(s.config.Retry.DefaultInterval) * time.Second
	}

	if err := s.repository.CreateReminder(ctx, rem); err != nil {
		return nil, fmt.Errorf("failed to create reminder: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"reminder_id":    rem.ID,
		"patient_id":     rem.PatientID,
		"reminder_type":  rem.ReminderType,
		"scheduled_time": rem.ScheduledTime,
		"priority":       string(rem.Priority),
	}).Info("Reminder created")

	return rem, nil
}

// CancelReminder cancels a pending reminder. Cancellation of an already
// claimed attempt is advisory; the in-flight dispatch may still complete.
func (s *Service) CancelReminder(ctx context.Context, reminderID, actor string) error {
	if err := s.repository.CancelReminder(ctx, reminderID, actor); err != nil {
		return err
	}
	s.logger.StateTransition(reminderID, "", string(types.StatusCancelled), "cancelled by "+actor)
	return nil
}

// GetReminder retrieves a reminder by ID
func (s *Service) GetReminder(ctx context.Context, reminderID string) (*types.Reminder, error) {
	return s.repository.GetReminderByID(ctx, reminderID)
}

// ListReminders retrieves reminders matching the filters
func (s *Service) ListReminders(ctx context.Context, filters *types.ReminderFilters) ([]*types.Reminder, error) {
	return s.repository.ListReminders(ctx, filters)
}

// GetStatusHistory returns the ordered transition history of a reminder
func (s *Service) GetStatusHistory(ctx context.Context, reminderID string) ([]*types.StatusHistory, error) {
	if _, err := s.repository.GetReminderByID(ctx, reminderID); err != nil {
		return nil, err
	}
	return s.repository.GetStatusHistory(ctx, reminderID)
}

// RetryNow makes a reminder waiting in retry immediately eligible by pulling
// its next attempt time forward
func (s *Service) RetryNow(ctx context.Context, reminderID string) error {
	rem, err := s.repository.GetReminderByID(ctx, reminderID)
	if err != nil {
		return err
	}
	if rem.Status != types.StatusRetry {
		return &types.InvalidTransitionError{ReminderID: reminderID, From: rem.Status, To: types.StatusRetry}
	}
	return s.repository.NudgeRetry(ctx, reminderID, time.Now())
}

// GetDailyMetrics retrieves daily rollup rows for a date range
func (s *Service) GetDailyMetrics(ctx context.Context, from, to time.Time) ([]*types.DailyMetric, error) {
	return s.repository.GetDailyMetrics(ctx, from, to)
}

// ApplyDeliveryEvent feeds one asynchronous delivery result to the reconciler
func (s *Service) ApplyDeliveryEvent(ctx context.Context, event *types.DeliveryEvent) error {
	return s.reconciler.Apply(ctx, event)
}

// RunWorker runs the dispatch loop until the context is cancelled: claim due
// reminders in batches, dispatch them across a bounded worker pool, reclaim
// stuck claims, and periodically rerun the daily metrics rollup.
func (s *Service) RunWorker(ctx context.Context) error {
	pollInterval := time.Duration(s.config.Scheduler.PollInterval) * time.Second
	stuckAfter := time.Duration(s.config.Scheduler.StuckClaimAfter) * time.Second
	rollupInterval := time.Duration(s.config.Scheduler.RollupInterval) * time.Second

	poll := time.NewTicker(pollInterval)
	defer poll.Stop()
	reclaim := time.NewTicker(stuckAfter)
	defer reclaim.Stop()
	rollup := time.NewTicker(rollupInterval)
	defer rollup.Stop()

	jobs := make(chan *types.Reminder)
	var wg sync.WaitGroup
	for i := 0; i < s.config.Scheduler.WorkerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rem := range jobs {
				if err := s.dispatcher.Dispatch(ctx, rem); err != nil {
					s.logger.WithReminder(rem.ID).WithError(err).Error("Dispatch failed")
					s.metrics.RecordSystemError("dispatch_error", "worker")
				}
			}
		}()
	}

	s.logger.WithFields(map[string]interface{}{
		"poll_interval": pollInterval.String(),
		"batch_size":    s.config.Scheduler.BatchSize,
		"worker_count":  s.config.Scheduler.WorkerCount,
	}).Info("Reminder worker started")

	for {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			s.logger.Info("Reminder worker stopped")
			return nil

		case <-poll.C:
			claimed, err := s.selector.ClaimDue(ctx, s.config.Scheduler.BatchSize)
			if err != nil {
				s.logger.WithError(err).Error("Failed to claim due reminders")
				s.metrics.RecordSystemError("claim_error", "worker")
				continue
			}
			for _, rem := range claimed {
				select {
				case jobs <- rem:
				case <-ctx.Done():
				}
			}

		case <-reclaim.C:
			if err := s.selector.ReclaimStuck(ctx); err != nil {
				s.logger.WithError(err).Error("Failed to reclaim stuck reminders")
				s.metrics.RecordSystemError("reclaim_error", "worker")
			}

		case <-rollup.C:
			to := time.Now()
			from := to.AddDate(0, 0, -s.config.Scheduler.RollupLookbackDays)
			if err := s.aggregator.RollupRange(ctx, from, to); err != nil {
				s.logger.WithError(err).Error("Failed to roll up daily metrics")
				s.metrics.RecordSystemError("rollup_error", "worker")
			}
		}
	}
}

// Start starts the reminder service HTTP server
func (s *Service) Start(addr string) error {
	router := mux.NewRouter()
	s.setupRoutes(router)

	handler := s.metrics.HTTPMiddleware(router)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(s.config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.config.Server.IdleTimeout) * time.Second,
	}

	s.logger.WithField("addr", addr).Info("Starting Reminder Service")
	return s.server.ListenAndServe()
}

// Stop stops the reminder service
func (s *Service) Stop() error {
	if s.server != nil {
		s.logger.Info("Stopping Reminder Service")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Close releases the database connection
func (s *Service) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// validateReminder validates reminder data before creation
func (s *Service) validateReminder(ctx context.Context, rem *types.Reminder) error {
	if rem.PatientID == "" {
		return fmt.Errorf("patient ID is required")
	}

	if rem.ReminderType == "" {
		return fmt.Errorf("reminder type is required")
	}

	if rem.ScheduledTime.IsZero() {
		return fmt.Errorf("scheduled time is required")
	}

	if rem.MaxRetries < 0 || rem.MaxRetries > 10 {
		return fmt.Errorf("max retries out of range: %d", rem.MaxRetries)
	}

	if rem.BackoffInterval < 0 {
		return fmt.Errorf("backoff interval must not be negative")
	}

	if _, err := s.repository.GetPatientByID(ctx, rem.PatientID); err != nil {
		return err
	}

	if rem.MessageOverride == "" {
		if _, err := s.repository.GetReminderTypeByName(ctx, rem.ReminderType); err != nil {
			return err
		}
	}

	return nil
}
