package reminder

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Nathech23/High-Five/pkg/database"
	"github.com/Nathech23/High-Five/pkg/interfaces"
	"github.com/Nathech23/High-Five/pkg/logger"
	"github.com/Nathech23/High-Five/pkg/types"
)

// reminderColumns is the column list shared by every reminder SELECT
const reminderColumns = `id, patient_id, reminder_type, channel, sent_channel, priority,
	scheduled_time, status, retry_count, max_retries, backoff_interval_seconds,
	last_attempt_at, next_attempt_at, sent_at, delivered_at,
	provider_reference, last_error, message_override, variables, created_at, updated_at`

// Repository implements the ReminderRepository interface over PostgreSQL.
// Every status mutation runs in a transaction that locks the reminder row,
// re-validates the transition against the current status and appends the
// status_history record, so concurrent workers and callbacks serialize per
// reminder.
type Repository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewRepository creates a new reminder repository
func NewRepository(db *database.DB, log *logger.Logger) interfaces.ReminderRepository {
	return &Repository{
		db:     db,
		logger: log,
	}
}

// CreateReminder inserts a new reminder in scheduled status
func (r *Repository) CreateReminder(ctx context.Context, rem *types.Reminder) error {
	variables, err := json.Marshal(rem.Variables)
	if err != nil {
		return fmt.Errorf("failed to encode variables: %w", err)
	}

	query := `
		INSERT INTO reminders (
			id, patient_id, reminder_type, channel, priority, scheduled_time,
			status, retry_count, max_retries, backoff_interval_seconds,
			message_override, variables, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	now := time.Now()
	_, err = r.db.ExecContext(ctx, query,
		rem.ID,
		rem.PatientID,
		rem.ReminderType,
		string(rem.Channel),
		string(rem.Priority),
		rem.ScheduledTime,
		string(types.StatusScheduled),
		0,
		rem.MaxRetries,
		int(rem.BackoffInterval.Seconds()),
		rem.MessageOverride,
		variables,
		now,
		now,
	)

	if err != nil {
		r.logger.WithError(err).Error("Failed to create reminder")
		return fmt.Errorf("failed to create reminder: %w", err)
	}

	r.logger.WithReminder(rem.ID).Info("Created reminder")
	return nil
}

// GetReminderByID retrieves a reminder by ID
func (r *Repository) GetReminderByID(ctx context.Context, id string) (*types.Reminder, error) {
	query := fmt.Sprintf(`SELECT %s FROM reminders WHERE id = $1`, reminderColumns)
	return r.scanReminder(r.db.QueryRowContext(ctx, query, id))
}

// GetReminderByProviderRef retrieves the reminder correlated with a provider
// reference from an asynchronous delivery event
func (r *Repository) GetReminderByProviderRef(ctx context.Context, ref string) (*types.Reminder, error) {
	query := fmt.Sprintf(`SELECT %s FROM reminders WHERE provider_reference = $1`, reminderColumns)
	return r.scanReminder(r.db.QueryRowContext(ctx, query, ref))
}

// ListReminders retrieves reminders based on filters
func (r *Repository) ListReminders(ctx context.Context, filters *types.ReminderFilters) ([]*types.Reminder, error) {
	query := fmt.Sprintf(`SELECT %s FROM reminders WHERE 1=1`, reminderColumns)

	args := []interface{}{}
	argIndex := 1

	if filters.PatientID != "" {
		query += fmt.Sprintf(" AND patient_id = $%d", argIndex)
		args = append(args, filters.PatientID)
		argIndex++
	}

	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, string(filters.Status))
		argIndex++
	}

	if filters.Type != "" {
		query += fmt.Sprintf(" AND reminder_type = $%d", argIndex)
		args = append(args, filters.Type)
		argIndex++
	}

	if !filters.FromDate.IsZero() {
		query += fmt.Sprintf(" AND scheduled_time >= $%d", argIndex)
		args = append(args, filters.FromDate)
		argIndex++
	}

	if !filters.ToDate.IsZero() {
		query += fmt.Sprintf(" AND scheduled_time <= $%d", argIndex)
		args = append(args, filters.ToDate)
		argIndex++
	}

	query += " ORDER BY scheduled_time ASC, id ASC"

	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, filters.Limit)
		argIndex++
	}

	if filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, filters.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.WithError(err).Error("Failed to list reminders")
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	defer rows.Close()

	return r.collectReminders(rows)
}

// ListDueReminders returns dispatch candidates in claim order: highest
// priority first, then earliest scheduled time, then id for a stable order.
// Retry-status rows become eligible only once their materialized next attempt
// time has passed.
func (r *Repository) ListDueReminders(ctx context.Context, now time.Time, limit int) ([]*types.Reminder, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM reminders
		WHERE status IN ('scheduled', 'retry')
		  AND scheduled_time <= $1
		  AND (status = 'scheduled' OR next_attempt_at <= $1)
		  AND retry_count < max_retries
		ORDER BY
		  CASE priority
		    WHEN 'urgent' THEN 4
		    WHEN 'high' THEN 3
		    WHEN 'normal' THEN 2
		    ELSE 1
		  END DESC,
		  scheduled_time ASC,
		  id ASC
		LIMIT $2`, reminderColumns)

	rows, err := r.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		r.logger.WithError(err).Error("Failed to list due reminders")
		return nil, fmt.Errorf("failed to list due reminders: %w", err)
	}
	defer rows.Close()

	return r.collectReminders(rows)
}

// ListStuckSending returns reminders claimed before olderThan that never
// completed their dispatch
func (r *Repository) ListStuckSending(ctx context.Context, olderThan time.Time) ([]*types.Reminder, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM reminders
		WHERE status = 'sending' AND last_attempt_at < $1
		ORDER BY last_attempt_at ASC`, reminderColumns)

	rows, err := r.db.QueryContext(ctx, query, olderThan)
	if err != nil {
		r.logger.WithError(err).Error("Failed to list stuck reminders")
		return nil, fmt.Errorf("failed to list stuck reminders: %w", err)
	}
	defer rows.Close()

	return r.collectReminders(rows)
}

// ClaimReminder atomically moves a due reminder into sending. Returns false
// without error when another worker won the claim or the reminder left the
// claimable statuses in the meantime.
func (r *Repository) ClaimReminder(ctx context.Context, id string, now time.Time) (bool, error) {
	var won bool
	err := r.inTransition(ctx, id, func(tx *sql.Tx, current types.ReminderStatus) error {
		if current != types.StatusScheduled && current != types.StatusRetry {
			won = false
			return nil
		}

		query := `
			UPDATE reminders
			SET status = 'sending', last_attempt_at = $2, updated_at = $2
			WHERE id = $1`
		if _, err := tx.ExecContext(ctx, query, id, now); err != nil {
			return fmt.Errorf("failed to claim reminder: %w", err)
		}

		if err := r.insertHistory(ctx, tx, id, current, types.StatusSending, "worker", "claimed for dispatch"); err != nil {
			return err
		}

		won = true
		return nil
	})
	return won, err
}

// MarkSent records a synchronous provider accept
func (r *Repository) MarkSent(ctx context.Context, id string, channel types.Channel, providerRef string, sentAt time.Time) error {
	return r.inTransition(ctx, id, func(tx *sql.Tx, current types.ReminderStatus) error {
		if err := ValidateTransition(id, current, types.StatusSent); err != nil {
			return err
		}

		query := `
			UPDATE reminders
			SET status = 'sent', sent_channel = $2, provider_reference = $3,
			    sent_at = $4, updated_at = $4
			WHERE id = $1`
		if _, err := tx.ExecContext(ctx, query, id, string(channel), providerRef, sentAt); err != nil {
			return fmt.Errorf("failed to mark reminder sent: %w", err)
		}

		return r.insertHistory(ctx, tx, id, current, types.StatusSent, "dispatcher", "provider accepted: "+providerRef)
	})
}

// MarkDelivered records a provider delivery confirmation
func (r *Repository) MarkDelivered(ctx context.Context, id string, deliveredAt time.Time) error {
	return r.inTransition(ctx, id, func(tx *sql.Tx, current types.ReminderStatus) error {
		if err := ValidateTransition(id, current, types.StatusDelivered); err != nil {
			return err
		}

		query := `
			UPDATE reminders
			SET status = 'delivered', delivered_at = $2, updated_at = NOW()
			WHERE id = $1`
		if _, err := tx.ExecContext(ctx, query, id, deliveredAt); err != nil {
			return fmt.Errorf("failed to mark reminder delivered: %w", err)
		}

		return r.insertHistory(ctx, tx, id, current, types.StatusDelivered, "reconciler", "delivery confirmed")
	})
}

// MarkFailed records a terminal failure. The attempt counter is incremented
// here as well so every failed attempt is counted exactly once.
func (r *Repository) MarkFailed(ctx context.Context, id string, from types.ReminderStatus, lastError, actor string) error {
	return r.inTransition(ctx, id, func(tx *sql.Tx, current types.ReminderStatus) error {
		if err := ValidateTransition(id, current, types.StatusFailed); err != nil {
			return err
		}

		query := `
			UPDATE reminders
			SET status = 'failed', last_error = $2, retry_count = retry_count + 1, updated_at = NOW()
			WHERE id = $1`
		if _, err := tx.ExecContext(ctx, query, id, lastError); err != nil {
			return fmt.Errorf("failed to mark reminder failed: %w", err)
		}

		return r.insertHistory(ctx, tx, id, current, types.StatusFailed, actor, lastError)
	})
}

// ScheduleRetry moves a reminder into retry with its updated attempt counter
// and materialized next eligible time
func (r *Repository) ScheduleRetry(ctx context.Context, id string, from types.ReminderStatus, retryCount int, lastAttemptAt, nextAttemptAt time.Time, lastError, actor string) error {
	return r.inTransition(ctx, id, func(tx *sql.Tx, current types.ReminderStatus) error {
		if err := ValidateTransition(id, current, types.StatusRetry); err != nil {
			return err
		}

		query := `
			UPDATE reminders
			SET status = 'retry', retry_count = $2, last_attempt_at = $3,
			    next_attempt_at = $4, last_error = $5, updated_at = NOW()
			WHERE id = $1`
		if _, err := tx.ExecContext(ctx, query, id, retryCount, lastAttemptAt, nextAttemptAt, lastError); err != nil {
			return fmt.Errorf("failed to schedule retry: %w", err)
		}

		return r.insertHistory(ctx, tx, id, current, types.StatusRetry, actor, lastError)
	})
}

// NudgeRetry pulls a retry-status reminder's next attempt time forward so the
// next poll picks it up. No status change, so no history row.
func (r *Repository) NudgeRetry(ctx context.Context, id string, now time.Time) error {
	query := `
		UPDATE reminders
		SET next_attempt_at = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'retry'`

	result, err := r.db.ExecContext(ctx, query, id, now)
	if err != nil {
		return fmt.Errorf("failed to nudge retry: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return types.ErrReminderNotFound
	}

	r.logger.WithReminder(id).Info("Retry nudged to immediate eligibility")
	return nil
}

// CancelReminder cancels a non-terminal reminder
func (r *Repository) CancelReminder(ctx context.Context, id, actor string) error {
	return r.inTransition(ctx, id, func(tx *sql.Tx, current types.ReminderStatus) error {
		if err := ValidateTransition(id, current, types.StatusCancelled); err != nil {
			return err
		}

		query := `UPDATE reminders SET status = 'cancelled', updated_at = NOW() WHERE id = $1`
		if _, err := tx.ExecContext(ctx, query, id); err != nil {
			return fmt.Errorf("failed to cancel reminder: %w", err)
		}

		return r.insertHistory(ctx, tx, id, current, types.StatusCancelled, actor, "cancelled")
	})
}

// inTransition runs fn inside a transaction holding a row lock on the
// reminder, passing it the current status. The lock serializes concurrent
// claims and callbacks touching the same reminder.
func (r *Repository) inTransition(ctx context.Context, id string, fn func(tx *sql.Tx, current types.ReminderStatus) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT status FROM reminders WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if err != nil {
		if err == sql.ErrNoRows {
			return types.ErrReminderNotFound
		}
		return fmt.Errorf("failed to lock reminder: %w", err)
	}

	if err := fn(tx, types.ReminderStatus(current)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// insertHistory appends the status_history row inside the mutating transaction
func (r *Repository) insertHistory(ctx context.Context, tx *sql.Tx, reminderID string, old, new types.ReminderStatus, actor, details string) error {
	query := `
		INSERT INTO status_history (reminder_id, old_status, new_status, actor, details, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())`

	if _, err := tx.ExecContext(ctx, query, reminderID, string(old), string(new), actor, details); err != nil {
		return fmt.Errorf("failed to insert status history: %w", err)
	}
	return nil
}

// GetPatientByID retrieves a patient by ID
func (r *Repository) GetPatientByID(ctx context.Context, id string) (*types.Patient, error) {
	query := `
		SELECT id, first_name, last_name, phone_number, email, whatsapp_number,
		       preferred_language, department, created_at, updated_at
		FROM patients
		WHERE id = $1`

	p := &types.Patient{}
	var phone, email, whatsapp, department sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID,
		&p.FirstName,
		&p.LastName,
		&phone,
		&email,
		&whatsapp,
		&p.PreferredLanguage,
		&department,
		&p.CreatedAt,
		&p.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.ErrPatientNotFound
		}
		r.logger.WithError(err).Error("Failed to get patient")
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}

	p.PhoneNumber = phone.String
	p.Email = email.String
	p.WhatsAppNumber = whatsapp.String
	p.Department = department.String
	return p, nil
}

// GetContactPreference retrieves a patient's contact preference. Patients
// without a stored preference get (nil, nil); the dispatcher treats that as
// unrestricted.
func (r *Repository) GetContactPreference(ctx context.Context, patientID string) (*types.ContactPreference, error) {
	query := `
		SELECT id, patient_id, sms_enabled, voice_enabled, email_enabled, whatsapp_enabled,
		       preferred_time_start, preferred_time_end, preferred_language, excluded_weekdays,
		       created_at, updated_at
		FROM contact_preferences
		WHERE patient_id = $1`

	cp := &types.ContactPreference{}
	var excluded []byte
	err := r.db.QueryRowContext(ctx, query, patientID).Scan(
		&cp.ID,
		&cp.PatientID,
		&cp.SMSEnabled,
		&cp.VoiceEnabled,
		&cp.EmailEnabled,
		&cp.WhatsAppEnabled,
		&cp.WindowStart,
		&cp.WindowEnd,
		&cp.PreferredLanguage,
		&excluded,
		&cp.CreatedAt,
		&cp.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithError(err).Error("Failed to get contact preference")
		return nil, fmt.Errorf("failed to get contact preference: %w", err)
	}

	if len(excluded) > 0 {
		if err := json.Unmarshal(excluded, &cp.ExcludedWeekdays); err != nil {
			return nil, fmt.Errorf("failed to decode excluded weekdays: %w", err)
		}
	}
	return cp, nil
}

// GetReminderTypeByName retrieves an active reminder type by name
func (r *Repository) GetReminderTypeByName(ctx context.Context, name string) (*types.ReminderType, error) {
	query := `
		SELECT id, name, description, templates, default_language, is_active, created_at, updated_at
		FROM reminder_types
		WHERE name = $1 AND is_active = TRUE`

	rt := &types.ReminderType{}
	var templates []byte
	var description sql.NullString
	err := r.db.QueryRowContext(ctx, query, name).Scan(
		&rt.ID,
		&rt.Name,
		&description,
		&templates,
		&rt.DefaultLanguage,
		&rt.IsActive,
		&rt.CreatedAt,
		&rt.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.ErrReminderTypeNotFound
		}
		r.logger.WithError(err).Error("Failed to get reminder type")
		return nil, fmt.Errorf("failed to get reminder type: %w", err)
	}

	rt.Description = description.String
	if err := json.Unmarshal(templates, &rt.Templates); err != nil {
		return nil, fmt.Errorf("failed to decode templates: %w", err)
	}
	return rt, nil
}

// GetStatusHistory retrieves the transition history of a reminder in order
func (r *Repository) GetStatusHistory(ctx context.Context, reminderID string) ([]*types.StatusHistory, error) {
	query := `
		SELECT id, reminder_id, old_status, new_status, actor, details, created_at
		FROM status_history
		WHERE reminder_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, reminderID)
	if err != nil {
		r.logger.WithError(err).Error("Failed to get status history")
		return nil, fmt.Errorf("failed to get status history: %w", err)
	}
	defer rows.Close()

	var history []*types.StatusHistory
	for rows.Next() {
		h := &types.StatusHistory{}
		var details sql.NullString
		if err := rows.Scan(&h.ID, &h.ReminderID, &h.OldStatus, &h.NewStatus, &h.Actor, &details, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan status history: %w", err)
		}
		h.Details = details.String
		history = append(history, h)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating status history: %w", err)
	}

	return history, nil
}

// AggregateDay computes the raw per-type, per-channel counts for reminders
// scheduled on one calendar day. The effective channel is the one actually
// used where known, otherwise the requested channel.
func (r *Repository) AggregateDay(ctx context.Context, day time.Time) ([]*types.DailyMetric, error) {
	nextDay := day.Add(24 * time.Hour)

	query := `
		SELECT reminder_type,
		       COALESCE(sent_channel, channel) AS effective_channel,
		       COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'scheduled'),
		       COUNT(*) FILTER (WHERE status = 'sent'),
		       COUNT(*) FILTER (WHERE status = 'delivered'),
		       COUNT(*) FILTER (WHERE status = 'failed'),
		       COUNT(*) FILTER (WHERE status = 'cancelled'),
		       COUNT(*) FILTER (WHERE retry_count > 0),
		       COALESCE(AVG(EXTRACT(EPOCH FROM (delivered_at - sent_at)))
		                FILTER (WHERE delivered_at IS NOT NULL AND sent_at IS NOT NULL), 0)
		FROM reminders
		WHERE scheduled_time >= $1 AND scheduled_time < $2
		GROUP BY reminder_type, COALESCE(sent_channel, channel)`

	rows, err := r.db.QueryContext(ctx, query, day, nextDay)
	if err != nil {
		r.logger.WithError(err).Error("Failed to aggregate daily metrics")
		return nil, fmt.Errorf("failed to aggregate daily metrics: %w", err)
	}
	defer rows.Close()

	var metrics []*types.DailyMetric
	for rows.Next() {
		m := &types.DailyMetric{MetricDate: day}
		var channel string
		if err := rows.Scan(
			&m.ReminderType,
			&channel,
			&m.TotalCount,
			&m.ScheduledCount,
			&m.SentCount,
			&m.DeliveredCount,
			&m.FailedCount,
			&m.CancelledCount,
			&m.RetriedCount,
			&m.MeanDeliverySecs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan daily metric: %w", err)
		}
		m.Channel = types.Channel(channel)
		metrics = append(metrics, m)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily metrics: %w", err)
	}

	return metrics, nil
}

// UpsertDailyMetric writes one rollup row, replacing any previous rollup of
// the same (date, type, channel)
func (r *Repository) UpsertDailyMetric(ctx context.Context, m *types.DailyMetric) error {
	query := `
		INSERT INTO daily_metrics (
			metric_date, reminder_type, channel, total_count, scheduled_count,
			sent_count, delivered_count, failed_count, cancelled_count, retried_count,
			delivery_rate, retry_rate, mean_delivery_seconds, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
		ON CONFLICT (metric_date, reminder_type, channel) DO UPDATE SET
			total_count = EXCLUDED.total_count,
			scheduled_count = EXCLUDED.scheduled_count,
			sent_count = EXCLUDED.sent_count,
			delivered_count = EXCLUDED.delivered_count,
			failed_count = EXCLUDED.failed_count,
			cancelled_count = EXCLUDED.cancelled_count,
			retried_count = EXCLUDED.retried_count,
			delivery_rate = EXCLUDED.delivery_rate,
			retry_rate = EXCLUDED.retry_rate,
			mean_delivery_seconds = EXCLUDED.mean_delivery_seconds,
			updated_at = NOW()`

	_, err := r.db.ExecContext(ctx, query,
		m.MetricDate,
		m.ReminderType,
		string(m.Channel),
		m.TotalCount,
		m.ScheduledCount,
		m.SentCount,
		m.DeliveredCount,
		m.FailedCount,
		m.CancelledCount,
		m.RetriedCount,
		m.DeliveryRate,
		m.RetryRate,
		m.MeanDeliverySecs,
	)

	if err != nil {
		r.logger.WithError(err).Error("Failed to upsert daily metric")
		return fmt.Errorf("failed to upsert daily metric: %w", err)
	}
	return nil
}

// GetDailyMetrics retrieves rollup rows for a date range
func (r *Repository) GetDailyMetrics(ctx context.Context, from, to time.Time) ([]*types.DailyMetric, error) {
	query := `
		SELECT metric_date, reminder_type, channel, total_count, scheduled_count,
		       sent_count, delivered_count, failed_count, cancelled_count, retried_count,
		       delivery_rate, retry_rate, mean_delivery_seconds, updated_at
		FROM daily_metrics
		WHERE metric_date >= $1 AND metric_date <= $2
		ORDER BY metric_date ASC, reminder_type ASC, channel ASC`

	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		r.logger.WithError(err).Error("Failed to get daily metrics")
		return nil, fmt.Errorf("failed to get daily metrics: %w", err)
	}
	defer rows.Close()

	var metrics []*types.DailyMetric
	for rows.Next() {
		m := &types.DailyMetric{}
		var channel string
		if err := rows.Scan(
			&m.MetricDate,
			&m.ReminderType,
			&channel,
			&m.TotalCount,
			&m.ScheduledCount,
			&m.SentCount,
			&m.DeliveredCount,
			&m.FailedCount,
			&m.CancelledCount,
			&m.RetriedCount,
			&m.DeliveryRate,
			&m.RetryRate,
			&m.MeanDeliverySecs,
			&m.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan daily metric: %w", err)
		}
		m.Channel = types.Channel(channel)
		metrics = append(metrics, m)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily metrics: %w", err)
	}

	return metrics, nil
}

// scanReminder scans a single reminder row
func (r *Repository) scanReminder(row *sql.Row) (*types.Reminder, error) {
	rem := &types.Reminder{}
	var sentChannel, providerRef, lastError, messageOverride sql.NullString
	var backoffSeconds int
	var variables []byte

	err := row.Scan(
		&rem.ID,
		&rem.PatientID,
		&rem.ReminderType,
		&rem.Channel,
		&sentChannel,
		&rem.Priority,
		&rem.ScheduledTime,
		&rem.Status,
		&rem.RetryCount,
		&rem.MaxRetries,
		&backoffSeconds,
		&rem.LastAttemptAt,
		&rem.NextAttemptAt,
		&rem.SentAt,
		&rem.DeliveredAt,
		&providerRef,
		&lastError,
		&messageOverride,
		&variables,
		&rem.CreatedAt,
		&rem.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.ErrReminderNotFound
		}
		return nil, fmt.Errorf("failed to get reminder: %w", err)
	}

	rem.SentChannel = types.Channel(sentChannel.String)
	rem.ProviderRef = providerRef.String
	rem.LastError = lastError.String
	rem.MessageOverride = messageOverride.String
	rem.BackoffInterval = time.Duration(backoffSeconds) * time.Second
	if len(variables) > 0 {
		if err := json.Unmarshal(variables, &rem.Variables); err != nil {
			return nil, fmt.Errorf("failed to decode variables: %w", err)
		}
	}

	return rem, nil
}

// collectReminders scans all rows of a reminder query
func (r *Repository) collectReminders(rows *sql.Rows) ([]*types.Reminder, error) {
	var reminders []*types.Reminder
	for rows.Next() {
		rem := &types.Reminder{}
		var sentChannel, providerRef, lastError, messageOverride sql.NullString
		var backoffSeconds int
		var variables []byte

		err := rows.Scan(
			&rem.ID,
			&rem.PatientID,
			&rem.ReminderType,
			&rem.Channel,
			&sentChannel,
			&rem.Priority,
			&rem.ScheduledTime,
			&rem.Status,
			&rem.RetryCount,
			&rem.MaxRetries,
			&backoffSeconds,
			&rem.LastAttemptAt,
			&rem.NextAttemptAt,
			&rem.SentAt,
			&rem.DeliveredAt,
			&providerRef,
			&lastError,
			&messageOverride,
			&variables,
			&rem.CreatedAt,
			&rem.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}

		rem.SentChannel = types.Channel(sentChannel.String)
		rem.ProviderRef = providerRef.String
		rem.LastError = lastError.String
		rem.MessageOverride = messageOverride.String
		rem.BackoffInterval = time.Duration(backoffSeconds) * time.Second
		if len(variables) > 0 {
			if err := json.Unmarshal(variables, &rem.Variables); err != nil {
				return nil, fmt.Errorf("failed to decode variables: %w", err)
			}
		}

		reminders = append(reminders, rem)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reminders: %w", err)
	}

	return reminders, nil
}
