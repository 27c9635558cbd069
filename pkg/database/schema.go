package database

import (
	"context"
	"fmt"
)

// CreateSchema creates the database schema for the reminder engine
func (db *DB) CreateSchema(ctx context.Context) error {
	db.logger.Info("Creating database schema...")

	// Create extension for UUID generation
	if err := db.createExtensions(ctx); err != nil {
		return fmt.Errorf("failed to create extensions: %w", err)
	}

	// Create tables
	tables := []string{
		createPatientsTable,
		createContactPreferencesTable,
		createReminderTypesTable,
		createRemindersTable,
		createStatusHistoryTable,
		createDailyMetricsTable,
	}

	for _, table := range tables {
		if _, err := db.ExecContext(ctx, table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	// Create indexes
	indexes := []string{
		createRemindersIndexes,
		createStatusHistoryIndexes,
		createContactPreferencesIndexes,
	}

	for _, index := range indexes {
		if _, err := db.ExecContext(ctx, index); err != nil {
			return fmt.Errorf("failed to create indexes: %w", err)
		}
	}

	// Seed predefined reminder types
	if _, err := db.ExecContext(ctx, seedReminderTypes); err != nil {
		return fmt.Errorf("failed to seed reminder types: %w", err)
	}

	db.logger.Info("Database schema created successfully")
	return nil
}

// createExtensions creates required PostgreSQL extensions
func (db *DB) createExtensions(ctx context.Context) error {
	extensions := []string{
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	}

	for _, ext := range extensions {
		if _, err := db.ExecContext(ctx, ext); err != nil {
			return fmt.Errorf("failed to create extension: %w", err)
		}
	}

	return nil
}

// SQL DDL statements for table creation
const (
	createPatientsTable = `
		CREATE TABLE IF NOT EXISTS patients (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			first_name VARCHAR(100) NOT NULL,
			last_name VARCHAR(100) NOT NULL,
			phone_number VARCHAR(30),
			email VARCHAR(255),
			whatsapp_number VARCHAR(30),
			preferred_language VARCHAR(10) NOT NULL DEFAULT 'fr',
			department VARCHAR(100),
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);`

	createContactPreferencesTable = `
		CREATE TABLE IF NOT EXISTS contact_preferences (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			patient_id UUID NOT NULL REFERENCES patients(id),
			sms_enabled BOOLEAN NOT NULL DEFAULT TRUE,
			voice_enabled BOOLEAN NOT NULL DEFAULT TRUE,
			email_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			whatsapp_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			preferred_time_start VARCHAR(5) NOT NULL DEFAULT '08:00',
			preferred_time_end VARCHAR(5) NOT NULL DEFAULT '18:00',
			preferred_language VARCHAR(10) NOT NULL DEFAULT 'fr',
			excluded_weekdays JSONB NOT NULL DEFAULT '[]'::jsonb,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			UNIQUE (patient_id)
		);`

	createReminderTypesTable = `
		CREATE TABLE IF NOT EXISTS reminder_types (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			name VARCHAR(50) UNIQUE NOT NULL,
			description TEXT,
			templates JSONB NOT NULL DEFAULT '{}'::jsonb,
			default_language VARCHAR(10) NOT NULL DEFAULT 'fr',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);`

	createRemindersTable = `
		CREATE TABLE IF NOT EXISTS reminders (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			patient_id UUID NOT NULL REFERENCES patients(id),
			reminder_type VARCHAR(50) NOT NULL,
			channel VARCHAR(20) NOT NULL DEFAULT 'auto',
			sent_channel VARCHAR(20),
			priority VARCHAR(10) NOT NULL DEFAULT 'normal',
			scheduled_time TIMESTAMP WITH TIME ZONE NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'scheduled',
			retry_count INTEGER NOT NULL DEFAULT 0,
			max_retries INTEGER NOT NULL DEFAULT 3,
			backoff_interval_seconds INTEGER NOT NULL DEFAULT 300,
			last_attempt_at TIMESTAMP WITH TIME ZONE,
			next_attempt_at TIMESTAMP WITH TIME ZONE,
			sent_at TIMESTAMP WITH TIME ZONE,
			delivered_at TIMESTAMP WITH TIME ZONE,
			provider_reference VARCHAR(100),
			last_error TEXT,
			message_override TEXT,
			variables JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);`

	createStatusHistoryTable = `
		CREATE TABLE IF NOT EXISTS status_history (
			id BIGSERIAL PRIMARY KEY,
			reminder_id UUID NOT NULL REFERENCES reminders(id),
			old_status VARCHAR(20) NOT NULL,
			new_status VARCHAR(20) NOT NULL,
			actor VARCHAR(100) NOT NULL,
			details TEXT,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);`

	createDailyMetricsTable = `
		CREATE TABLE IF NOT EXISTS daily_metrics (
			metric_date DATE NOT NULL,
			reminder_type VARCHAR(50) NOT NULL,
			channel VARCHAR(20) NOT NULL,
			total_count INTEGER NOT NULL DEFAULT 0,
			scheduled_count INTEGER NOT NULL DEFAULT 0,
			sent_count INTEGER NOT NULL DEFAULT 0,
			delivered_count INTEGER NOT NULL DEFAULT 0,
			failed_count INTEGER NOT NULL DEFAULT 0,
			cancelled_count INTEGER NOT NULL DEFAULT 0,
			retried_count INTEGER NOT NULL DEFAULT 0,
			delivery_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
			retry_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
			mean_delivery_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			PRIMARY KEY (metric_date, reminder_type, channel)
		);`
)

// SQL statements for index creation
const (
	createRemindersIndexes = `
		CREATE INDEX IF NOT EXISTS idx_reminders_due
			ON reminders (status, scheduled_time)
			WHERE status IN ('scheduled', 'retry');
		CREATE INDEX IF NOT EXISTS idx_reminders_patient ON reminders (patient_id);
		CREATE INDEX IF NOT EXISTS idx_reminders_provider_ref ON reminders (provider_reference);
		CREATE INDEX IF NOT EXISTS idx_reminders_sending ON reminders (last_attempt_at)
			WHERE status = 'sending';`

	createStatusHistoryIndexes = `
		CREATE INDEX IF NOT EXISTS idx_status_history_reminder ON status_history (reminder_id, created_at);`

	createContactPreferencesIndexes = `
		CREATE INDEX IF NOT EXISTS idx_contact_preferences_patient ON contact_preferences (patient_id);`
)

// seedReminderTypes inserts the predefined reminder categories with their
// multilingual templates. Existing rows are left untouched.
const seedReminderTypes = `
	INSERT INTO reminder_types (name, description, templates, default_language) VALUES
	(
		'appointment',
		'Appointment reminder',
		'{
			"fr": "Bonjour {patient_name}, rappel de votre rendez-vous le {date} a {time} avec {doctor_name}. Merci de confirmer votre presence.",
			"en": "Hello {patient_name}, reminder of your appointment on {date} at {time} with {doctor_name}. Please confirm your attendance.",
			"es": "Hola {patient_name}, recordatorio de su cita el {date} a las {time} con {doctor_name}. Por favor confirme su asistencia."
		}'::jsonb,
		'fr'
	),
	(
		'medication',
		'Medication intake reminder',
		'{
			"fr": "Bonjour {patient_name}, il est temps de prendre votre medicament: {medication_name}, dose {dosage}.",
			"en": "Hello {patient_name}, it is time to take your medication: {medication_name}, dose {dosage}.",
			"es": "Hola {patient_name}, es hora de tomar su medicamento: {medication_name}, dosis {dosage}."
		}'::jsonb,
		'fr'
	),
	(
		'follow_up',
		'Post-visit follow-up reminder',
		'{
			"fr": "Bonjour {patient_name}, votre suivi medical est prevu le {date}. Contactez le {clinic_phone} pour toute question.",
			"en": "Hello {patient_name}, your medical follow-up is scheduled for {date}. Call {clinic_phone} with any questions.",
			"es": "Hola {patient_name}, su seguimiento medico esta programado para el {date}. Llame al {clinic_phone} si tiene preguntas."
		}'::jsonb,
		'fr'
	),
	(
		'health_tip',
		'Preventive health advice',
		'{
			"fr": "Bonjour {patient_name}, conseil sante du jour: {tip}.",
			"en": "Hello {patient_name}, health tip of the day: {tip}.",
			"es": "Hola {patient_name}, consejo de salud del dia: {tip}."
		}'::jsonb,
		'fr'
	),
	(
		'emergency_alert',
		'Urgent notification to a patient',
		'{
			"fr": "URGENT {patient_name}: {message}. Contactez immediatement le {clinic_phone}.",
			"en": "URGENT {patient_name}: {message}. Contact {clinic_phone} immediately.",
			"es": "URGENTE {patient_name}: {message}. Contacte inmediatamente al {clinic_phone}."
		}'::jsonb,
		'fr'
	)
	ON CONFLICT (name) DO NOTHING;`
