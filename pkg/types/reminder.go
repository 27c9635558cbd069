package types

import "time"

// ReminderStatus represents the delivery state of a reminder
type ReminderStatus string

const (
	StatusScheduled ReminderStatus = "scheduled"
	StatusSending   ReminderStatus = "sending"
	StatusSent      ReminderStatus = "sent"
	StatusRetry     ReminderStatus = "retry"
	StatusDelivered ReminderStatus = "delivered"
	StatusFailed    ReminderStatus = "failed"
	StatusCancelled ReminderStatus = "cancelled"
)

// Channel represents a communication medium
type Channel string

const (
	ChannelAuto     Channel = "auto"
	ChannelSMS      Channel = "sms"
	ChannelVoice    Channel = "voice"
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
)

// ChannelFallbackOrder is the fixed order used when resolving an "auto" channel
var ChannelFallbackOrder = []Channel{ChannelSMS, ChannelVoice, ChannelEmail, ChannelWhatsApp}

// Priority represents reminder priority levels
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Rank returns the numeric ordering of a priority (higher dispatches first)
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityNormal:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Reminder represents a scheduled notification intent with its own delivery state
type Reminder struct {
	ID              string            `json:"id" db:"id"`
	PatientID       string            `json:"patient_id" db:"patient_id"`
	ReminderType    string            `json:"reminder_type" db:"reminder_type"`
	Channel         Channel           `json:"channel" db:"channel"`
	SentChannel     Channel           `json:"sent_channel,omitempty" db:"sent_channel"`
	Priority        Priority          `json:"priority" db:"priority"`
	ScheduledTime   time.Time         `json:"scheduled_time" db:"scheduled_time"`
	Status          ReminderStatus    `json:"status" db:"status"`
	RetryCount      int               `json:"retry_count" db:"retry_count"`
	MaxRetries      int               `json:"max_retries" db:"max_retries"`
	BackoffInterval time.Duration     `json:"backoff_interval" db:"backoff_interval_seconds"`
	LastAttemptAt   *time.Time        `json:"last_attempt_at,omitempty" db:"last_attempt_at"`
	NextAttemptAt   *time.Time        `json:"next_attempt_at,omitempty" db:"next_attempt_at"`
	SentAt          *time.Time        `json:"sent_at,omitempty" db:"sent_at"`
	DeliveredAt     *time.Time        `json:"delivered_at,omitempty" db:"delivered_at"`
	ProviderRef     string            `json:"provider_reference,omitempty" db:"provider_reference"`
	LastError       string            `json:"last_error,omitempty" db:"last_error"`
	MessageOverride string            `json:"message_override,omitempty" db:"message_override"`
	Variables       map[string]string `json:"variables,omitempty" db:"variables"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at" db:"updated_at"`
}

// ReminderFilters represents filters for reminder queries
type ReminderFilters struct {
	PatientID string         `json:"patient_id,omitempty"`
	Status    ReminderStatus `json:"status,omitempty"`
	Type      string         `json:"type,omitempty"`
	FromDate  time.Time      `json:"from_date,omitempty"`
	ToDate    time.Time      `json:"to_date,omitempty"`
	Limit     int            `json:"limit,omitempty"`
	Offset    int            `json:"offset,omitempty"`
}

// ReminderType represents a reminder category with its multilingual templates
type ReminderType struct {
	ID              string            `json:"id" db:"id"`
	Name            string            `json:"name" db:"name"`
	Description     string            `json:"description" db:"description"`
	Templates       map[string]string `json:"templates" db:"templates"`
	DefaultLanguage string            `json:"default_language" db:"default_language"`
	IsActive        bool              `json:"is_active" db:"is_active"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at" db:"updated_at"`
}

// Template returns the template for a language and whether it exists
func (rt *ReminderType) Template(language string) (string, bool) {
	tpl, ok := rt.Templates[language]
	return tpl, ok
}

// Patient holds the contact identity the engine reads; owned externally
type Patient struct {
	ID                string    `json:"id" db:"id"`
	FirstName         string    `json:"first_name" db:"first_name"`
	LastName          string    `json:"last_name" db:"last_name"`
	PhoneNumber       string    `json:"phone_number" db:"phone_number"`
	Email             string    `json:"email" db:"email"`
	WhatsAppNumber    string    `json:"whatsapp_number" db:"whatsapp_number"`
	PreferredLanguage string    `json:"preferred_language" db:"preferred_language"`
	Department        string    `json:"department" db:"department"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// FullName returns the patient's display name
func (p *Patient) FullName() string {
	if p.FirstName == "" {
		return p.LastName
	}
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// Endpoint returns the contact endpoint for a channel, empty if none configured
func (p *Patient) Endpoint(ch Channel) string {
	switch ch {
	case ChannelSMS, ChannelVoice:
		return p.PhoneNumber
	case ChannelEmail:
		return p.Email
	case ChannelWhatsApp:
		return p.WhatsAppNumber
	default:
		return ""
	}
}

// ContactPreference holds a patient's channel and contact-time preferences
type ContactPreference struct {
	ID                string    `json:"id" db:"id"`
	PatientID         string    `json:"patient_id" db:"patient_id"`
	SMSEnabled        bool      `json:"sms_enabled" db:"sms_enabled"`
	VoiceEnabled      bool      `json:"voice_enabled" db:"voice_enabled"`
	EmailEnabled      bool      `json:"email_enabled" db:"email_enabled"`
	WhatsAppEnabled   bool      `json:"whatsapp_enabled" db:"whatsapp_enabled"`
	WindowStart       string    `json:"preferred_time_start" db:"preferred_time_start"`
	WindowEnd         string    `json:"preferred_time_end" db:"preferred_time_end"`
	PreferredLanguage string    `json:"preferred_language" db:"preferred_language"`
	ExcludedWeekdays  []string  `json:"excluded_weekdays,omitempty" db:"excluded_weekdays"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// Enabled reports whether a channel is enabled by this preference
func (cp *ContactPreference) Enabled(ch Channel) bool {
	switch ch {
	case ChannelSMS:
		return cp.SMSEnabled
	case ChannelVoice:
		return cp.VoiceEnabled
	case ChannelEmail:
		return cp.EmailEnabled
	case ChannelWhatsApp:
		return cp.WhatsAppEnabled
	default:
		return false
	}
}

// InContactWindow reports whether t falls inside the preferred contact window
// and not on an excluded weekday. A missing window means always reachable.
func (cp *ContactPreference) InContactWindow(t time.Time) bool {
	weekday := t.Weekday().String()
	for _, excluded := range cp.ExcludedWeekdays {
		if weekday == excluded {
			return false
		}
	}

	if cp.WindowStart == "" || cp.WindowEnd == "" {
		return true
	}

	start, err := time.Parse("15:04", cp.WindowStart)
	if err != nil {
		return true
	}
	end, err := time.Parse("15:04", cp.WindowEnd)
	if err != nil {
		return true
	}

	minutes := t.Hour()*60 + t.Minute()
	startMinutes := start.Hour()*60 + start.Minute()
	endMinutes := end.Hour()*60 + end.Minute()
	return minutes >= startMinutes && minutes <= endMinutes
}

// StatusHistory is an append-only record of a status transition
type StatusHistory struct {
	ID         int64     `json:"id" db:"id"`
	ReminderID string    `json:"reminder_id" db:"reminder_id"`
	OldStatus  string    `json:"old_status" db:"old_status"`
	NewStatus  string    `json:"new_status" db:"new_status"`
	Actor      string    `json:"actor" db:"actor"`
	Details    string    `json:"details,omitempty" db:"details"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// DailyMetric is a per-day rollup of delivery outcomes for one (type, channel) pair
type DailyMetric struct {
	MetricDate       time.Time `json:"metric_date" db:"metric_date"`
	ReminderType     string    `json:"reminder_type" db:"reminder_type"`
	Channel          Channel   `json:"channel" db:"channel"`
	TotalCount       int       `json:"total_count" db:"total_count"`
	ScheduledCount   int       `json:"scheduled_count" db:"scheduled_count"`
	SentCount        int       `json:"sent_count" db:"sent_count"`
	DeliveredCount   int       `json:"delivered_count" db:"delivered_count"`
	FailedCount      int       `json:"failed_count" db:"failed_count"`
	CancelledCount   int       `json:"cancelled_count" db:"cancelled_count"`
	RetriedCount     int       `json:"retried_count" db:"retried_count"`
	DeliveryRate     float64   `json:"delivery_rate" db:"delivery_rate"`
	RetryRate        float64   `json:"retry_rate" db:"retry_rate"`
	MeanDeliverySecs float64   `json:"mean_delivery_seconds" db:"mean_delivery_seconds"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// DeliveryResult is the outcome reported by the provider's asynchronous feed
type DeliveryResult string

const (
	ResultSentConfirmed DeliveryResult = "sent"
	ResultDelivered     DeliveryResult = "delivered"
	ResultFailed        DeliveryResult = "failed"
)

// DeliveryEvent is one asynchronous delivery-result callback from the provider
type DeliveryEvent struct {
	ProviderRef  string         `json:"provider_reference"`
	Result       DeliveryResult `json:"result"`
	Timestamp    time.Time      `json:"timestamp"`
	ErrorMessage string         `json:"error_message,omitempty"`
}
