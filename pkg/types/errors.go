package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for the reminder engine
var (
	// ErrReminderNotFound indicates the reminder does not exist
	ErrReminderNotFound = errors.New("reminder not found")

	// ErrPatientNotFound indicates the referenced patient does not exist
	ErrPatientNotFound = errors.New("patient not found")

	// ErrReminderTypeNotFound indicates an unknown or inactive reminder type
	ErrReminderTypeNotFound = errors.New("reminder type not found")

	// ErrUnknownProviderRef indicates a delivery event referencing no known reminder
	ErrUnknownProviderRef = errors.New("unknown provider reference")

	// ErrClaimLost indicates another worker claimed the reminder first
	ErrClaimLost = errors.New("claim lost to concurrent worker")
)

// InvalidTransitionError rejects a status change not present in the transition table
type InvalidTransitionError struct {
	ReminderID string
	From       ReminderStatus
	To         ReminderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition for reminder %s: %s -> %s", e.ReminderID, e.From, e.To)
}

// TransportError indicates the provider was unreachable or timed out; retryable
type TransportError struct {
	Channel Channel
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure on channel %s: %v", e.Channel, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ChannelResolutionError indicates no eligible channel could be found; terminal
type ChannelResolutionError struct {
	PatientID string
	Reason    string
}

func (e *ChannelResolutionError) Error() string {
	return fmt.Sprintf("no eligible channel for patient %s: %s", e.PatientID, e.Reason)
}

// TemplateError indicates a template configuration defect; terminal, never retried
type TemplateError struct {
	ReminderType string
	Language     string
	Reason       string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template error for type %s (language %s): %s", e.ReminderType, e.Language, e.Reason)
}

// IsRetryable reports whether a dispatch failure should feed the retry controller.
// Configuration-class failures surface immediately as terminal failed since
// retrying them would not change the outcome.
func IsRetryable(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}
