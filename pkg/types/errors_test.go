package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	transport := &TransportError{Channel: ChannelSMS, Err: errors.New("gateway unreachable")}
	assert.True(t, IsRetryable(transport))
	assert.True(t, IsRetryable(fmt.Errorf("dispatch failed: %w", transport)))

	assert.False(t, IsRetryable(&ChannelResolutionError{PatientID: "p1", Reason: "no endpoint"}))
	assert.False(t, IsRetryable(&TemplateError{ReminderType: "appointment", Reason: "no template"}))
	assert.False(t, IsRetryable(errors.New("plain error")))
	assert.False(t, IsRetryable(nil))
}

func TestTransportError_Unwrap(t *testing.T) {
	inner := errors.New("connection reset")
	transport := &TransportError{Channel: ChannelVoice, Err: inner}

	assert.ErrorIs(t, transport, inner)
	assert.Contains(t, transport.Error(), "voice")
}

func TestInvalidTransitionError_Message(t *testing.T) {
	err := &InvalidTransitionError{ReminderID: "rem-1", From: StatusDelivered, To: StatusFailed}
	assert.Contains(t, err.Error(), "rem-1")
	assert.Contains(t, err.Error(), "delivered")
	assert.Contains(t, err.Error(), "failed")
}
