package reminder

import (
	"github.com/Nathech23/High-Five/pkg/types"
)

// transitions is the single source of truth for legal status changes.
// Terminal statuses (delivered, failed, cancelled) have no outgoing edges.
var transitions = map[types.ReminderStatus][]types.ReminderStatus{
	types.StatusScheduled: {types.StatusSending, types.StatusCancelled},
	types.StatusSending:   {types.StatusSent, types.StatusRetry, types.StatusFailed, types.StatusCancelled},
	types.StatusSent:      {types.StatusDelivered, types.StatusRetry, types.StatusFailed, types.StatusCancelled},
	types.StatusRetry:     {types.StatusSending, types.StatusFailed, types.StatusCancelled},
	types.StatusDelivered: {},
	types.StatusFailed:    {},
	types.StatusCancelled: {},
}

// CanTransition reports whether the status change from -> to is legal
func CanTransition(from, to types.ReminderStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns an InvalidTransitionError when from -> to is not
// in the transition table
func ValidateTransition(reminderID string, from, to types.ReminderStatus) error {
	if !CanTransition(from, to) {
		return &types.InvalidTransitionError{ReminderID: reminderID, From: from, To: to}
	}
	return nil
}

// IsTerminal reports whether a status has no outgoing transitions
func IsTerminal(status types.ReminderStatus) bool {
	return len(transitions[status]) == 0
}

// IsKnownStatus reports whether the status belongs to the closed status set
func IsKnownStatus(status types.ReminderStatus) bool {
	_, ok := transitions[status]
	return ok
}
