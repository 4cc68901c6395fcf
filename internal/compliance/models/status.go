package models

import dErrors "fleetcomply/pkg/domain-errors"

// Status is the lifecycle state of a compliance record.
//
// Transitions:
//
//	draft -> pending_payment (policy only) -> active -> {cancelled, expired}
//
// cancelled and expired are terminal; nothing re-enters draft or active.
type Status string

const (
	StatusDraft          Status = "draft"
	StatusPendingPayment Status = "pending_payment"
	StatusActive         Status = "active"
	StatusExpired        Status = "expired"
	StatusCancelled      Status = "cancelled"
)

var statusTransitions = map[Status][]Status{
	StatusDraft:          {StatusPendingPayment, StatusActive, StatusCancelled},
	StatusPendingPayment: {StatusActive, StatusCancelled},
	StatusActive:         {StatusCancelled, StatusExpired},
	StatusExpired:        {},
	StatusCancelled:      {},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// IsTerminal reports whether no further transitions are legal from s.
func (s Status) IsTerminal() bool {
	targets, ok := statusTransitions[s]
	return ok && len(targets) == 0
}

// CanTransitionTo reports whether s -> target is a legal transition.
func (s Status) CanTransitionTo(target Status) bool {
	for _, t := range statusTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown status: %s", s)
	}
	return st, nil
}
