package api

import (
	"fmt"
	"strings"
)

// State is the lifecycle state of a request instance.
type State string

const (
	StateIdle      State = "idle"
	StatePending   State = "pending"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
	StateTimedOut  State = "timed_out"
	// StateFailed is reached when a delivered payload could not be transformed.
	StateFailed State = "failed"
)

// Terminal reports whether s ends an invocation. A terminal instance
// accepts a new Send.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateCancelled, StateTimedOut, StateFailed:
		return true
	}
	return false
}

// LinkPolicy decides what Send does while a previous invocation on the
// same instance is still pending.
type LinkPolicy string

const (
	// LinkNone drops the new call.
	LinkNone LinkPolicy = "none"
	// LinkChain queues the new call until the pending one is terminal.
	LinkChain LinkPolicy = "chain"
	// LinkCancel cancels the pending call and starts the new one.
	LinkCancel LinkPolicy = "cancel"
)

// ParseLinkPolicy converts a configuration string into a LinkPolicy.
// The empty string maps to LinkNone.
func ParseLinkPolicy(s string) (LinkPolicy, error) {
	switch LinkPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", LinkNone:
		return LinkNone, nil
	case LinkChain:
		return LinkChain, nil
	case LinkCancel, "cancel-and-restart":
		return LinkCancel, nil
	}
	return "", fmt.Errorf("unknown link policy %q", s)
}

// Event names a notification emitted by a request.
type Event string

const (
	EventRequest  Event = "request"
	EventSuccess  Event = "success"
	EventFailure  Event = "failure"
	EventCancel   Event = "cancel"
	EventTimeout  Event = "timeout"
	EventComplete Event = "complete"
)

// OutcomeFor maps a terminal state to the outcome label used in metrics
// and the journal.
func OutcomeFor(s State) string {
	switch s {
	case StateCompleted:
		return "success"
	case StateCancelled:
		return "cancel"
	case StateTimedOut:
		return "timeout"
	case StateFailed:
		return "failure"
	}
	return string(s)
}
