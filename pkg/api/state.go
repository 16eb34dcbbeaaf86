package api

import "fmt"

// ValidateTransition checks whether a request state transition is valid.
// Terminal states only lead back to pending (a new invocation), except
// completed which may still turn into failed when the payload transform
// rejects the delivered payload. Pending may fall back to idle when the
// transport refuses the dispatch.
func ValidateTransition(from, to State) *Error {
	valid := map[State][]State{
		StateIdle:      {StatePending},
		StatePending:   {StateCompleted, StateCancelled, StateTimedOut, StateIdle},
		StateCompleted: {StatePending, StateFailed},
		StateCancelled: {StatePending},
		StateTimedOut:  {StatePending},
		StateFailed:    {StatePending},
	}

	allowed, exists := valid[from]
	if !exists {
		return NewInvalidRequestError(fmt.Sprintf("invalid transition from %s to %s", from, to))
	}

	for _, s := range allowed {
		if s == to {
			return nil
		}
	}

	return NewInvalidRequestError(fmt.Sprintf("invalid transition from %s to %s", from, to))
}
