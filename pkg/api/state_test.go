package api

import (
	"strings"
	"testing"
)

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    State
		to      State
		wantErr bool
	}{
		// Valid transitions
		{name: "idle to pending", from: StateIdle, to: StatePending},
		{name: "pending to completed", from: StatePending, to: StateCompleted},
		{name: "pending to cancelled", from: StatePending, to: StateCancelled},
		{name: "pending to timed_out", from: StatePending, to: StateTimedOut},
		{name: "pending to idle (dispatch refused)", from: StatePending, to: StateIdle},
		{name: "completed to failed (transform rejected)", from: StateCompleted, to: StateFailed},
		{name: "completed to pending (resend)", from: StateCompleted, to: StatePending},
		{name: "cancelled to pending (resend)", from: StateCancelled, to: StatePending},
		{name: "timed_out to pending (resend)", from: StateTimedOut, to: StatePending},
		{name: "failed to pending (resend)", from: StateFailed, to: StatePending},

		// Invalid transitions
		{name: "idle to completed", from: StateIdle, to: StateCompleted, wantErr: true},
		{name: "idle to cancelled", from: StateIdle, to: StateCancelled, wantErr: true},
		{name: "pending to pending", from: StatePending, to: StatePending, wantErr: true},
		{name: "pending to failed", from: StatePending, to: StateFailed, wantErr: true},
		{name: "cancelled to completed", from: StateCancelled, to: StateCompleted, wantErr: true},
		{name: "timed_out to cancelled", from: StateTimedOut, to: StateCancelled, wantErr: true},
		{name: "completed to cancelled", from: StateCompleted, to: StateCancelled, wantErr: true},
		{name: "unknown state", from: State("bogus"), to: StatePending, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTransition(tt.from, tt.to)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ValidateTransition(%q, %q) = nil, want error", tt.from, tt.to)
				} else if !strings.Contains(err.Message, "invalid transition") {
					t.Errorf("error message %q does not contain \"invalid transition\"", err.Message)
				}
			} else if err != nil {
				t.Errorf("ValidateTransition(%q, %q) = %v, want nil", tt.from, tt.to, err)
			}
		})
	}
}

func TestStateTerminal(t *testing.T) {
	tests := []struct {
		state State
		want  bool
	}{
		{StateIdle, false},
		{StatePending, false},
		{StateCompleted, true},
		{StateCancelled, true},
		{StateTimedOut, true},
		{StateFailed, true},
	}
	for _, tt := range tests {
		if got := tt.state.Terminal(); got != tt.want {
			t.Errorf("%s.Terminal() = %v, want %v", tt.state, got, tt.want)
		}
	}
}

func TestParseLinkPolicy(t *testing.T) {
	tests := []struct {
		input   string
		want    LinkPolicy
		wantErr bool
	}{
		{"", LinkNone, false},
		{"none", LinkNone, false},
		{"chain", LinkChain, false},
		{" Chain ", LinkChain, false},
		{"cancel", LinkCancel, false},
		{"cancel-and-restart", LinkCancel, false},
		{"ignore", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLinkPolicy(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLinkPolicy(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLinkPolicy(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestOutcomeFor(t *testing.T) {
	tests := map[State]string{
		StateCompleted: "success",
		StateCancelled: "cancel",
		StateTimedOut:  "timeout",
		StateFailed:    "failure",
	}
	for state, want := range tests {
		if got := OutcomeFor(state); got != want {
			t.Errorf("OutcomeFor(%q) = %q, want %q", state, got, want)
		}
	}
}
