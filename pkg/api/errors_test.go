package api

import (
	"errors"
	"io"
	"testing"
)

func TestErrorInterface(t *testing.T) {
	var _ error = &Error{}
}

func TestErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			"plain",
			&Error{Type: ErrorTypeInvalidRequest, Message: "url is required"},
			"invalid_request: url is required",
		},
		{
			"with id",
			&Error{Type: ErrorTypeTransportFailure, ID: "xsr_abc", Message: "dispatch failed"},
			"[xsr_abc] transport_failure: dispatch failed",
		},
		{
			"with cause",
			&Error{Type: ErrorTypeDecodeFailure, Message: "invalid JSON", Cause: io.ErrUnexpectedEOF},
			"decode_failure: invalid JSON (unexpected EOF)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error.Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		wantType ErrorType
	}{
		{"transport", NewTransportError("xsr_a", "refused", nil), ErrorTypeTransportFailure},
		{"decode", NewDecodeError("bad", nil), ErrorTypeDecodeFailure},
		{"collision", NewCollisionError("exhausted", nil), ErrorTypeCollisionRisk},
		{"invalid", NewInvalidRequestError("bad url"), ErrorTypeInvalidRequest},
		{"aborted", NewAbortedError("observer cancelled"), ErrorTypeAborted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", tt.err.Type, tt.wantType)
			}
		})
	}
}

func TestErrorIsAndUnwrap(t *testing.T) {
	err := NewDecodeError("bad payload", io.ErrUnexpectedEOF)

	if !errors.Is(err, &Error{Type: ErrorTypeDecodeFailure}) {
		t.Error("errors.Is should match on error type")
	}
	if errors.Is(err, &Error{Type: ErrorTypeTransportFailure}) {
		t.Error("errors.Is should not match a different type")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("errors.Is should reach the cause")
	}

	var apiErr *Error
	if !errors.As(error(err), &apiErr) {
		t.Fatal("errors.As should extract *Error")
	}
	if apiErr.Message != "bad payload" {
		t.Errorf("Message = %q, want %q", apiErr.Message, "bad payload")
	}
}
