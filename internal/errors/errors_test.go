package errors

import (
	"errors"
	"strings"
	"testing"
)

// TestSimulationError tests SimulationError type.
func TestSimulationError(t *testing.T) {
	baseErr := errors.New("base error")
	serr := NewSimulationError("AddQubit", baseErr)

	errStr := serr.Error()
	if !strings.Contains(errStr, "AddQubit") {
		t.Errorf("Error string should contain operation: %q", errStr)
	}
	if !strings.Contains(errStr, "base error") {
		t.Errorf("Error string should contain base error: %q", errStr)
	}

	if unwrapped := serr.Unwrap(); unwrapped != baseErr {
		t.Errorf("Unwrap() returned %v, want %v", unwrapped, baseErr)
	}

	if serr.Op != "AddQubit" {
		t.Errorf("Op = %q, want %q", serr.Op, "AddQubit")
	}
	if serr.Err != baseErr {
		t.Errorf("Err = %v, want %v", serr.Err, baseErr)
	}
}

// TestProtocolError tests ProtocolError type.
func TestProtocolError(t *testing.T) {
	baseErr := errors.New("invalid message")
	perr := NewProtocolError("sifting", baseErr)

	errStr := perr.Error()
	if !strings.Contains(errStr, "sifting") {
		t.Errorf("Error string should contain phase: %q", errStr)
	}
	if !strings.Contains(errStr, "invalid message") {
		t.Errorf("Error string should contain base error: %q", errStr)
	}

	if unwrapped := perr.Unwrap(); unwrapped != baseErr {
		t.Errorf("Unwrap() returned %v, want %v", unwrapped, baseErr)
	}

	if perr.Phase != "sifting" {
		t.Errorf("Phase = %q, want %q", perr.Phase, "sifting")
	}
	if perr.Err != baseErr {
		t.Errorf("Err = %v, want %v", perr.Err, baseErr)
	}
}

// TestIsFunction tests the Is helper function.
func TestIsFunction(t *testing.T) {
	if !Is(ErrQubitConsumed, ErrQubitConsumed) {
		t.Error("Is() should return true for matching sentinel error")
	}

	wrapped := NewSimulationError("Measure", ErrQubitConsumed)
	if !Is(wrapped, ErrQubitConsumed) {
		t.Error("Is() should return true for wrapped sentinel error")
	}

	doubly := NewProtocolError("measuring", wrapped)
	if !Is(doubly, ErrQubitConsumed) {
		t.Error("Is() should see through two layers of wrapping")
	}

	if Is(wrapped, ErrPairConsumed) {
		t.Error("Is() should return false for unrelated sentinel error")
	}
}

// TestAsFunction tests the As helper function.
func TestAsFunction(t *testing.T) {
	wrapped := NewProtocolError("error-estimation", ErrSecurityAborted)

	var perr *ProtocolError
	if !As(wrapped, &perr) {
		t.Fatal("As() should extract ProtocolError")
	}
	if perr.Phase != "error-estimation" {
		t.Errorf("extracted Phase = %q, want %q", perr.Phase, "error-estimation")
	}

	var serr *SimulationError
	if As(wrapped, &serr) {
		t.Error("As() should not extract SimulationError from a ProtocolError chain")
	}
}

// TestKind tests the error-kind classification of the full taxonomy.
func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrUnknownTopology, "configuration"},
		{ErrDuplicateNode, "configuration"},
		{ErrInvalidSpec, "configuration"},
		{ErrLinkEndpoint, "configuration"},
		{ErrUnsupported, "configuration"},
		{ErrUnknownNode, "reference"},
		{ErrUnknownLink, "reference"},
		{ErrUnknownChannel, "reference"},
		{ErrUnknownQubit, "reference"},
		{ErrUnknownPair, "reference"},
		{ErrNoRoute, "reference"},
		{ErrMemoryExceeded, "resource"},
		{ErrInsufficientPairs, "resource"},
		{ErrQubitConsumed, "state"},
		{ErrPairConsumed, "state"},
		{ErrNotEntangled, "state"},
		{ErrInvalidBasis, "state"},
		{ErrChannelFull, "capacity"},
		{ErrReceiveTimeout, "timeout"},
		{ErrReceiveCancelled, "timeout"},
		{ErrSecurityAborted, "security"},
		{ErrAuthFailed, "auth"},
		{ErrInvalidMessage, "protocol"},
		{ErrChannelClosed, "protocol"},
		{errors.New("anything else"), "internal"},
	}

	for _, tt := range tests {
		if got := Kind(tt.err); got != tt.want {
			t.Errorf("Kind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

// TestKindSeesThroughWrapping tests Kind on wrapped chains.
func TestKindSeesThroughWrapping(t *testing.T) {
	err := NewProtocolError("error-estimation", NewSimulationError("estimate", ErrSecurityAborted))
	if got := Kind(err); got != "security" {
		t.Errorf("Kind(wrapped security) = %q, want %q", got, "security")
	}
}
