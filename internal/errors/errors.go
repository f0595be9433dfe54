// Package errors defines the error taxonomy for the qnetsim simulation
// engine. Every failure surfaced by the resource model, the transport layer,
// or a protocol executor wraps one of the sentinel errors below, so callers
// can classify outcomes with errors.Is and the Kind helper.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for network configuration
var (
	// ErrUnknownTopology indicates an unrecognized topology kind
	ErrUnknownTopology = errors.New("topology: unknown topology kind")

	// ErrDuplicateNode indicates a node id declared more than once
	ErrDuplicateNode = errors.New("topology: duplicate node id")

	// ErrInvalidSpec indicates a structurally invalid network spec
	ErrInvalidSpec = errors.New("topology: invalid network spec")

	// ErrLinkEndpoint indicates a link referencing an undeclared node
	ErrLinkEndpoint = errors.New("topology: link endpoint not declared")
)

// Sentinel errors for entity references
var (
	// ErrUnknownNode indicates a lookup of a node id not in the network
	ErrUnknownNode = errors.New("network: unknown node id")

	// ErrUnknownLink indicates a lookup of a link id not in the network
	ErrUnknownLink = errors.New("network: unknown link id")

	// ErrUnknownChannel indicates a lookup of a channel id not in the network
	ErrUnknownChannel = errors.New("network: unknown channel id")

	// ErrUnknownQubit indicates a qubit handle that resolves to nothing
	ErrUnknownQubit = errors.New("quantum: unknown qubit")

	// ErrUnknownPair indicates an entangled pair reference that resolves to nothing
	ErrUnknownPair = errors.New("quantum: unknown entangled pair")

	// ErrNoRoute indicates no path exists between two nodes
	ErrNoRoute = errors.New("network: no route between nodes")
)

// Sentinel errors for resource limits
var (
	// ErrMemoryExceeded indicates a node's quantum memory is full
	ErrMemoryExceeded = errors.New("resource: quantum memory capacity exceeded")

	// ErrInsufficientPairs indicates too few pairs for the requested operation
	ErrInsufficientPairs = errors.New("resource: insufficient entangled pairs")
)

// Sentinel errors for quantum state
var (
	// ErrQubitConsumed indicates an operation on an already-measured qubit
	ErrQubitConsumed = errors.New("quantum: qubit already measured")

	// ErrPairConsumed indicates an operation on a broken entangled pair
	ErrPairConsumed = errors.New("quantum: entangled pair already consumed")

	// ErrNotEntangled indicates a swap on a qubit with no entangled partner
	ErrNotEntangled = errors.New("quantum: qubit is not entangled")

	// ErrInvalidBasis indicates an unsupported measurement basis
	ErrInvalidBasis = errors.New("quantum: invalid measurement basis")
)

// Sentinel errors for channel transport
var (
	// ErrChannelFull indicates a send on a channel at queue capacity.
	// Sends never block; the caller decides whether to retry.
	ErrChannelFull = errors.New("transport: channel at capacity")

	// ErrReceiveTimeout indicates a receive deadline passed with no message.
	// This is an expected outcome, not a defect.
	ErrReceiveTimeout = errors.New("transport: receive timed out")

	// ErrReceiveCancelled indicates a pending receive was cancelled
	ErrReceiveCancelled = errors.New("transport: receive cancelled")

	// ErrChannelClosed indicates use of a channel after shutdown
	ErrChannelClosed = errors.New("transport: channel closed")
)

// Sentinel errors for protocol execution
var (
	// ErrSecurityAborted indicates a QKD run whose observed error rate
	// exceeded the security threshold. Expected protocol outcome.
	ErrSecurityAborted = errors.New("protocol: error rate over security threshold")

	// ErrAuthFailed indicates a classical message signature that failed
	// verification
	ErrAuthFailed = errors.New("protocol: classical message authentication failed")

	// ErrInvalidMessage indicates a malformed classical control message
	ErrInvalidMessage = errors.New("protocol: invalid message")

	// ErrUnsupported indicates a declared but unimplemented protocol variant
	ErrUnsupported = errors.New("protocol: unsupported variant")
)

// SimulationError wraps a resource-model or transport error with the
// operation that produced it.
type SimulationError struct {
	Op  string // Operation that failed
	Err error  // Underlying error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SimulationError) Unwrap() error {
	return e.Err
}

// NewSimulationError creates a new SimulationError.
func NewSimulationError(op string, err error) *SimulationError {
	return &SimulationError{Op: op, Err: err}
}

// ProtocolError wraps a protocol executor error with the phase it occurred in.
type ProtocolError struct {
	Phase string // Protocol phase (e.g., "sifting", "error-estimation")
	Err   error  // Underlying error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol %s: %v", e.Phase, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// NewProtocolError creates a new ProtocolError.
func NewProtocolError(phase string, err error) *ProtocolError {
	return &ProtocolError{Phase: phase, Err: err}
}

// Kind classifies an error chain into the errorKind vocabulary carried by
// protocol result records. The empty string means "not an engine error".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnknownTopology),
		errors.Is(err, ErrDuplicateNode),
		errors.Is(err, ErrInvalidSpec),
		errors.Is(err, ErrLinkEndpoint),
		errors.Is(err, ErrUnsupported):
		return "configuration"
	case errors.Is(err, ErrUnknownNode),
		errors.Is(err, ErrUnknownLink),
		errors.Is(err, ErrUnknownChannel),
		errors.Is(err, ErrUnknownQubit),
		errors.Is(err, ErrUnknownPair),
		errors.Is(err, ErrNoRoute):
		return "reference"
	case errors.Is(err, ErrMemoryExceeded),
		errors.Is(err, ErrInsufficientPairs):
		return "resource"
	case errors.Is(err, ErrQubitConsumed),
		errors.Is(err, ErrPairConsumed),
		errors.Is(err, ErrNotEntangled),
		errors.Is(err, ErrInvalidBasis):
		return "state"
	case errors.Is(err, ErrChannelFull):
		return "capacity"
	case errors.Is(err, ErrReceiveTimeout), errors.Is(err, ErrReceiveCancelled):
		return "timeout"
	case errors.Is(err, ErrSecurityAborted):
		return "security"
	case errors.Is(err, ErrAuthFailed):
		return "auth"
	case errors.Is(err, ErrInvalidMessage), errors.Is(err, ErrChannelClosed):
		return "protocol"
	default:
		return "internal"
	}
}

// Is reports whether any error in err's chain matches target.
// This is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
