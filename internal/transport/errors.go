package transport

import (
	"errors"
	"fmt"
)

// Kind classifies fetch failures
type Kind int

const (
	// KindNetwork - the server could not be reached
	KindNetwork Kind = iota + 1
	// KindStatus - the server answered with a failure status
	KindStatus
	// KindPayload - the response body is not a node mapping
	KindPayload
)

// String returns the kind name used in logs
func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindStatus:
		return "status"
	case KindPayload:
		return "payload"
	default:
		return "unknown"
	}
}

var (
	// ErrCircuitOpen is returned while the circuit breaker rejects fetches
	ErrCircuitOpen = errors.New("circuit breaker open")
	// ErrClosed is returned by fetches on a closed transport
	ErrClosed = errors.New("transport closed")
)

// Error is the failure returned by Transport.Fetch
type Error struct {
	Kind   Kind
	Status int // HTTP status or JSON-RPC error code for KindStatus
	Err    error
}

func newError(kind Kind, status int, err error) *Error {
	return &Error{Kind: kind, Status: status, Err: err}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Kind == KindStatus {
		return fmt.Sprintf("%s error %d: %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a fetch error, KindNetwork for foreign errors
// and 0 for nil
func KindOf(err error) Kind {
	if err == nil {
		return 0
	}
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindNetwork
}
