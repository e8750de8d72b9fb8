package bridge

import "fmt"

// TransportError wraps a network-level failure talking to the bridge.
type TransportError struct {
	Verb string // "GET" or "PUT"
	Err  error
}

func (e *TransportError) Error() string { return fmt.Sprintf("bridge transport (%s): %v", e.Verb, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError signals a non-JSON or unexpected-shape response body.
type ProtocolError struct {
	Route string
	Err   error
}

func (e *ProtocolError) Error() string { return fmt.Sprintf("bridge protocol (%s): %v", e.Route, e.Err) }
func (e *ProtocolError) Unwrap() error { return e.Err }

// AuthFailureError is surfaced when a GET returns the bridge's array error
// envelope, meaning the credentials are no longer valid for this session.
type AuthFailureError struct {
	Route string
}

func (e *AuthFailureError) Error() string {
	return fmt.Sprintf("bridge auth failure on GET %q", e.Route)
}

// BridgeError carries the description from a PUT response's
// error.description field.
type BridgeError struct {
	Description string
}

func (e *BridgeError) Error() string { return "bridge error: " + e.Description }

// StreamUnavailableError is surfaced when a stream-group claim never
// confirms within the retry budget.
type StreamUnavailableError struct {
	GroupID int
}

func (e *StreamUnavailableError) Error() string {
	return fmt.Sprintf("entertainment group %d unavailable for streaming", e.GroupID)
}
