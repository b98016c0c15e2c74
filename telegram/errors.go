package telegram

import "fmt"

// TransportError is returned when a bot API call failed before a well-formed
// response envelope was received: connection failures, timeouts, cancelled
// contexts, unparseable bodies.
type TransportError struct {
	Method string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("telegram: %s: transport: %v", e.Method, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// UpstreamError is returned when the bot API answered with ok=false.
// Description carries the upstream reason verbatim; callers that need to
// distinguish failure modes match on it.
type UpstreamError struct {
	Method      string
	Code        int
	Description string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("telegram: %s: api error %d: %s", e.Method, e.Code, e.Description)
}
