package annict

import (
	"fmt"
	"strings"
)

// TransportError is a network failure or a non-2xx HTTP status.
type TransportError struct {
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("annict transport: unexpected status %d", e.StatusCode)
	}

	return fmt.Sprintf("annict transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError means the response did not match the expected schema.
type ProtocolError struct {
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("annict protocol: %v", e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// RemoteGraphError carries the "errors" payload returned instead of data.
type RemoteGraphError struct {
	Errors []GraphQLError
}

func (e *RemoteGraphError) Error() string {
	messages := make([]string, 0, len(e.Errors))
	for _, ge := range e.Errors {
		messages = append(messages, ge.Message)
	}

	return "annict graph: " + strings.Join(messages, "; ")
}
