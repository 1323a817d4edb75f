package upstream

import (
	"errors"
	"fmt"
)

// ErrCircuitOpen is returned without calling the upstream while its breaker is open
var ErrCircuitOpen = errors.New("upstream circuit open")

// StatusError is an unexpected HTTP status from an upstream
type StatusError struct {
	Endpoint   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Endpoint, e.StatusCode)
}

// DecodeError is a response body that could not be parsed
type DecodeError struct {
	Endpoint string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: failed to decode response: %v", e.Endpoint, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
