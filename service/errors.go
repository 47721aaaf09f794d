package service

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMissingSecretKey is returned when no gateway secret key is configured.
// The server still starts; payment calls fail until the key is provided.
var ErrMissingSecretKey = errors.New("Missing CHECKOUT_SECRET_KEY")

// ValidationError reports a request that was rejected before any gateway call.
type ValidationError struct {
	Method  string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// GatewayError carries the gateway's rejection details back to the caller.
type GatewayError struct {
	StatusCode int
	Message    string
	Codes      []string
	RequestID  string
	ErrorType  string
	// Body is the full gateway response body, "{}" when it was not JSON.
	Body json.RawMessage
}

func (e *GatewayError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("%s (status %d, request %s)", e.Message, e.StatusCode, e.RequestID)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
}
