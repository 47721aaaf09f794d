package models

import "encoding/json"

// CardPaymentRequest is posted by the browser after the card widget has
// produced a single-use token.
type CardPaymentRequest struct {
	Token      string `json:"token" validate:"required"`
	Amount     int64  `json:"amount" validate:"gt=0"`
	Currency   string `json:"currency" validate:"required,iso4217"`
	Reference  string `json:"reference"`
	Cardholder string `json:"cardholder"`
}

// IdealPaymentRequest starts a redirect based bank payment.
type IdealPaymentRequest struct {
	Amount      int64  `json:"amount" validate:"gt=0"`
	Currency    string `json:"currency" validate:"required,iso4217"`
	Reference   string `json:"reference"`
	Description string `json:"description"`
}

// WalletPaymentRequest carries the token returned by the wallet SDK.
type WalletPaymentRequest struct {
	Token     string `json:"token" validate:"required"`
	Amount    int64  `json:"amount" validate:"gt=0"`
	Currency  string `json:"currency" validate:"required,iso4217"`
	Reference string `json:"reference"`
}

// SavedCardPaymentRequest pays with a card reference stored on the device.
type SavedCardPaymentRequest struct {
	SourceID  string `json:"sourceId" validate:"required"`
	Amount    int64  `json:"amount" validate:"gt=0"`
	Currency  string `json:"currency" validate:"required,iso4217"`
	Reference string `json:"reference"`
}

// GatewaySource identifies what is being charged.
type GatewaySource struct {
	Type  string `json:"type"`
	Token string `json:"token,omitempty"`
	ID    string `json:"id,omitempty"`
}

// GatewayPaymentRequest is the body sent to the gateway's /payments endpoint.
type GatewayPaymentRequest struct {
	Source              GatewaySource `json:"source"`
	Amount              int64         `json:"amount"`
	Currency            string        `json:"currency"`
	ProcessingChannelID string        `json:"processing_channel_id,omitempty"`
	Reference           string        `json:"reference"`
	Capture             *bool         `json:"capture,omitempty"`
	Description         string        `json:"description,omitempty"`
	PaymentType         string        `json:"payment_type,omitempty"`
	SuccessURL          string        `json:"success_url,omitempty"`
	FailureURL          string        `json:"failure_url,omitempty"`
}

// GatewayErrorBody is the error shape returned by the gateway on non-2xx.
type GatewayErrorBody struct {
	RequestID  string   `json:"request_id"`
	ErrorType  string   `json:"error_type"`
	ErrorCodes []string `json:"error_codes"`
	Message    string   `json:"message"`
}

// PaymentResult is the gateway's payment object. It is relayed to the caller
// verbatim, so it stays raw JSON.
type PaymentResult = json.RawMessage

// PublicConfig is the browser-safe subset of the configuration.
type PublicConfig struct {
	PublicKey         string `json:"publicKey"`
	ProcessingChannel string `json:"processingChannel"`
	SuccessURL        string `json:"successUrl"`
	FailureURL        string `json:"failureUrl"`
}

// ErrorResponse is returned with a 400 for every failed payment call.
type ErrorResponse struct {
	Error     string          `json:"error"`
	Details   []string        `json:"details,omitempty"`
	RequestID string          `json:"requestId,omitempty"`
	ErrorType string          `json:"errorType,omitempty"`
	Body      json.RawMessage `json:"body,omitempty"`
}
