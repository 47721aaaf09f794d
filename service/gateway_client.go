package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"checkout-demo/models"
	"checkout-demo/monitoring"
)

const defaultGatewayError = "Payment request failed"

var emptyObject = json.RawMessage("{}")

// GatewayClient talks to the payment gateway's REST API.
type GatewayClient struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

// NewGatewayClient creates a gateway client. An empty secretKey is accepted;
// every call then fails with ErrMissingSecretKey.
func NewGatewayClient(baseURL, secretKey string, timeout time.Duration) *GatewayClient {
	return &GatewayClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		},
	}
}

// CreatePayment posts a payment to the gateway. Non-2xx answers are returned
// as *GatewayError.
func (c *GatewayClient) CreatePayment(ctx context.Context, payload *models.GatewayPaymentRequest) (models.PaymentResult, error) {
	if c.secretKey == "" {
		return nil, ErrMissingSecretKey
	}

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("external.service", "payment-gateway"),
		attribute.String("payment.source_type", payload.Source.Type),
	)

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payments", bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start).Seconds()

	if err != nil {
		c.recordCall(ctx, payload, duration, "error")
		span.SetAttributes(attribute.String("external.status", "error"))
		return nil, fmt.Errorf("failed to call payment gateway: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.recordCall(ctx, payload, duration, "error")
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}
	body := models.PaymentResult(raw)
	if !json.Valid(raw) {
		body = emptyObject
	}

	span.SetAttributes(attribute.Int("external.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.recordCall(ctx, payload, duration, "failed")
		span.SetAttributes(attribute.String("external.status", "failed"))
		return nil, newGatewayError(resp.StatusCode, body)
	}

	c.recordCall(ctx, payload, duration, "success")
	span.SetAttributes(attribute.String("external.status", "success"))

	return body, nil
}

func (c *GatewayClient) recordCall(ctx context.Context, payload *models.GatewayPaymentRequest, seconds float64, status string) {
	monitoring.GatewayCallDuration.Record(ctx, seconds,
		metric.WithAttributes(
			attribute.String("source_type", payload.Source.Type),
			attribute.String("status", status),
		),
	)
}

func newGatewayError(statusCode int, body json.RawMessage) *GatewayError {
	var parsed models.GatewayErrorBody
	// Non-object bodies leave parsed empty and fall back to the default message.
	_ = json.Unmarshal(body, &parsed)

	message := parsed.Message
	if message == "" {
		message = defaultGatewayError
	}

	return &GatewayError{
		StatusCode: statusCode,
		Message:    message,
		Codes:      parsed.ErrorCodes,
		RequestID:  parsed.RequestID,
		ErrorType:  parsed.ErrorType,
		Body:       body,
	}
}
