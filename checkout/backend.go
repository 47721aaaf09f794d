package checkout

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

	"checkout-demo/models"
)

// Proxy endpoints the controller posts to.
const (
	pathConfig           = "/config"
	pathCardPayment      = "/api/payments/card"
	pathIdealPayment     = "/api/payments/ideal"
	pathWalletPayment    = "/api/payments/wallet"
	pathSavedCardPayment = "/api/payments/saved-card"
)

// Backend is the checkout server as seen from the page.
type Backend interface {
	FetchConfig(ctx context.Context) (models.PublicConfig, error)
	// SubmitPayment posts payload to path. Non-2xx answers are not errors;
	// they come back in the response.
	SubmitPayment(ctx context.Context, path string, payload any) (*BackendResponse, error)
}

// BackendResponse is a decoded proxy answer.
type BackendResponse struct {
	StatusCode int
	StatusText string
	Payment    PaymentResponse
}

// OK reports a 2xx answer.
func (r *BackendResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode <= 299
}

// PaymentResponse holds the fields the controller reads from either a
// gateway payment object or a proxy error body.
type PaymentResponse struct {
	Status string         `json:"status"`
	Links  paymentLinks   `json:"_links"`
	Source *paymentSource `json:"source"`

	Error            string   `json:"error"`
	Details          []string `json:"details"`
	RequestID        string   `json:"requestId"`
	GatewayRequestID string   `json:"request_id"`
}

type paymentLinks struct {
	Redirect *struct {
		Href string `json:"href"`
	} `json:"redirect"`
}

// RedirectURL returns the link the shopper must follow, if any.
func (p *PaymentResponse) RedirectURL() string {
	if p.Links.Redirect == nil {
		return ""
	}
	return p.Links.Redirect.Href
}

// HTTPBackend calls the checkout server over HTTP.
type HTTPBackend struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPBackend creates a backend client for the server at baseURL.
func NewHTTPBackend(baseURL string, timeout time.Duration) *HTTPBackend {
	return &HTTPBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		},
	}
}

// FetchConfig loads the public configuration.
func (b *HTTPBackend) FetchConfig(ctx context.Context) (models.PublicConfig, error) {
	var cfg models.PublicConfig

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+pathConfig, nil)
	if err != nil {
		return cfg, err
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return cfg, fmt.Errorf("failed to fetch config: %w", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// SubmitPayment posts a payment request to the proxy.
func (b *HTTPBackend) SubmitPayment(ctx context.Context, path string, payload any) (*BackendResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to submit payment: %w", err)
	}
	defer resp.Body.Close()

	out := &BackendResponse{
		StatusCode: resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read payment response: %w", err)
	}
	// A body that is not a JSON object is treated as empty.
	_ = json.Unmarshal(raw, &out.Payment)

	return out, nil
}
