package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"checkout-demo/logging"
	"checkout-demo/models"
	"checkout-demo/service"
)

// PaymentHandler handles HTTP requests for payments
type PaymentHandler struct {
	paymentService *service.PaymentService
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// CardPayment handles POST /api/payments/card
func (h *PaymentHandler) CardPayment(c *gin.Context) {
	var req models.CardPaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.paymentService.ProcessCard(c.Request.Context(), &req)
	h.respond(c, service.MethodCard, result, err)
}

// IdealPayment handles POST /api/payments/ideal
func (h *PaymentHandler) IdealPayment(c *gin.Context) {
	var req models.IdealPaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.paymentService.ProcessIdeal(c.Request.Context(), &req)
	h.respond(c, service.MethodIdeal, result, err)
}

// WalletPayment handles POST /api/payments/wallet
func (h *PaymentHandler) WalletPayment(c *gin.Context) {
	var req models.WalletPaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.paymentService.ProcessWallet(c.Request.Context(), &req)
	h.respond(c, service.MethodWallet, result, err)
}

// SavedCardPayment handles POST /api/payments/saved-card
func (h *PaymentHandler) SavedCardPayment(c *gin.Context) {
	var req models.SavedCardPaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.paymentService.ProcessSavedCard(c.Request.Context(), &req)
	h.respond(c, service.MethodSavedCard, result, err)
}

func (h *PaymentHandler) respond(c *gin.Context, method string, result models.PaymentResult, err error) {
	if err == nil {
		c.Data(http.StatusOK, "application/json", result)
		return
	}

	span := trace.SpanFromContext(c.Request.Context())
	logging.WithTraceContext(span).Warn("Payment request rejected",
		zap.String("payment_method", method),
		zap.Error(err),
	)

	resp := models.ErrorResponse{Error: err.Error()}

	var gwErr *service.GatewayError
	if errors.As(err, &gwErr) {
		resp.Error = gwErr.Message
		resp.Details = gwErr.Codes
		resp.RequestID = gwErr.RequestID
		resp.ErrorType = gwErr.ErrorType
		// Only the redirect flow echoes the raw gateway body for debugging.
		if method == service.MethodIdeal {
			resp.Body = gwErr.Body
		}
	}

	c.JSON(http.StatusBadRequest, resp)
}

// bindJSON decodes the request body. An empty body is treated as an empty
// object so that field validation produces the error message.
func bindJSON(c *gin.Context, dst any) bool {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return false
	}
	if len(raw) == 0 {
		return true
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}

// ConfigHandler exposes the browser-safe configuration.
type ConfigHandler struct {
	config models.PublicConfig
}

// NewConfigHandler creates a config handler. The secret key never reaches it.
func NewConfigHandler(cfg models.PublicConfig) *ConfigHandler {
	if cfg.PublicKey == "" {
		logging.Warn("CHECKOUT_PUBLIC_KEY is not set, card fields will not render")
	}
	return &ConfigHandler{config: cfg}
}

// GetConfig handles GET /config
func (h *ConfigHandler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.config)
}

// HealthCheck handles health check requests
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
