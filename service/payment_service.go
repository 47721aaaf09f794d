package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"checkout-demo/logging"
	"checkout-demo/models"
	"checkout-demo/monitoring"
)

// Payment methods accepted by the proxy.
const (
	MethodCard      = "card"
	MethodIdeal     = "ideal"
	MethodWallet    = "wallet"
	MethodSavedCard = "saved-card"
)

const (
	idealCurrency           = "EUR"
	defaultIdealDescription = "iDEAL payment for iPhone case"
	maskedValue             = "[masked]"
)

var defaultReferences = map[string]string{
	MethodCard:      "demo-order-card",
	MethodIdeal:     "demo-order-ideal",
	MethodWallet:    "demo-order-wallet",
	MethodSavedCard: "demo-order-saved-card",
}

var requiredMessages = map[string]string{
	MethodCard:      "token, amount, and currency are required",
	MethodIdeal:     "amount and currency are required",
	MethodWallet:    "token, amount, and currency are required",
	MethodSavedCard: "sourceId, amount, and currency are required",
}

// Gateway creates payments on the external payment API.
type Gateway interface {
	CreatePayment(ctx context.Context, payload *models.GatewayPaymentRequest) (models.PaymentResult, error)
}

// Merchant holds the server side identifiers merged into every gateway request.
type Merchant struct {
	ProcessingChannel string
	SuccessURL        string
	FailureURL        string
}

// PaymentService validates client payment requests and forwards them to the gateway
type PaymentService struct {
	tracer   trace.Tracer
	gateway  Gateway
	merchant Merchant
	validate *validator.Validate
}

// NewPaymentService creates a new payment service
func NewPaymentService(tracer trace.Tracer, gateway Gateway, merchant Merchant) *PaymentService {
	return &PaymentService{
		tracer:   tracer,
		gateway:  gateway,
		merchant: merchant,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// ProcessCard charges a tokenized card.
func (s *PaymentService) ProcessCard(ctx context.Context, req *models.CardPaymentRequest) (models.PaymentResult, error) {
	if err := s.check(MethodCard, req); err != nil {
		return nil, err
	}
	return s.forward(ctx, MethodCard, &models.GatewayPaymentRequest{
		Source:    models.GatewaySource{Type: "token", Token: req.Token},
		Amount:    req.Amount,
		Currency:  req.Currency,
		Reference: req.Reference,
		Capture:   capture(),
	})
}

// ProcessIdeal starts an iDEAL payment. The gateway answers with a redirect
// link the shopper has to follow.
func (s *PaymentService) ProcessIdeal(ctx context.Context, req *models.IdealPaymentRequest) (models.PaymentResult, error) {
	if err := s.check(MethodIdeal, req); err != nil {
		return nil, err
	}
	if req.Currency != idealCurrency {
		return nil, &ValidationError{Method: MethodIdeal, Message: "iDEAL requires EUR currency"}
	}

	description := req.Description
	if description == "" {
		description = defaultIdealDescription
	}

	return s.forward(ctx, MethodIdeal, &models.GatewayPaymentRequest{
		Source:      models.GatewaySource{Type: "ideal"},
		Amount:      req.Amount,
		Currency:    req.Currency,
		Reference:   req.Reference,
		Description: description,
		PaymentType: "Regular",
		SuccessURL:  s.merchant.SuccessURL,
		FailureURL:  s.merchant.FailureURL,
	})
}

// ProcessWallet charges a wallet token.
func (s *PaymentService) ProcessWallet(ctx context.Context, req *models.WalletPaymentRequest) (models.PaymentResult, error) {
	if err := s.check(MethodWallet, req); err != nil {
		return nil, err
	}
	return s.forward(ctx, MethodWallet, &models.GatewayPaymentRequest{
		Source:    models.GatewaySource{Type: "token", Token: req.Token},
		Amount:    req.Amount,
		Currency:  req.Currency,
		Reference: req.Reference,
		Capture:   capture(),
	})
}

// ProcessSavedCard charges a card source stored by a previous payment.
func (s *PaymentService) ProcessSavedCard(ctx context.Context, req *models.SavedCardPaymentRequest) (models.PaymentResult, error) {
	if err := s.check(MethodSavedCard, req); err != nil {
		return nil, err
	}
	return s.forward(ctx, MethodSavedCard, &models.GatewayPaymentRequest{
		Source:    models.GatewaySource{Type: "id", ID: req.SourceID},
		Amount:    req.Amount,
		Currency:  req.Currency,
		Reference: req.Reference,
		Capture:   capture(),
	})
}

func (s *PaymentService) check(method string, req any) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	// Missing fields win over a malformed currency.
	for _, fe := range fieldErrs {
		if fe.Tag() == "iso4217" {
			continue
		}
		return &ValidationError{Method: method, Message: requiredMessages[method]}
	}
	return &ValidationError{Method: method, Message: "currency must be an ISO 4217 code"}
}

func (s *PaymentService) forward(ctx context.Context, method string, payload *models.GatewayPaymentRequest) (models.PaymentResult, error) {
	ctx, span := s.tracer.Start(ctx, "forward_payment")
	defer span.End()

	payload.ProcessingChannelID = s.merchant.ProcessingChannel
	if payload.Reference == "" {
		payload.Reference = defaultReferences[method]
	}

	span.SetAttributes(
		attribute.String("payment.method", method),
		attribute.Int64("payment.amount", payload.Amount),
		attribute.String("payment.currency", payload.Currency),
		attribute.String("payment.reference", payload.Reference),
	)

	logger := logging.WithTraceContext(span)
	logger.Info("Forwarding payment",
		zap.String("payment_method", method),
		zap.Any("payload", MaskPayload(*payload)),
	)

	result, err := s.gateway.CreatePayment(ctx, payload)
	if err != nil {
		fields := []zap.Field{
			zap.Error(err),
			zap.String("payment_method", method),
			zap.String("reference", payload.Reference),
		}
		var gwErr *GatewayError
		if errors.As(err, &gwErr) {
			fields = append(fields,
				zap.String("request_id", gwErr.RequestID),
				zap.Strings("error_codes", gwErr.Codes),
			)
		}
		logger.Error("Payment failed", fields...)

		s.recordPayment(ctx, method, payload, "failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.recordPayment(ctx, method, payload, "success")
	monitoring.PaymentAmount.Record(ctx, payload.Amount,
		metric.WithAttributes(
			attribute.String("currency", payload.Currency),
			attribute.String("payment_method", method),
		),
	)
	span.SetAttributes(attribute.String("payment.status", "forwarded"))

	return result, nil
}

func (s *PaymentService) recordPayment(ctx context.Context, method string, payload *models.GatewayPaymentRequest, status string) {
	monitoring.PaymentCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("currency", payload.Currency),
			attribute.String("payment_method", method),
			attribute.String("status", status),
		),
	)
}

// MaskPayload returns a copy of payload that is safe to log.
func MaskPayload(payload models.GatewayPaymentRequest) models.GatewayPaymentRequest {
	if payload.Source.Token != "" {
		payload.Source.Token = maskedValue
	}
	return payload
}

func capture() *bool {
	v := true
	return &v
}
