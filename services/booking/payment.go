package booking

import (
	"context"
	"errors"
	"fmt"

	"busmitra/services/provider"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"go.uber.org/zap"
)

// PaymentRequest describes one charge for a held reservation.
type PaymentRequest struct {
	SessionID string
	HoldRef   string
	Method    string // "card" or "cash"
	AmountINR int
	// IdempotencyToken is reused on retries so a timed-out charge cannot
	// be taken twice.
	IdempotencyToken string
}

// PaymentResult carries the provider-side payment reference used at confirm.
type PaymentResult struct {
	PaymentRef string
	GatewayRef string
}

// --- Interfaces ---
type PaymentHandler interface {
	ProcessPayment(ctx context.Context, req PaymentRequest) (*PaymentResult, error)
}

// --- PaymentHandler Implementation ---
type UnifiedPaymentHandler struct {
	logger   *zap.Logger
	provider provider.Adapter
}

// NewPaymentHandler wires the handler over the provider adapter. Card charges
// go through the gateway first; cash is registered provider-side only.
func NewPaymentHandler(logger *zap.Logger, providerAdapter provider.Adapter) *UnifiedPaymentHandler {
	return &UnifiedPaymentHandler{
		logger:   logger,
		provider: providerAdapter,
	}
}

// ProcessPayment charges the passenger and records the payment against the
// hold. A gateway card decline surfaces as a provider business error so the
// state machine treats it like any other terminal decline.
func (h *UnifiedPaymentHandler) ProcessPayment(ctx context.Context, req PaymentRequest) (*PaymentResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, fmt.Errorf("invalid payment request: %w", err)
	}

	switch req.Method {
	case "card":
		return h.processCardPayment(ctx, req)
	case "cash":
		return h.processCashPayment(ctx, req)
	default:
		return nil, fmt.Errorf("unsupported payment method: %s", req.Method)
	}
}

func (h *UnifiedPaymentHandler) processCardPayment(ctx context.Context, req PaymentRequest) (*PaymentResult, error) {
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(int64(req.AmountINR) * 100), // paise
		Currency:    stripe.String(string(stripe.CurrencyINR)),
		Description: stripe.String("Bus reservation " + req.HoldRef),
	}
	params.AddMetadata("session_id", req.SessionID)
	params.AddMetadata("hold_ref", req.HoldRef)
	params.SetIdempotencyKey(req.IdempotencyToken)

	pi, err := paymentintent.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
			h.logger.Info("card payment declined",
				zap.String("session", req.SessionID), zap.String("code", string(stripeErr.Code)))
			return nil, provider.NewBusinessError("pay", "card declined: "+string(stripeErr.Code))
		}
		return nil, provider.NewTransientError("pay", err)
	}

	// Register the charge against the hold so the backend can reconcile.
	payRef, err := h.provider.Pay(ctx, req.HoldRef, "card:"+pi.ID, req.AmountINR, req.IdempotencyToken)
	if err != nil {
		return nil, err
	}

	h.logger.Info("Card payment successful",
		zap.String("session", req.SessionID), zap.String("paymentRef", payRef))
	return &PaymentResult{PaymentRef: payRef, GatewayRef: pi.ID}, nil
}

func (h *UnifiedPaymentHandler) processCashPayment(ctx context.Context, req PaymentRequest) (*PaymentResult, error) {
	// Cash at boarding: the provider records the obligation against the hold.
	payRef, err := h.provider.Pay(ctx, req.HoldRef, "cash", req.AmountINR, req.IdempotencyToken)
	if err != nil {
		return nil, err
	}

	h.logger.Info("Cash payment recorded",
		zap.String("session", req.SessionID), zap.String("paymentRef", payRef))
	return &PaymentResult{PaymentRef: payRef}, nil
}

// --- Validator ---
func validateRequest(req PaymentRequest) error {
	if req.AmountINR <= 0 {
		return errors.New("invalid payment amount")
	}
	if req.HoldRef == "" {
		return errors.New("missing hold reference")
	}
	if req.IdempotencyToken == "" {
		return errors.New("missing idempotency token")
	}
	if req.Method != "card" && req.Method != "cash" {
		return errors.New("unsupported method")
	}
	return nil
}
