package provider

import (
	"context"
	"time"

	"busmitra/models"

	"go.uber.org/zap"
)

// RetryingAdapter decorates an Adapter with bounded exponential backoff on
// transient failures. Business rejections pass straight through: a declined
// payment or refused hold is never retried. Because mutating calls carry the
// caller's idempotency token, a retry after a timeout cannot double an effect.
type RetryingAdapter struct {
	Inner       Adapter
	MaxAttempts int
	BackoffBase time.Duration
	Logger      *zap.Logger
}

// NewRetryingAdapter wraps inner with the given retry budget.
func NewRetryingAdapter(inner Adapter, maxAttempts int, backoffBase time.Duration, logger *zap.Logger) *RetryingAdapter {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &RetryingAdapter{
		Inner:       inner,
		MaxAttempts: maxAttempts,
		BackoffBase: backoffBase,
		Logger:      logger,
	}
}

func (r *RetryingAdapter) retry(ctx context.Context, op string, call func() error) error {
	var err error
	for attempt := 1; attempt <= r.MaxAttempts; attempt++ {
		err = call()
		if err == nil || !IsTransient(err) {
			return err
		}
		if attempt == r.MaxAttempts {
			break
		}
		backoff := r.BackoffBase << (attempt - 1)
		r.Logger.Warn("provider call failed, backing off",
			zap.String("op", op), zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff), zap.Error(err))
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return NewTransientError(op, ctx.Err())
		}
	}
	return err
}

func (r *RetryingAdapter) Search(ctx context.Context, q SearchQuery) ([]models.TripOption, error) {
	var out []models.TripOption
	err := r.retry(ctx, "search", func() error {
		var callErr error
		out, callErr = r.Inner.Search(ctx, q)
		return callErr
	})
	return out, err
}

func (r *RetryingAdapter) Hold(ctx context.Context, tripID string, passengers int, token string) (*models.HoldResult, error) {
	var out *models.HoldResult
	err := r.retry(ctx, "hold", func() error {
		var callErr error
		out, callErr = r.Inner.Hold(ctx, tripID, passengers, token)
		return callErr
	})
	return out, err
}

func (r *RetryingAdapter) Pay(ctx context.Context, holdRef, method string, amountINR int, token string) (string, error) {
	var out string
	err := r.retry(ctx, "pay", func() error {
		var callErr error
		out, callErr = r.Inner.Pay(ctx, holdRef, method, amountINR, token)
		return callErr
	})
	return out, err
}

func (r *RetryingAdapter) Confirm(ctx context.Context, holdRef, paymentRef, token string) (string, error) {
	var out string
	err := r.retry(ctx, "confirm", func() error {
		var callErr error
		out, callErr = r.Inner.Confirm(ctx, holdRef, paymentRef, token)
		return callErr
	})
	return out, err
}

// CancelHold is best-effort and tried only once.
func (r *RetryingAdapter) CancelHold(ctx context.Context, holdRef string) error {
	return r.Inner.CancelHold(ctx, holdRef)
}
