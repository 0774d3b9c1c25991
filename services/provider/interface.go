package provider

import (
	"busmitra/models"
	"context"
)

// SearchQuery carries the filled slots a trip search needs.
type SearchQuery struct {
	Origin      string
	Destination string
	Date        string // DD/MM/YYYY, the reservation backend's format
	TimeWindow  string // optional "HH:MM-HH:MM" departure window
}

// Adapter abstracts the state transport corporation's reservation backend.
// Every mutating call takes a caller-generated idempotency token; issuing the
// same call twice with one token must have at most one provider-side effect.
type Adapter interface {
	// Search returns matching services; an empty slice is a valid result.
	Search(ctx context.Context, q SearchQuery) ([]models.TripOption, error)
	// Hold places a time-limited seat reservation.
	Hold(ctx context.Context, tripID string, passengers int, token string) (*models.HoldResult, error)
	// Pay charges for a held reservation and returns a payment reference.
	Pay(ctx context.Context, holdRef, method string, amountINR int, token string) (string, error)
	// Confirm finalises a paid hold and returns the booking reference.
	Confirm(ctx context.Context, holdRef, paymentRef, token string) (string, error)
	// CancelHold releases a hold. Best-effort compensation: callers log
	// failures and rely on natural expiry.
	CancelHold(ctx context.Context, holdRef string) error
}
