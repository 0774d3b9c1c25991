package models

import "time"

// TxState is a state of the booking protocol.
type TxState string

const (
	TxSearch  TxState = "SEARCH"
	TxSelect  TxState = "SELECT"
	TxHold    TxState = "HOLD"
	TxPay     TxState = "PAY"
	TxConfirm TxState = "CONFIRM"
	TxDone    TxState = "DONE"
	TxFailed  TxState = "FAILED"
)

// FailReason explains a FAILED transaction.
type FailReason string

const (
	FailNoAvailability  FailReason = "NO_AVAILABILITY"
	FailPaymentDeclined FailReason = "PAYMENT_DECLINED"
	FailProviderFailure FailReason = "PROVIDER_FAILURE"
)

// BookingTransaction is the open multi-step transaction on a session.
type BookingTransaction struct {
	State          TxState      `json:"state"`
	Options        []TripOption `json:"options,omitempty"`
	SelectedTripID string       `json:"selectedTripId,omitempty"`
	Hold           *HoldResult  `json:"hold,omitempty"`
	PaymentRef     string       `json:"paymentRef,omitempty"`
	BookingRef     string       `json:"bookingRef,omitempty"`
	FailReason     FailReason   `json:"failReason,omitempty"`

	// AmountINR is seats × per-seat fare for the selected trip.
	AmountINR int `json:"amountInr,omitempty"`

	// IdempotencyTokens holds one caller-generated token per mutating
	// provider call ("hold", "pay", "confirm"). A token is generated before
	// the first attempt and reused on every retry so a timed-out call that
	// actually landed server-side cannot duplicate its effect.
	IdempotencyTokens map[string]string `json:"idempotencyTokens,omitempty"`

	// HoldAttempts counts hold failures that triggered a search/select redo.
	HoldAttempts int `json:"holdAttempts,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Open reports whether the transaction is still in flight.
func (t *BookingTransaction) Open() bool {
	if t == nil {
		return false
	}
	return t.State != TxDone && t.State != TxFailed
}

// Token returns the idempotency token for an operation, minting it on first use
// with the supplied generator.
func (t *BookingTransaction) Token(op string, mint func() string) string {
	if t.IdempotencyTokens == nil {
		t.IdempotencyTokens = make(map[string]string)
	}
	if tok, ok := t.IdempotencyTokens[op]; ok {
		return tok
	}
	tok := mint()
	t.IdempotencyTokens[op] = tok
	return tok
}
