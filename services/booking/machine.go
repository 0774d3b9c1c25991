// Package booking drives the provider-side reservation protocol:
// SEARCH -> SELECT -> HOLD -> PAY -> CONFIRM. The engine advances a session's
// transaction as far as it can in one turn and reports where it stopped.
package booking

import (
	"context"
	"strconv"
	"strings"
	"time"

	"busmitra/models"
	"busmitra/services/provider"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Outcome tells the orchestrator where the machine stopped and why.
type Outcome struct {
	// AwaitSelection means the user must pick one of Options.
	AwaitSelection bool
	Options        []models.TripOption

	// NeedPaymentMethod means the machine is parked at PAY until the
	// payment_method slot is filled.
	NeedPaymentMethod bool

	// Confirmation is set when the booking reached DONE.
	Confirmation *models.ConfirmationPayload

	// Failed marks a terminal business failure (no availability, declined
	// payment). No human handoff is needed.
	Failed     bool
	FailReason models.FailReason

	// Escalate marks a condition the agent cannot resolve autonomously.
	Escalate       bool
	EscalateReason models.EscalationReason
}

// Engine executes protocol steps. All provider calls go through the adapter,
// which already retries transient failures; an error surfacing here is final.
type Engine struct {
	provider provider.Adapter
	payments PaymentHandler
	logger   *zap.Logger

	// riskCeiling is the largest amount in rupees the agent may charge
	// without a human sign-off.
	riskCeiling int

	now      func() time.Time
	newToken func() string
}

func NewEngine(adapter provider.Adapter, payments PaymentHandler, riskCeilingINR int, logger *zap.Logger) *Engine {
	return &Engine{
		provider:    adapter,
		payments:    payments,
		logger:      logger,
		riskCeiling: riskCeilingINR,
		now:         time.Now,
		newToken:    uuid.NewString,
	}
}

// Step advances the session's transaction until it blocks on user input,
// completes, fails, or needs escalation. autoSelect permits the engine to pick
// a trip on the user's behalf when the search yields exactly one match.
//
// Step mutates sess.Transaction in place; the caller persists the session.
func (e *Engine) Step(ctx context.Context, sess *models.Session, autoSelect bool) (Outcome, error) {
	if sess.Transaction == nil || !sess.Transaction.Open() {
		sess.Transaction = &models.BookingTransaction{
			State:     models.TxSearch,
			CreatedAt: e.now(),
		}
	}
	tx := sess.Transaction

	// Bounded: the only backward edges are the single hold redo and the
	// single expired-hold redo.
	for i := 0; i < 8; i++ {
		tx.UpdatedAt = e.now()

		switch tx.State {
		case models.TxSearch:
			outcome, cont, err := e.stepSearch(ctx, sess, tx)
			if !cont {
				return outcome, err
			}

		case models.TxSelect:
			outcome, cont := e.stepSelect(sess, tx, autoSelect)
			if !cont {
				return outcome, nil
			}

		case models.TxHold:
			outcome, cont, err := e.stepHold(ctx, sess, tx)
			if !cont {
				return outcome, err
			}

		case models.TxPay:
			outcome, cont, err := e.stepPay(ctx, sess, tx)
			if !cont {
				return outcome, err
			}

		case models.TxConfirm:
			return e.stepConfirm(ctx, sess, tx)

		default:
			return Outcome{}, NewProtocolError("step on terminal transaction state " + string(tx.State))
		}
	}
	return Outcome{}, NewProtocolError("protocol did not settle")
}

func (e *Engine) stepSearch(ctx context.Context, sess *models.Session, tx *models.BookingTransaction) (Outcome, bool, error) {
	q := provider.SearchQuery{
		Origin:      sess.Intent.Get(models.SlotOrigin),
		Destination: sess.Intent.Get(models.SlotDestination),
		Date:        sess.Intent.Get(models.SlotDate),
		TimeWindow:  sess.Intent.Get(models.SlotTimeWindow),
	}

	options, err := e.provider.Search(ctx, q)
	if err != nil {
		e.logger.Warn("trip search failed",
			zap.String("session", sess.ID), zap.Error(err))
		return Outcome{Escalate: true, EscalateReason: models.EscalateProviderFailure}, false, nil
	}

	options = filterByWindow(options, q.TimeWindow)
	options = filterByBudget(options, sess.Intent.Get(models.SlotBudget), e.passengerCount(sess))
	if len(options) == 0 {
		tx.State = models.TxFailed
		tx.FailReason = models.FailNoAvailability
		return Outcome{Failed: true, FailReason: models.FailNoAvailability}, false, nil
	}

	tx.Options = options
	tx.State = models.TxSelect
	return Outcome{}, true, nil
}

func (e *Engine) stepSelect(sess *models.Session, tx *models.BookingTransaction, autoSelect bool) (Outcome, bool) {
	if tx.SelectedTripID == "" {
		if autoSelect && len(tx.Options) == 1 {
			tx.SelectedTripID = tx.Options[0].ID
			e.logger.Info("auto-selected sole matching trip",
				zap.String("session", sess.ID), zap.String("trip", tx.SelectedTripID))
		} else {
			return Outcome{AwaitSelection: true, Options: tx.Options}, false
		}
	}

	trip, ok := findTrip(tx.Options, tx.SelectedTripID)
	if !ok {
		// Stale selection (options were refreshed underneath it).
		tx.SelectedTripID = ""
		return Outcome{AwaitSelection: true, Options: tx.Options}, false
	}

	passengers := e.passengerCount(sess)
	if trip.SeatsAvailable < passengers {
		tx.SelectedTripID = ""
		return Outcome{AwaitSelection: true, Options: tx.Options}, false
	}

	tx.AmountINR = trip.PriceINR * passengers
	tx.State = models.TxHold
	return Outcome{}, true
}

func (e *Engine) stepHold(ctx context.Context, sess *models.Session, tx *models.BookingTransaction) (Outcome, bool, error) {
	token := tx.Token("hold", e.newToken)
	hold, err := e.provider.Hold(ctx, tx.SelectedTripID, e.passengerCount(sess), token)
	if err != nil {
		if provider.IsBusiness(err) && tx.HoldAttempts < 1 {
			// Seats vanished between search and hold. Redo the search once
			// with fresh availability.
			tx.HoldAttempts++
			e.logger.Info("hold rejected, redoing search",
				zap.String("session", sess.ID), zap.String("reason", provider.BusinessReason(err)))
			e.resetToSearch(tx)
			return Outcome{}, true, nil
		}
		e.logger.Warn("hold failed",
			zap.String("session", sess.ID), zap.Error(err))
		return Outcome{Escalate: true, EscalateReason: models.EscalateProviderFailure}, false, nil
	}

	tx.Hold = hold
	tx.State = models.TxPay
	return Outcome{}, true, nil
}

func (e *Engine) stepPay(ctx context.Context, sess *models.Session, tx *models.BookingTransaction) (Outcome, bool, error) {
	// The hold has a hard provider-side deadline. Recheck against the wall
	// clock before charging: paying for an expired hold strands money.
	if tx.Hold == nil || tx.Hold.Expired(e.now()) {
		e.logger.Info("hold expired before payment, redoing search",
			zap.String("session", sess.ID))
		e.resetToSearch(tx)
		return Outcome{}, true, nil
	}

	if tx.AmountINR > e.riskCeiling {
		e.logger.Info("amount above risk ceiling, handing off",
			zap.String("session", sess.ID), zap.Int("amountInr", tx.AmountINR))
		return Outcome{Escalate: true, EscalateReason: models.EscalatePaymentRisk}, false, nil
	}

	method := sess.Intent.Get(models.SlotPaymentMethod)
	if method == "" {
		return Outcome{NeedPaymentMethod: true}, false, nil
	}

	result, err := e.payments.ProcessPayment(ctx, PaymentRequest{
		SessionID:        sess.ID,
		HoldRef:          tx.Hold.Ref,
		Method:           method,
		AmountINR:        tx.AmountINR,
		IdempotencyToken: tx.Token("pay", e.newToken),
	})
	if err != nil {
		if provider.IsBusiness(err) {
			// A decline is the issuer's answer, not a fault: release the
			// seats and stop. Never retried.
			e.cancelHold(ctx, sess, tx)
			tx.State = models.TxFailed
			tx.FailReason = models.FailPaymentDeclined
			return Outcome{Failed: true, FailReason: models.FailPaymentDeclined}, false, nil
		}
		e.logger.Warn("payment failed",
			zap.String("session", sess.ID), zap.Error(err))
		e.cancelHold(ctx, sess, tx)
		return Outcome{Escalate: true, EscalateReason: models.EscalateProviderFailure}, false, nil
	}

	tx.PaymentRef = result.PaymentRef
	tx.State = models.TxConfirm
	return Outcome{}, true, nil
}

func (e *Engine) stepConfirm(ctx context.Context, sess *models.Session, tx *models.BookingTransaction) (Outcome, error) {
	if tx.Hold == nil {
		// A prior confirm attempt failed and released the hold, with the
		// payment already captured. Nothing autonomous is safe here; stay
		// parked for reconciliation.
		e.logger.Error("confirm without a hold, payment needs reconciliation",
			zap.String("session", sess.ID), zap.String("paymentRef", tx.PaymentRef))
		return Outcome{Escalate: true, EscalateReason: models.EscalateProviderFailure}, nil
	}

	token := tx.Token("confirm", e.newToken)
	bookingRef, err := e.provider.Confirm(ctx, tx.Hold.Ref, tx.PaymentRef, token)
	if err != nil {
		// Money is captured but the ticket is not issued; only a human can
		// reconcile that.
		e.logger.Error("confirm failed after payment",
			zap.String("session", sess.ID), zap.String("paymentRef", tx.PaymentRef), zap.Error(err))
		e.cancelHold(ctx, sess, tx)
		return Outcome{Escalate: true, EscalateReason: models.EscalateProviderFailure}, nil
	}

	tx.BookingRef = bookingRef
	tx.State = models.TxDone

	trip, _ := findTrip(tx.Options, tx.SelectedTripID)
	e.logger.Info("booking confirmed",
		zap.String("session", sess.ID), zap.String("bookingRef", bookingRef), zap.Int("amountInr", tx.AmountINR))
	return Outcome{Confirmation: &models.ConfirmationPayload{
		BookingRef: bookingRef,
		Trip:       trip,
		Passengers: e.passengerCount(sess),
		TotalINR:   tx.AmountINR,
	}}, nil
}

// Abort tears down an open transaction: any live hold is released and the
// transaction is marked failed. Used when an operator cancels a session.
func (e *Engine) Abort(ctx context.Context, sess *models.Session) {
	tx := sess.Transaction
	if tx == nil || !tx.Open() {
		return
	}
	e.cancelHold(ctx, sess, tx)
	tx.State = models.TxFailed
	tx.UpdatedAt = e.now()
}

// resetToSearch rewinds a transaction for a fresh availability pass. Tokens
// for the abandoned hold/pay attempts are discarded; the next attempt is a new
// logical operation.
func (e *Engine) resetToSearch(tx *models.BookingTransaction) {
	tx.Options = nil
	tx.SelectedTripID = ""
	tx.Hold = nil
	tx.AmountINR = 0
	delete(tx.IdempotencyTokens, "hold")
	delete(tx.IdempotencyTokens, "pay")
	tx.State = models.TxSearch
}

// cancelHold releases the provider hold, at most once. Failures are logged
// and left to natural expiry.
func (e *Engine) cancelHold(ctx context.Context, sess *models.Session, tx *models.BookingTransaction) {
	if tx.Hold == nil {
		return
	}
	if err := e.provider.CancelHold(ctx, tx.Hold.Ref); err != nil {
		e.logger.Warn("cancel hold failed, relying on expiry",
			zap.String("session", sess.ID), zap.String("holdRef", tx.Hold.Ref), zap.Error(err))
	}
	tx.Hold = nil
}

func (e *Engine) passengerCount(sess *models.Session) int {
	n, err := strconv.Atoi(sess.Intent.Get(models.SlotPassengerCount))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func findTrip(options []models.TripOption, id string) (models.TripOption, bool) {
	for _, o := range options {
		if o.ID == id {
			return o, true
		}
	}
	return models.TripOption{}, false
}

// filterByWindow keeps trips departing inside an "HH:MM-HH:MM" window.
// 24-hour departure strings compare lexically.
func filterByWindow(options []models.TripOption, window string) []models.TripOption {
	parts := strings.SplitN(window, "-", 2)
	if window == "" || len(parts) != 2 {
		return options
	}
	from, to := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])

	var out []models.TripOption
	for _, o := range options {
		if o.DepartureTime >= from && o.DepartureTime <= to {
			out = append(out, o)
		}
	}
	return out
}

// filterByBudget keeps trips whose total fare for the party fits the budget in
// rupees. An empty or unparseable budget keeps all trips.
func filterByBudget(options []models.TripOption, budget string, passengers int) []models.TripOption {
	limit, err := strconv.Atoi(strings.TrimSpace(budget))
	if err != nil || limit <= 0 {
		return options
	}

	var out []models.TripOption
	for _, o := range options {
		if o.PriceINR*passengers <= limit {
			out = append(out, o)
		}
	}
	return out
}
