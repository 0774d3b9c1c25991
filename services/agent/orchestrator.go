// Package agent orchestrates one conversation turn end to end: lock the
// session, extract intent, merge slots, run the booking protocol, decide
// whether a human needs to take over, persist, reply.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"busmitra/models"
	"busmitra/services/booking"
	"busmitra/services/dialogue"
	"busmitra/services/escalation"
	"busmitra/services/intent"
	"busmitra/services/session"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// lockRetryDelay is the single backoff before a contended turn is rejected.
const lockRetryDelay = 150 * time.Millisecond

// --- Service Implementation ---
type DefaultAgentService struct {
	store      session.Store
	extractor  intent.Extractor
	dialogue   dialogue.Manager
	engine     *booking.Engine
	escalation escalation.Service
	policy     escalation.Policy
	archiver   Archiver
	logger     *zap.Logger
	now        func() time.Time
}

func NewService(
	store session.Store,
	extractor intent.Extractor,
	dlg dialogue.Manager,
	engine *booking.Engine,
	esc escalation.Service,
	policy escalation.Policy,
	archiver Archiver,
	logger *zap.Logger,
) *DefaultAgentService {
	return &DefaultAgentService{
		store:      store,
		extractor:  extractor,
		dialogue:   dlg,
		engine:     engine,
		escalation: esc,
		policy:     policy,
		archiver:   archiver,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *DefaultAgentService) Chat(ctx context.Context, req models.AgentRequest) (*models.AgentResponse, error) {
	id := req.SessionID
	if id == "" {
		id = uuid.NewString()
	}

	release, err := s.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := s.store.Get(ctx, id)
	if errors.Is(err, session.ErrNotFound) {
		sess = models.NewSession(id)
	} else if err != nil {
		return nil, err
	}
	sess.Intent.EnsureMaps()

	if sess.Status.Terminal() {
		return &models.AgentResponse{
			SessionID: id,
			Kind:      models.KindStatus,
			Text:      "This conversation has ended. Start a new session to book another ticket.",
		}, nil
	}

	resp, candidate, err := s.takeTurn(ctx, sess, req.Text)
	if err != nil {
		return nil, err
	}

	sess.Turns = append(sess.Turns, models.Turn{
		Utterance: req.Text,
		Intent:    candidate,
		Response:  resp.Text,
		At:        s.now(),
	})
	sess.UpdatedAt = s.now()

	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	s.archiveIfTerminal(sess)
	return resp, nil
}

func (s *DefaultAgentService) takeTurn(ctx context.Context, sess *models.Session, text string) (*models.AgentResponse, models.CandidateIntent, error) {
	// An escalated session belongs to the operator until the ticket is
	// resolved; the agent only acknowledges.
	if sess.Status == models.SessionAwaitingHuman {
		return &models.AgentResponse{
			SessionID: sess.ID,
			Kind:      models.KindStatus,
			Text:      "An operator is looking at your booking and will continue from here.",
			TicketID:  sess.ActiveTicketID,
		}, models.CandidateIntent{}, nil
	}

	candidate := s.extractor.Extract(ctx, text, sess)

	if s.policy.UserRequested(candidate) {
		resp, err := s.raise(ctx, sess, models.EscalateUserRequested)
		return resp, candidate, err
	}

	// A SELECT turn: map the user's choice onto the presented options.
	if tx := sess.Transaction; tx.Open() && tx.State == models.TxSelect && candidate.SelectedOption != "" {
		tripID, ok := resolveSelection(tx.Options, candidate.SelectedOption)
		if !ok {
			resp := &models.AgentResponse{
				SessionID: sess.ID,
				Kind:      models.KindStatus,
				Text:      "I couldn't match that to one of the options. Please reply with the option number.",
				Options:   tx.Options,
			}
			return resp, candidate, nil
		}
		tx.SelectedTripID = tripID
	}

	merged, action := s.dialogue.Merge(sess.Intent, candidate, s.now())
	sess.Intent = merged

	if action.Kind == dialogue.ActionAskClarification || action.Kind == dialogue.ActionConfirmAmbiguous {
		if s.policy.ClarifyExhausted(merged, action.Slot) {
			resp, err := s.raise(ctx, sess, models.EscalateLowConfidence)
			return resp, candidate, err
		}
		sess.Status = models.SessionAwaitingClarification
		resp := &models.AgentResponse{
			SessionID: sess.ID,
			Kind:      models.KindClarification,
			Text:      action.Question,
			Slot:      action.Slot,
		}
		return resp, candidate, nil
	}

	resp, err := s.advance(ctx, sess)
	return resp, candidate, err
}

// advance runs the booking engine and translates its outcome into a reply.
func (s *DefaultAgentService) advance(ctx context.Context, sess *models.Session) (*models.AgentResponse, error) {
	out, err := s.engine.Step(ctx, sess, true)
	if err != nil {
		return nil, err
	}

	switch {
	case out.AwaitSelection:
		sess.Status = models.SessionActive
		return &models.AgentResponse{
			SessionID: sess.ID,
			Kind:      models.KindStatus,
			Text:      renderOptions(out.Options),
			Options:   out.Options,
		}, nil

	case out.NeedPaymentMethod:
		slot := models.SlotPaymentMethod
		sess.Intent.ClarifyCount[slot]++
		if s.policy.ClarifyExhausted(sess.Intent, slot) {
			return s.raise(ctx, sess, models.EscalateLowConfidence)
		}
		sess.Status = models.SessionAwaitingClarification
		return &models.AgentResponse{
			SessionID: sess.ID,
			Kind:      models.KindClarification,
			Text:      dialogue.ClarifyQuestion(slot),
			Slot:      slot,
		}, nil

	case out.Confirmation != nil:
		sess.Status = models.SessionCompleted
		c := out.Confirmation
		return &models.AgentResponse{
			SessionID: sess.ID,
			Kind:      models.KindConfirmation,
			Text: fmt.Sprintf("Your booking is confirmed. %s %s departing %s, %d passenger(s), total ₹%d. Booking reference: %s.",
				c.Trip.Operator, c.Trip.BusType, c.Trip.DepartureTime, c.Passengers, c.TotalINR, c.BookingRef),
			Confirmation: c,
		}, nil

	case out.Failed:
		sess.Status = models.SessionActive
		return &models.AgentResponse{
			SessionID: sess.ID,
			Kind:      models.KindStatus,
			Text:      failureText(out.FailReason),
			Reason:    string(out.FailReason),
		}, nil

	case out.Escalate:
		return s.raise(ctx, sess, out.EscalateReason)
	}
	return nil, booking.NewProtocolError("engine returned an empty outcome")
}

func (s *DefaultAgentService) raise(ctx context.Context, sess *models.Session, reason models.EscalationReason) (*models.AgentResponse, error) {
	ticket, err := s.escalation.Raise(ctx, sess, reason)
	if err != nil {
		return nil, err
	}
	return &models.AgentResponse{
		SessionID: sess.ID,
		Kind:      models.KindEscalation,
		Text:      "I'm connecting you with a human operator who will take it from here.",
		TicketID:  ticket.ID,
		Reason:    string(reason),
	}, nil
}

func (s *DefaultAgentService) ResolveTicket(ctx context.Context, event models.ResolutionEvent) (*models.AgentResponse, error) {
	ticket, err := s.escalation.Ticket(ctx, event.TicketID)
	if err != nil {
		return nil, err
	}
	if ticket.Resolved {
		return nil, errors.New("ticket is already resolved")
	}

	release, err := s.acquire(ctx, ticket.SessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := s.store.Get(ctx, ticket.SessionID)
	if errors.Is(err, session.ErrNotFound) {
		// The session expired while waiting; close the ticket out anyway.
		if err := s.escalation.MarkResolved(ctx, event.TicketID); err != nil {
			return nil, err
		}
		return &models.AgentResponse{
			SessionID: ticket.SessionID,
			Kind:      models.KindStatus,
			Text:      "The session expired before resolution.",
		}, nil
	} else if err != nil {
		return nil, err
	}
	sess.Intent.EnsureMaps()

	for name, value := range event.IntentOverride {
		sess.Intent.Slots[name] = models.SlotValue{
			Value:      value,
			Confidence: 1,
			Provenance: models.ProvenanceUser,
			UpdatedAt:  s.now(),
		}
		delete(sess.Intent.Pending, name)
		sess.Intent.ClarifyCount[name] = 0
	}

	if err := s.escalation.MarkResolved(ctx, event.TicketID); err != nil {
		return nil, err
	}
	sess.ActiveTicketID = ""

	var resp *models.AgentResponse
	switch {
	case event.Cancel:
		s.engine.Abort(ctx, sess)
		sess.Status = models.SessionAbandoned
		resp = &models.AgentResponse{
			SessionID: sess.ID,
			Kind:      models.KindStatus,
			Text:      "The booking was cancelled by an operator.",
		}

	case event.ResumeBooking:
		sess.Status = models.SessionActive
		merged, action := s.dialogue.Merge(sess.Intent, models.CandidateIntent{}, s.now())
		sess.Intent = merged
		if action.Kind == dialogue.ActionProceedToBooking {
			resp, err = s.advance(ctx, sess)
			if err != nil {
				return nil, err
			}
		} else {
			// Operator resumed without all required slots; ask the user
			// rather than searching with holes in the query.
			sess.Status = models.SessionAwaitingClarification
			resp = &models.AgentResponse{
				SessionID: sess.ID,
				Kind:      models.KindClarification,
				Text:      action.Question,
				Slot:      action.Slot,
			}
		}

	default:
		sess.Status = models.SessionActive
		resp = &models.AgentResponse{
			SessionID: sess.ID,
			Kind:      models.KindStatus,
			Text:      "An operator has updated your booking details. How would you like to continue?",
		}
	}

	sess.UpdatedAt = s.now()
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	s.archiveIfTerminal(sess)
	return resp, nil
}

func (s *DefaultAgentService) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	return s.store.Get(ctx, sessionID)
}

func (s *DefaultAgentService) EndSession(ctx context.Context, sessionID string) error {
	release, err := s.acquire(ctx, sessionID)
	if err != nil {
		return err
	}
	defer release()

	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.Status.Terminal() {
		return nil
	}

	s.engine.Abort(ctx, sess)
	sess.Status = models.SessionAbandoned
	sess.UpdatedAt = s.now()
	if err := s.store.Save(ctx, sess); err != nil {
		return err
	}
	s.archiveIfTerminal(sess)
	return nil
}

// acquire takes the per-session turn lock, retrying once so a turn landing
// just as the previous one finishes doesn't bounce.
func (s *DefaultAgentService) acquire(ctx context.Context, sessionID string) (func(), error) {
	release, err := s.store.Acquire(ctx, sessionID)
	if err == nil {
		return release, nil
	}
	if !errors.Is(err, session.ErrLocked) {
		return nil, err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(lockRetryDelay):
	}
	return s.store.Acquire(ctx, sessionID)
}

func (s *DefaultAgentService) archiveIfTerminal(sess *models.Session) {
	if s.archiver == nil || !sess.Status.Terminal() {
		return
	}
	if err := s.archiver.EnqueueArchive(sess.ID); err != nil {
		s.logger.Warn("failed to enqueue session archive",
			zap.String("session", sess.ID), zap.Error(err))
	}
}

// resolveSelection maps a user's choice (an option number, a trip ID or a
// route code) onto a trip ID.
func resolveSelection(options []models.TripOption, choice string) (string, bool) {
	choice = strings.TrimSpace(choice)
	if n, err := strconv.Atoi(choice); err == nil {
		if n >= 1 && n <= len(options) {
			return options[n-1].ID, true
		}
		return "", false
	}
	for _, o := range options {
		if strings.EqualFold(o.ID, choice) ||
			(o.TripCode != "" && strings.EqualFold(o.TripCode, choice)) ||
			(o.RouteCode != "" && strings.EqualFold(o.RouteCode, choice)) {
			return o.ID, true
		}
	}
	return "", false
}

func renderOptions(options []models.TripOption) string {
	var b strings.Builder
	b.WriteString("Here are the available buses. Reply with the option number:\n")
	for i, o := range options {
		fmt.Fprintf(&b, "%d. %s %s, departs %s", i+1, o.Operator, o.BusType, o.DepartureTime)
		if o.ArrivalTime != "" {
			fmt.Fprintf(&b, ", arrives %s", o.ArrivalTime)
		}
		fmt.Fprintf(&b, " (₹%d per seat, %d seats left)\n", o.PriceINR, o.SeatsAvailable)
	}
	return strings.TrimRight(b.String(), "\n")
}

func failureText(reason models.FailReason) string {
	switch reason {
	case models.FailNoAvailability:
		return "No buses are available for that route and date. Would you like to try a different date or time?"
	case models.FailPaymentDeclined:
		return "The payment was declined and the seats were released. You can try again with a different payment method."
	}
	return "The booking could not be completed."
}
