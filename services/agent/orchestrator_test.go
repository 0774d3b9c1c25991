package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"busmitra/models"
	"busmitra/services/booking"
	"busmitra/services/dialogue"
	"busmitra/services/escalation"
	"busmitra/services/provider"
	"busmitra/services/session"

	"go.uber.org/zap"
)

// scriptedExtractor replays canned candidates, one per turn.
type scriptedExtractor struct {
	queue []models.CandidateIntent
}

func (s *scriptedExtractor) Extract(_ context.Context, _ string, _ *models.Session) models.CandidateIntent {
	if len(s.queue) == 0 {
		return models.CandidateIntent{}
	}
	c := s.queue[0]
	s.queue = s.queue[1:]
	return c
}

type fakeAdapter struct {
	options     []models.TripOption
	searchCalls int
	holdCalls   int
	cancelCalls int
}

func (f *fakeAdapter) Search(_ context.Context, _ provider.SearchQuery) ([]models.TripOption, error) {
	f.searchCalls++
	return f.options, nil
}

func (f *fakeAdapter) Hold(_ context.Context, _ string, _ int, _ string) (*models.HoldResult, error) {
	f.holdCalls++
	return &models.HoldResult{Ref: "HOLD-1", ExpiresAt: time.Now().Add(5 * time.Minute)}, nil
}

func (f *fakeAdapter) Pay(_ context.Context, _, _ string, _ int, _ string) (string, error) {
	return "PAY-1", nil
}

func (f *fakeAdapter) Confirm(_ context.Context, _, _, _ string) (string, error) {
	return "TN-BOOK-7", nil
}

func (f *fakeAdapter) CancelHold(_ context.Context, _ string) error {
	f.cancelCalls++
	return nil
}

type fakePayments struct{}

func (fakePayments) ProcessPayment(_ context.Context, _ booking.PaymentRequest) (*booking.PaymentResult, error) {
	return &booking.PaymentResult{PaymentRef: "PAY-1"}, nil
}

type memTicketRepo struct {
	tickets map[string]*models.EscalationTicket
}

func newMemTicketRepo() *memTicketRepo {
	return &memTicketRepo{tickets: make(map[string]*models.EscalationTicket)}
}

func (r *memTicketRepo) Create(_ context.Context, ticket models.EscalationTicket) (string, error) {
	id := fmt.Sprintf("tkt-%d", len(r.tickets)+1)
	ticket.ID = id
	r.tickets[id] = &ticket
	return id, nil
}

func (r *memTicketRepo) GetByID(_ context.Context, id string) (*models.EscalationTicket, error) {
	t, ok := r.tickets[id]
	if !ok {
		return nil, errors.New("ticket not found")
	}
	out := *t
	return &out, nil
}

func (r *memTicketRepo) ListOpen(_ context.Context) ([]models.EscalationTicket, error) {
	var out []models.EscalationTicket
	for _, t := range r.tickets {
		if !t.Resolved {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *memTicketRepo) MarkResolved(_ context.Context, id string) error {
	t, ok := r.tickets[id]
	if !ok {
		return errors.New("ticket not found")
	}
	t.Resolved = true
	return nil
}

type recordingArchiver struct {
	ids []string
}

func (a *recordingArchiver) EnqueueArchive(sessionID string) error {
	a.ids = append(a.ids, sessionID)
	return nil
}

type testRig struct {
	svc      *DefaultAgentService
	store    *session.MemoryStore
	repo     *memTicketRepo
	adapter  *fakeAdapter
	archiver *recordingArchiver
}

func newRig(adapter *fakeAdapter, cands ...models.CandidateIntent) *testRig {
	store := session.NewMemoryStore()
	repo := newMemTicketRepo()
	arch := &recordingArchiver{}
	logger := zap.NewNop()

	svc := NewService(
		store,
		&scriptedExtractor{queue: cands},
		dialogue.Manager{Threshold: 0.75, Margin: 0.1},
		booking.NewEngine(adapter, fakePayments{}, 5000, logger),
		escalation.NewService(repo, logger),
		escalation.Policy{MaxClarifyPerSlot: 2},
		arch,
		logger,
	)
	return &testRig{svc: svc, store: store, repo: repo, adapter: adapter, archiver: arch}
}

func slotCand(conf float64, pairs map[models.SlotName]string) models.CandidateIntent {
	c := models.CandidateIntent{
		Slots:   make(map[models.SlotName][]models.SlotCandidate),
		Overall: conf,
	}
	for name, value := range pairs {
		c.Slots[name] = []models.SlotCandidate{{Value: value, Confidence: conf}}
		c.ReferencedSlots = append(c.ReferencedSlots, name)
	}
	return c
}

var twoTrips = []models.TripOption{
	{ID: "T1", Operator: "TNSTC", BusType: "Ultra Deluxe", DepartureTime: "06:30", PriceINR: 450, SeatsAvailable: 12},
	{ID: "T2", Operator: "TNSTC", BusType: "AC Sleeper", DepartureTime: "21:30", PriceINR: 780, SeatsAvailable: 8},
}

func fullIntent() models.CandidateIntent {
	return slotCand(0.9, map[models.SlotName]string{
		models.SlotOrigin:         "Chennai",
		models.SlotDestination:    "Madurai",
		models.SlotDate:           "01/01/2030",
		models.SlotPassengerCount: "2",
	})
}

func chat(t *testing.T, rig *testRig, sessionID, text string) *models.AgentResponse {
	t.Helper()
	resp, err := rig.svc.Chat(context.Background(), models.AgentRequest{SessionID: sessionID, Text: text})
	if err != nil {
		t.Fatalf("Chat(%q): %v", text, err)
	}
	return resp
}

func TestChatFullBookingConversation(t *testing.T) {
	rig := newRig(&fakeAdapter{options: twoTrips},
		fullIntent(),
		models.CandidateIntent{SelectedOption: "2", Overall: 0.9},
		slotCand(0.9, map[models.SlotName]string{models.SlotPaymentMethod: "cash"}),
	)

	// Turn 1: everything but the trip choice, so the agent lists options.
	resp := chat(t, rig, "", "2 tickets chennai to madurai on 01/01/2030")
	if resp.Kind != models.KindStatus || len(resp.Options) != 2 {
		t.Fatalf("turn 1 = %+v, want options listing", resp)
	}
	id := resp.SessionID
	if id == "" {
		t.Fatal("no session ID minted")
	}

	// Turn 2: picks option 2; the agent holds seats and asks how to pay.
	resp = chat(t, rig, id, "the second one")
	if resp.Kind != models.KindClarification || resp.Slot != models.SlotPaymentMethod {
		t.Fatalf("turn 2 = %+v, want payment method prompt", resp)
	}
	if rig.adapter.holdCalls != 1 {
		t.Errorf("holdCalls = %d, want 1", rig.adapter.holdCalls)
	}

	// Turn 3: payment method arrives; the booking completes.
	resp = chat(t, rig, id, "cash")
	if resp.Kind != models.KindConfirmation || resp.Confirmation == nil {
		t.Fatalf("turn 3 = %+v, want confirmation", resp)
	}
	if resp.Confirmation.TotalINR != 1560 {
		t.Errorf("total = %d, want 1560 (780 x 2)", resp.Confirmation.TotalINR)
	}

	sess, err := rig.store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if sess.Status != models.SessionCompleted {
		t.Errorf("status = %s, want COMPLETED", sess.Status)
	}
	if len(sess.Turns) != 3 {
		t.Errorf("turns recorded = %d, want 3", len(sess.Turns))
	}
	if len(rig.archiver.ids) != 1 || rig.archiver.ids[0] != id {
		t.Errorf("archive enqueue = %v, want [%s]", rig.archiver.ids, id)
	}
}

func TestChatLowConfidenceEscalatesAfterTwoClarifications(t *testing.T) {
	vague := func() models.CandidateIntent {
		c := fullIntent()
		c.Slots[models.SlotDestination] = []models.SlotCandidate{{Value: "Tiruch", Confidence: 0.4}}
		return c
	}
	rig := newRig(&fakeAdapter{options: twoTrips},
		vague(),
		slotCand(0.4, map[models.SlotName]string{models.SlotDestination: "Tiruch"}),
		slotCand(0.4, map[models.SlotName]string{models.SlotDestination: "Tiruch"}),
		models.CandidateIntent{},
	)

	resp := chat(t, rig, "", "2 tickets from chennai to tiruch on 01/01/2030")
	id := resp.SessionID
	if resp.Kind != models.KindClarification || resp.Slot != models.SlotDestination {
		t.Fatalf("turn 1 = %+v, want destination clarification", resp)
	}

	resp = chat(t, rig, id, "tiruch")
	if resp.Kind != models.KindClarification {
		t.Fatalf("turn 2 = %+v, want second clarification", resp)
	}

	// Third failure to pin the slot down: hand off instead of looping.
	resp = chat(t, rig, id, "tiruch")
	if resp.Kind != models.KindEscalation || resp.Reason != string(models.EscalateLowConfidence) {
		t.Fatalf("turn 3 = %+v, want LOW_CONFIDENCE escalation", resp)
	}
	if resp.TicketID == "" {
		t.Fatal("no ticket created")
	}

	sess, _ := rig.store.Get(context.Background(), id)
	if sess.Status != models.SessionAwaitingHuman {
		t.Errorf("status = %s, want AWAITING_HUMAN", sess.Status)
	}

	// Further turns are acknowledged, not processed.
	resp = chat(t, rig, id, "hello?")
	if resp.Kind != models.KindStatus || resp.TicketID == "" {
		t.Fatalf("turn 4 = %+v, want parked acknowledgment", resp)
	}
	if rig.adapter.searchCalls != 0 {
		t.Errorf("searchCalls = %d, booking must not run while escalated", rig.adapter.searchCalls)
	}
}

func TestChatUserAsksForHuman(t *testing.T) {
	rig := newRig(&fakeAdapter{options: twoTrips},
		models.CandidateIntent{WantsHuman: true, Overall: 0.95},
	)

	resp := chat(t, rig, "", "let me talk to a person")
	if resp.Kind != models.KindEscalation || resp.Reason != string(models.EscalateUserRequested) {
		t.Fatalf("resp = %+v, want USER_REQUESTED escalation", resp)
	}

	open, _ := rig.repo.ListOpen(context.Background())
	if len(open) != 1 || open[0].Reason != models.EscalateUserRequested {
		t.Fatalf("open tickets = %+v", open)
	}
}

func TestResolveTicketResumesBooking(t *testing.T) {
	vague := fullIntent()
	vague.Slots[models.SlotDestination] = []models.SlotCandidate{{Value: "Tiruch", Confidence: 0.4}}
	vague.Slots[models.SlotPaymentMethod] = []models.SlotCandidate{{Value: "cash", Confidence: 0.9}}

	oneTrip := []models.TripOption{twoTrips[0]}
	rig := newRig(&fakeAdapter{options: oneTrip},
		vague,
		slotCand(0.4, map[models.SlotName]string{models.SlotDestination: "Tiruch"}),
		slotCand(0.4, map[models.SlotName]string{models.SlotDestination: "Tiruch"}),
	)

	resp := chat(t, rig, "", "2 to tiruch on 01/01/2030, cash")
	id := resp.SessionID
	chat(t, rig, id, "tiruch")
	resp = chat(t, rig, id, "tiruch")
	if resp.Kind != models.KindEscalation {
		t.Fatalf("expected escalation, got %+v", resp)
	}

	// Operator fixes the destination and resumes. The sole matching trip is
	// auto-selected and the booking runs to confirmation.
	out, err := rig.svc.ResolveTicket(context.Background(), models.ResolutionEvent{
		TicketID:       resp.TicketID,
		IntentOverride: map[models.SlotName]string{models.SlotDestination: "Tiruchirappalli"},
		ResumeBooking:  true,
	})
	if err != nil {
		t.Fatalf("ResolveTicket: %v", err)
	}
	if out.Kind != models.KindConfirmation || out.Confirmation == nil {
		t.Fatalf("resolution = %+v, want confirmation", out)
	}

	ticket, _ := rig.repo.GetByID(context.Background(), resp.TicketID)
	if !ticket.Resolved {
		t.Error("ticket not marked resolved")
	}
	sess, _ := rig.store.Get(context.Background(), id)
	if sess.Status != models.SessionCompleted {
		t.Errorf("status = %s, want COMPLETED", sess.Status)
	}
	if sess.ActiveTicketID != "" {
		t.Error("active ticket not cleared")
	}
}

func TestResolveTicketOverrideOnFirstTurnEscalation(t *testing.T) {
	// Escalating on the very first turn means no clarification was ever
	// asked, so the stored intent has empty maps that the JSON round trip
	// through the store drops entirely.
	rig := newRig(&fakeAdapter{options: twoTrips},
		models.CandidateIntent{WantsHuman: true, Overall: 0.95},
	)
	resp := chat(t, rig, "", "operator please")
	if resp.Kind != models.KindEscalation {
		t.Fatalf("turn 1 = %+v, want escalation", resp)
	}

	out, err := rig.svc.ResolveTicket(context.Background(), models.ResolutionEvent{
		TicketID:       resp.TicketID,
		IntentOverride: map[models.SlotName]string{models.SlotDestination: "Madurai"},
	})
	if err != nil {
		t.Fatalf("ResolveTicket: %v", err)
	}
	if out.Kind != models.KindStatus {
		t.Fatalf("resolution = %+v, want status handback", out)
	}

	sess, err := rig.store.Get(context.Background(), resp.SessionID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if sess.Intent.Slots[models.SlotDestination].Value != "Madurai" {
		t.Errorf("override not applied: %+v", sess.Intent.Slots)
	}
	if sess.Status != models.SessionActive {
		t.Errorf("status = %s, want ACTIVE", sess.Status)
	}
}

func TestResolveTicketCancel(t *testing.T) {
	rig := newRig(&fakeAdapter{options: twoTrips},
		models.CandidateIntent{WantsHuman: true, Overall: 0.95},
	)
	resp := chat(t, rig, "", "get me a human")

	out, err := rig.svc.ResolveTicket(context.Background(), models.ResolutionEvent{
		TicketID: resp.TicketID,
		Cancel:   true,
	})
	if err != nil {
		t.Fatalf("ResolveTicket: %v", err)
	}
	if out.Kind != models.KindStatus {
		t.Fatalf("resolution = %+v", out)
	}

	sess, _ := rig.store.Get(context.Background(), resp.SessionID)
	if sess.Status != models.SessionAbandoned {
		t.Errorf("status = %s, want ABANDONED", sess.Status)
	}

	// A resolved ticket cannot be consumed twice.
	if _, err := rig.svc.ResolveTicket(context.Background(), models.ResolutionEvent{TicketID: resp.TicketID, Cancel: true}); err == nil {
		t.Fatal("expected error on double resolution")
	}
}

func TestChatTerminalSession(t *testing.T) {
	rig := newRig(&fakeAdapter{options: twoTrips})
	sess := models.NewSession("done-1")
	sess.Status = models.SessionCompleted
	if err := rig.store.Save(context.Background(), sess); err != nil {
		t.Fatalf("Save: %v", err)
	}

	resp := chat(t, rig, "done-1", "one more ticket please")
	if resp.Kind != models.KindStatus {
		t.Fatalf("resp = %+v", resp)
	}
	if rig.adapter.searchCalls != 0 {
		t.Error("terminal session must not reach the provider")
	}
}
