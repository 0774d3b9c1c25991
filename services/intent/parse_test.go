package intent

import (
	"strings"
	"testing"
	"time"

	"busmitra/models"
)

func TestParseCandidate(t *testing.T) {
	raw := `{
		"slots": {
			"origin": [{"value": "Chennai", "confidence": 0.95}],
			"destination": [
				{"value": "Tiruchendur", "confidence": 0.55},
				{"value": "Tiruchirappalli", "confidence": 0.6}
			],
			"passenger_count": [{"value": "2", "confidence": 1.4}],
			"mystery_slot": [{"value": "x", "confidence": 0.9}]
		},
		"referenced_slots": ["origin", "destination", "passenger_count", "mystery_slot"],
		"overall_confidence": 0.85,
		"wants_human": false,
		"selected_option": ""
	}`

	got, err := parseCandidate(raw)
	if err != nil {
		t.Fatalf("parseCandidate: %v", err)
	}

	if best, _ := got.Best(models.SlotOrigin); best.Value != "Chennai" {
		t.Errorf("origin = %q", best.Value)
	}
	// Candidates come back ranked best first regardless of input order.
	dest := got.Slots[models.SlotDestination]
	if len(dest) != 2 || dest[0].Value != "Tiruchirappalli" {
		t.Errorf("destination ranking = %+v", dest)
	}
	// Out-of-range confidences are clamped, unknown slots dropped.
	if pc, _ := got.Best(models.SlotPassengerCount); pc.Confidence != 1 {
		t.Errorf("passenger_count confidence = %v, want clamped to 1", pc.Confidence)
	}
	if _, ok := got.Slots["mystery_slot"]; ok {
		t.Error("unknown slot survived parsing")
	}
	if len(got.ReferencedSlots) != 3 {
		t.Errorf("referenced slots = %v", got.ReferencedSlots)
	}
}

func TestParseCandidateFenced(t *testing.T) {
	raw := "```json\n{\"slots\": {}, \"referenced_slots\": [], \"overall_confidence\": 0.9, \"wants_human\": false, \"selected_option\": \"2\"}\n```"

	got, err := parseCandidate(raw)
	if err != nil {
		t.Fatalf("parseCandidate: %v", err)
	}
	if got.SelectedOption != "2" {
		t.Errorf("selected option = %q, want 2", got.SelectedOption)
	}
}

func TestParseCandidateGarbage(t *testing.T) {
	if _, err := parseCandidate("sorry, I could not parse that"); err == nil {
		t.Fatal("expected an error on non-JSON output")
	}
}

func TestBuildPromptCarriesState(t *testing.T) {
	sess := models.NewSession("s1")
	sess.Intent.Slots[models.SlotOrigin] = models.SlotValue{Value: "Chennai", Confidence: 0.9}
	sess.Status = models.SessionAwaitingClarification
	sess.Transaction = &models.BookingTransaction{
		State: models.TxSelect,
		Options: []models.TripOption{
			{ID: "T1", Operator: "TNSTC", BusType: "Ultra Deluxe", DepartureTime: "21:30"},
		},
	}

	now := time.Date(2026, 9, 20, 10, 0, 0, 0, time.UTC)
	prompt := BuildPrompt("the first one", sess, now)

	for _, want := range []string{
		"Today's date: 20/09/2026",
		"origin: Chennai",
		"Ultra Deluxe departing 21:30",
		`User: "the first one"`,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
