// Package dialogue merges extracted intents into session slots and decides
// what the agent should say next. Everything here is a pure function of its
// inputs; no I/O, no hidden state.
package dialogue

import (
	"time"

	"busmitra/models"
)

// ActionKind classifies the manager's decision for the turn.
type ActionKind string

const (
	ActionAskClarification ActionKind = "ask_clarification"
	ActionConfirmAmbiguous ActionKind = "confirm_ambiguous"
	ActionProceedToBooking ActionKind = "proceed_to_booking"
)

// NextAction tells the orchestrator how to continue the conversation.
type NextAction struct {
	Kind       ActionKind
	Slot       models.SlotName
	Question   string
	Candidates []models.SlotCandidate
}

// Manager applies the merge policy. Threshold is the minimum confidence for a
// slot to count as filled; Margin is the closeness band within which two
// candidates are treated as an ambiguous tie.
type Manager struct {
	Threshold float64
	Margin    float64
}

// Merge folds a candidate intent into the existing booking intent and decides
// the next conversational step. The returned intent is a copy; the input is
// not mutated.
func (m Manager) Merge(existing models.BookingIntent, candidate models.CandidateIntent, now time.Time) (models.BookingIntent, NextAction) {
	merged := cloneIntent(existing)
	ambiguous := make(map[models.SlotName][]models.SlotCandidate)

	for name, ranked := range candidate.Slots {
		if len(ranked) == 0 {
			continue
		}
		best := ranked[0]

		// Two plausible values inside the closeness margin: neither may fill
		// the slot until the user picks one.
		if len(ranked) >= 2 && best.Confidence-ranked[1].Confidence <= m.Margin {
			ambiguous[name] = ranked[:2]
			continue
		}

		if err := ValidateSlot(name, best.Value, now); err != nil {
			// Invalid values (a date in the past, zero passengers) are
			// clarified with the user, never escalated.
			merged.Pending[name] = models.SlotValue{
				Value:      best.Value,
				Confidence: 0,
				Provenance: models.ProvenanceUser,
				UpdatedAt:  now,
			}
			continue
		}

		if old, filled := merged.Slots[name]; filled {
			// A filled slot is overwritten only by a strictly more confident
			// reading of an utterance that actually talked about it.
			if best.Confidence <= old.Confidence || !referenced(candidate, name) {
				continue
			}
		}

		value := models.SlotValue{
			Value:      best.Value,
			Confidence: best.Confidence,
			Provenance: models.ProvenanceUser,
			UpdatedAt:  now,
		}
		if best.Confidence >= m.Threshold {
			merged.Slots[name] = value
			delete(merged.Pending, name)
		} else {
			merged.Pending[name] = value
		}
	}

	return merged, m.decide(merged, ambiguous)
}

// decide picks the next action: clarify the first unfilled or ambiguous
// required slot, otherwise proceed. Required slots are asked in a fixed order
// so the conversation feels deliberate.
func (m Manager) decide(intent models.BookingIntent, ambiguous map[models.SlotName][]models.SlotCandidate) NextAction {
	for _, name := range models.RequiredSlots {
		if cands, ok := ambiguous[name]; ok {
			intent.ClarifyCount[name]++
			return NextAction{
				Kind:       ActionConfirmAmbiguous,
				Slot:       name,
				Question:   ConfirmQuestion(name, cands),
				Candidates: cands,
			}
		}
		if intent.Filled(name) {
			continue
		}
		intent.ClarifyCount[name]++
		question := ClarifyQuestion(name)
		if pending, ok := intent.Pending[name]; ok && pending.Confidence > 0 {
			question = ConfirmPendingQuestion(name, pending.Value)
		}
		return NextAction{Kind: ActionAskClarification, Slot: name, Question: question}
	}

	// Optional slots default deterministically; payment method is prompted
	// at the PAY step, not earlier.
	if !intent.Filled(models.SlotSeatPreference) {
		intent.Slots[models.SlotSeatPreference] = models.SlotValue{
			Value:      "any",
			Confidence: 1,
			Provenance: models.ProvenanceDefault,
		}
	}

	return NextAction{Kind: ActionProceedToBooking}
}

func referenced(candidate models.CandidateIntent, name models.SlotName) bool {
	for _, s := range candidate.ReferencedSlots {
		if s == name {
			return true
		}
	}
	return false
}

func cloneIntent(in models.BookingIntent) models.BookingIntent {
	out := models.NewBookingIntent()
	for k, v := range in.Slots {
		out.Slots[k] = v
	}
	for k, v := range in.Pending {
		out.Pending[k] = v
	}
	for k, v := range in.ClarifyCount {
		out.ClarifyCount[k] = v
	}
	return out
}
