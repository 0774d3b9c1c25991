package escalation

import "busmitra/models"

// Policy decides when the agent must hand a session to a human. Pure
// predicates; ticket creation lives on the Service.
type Policy struct {
	// MaxClarifyPerSlot caps clarification prompts per slot. Once a slot
	// would be asked about a (cap+1)th time, the conversation is handed off
	// instead of looping.
	MaxClarifyPerSlot int
}

// UserRequested reports an explicit ask for a human operator.
func (p Policy) UserRequested(candidate models.CandidateIntent) bool {
	return candidate.WantsHuman
}

// ClarifyExhausted reports that a slot has used up its clarification budget.
// ClarifyCount includes the prompt the dialogue manager just proposed.
func (p Policy) ClarifyExhausted(intent models.BookingIntent, slot models.SlotName) bool {
	return intent.ClarifyCount[slot] > p.MaxClarifyPerSlot
}
