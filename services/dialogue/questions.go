package dialogue

import (
	"fmt"

	"busmitra/models"
)

var clarifyTemplates = map[models.SlotName]string{
	models.SlotOrigin:         "Which city are you travelling from?",
	models.SlotDestination:    "Where would you like to go?",
	models.SlotDate:           "What date do you want to travel? (for example, 21/09/2026)",
	models.SlotTimeWindow:     "Do you prefer a morning, afternoon or evening departure?",
	models.SlotPassengerCount: "How many passengers are travelling?",
	models.SlotSeatPreference: "Any seat preference? Window, aisle, or no preference?",
	models.SlotPaymentMethod:  "How would you like to pay? Card, or cash at boarding?",
	models.SlotBudget:         "What is the most you want to spend for all tickets together, in rupees?",
}

// ClarifyQuestion returns the question asked when a slot is missing.
func ClarifyQuestion(name models.SlotName) string {
	if q, ok := clarifyTemplates[name]; ok {
		return q
	}
	return fmt.Sprintf("Could you tell me the %s for your trip?", name)
}

// ConfirmPendingQuestion asks the user to confirm a low-confidence reading.
func ConfirmPendingQuestion(name models.SlotName, value string) string {
	return fmt.Sprintf("Just to confirm, is %q the %s you meant?", value, slotLabel(name))
}

// ConfirmQuestion asks the user to pick between ambiguous candidates.
func ConfirmQuestion(name models.SlotName, candidates []models.SlotCandidate) string {
	if len(candidates) >= 2 {
		return fmt.Sprintf("Did you mean %q or %q for the %s?",
			candidates[0].Value, candidates[1].Value, slotLabel(name))
	}
	return ClarifyQuestion(name)
}

func slotLabel(name models.SlotName) string {
	switch name {
	case models.SlotOrigin:
		return "departure city"
	case models.SlotDestination:
		return "destination"
	case models.SlotDate:
		return "travel date"
	case models.SlotTimeWindow:
		return "departure time"
	case models.SlotPassengerCount:
		return "number of passengers"
	case models.SlotSeatPreference:
		return "seat preference"
	case models.SlotPaymentMethod:
		return "payment method"
	case models.SlotBudget:
		return "budget"
	}
	return string(name)
}
