package intent

import (
	"fmt"
	"strings"
	"time"

	"busmitra/models"
)

const promptHeader = `You are the language-understanding component of a bus ticket booking
assistant for Tamil Nadu state transport services. Read ONE user message and
return ONLY a JSON object, no prose, matching this schema:

{
  "slots": {
    "<slot_name>": [ {"value": "<string>", "confidence": <0.0-1.0>} ]
  },
  "referenced_slots": ["<slot_name>"],
  "overall_confidence": <0.0-1.0>,
  "wants_human": <bool>,
  "selected_option": "<string>"
}

Slot names: origin, destination, date, time_window, passenger_count,
seat_preference, payment_method, budget.

Rules:
- Rank candidate values best first. If the user is ambiguous between two
  readings, emit both with close confidences.
- date must be DD/MM/YYYY. Resolve relative dates ("tomorrow", "next Friday")
  against today's date given below.
- time_window must be HH:MM-HH:MM (morning 06:00-12:00, afternoon
  12:00-18:00, evening 18:00-23:59).
- passenger_count is a plain integer string. payment_method is "card" or
  "cash".
- budget is the maximum total fare in rupees, a plain integer string
  ("under 1000 rupees" gives "1000").
- referenced_slots lists only slots this message actually talks about.
- wants_human is true only for an explicit ask for a person/agent/operator.
- selected_option is set when the user is choosing from presented trips:
  the option number ("2") or a trip code.
- Omit slots the message says nothing about. Never invent values.

Examples:
User: "2 tickets from chennai to madurai tomorrow evening"
{"slots": {"origin": [{"value": "Chennai", "confidence": 0.95}],
"destination": [{"value": "Madurai", "confidence": 0.95}],
"date": [{"value": "%s", "confidence": 0.9}],
"time_window": [{"value": "18:00-23:59", "confidence": 0.85}],
"passenger_count": [{"value": "2", "confidence": 0.95}]},
"referenced_slots": ["origin", "destination", "date", "time_window", "passenger_count"],
"overall_confidence": 0.9, "wants_human": false, "selected_option": ""}

User: "the second one"
{"slots": {}, "referenced_slots": [], "overall_confidence": 0.9,
"wants_human": false, "selected_option": "2"}

User: "i want to talk to a real person"
{"slots": {}, "referenced_slots": [], "overall_confidence": 0.95,
"wants_human": true, "selected_option": ""}
`

// BuildPrompt assembles the extraction prompt: schema, today's date, the
// conversation state the model needs to resolve references, and the message.
func BuildPrompt(utterance string, sess *models.Session, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, promptHeader, now.AddDate(0, 0, 1).Format("02/01/2006"))

	fmt.Fprintf(&b, "\nToday's date: %s (%s)\n", now.Format("02/01/2006"), now.Weekday())

	if len(sess.Intent.Slots) > 0 {
		b.WriteString("Already known about this booking:\n")
		for name, v := range sess.Intent.Slots {
			fmt.Fprintf(&b, "- %s: %s\n", name, v.Value)
		}
	}
	if pending := pendingSlot(sess); pending != "" {
		fmt.Fprintf(&b, "The assistant just asked the user about: %s. A short answer likely fills that slot.\n", pending)
	}
	if sess.Transaction != nil && sess.Transaction.State == models.TxSelect && len(sess.Transaction.Options) > 0 {
		b.WriteString("The user was shown these trip options and may be picking one:\n")
		for i, o := range sess.Transaction.Options {
			fmt.Fprintf(&b, "%d. %s %s departing %s\n", i+1, o.Operator, o.BusType, o.DepartureTime)
		}
	}

	fmt.Fprintf(&b, "\nUser: %q\n", utterance)
	return b.String()
}

// pendingSlot returns the slot the last clarification asked about, if the
// session is waiting on one.
func pendingSlot(sess *models.Session) models.SlotName {
	if sess.Status != models.SessionAwaitingClarification {
		return ""
	}
	for _, name := range models.RequiredSlots {
		if !sess.Intent.Filled(name) {
			return name
		}
	}
	return ""
}
