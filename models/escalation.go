package models

import "time"

// EscalationReason is the stable reason code on a ticket.
type EscalationReason string

const (
	EscalateLowConfidence   EscalationReason = "LOW_CONFIDENCE"
	EscalateProviderFailure EscalationReason = "PROVIDER_FAILURE"
	EscalatePaymentRisk     EscalationReason = "PAYMENT_RISK"
	EscalateUserRequested   EscalationReason = "USER_REQUESTED"
)

// EscalationTicket is a handoff to a human operator. Immutable once created;
// only the operator resolves it.
type EscalationTicket struct {
	ID        string           `json:"id" bson:"id"`
	SessionID string           `json:"sessionId" bson:"sessionId"`
	Reason    EscalationReason `json:"reason" bson:"reason"`

	// Snapshots of the session at escalation time.
	Intent      BookingIntent       `json:"intent" bson:"intent"`
	Transaction *BookingTransaction `json:"transaction,omitempty" bson:"transaction,omitempty"`

	Resolved  bool      `json:"resolved" bson:"resolved"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// ResolutionEvent is the operator's decision on a ticket.
type ResolutionEvent struct {
	TicketID string `json:"ticketId"`
	// IntentOverride, when present, replaces the session's filled slots.
	IntentOverride map[SlotName]string `json:"intentOverride,omitempty"`
	ResumeBooking  bool                `json:"resumeBooking"`
	Cancel         bool                `json:"cancel"`
}
