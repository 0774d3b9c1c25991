package models

import "time"

// SessionStatus is the lifecycle status of a conversation.
type SessionStatus string

const (
	SessionActive                SessionStatus = "ACTIVE"
	SessionAwaitingClarification SessionStatus = "AWAITING_CLARIFICATION"
	SessionAwaitingHuman         SessionStatus = "AWAITING_HUMAN"
	SessionCompleted             SessionStatus = "COMPLETED"
	SessionAbandoned             SessionStatus = "ABANDONED"
)

// Terminal reports whether the session can no longer take turns.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionAbandoned
}

// Turn records one exchange: what the user said, what the extractor read,
// and what the system answered.
type Turn struct {
	Utterance string          `json:"utterance"`
	Intent    CandidateIntent `json:"intent"`
	Response  string          `json:"response"`
	At        time.Time       `json:"at"`
}

// Session holds the per-conversation context between turns.
type Session struct {
	ID          string              `json:"sessionId"`
	Turns       []Turn              `json:"turns"`
	Intent      BookingIntent       `json:"intent"`
	Transaction *BookingTransaction `json:"transaction,omitempty"`
	Status      SessionStatus       `json:"status"`

	// ActiveTicketID is set while an escalation ticket is unresolved.
	ActiveTicketID string `json:"activeTicketId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewSession returns an ACTIVE session with an initialised intent.
func NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		Intent:    NewBookingIntent(),
		Status:    SessionActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ArchivedSession is the Mongo shape of a session taken out of Redis once it
// reaches a terminal status.
type ArchivedSession struct {
	ID         string        `json:"id" bson:"id"`
	Status     SessionStatus `json:"status" bson:"status"`
	Intent     BookingIntent `json:"intent" bson:"intent"`
	BookingRef string        `json:"bookingRef,omitempty" bson:"bookingRef,omitempty"`
	AmountINR  int           `json:"amountInr,omitempty" bson:"amountInr,omitempty"`
	TurnCount  int           `json:"turnCount" bson:"turnCount"`
	CreatedAt  time.Time     `json:"createdAt" bson:"createdAt"`
	ArchivedAt time.Time     `json:"archivedAt" bson:"archivedAt"`
}
