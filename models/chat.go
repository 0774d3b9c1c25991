package models

// AgentRequest is the payload from the chat transport into /api/agent/chat.
type AgentRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text" binding:"required"`
}

// ResponseKind distinguishes the four reply shapes the orchestrator returns.
type ResponseKind string

const (
	KindClarification ResponseKind = "clarification"
	KindStatus        ResponseKind = "status"
	KindConfirmation  ResponseKind = "confirmation"
	KindEscalation    ResponseKind = "escalation"
)

// ConfirmationPayload is the final booking summary.
type ConfirmationPayload struct {
	BookingRef string     `json:"bookingRef"`
	Trip       TripOption `json:"trip"`
	Passengers int        `json:"passengers"`
	TotalINR   int        `json:"totalInr"`
}

// AgentResponse is what the orchestrator returns to the transport layer for
// one turn. Rendering is entirely the transport's concern.
type AgentResponse struct {
	SessionID string       `json:"sessionId"`
	Kind      ResponseKind `json:"kind"`
	Text      string       `json:"text"`

	// Slot being clarified, for clarification replies.
	Slot SlotName `json:"slot,omitempty"`
	// Options presented on a SELECT turn.
	Options []TripOption `json:"options,omitempty"`
	// Confirmation is set on a successful CONFIRM.
	Confirmation *ConfirmationPayload `json:"confirmation,omitempty"`
	// TicketID is set on an escalation acknowledgment.
	TicketID string `json:"ticketId,omitempty"`
	// Reason is the stable code for terminal failures and escalations.
	Reason string `json:"reason,omitempty"`
}
