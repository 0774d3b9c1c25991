package agent

import (
	"context"

	"busmitra/models"
)

// --- Interfaces ---

// Service is the conversational front of the system: one call per user turn,
// plus the operator-side resolution path.
type Service interface {
	// Chat processes one user turn. Turns for the same session are
	// serialized; a turn arriving while another is mid-flight is retried
	// once and then rejected.
	Chat(ctx context.Context, req models.AgentRequest) (*models.AgentResponse, error)

	// ResolveTicket applies an operator's decision to an escalated session.
	ResolveTicket(ctx context.Context, event models.ResolutionEvent) (*models.AgentResponse, error)

	GetSession(ctx context.Context, sessionID string) (*models.Session, error)

	// EndSession abandons a conversation, releasing any provider hold.
	EndSession(ctx context.Context, sessionID string) error
}

// Archiver moves terminal sessions out of the hot store asynchronously.
// Implemented by the queue worker; a nil archiver disables archiving.
type Archiver interface {
	EnqueueArchive(sessionID string) error
}
