package escalation

import (
	"context"
	"time"

	"busmitra/models"
	ticketRepo "busmitra/database/repository/ticket"

	"go.uber.org/zap"
)

// --- Interfaces ---
type Service interface {
	// Raise opens a ticket and parks the session in AWAITING_HUMAN. The
	// ticket snapshots the session so the operator sees what the agent saw.
	Raise(ctx context.Context, sess *models.Session, reason models.EscalationReason) (*models.EscalationTicket, error)
	Ticket(ctx context.Context, id string) (*models.EscalationTicket, error)
	ListOpen(ctx context.Context) ([]models.EscalationTicket, error)
	MarkResolved(ctx context.Context, id string) error
}

// --- Service Implementation ---
type DefaultEscalationService struct {
	repo   ticketRepo.EscalationTicketRepository
	logger *zap.Logger
}

func NewService(repo ticketRepo.EscalationTicketRepository, logger *zap.Logger) *DefaultEscalationService {
	return &DefaultEscalationService{repo: repo, logger: logger}
}

func (s *DefaultEscalationService) Raise(ctx context.Context, sess *models.Session, reason models.EscalationReason) (*models.EscalationTicket, error) {
	ticket := models.EscalationTicket{
		SessionID:   sess.ID,
		Reason:      reason,
		Intent:      sess.Intent,
		Transaction: sess.Transaction,
		CreatedAt:   time.Now(),
	}
	id, err := s.repo.Create(ctx, ticket)
	if err != nil {
		return nil, err
	}
	ticket.ID = id

	sess.Status = models.SessionAwaitingHuman
	sess.ActiveTicketID = id

	s.logger.Info("session escalated",
		zap.String("session", sess.ID), zap.String("ticket", id), zap.String("reason", string(reason)))
	return &ticket, nil
}

func (s *DefaultEscalationService) Ticket(ctx context.Context, id string) (*models.EscalationTicket, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *DefaultEscalationService) ListOpen(ctx context.Context) ([]models.EscalationTicket, error) {
	return s.repo.ListOpen(ctx)
}

func (s *DefaultEscalationService) MarkResolved(ctx context.Context, id string) error {
	return s.repo.MarkResolved(ctx, id)
}
