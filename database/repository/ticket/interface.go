package ticketRepo

import (
	"busmitra/database"
	"busmitra/models"
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

// EscalationTicketRepository persists handoff tickets so any worker can pick
// a session back up after a human resolves it.
type EscalationTicketRepository interface {
	Create(ctx context.Context, ticket models.EscalationTicket) (string, error)
	GetByID(ctx context.Context, id string) (*models.EscalationTicket, error)
	ListOpen(ctx context.Context) ([]models.EscalationTicket, error)
	MarkResolved(ctx context.Context, id string) error
}

type mongoTicketRepo struct {
	coll *mongo.Collection
}

// NewMongoTicketRepo returns a new EscalationTicketRepository instance using MongoDB.
func NewMongoTicketRepo() EscalationTicketRepository {
	db := database.MongoClient.Database("busmitra")
	return &mongoTicketRepo{
		coll: db.Collection("escalation_tickets"),
	}
}
