package ticketRepo

import (
	"busmitra/models"
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

// Create inserts a new escalation ticket and returns its ID.
func (r *mongoTicketRepo) Create(ctx context.Context, ticket models.EscalationTicket) (string, error) {
	if ticket.ID == "" {
		ticket.ID = uuid.New().String()
	}
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now()
	}

	_, err := r.coll.InsertOne(ctx, ticket)
	if err != nil {
		return "", err
	}
	return ticket.ID, nil
}

// GetByID returns a ticket by its ID.
func (r *mongoTicketRepo) GetByID(ctx context.Context, id string) (*models.EscalationTicket, error) {
	var ticket models.EscalationTicket
	err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&ticket)
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// ListOpen fetches all unresolved tickets, oldest first.
func (r *mongoTicketRepo) ListOpen(ctx context.Context) ([]models.EscalationTicket, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"resolved": false})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tickets []models.EscalationTicket
	if err := cursor.All(ctx, &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

// MarkResolved flags a ticket as consumed by an operator.
func (r *mongoTicketRepo) MarkResolved(ctx context.Context, id string) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": bson.M{"resolved": true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errors.New("ticket not found")
	}
	return nil
}
