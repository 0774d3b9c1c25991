package archiveRepo

import (
	"busmitra/models"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Save upserts an archived session by session ID.
func (r *mongoArchiveRepo) Save(ctx context.Context, archived models.ArchivedSession) error {
	if archived.ArchivedAt.IsZero() {
		archived.ArchivedAt = time.Now()
	}
	opts := options.Replace().SetUpsert(true)
	_, err := r.coll.ReplaceOne(ctx, bson.M{"id": archived.ID}, archived, opts)
	return err
}

// GetByID returns an archived session by its original session ID.
func (r *mongoArchiveRepo) GetByID(ctx context.Context, sessionID string) (*models.ArchivedSession, error) {
	var archived models.ArchivedSession
	err := r.coll.FindOne(ctx, bson.M{"id": sessionID}).Decode(&archived)
	if err != nil {
		return nil, err
	}
	return &archived, nil
}
