package archiveRepo

import (
	"busmitra/database"
	"busmitra/models"
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

// SessionArchiveRepository stores terminal sessions once the maintenance
// worker evicts them from Redis.
type SessionArchiveRepository interface {
	Save(ctx context.Context, archived models.ArchivedSession) error
	GetByID(ctx context.Context, sessionID string) (*models.ArchivedSession, error)
}

type mongoArchiveRepo struct {
	coll *mongo.Collection
}

// NewMongoArchiveRepo returns a new SessionArchiveRepository instance using MongoDB.
func NewMongoArchiveRepo() SessionArchiveRepository {
	db := database.MongoClient.Database("busmitra")
	return &mongoArchiveRepo{
		coll: db.Collection("archived_sessions"),
	}
}
