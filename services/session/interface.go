package session

import (
	"busmitra/models"
	"context"
	"errors"
)

var (
	// ErrNotFound means no live session exists for the ID.
	ErrNotFound = errors.New("session not found or expired")
	// ErrLocked means another turn for the same session is mid-flight.
	ErrLocked = errors.New("session is locked by another turn")
)

// Store owns session state and is the single point of mutual exclusion:
// turns for one session are serialized by Acquire, while distinct sessions
// proceed in parallel. Implementations may back the lock with Redis so the
// store can be shared across workers.
type Store interface {
	Get(ctx context.Context, sessionID string) (*models.Session, error)
	Save(ctx context.Context, s *models.Session) error
	Delete(ctx context.Context, sessionID string) error

	// Acquire takes the per-session turn lock. It returns a release func on
	// success and ErrLocked when a concurrent turn holds it.
	Acquire(ctx context.Context, sessionID string) (func(), error)
}
