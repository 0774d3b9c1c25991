package session

import (
	"context"
	"encoding/json"
	"time"

	"busmitra/models"
	"busmitra/utils"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	sessionPrefix = "agent:session:"
	lockPrefix    = "agent:lock:"
)

// RedisStore keeps live sessions in Redis with a TTL lifecycle and a
// SETNX-based per-session turn lock.
type RedisStore struct {
	client     *redis.Client
	lockClient *redis.Client
	ttl        time.Duration
	lockTTL    time.Duration
	logger     *zap.Logger
}

// NewRedisStore builds a store over the given clients. sessions live for ttl
// past their last write; a turn lock auto-expires after lockTTL so a crashed
// worker cannot wedge a session.
func NewRedisStore(client, lockClient *redis.Client, ttl, lockTTL time.Duration) *RedisStore {
	return &RedisStore{
		client:     client,
		lockClient: lockClient,
		ttl:        ttl,
		lockTTL:    lockTTL,
		logger:     utils.GetLogger(),
	}
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	data, err := s.client.Get(ctx, sessionPrefix+sessionID).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var sess models.Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *RedisStore) Save(ctx context.Context, sess *models.Session) error {
	sess.UpdatedAt = time.Now()
	b, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionPrefix+sess.ID, b, s.ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, sessionPrefix+sessionID).Err()
}

// Acquire takes the turn lock with an owner token so only the holder's
// release deletes it.
func (s *RedisStore) Acquire(ctx context.Context, sessionID string) (func(), error) {
	key := lockPrefix + sessionID
	owner := uuid.New().String()

	ok, err := s.lockClient.SetNX(ctx, key, owner, s.lockTTL).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLocked
	}

	release := func() {
		// Delete only if we still own the lock.
		const script = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`
		if err := s.lockClient.Eval(context.Background(), script, []string{key}, owner).Err(); err != nil {
			s.logger.Warn("failed to release session lock",
				zap.String("sessionId", sessionID), zap.Error(err))
		}
	}
	return release, nil
}
