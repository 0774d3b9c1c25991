package cron

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"busmitra/config"
	archiveRepo "busmitra/database/repository/archive"
	"busmitra/models"
	"busmitra/services/session"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
)

const TypeSessionArchive = "session:archive"

// ArchivePayload is the task body for a session archive job.
type ArchivePayload struct {
	SessionID string `json:"sessionId"`
}

func queueRedisOpts() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
}

// ArchiveClient enqueues archive jobs; it is the orchestrator's Archiver.
type ArchiveClient struct {
	client *asynq.Client
}

func NewArchiveClient() *ArchiveClient {
	return &ArchiveClient{client: asynq.NewClient(queueRedisOpts())}
}

func (c *ArchiveClient) EnqueueArchive(sessionID string) error {
	payload, err := json.Marshal(ArchivePayload{SessionID: sessionID})
	if err != nil {
		return err
	}
	// Small delay so the final response is long gone before the session
	// leaves the hot store.
	_, err = c.client.Enqueue(
		asynq.NewTask(TypeSessionArchive, payload),
		asynq.MaxRetry(5),
		asynq.ProcessIn(10*time.Second),
	)
	return err
}

// InitArchiveWorker runs the async worker in background.
func InitArchiveWorker(store session.Store, repo archiveRepo.SessionArchiveRepository) {
	srv := asynq.NewServer(
		queueRedisOpts(),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeSessionArchive, handleArchiveTask(store, repo))

	// Start Redis health monitor
	go monitorRedisConnection()

	// Start async worker with retry logic
	go func() {
		log.Println("[ArchiveWorker] 🚀 Starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[ArchiveWorker] ❌ Attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[ArchiveWorker] ❗ Max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()
}

func handleArchiveTask(store session.Store, repo archiveRepo.SessionArchiveRepository) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p ArchivePayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[ArchiveHandler] 🔴 Invalid payload: %v", err)
			return err
		}

		sess, err := store.Get(ctx, p.SessionID)
		if errors.Is(err, session.ErrNotFound) {
			// Expired or already archived; nothing to do.
			return nil
		}
		if err != nil {
			return err
		}
		if !sess.Status.Terminal() {
			log.Printf("[ArchiveHandler] ⚠️ Session %s no longer terminal, skipping", p.SessionID)
			return nil
		}

		archived := models.ArchivedSession{
			ID:         sess.ID,
			Status:     sess.Status,
			Intent:     sess.Intent,
			TurnCount:  len(sess.Turns),
			CreatedAt:  sess.CreatedAt,
			ArchivedAt: time.Now(),
		}
		if tx := sess.Transaction; tx != nil {
			archived.BookingRef = tx.BookingRef
			archived.AmountINR = tx.AmountINR
		}

		if err := repo.Save(ctx, archived); err != nil {
			log.Printf("[ArchiveHandler] ❌ Failed to archive session %s: %v", p.SessionID, err)
			return err
		}
		if err := store.Delete(ctx, p.SessionID); err != nil {
			return err
		}

		log.Printf("[ArchiveHandler] 📦 Archived session %s (%s)", sess.ID, sess.Status)
		return nil
	}
}

// monitorRedisConnection pings Redis periodically to detect failures at runtime.
func monitorRedisConnection() {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})

	ctx := context.Background()

	for {
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("[ArchiveWorker] ⚠️ Redis connection lost: %v", err)
		}
		time.Sleep(10 * time.Second)
	}
}
