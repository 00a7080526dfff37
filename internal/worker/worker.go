package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/narrative-engine/internal/services/events"
	"github.com/jwebster45206/narrative-engine/internal/services/queue"
	queuePkg "github.com/jwebster45206/narrative-engine/pkg/queue"
)

const (
	// dequeueTimeout bounds each blocking pop so the loop can notice
	// a shutdown request.
	dequeueTimeout = 5 * time.Second

	// sessionLockTTL caps how long a crashed worker can hold a session.
	sessionLockTTL = 30 * time.Second
)

// Worker pulls turn requests off the queue and processes them.
type Worker struct {
	id          string
	queue       *queue.TurnQueue
	processor   *TurnProcessor
	broadcaster *events.Broadcaster
	redisClient *redis.Client
	logger      *slog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
}

func New(turnQueue *queue.TurnQueue, processor *TurnProcessor, redisClient *redis.Client, logger *slog.Logger, workerID string) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	if workerID == "" {
		workerID = "worker-" + uuid.NewString()[:8]
	}
	return &Worker{
		id:          workerID,
		queue:       turnQueue,
		processor:   processor,
		broadcaster: events.NewBroadcaster(redisClient, logger),
		redisClient: redisClient,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start runs the processing loop until Stop is called.
func (w *Worker) Start() error {
	w.logger.Info("Worker starting", "worker_id", w.id)
	for {
		select {
		case <-w.ctx.Done():
			w.logger.Info("Worker shutting down", "worker_id", w.id)
			return nil
		default:
			if err := w.processNext(); err != nil {
				w.logger.Error("Error processing request", "error", err, "worker_id", w.id)
				time.Sleep(time.Second)
			}
		}
	}
}

// Stop requests a graceful shutdown. The current request finishes.
func (w *Worker) Stop() {
	w.logger.Info("Worker stop requested", "worker_id", w.id)
	w.cancel()
}

func (w *Worker) processNext() error {
	req, err := w.queue.BlockingDequeue(w.ctx, dequeueTimeout)
	if err != nil {
		return err
	}
	if req == nil {
		// Empty queue or shutdown; both are normal.
		return nil
	}

	w.logger.Info("Received request from queue",
		"worker_id", w.id,
		"request_id", req.RequestID,
		"session_id", req.SessionID.String())

	locked, err := w.acquireSessionLock(req.SessionID)
	if err != nil {
		return fmt.Errorf("failed to acquire session lock: %w", err)
	}
	if !locked {
		// Another worker holds the session. Re-queue and move on.
		w.logger.Info("Session locked, re-queueing request",
			"worker_id", w.id,
			"request_id", req.RequestID,
			"session_id", req.SessionID.String())
		return w.queue.Enqueue(w.ctx, req)
	}
	defer w.releaseSessionLock(req.SessionID)

	return w.processRequest(req)
}

func (w *Worker) processRequest(req *queuePkg.Request) error {
	start := time.Now()

	if err := w.broadcaster.PublishTurnStarted(w.ctx, req.SessionID, req.Message); err != nil {
		w.logger.Warn("Failed to publish turn started event", "error", err)
	}

	result, err := w.processor.Run(w.ctx, req.SessionID, req.Message)
	if err != nil {
		w.logger.Error("Turn failed",
			"error", err,
			"worker_id", w.id,
			"request_id", req.RequestID,
			"session_id", req.SessionID.String())
		w.publishFailed(req, err.Error())
		return fmt.Errorf("failed to process turn: %w", err)
	}

	var applied, rejected, deferred int
	if result.Report != nil {
		applied, rejected, deferred = result.Report.Counts()
	}
	if err := w.broadcaster.PublishTurnCompleted(w.ctx, req.SessionID, applied, rejected, deferred); err != nil {
		w.logger.Warn("Failed to publish turn completed event", "error", err)
	}

	w.logger.Info("Turn processed",
		"worker_id", w.id,
		"request_id", req.RequestID,
		"session_id", req.SessionID.String(),
		"applied", applied,
		"rejected", rejected,
		"deferred", deferred,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (w *Worker) publishFailed(req *queuePkg.Request, msg string) {
	// Fresh context so the failure event outlives a cancelled worker.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.broadcaster.PublishTurnFailed(ctx, req.SessionID, msg); err != nil {
		w.logger.Warn("Failed to publish turn failed event", "error", err)
	}
}

func sessionLockKey(sessionID uuid.UUID) string {
	return "session-lock:" + sessionID.String()
}

func (w *Worker) acquireSessionLock(sessionID uuid.UUID) (bool, error) {
	return w.redisClient.SetNX(w.ctx, sessionLockKey(sessionID), w.id, sessionLockTTL).Result()
}

// releaseSessionLock deletes the lock only if this worker still owns
// it, so an expired lock taken over by another worker is left alone.
func (w *Worker) releaseSessionLock(sessionID uuid.UUID) {
	script := redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`)
	if err := script.Run(w.ctx, w.redisClient, []string{sessionLockKey(sessionID)}, w.id).Err(); err != nil {
		w.logger.Error("Failed to release session lock", "error", err, "session_id", sessionID.String())
	}
}
