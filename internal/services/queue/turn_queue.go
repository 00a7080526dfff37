// Package queue moves turn requests between the API and worker
// processes over a shared Redis list.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	queuePkg "github.com/jwebster45206/narrative-engine/pkg/queue"
)

// turnQueueKey is the shared list all workers pull from.
const turnQueueKey = "turn-queue"

// TurnQueue is a Redis-list backed FIFO of turn requests.
type TurnQueue struct {
	rdb    *redis.Client
	logger *slog.Logger
}

func NewTurnQueue(rdb *redis.Client, logger *slog.Logger) *TurnQueue {
	return &TurnQueue{
		rdb:    rdb,
		logger: logger,
	}
}

// Enqueue appends a request to the tail of the queue.
func (q *TurnQueue) Enqueue(ctx context.Context, req *queuePkg.Request) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	if err := q.rdb.RPush(ctx, turnQueueKey, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue request: %w", err)
	}
	q.logger.Debug("Request enqueued",
		"request_id", req.RequestID,
		"session_id", req.SessionID.String())
	return nil
}

// BlockingDequeue waits up to timeout for the next request. It returns
// nil without error when the wait times out or the context ends, so
// worker loops can poll for shutdown.
func (q *TurnQueue) BlockingDequeue(ctx context.Context, timeout time.Duration) (*queuePkg.Request, error) {
	result, err := q.rdb.BLPop(ctx, timeout, turnQueueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue request: %w", err)
	}
	// BLPop returns [key, value].
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BLPOP result length %d", len(result))
	}
	var req queuePkg.Request
	if err := json.Unmarshal([]byte(result[1]), &req); err != nil {
		return nil, fmt.Errorf("failed to unmarshal request: %w", err)
	}
	return &req, nil
}

// Depth reports how many requests are waiting.
func (q *TurnQueue) Depth(ctx context.Context) (int64, error) {
	depth, err := q.rdb.LLen(ctx, turnQueueKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read queue depth: %w", err)
	}
	return depth, nil
}
