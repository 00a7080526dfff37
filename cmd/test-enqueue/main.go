// Command test-enqueue pushes one turn request onto the worker queue.
// Useful for exercising the async pipeline without the API:
//
//	test-enqueue -session <uuid> -message "I open the door."
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/narrative-engine/internal/config"
	"github.com/jwebster45206/narrative-engine/internal/logger"
	"github.com/jwebster45206/narrative-engine/internal/services/queue"
	"github.com/jwebster45206/narrative-engine/internal/storage"
	queuePkg "github.com/jwebster45206/narrative-engine/pkg/queue"
)

func main() {
	sessionFlag := flag.String("session", "", "session id (required)")
	messageFlag := flag.String("message", "", "player message (required)")
	flag.Parse()

	if *sessionFlag == "" || *messageFlag == "" {
		flag.Usage()
		os.Exit(2)
	}
	sessionID, err := uuid.Parse(*sessionFlag)
	if err != nil {
		log.Fatalf("invalid session id: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logg := logger.Setup(cfg)

	redisStorage := storage.NewRedisStorage(cfg.RedisURL, logg)
	defer func() {
		if err := redisStorage.Close(); err != nil {
			logg.Error("Error closing storage connection", "error", err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := redisStorage.Ping(ctx); err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}

	turnQueue := queue.NewTurnQueue(redisStorage.Client(), logg)
	req := queuePkg.NewRequest(sessionID, *messageFlag)
	if err := turnQueue.Enqueue(ctx, req); err != nil {
		log.Fatalf("failed to enqueue request: %v", err)
	}

	depth, err := turnQueue.Depth(ctx)
	if err != nil {
		log.Fatalf("failed to read queue depth: %v", err)
	}
	fmt.Printf("enqueued request %s for session %s (queue depth %d)\n", req.RequestID, sessionID, depth)
}
