package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/narrative-engine/internal/config"
	"github.com/jwebster45206/narrative-engine/internal/logger"
	"github.com/jwebster45206/narrative-engine/internal/services"
	"github.com/jwebster45206/narrative-engine/internal/services/queue"
	"github.com/jwebster45206/narrative-engine/internal/storage"
	"github.com/jwebster45206/narrative-engine/internal/worker"
	"github.com/jwebster45206/narrative-engine/pkg/prompts"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Narrative Engine Worker",
		"environment", cfg.Environment,
		"redis_url", cfg.RedisURL,
		"llm_provider", cfg.LLMProvider)

	var llmService services.LLMService
	switch cfg.LLMProvider {
	case config.ProviderAnthropic:
		llmService = services.NewAnthropicService(cfg.AnthropicAPIKey, cfg.ModelName, log)
		log.Info("Using Anthropic LLM provider")
	case config.ProviderLocal:
		llmService = services.NewLocalService(cfg.LLMBaseURL, cfg.ModelName, log)
		log.Info("Using local LLM provider", "base_url", cfg.LLMBaseURL)
	case config.ProviderMock:
		llmService = services.NewMockLLMAPI()
		log.Warn("Using mock LLM provider; narrator responses are canned")
	default:
		log.Error("Invalid LLM provider specified", "provider", cfg.LLMProvider)
		os.Exit(1)
	}

	world := prompts.DefaultWorld()
	if cfg.WorldFile != "" {
		world, err = prompts.LoadWorldFile(cfg.WorldFile)
		if err != nil {
			log.Error("Failed to load world file", "error", err, "path", cfg.WorldFile)
			os.Exit(1)
		}
		log.Info("Loaded world definition", "title", world.Title, "path", cfg.WorldFile)
	}

	redisStorage := storage.NewRedisStorage(cfg.RedisURL, log)
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()

	if err := redisStorage.Ping(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	initCtx, initCancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer initCancel()
	if err := llmService.InitModel(initCtx, cfg.ModelName); err != nil {
		log.Error("Failed to initialize LLM model", "error", err, "model", cfg.ModelName)
		os.Exit(1)
	}

	turnQueue := queue.NewTurnQueue(redisStorage.Client(), log)
	processor := worker.NewTurnProcessor(llmService, redisStorage, world, log)
	w := worker.New(turnQueue, processor, redisStorage.Client(), log, os.Getenv("WORKER_ID"))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := w.Start(); err != nil {
			log.Error("Worker error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("Worker started, waiting for requests...")
	<-quit
	log.Info("Worker shutdown signal received")

	w.Stop()
	// Let an in-flight turn finish before closing connections.
	time.Sleep(2 * time.Second)

	if err := redisStorage.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}
	log.Info("Worker exited")
}
