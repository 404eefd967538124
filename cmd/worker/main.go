package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/earthwork-discovery/internal/config"
	"github.com/earthwork-discovery/internal/pkg/logger"
	"github.com/earthwork-discovery/internal/repository/postgres"
	redisRepo "github.com/earthwork-discovery/internal/repository/redis"
	"github.com/earthwork-discovery/internal/worker"
	"github.com/earthwork-discovery/internal/worker/ingest"
	"go.uber.org/zap"
)

func main() {
	envFile := flag.String("env-file", ".env", "path to the environment file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	if !cfg.Results.Enabled || !cfg.Redis.Enabled {
		fmt.Println("Run ingestion needs RESULTS_DB_ENABLED=true and REDIS_ENABLED=true.")
		os.Exit(0)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting run ingest worker",
		zap.String("stream", cfg.Redis.Stream),
		zap.String("consumer_group", cfg.Redis.ConsumerGroup),
	)

	db, err := postgres.New(&cfg.Results, log)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close PostgreSQL connection", zap.Error(err))
		}
	}()

	redisClient, err := redisRepo.NewClient(&cfg.Redis, log)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close Redis connection", zap.Error(err))
		}
	}()

	resultsRepo := postgres.NewResultsRepository(db, log)
	if err := resultsRepo.EnsureSchema(context.Background()); err != nil {
		log.Fatal("Failed to prepare results schema", zap.Error(err))
	}
	streamRepo := redisRepo.NewStreamRepository(redisClient.Redis(), log)

	manager := worker.NewManager(worker.DefaultShutdownTimeout, log)
	manager.Register(ingest.NewWorker(streamRepo, resultsRepo, cfg.Redis.Stream, cfg.Redis.ConsumerGroup, log))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := manager.Start(ctx); err != nil {
		log.Fatal("Failed to start workers", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info("Received shutdown signal")

	cancel()
	if err := manager.Stop(); err != nil {
		log.Error("Error stopping workers", zap.Error(err))
	}
	log.Info("Worker shutdown complete")
}
