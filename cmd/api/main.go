package main

// @title Earthwork Discovery API
// @version 1.0.0
// @description Read access to discovery runs, ranked hotspots and run maps.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/earthwork-discovery/docs"
	"github.com/earthwork-discovery/internal/config"
	httpDelivery "github.com/earthwork-discovery/internal/delivery/http"
	"github.com/earthwork-discovery/internal/delivery/http/handler"
	"github.com/earthwork-discovery/internal/metrics"
	"github.com/earthwork-discovery/internal/pkg/logger"
	"github.com/earthwork-discovery/internal/repository/postgres"
	"go.uber.org/zap"
)

func main() {
	envFile := flag.String("env-file", ".env", "path to the environment file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	if !cfg.Results.Enabled {
		fmt.Println("The results API needs RESULTS_DB_ENABLED=true.")
		os.Exit(0)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting results API",
		zap.String("env", cfg.Server.Env),
		zap.String("server_addr", cfg.GetServerAddr()),
	)

	db, err := postgres.New(&cfg.Results, log)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}

	resultsRepo := postgres.NewResultsRepository(db, log)
	if err := resultsRepo.EnsureSchema(context.Background()); err != nil {
		log.Fatal("Failed to prepare results schema", zap.Error(err))
	}

	server := httpDelivery.NewServer(
		cfg,
		log,
		metrics.NewHTTP(),
		handler.NewResultsHandler(resultsRepo, log),
		handler.NewHealthHandler(map[string]handler.Pinger{"results": db}, log),
	)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}
	if err := db.Close(); err != nil {
		log.Error("Failed to close database", zap.Error(err))
	}

	log.Info("Server stopped successfully")
}
