package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/opshq/backoffice/api"
	dbfs "github.com/opshq/backoffice/db"
	"github.com/opshq/backoffice/internal/analytics"
	"github.com/opshq/backoffice/internal/config"
	"github.com/opshq/backoffice/internal/db"
	"github.com/opshq/backoffice/internal/jobs"
	"github.com/opshq/backoffice/internal/notify"
	"github.com/opshq/backoffice/internal/repository/sqlite"
	"github.com/opshq/backoffice/internal/workflow"
	"github.com/opshq/backoffice/pkg/rates"
	"github.com/opshq/backoffice/pkg/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	api.SetLogger(logger)
	rates.SetLogger(logger)

	logger.Info("starting back-office server", slog.String("version", version), slog.String("build_time", buildTime))

	ctx := context.Background()

	// Open database connection and apply migrations
	conn, err := db.New(ctx, cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	if err := db.Migrate(ctx, conn, dbfs.Migrations); err != nil {
		log.Fatalf("Failed to migrate DB: %v", err)
	}

	repo := sqlite.New(conn, logger)

	store, err := storage.NewLocal(cfg.StorageDir)
	if err != nil {
		log.Fatalf("Failed to init storage: %v", err)
	}

	fx, err := rates.NewClient(cfg.Rates, nil)
	if err != nil {
		log.Fatalf("Failed to init rates client: %v", err)
	}

	hub := notify.NewHub(logger)
	go hub.Run()

	// Background jobs: escalation timers and notification dispatch. The
	// handler map is filled in before Start because the engine enqueues
	// through the pool and the pool dispatches back into the engine.
	jobRepo := jobs.NewRepository(conn)
	handlers := map[string]jobs.Handler{}
	pool := jobs.NewWorkerPool(jobRepo, handlers, logger, cfg.WorkerCount)
	engine := workflow.NewEngine(repo, repo, repo, pool, hub, logger)
	handlers[jobs.TypeWorkflowEscalate] = engine.HandleEscalate
	handlers[jobs.TypeNotifyDispatch] = notify.DispatchHandler(repo, hub)
	pool.Start(ctx)

	reports := analytics.New(conn.GetConn(), fx)

	handler := api.SetupRoutes(cfg, version, buildTime, api.Deps{
		Repo:      repo,
		Store:     store,
		Hub:       hub,
		Engine:    engine,
		Analytics: reports,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.APITimeout,
		WriteTimeout: cfg.APITimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", slog.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	pool.Stop()
	hub.Close()
	if err := fx.Close(); err != nil {
		logger.Error("closing rates client", slog.Any("err", err))
	}
	if err := conn.Close(); err != nil {
		logger.Error("closing DB", slog.Any("err", err))
	}

	logger.Info("server exited")
}
