package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ricarica/internal/amqp"
	"ricarica/internal/config"
	"ricarica/internal/export/sheets"
	"ricarica/internal/storage"
	"ricarica/internal/tablestore"
	"ricarica/internal/tablestore/supabase"
	"ricarica/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting ricarica-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	sqliteRepo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer sqliteRepo.Close()

	// Pick the remote copy: Supabase when configured, otherwise the
	// append-only Sheets export. Sheets cannot delete rows, so remote
	// deletes are skipped in that mode.
	var (
		remote  tablestore.SessionWriter
		deleter tablestore.SessionDeleter
	)
	switch {
	case cfg.SupabaseURL != "":
		client, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseAnonKey)
		if err != nil {
			logger.Error("Failed to initialize Supabase client", "error", err)
			os.Exit(1)
		}
		remote, deleter = client, client
		logger.Info("Supabase remote initialized", "url", cfg.SupabaseURL)
	case cfg.SheetsExportEnabled():
		exporter, err := sheets.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Sheets exporter", "error", err)
			os.Exit(1)
		}
		remote = exporter
		logger.Info("Sheets export initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	default:
		logger.Error("No remote configured: set SUPABASE_URL or GOOGLE_SPREADSHEET_ID")
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	syncWorker := worker.NewSyncWorker(sqliteRepo, remote, deleter, cfg.SyncBatchSize)

	// Replay anything missed while the worker was down.
	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Startup sync check failed", "error", err)
		// Keep running, the periodic scan retries
	}

	go func() {
		err := amqpClient.ConsumeMessages(ctx, func(msg *amqp.SessionSyncMessage) error {
			return syncWorker.HandleMessage(ctx, msg)
		})
		if err != nil {
			if err != context.Canceled {
				logger.Error("Message consumption failed", "error", err)
			}
			cancel()
		}
	}()

	go func() {
		if err := syncWorker.Run(ctx, cfg.SyncInterval); err != nil && err != context.Canceled {
			logger.Error("Periodic sync loop failed", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Shutting down worker...")
	cancel()

	// Give in-flight syncs a moment to finish.
	time.Sleep(2 * time.Second)
	logger.Info("Worker shutdown complete")
}
