package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"acorn/internal/amqp"
	"acorn/internal/config"
	applog "acorn/internal/log"
	"acorn/internal/services"
	"acorn/internal/sheets"
	"acorn/internal/storage"
)

func main() {
	// Load .env for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := applog.DefaultConfig()
	cfg.Component = applog.ComponentWorker
	logger := applog.New(cfg)
	slog.SetDefault(logger.Logger)

	logger.Info("Starting acorn-worker")

	appCfg := config.Load()
	if err := appCfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(appCfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", appCfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Spreadsheet export is optional; without it, snapshots stay local.
	var exporter sheets.SummaryWriter
	if appCfg.SheetsSpreadsheetID != "" {
		client, err := sheets.NewClient(context.Background(),
			appCfg.SheetsSpreadsheetID, appCfg.SheetsName, appCfg.SheetsCredentialsFile)
		if err != nil {
			logger.Error("Failed to initialize sheets client", "error", err)
			os.Exit(1)
		}
		exporter = client
		logger.Info("Sheets export enabled", "spreadsheet_id", appCfg.SheetsSpreadsheetID)
	} else {
		logger.Info("Sheets export disabled - no SHEETS_SPREADSHEET_ID provided")
	}

	amqpClient, err := amqp.NewClient(appCfg.AMQPURL, appCfg.AMQPExchange, appCfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	processor := services.NewSummaryProcessor(repo, exporter)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := amqpClient.ConsumeSummaryRefresh(ctx, func(msg *amqp.SummaryRefreshMessage) error {
			return processor.HandleRefreshMessage(ctx, msg)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	// Interval sweep catches refreshes whose messages never arrived.
	g.Go(func() error {
		ticker := time.NewTicker(appCfg.SummaryInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := processor.RefreshAll(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("Scheduled summary sweep failed", "error", err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
