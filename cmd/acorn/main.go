package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"acorn/internal/amqp"
	"acorn/internal/config"
	"acorn/internal/feed"
	apphttp "acorn/internal/http"
	applog "acorn/internal/log"
	"acorn/internal/services"
	"acorn/internal/storage"
)

func main() {
	// Load .env for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	slog.SetDefault(logger.Logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// AMQP is optional: without it, deposits still land in the ledger and
	// the worker's interval sweep picks up the refresh.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, continuing without summary refresh messages", "error", err)
		} else {
			defer amqpClient.Close()
		}
	}

	hub := feed.NewHub()
	overview := services.NewOverviewService(repo, cfg.SummaryMonths)
	deposits := services.NewDepositService(repo, hub)

	// Every mutation publishes a feed event; bridge those to AMQP so the
	// worker refreshes the owner's summary. Publish failures are logged and
	// dropped; the worker's interval sweep covers the gap.
	if amqpClient != nil {
		hub.SubscribeAll(func(ev feed.Event) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := amqpClient.PublishSummaryRefresh(ctx, ev.OwnerID, ev.Reason); err != nil {
				logger.Warn("Failed to publish summary refresh",
					"owner_id", ev.OwnerID, "reason", ev.Reason, "error", err)
			}
		})
	}

	srv := apphttp.NewServer(":"+cfg.Port, repo, overview, deposits, hub, cfg.OverviewCacheTTL)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting acorn server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
