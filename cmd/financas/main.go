package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"financas/internal/amqp"
	"financas/internal/cli"
	apphttp "financas/internal/http"
	"financas/internal/ledger"
	gledger "financas/internal/ledger/google"
	mem "financas/internal/ledger/memory"
	"financas/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitRepository(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	var (
		store  ledger.Store
		legacy ledger.LegacyMirror
	)
	switch cfg.LedgerBackend {
	case "sheets":
		client, err := gledger.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize ledger client", "error", err)
			os.Exit(1)
		}
		mirror, err := gledger.NewLegacyFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize legacy mirror client", "error", err)
			os.Exit(1)
		}
		store, legacy = client, mirror
		logger.Info("Initialized sheets ledger backend",
			"spreadsheet_id", cfg.LedgerSpreadsheetID,
			"legacy_enabled", cfg.LegacySpreadsheetID != "")
	default:
		store, legacy = mem.NewStore(), mem.NewMirror()
		logger.Info("Initialized memory ledger backend")
	}

	movements := services.NewMovementService(repo)
	totalizer := services.NewTotalizerService(repo,
		services.Totalizer{AmbosIBucket: cfg.AmbosIBucket()},
		store, legacy)

	// The queue is optional for the API server: without it async totalizer
	// runs are rejected but everything else works.
	var publisher apphttp.TotalizerPublisher
	if queue, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue); err != nil {
		logger.Warn("AMQP unavailable, async totalizer runs disabled", "error", err)
	} else {
		defer queue.Close()
		publisher = queue
	}

	srv := apphttp.NewServer(cfg, repo, movements, totalizer, publisher)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting financas server", "port", cfg.Port, "backend", cfg.LedgerBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
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
