package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"financas/internal/amqp"
	"financas/internal/cli"
	"financas/internal/ledger"
	gledger "financas/internal/ledger/google"
	mem "financas/internal/ledger/memory"
	"financas/internal/services"
	"financas/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting financas-worker")

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

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	totalizer := services.NewTotalizerService(repo,
		services.Totalizer{AmbosIBucket: cfg.AmbosIBucket()},
		store, legacy)
	runWorker := worker.NewTotalizerWorker(totalizer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := amqpClient.ConsumeTotalizerRuns(gctx, func(msg *amqp.TotalizerRunMessage) error {
			return runWorker.HandleRunMessage(gctx, msg)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
