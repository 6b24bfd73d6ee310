package main

import (
	"context"
	"errors"
	"os"
	"time"

	"bankledger/internal/amqp"
	"bankledger/internal/audit"
	"bankledger/internal/backend"
	"bankledger/internal/cli"
	"bankledger/internal/ledger"
	"bankledger/internal/log"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Stdout)
	logger.Info("Starting ledger-auditor")

	cfg := cli.LoadAndValidateConfig(logger)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	store, err := backend.Open(context.Background(), bcfg, logger)
	if err != nil {
		logger.Error("Failed to open backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}

	l := ledger.New(store.Accounts, store.Log, ledger.WithLogger(logger))
	auditor := audit.NewAuditor(l, cfg.AuditConcurrency, logger)

	// Event consumption is optional; the periodic audit always runs
	var client *amqp.Client
	if cfg.AMQPEnabled() {
		client, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			store.Cleanup()
			os.Exit(1)
		}
		logger.Info("Initialized AMQP client",
			"exchange", cfg.AMQPExchange,
			"queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided, running periodic audits only")
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		if client != nil {
			if err := client.Close(); err != nil {
				logger.Warn("Failed to close AMQP client", log.FieldError, err)
			}
		}
	})

	if client != nil {
		go func() {
			if err := client.ConsumeWithRetry(ctx, auditor.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Event consumption failed", log.FieldError, err)
			}
		}()
	}

	finished := make(chan struct{})
	go func() {
		auditor.Run(ctx, cfg.AuditInterval)
		close(finished)
	}()

	cli.WaitForShutdown(ctx, done)
	<-finished

	if err := store.Cleanup(); err != nil {
		logger.Error("Failed to close backend", log.FieldError, err)
	}
	logger.Info("Auditor shutdown complete")
}
