package main

import (
	"context"
	"os"

	"fintrack/internal/amqp"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/log"
	gsheet "fintrack/internal/sheets/google"
	"fintrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentWorker)
	logger.Info("Starting fintrack-worker")

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)

	sheetsClient, err := gsheet.New(context.Background(), gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	if err := sheetsClient.EnsureHeader(context.Background()); err != nil {
		// Rows can still be appended; the header is cosmetic.
		logger.Error("Failed to write ledger header", "error", err)
	}
	logger.Info("Google Sheets client initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}

	exporter := worker.NewExportWorker(sheetsClient)

	ctx, done := cli.GracefulShutdown(logger, cli.ShutdownTimeout, nil)

	runErr := make(chan error, 1)
	go func() {
		runErr <- exporter.Run(ctx, amqpClient)
	}()

	exitCode := 0
	select {
	case err := <-runErr:
		if err != nil {
			logger.Error("Message consumption failed", "error", err)
			exitCode = 1
		}
	case <-done:
		<-runErr
	}

	if err := amqpClient.Close(); err != nil {
		logger.Error("Failed to close AMQP client", "error", err)
	}
	logger.Info("Worker stopped", "stats", exporter.Stats())
	os.Exit(exitCode)
}
