package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"billtrack/internal/amqp"
	"billtrack/internal/api"
	"billtrack/internal/cli"
	"billtrack/internal/config"
	applog "billtrack/internal/log"
	"billtrack/internal/sheets"
	gsheet "billtrack/internal/sheets/google"
	memledger "billtrack/internal/sheets/memory"
	"billtrack/internal/worker"

	"golang.org/x/sync/errgroup"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "keep ledger lines in memory instead of writing to Google Sheets")
	backfill := flag.Bool("backfill", false, "write a snapshot line for every row before consuming events")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Stdout, applog.ComponentWorker)
	logger.Info("Starting billtrack-worker", "dry_run", *dryRun, "backfill", *backfill)

	validate := (*config.Config).ValidateWorker
	if *dryRun {
		validate = (*config.Config).ValidateConsumer
	}
	cfg := cli.LoadAndValidateConfig(logger, validate)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	if err := run(ctx, cfg, logger, *dryRun, *backfill); err != nil {
		logger.Error("Worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *applog.Logger, dryRun, backfill bool) error {
	client, err := api.New(api.Config{
		BaseURL:        cfg.APIBaseURL,
		RequestTimeout: cfg.RequestTimeout,
		OCRTimeout:     cfg.OCRTimeout,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	var ledger sheets.LedgerWriter
	var dry *memledger.Store
	if dryRun {
		dry = memledger.New()
		ledger = dry
		logger.Info("Ledger kept in memory")
	} else {
		sheetsClient, err := gsheet.New(ctx, gsheet.Options{
			SpreadsheetID: cfg.GoogleSpreadsheetID,
			SheetName:     cfg.GoogleSheetName,
			Credentials: gsheet.Credentials{
				JSON:            cfg.GoogleServiceAccountJSON,
				File:            cfg.GoogleServiceAccountFile,
				ApplicationFile: cfg.GoogleApplicationCredFile,
			},
			OAuth: gsheet.OAuthCredentials{
				ClientJSON: cfg.GoogleOAuthClientJSON,
				ClientFile: cfg.GoogleOAuthClientFile,
				TokenFile:  cfg.GoogleOAuthTokenFile,
			},
		})
		if err != nil {
			return fmt.Errorf("google sheets: %w", err)
		}
		if err := sheetsClient.EnsureHeader(ctx); err != nil {
			return fmt.Errorf("google sheets header: %w", err)
		}
		ledger = sheetsClient
		logger.Info("Google Sheets ledger ready",
			"spreadsheet_id", cfg.GoogleSpreadsheetID,
			"sheet", cfg.GoogleSheetName)
	}

	ledgerWorker := worker.NewLedgerWorker(client, ledger, logger)

	if backfill {
		n, err := ledgerWorker.Backfill(ctx)
		if err != nil {
			return fmt.Errorf("backfill: %w", err)
		}
		logger.Info("Backfill complete", applog.FieldRowCount, n)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("amqp: %w", err)
	}
	defer amqpClient.Close()
	amqpClient.SetPrefetch(cfg.WorkerPrefetch)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := amqpClient.ConsumeRowEvents(gctx, ledgerWorker.HandleRowEvent)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	err = g.Wait()

	if dry != nil {
		entries, _ := dry.Entries(context.Background())
		logger.Info("Dry run finished", "ledger_lines", len(entries))
	}
	return err
}
