package main

import (
	"context"
	"errors"
	"io"
	"os"

	"billtrack/internal/api"
	"billtrack/internal/cli"
	"billtrack/internal/config"
	applog "billtrack/internal/log"
	"billtrack/internal/rowsync"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Stderr, applog.ComponentCLI)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateClient)

	client, err := api.New(api.Config{
		BaseURL:        cfg.APIBaseURL,
		RequestTimeout: cfg.RequestTimeout,
		OCRTimeout:     cfg.OCRTimeout,
		Logger:         logger,
	})
	if err != nil {
		logger.Error("Failed to create API client", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Debug("Using API", "base_url", cfg.APIBaseURL)

	store := rowsync.New(client, logger)
	repl := cli.NewREPL(store, cli.Options{
		Reports:    client,
		Activity:   client.Tracker(),
		ReportPath: cfg.ReportPath,
		Logger:     logger,
	})

	// Ctrl-C keeps its default behaviour and ends the session; the REPL
	// itself stops on "quit" or end of input.
	if err := repl.Run(context.Background()); err != nil && !errors.Is(err, io.EOF) {
		logger.Error("Session ended with error", applog.FieldError, err)
		os.Exit(1)
	}
}
