package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"billtrack/internal/backend"
	"billtrack/internal/cache"
	"billtrack/internal/cli"
	"billtrack/internal/config"
	apphttp "billtrack/internal/http"
	applog "billtrack/internal/log"
	"billtrack/internal/middleware/ratelimit"
	"billtrack/internal/report"

	"golang.org/x/sync/errgroup"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Stdout, applog.ComponentApp)
	logger.Info("Starting billtrack-server")

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *applog.Logger) error {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", applog.FieldError, err)
		}
	}()

	if created, err := report.EnsureSample(cfg.StaticDir, time.Now()); err != nil {
		logger.Warn("Could not create sample PDF", applog.FieldError, err)
	} else if created {
		logger.Info("Sample PDF created", "dir", cfg.StaticDir)
	}

	caches := cache.NewManager(logger)
	for _, c := range res.Service.Caches() {
		caches.Register(c)
	}
	caches.StartCleanup(10 * time.Minute)
	defer caches.Stop()

	srv := apphttp.NewServer(":"+cfg.Port, res.Service, apphttp.Options{
		StaticDir:   cfg.StaticDir,
		UploadLimit: cfg.UploadLimit(),
		RateLimit:   ratelimit.DefaultConfig(),
		Logger:      logger,
	})
	srv.ReadTimeout = 30 * time.Second
	// Uploads run text extraction inline.
	srv.WriteTimeout = 5 * time.Minute
	srv.IdleTimeout = 60 * time.Second

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening",
			"addr", srv.Addr,
			"backend", backendCfg.Type,
			"change_events", res.Publishing)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		logger.Info("HTTP server stopped")
		return nil
	})
	return g.Wait()
}
