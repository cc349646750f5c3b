package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	ftpadapter "github.com/couchcryptid/vissr-imagery-service/internal/adapter/ftp"
	httpadapter "github.com/couchcryptid/vissr-imagery-service/internal/adapter/http"
	"github.com/couchcryptid/vissr-imagery-service/internal/cache"
	"github.com/couchcryptid/vissr-imagery-service/internal/config"
	"github.com/couchcryptid/vissr-imagery-service/internal/domain"
	"github.com/couchcryptid/vissr-imagery-service/internal/observability"
	"github.com/couchcryptid/vissr-imagery-service/internal/pipeline"
	"github.com/couchcryptid/vissr-imagery-service/internal/render"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	fetcher := ftpadapter.NewFetcher(ftpadapter.Config{
		Host:        cfg.FTPHost,
		Timeout:     cfg.FTPTimeout,
		DisableEPSV: cfg.FTPDisableEPSV,
	}, metrics, logger)

	renderOpts := render.DefaultOptions()
	renderOpts.VerticalStretch = cfg.VerticalStretch
	renderOpts.HorizontalStretch = cfg.HorizontalStretch
	renderOpts.FontPath = cfg.FontPath
	renderOpts.Attribution = cfg.Attribution
	renderer := render.New(renderOpts, logger)

	results := cache.New(cfg.CacheSize, cfg.CacheTTL, clockwork.NewRealClock())

	generator := pipeline.New(fetcher, renderer, results, pipeline.Settings{
		Calibration: domain.Calibration{
			MinKelvin: cfg.CalibrationMinKelvin,
			MaxKelvin: cfg.CalibrationMaxKelvin,
		},
		ScratchRoot: cfg.ScratchRoot,
		JPEGQuality: cfg.JPEGQuality,
	}, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, generator, generator, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
