package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"transstats/internal/amqp"
	"transstats/internal/cli"
	"transstats/internal/core"
	apphttp "transstats/internal/http"
	applog "transstats/internal/log"
	"transstats/internal/metrics"
	"transstats/internal/services"
)

func main() {
	cli.LoadEnvFile()

	cfg := cli.LoadAndValidateConfig(cli.SetupLogger("info"))
	logger := cli.SetupLogger(cfg.LogLevel)

	src, err := cli.OpenReportSource(context.Background(), logger.WithComponent(applog.ComponentReports).Logger, cfg)
	if err != nil {
		logger.Error("Failed to open report source", applog.FieldError, err, applog.FieldSource, cfg.ReportSource)
		os.Exit(1)
	}

	m := metrics.New()
	loader := services.NewLoader(src.Fetcher,
		services.WithConcurrency(cfg.FetchConcurrency),
		services.WithFetchRecorder(m))

	statsOpts := []services.StatsOption{
		services.WithEpoch(cfg.Epoch),
		services.WithLoadRecorder(m),
	}

	// AMQP is optional; without it loads are simply not announced.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpLogger := logger.WithComponent(applog.ComponentAMQP)
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			amqpLogger.Warn("AMQP unavailable, load events disabled", applog.FieldError, err)
		} else {
			statsOpts = append(statsOpts, services.WithNotifier(amqpClient))
			amqpLogger.Info("AMQP notifier enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	filters := services.NewFilterStore(core.DefaultFilters(cfg.Epoch, time.Now()))
	stats := services.NewStatsService(loader, filters, statsOpts...)

	srv, err := apphttp.NewServer(":"+cfg.Port, stats,
		apphttp.WithLogger(logger),
		apphttp.WithMetrics(m),
		apphttp.WithViewCache(cfg.ViewCacheSize, cfg.ViewCacheTTL),
		apphttp.WithRateLimit(cfg.RateLimitPerMinute),
		apphttp.WithTrustedProxies(cfg.TrustedProxies))
	if err != nil {
		logger.Error("Failed to create HTTP server", applog.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", applog.FieldError, err)
			}
		}
		if err := src.Close(); err != nil {
			logger.Warn("Report source close error", applog.FieldError, err)
		}
	})

	// The first load starts at boot.
	stats.Trigger(ctx)

	logger.Info("Starting transstats server",
		"port", cfg.Port,
		applog.FieldSource, cfg.ReportSource,
		"epoch", cfg.Epoch)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
