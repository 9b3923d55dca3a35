// Command viewtrack runs the property view tracking service: view
// recording, per-property analytics, trending rankings, and the owner
// portfolio overview, behind the platform's API gateway.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/homegrid/viewtrack/pkg/analytics"
	"github.com/homegrid/viewtrack/pkg/api"
	"github.com/homegrid/viewtrack/pkg/async"
	"github.com/homegrid/viewtrack/pkg/config"
	"github.com/homegrid/viewtrack/pkg/observability"
	"github.com/homegrid/viewtrack/pkg/property"
	"github.com/homegrid/viewtrack/pkg/store"
	"github.com/homegrid/viewtrack/pkg/views"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "viewtrack: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info("starting viewtrack service")

	// Storage
	conns, err := store.NewConnectionManager(store.ConnectionConfig{
		PrimaryURL:  cfg.Storage.PostgresURL,
		ReplicaURLs: cfg.Storage.ReplicaURLs(),
		MaxConns:    cfg.Storage.PostgresMaxConns,
		MinConns:    cfg.Storage.PostgresMinConns,
		Timeout:     cfg.Storage.PostgresTimeout,
	})
	if err != nil {
		return err
	}
	defer conns.Close()

	if err := store.Migrate(conns.Primary()); err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.Storage.CacheEnabled {
		redisClient, err = store.NewRedisClient(cfg.Storage)
		if err != nil {
			return err
		}
		defer redisClient.Close()
	}

	appCtx, cancelApp := context.WithCancel(context.Background())
	defer cancelApp()

	// Observability
	registry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
		metrics.StartDBStatsCollector(appCtx, conns.Primary(), 15*time.Second)
	}

	// Domain services
	properties := property.NewStore(conns.Replica(),
		property.WithCache(cfg.Storage.PropertyCacheSize, cfg.Storage.PropertyCacheTTL),
		property.WithMetrics(metrics),
	)

	passivePool := async.NewWorkerPool(appCtx,
		cfg.Tracking.PassiveWorkers, "passive view persistence", cfg.Tracking.PassiveTimeout)

	recorderOpts := []views.RecorderOption{
		views.WithPassivePool(passivePool),
		views.WithPassiveTimeout(cfg.Tracking.PassiveTimeout),
		views.WithMetrics(metrics),
	}
	analyticsOpts := []analytics.ServiceOption{analytics.WithMetrics(metrics)}
	if redisClient != nil {
		recorderOpts = append(recorderOpts, views.WithDedupCache(views.NewDedupCache(redisClient)))
		analyticsOpts = append(analyticsOpts, analytics.WithReportCache(analytics.NewReportCache(redisClient, 0)))
	}

	recorder := views.NewRecorder(conns.Primary(), properties, logger, recorderOpts...)
	analyticsSvc := analytics.NewService(conns.Replica(), analyticsOpts...)
	ranker := analytics.NewRanker(conns.Replica())
	aggregator := analytics.NewAggregator(conns.Replica())

	server := api.NewServer(api.Config{
		Recorder:   recorder,
		Analytics:  analyticsSvc,
		Ranker:     ranker,
		Aggregator: aggregator,
		Properties: properties,
		Logger:     logger,
		Metrics:    metrics,
	})

	// Health and metrics on a separate port for the orchestrator
	health := observability.NewHealthChecker(conns.Primary(), redisClient)
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", health.Liveness)
	healthMux.HandleFunc("/readyz", health.Readiness)
	if cfg.Observability.MetricsEnabled {
		healthMux.Handle("/metrics", observability.Handler(registry))
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}
	go func() {
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("health server failed")
		}
	}()

	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return healthServer.Shutdown(ctx)
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		// Drain queued passive persists before the pools close
		err := passivePool.Shutdown(10 * time.Second)
		cancelApp()
		return err
	})

	go func() {
		logger.WithField("addr", httpServer.Addr).Info("listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("http server failed")
		}
	}()

	return shutdown.WaitForShutdown()
}
