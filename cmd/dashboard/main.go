package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	httpadapter "github.com/couchcryptid/crisis-dashboard/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/crisis-dashboard/internal/adapter/kafka"
	"github.com/couchcryptid/crisis-dashboard/internal/adapter/mapbox"
	"github.com/couchcryptid/crisis-dashboard/internal/adapter/postgres"
	redisadapter "github.com/couchcryptid/crisis-dashboard/internal/adapter/redis"
	"github.com/couchcryptid/crisis-dashboard/internal/auth"
	"github.com/couchcryptid/crisis-dashboard/internal/config"
	"github.com/couchcryptid/crisis-dashboard/internal/domain"
	"github.com/couchcryptid/crisis-dashboard/internal/helpdesk"
	"github.com/couchcryptid/crisis-dashboard/internal/observability"
	"github.com/couchcryptid/crisis-dashboard/internal/pipeline"
)

func main() {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	store := postgres.NewStore(pool)
	if err := store.ApplySchema(ctx); err != nil {
		logger.Error("failed to apply database schema", "error", err)
		os.Exit(1)
	}

	// Snapshot cache: Redis when configured so replicas share one snapshot.
	var cache pipeline.SnapshotCache
	if cfg.RedisURL != "" {
		client, err := redisadapter.Connect(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		cache = redisadapter.NewSnapshotCache(client, redisadapter.DefaultKey, cfg.SnapshotTTL)
		logger.Info("redis snapshot cache enabled", "ttl", cfg.SnapshotTTL)
	} else {
		cache = pipeline.NewMemoryCache(cfg.SnapshotTTL)
		logger.Info("in-memory snapshot cache enabled", "ttl", cfg.SnapshotTTL)
	}

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	normalizer := domain.NewNormalizer(nil)
	p := pipeline.New(store, cache, pipeline.Options{
		View:         cfg.ViewOptions(),
		FetchLimit:   cfg.RecordFetchLimit,
		GeocodeLimit: cfg.MapboxLookupLimit,
		Normalizer:   normalizer,
		Geocoder:     geocoder,
	}, logger, metrics)

	publisher := kafkaadapter.NewPublisher(cfg, logger)
	scorer := domain.NewScorer(store, domain.DefaultGazetteer(), normalizer, cfg.ConfidenceWindow, logger)
	desk := helpdesk.New(store, scorer, publisher, logger, metrics)
	gate := auth.NewGate(store, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, desk, gate, httpadapter.Options{
		HelpRateLimit: cfg.HelpRateLimit,
		HelpRateBurst: cfg.HelpRateBurst,
	}, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// The first snapshot makes the service ready. A failure here is retried
	// by the scheduler and by the first dashboard request.
	if err := p.Refresh(ctx); err != nil {
		logger.Error("initial snapshot refresh failed", "error", err)
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.RefreshSchedule, func() {
		if err := p.Refresh(ctx); err != nil {
			logger.Error("scheduled snapshot refresh failed", "error", err)
		}
	}); err != nil {
		logger.Error("invalid refresh schedule", "schedule", cfg.RefreshSchedule, "error", err)
		os.Exit(1)
	}
	scheduler.Start()

	// Start change feed watcher.
	var feed *kafkaadapter.ChangeFeed
	if cfg.ChangeFeedEnabled {
		feed = kafkaadapter.NewChangeFeed(cfg, logger)
		go func() {
			if err := p.Watch(ctx, feed); err != nil {
				logger.Error("change feed watcher error", "error", err)
			}
		}()
	} else {
		logger.Info("change feed disabled, relying on scheduled refresh", "schedule", cfg.RefreshSchedule)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	<-scheduler.Stop().Done()
	if feed != nil {
		if err := feed.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if err := publisher.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
