// Command alertd consumes lightning strikes from Kafka, matches them against
// the asset registry, and publishes one alert per asset in a struck bucket.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	fileadapter "github.com/couchcryptid/lightning-alert/internal/adapter/file"
	httpadapter "github.com/couchcryptid/lightning-alert/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/lightning-alert/internal/adapter/kafka"
	"github.com/couchcryptid/lightning-alert/internal/adapter/mapbox"
	"github.com/couchcryptid/lightning-alert/internal/alert"
	"github.com/couchcryptid/lightning-alert/internal/config"
	"github.com/couchcryptid/lightning-alert/internal/domain"
	"github.com/couchcryptid/lightning-alert/internal/observability"
	"github.com/couchcryptid/lightning-alert/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	assets, err := loadAssets(cfg, logger, metrics)
	if err != nil {
		logger.Error("failed to load asset registry", "path", cfg.AssetsFile, "error", err)
		os.Exit(1)
	}

	suppressor := alert.NewSuppressor(cfg.AlertSuppressionWindow)
	defer suppressor.Close()

	matcher, err := alert.NewMatcher(assets, suppressor)
	if err != nil {
		logger.Error("failed to create matcher", "error", err)
		os.Exit(1)
	}

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, cfg.MapboxCacheTTL, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(matcher, geocoder, logger, metrics)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, assets, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start alert pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}

func loadAssets(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*alert.AssetIndex, error) {
	f, err := os.Open(cfg.AssetsFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ix := alert.NewAssetIndex(cfg.DetailLevel)
	if err := fileadapter.LoadAssets(f, ix, logger, metrics); err != nil {
		return nil, err
	}
	return ix, nil
}
