package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/couchcryptid/traffic-zone-classifier/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/traffic-zone-classifier/internal/adapter/kafka"
	"github.com/couchcryptid/traffic-zone-classifier/internal/adapter/mapbox"
	"github.com/couchcryptid/traffic-zone-classifier/internal/config"
	"github.com/couchcryptid/traffic-zone-classifier/internal/domain"
	"github.com/couchcryptid/traffic-zone-classifier/internal/observability"
	"github.com/couchcryptid/traffic-zone-classifier/internal/pipeline"
	"github.com/couchcryptid/traffic-zone-classifier/internal/tables"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat).With("service", "traffic-zone-classifier")
	metrics := observability.NewMetrics()

	tbl, err := tables.Load(cfg.TablesPath)
	if err != nil {
		logger.Error("failed to load classification tables", "error", err, "path", cfg.TablesPath)
		os.Exit(1)
	}
	for _, issue := range tables.Lint(tbl) {
		logger.Warn("tables lint", "issue", issue.String())
	}
	classifier := tbl.Classifier(cfg.StrictCoordinates)
	logger.Info("classification tables loaded",
		"version", tbl.Version,
		"zones", len(tbl.Zones),
		"geofences", len(tbl.Geofences),
		"strict_coordinates", cfg.StrictCoordinates,
	)

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxCountry, cfg.MapboxTimeout, metrics, logger)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled",
			"cache_size", cfg.MapboxCacheSize,
			"timeout", cfg.MapboxTimeout,
			"country", cfg.MapboxCountry,
		)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(classifier, geocoder, logger, metrics)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, httpadapter.TablesInfo{
		Version:           tbl.Version,
		DefaultZone:       tbl.DefaultZone,
		Zones:             len(tbl.Zones),
		Geofences:         len(tbl.Geofences),
		StrictCoordinates: cfg.StrictCoordinates,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start classification pipeline.
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
