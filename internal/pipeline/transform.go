package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/couchcryptid/traffic-zone-classifier/internal/domain"
	"github.com/couchcryptid/traffic-zone-classifier/internal/observability"
)

// ReportTransformer implements Transformer: it parses a raw report, optionally
// enriches it with geocoding, classifies it, and serializes the result.
type ReportTransformer struct {
	classifier *domain.Classifier
	geocoder   domain.Geocoder
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewTransformer creates a ReportTransformer. Pass a nil geocoder to disable
// geocoding enrichment.
func NewTransformer(classifier *domain.Classifier, geocoder domain.Geocoder, logger *slog.Logger, metrics *observability.Metrics) *ReportTransformer {
	return &ReportTransformer{
		classifier: classifier,
		geocoder:   geocoder,
		logger:     logger,
		metrics:    metrics,
	}
}

func (t *ReportTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	report, err := domain.ParseRawEvent(raw)
	if err != nil {
		t.countValidation(err)
		return domain.OutputEvent{}, err
	}

	report = domain.EnrichWithGeocoding(ctx, report, t.geocoder, t.logger)

	result, err := t.classifier.ClassifyReport(report)
	if err != nil {
		t.countValidation(err)
		return domain.OutputEvent{}, err
	}

	t.metrics.Classifications.WithLabelValues(string(result.Severity)).Inc()
	t.metrics.GeofenceMatches.Observe(float64(result.GeofenceMatches))
	if result.IsStrict {
		t.metrics.StrictZoneHits.Inc()
	}
	if result.ZoneFallback {
		t.metrics.ZoneFallbacks.Inc()
	}

	t.logger.Debug("report classified",
		"id", result.SubjectID,
		"severity", result.Severity,
		"risk_score", result.RiskScore,
		"priority", result.Priority,
		"geo_source", report.GeoSource,
	)

	return domain.SerializeClassification(result)
}

func (t *ReportTransformer) countValidation(err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		t.metrics.ValidationErrors.WithLabelValues(verr.Field).Inc()
	}
}
