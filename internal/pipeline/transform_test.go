package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/traffic-zone-classifier/internal/domain"
	"github.com/couchcryptid/traffic-zone-classifier/internal/observability"
	"github.com/couchcryptid/traffic-zone-classifier/internal/pipeline"
	"github.com/couchcryptid/traffic-zone-classifier/internal/tables"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var classifiedAt = time.Date(2026, time.March, 2, 8, 30, 0, 0, time.UTC)

type stubGeocoder struct {
	forward domain.GeocodingResult
	err     error
}

func (s *stubGeocoder) ForwardGeocode(_ context.Context, _ string) (domain.GeocodingResult, error) {
	return s.forward, s.err
}

func (s *stubGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (domain.GeocodingResult, error) {
	return domain.GeocodingResult{}, s.err
}

func newReportTransformer(t *testing.T, geocoder domain.Geocoder) (*pipeline.ReportTransformer, *observability.Metrics) {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(classifiedAt))
	t.Cleanup(func() { domain.SetClock(nil) })

	tbl, err := tables.Load("")
	require.NoError(t, err)

	metrics := observability.NewMetricsForTesting()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return pipeline.NewTransformer(tbl.Classifier(false), geocoder, logger, metrics), metrics
}

func rawReport(payload string) domain.RawEvent {
	return domain.RawEvent{Key: []byte("k"), Value: []byte(payload)}
}

func decode(t *testing.T, out domain.OutputEvent) domain.RiskClassification {
	t.Helper()
	var got domain.RiskClassification
	require.NoError(t, json.Unmarshal(out.Value, &got))
	return got
}

func strPtr(s string) *string { return &s }

func TestReportTransformer_StrictGeofence(t *testing.T) {
	tfm, metrics := newReportTransformer(t, nil)

	out, err := tfm.Transform(context.Background(), rawReport(`{
		"id": "rpt-100",
		"type": "violation",
		"road_name": "Alabang-Zapote Road",
		"lat": 14.4466,
		"lon": 120.9822
	}`))
	require.NoError(t, err)

	assert.Equal(t, []byte("rpt-100"), out.Key)
	assert.Equal(t, "critical", out.Headers["severity"])
	assert.Equal(t, "urgent", out.Headers["priority"])

	want := domain.RiskClassification{
		SubjectID:        "rpt-100",
		Zone:             strPtr("Almanza Uno"),
		Category:         strPtr("fire_station"),
		Severity:         domain.SeverityCritical,
		RiskScore:        90,
		IsStrict:         true,
		Priority:         domain.PriorityUrgent,
		ReportType:       domain.ReportViolation,
		Geofence:         strPtr("Las Piñas Central Fire Station"),
		GeofenceMatches:  1,
		FineAmount:       2000,
		EnforcementHours: "24/7",
		ClassifiedAt:     classifiedAt,
	}
	if diff := cmp.Diff(want, decode(t, out)); diff != "" {
		t.Fatalf("classification mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Classifications.WithLabelValues("critical")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StrictZoneHits))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.ZoneFallbacks))
}

func TestReportTransformer_UnknownRoadFallsBack(t *testing.T) {
	tfm, metrics := newReportTransformer(t, nil)

	out, err := tfm.Transform(context.Background(), rawReport(`{"id":"rpt-101","road_name":"Unknown Street XYZ"}`))
	require.NoError(t, err)

	got := decode(t, out)
	require.NotNil(t, got.Zone)
	assert.Equal(t, "Almanza Uno", *got.Zone)
	assert.Nil(t, got.Category)
	assert.Nil(t, got.Geofence)
	assert.Equal(t, domain.SeverityLow, got.Severity)
	assert.InDelta(t, 20.0, got.RiskScore, 1e-9)
	assert.Equal(t, domain.ReportIncident, got.ReportType)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ZoneFallbacks))
}

func TestReportTransformer_ForwardGeocodeReachesGeofence(t *testing.T) {
	geo := &stubGeocoder{forward: domain.GeocodingResult{
		Lat:              14.4504,
		Lon:              121.0170,
		FormattedAddress: "Festival Mall, Alabang-Zapote Road, Las Piñas",
		Confidence:       0.9,
	}}
	tfm, _ := newReportTransformer(t, geo)

	out, err := tfm.Transform(context.Background(), rawReport(`{"id":"rpt-102","road_name":"Festival Mall","photo_url":"https://img.example/1.jpg"}`))
	require.NoError(t, err)

	got := decode(t, out)
	require.NotNil(t, got.Geofence)
	assert.Equal(t, "Festival Mall Bus Stop", *got.Geofence)
	require.NotNil(t, got.Category)
	assert.Equal(t, "bus_stop", *got.Category)
	// 40 base + 10 photo bonus.
	assert.InDelta(t, 50.0, got.RiskScore, 1e-9)
	assert.Equal(t, domain.SeverityModerate, got.Severity)
	assert.Equal(t, domain.PriorityHigh, got.Priority)
}

func TestReportTransformer_GeocodeFailureStillClassifies(t *testing.T) {
	tfm, _ := newReportTransformer(t, &stubGeocoder{err: errors.New("timeout")})

	out, err := tfm.Transform(context.Background(), rawReport(`{"id":"rpt-103","road_name":"Daang Hari"}`))
	require.NoError(t, err)

	got := decode(t, out)
	require.NotNil(t, got.Zone)
	assert.Equal(t, "Almanza Dos", *got.Zone)
	assert.Zero(t, got.GeofenceMatches)
}

func TestReportTransformer_ValidationErrors(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		field   string
	}{
		{"negative incident count", `{"id":"a","road_name":"Zapote","historical_incident_count":-1}`, "historical_incident_count"},
		{"unknown severity", `{"id":"b","road_name":"Zapote","reported_severity":"extreme"}`, "reported_severity"},
		{"unknown category", `{"id":"c","road_name":"Zapote","category":"stadium"}`, "category"},
		{"unknown type", `{"id":"d","road_name":"Zapote","type":"complaint"}`, "type"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tfm, metrics := newReportTransformer(t, nil)

			_, err := tfm.Transform(context.Background(), rawReport(tc.payload))
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ValidationErrors.WithLabelValues(tc.field)))
		})
	}
}

func TestReportTransformer_MalformedJSON(t *testing.T) {
	tfm, _ := newReportTransformer(t, nil)

	_, err := tfm.Transform(context.Background(), rawReport("not json"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrValidation)
}
