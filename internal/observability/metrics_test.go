package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewMetricsForTesting_Independent(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()

	a.MessagesConsumed.Add(3)
	a.Classifications.WithLabelValues("high").Inc()

	assert.Equal(t, 3.0, testutil.ToFloat64(a.MessagesConsumed))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.MessagesConsumed))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.Classifications.WithLabelValues("high")))
}

func TestMetricNames(t *testing.T) {
	m := NewMetricsForTesting()
	m.ValidationErrors.WithLabelValues("coordinates").Inc()

	assert.Equal(t, 1, testutil.CollectAndCount(m.ValidationErrors, "zone_classifier_validation_errors_total"))
	assert.Equal(t, 1, testutil.CollectAndCount(m.PipelineRunning, "zone_classifier_pipeline_running"))
	assert.Equal(t, 1, testutil.CollectAndCount(m.LoadRetries, "zone_classifier_load_retries_total"))
}
