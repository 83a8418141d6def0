package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/traffic-zone-classifier/internal/domain"
	"github.com/couchcryptid/traffic-zone-classifier/internal/observability"
	"github.com/couchcryptid/traffic-zone-classifier/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockExtractor struct {
	batches [][]domain.RawEvent
	index   atomic.Int64
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawEvent, error) {
	i := int(m.index.Add(1) - 1)
	if i >= len(m.batches) {
		// block until context cancelled to simulate waiting for messages
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.batches[i], nil
}

type mockTransformer struct {
	failKey string
}

func (m *mockTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	if m.failKey != "" && string(raw.Key) == m.failKey {
		return domain.OutputEvent{}, errors.New("bad data")
	}
	return domain.OutputEvent{Key: raw.Key, Value: raw.Value}, nil
}

type mockLoader struct {
	mu       sync.Mutex
	err      error
	failures int // fail this many calls before succeeding, when err is set
	calls    int
	loaded   []domain.OutputEvent
}

func (m *mockLoader) LoadBatch(_ context.Context, events []domain.OutputEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil && (m.failures == 0 || m.calls <= m.failures) {
		return m.err
	}
	m.loaded = append(m.loaded, events...)
	return nil
}

func (m *mockLoader) snapshot() ([]domain.OutputEvent, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.OutputEvent(nil), m.loaded...), m.calls
}

type commitRecorder struct {
	mu      sync.Mutex
	offsets []int64
}

func (c *commitRecorder) raw(key string, offset int64) domain.RawEvent {
	return domain.RawEvent{
		Key:    []byte(key),
		Value:  []byte(`{"id":"` + key + `"}`),
		Topic:  "raw-traffic-reports",
		Offset: offset,
		Commit: func(_ context.Context) error {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.offsets = append(c.offsets, offset)
			return nil
		},
	}
}

func (c *commitRecorder) committed() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int64(nil), c.offsets...)
}

func runFor(t *testing.T, p *pipeline.Pipeline, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	require.NoError(t, p.Run(ctx))
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	commits := &commitRecorder{}
	ext := &mockExtractor{batches: [][]domain.RawEvent{{commits.raw("rpt-1", 1), commits.raw("rpt-2", 2)}}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), metrics, 50)
	require.Error(t, p.CheckReadiness(context.Background()))

	runFor(t, p, 300*time.Millisecond)

	loaded, calls := ldr.snapshot()
	assert.Equal(t, 1, calls, "batch is loaded in one call")
	require.Len(t, loaded, 2)
	assert.Equal(t, []byte("rpt-1"), loaded[0].Key)
	assert.Equal(t, []int64{1, 2}, commits.committed())
	assert.NoError(t, p.CheckReadiness(context.Background()))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.MessagesConsumed))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.MessagesProduced))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.PipelineRunning), "gauge resets on exit")
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ldr := &mockLoader{}
	p := pipeline.New(&mockExtractor{}, &mockTransformer{}, ldr, slog.Default(), observability.NewMetricsForTesting(), 50)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	loaded, _ := ldr.snapshot()
	assert.Empty(t, loaded)
}

func TestPipeline_Run_PoisonPillSkippedAndCommitted(t *testing.T) {
	commits := &commitRecorder{}
	ext := &mockExtractor{batches: [][]domain.RawEvent{{commits.raw("bad", 7), commits.raw("good", 8)}}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, &mockTransformer{failKey: "bad"}, ldr, slog.Default(), metrics, 50)
	runFor(t, p, 300*time.Millisecond)

	loaded, _ := ldr.snapshot()
	require.Len(t, loaded, 1)
	assert.Equal(t, []byte("good"), loaded[0].Key)
	assert.ElementsMatch(t, []int64{7, 8}, commits.committed())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.TransformErrors))
}

func TestPipeline_Run_AllFailNotReady(t *testing.T) {
	commits := &commitRecorder{}
	ext := &mockExtractor{batches: [][]domain.RawEvent{{commits.raw("bad", 3)}}}
	ldr := &mockLoader{}

	p := pipeline.New(ext, &mockTransformer{failKey: "bad"}, ldr, slog.Default(), observability.NewMetricsForTesting(), 50)
	runFor(t, p, 300*time.Millisecond)

	_, calls := ldr.snapshot()
	assert.Zero(t, calls, "empty batch is never loaded")
	assert.Equal(t, []int64{3}, commits.committed())
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_LoadFailureDoesNotCommit(t *testing.T) {
	commits := &commitRecorder{}
	ext := &mockExtractor{batches: [][]domain.RawEvent{{commits.raw("rpt-1", 1)}}}
	ldr := &mockLoader{err: errors.New("broker unavailable")}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), metrics, 50)
	runFor(t, p, 300*time.Millisecond)

	_, calls := ldr.snapshot()
	assert.Greater(t, calls, 1, "the failed batch is retried")
	assert.Empty(t, commits.committed())
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.MessagesProduced))
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_LoadFailureRetriesSameBatch(t *testing.T) {
	commits := &commitRecorder{}
	ext := &mockExtractor{batches: [][]domain.RawEvent{
		{commits.raw("rpt-1", 1)},
		{commits.raw("rpt-2", 2)},
	}}
	ldr := &mockLoader{err: errors.New("broker unavailable"), failures: 1}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), metrics, 50)
	runFor(t, p, time.Second)

	loaded, calls := ldr.snapshot()
	require.Len(t, loaded, 2)
	assert.Equal(t, []byte("rpt-1"), loaded[0].Key, "failed batch is loaded before the next one")
	assert.Equal(t, []byte("rpt-2"), loaded[1].Key)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int64{1, 2}, commits.committed())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LoadRetries))
	assert.NoError(t, p.CheckReadiness(context.Background()))
}
