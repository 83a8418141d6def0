package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/couchcryptid/traffic-zone-classifier/internal/domain"
	"github.com/couchcryptid/traffic-zone-classifier/internal/observability"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// BatchExtractor reads up to batchSize raw reports from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer converts a raw report into a classification record.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error)
}

// BatchLoader writes classification records to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.OutputEvent) error
}

// Pipeline orchestrates the extract-classify-load loop.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// CheckReadiness returns nil once a batch has been loaded to the sink.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not processed any messages yet")
	}
	return nil
}

// Run consumes, classifies, and publishes batches until the context is
// cancelled. Broker failures are retried with exponential backoff; Run only
// returns on cancellation.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	delay := initialBackoff
	for ctx.Err() == nil {
		if err := p.runBatch(ctx); err != nil {
			if ctx.Err() != nil || !retry.SleepWithContext(ctx, delay) {
				break
			}
			delay = retry.NextBackoff(delay, maxBackoff)
			continue
		}
		delay = initialBackoff
	}

	p.logger.Info("pipeline stopping", "reason", context.Cause(ctx))
	return nil
}

// batchOutcome counts how a batch's messages were disposed of.
type batchOutcome struct {
	consumed int
	loaded   int
	skipped  int
}

// runBatch runs one extract-classify-load cycle. A non-nil error means the
// extract failed or the context ended while loading; classified messages are
// committed only after their records are loaded.
func (p *Pipeline) runBatch(ctx context.Context) error {
	start := time.Now()

	raws, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Error("extract batch failed", "error", err)
		}
		return err
	}
	if len(raws) == 0 {
		return nil
	}
	p.metrics.MessagesConsumed.Add(float64(len(raws)))
	p.metrics.BatchSize.Observe(float64(len(raws)))

	out := batchOutcome{consumed: len(raws)}
	records := make([]domain.OutputEvent, 0, len(raws))
	pending := make([]domain.RawEvent, 0, len(raws))

	for _, raw := range raws {
		rec, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			// Poison pill: skip and commit so a bad report never blocks the partition.
			p.logger.Warn("transform failed, skipping message",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.TransformErrors.Inc()
			p.commit(ctx, raw)
			out.skipped++
			continue
		}
		records = append(records, rec)
		pending = append(pending, raw)
	}

	if len(records) > 0 {
		if err := p.loadWithRetry(ctx, records); err != nil {
			return err
		}
		p.metrics.MessagesProduced.Add(float64(len(records)))
		for _, raw := range pending {
			p.commit(ctx, raw)
		}
		out.loaded = len(records)
		p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
		p.ready.Store(true)
	}

	p.logger.Debug("batch processed",
		"consumed", out.consumed,
		"loaded", out.loaded,
		"skipped", out.skipped,
		"duration", time.Since(start),
	)
	return nil
}

// commit acknowledges a message if the source attached a commit function.
func (p *Pipeline) commit(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

// loadWithRetry retries the same records with exponential backoff until the
// sink accepts them or the context ends.
func (p *Pipeline) loadWithRetry(ctx context.Context, records []domain.OutputEvent) error {
	delay := initialBackoff
	for {
		err := p.loader.LoadBatch(ctx, records)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		p.logger.Error("load batch failed, retrying",
			"error", err,
			"batch_size", len(records),
			"retry_in", delay,
		)
		p.metrics.LoadRetries.Inc()
		if !retry.SleepWithContext(ctx, delay) {
			return ctx.Err()
		}
		delay = retry.NextBackoff(delay, maxBackoff)
	}
}
