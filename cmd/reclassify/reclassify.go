package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/couchcryptid/traffic-zone-classifier/internal/domain"
	"golang.org/x/sync/errgroup"
)

const maxLineBytes = 1 << 20

type stats struct {
	succeeded int64
	failed    int64
}

// reclassify classifies every non-blank line of r concurrently and writes the
// successful records to w in input order. Per-line failures are logged and
// counted; only I/O errors abort the run.
func reclassify(ctx context.Context, r io.Reader, w io.Writer, c *domain.Classifier, concurrency int, logger *slog.Logger) (stats, error) {
	lines, err := readLines(r)
	if err != nil {
		return stats{}, err
	}

	results := make([][]byte, len(lines))
	var succeeded, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, line := range lines {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := classifyLine(c, line.data)
			if err != nil {
				failed.Add(1)
				logger.Warn("report skipped", "line", line.num, "error", err)
				return nil
			}
			results[i] = out
			succeeded.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats{}, fmt.Errorf("reclassify: %w", err)
	}

	bw := bufio.NewWriter(w)
	for _, out := range results {
		if out == nil {
			continue
		}
		bw.Write(out)      //nolint:errcheck // surfaced by Flush
		bw.WriteByte('\n') //nolint:errcheck // surfaced by Flush
	}
	if err := bw.Flush(); err != nil {
		return stats{}, fmt.Errorf("write output: %w", err)
	}

	return stats{succeeded: succeeded.Load(), failed: failed.Load()}, nil
}

type inputLine struct {
	num  int
	data []byte
}

func readLines(r io.Reader) ([]inputLine, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var lines []inputLine
	for n := 1; sc.Scan(); n++ {
		data := bytes.TrimSpace(sc.Bytes())
		if len(data) == 0 {
			continue
		}
		lines = append(lines, inputLine{num: n, data: bytes.Clone(data)})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return lines, nil
}

func classifyLine(c *domain.Classifier, data []byte) ([]byte, error) {
	report, err := domain.ParseRawEvent(domain.RawEvent{Value: data})
	if err != nil {
		return nil, err
	}
	result, err := c.ClassifyReport(report)
	if err != nil {
		return nil, err
	}
	return json.Marshal(result)
}
