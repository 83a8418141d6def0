// Command reclassify re-runs classification over a file of raw reports, one
// JSON object per line, and writes one classification record per line in
// input order. It is used to backfill records after a tables change.
//
// Usage:
//
//	go run ./cmd/reclassify \
//	  -in reports.jsonl \
//	  -out classified.jsonl \
//	  -tables tables.yaml \
//	  -concurrency 8
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/couchcryptid/traffic-zone-classifier/internal/domain"
	"github.com/couchcryptid/traffic-zone-classifier/internal/tables"
	"github.com/jonboulle/clockwork"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	in := flag.String("in", "-", "input JSON-lines file of raw reports (- for stdin)")
	out := flag.String("out", "-", "output JSON-lines file (- for stdout)")
	tablesPath := flag.String("tables", "", "tables YAML (default: embedded)")
	strict := flag.Bool("strict", false, "reject coordinates outside municipal bounds")
	concurrency := flag.Int("concurrency", 8, "number of reports classified in parallel")
	at := flag.String("at", "", "fixed RFC3339 classified_at for reproducible output")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "text", "log format (text or json)")
	flag.Parse()

	if *concurrency < 1 {
		flag.Usage()
		return fmt.Errorf("-concurrency must be at least 1")
	}

	if *at != "" {
		ts, err := time.Parse(time.RFC3339, *at)
		if err != nil {
			return fmt.Errorf("parse -at: %w", err)
		}
		domain.SetClock(clockwork.NewFakeClockAt(ts))
		defer domain.SetClock(nil)
	}

	tbl, err := tables.Load(*tablesPath)
	if err != nil {
		return err
	}

	r, closeIn, err := openInput(*in)
	if err != nil {
		return err
	}
	defer closeIn()

	w, closeOut, err := openOutput(*out)
	if err != nil {
		return err
	}
	defer closeOut()

	logger := newLogger(*out, *logLevel, *logFormat)
	logger.Info("reclassifying", "tables_version", tbl.Version, "concurrency", *concurrency)

	stats, err := reclassify(context.Background(), r, w, tbl.Classifier(*strict), *concurrency, logger)
	if err != nil {
		return err
	}
	logger.Info("reclassify complete", "succeeded", stats.succeeded, "failed", stats.failed)
	if stats.failed > 0 {
		return fmt.Errorf("%d of %d reports failed", stats.failed, stats.succeeded+stats.failed)
	}
	return nil
}

// newLogger uses the service logger unless records go to stdout, in which
// case logs move to stderr to keep the output stream clean.
func newLogger(out, level, format string) *slog.Logger {
	if out != "-" {
		return sharedobs.NewLogger(level, format)
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, func() { f.Close() }, nil
}
