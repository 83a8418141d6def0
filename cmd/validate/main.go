// Command validate checks a classification tables file before it is shipped.
// It decodes the YAML, runs the same validation the service applies at
// startup, and lints for rows that load cleanly but classify badly: keywords
// shadowed by earlier entries, duplicate names, centers outside the municipal
// bounds, and always-strict categories not marked strict.
//
// Usage:
//
//	go run ./cmd/validate -tables internal/tables/default_tables.yaml
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/couchcryptid/traffic-zone-classifier/internal/tables"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	path := flag.String("tables", "", "path to tables YAML (default: embedded)")
	flag.Parse()

	os.Exit(run(*path, os.Stdout))
}

func run(path string, w io.Writer) int {
	label := path
	if path == "" {
		label = "(embedded)"
	}
	fmt.Fprintf(w, "=== Tables Validation: %s ===\n\n", label)

	decode := &phase{name: "Decode YAML"}
	build := &phase{name: "Build classifier tables"}
	lint := &phase{name: "Lint zones and geofences"}
	phases := []*phase{decode, build, lint}

	tbl, err := loadTables(path, decode, build)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	if tbl != nil {
		for _, issue := range tables.Lint(tbl) {
			lint.errorf("%s", issue)
		}
	}

	allPassed := report(w, phases)
	if tbl != nil {
		fmt.Fprintf(w, "\nVersion %q: %d zone keywords, %d geofences, default zone %q\n",
			tbl.Version, len(tbl.Zones), len(tbl.Geofences), tbl.DefaultZone)
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(w, "\nValidation FAILED.")
	return 1
}

// loadTables decodes and builds the artifact, recording failures on the
// matching phase. A nil error with nil tables means a phase failed.
func loadTables(path string, decode, build *phase) (*tables.Tables, error) {
	if path == "" {
		tbl, err := tables.Load("")
		if err != nil {
			build.errorf("%v", err)
			return nil, nil
		}
		return tbl, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tables: %w", err)
	}
	f, err := tables.Decode(data)
	if err != nil {
		decode.errorf("%v", err)
		return nil, nil
	}
	tbl, err := f.Build()
	if err != nil {
		build.errorf("%v", err)
		return nil, nil
	}
	return tbl, nil
}

func report(w io.Writer, phases []*phase) bool {
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-42s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}
	return allPassed
}
