// Package results implements the two result sinks the orchestrator
// writes to: an append-only CSV stream with one row per LatencySample,
// appended as each sample is recorded, and a JSON summary written at
// the end of the run (distribution statistics + outcome histogram per
// phase).
//
// Grounded on the teacher's internal/results/backend.go and
// integration.go (TestRun/TestResults record shapes, StoreTestResults
// wiring), generalized from a Postgres-table sink to a file sink: the
// core engine must not take a hard dependency on a specific target
// RDBMS for its own bookkeeping, since the target DBMS is exactly what
// is under test.
package results

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"txbench/internal/stats"
	"txbench/pkg/types"
)

// PhaseSummary is one phase's end-of-run record: its distribution
// statistics over every recorded LatencySample's duration, plus a
// count per outcome.
type PhaseSummary struct {
	PhaseID  string           `json:"phase_id"`
	Stats    stats.Result     `json:"stats"`
	Outcomes map[string]int64 `json:"outcomes"`
}

// Writer owns the two result sinks. Either path may be empty, in which
// case the corresponding sink is a no-op.
type Writer struct {
	samplesFile *os.File
	samplesCSV  *csv.Writer
	summaryPath string
}

// NewWriter opens cfg's configured sinks. samples_path is opened for
// append so a resumed run's history isn't clobbered; summary_path is
// written in one piece by WriteSummary, so it is not opened here.
func NewWriter(cfg types.ResultsConfig) (*Writer, error) {
	w := &Writer{summaryPath: cfg.SummaryPath}

	if cfg.SamplesPath != "" {
		f, err := os.OpenFile(cfg.SamplesPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("results: open samples file: %w", err)
		}
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("results: stat samples file: %w", err)
		}
		w.samplesFile = f
		w.samplesCSV = csv.NewWriter(f)
		if info.Size() == 0 {
			if err := w.samplesCSV.Write([]string{"worker_id", "phase_id", "txn_type", "start_ns", "end_ns", "duration_ns", "outcome"}); err != nil {
				f.Close()
				return nil, fmt.Errorf("results: write samples header: %w", err)
			}
			w.samplesCSV.Flush()
		}
	}

	return w, nil
}

// WriteSample appends one LatencySample as a CSV row. A no-op if no
// samples sink was configured.
func (w *Writer) WriteSample(s types.LatencySample) error {
	if w.samplesCSV == nil {
		return nil
	}
	row := []string{
		strconv.Itoa(s.WorkerID),
		s.PhaseID,
		s.TxnType,
		strconv.FormatInt(s.StartNs, 10),
		strconv.FormatInt(s.EndNs, 10),
		strconv.FormatInt(s.DurationNs(), 10),
		s.Outcome.String(),
	}
	if err := w.samplesCSV.Write(row); err != nil {
		return fmt.Errorf("results: write sample row: %w", err)
	}
	return nil
}

// WriteSummary marshals summaries as JSON to summary_path. A no-op if
// no summary sink was configured.
func (w *Writer) WriteSummary(summaries []PhaseSummary) error {
	if w.summaryPath == "" {
		return nil
	}
	data, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return fmt.Errorf("results: marshal summary: %w", err)
	}
	if err := os.WriteFile(w.summaryPath, data, 0644); err != nil {
		return fmt.Errorf("results: write summary file: %w", err)
	}
	return nil
}

// Close flushes and closes the samples sink, if open.
func (w *Writer) Close() error {
	if w.samplesCSV == nil {
		return nil
	}
	w.samplesCSV.Flush()
	if err := w.samplesCSV.Error(); err != nil {
		return fmt.Errorf("results: flush samples file: %w", err)
	}
	return w.samplesFile.Close()
}
