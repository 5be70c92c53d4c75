package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/mag-data-etl/internal/adapter/archive"
	"github.com/couchcryptid/mag-data-etl/internal/domain"
	"github.com/couchcryptid/mag-data-etl/internal/observability"
)

// DayWriter serializes one assembled station-day. Implemented by the IAGA
// writer and the tabular export writer.
type DayWriter interface {
	Write(day domain.AssembledDay, station domain.StationMetadata) (string, error)
}

// ArchiveOutcome is the per-archive result within a unit: success, or a
// categorized error. Parse statistics are carried either way.
type ArchiveOutcome struct {
	Path   string
	Stats  archive.ParseStats
	Err    error
	Reason FailureReason // empty on success
}

// UnitResult is the outcome of one station-day unit.
type UnitResult struct {
	Unit         Unit
	Archives     []ArchiveOutcome
	OutputPath   string
	MissingSlots int
	Duration     time.Duration
	Err          error // unit-level failure (output could not be written)
}

// Failed reports whether the unit as a whole failed. Skipped archives do
// not fail a unit; an unwritable output does.
func (r UnitResult) Failed() bool {
	return r.Err != nil
}

// Runner processes station-day units on a bounded worker pool. Units share
// only read-only state (calibration store, station table), so they run
// concurrently without coordination.
type Runner struct {
	transformer *Transformer
	stations    domain.StationTable
	writer      DayWriter
	logger      *slog.Logger
	metrics     *observability.Metrics
	policy      domain.CollisionPolicy
	workers     int
	ready       atomic.Bool
	completed   atomic.Int64
	total       atomic.Int64
}

// NewRunner wires a Runner. workers bounds concurrent units; values below
// one are treated as one.
func NewRunner(t *Transformer, stations domain.StationTable, writer DayWriter,
	logger *slog.Logger, metrics *observability.Metrics,
	policy domain.CollisionPolicy, workers int) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		transformer: t,
		stations:    stations,
		writer:      writer,
		logger:      logger,
		metrics:     metrics,
		policy:      policy,
		workers:     workers,
	}
}

// Progress reports how many units of the current run have finished.
func (r *Runner) Progress() (completed, total int) {
	return int(r.completed.Load()), int(r.total.Load())
}

// CheckReadiness returns nil once the run has completed at least one unit.
func (r *Runner) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("run has not completed any station-day yet")
	}
	return nil
}

// Run processes all units and returns the aggregated report. Cancellation
// stops dispatching new units; in-flight units finish and are reported.
// Per-unit failures are recorded, never propagated as a run error.
func (r *Runner) Run(ctx context.Context, units []Unit) *RunReport {
	report := &RunReport{StartedAt: domain.Now()}
	r.total.Store(int64(len(units)))

	r.metrics.RunRunning.Set(1)
	defer r.metrics.RunRunning.Set(0)
	r.logger.Info("run started", "units", len(units), "workers", r.workers, "collision_policy", r.policy.String())

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		sem = make(chan struct{}, r.workers)
	)

	for _, unit := range units {
		if ctx.Err() != nil {
			r.logger.Info("run cancelled, not dispatching further units", "reason", ctx.Err())
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(u Unit) {
			defer wg.Done()
			defer func() { <-sem }()

			res := r.processUnit(u)

			mu.Lock()
			report.Units = append(report.Units, res)
			mu.Unlock()
			r.completed.Add(1)
			r.ready.Store(true)
		}(unit)
	}

	wg.Wait()
	report.FinishedAt = domain.Now()

	r.logger.Info("run finished",
		"units", len(report.Units),
		"days_written", report.DaysWritten(),
		"archives_ok", report.ArchivesOK(),
		"archives_failed", report.ArchivesFailed(),
		"duration", report.FinishedAt.Sub(report.StartedAt),
	)
	return report
}

// processUnit runs one station-day end to end: transform every available
// hourly archive (skipping failures), assemble the 86,400-slot day, write
// it. A day with zero usable archives is still written, all-missing.
func (r *Runner) processUnit(u Unit) UnitResult {
	start := time.Now()
	res := UnitResult{Unit: u}

	paths, err := u.Archives()
	if err != nil {
		res.Err = err
		res.Duration = time.Since(start)
		r.logger.Error("unit failed listing archives", "unit", u.String(), "error", err)
		return res
	}

	var series [][]domain.ConvertedSample
	for _, path := range paths {
		samples, stats, err := r.transformer.Transform(path, u)
		outcome := ArchiveOutcome{Path: path, Stats: stats}

		r.metrics.SamplesParsed.Add(float64(stats.RowsParsed))
		r.metrics.SamplesSkipped.Add(float64(stats.RowsSkipped))

		if err != nil {
			outcome.Err = err
			outcome.Reason = classifyFailure(err)
			r.metrics.ArchivesFailed.WithLabelValues(string(outcome.Reason)).Inc()
			r.logger.Warn("archive skipped", "unit", u.String(), "archive", path,
				"reason", string(outcome.Reason), "error", err)
		} else {
			series = append(series, samples)
			r.metrics.ArchivesProcessed.Inc()
		}
		res.Archives = append(res.Archives, outcome)
	}

	day := domain.Assemble(u.StationCode, u.Date(), series, r.policy)
	res.MissingSlots = day.MissingCount()

	station := r.stations.Lookup(u.StationCode)
	outPath, err := r.writer.Write(day, station)
	if err != nil {
		res.Err = fmt.Errorf("write station-day output: %w", err)
		r.metrics.ArchivesFailed.WithLabelValues(string(ReasonWrite)).Inc()
		r.logger.Error("unit output write failed", "unit", u.String(), "error", err)
	} else {
		res.OutputPath = outPath
		r.metrics.DaysWritten.Inc()
		r.metrics.MissingSlots.Observe(float64(res.MissingSlots))
		r.logger.Info("station-day written", "unit", u.String(), "path", outPath,
			"archives", len(paths), "missing_slots", res.MissingSlots)
	}

	res.Duration = time.Since(start)
	r.metrics.UnitDuration.Observe(res.Duration.Seconds())
	return res
}
