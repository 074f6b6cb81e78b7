// Package orchestrator builds the WorkloadState and Workers for one
// benchmark run from a loaded Config and []*types.Phase, drives the
// BenchmarkState lifecycle and the rate-limited phases' queue feed,
// merges per-worker LatencySamples into per-phase distribution
// statistics and outcome histograms, and writes the results sinks.
//
// Grounded on the teacher's cmd/stormdb/main.go (runLoadTest: build
// pool, build workers, fan out, wait, report) and
// internal/workload/tpcc/generator.go's Run (WaitGroup fan-out plus a
// ticking rate generator), generalized from a single fixed TPC-C
// load-test shape into the Phase-sequenced, multi-dialect run the
// expanded spec requires.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"txbench/internal/bench"
	"txbench/internal/classify"
	"txbench/internal/database"
	"txbench/internal/histogram"
	"txbench/internal/logging"
	"txbench/internal/results"
	"txbench/internal/stats"
	"txbench/internal/worker"
	"txbench/internal/workload"
	"txbench/pkg/types"
)

// rateTickInterval is how often the rate generator wakes to top up a
// rate-limited phase's queue.
const rateTickInterval = 100 * time.Millisecond

// Orchestrator owns the process-lifetime BenchmarkState, the
// WorkloadState, and every Worker of one benchmark run.
type Orchestrator struct {
	cfg        *types.Config
	phases     []*types.Phase
	pool       *database.Pool
	classifier *classify.Classifier
	executor   worker.Executor
	logger     logging.Logger
	zapLogger  *zap.Logger
	results    *results.Writer

	// connFactory builds the per-worker session owner. Defaults to a
	// real *database.ConnectionManager; overridable in tests so the
	// phase-sequencing and aggregation logic can run without a live
	// database.
	connFactory func(workerID int) worker.ConnManager

	mu      sync.Mutex
	phaseAg map[string]*phaseAggregate
}

type phaseAggregate struct {
	durations []int64
	hist      *histogram.Histogram[types.Outcome]
	firstOnce sync.Once
	firstCh   chan struct{}
}

func newPhaseAggregate() *phaseAggregate {
	return &phaseAggregate{
		hist:    histogram.New[types.Outcome](),
		firstCh: make(chan struct{}),
	}
}

// New builds an Orchestrator. executor is the transaction library
// collaborator (e.g. txnlib/tpcc.Executor); resultsWriter may be nil,
// in which case samples and summaries are discarded.
func New(cfg *types.Config, phases []*types.Phase, pool *database.Pool, classifier *classify.Classifier, executor worker.Executor, logger logging.Logger, zapLogger *zap.Logger, resultsWriter *results.Writer) *Orchestrator {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}
	o := &Orchestrator{
		cfg:        cfg,
		phases:     phases,
		pool:       pool,
		classifier: classifier,
		executor:   executor,
		logger:     logger,
		zapLogger:  zapLogger,
		results:    resultsWriter,
		phaseAg:    make(map[string]*phaseAggregate),
	}
	o.connFactory = func(workerID int) worker.ConnManager {
		return database.NewConnectionManager(pool, workerID, logger, zapLogger)
	}
	return o
}

// Run executes one full benchmark: connects every worker's session,
// rendezvouses at the start barrier, drives the BenchmarkState and
// Phase sequence to completion, then computes and writes the
// per-phase summary. Returns a non-nil error for a configuration
// failure that aborts the run before measurement begins (spec.md §7)
// or when the results summary cannot be written;
// per-transaction failures never surface here, they are recorded as
// LatencySamples with a non-success Outcome instead.
func (o *Orchestrator) Run(ctx context.Context) error {
	totalTerminals := o.cfg.TotalTerminals
	state := bench.New(totalTerminals, o.zapLogger)
	wl := workload.New(totalTerminals, o.phases, nil, state, o.zapLogger)

	workers := make([]*worker.Worker, totalTerminals)
	connManagers := make([]worker.ConnManager, totalTerminals)
	for i := 0; i < totalTerminals; i++ {
		connManagers[i] = o.connFactory(i)
	}

	// Connecting every worker's initial session is a configuration-time
	// gate: if any fails, abort the whole run before a single worker
	// reaches the start barrier, per spec.md §7.
	for i, cm := range connManagers {
		if connector, ok := cm.(interface{ Connect(context.Context) error }); ok {
			if err := connector.Connect(ctx); err != nil {
				state.ForceExit()
				return fmt.Errorf("orchestrator: worker %d failed to connect: %w", i, err)
			}
		}
	}

	for i := 0; i < totalTerminals; i++ {
		workers[i] = worker.New(worker.Config{
			ID:         i,
			Workload:   wl,
			State:      state,
			Conn:       connManagers[i],
			Classifier: o.classifier,
			Executor:   o.executor,
			RetryCap:   o.cfg.RetryCap,
			Isolation:  o.cfg.Isolation,
			Logger:     o.logger,
			ZapLogger:  o.zapLogger,
			OnSample:   o.recordSample,
		})
	}

	// Activate the first phase before any worker can leave the start
	// barrier: FetchWork reports ok=false while no phase is active, so
	// a worker reaching it first would end its loop at once.
	wl.SwitchToNextPhase()

	g, gctx := errgroup.WithContext(ctx)
	for _, w := range workers {
		w := w
		g.Go(func() error {
			w.Run(gctx)
			return nil
		})
	}

	if err := o.startMeasurement(state); err != nil {
		state.ForceExit()
		_ = g.Wait()
		return fmt.Errorf("orchestrator: %w", err)
	}
	wl.NotifyStateChange()

	phaseErrCh := make(chan error, 1)
	go func() {
		phaseErrCh <- o.runPhases(ctx, state, wl)
	}()

	if err := g.Wait(); err != nil {
		return fmt.Errorf("orchestrator: worker group: %w", err)
	}
	<-phaseErrCh

	if err := state.Teardown(); err != nil {
		o.logger.Warn("teardown transition failed", zap.Error(err))
	}
	wl.NotifyStateChange()

	for _, cm := range connManagers {
		if closer, ok := cm.(interface{ Close() }); ok {
			closer.Close()
		}
	}

	return o.writeFinalSummary()
}

// startMeasurement advances BenchmarkState from INIT into MEASURE.
// This implementation always takes the skip-warmup path: spec.md's
// Config/PhaseConfig carry no field distinguishing a warmup phase from
// a measured one, so a warmup ramp is modeled by an ordinary Phase
// placed first in the list rather than by the global WARMUP state
// (see DESIGN.md Open Question decisions).
func (o *Orchestrator) startMeasurement(state *bench.BenchmarkState) error {
	return state.StartMeasure()
}

// runPhases sequences through o.phases in order: activates each via
// WorkloadState.SwitchToNextPhase (the first phase is already active,
// switched in by Run before the workers start), drives the BenchmarkState
// COLD_QUERY/HOT_QUERY/LATENCY_COMPLETE sub-sequence around the first
// serial-mode phase encountered (the graph has room for exactly one
// such round trip before DONE), runs a rate generator for rate-limited
// phases, and sleeps for each phase's configured duration (or until
// ctx is cancelled, for a zero-duration final phase). After the last
// phase it calls SwitchToNextPhase once more so FetchWork starts
// returning ok=false and every worker's loop ends naturally.
func (o *Orchestrator) runPhases(ctx context.Context, state *bench.BenchmarkState, wl *workload.WorkloadState) error {
	serialIdx := -1
	for i, p := range o.phases {
		if p.Mode == types.ModeSerial {
			serialIdx = i
			break
		}
	}

	for i, phase := range o.phases {
		if i > 0 {
			wl.SwitchToNextPhase()
		}
		wl.NotifyStateChange()

		var rateStop chan struct{}
		if phase.Mode == types.ModeRateLimited {
			rateStop = o.startRateGenerator(wl, phase)
		}

		if i == serialIdx {
			if err := state.SerialEntry(); err != nil {
				o.logger.Warn("serial_entry transition failed", zap.Error(err))
			}
			wl.NotifyStateChange()
			if err := o.waitFirstSample(ctx, phase.ID); err == nil {
				if err := state.FirstResult(); err != nil {
					o.logger.Warn("first_result transition failed", zap.Error(err))
				}
				wl.NotifyStateChange()
			}
		}
		// A serial-mode phase after serialIdx has no further COLD_QUERY/
		// HOT_QUERY round trip available in the BenchmarkState graph (it
		// has exactly one, ending at LATENCY_COMPLETE); it still runs as
		// an ordinary phase via Phase.NextSerial, documented as a known
		// limitation in DESIGN.md.

		o.sleepPhase(ctx, phase.Duration)

		if rateStop != nil {
			close(rateStop)
		}

		if i == serialIdx {
			if err := state.SignalLatencyComplete(); err != nil {
				o.logger.Warn("signal_latency_complete transition failed", zap.Error(err))
			}
			wl.NotifyStateChange()
		}
	}

	wl.SwitchToNextPhase()
	wl.NotifyStateChange()
	return nil
}

// sleepPhase blocks for dur, or until ctx is cancelled if dur <= 0
// (the convention for "run until externally stopped", used by a final
// open-ended phase).
func (o *Orchestrator) sleepPhase(ctx context.Context, dur time.Duration) {
	if dur <= 0 {
		<-ctx.Done()
		return
	}
	select {
	case <-time.After(dur):
	case <-ctx.Done():
	}
}

// startRateGenerator ticks every rateTickInterval, computing how many
// procedures phase.RatePerSecond implies for that slice of time and
// appending them to wl's queue. Returns a channel the caller closes to
// stop the generator when the phase ends.
func (o *Orchestrator) startRateGenerator(wl *workload.WorkloadState, phase *types.Phase) chan struct{} {
	stop := make(chan struct{})
	amount := rateTickAmount(phase.RatePerSecond, rateTickInterval)
	go func() {
		ticker := time.NewTicker(rateTickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case now := <-ticker.C:
				wl.AddToQueue(amount, false, now)
			}
		}
	}()
	return stop
}

// rateTickAmount computes how many procedures a rate of
// ratePerSecond implies over one tick of interval, rounding to the
// nearest whole procedure with a floor of 1 so a configured nonzero
// rate always makes forward progress even at a coarse tick interval.
func rateTickAmount(ratePerSecond float64, interval time.Duration) int {
	amount := int(ratePerSecond*interval.Seconds() + 0.5)
	if amount < 1 {
		amount = 1
	}
	return amount
}

// waitFirstSample blocks until the first LatencySample for phaseID has
// been recorded, or ctx is cancelled.
func (o *Orchestrator) waitFirstSample(ctx context.Context, phaseID string) error {
	ag := o.aggregateFor(phaseID)
	select {
	case <-ag.firstCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// aggregateFor returns the phaseAggregate for phaseID, creating it on
// first use.
func (o *Orchestrator) aggregateFor(phaseID string) *phaseAggregate {
	o.mu.Lock()
	defer o.mu.Unlock()
	ag, ok := o.phaseAg[phaseID]
	if !ok {
		ag = newPhaseAggregate()
		o.phaseAg[phaseID] = ag
	}
	return ag
}

// recordSample is every Worker's OnSample callback: it folds s into
// its phase's running aggregate and forwards it to the samples sink.
func (o *Orchestrator) recordSample(s types.LatencySample) {
	ag := o.aggregateFor(s.PhaseID)

	o.mu.Lock()
	ag.durations = append(ag.durations, s.DurationNs())
	o.mu.Unlock()
	ag.hist.Put(s.Outcome)
	ag.firstOnce.Do(func() { close(ag.firstCh) })

	if o.results != nil {
		if err := o.results.WriteSample(s); err != nil {
			o.logger.Warn("failed to write sample", zap.Error(err))
		}
	}
}

// writeFinalSummary computes distribution statistics over every
// phase's accumulated durations and writes the summary sink.
func (o *Orchestrator) writeFinalSummary() error {
	if o.results == nil {
		return nil
	}

	o.mu.Lock()
	summaries := make([]results.PhaseSummary, 0, len(o.phaseAg))
	for id, ag := range o.phaseAg {
		durations := ag.durations
		outcomes := make(map[string]int64)
		for _, k := range ag.hist.Keys() {
			outcomes[k.String()] = ag.hist.Get(k)
		}
		summaries = append(summaries, results.PhaseSummary{
			PhaseID:  id,
			Stats:    stats.Compute(durations, o.zapLogger),
			Outcomes: outcomes,
		})
	}
	o.mu.Unlock()

	if err := o.results.WriteSummary(summaries); err != nil {
		return fmt.Errorf("orchestrator: write summary: %w", err)
	}
	return o.results.Close()
}
