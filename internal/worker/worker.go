// Package worker implements the per-terminal Worker lifecycle: the
// attempt loop that fetches work, executes a transaction body,
// classifies failures, retries or reconnects, and records a
// LatencySample per attempt.
//
// Grounded on the teacher's internal/workload/tpcc/generator.go worker
// loop (rollTransaction -> execute -> record latency -> think), kept
// in shape but generalized from a fixed NewOrder/Payment/OrderStatus
// switch into a pluggable Executor, and from a bare retry-nothing loop
// into the spec's classify-then-branch attempt loop with capped
// retries, jittered backoff, and reconnect on FATAL/transport failure.
package worker

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"txbench/internal/bench"
	"txbench/internal/classify"
	"txbench/internal/database"
	"txbench/internal/histogram"
	"txbench/internal/logging"
	"txbench/internal/workload"
	"txbench/pkg/types"
)

// Executor runs one transaction body against an open Tx, type-asserting
// whatever types.Params it needs back out of params. Implemented by
// the transaction library collaborator (internal/txnlib/tpcc).
type Executor interface {
	Execute(ctx context.Context, tx database.Tx, txnType string, rng *rand.Rand, params types.Params) error
}

// ConnManager is the slice of *database.ConnectionManager the Worker
// depends on. Narrowed to an interface so tests can substitute a fake
// session source without standing up a real Pool.
type ConnManager interface {
	Session() database.Session
	Reconnect(ctx context.Context) error
}

// Config bundles a Worker's fixed dependencies.
type Config struct {
	ID         int
	Workload   *workload.WorkloadState
	State      *bench.BenchmarkState
	Conn       ConnManager
	Classifier *classify.Classifier
	Executor   Executor
	RetryCap   int
	Isolation  string
	Logger     logging.Logger
	ZapLogger  *zap.Logger
	OnSample   func(types.LatencySample)
}

// Worker drives one virtual terminal's attempt loop. Samples produced
// are handed to OnSample as they complete; Worker keeps no buffer of
// its own so the orchestrator controls how samples are aggregated.
type Worker struct {
	cfg    Config
	rng    *rand.Rand
	hist   *histogram.Histogram[types.Outcome]
}

// New creates a Worker from cfg. RetryCap defaults to 10 when <= 0.
func New(cfg Config) *Worker {
	if cfg.RetryCap <= 0 {
		cfg.RetryCap = 10
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewDefaultLogger()
	}
	return &Worker{
		cfg:  cfg,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano() + int64(cfg.ID))),
		hist: histogram.New[types.Outcome](),
	}
}

// OutcomeHistogram returns this worker's outcome counts over its whole
// lifetime (not split by phase). The orchestrator builds its per-phase
// histograms from OnSample instead and does not read this one.
func (w *Worker) OutcomeHistogram() *histogram.Histogram[types.Outcome] {
	return w.hist
}

// Run executes the worker's full lifecycle: rendezvous at the start
// barrier, then loop stayAwake -> fetchWork -> attempt -> finishedWork
// until fetchWork or the global state says to stop.
func (w *Worker) Run(ctx context.Context) {
	w.cfg.State.BlockForStart()

	for {
		w.cfg.Workload.StayAwake()

		if s := w.cfg.State.Get(); s == bench.StateExit || s == bench.StateDone {
			break
		}

		proc, ok := w.cfg.Workload.FetchWork(w.cfg.ID, time.Now())
		if !ok {
			break
		}

		sample := w.attempt(ctx, proc)
		w.hist.Put(sample.Outcome)
		if w.cfg.OnSample != nil {
			w.cfg.OnSample(sample)
		}

		w.cfg.Workload.FinishedWork()
	}

	remaining := w.cfg.State.SignalDone()
	w.cfg.Workload.SignalDone()
	w.cfg.Logger.Info("worker exited",
		zap.Int("worker_id", w.cfg.ID),
		zap.Int("workers_remaining", remaining),
	)
}

// attempt runs the capped retry loop (spec §4.7 step 5) for one
// SubmittedProcedure and returns the resulting LatencySample.
func (w *Worker) attempt(ctx context.Context, proc types.SubmittedProcedure) types.LatencySample {
	startNs := time.Now().UnixNano()
	outcome := types.OutcomeError

	for attemptNum := 0; attemptNum < w.cfg.RetryCap; attemptNum++ {
		session := w.cfg.Conn.Session()
		tx, err := session.Begin(ctx, w.cfg.Isolation)
		if err != nil {
			if w.reconnectAndContinue(ctx, attemptNum, err) {
				continue
			}
			outcome = types.OutcomeError
			break
		}

		execErr := w.cfg.Executor.Execute(ctx, tx, proc.TxnType, w.rng, nil)
		if execErr == nil {
			if commitErr := tx.Commit(ctx); commitErr != nil {
				_ = tx.Rollback(ctx)
				if w.reconnectAndContinue(ctx, attemptNum, commitErr) {
					continue
				}
				outcome = types.OutcomeError
				break
			}
			outcome = types.OutcomeSuccess
			break
		}

		_ = tx.Rollback(ctx)

		if database.IsTransportError(execErr) {
			if w.reconnectAndContinue(ctx, attemptNum, execErr) {
				continue
			}
			outcome = types.OutcomeError
			break
		}

		vendorCode, sqlstate := database.ExtractCode(execErr)
		class := w.cfg.Classifier.Classify(vendorCode, sqlstate)

		switch class {
		case classify.Retry, classify.Unknown:
			w.sleepJitteredBackoff(attemptNum)
			continue
		case classify.RetryDifferent:
			outcome = types.OutcomeRetryDifferent
		case classify.UserAbort:
			outcome = types.OutcomeUserAbort
		case classify.Fatal:
			outcome = types.OutcomeError
			w.cfg.Conn.Reconnect(ctx)
		}
		break
	}

	endNs := time.Now().UnixNano()
	return types.LatencySample{
		WorkerID: w.cfg.ID,
		PhaseID:  w.cfg.Workload.CurrentPhaseID(),
		TxnType:  proc.TxnType,
		StartNs:  startNs,
		EndNs:    endNs,
		Outcome:  outcome,
	}
}

// reconnectAndContinue tears down and reopens the session, returning
// true if the attempt loop should retry the same procedure (still
// within the retry cap).
func (w *Worker) reconnectAndContinue(ctx context.Context, attemptNum int, cause error) bool {
	w.cfg.Logger.Warn("worker transport failure, reconnecting",
		zap.Int("worker_id", w.cfg.ID),
		zap.Int("attempt", attemptNum),
		zap.Error(cause),
	)
	if err := w.cfg.Conn.Reconnect(ctx); err != nil {
		return false
	}
	return attemptNum+1 < w.cfg.RetryCap
}

// sleepJitteredBackoff sleeps a small jittered delay before retrying
// the same procedure, scaling lightly with attemptNum.
func (w *Worker) sleepJitteredBackoff(attemptNum int) {
	base := time.Duration(5*(attemptNum+1)) * time.Millisecond
	jitter := time.Duration(w.rng.Intn(5)) * time.Millisecond
	time.Sleep(base + jitter)
}
