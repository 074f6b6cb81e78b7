// Package workload implements WorkloadState, the per-workload
// coordinator: a rate-limited work queue, worker wait/wake, and
// phase-transition orchestration.
//
// Grounded on the teacher's internal/concurrency/workload.go
// (WorkloadManager: priority queues, worker pool, adaptive
// concurrency loop) and internal/concurrency/backpressure.go
// (queue-depth/pressure bookkeeping); reshaped here from
// priority-queue dispatch into a single FIFO with phase-mode
// branching (serial / unlimited / rate-limited), and from an
// adaptive-scaling loop into the fixed per-phase active-terminal
// count the spec requires.
package workload

import (
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"txbench/internal/bench"
	"txbench/pkg/types"
)

// RateQueueLimit is the logical bound on the work queue: after every
// append, the head is trimmed until the queue is at most this long.
// Freshness is preferred over completeness under overload.
const RateQueueLimit = 10_000

// TraceReader supplies externally-scripted procedures (a recorded
// trace file) in place of weighted-mix random choice. Next consumes
// an entry; Peek observes the next entry without consuming it.
//
// Peek exists so fetchWork's WARMUP special case — "show workers the
// next scripted procedure without letting it escape the trace" — does
// not need the racy poll/put-back the original implementation used.
type TraceReader interface {
	Next(now time.Time) (types.SubmittedProcedure, bool)
	Peek(now time.Time) (types.SubmittedProcedure, bool)
}

// WorkloadState coordinates one workload's Workers: the FIFO queue
// they consume from, wait/wake bookkeeping, and the active Phase.
// A single mutex (mu) guards the queue, the counters and the phase
// index, and its condition variable (cond) carries wait/notify; the
// queue is a plain slice, not a lock-free structure, and the counters
// are plain ints, not atomics.
type WorkloadState struct {
	mu   sync.Mutex
	cond *sync.Cond

	logger *zap.Logger
	state  *bench.BenchmarkState
	trace  TraceReader
	rng    *rand.Rand

	phases   []*types.Phase
	phaseIdx int // -1 before the first switchToNextPhase call

	queue []types.SubmittedProcedure

	totalTerminals  int
	workersWaiting  int
	workersWorking  int
	workerNeedSleep int

	// epoch is bumped on every switchToNextPhase and on every
	// NotifyStateChange call; sleeping/waiting workers key off it to
	// avoid a lost-wakeup where a worker re-consumes a broadcast meant
	// for a different transition.
	epoch int64
}

// New creates a WorkloadState for totalTerminals workers over phases.
// No phase is active until the first switchToNextPhase call; trace
// may be nil.
func New(totalTerminals int, phases []*types.Phase, trace TraceReader, state *bench.BenchmarkState, logger *zap.Logger) *WorkloadState {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &WorkloadState{
		logger:         logger,
		state:          state,
		trace:          trace,
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
		phases:         phases,
		phaseIdx:       -1,
		totalTerminals: totalTerminals,
	}
	w.cond = sync.NewCond(&w.mu)
	return w
}

// currentPhase returns the active phase, or nil before the first
// switchToNextPhase or after the last phase has been exhausted. Must
// be called with mu held.
func (w *WorkloadState) currentPhase() *types.Phase {
	if w.phaseIdx < 0 || w.phaseIdx >= len(w.phases) {
		return nil
	}
	return w.phases[w.phaseIdx]
}

// CurrentPhaseID returns the active phase's ID, or "" before the first
// SwitchToNextPhase call or after the last phase has been exhausted.
func (w *WorkloadState) CurrentPhaseID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if phase := w.currentPhase(); phase != nil {
		return phase.ID
	}
	return ""
}

// QueueSize returns the current queue length.
func (w *WorkloadState) QueueSize() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queue)
}

// WorkersWaiting and WorkersWorking expose counters for metrics and
// tests; both are always >= 0, and their sum never exceeds
// totalTerminals.
func (w *WorkloadState) WorkersWaiting() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.workersWaiting
}

func (w *WorkloadState) WorkersWorking() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.workersWorking
}

// AddToQueue is called by the rate generator on every tick. If
// resetQueues, the queue is drained first. A no-op unless the current
// phase is rate-limited.
func (w *WorkloadState) AddToQueue(amount int, resetQueues bool, now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if resetQueues {
		w.queue = w.queue[:0]
	}

	phase := w.currentPhase()
	if phase == nil || phase.Mode != types.ModeRateLimited {
		return
	}

	if w.trace != nil && w.state.Get() != bench.StateWarmup {
		for i := 0; i < amount; i++ {
			proc, ok := w.trace.Next(now)
			if !ok {
				break
			}
			w.queue = append(w.queue, proc)
		}
	} else {
		nowNs := now.UnixNano()
		for i := 0; i < amount; i++ {
			w.queue = append(w.queue, types.SubmittedProcedure{
				TxnType:      phase.ChooseTxnType(w.rng),
				EnqueuedAtNs: nowNs,
			})
		}
	}

	if over := len(w.queue) - RateQueueLimit; over > 0 {
		w.queue = w.queue[over:]
	}

	wake := amount
	if w.workersWaiting < wake {
		wake = w.workersWaiting
	}
	for i := 0; i < wake; i++ {
		w.cond.Signal()
	}
}

// FetchWork returns one SubmittedProcedure for workerId, or ok=false
// meaning "leave the work loop" (the phase ended, or the benchmark
// reached EXIT/DONE while waiting).
func (w *WorkloadState) FetchWork(workerId int, now time.Time) (types.SubmittedProcedure, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	phase := w.currentPhase()
	if phase == nil {
		return types.SubmittedProcedure{}, false
	}

	switch phase.Mode {
	case types.ModeSerial:
		return w.fetchSerial(phase)
	case types.ModeUnlimited:
		proc := types.SubmittedProcedure{TxnType: phase.ChooseTxnType(w.rng), EnqueuedAtNs: now.UnixNano()}
		w.workersWorking++
		return proc, true
	default: // ModeRateLimited
		return w.fetchRateLimited(now)
	}
}

func (w *WorkloadState) fetchSerial(phase *types.Phase) (types.SubmittedProcedure, bool) {
	for w.state.Get() == bench.StateLatencyComplete {
		w.cond.Wait()
	}
	if s := w.state.Get(); s == bench.StateExit || s == bench.StateDone {
		return types.SubmittedProcedure{}, false
	}
	txnType, ok := phase.NextSerial()
	if !ok {
		return types.SubmittedProcedure{}, false
	}
	w.workersWorking++
	return types.SubmittedProcedure{TxnType: txnType, EnqueuedAtNs: time.Now().UnixNano()}, true
}

func (w *WorkloadState) fetchRateLimited(now time.Time) (types.SubmittedProcedure, bool) {
	if w.trace != nil && w.state.Get() == bench.StateWarmup {
		proc, ok := w.trace.Peek(now)
		if !ok {
			return types.SubmittedProcedure{}, false
		}
		w.workersWorking++
		return proc, true
	}

	if proc, ok := w.pollQueue(); ok {
		w.workersWorking++
		return proc, true
	}

	w.workersWaiting++
	for {
		proc, ok := w.pollQueue()
		if ok {
			w.workersWaiting--
			w.workersWorking++
			return proc, true
		}
		if s := w.state.Get(); s == bench.StateExit || s == bench.StateDone {
			w.workersWaiting--
			return types.SubmittedProcedure{}, false
		}
		w.cond.Wait()
	}
}

// pollQueue pops the head of the queue if non-empty. Must be called
// with mu held.
func (w *WorkloadState) pollQueue() (types.SubmittedProcedure, bool) {
	if len(w.queue) == 0 {
		return types.SubmittedProcedure{}, false
	}
	proc := w.queue[0]
	w.queue = w.queue[1:]
	return proc, true
}

// FinishedWork decrements workersWorking. Must be called exactly once
// per successful FetchWork.
func (w *WorkloadState) FinishedWork() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.workersWorking--
}

// SwitchToNextPhase advances the phase iterator, drains the queue,
// resets the new phase's serial counter, and recomputes
// workerNeedSleep for the new phase. Returns the new phase, or nil if
// the workload has ended.
func (w *WorkloadState) SwitchToNextPhase() *types.Phase {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.phaseIdx++
	w.queue = w.queue[:0]
	phase := w.currentPhase()

	switch {
	case phase == nil:
		w.workerNeedSleep = 0
	case phase.Mode == types.ModeDisabled:
		w.workerNeedSleep = w.totalTerminals
	default:
		phase.ResetSerial()
		w.workerNeedSleep = w.totalTerminals - phase.ActiveTerminals
		if w.workerNeedSleep < 0 {
			w.workerNeedSleep = 0
		}
	}

	w.epoch++
	if phase != nil {
		w.logger.Info("workload phase transition", zap.String("phase", phase.ID), zap.String("mode", phase.Mode.String()))
	} else {
		w.logger.Info("workload reached end of phase list")
	}
	w.cond.Broadcast()
	return phase
}

// StayAwake is called by a worker at the top of every loop iteration.
// While workerNeedSleep > 0, the worker claims one sleep slot and
// blocks until the next phase transition (or benchmark exit),
// guaranteeing exactly activeTerminals workers remain unblocked per
// phase.
func (w *WorkloadState) StayAwake() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for w.workerNeedSleep > 0 {
		w.workerNeedSleep--
		recordedEpoch := w.epoch
		for w.epoch == recordedEpoch && w.state.Get() != bench.StateExit {
			w.cond.Wait()
		}
	}
}

// SignalDone wakes every remaining waiter so they can observe
// DONE/EXIT and return; called once the last worker of this workload
// has finished.
func (w *WorkloadState) SignalDone() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.epoch++
	w.cond.Broadcast()
}

// NotifyStateChange is invoked by the orchestrator whenever the
// shared BenchmarkState transitions, so workers parked in this
// workload's stayAwake or fetchWork wake up to re-check global state
// without WorkloadState importing or owning BenchmarkState beyond the
// read-only reference passed to New.
func (w *WorkloadState) NotifyStateChange() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.epoch++
	w.cond.Broadcast()
}
