// Package bench implements the process-wide BenchmarkState lifecycle
// state machine: INIT -> WARMUP|MEASURE -> COLD_QUERY -> HOT_QUERY ->
// LATENCY_COMPLETE -> DONE -> EXIT, plus the start barrier and the
// live-worker countdown that drives the DONE transition.
//
// Grounded on the teacher's internal/resilience/circuit_breaker.go:
// the enum-with-String(), mutex-guarded-transition, zap-logged-change
// shape is kept; the three-state circuit breaker graph is replaced
// with the spec's eight-state benchmark graph.
package bench

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// State is one node of the benchmark lifecycle graph.
type State int32

const (
	StateInit State = iota
	StateWarmup
	StateMeasure
	StateColdQuery
	StateHotQuery
	StateLatencyComplete
	StateDone
	StateExit
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateWarmup:
		return "warmup"
	case StateMeasure:
		return "measure"
	case StateColdQuery:
		return "cold_query"
	case StateHotQuery:
		return "hot_query"
	case StateLatencyComplete:
		return "latency_complete"
	case StateDone:
		return "done"
	case StateExit:
		return "exit"
	default:
		return "unknown"
	}
}

// BenchmarkState is the process-lifetime singleton coordinating
// benchmark phase progress and worker shutdown. One BenchmarkState is
// shared (by pointer) across every WorkloadState and Worker in a run.
type BenchmarkState struct {
	mu   sync.Mutex
	cond *sync.Cond

	state  State
	epoch  int64 // incremented on every state change; wakes stayAwake sleepers
	logger *zap.Logger

	totalWorkers int
	liveWorkers  int
	arrivedAtGate int
}

// New creates a BenchmarkState for a run with totalWorkers virtual
// terminals, starting in StateInit.
func New(totalWorkers int, logger *zap.Logger) *BenchmarkState {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &BenchmarkState{
		state:        StateInit,
		logger:       logger,
		totalWorkers: totalWorkers,
		liveWorkers:  totalWorkers,
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Get returns the current state.
func (b *BenchmarkState) Get() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Epoch returns the current transition epoch, used by WorkloadState
// to detect a wakeable state change without polling State() in a
// tight loop.
func (b *BenchmarkState) Epoch() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.epoch
}

// WaitForEpochChange blocks until the epoch differs from since, or
// the state reaches EXIT. Used by WorkloadState.StayAwake.
func (b *BenchmarkState) WaitForEpochChange(since int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for b.epoch == since && b.state != StateExit {
		b.cond.Wait()
	}
}

// BlockForStart is the rendezvous barrier: every worker calls this
// once before attempting its first transaction, and none proceed
// until all totalWorkers have arrived (or the state reaches EXIT,
// e.g. a configuration failure aborted the run before measurement
// began).
func (b *BenchmarkState) BlockForStart() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.arrivedAtGate++
	if b.arrivedAtGate >= b.totalWorkers {
		b.cond.Broadcast()
		return
	}
	for b.arrivedAtGate < b.totalWorkers && b.state != StateExit {
		b.cond.Wait()
	}
}

// transition validates that the current state is one of from, sets
// the new state, bumps the epoch, logs, and wakes every waiter.
func (b *BenchmarkState) transition(name string, from []State, to State) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	ok := false
	for _, f := range from {
		if b.state == f {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("bench: invalid transition %s: state is %s, expected one of %v", name, b.state, from)
	}

	old := b.state
	b.state = to
	b.epoch++
	b.logger.Info("benchmark state transition",
		zap.String("event", name),
		zap.String("from", old.String()),
		zap.String("to", to.String()),
	)
	b.cond.Broadcast()
	return nil
}

// StartMeasure transitions INIT -> MEASURE, used when the run skips
// the warmup stage entirely.
func (b *BenchmarkState) StartMeasure() error {
	return b.transition("skip_warmup", []State{StateInit}, StateMeasure)
}

// EnterWarmup transitions INIT -> WARMUP.
func (b *BenchmarkState) EnterWarmup() error {
	return b.transition("start_warmup", []State{StateInit}, StateWarmup)
}

// TimeExpires transitions WARMUP -> MEASURE when the warmup duration
// elapses.
func (b *BenchmarkState) TimeExpires() error {
	return b.transition("warmup_time_expires", []State{StateWarmup}, StateMeasure)
}

// SerialEntry transitions MEASURE -> COLD_QUERY, entering the first
// serial phase.
func (b *BenchmarkState) SerialEntry() error {
	return b.transition("serial_entry", []State{StateMeasure}, StateColdQuery)
}

// FirstResult transitions COLD_QUERY -> HOT_QUERY once the first
// serial result has been observed.
func (b *BenchmarkState) FirstResult() error {
	return b.transition("first_result", []State{StateColdQuery}, StateHotQuery)
}

// SignalLatencyComplete transitions HOT_QUERY -> LATENCY_COMPLETE.
func (b *BenchmarkState) SignalLatencyComplete() error {
	return b.transition("latency_complete", []State{StateHotQuery}, StateLatencyComplete)
}

// SignalDone is called by a Worker as it exits its loop for the last
// time. It decrements the live-worker count and returns the number
// still remaining; when it reaches 0 the global state advances to
// DONE from whatever state it was in.
func (b *BenchmarkState) SignalDone() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.liveWorkers--
	remaining := b.liveWorkers
	if remaining <= 0 && b.state != StateExit {
		b.state = StateDone
		b.epoch++
		b.logger.Info("benchmark state transition",
			zap.String("event", "signal_done"),
			zap.String("to", StateDone.String()),
		)
		b.cond.Broadcast()
	}
	return remaining
}

// Teardown transitions DONE -> EXIT; called by the orchestrator once
// results have been collected and all workers observed DONE.
func (b *BenchmarkState) Teardown() error {
	return b.transition("teardown", []State{StateDone}, StateExit)
}

// ForceExit moves directly to EXIT from any state, used to abort a
// run on an unrecoverable configuration error before measurement
// begins (spec §7's "configuration error -> abort before workers
// start" policy).
func (b *BenchmarkState) ForceExit() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateExit
	b.epoch++
	b.logger.Warn("benchmark forced to exit")
	b.cond.Broadcast()
}
