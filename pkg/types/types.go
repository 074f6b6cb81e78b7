// Package types provides the core data structures shared across the
// workload execution engine: the benchmark configuration, the phase
// and procedure model, and the latency sample record that flows from
// a Worker into the statistics pipeline.
//
// The types package is the contract between the orchestrator, the
// workload scheduler, the connection layer, and the transaction
// library collaborator. Keeping it dependency-light (no imports of
// sibling internal packages) avoids import cycles between them.
package types

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Dialect identifies the target DBMS a benchmark run drives.
type Dialect string

const (
	DialectPostgres  Dialect = "postgres"
	DialectMySQL     Dialect = "mysql"
	DialectOracle    Dialect = "oracle"
	DialectDB2       Dialect = "db2"
	DialectSQLServer Dialect = "sqlserver"
	DialectTibero    Dialect = "tibero"
)

func (d Dialect) String() string { return string(d) }

var _ fmt.Stringer = DialectPostgres

// Outcome classifies the result of one transaction attempt.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeUserAbort
	OutcomeRetry
	OutcomeRetryDifferent
	OutcomeError
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeUserAbort:
		return "user_abort"
	case OutcomeRetry:
		return "retry"
	case OutcomeRetryDifferent:
		return "retry_different"
	case OutcomeError:
		return "error"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// PhaseMode controls how a Phase produces and consumes work.
type PhaseMode int

const (
	ModeDisabled PhaseMode = iota
	ModeSerial
	ModeUnlimited
	ModeRateLimited
)

func (m PhaseMode) String() string {
	switch m {
	case ModeDisabled:
		return "disabled"
	case ModeSerial:
		return "serial"
	case ModeUnlimited:
		return "unlimited"
	case ModeRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// WeightedTxn is one entry of a Phase's transaction mix: a named
// transaction type and its relative weight.
type WeightedTxn struct {
	TxnType string
	Weight  int
}

// Phase is an immutable description of one benchmark stage: its
// weighted transaction mix, active-terminal count, rate mode and
// duration. The serial-iterator position is the one piece of mutable
// state a Phase carries, guarded by its own mutex, since a serial
// phase tracks its own cursor (see spec §4.4 path 1).
type Phase struct {
	ID              string
	Mix             []WeightedTxn
	ActiveTerminals int
	Mode            PhaseMode
	RatePerSecond   float64
	Duration        time.Duration
	Isolation       string // e.g. "serializable", "read_committed"

	totalWeight int

	mu        sync.Mutex
	serialPos int
}

// NewPhase constructs a Phase and precomputes its mix's total weight.
func NewPhase(id string, mix []WeightedTxn, activeTerminals int, mode PhaseMode, rate float64, dur time.Duration, isolation string) *Phase {
	total := 0
	for _, w := range mix {
		total += w.Weight
	}
	return &Phase{
		ID:              id,
		Mix:             mix,
		ActiveTerminals: activeTerminals,
		Mode:            mode,
		RatePerSecond:   rate,
		Duration:        dur,
		Isolation:       isolation,
		totalWeight:     total,
	}
}

// ChooseTxnType picks a transaction type from the weighted mix using
// the caller-owned rng (each Worker and each rate generator owns its
// own *rand.Rand; Phase never shares one across goroutines).
func (p *Phase) ChooseTxnType(rng *rand.Rand) string {
	if p.totalWeight <= 0 || len(p.Mix) == 0 {
		return ""
	}
	r := rng.Intn(p.totalWeight)
	for _, w := range p.Mix {
		if r < w.Weight {
			return w.TxnType
		}
		r -= w.Weight
	}
	return p.Mix[len(p.Mix)-1].TxnType
}

// NextSerial advances the phase's own serial cursor and returns the
// next transaction type in the mix, deterministically cycling through
// entries in proportion to their weight. ok is false once the mix is
// empty or has zero total weight.
func (p *Phase) NextSerial() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.totalWeight <= 0 || len(p.Mix) == 0 {
		return "", false
	}
	pos := p.serialPos % p.totalWeight
	p.serialPos++
	for _, w := range p.Mix {
		if pos < w.Weight {
			return w.TxnType, true
		}
		pos -= w.Weight
	}
	return p.Mix[len(p.Mix)-1].TxnType, true
}

// ResetSerial rewinds the serial cursor to the start of the mix;
// WorkloadState.SwitchToNextPhase calls this on every entry into the
// phase.
func (p *Phase) ResetSerial() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.serialPos = 0
}

// SubmittedProcedure is a queued intent to execute a specific
// transaction type, produced by the rate generator or a worker's own
// mix choice and consumed exactly once.
type SubmittedProcedure struct {
	TxnType      string
	EnqueuedAtNs int64
}

// LatencySample is the record of one transaction attempt, produced by
// exactly one Worker and merged into the distribution-statistics
// pipeline at the end of a phase.
type LatencySample struct {
	WorkerID int
	PhaseID  string
	TxnType  string
	StartNs  int64
	EndNs    int64
	Outcome  Outcome
}

// DurationNs returns the attempt's wall-clock duration in nanoseconds.
func (s LatencySample) DurationNs() int64 {
	return s.EndNs - s.StartNs
}

// Params carries the parameters a transaction executor needs for one
// attempt; the transaction library collaborator defines the concrete
// shape per (benchmark, txn-type) and type-asserts it back out.
type Params any
