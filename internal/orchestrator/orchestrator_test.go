package orchestrator

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"go.uber.org/zap"

	"txbench/internal/classify"
	"txbench/internal/database"
	"txbench/internal/results"
	"txbench/internal/worker"
	"txbench/pkg/types"
)

type fakeRow struct{}

func (fakeRow) Scan(dest ...any) error { return nil }

type fakeRows struct{}

func (fakeRows) Next() bool             { return false }
func (fakeRows) Scan(dest ...any) error { return nil }
func (fakeRows) Err() error             { return nil }
func (fakeRows) Close()                 {}

type fakeTx struct{}

func (fakeTx) Exec(ctx context.Context, query string, args ...any) error { return nil }
func (fakeTx) QueryRow(ctx context.Context, query string, args ...any) database.Row {
	return fakeRow{}
}
func (fakeTx) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	return fakeRows{}, nil
}
func (fakeTx) Commit(ctx context.Context) error   { return nil }
func (fakeTx) Rollback(ctx context.Context) error { return nil }

type fakeSession struct{}

func (fakeSession) Begin(ctx context.Context, isolation string) (database.Tx, error) {
	return fakeTx{}, nil
}
func (fakeSession) Ping(ctx context.Context) error { return nil }
func (fakeSession) Close()                         {}

type fakeConnManager struct{}

func (fakeConnManager) Session() database.Session           { return fakeSession{} }
func (fakeConnManager) Reconnect(ctx context.Context) error { return nil }

type fakeExecutor struct{}

func (fakeExecutor) Execute(ctx context.Context, tx database.Tx, txnType string, rng *rand.Rand, params types.Params) error {
	return nil
}

func testConfig() *types.Config {
	return &types.Config{
		Benchmark:      "tpcc",
		Dialect:        "postgres",
		TotalTerminals: 2,
		RetryCap:       3,
		Isolation:      "read_committed",
	}
}

func testPhases() []*types.Phase {
	mix := []types.WeightedTxn{{TxnType: "new_order", Weight: 1}}
	return []*types.Phase{
		types.NewPhase("measure", mix, 2, types.ModeUnlimited, 0, 50*time.Millisecond, "read_committed"),
	}
}

func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	o := New(testConfig(), testPhases(), nil, classify.New(), fakeExecutor{}, nil, zap.NewNop(), nil)
	o.connFactory = func(workerID int) worker.ConnManager { return fakeConnManager{} }
	return o
}

func TestRunCompletesUnlimitedPhase(t *testing.T) {
	o := newTestOrchestrator(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := o.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	ag := o.aggregateFor("measure")
	if len(ag.durations) == 0 {
		t.Fatal("expected at least one recorded sample for phase measure")
	}
}

func TestRunWritesSummary(t *testing.T) {
	dir := t.TempDir()
	w, err := results.NewWriter(types.ResultsConfig{SummaryPath: dir + "/summary.json"})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	o := New(testConfig(), testPhases(), nil, classify.New(), fakeExecutor{}, nil, zap.NewNop(), w)
	o.connFactory = func(workerID int) worker.ConnManager { return fakeConnManager{} }

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := o.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRateTickAmountFloorsAtOne(t *testing.T) {
	if got := rateTickAmount(0.1, 100*time.Millisecond); got != 1 {
		t.Errorf("rateTickAmount(0.1, 100ms) = %d, want 1", got)
	}
}

func TestRateTickAmountScalesWithRate(t *testing.T) {
	got := rateTickAmount(100, time.Second)
	if got != 100 {
		t.Errorf("rateTickAmount(100, 1s) = %d, want 100", got)
	}
}
