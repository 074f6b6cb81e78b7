package worker

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"txbench/internal/bench"
	"txbench/internal/classify"
	"txbench/internal/database"
	"txbench/internal/logging"
	"txbench/internal/workload"
	"txbench/pkg/types"
)

type fakeRow struct{}

func (fakeRow) Scan(dest ...any) error { return nil }

type fakeRows struct{}

func (fakeRows) Next() bool             { return false }
func (fakeRows) Scan(dest ...any) error { return nil }
func (fakeRows) Err() error             { return nil }
func (fakeRows) Close()                 {}

type fakeTx struct {
	rollbackCount *int
	commitErr     error
}

func (t *fakeTx) Exec(ctx context.Context, query string, args ...any) error { return nil }
func (t *fakeTx) QueryRow(ctx context.Context, query string, args ...any) database.Row {
	return fakeRow{}
}
func (t *fakeTx) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	return fakeRows{}, nil
}
func (t *fakeTx) Commit(ctx context.Context) error { return t.commitErr }
func (t *fakeTx) Rollback(ctx context.Context) error {
	if t.rollbackCount != nil {
		*t.rollbackCount++
	}
	return nil
}

type fakeSession struct {
	rollbacks int
	beginErr  error
}

func (s *fakeSession) Begin(ctx context.Context, isolation string) (database.Tx, error) {
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	return &fakeTx{rollbackCount: &s.rollbacks}, nil
}
func (s *fakeSession) Ping(ctx context.Context) error { return nil }
func (s *fakeSession) Close()                         {}

type fakeConnManager struct {
	session     *fakeSession
	reconnected int
}

func (m *fakeConnManager) Session() database.Session { return m.session }
func (m *fakeConnManager) Reconnect(ctx context.Context) error {
	m.reconnected++
	m.session = &fakeSession{}
	return nil
}

type scriptedExecutor struct {
	errs []error
	call int
}

func (e *scriptedExecutor) Execute(ctx context.Context, tx database.Tx, txnType string, rng *rand.Rand, params types.Params) error {
	i := e.call
	e.call++
	if i < len(e.errs) {
		return e.errs[i]
	}
	return nil
}

func newTestWorker(t *testing.T, executor Executor, conn ConnManager) (*Worker, *workload.WorkloadState) {
	t.Helper()
	logger := zap.NewNop()
	state := bench.New(1, logger)
	phases := []*types.Phase{types.NewPhase("p1", []types.WeightedTxn{{TxnType: "new_order", Weight: 1}}, 1, types.ModeUnlimited, 0, 0, "read_committed")}
	wl := workload.New(1, phases, nil, state, logger)
	wl.SwitchToNextPhase()

	w := New(Config{
		ID:         1,
		Workload:   wl,
		State:      state,
		Conn:       conn,
		Classifier: classify.New(),
		Executor:   executor,
		RetryCap:   5,
		Isolation:  "read_committed",
		Logger:     logging.NewDefaultLogger(),
	})
	return w, wl
}

func TestAttemptSucceedsFirstTry(t *testing.T) {
	conn := &fakeConnManager{session: &fakeSession{}}
	w, _ := newTestWorker(t, &scriptedExecutor{}, conn)

	sample := w.attempt(context.Background(), types.SubmittedProcedure{TxnType: "new_order"})
	if sample.Outcome != types.OutcomeSuccess {
		t.Fatalf("got outcome %v, want success", sample.Outcome)
	}
}

func TestAttemptRetriesOnRetryableThenSucceeds(t *testing.T) {
	conn := &fakeConnManager{session: &fakeSession{}}
	// vendorCode 0, sqlstate "40001" classifies as Retry (postgres serialization failure).
	retryable := &pgconn.PgError{Code: "40001"}
	w, _ := newTestWorker(t, &scriptedExecutor{errs: []error{retryable, retryable, nil}}, conn)

	sample := w.attempt(context.Background(), types.SubmittedProcedure{TxnType: "new_order"})
	if sample.Outcome != types.OutcomeSuccess {
		t.Fatalf("got outcome %v, want success after retries", sample.Outcome)
	}
	if conn.session.rollbacks != 2 {
		t.Fatalf("got %d rollbacks, want 2", conn.session.rollbacks)
	}
}

func TestAttemptRetryDifferentBreaksImmediately(t *testing.T) {
	conn := &fakeConnManager{session: &fakeSession{}}
	cancelled := &pgconn.PgError{Code: "02000"}
	exec := &scriptedExecutor{errs: []error{cancelled}}
	w, _ := newTestWorker(t, exec, conn)

	sample := w.attempt(context.Background(), types.SubmittedProcedure{TxnType: "new_order"})
	if sample.Outcome != types.OutcomeRetryDifferent {
		t.Fatalf("got outcome %v, want retry_different", sample.Outcome)
	}
	if exec.call != 1 {
		t.Fatalf("executor called %d times, want exactly 1 (no retry loop)", exec.call)
	}
}

func TestAttemptFatalTriggersReconnect(t *testing.T) {
	conn := &fakeConnManager{session: &fakeSession{}}
	fatal := &pgconn.PgError{Code: "XX000"}
	w, _ := newTestWorker(t, &scriptedExecutor{errs: []error{fatal}}, conn)

	sample := w.attempt(context.Background(), types.SubmittedProcedure{TxnType: "new_order"})
	if sample.Outcome != types.OutcomeError {
		t.Fatalf("got outcome %v, want error", sample.Outcome)
	}
	if conn.reconnected != 1 {
		t.Fatalf("got %d reconnects, want 1", conn.reconnected)
	}
}

func TestAttemptExhaustsRetryCapAndConvertsToError(t *testing.T) {
	conn := &fakeConnManager{session: &fakeSession{}}
	persistent := errors.New("no sqlstate, no vendor code match")
	exec := &scriptedExecutor{errs: []error{persistent, persistent, persistent, persistent, persistent}}
	w, _ := newTestWorker(t, exec, conn)
	w.cfg.RetryCap = 3

	sample := w.attempt(context.Background(), types.SubmittedProcedure{TxnType: "new_order"})
	if sample.Outcome != types.OutcomeError {
		t.Fatalf("got outcome %v, want error once retry cap exhausted", sample.Outcome)
	}
	if exec.call != 3 {
		t.Fatalf("executor called %d times, want exactly RetryCap (3)", exec.call)
	}
}

func TestAttemptTransportFailureReconnectsAndRetries(t *testing.T) {
	conn := &fakeConnManager{session: &fakeSession{}}
	transportErr := &fakeNetError{}
	exec := &scriptedExecutor{errs: []error{transportErr, nil}}
	w, _ := newTestWorker(t, exec, conn)

	sample := w.attempt(context.Background(), types.SubmittedProcedure{TxnType: "new_order"})
	if sample.Outcome != types.OutcomeSuccess {
		t.Fatalf("got outcome %v, want success after reconnect", sample.Outcome)
	}
	if conn.reconnected != 1 {
		t.Fatalf("got %d reconnects, want 1", conn.reconnected)
	}
}

// fakeNetError satisfies net.Error so database.IsTransportError routes
// it through the reconnect-and-retry path instead of the classifier.
type fakeNetError struct{}

func (e *fakeNetError) Error() string   { return "connection reset by peer" }
func (e *fakeNetError) Timeout() bool   { return false }
func (e *fakeNetError) Temporary() bool { return true }
