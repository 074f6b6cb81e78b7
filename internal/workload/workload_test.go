package workload

import (
	"testing"
	"time"

	"txbench/internal/bench"
	"txbench/pkg/types"
)

func mix() []types.WeightedTxn {
	return []types.WeightedTxn{{TxnType: "new_order", Weight: 1}}
}

func TestSwitchToNextPhaseSetsWorkerNeedSleep(t *testing.T) {
	phases := []*types.Phase{
		types.NewPhase("p0", mix(), 2, types.ModeRateLimited, 100, time.Second, "serializable"),
	}
	state := bench.New(4, nil)
	w := New(4, phases, nil, state, nil)

	phase := w.SwitchToNextPhase()
	if phase == nil || phase.ID != "p0" {
		t.Fatalf("expected phase p0, got %+v", phase)
	}
	if w.workerNeedSleep != 2 {
		t.Fatalf("workerNeedSleep = %d, want 2 (4 total - 2 active)", w.workerNeedSleep)
	}
}

func TestSwitchToNextPhaseDisabledSleepsAll(t *testing.T) {
	phases := []*types.Phase{
		types.NewPhase("p0", mix(), 0, types.ModeDisabled, 0, time.Second, ""),
	}
	state := bench.New(3, nil)
	w := New(3, phases, nil, state, nil)
	w.SwitchToNextPhase()
	if w.workerNeedSleep != 3 {
		t.Fatalf("workerNeedSleep = %d, want 3", w.workerNeedSleep)
	}
}

func TestSwitchToNextPhaseEndOfWorkloadNoSleep(t *testing.T) {
	phases := []*types.Phase{
		types.NewPhase("p0", mix(), 1, types.ModeRateLimited, 10, time.Second, ""),
	}
	state := bench.New(1, nil)
	w := New(1, phases, nil, state, nil)
	w.SwitchToNextPhase()
	phase := w.SwitchToNextPhase()
	if phase != nil {
		t.Fatalf("expected nil phase past the end, got %+v", phase)
	}
	if w.workerNeedSleep != 0 {
		t.Fatalf("workerNeedSleep = %d, want 0 at end of workload", w.workerNeedSleep)
	}
}

func TestSwitchToNextPhaseDrainsQueue(t *testing.T) {
	phases := []*types.Phase{
		types.NewPhase("p0", mix(), 1, types.ModeRateLimited, 10, time.Second, ""),
		types.NewPhase("p1", mix(), 1, types.ModeRateLimited, 10, time.Second, ""),
	}
	state := bench.New(1, nil)
	w := New(1, phases, nil, state, nil)
	w.SwitchToNextPhase()
	w.AddToQueue(3, false, time.Now())
	if w.QueueSize() != 3 {
		t.Fatalf("queue size = %d, want 3", w.QueueSize())
	}
	w.SwitchToNextPhase()
	if w.QueueSize() != 0 {
		t.Fatalf("queue size after switch = %d, want 0", w.QueueSize())
	}
}

func TestAddToQueueTrimsToRateQueueLimit(t *testing.T) {
	phases := []*types.Phase{
		types.NewPhase("p0", mix(), 1, types.ModeRateLimited, 10, time.Second, ""),
	}
	state := bench.New(1, nil)
	w := New(1, phases, nil, state, nil)
	w.SwitchToNextPhase()
	w.AddToQueue(RateQueueLimit+500, false, time.Now())
	if got := w.QueueSize(); got != RateQueueLimit {
		t.Fatalf("queue size = %d, want %d", got, RateQueueLimit)
	}
}

func TestAddToQueueNoopWhenNotRateLimited(t *testing.T) {
	phases := []*types.Phase{
		types.NewPhase("p0", mix(), 1, types.ModeUnlimited, 0, time.Second, ""),
	}
	state := bench.New(1, nil)
	w := New(1, phases, nil, state, nil)
	w.SwitchToNextPhase()
	w.AddToQueue(10, false, time.Now())
	if w.QueueSize() != 0 {
		t.Fatalf("queue size = %d, want 0 for an unlimited-mode phase", w.QueueSize())
	}
}

func TestFetchWorkUnlimitedModeDoesNotTouchQueue(t *testing.T) {
	phases := []*types.Phase{
		types.NewPhase("p0", mix(), 1, types.ModeUnlimited, 0, time.Second, ""),
	}
	state := bench.New(1, nil)
	w := New(1, phases, nil, state, nil)
	w.SwitchToNextPhase()

	proc, ok := w.FetchWork(0, time.Now())
	if !ok || proc.TxnType != "new_order" {
		t.Fatalf("unexpected fetch result: %+v, %v", proc, ok)
	}
	if w.WorkersWorking() != 1 {
		t.Fatalf("workersWorking = %d, want 1", w.WorkersWorking())
	}
	w.FinishedWork()
	if w.WorkersWorking() != 0 {
		t.Fatalf("workersWorking after finish = %d, want 0", w.WorkersWorking())
	}
}

func TestFetchWorkSerialModeCycles(t *testing.T) {
	serialMix := []types.WeightedTxn{
		{TxnType: "new_order", Weight: 1},
		{TxnType: "payment", Weight: 1},
	}
	phases := []*types.Phase{
		types.NewPhase("p0", serialMix, 1, types.ModeSerial, 0, time.Second, ""),
	}
	state := bench.New(1, nil)
	w := New(1, phases, nil, state, nil)
	w.SwitchToNextPhase()

	first, ok := w.FetchWork(0, time.Now())
	if !ok {
		t.Fatal("expected ok fetch")
	}
	second, ok := w.FetchWork(0, time.Now())
	if !ok {
		t.Fatal("expected ok fetch")
	}
	if first.TxnType == second.TxnType {
		t.Fatalf("serial phase should cycle: got %s then %s", first.TxnType, second.TxnType)
	}
}

func TestFetchWorkNilPhaseReturnsFalse(t *testing.T) {
	state := bench.New(1, nil)
	w := New(1, nil, nil, state, nil)
	_, ok := w.FetchWork(0, time.Now())
	if ok {
		t.Fatal("expected ok=false with no active phase")
	}
}

func TestFetchWorkRateLimitedBlocksThenWakesOnAddToQueue(t *testing.T) {
	phases := []*types.Phase{
		types.NewPhase("p0", mix(), 1, types.ModeRateLimited, 10, time.Second, ""),
	}
	state := bench.New(1, nil)
	w := New(1, phases, nil, state, nil)
	w.SwitchToNextPhase()

	resultCh := make(chan bool, 1)
	go func() {
		_, ok := w.FetchWork(0, time.Now())
		resultCh <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	w.AddToQueue(1, false, time.Now())

	select {
	case ok := <-resultCh:
		if !ok {
			t.Fatal("expected a successful fetch after enqueue")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("fetchWork never woke after AddToQueue")
	}
}

func TestFetchWorkRateLimitedReturnsFalseOnExit(t *testing.T) {
	phases := []*types.Phase{
		types.NewPhase("p0", mix(), 1, types.ModeRateLimited, 10, time.Second, ""),
	}
	state := bench.New(1, nil)
	w := New(1, phases, nil, state, nil)
	w.SwitchToNextPhase()

	resultCh := make(chan bool, 1)
	go func() {
		_, ok := w.FetchWork(0, time.Now())
		resultCh <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	state.ForceExit()
	w.NotifyStateChange()

	select {
	case ok := <-resultCh:
		if ok {
			t.Fatal("expected ok=false once benchmark state reaches exit")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("fetchWork never woke on state exit")
	}
}

func TestStayAwakeLimitsActiveWorkers(t *testing.T) {
	phases := []*types.Phase{
		types.NewPhase("p0", mix(), 2, types.ModeRateLimited, 10, time.Second, ""),
	}
	state := bench.New(4, nil)
	w := New(4, phases, nil, state, nil)
	w.SwitchToNextPhase()

	awake := make(chan int, 4)
	for i := 0; i < 4; i++ {
		go func(id int) {
			w.StayAwake()
			awake <- id
		}(i)
	}

	time.Sleep(100 * time.Millisecond)
	if len(awake) != 2 {
		t.Fatalf("awake workers = %d, want 2", len(awake))
	}
}

func TestStayAwakeNoSleepWhenNeedSleepZero(t *testing.T) {
	phases := []*types.Phase{
		types.NewPhase("p0", mix(), 2, types.ModeRateLimited, 10, time.Second, ""),
	}
	state := bench.New(2, nil)
	w := New(2, phases, nil, state, nil)
	w.SwitchToNextPhase()

	done := make(chan struct{})
	go func() {
		w.StayAwake()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("StayAwake blocked when workerNeedSleep was 0")
	}
}
