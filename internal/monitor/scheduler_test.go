package monitor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/fleetpulse/internal/device"
	"github.com/HerbHall/fleetpulse/internal/probe"
)

type fakeDevices struct {
	devices []device.Device
	err     error
}

func (f *fakeDevices) ListMonitorable(ctx context.Context) ([]device.Device, error) {
	return f.devices, f.err
}

type fakeSettings struct {
	interval atomic.Int64 // seconds
	timeout  time.Duration
}

func (f *fakeSettings) Interval(ctx context.Context) int {
	return int(f.interval.Load())
}

func (f *fakeSettings) Timeout(ctx context.Context) time.Duration {
	if f.timeout == 0 {
		return time.Second
	}
	return f.timeout
}

type fakeProber struct {
	calls atomic.Int64
	ok    bool
}

func (f *fakeProber) Dispatch(ctx context.Context, d device.Device, timeout time.Duration) probe.Result {
	f.calls.Add(1)
	return probe.Result{DeviceID: d.ID, Success: f.ok, Timestamp: time.Now().UTC()}
}

func testDevices(n int) []device.Device {
	out := make([]device.Device, n)
	for i := range out {
		out[i] = device.Device{ID: string(rune('a' + i)), Host: "10.0.0.1", Method: device.MethodPing}
	}
	return out
}

func TestSchedulerProbesAndQueues(t *testing.T) {
	devs := &fakeDevices{devices: testDevices(3)}
	set := &fakeSettings{}
	set.interval.Store(3600)
	prober := &fakeProber{ok: true}
	q := NewResultQueue()

	s := NewScheduler(devs, set, prober, q, 10*time.Millisecond, zap.NewNop())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for q.Len() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if q.Len() != 3 {
		t.Fatalf("queue has %d results after first cycle, want 3", q.Len())
	}
	if !s.Running() {
		t.Error("scheduler should report running")
	}
}

func TestSchedulerStartWhileRunning(t *testing.T) {
	devs := &fakeDevices{}
	set := &fakeSettings{}
	set.interval.Store(3600)

	s := NewScheduler(devs, set, &fakeProber{}, NewResultQueue(), 10*time.Millisecond, zap.NewNop())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	if err := s.Start(context.Background()); err == nil {
		t.Error("second Start should fail while running")
	}
}

func TestSchedulerStopLatency(t *testing.T) {
	devs := &fakeDevices{}
	set := &fakeSettings{}
	set.interval.Store(3600) // one hour between cycles
	increment := 50 * time.Millisecond

	s := NewScheduler(devs, set, &fakeProber{}, NewResultQueue(), increment, zap.NewNop())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(20 * time.Millisecond) // let the loop enter its sleep

	start := time.Now()
	s.Stop()
	elapsed := time.Since(start)

	// Stop must take effect within roughly one sleep increment, not the
	// full hour-long interval.
	if elapsed > increment+100*time.Millisecond {
		t.Errorf("Stop took %v, want about one %v increment", elapsed, increment)
	}
	if s.CurrentState() != StateStopped {
		t.Errorf("state after Stop = %v, want stopped", s.CurrentState())
	}
}

func TestSchedulerSurvivesStoreErrors(t *testing.T) {
	devs := &fakeDevices{err: context.DeadlineExceeded}
	set := &fakeSettings{}
	set.interval.Store(1)

	s := NewScheduler(devs, set, &fakeProber{}, NewResultQueue(), 10*time.Millisecond, zap.NewNop())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	time.Sleep(50 * time.Millisecond)
	if !s.Running() {
		t.Error("scheduler must keep running through device load failures")
	}
}

func TestManualRefreshIndependentOfLoop(t *testing.T) {
	devs := &fakeDevices{devices: testDevices(2)}
	set := &fakeSettings{}
	set.interval.Store(3600)
	prober := &fakeProber{ok: true}
	q := NewResultQueue()

	s := NewScheduler(devs, set, prober, q, 10*time.Millisecond, zap.NewNop())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	// Wait out the first cycle.
	deadline := time.Now().Add(2 * time.Second)
	for prober.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	base := prober.calls.Load()

	// A manual refresh probes every device again even though the loop is
	// deep inside its hour-long countdown.
	s.Refresh(context.Background())
	deadline = time.Now().Add(2 * time.Second)
	for prober.calls.Load() < base+2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := prober.calls.Load(); got != base+2 {
		t.Errorf("probe calls after refresh = %d, want %d", got, base+2)
	}
}

func TestRefreshWithoutRunningLoop(t *testing.T) {
	devs := &fakeDevices{devices: testDevices(1)}
	set := &fakeSettings{}
	set.interval.Store(10)
	prober := &fakeProber{ok: true}
	q := NewResultQueue()

	s := NewScheduler(devs, set, prober, q, 10*time.Millisecond, zap.NewNop())

	// Refresh works while the scheduler is stopped.
	s.Refresh(context.Background())
	deadline := time.Now().Add(2 * time.Second)
	for q.Len() < 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if q.Len() != 1 {
		t.Errorf("queue has %d results after refresh, want 1", q.Len())
	}
	if s.CurrentState() != StateStopped {
		t.Errorf("refresh must not change state, got %v", s.CurrentState())
	}
}

func TestSchedulerRereadsInterval(t *testing.T) {
	devs := &fakeDevices{devices: testDevices(1)}
	set := &fakeSettings{}
	set.interval.Store(0) // no sleep between cycles
	prober := &fakeProber{ok: true}

	s := NewScheduler(devs, set, prober, NewResultQueue(), 5*time.Millisecond, zap.NewNop())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for prober.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if prober.calls.Load() < 3 {
		t.Fatal("loop did not cycle with a zero interval")
	}

	// Raising the interval takes effect on the next sleep without a
	// restart: probing settles.
	set.interval.Store(3600)
	time.Sleep(50 * time.Millisecond)
	settled := prober.calls.Load()
	time.Sleep(100 * time.Millisecond)
	if got := prober.calls.Load(); got != settled {
		t.Errorf("probe calls kept growing (%d -> %d) after interval raise", settled, got)
	}
}
