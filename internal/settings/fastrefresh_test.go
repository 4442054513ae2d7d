package settings

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

type fakeCounter struct {
	n int
}

func (f *fakeCounter) CountMonitored(ctx context.Context) (int, error) {
	return f.n, nil
}

func TestFastRefreshSaveAndRestore(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	counter := &fakeCounter{}
	fr := NewFastRefresh(s, counter, zap.NewNop())

	if err := s.SetInterval(ctx, 30); err != nil {
		t.Fatalf("SetInterval: %v", err)
	}

	// Starting the first monitored device drops the interval to the
	// minimum and remembers the configured value.
	counter.n = 0
	fr.BeforeStart(ctx)
	if got := s.Interval(ctx); got != MinIntervalSeconds {
		t.Errorf("Interval during fast refresh = %d, want %d", got, MinIntervalSeconds)
	}
	if !fr.Active() {
		t.Error("fast refresh should be active after first start")
	}
	counter.n = 1

	// Stopping the last monitored device restores the saved interval.
	counter.n = 0
	fr.AfterStop(ctx)
	if got := s.Interval(ctx); got != 30 {
		t.Errorf("Interval after restore = %d, want 30", got)
	}
	if fr.Active() {
		t.Error("fast refresh should be inactive after restore")
	}
}

func TestFastRefreshOnlyFirstStart(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	counter := &fakeCounter{n: 0}
	fr := NewFastRefresh(s, counter, zap.NewNop())

	if err := s.SetInterval(ctx, 45); err != nil {
		t.Fatalf("SetInterval: %v", err)
	}

	fr.BeforeStart(ctx)
	counter.n = 1

	// A second start with devices already monitored must not re-save
	// the forced interval as the value to restore.
	fr.BeforeStart(ctx)
	counter.n = 2

	counter.n = 0
	fr.AfterStop(ctx)
	if got := s.Interval(ctx); got != 45 {
		t.Errorf("Interval after restore = %d, want the original 45", got)
	}
}

func TestFastRefreshNoRestoreWhileDevicesRemain(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	counter := &fakeCounter{n: 0}
	fr := NewFastRefresh(s, counter, zap.NewNop())

	if err := s.SetInterval(ctx, 20); err != nil {
		t.Fatalf("SetInterval: %v", err)
	}
	fr.BeforeStart(ctx)
	counter.n = 2

	// One device stops but another remains monitored.
	counter.n = 1
	fr.AfterStop(ctx)
	if got := s.Interval(ctx); got != MinIntervalSeconds {
		t.Errorf("Interval = %d, restore must wait until no devices remain", got)
	}
	if !fr.Active() {
		t.Error("fast refresh should remain active while devices are monitored")
	}
}
