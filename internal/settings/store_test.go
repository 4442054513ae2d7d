package settings

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/fleetpulse/internal/store"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s, err := NewStore(context.Background(), db, zap.NewNop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestIntervalDefaults(t *testing.T) {
	s := testStore(t)
	if got := s.Interval(context.Background()); got != DefaultIntervalSeconds {
		t.Errorf("Interval() = %d, want seeded default %d", got, DefaultIntervalSeconds)
	}
}

func TestSetIntervalClamps(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	tests := []struct {
		set  int
		want int
	}{
		{30, 30},
		{0, MinIntervalSeconds},
		{-5, MinIntervalSeconds},
		{999999, MaxIntervalSeconds},
		{MinIntervalSeconds, MinIntervalSeconds},
		{MaxIntervalSeconds, MaxIntervalSeconds},
	}
	for _, tt := range tests {
		if err := s.SetInterval(ctx, tt.set); err != nil {
			t.Fatalf("SetInterval(%d): %v", tt.set, err)
		}
		if got := s.Interval(ctx); got != tt.want {
			t.Errorf("Interval after SetInterval(%d) = %d, want %d", tt.set, got, tt.want)
		}
	}
}

func TestClampInterval(t *testing.T) {
	if got := ClampInterval(0); got != MinIntervalSeconds {
		t.Errorf("ClampInterval(0) = %d", got)
	}
	if got := ClampInterval(5000); got != MaxIntervalSeconds {
		t.Errorf("ClampInterval(5000) = %d", got)
	}
	if got := ClampInterval(60); got != 60 {
		t.Errorf("ClampInterval(60) = %d", got)
	}
}

func TestTimeoutRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if got := s.Timeout(ctx); got != DefaultTimeout {
		t.Errorf("Timeout() = %v, want seeded default %v", got, DefaultTimeout)
	}

	if err := s.SetTimeout(ctx, 5*time.Second); err != nil {
		t.Fatalf("SetTimeout: %v", err)
	}
	if got := s.Timeout(ctx); got != 5*time.Second {
		t.Errorf("Timeout() = %v, want 5s", got)
	}
}

func TestTimeoutLegacyBareSeconds(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	// Older records stored the timeout as a bare seconds number.
	if err := s.set(ctx, keyTimeout, "3"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := s.Timeout(ctx); got != 3*time.Second {
		t.Errorf("Timeout() with legacy value = %v, want 3s", got)
	}
}

func TestIntervalLegacyFloat(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.set(ctx, keyInterval, "15.0"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := s.Interval(ctx); got != 15 {
		t.Errorf("Interval() with legacy float value = %d, want 15", got)
	}
}

func TestExportOnClose(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if s.ExportOnClose(ctx) {
		t.Error("ExportOnClose should default to false")
	}
	if err := s.SetExportOnClose(ctx, true); err != nil {
		t.Fatalf("SetExportOnClose: %v", err)
	}
	if !s.ExportOnClose(ctx) {
		t.Error("ExportOnClose not persisted")
	}
}
