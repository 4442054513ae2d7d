package settings

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// MonitoredCounter reports how many devices are under active monitoring.
// Satisfied by device.Store.
type MonitoredCounter interface {
	CountMonitored(ctx context.Context) (int, error)
}

// FastRefresh implements the temporary 1-second polling override: when
// monitoring is started while no device was being monitored, the current
// interval is saved and forced to the minimum; when the last monitored
// device is stopped, the saved value is restored exactly. The scheduler
// itself is unaware of this policy -- it just re-reads the interval.
type FastRefresh struct {
	settings *Store
	devices  MonitoredCounter
	logger   *zap.Logger

	mu   sync.Mutex
	prev *int // saved interval while the override is active
}

// NewFastRefresh creates the fast-refresh controller.
func NewFastRefresh(settings *Store, devices MonitoredCounter, logger *zap.Logger) *FastRefresh {
	return &FastRefresh{settings: settings, devices: devices, logger: logger}
}

// BeforeStart must be called before monitoring is enabled for a device.
// If nothing was previously monitored, it saves the interval and forces 1s.
func (f *FastRefresh) BeforeStart(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.prev != nil {
		return // already active
	}

	n, err := f.devices.CountMonitored(ctx)
	if err != nil {
		f.logger.Warn("fast-refresh: monitored count unavailable, leaving interval unchanged", zap.Error(err))
		return
	}
	if n > 0 {
		return
	}

	cur := f.settings.Interval(ctx)
	if err := f.settings.SetInterval(ctx, MinIntervalSeconds); err != nil {
		f.logger.Warn("fast-refresh: failed to force minimum interval", zap.Error(err))
		return
	}
	f.prev = &cur
	f.logger.Info("fast-refresh enabled",
		zap.Int("forced_interval", MinIntervalSeconds),
		zap.Int("saved_interval", cur),
	)
}

// AfterStop must be called after monitoring is disabled for a device.
// When no monitored devices remain, the saved interval is restored.
func (f *FastRefresh) AfterStop(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.prev == nil {
		return
	}

	n, err := f.devices.CountMonitored(ctx)
	if err != nil {
		f.logger.Warn("fast-refresh: monitored count unavailable, keeping override", zap.Error(err))
		return
	}
	if n > 0 {
		return // other devices still monitored; override remains
	}

	if err := f.settings.SetInterval(ctx, *f.prev); err != nil {
		f.logger.Warn("fast-refresh: failed to restore interval", zap.Error(err))
		return
	}
	f.logger.Info("fast-refresh disabled", zap.Int("restored_interval", *f.prev))
	f.prev = nil
}

// Active reports whether the override is currently in effect.
func (f *FastRefresh) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prev != nil
}
