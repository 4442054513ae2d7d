package monitor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/fleetpulse/internal/device"
	"github.com/HerbHall/fleetpulse/internal/probe"
)

// State is the scheduler lifecycle state.
type State int32

const (
	StateStopped State = iota
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "stopped"
	}
}

// DeviceSource supplies the devices a polling pass must probe.
// Satisfied by device.Store.
type DeviceSource interface {
	ListMonitorable(ctx context.Context) ([]device.Device, error)
}

// SettingsSource supplies the live polling parameters. Both are re-read
// every cycle so settings changes take effect without a restart.
// Satisfied by settings.Store.
type SettingsSource interface {
	Interval(ctx context.Context) int
	Timeout(ctx context.Context) time.Duration
}

// Prober executes one reachability check. Satisfied by probe.Dispatcher.
type Prober interface {
	Dispatch(ctx context.Context, d device.Device, timeout time.Duration) probe.Result
}

// Scheduler drives the periodic polling loop: probe every monitorable
// device, push the results, re-read the interval, sleep. The sleep is cut
// into short increments so Stop takes effect quickly even with long
// intervals.
type Scheduler struct {
	devices  DeviceSource
	settings SettingsSource
	prober   Prober
	queue    *ResultQueue
	logger   *zap.Logger

	sleepIncrement time.Duration

	state      atomic.Int32
	stopCh     chan struct{}
	wg         sync.WaitGroup
	refreshing atomic.Bool
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(devices DeviceSource, settings SettingsSource, prober Prober, queue *ResultQueue, sleepIncrement time.Duration, logger *zap.Logger) *Scheduler {
	if sleepIncrement <= 0 {
		sleepIncrement = 500 * time.Millisecond
	}
	return &Scheduler{
		devices:        devices,
		settings:       settings,
		prober:         prober,
		queue:          queue,
		sleepIncrement: sleepIncrement,
		logger:         logger,
	}
}

// Start launches the polling loop. It fails if the loop is already
// running or still stopping.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateStopped), int32(StateRunning)) {
		return fmt.Errorf("scheduler is %s", State(s.state.Load()))
	}

	s.stopCh = make(chan struct{})
	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("scheduler started")
	return nil
}

// Stop signals the loop and waits for it to finish. The loop notices
// within one sleep increment plus any in-flight probe.
func (s *Scheduler) Stop() {
	if !s.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		return
	}
	close(s.stopCh)
	s.wg.Wait()
	s.state.Store(int32(StateStopped))
	s.logger.Info("scheduler stopped")
}

// CurrentState returns the lifecycle state.
func (s *Scheduler) CurrentState() State {
	return State(s.state.Load())
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool {
	return s.CurrentState() == StateRunning
}

// Refresh runs one polling pass immediately on its own goroutine. The
// scheduled loop's countdown is untouched. Overlapping refreshes
// coalesce into one.
func (s *Scheduler) Refresh(ctx context.Context) {
	if !s.refreshing.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer s.refreshing.Store(false)
		s.logger.Debug("manual refresh")
		s.runCycle(ctx, nil)
	}()
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	for {
		s.runCycle(ctx, s.stopCh)

		interval := time.Duration(s.settings.Interval(ctx)) * time.Second
		if !s.sleep(ctx, interval) {
			return
		}
	}
}

// runCycle probes every monitorable device once. A nil stop channel
// (manual refresh) means the pass always completes.
func (s *Scheduler) runCycle(ctx context.Context, stop <-chan struct{}) {
	devices, err := s.devices.ListMonitorable(ctx)
	if err != nil {
		// The loop must survive store hiccups; treat as an empty pass.
		s.logger.Warn("failed to load monitorable devices", zap.Error(err))
		return
	}
	if len(devices) == 0 {
		return
	}

	timeout := s.settings.Timeout(ctx)
	for i := range devices {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		default:
		}
		s.queue.Push(s.prober.Dispatch(ctx, devices[i], timeout))
	}
}

// sleep waits for d in short increments, returning false if the
// scheduler was stopped or the context cancelled.
func (s *Scheduler) sleep(ctx context.Context, d time.Duration) bool {
	deadline := time.Now().Add(d)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return true
		}
		step := s.sleepIncrement
		if remaining < step {
			step = remaining
		}

		timer := time.NewTimer(step)
		select {
		case <-s.stopCh:
			timer.Stop()
			return false
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
}
