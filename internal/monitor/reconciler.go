package monitor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/fleetpulse/internal/event"
	"github.com/HerbHall/fleetpulse/internal/probe"
)

// StateStore persists offline-episode bookkeeping. Satisfied by
// device.Store.
type StateStore interface {
	// MarkOffline records the onset of an offline episode if the device
	// was online. Returns whether a transition happened.
	MarkOffline(ctx context.Context, id string, ts time.Time) (bool, error)
	// MarkOnline clears the live offline marker if one was set. Returns
	// whether a transition happened.
	MarkOnline(ctx context.Context, id string) (bool, error)
	GetOfflineFields(ctx context.Context, id string) (offlineSince, lastOffline *time.Time, err error)
}

// Snapshot is the consumer-visible state of one device.
type Snapshot struct {
	DeviceID        string     `json:"device_id"`
	Online          bool       `json:"online"`
	LatencyMs       *float64   `json:"latency_ms,omitempty"`
	RemoteServices  []string   `json:"remote_services,omitempty"`
	OfflineSince    *time.Time `json:"offline_since,omitempty"`
	LastOfflineTime *time.Time `json:"last_offline_time,omitempty"`
	CheckedAt       time.Time  `json:"checked_at"`
}

// Reconciler periodically drains the result queue, applies the offline
// bookkeeping rules to the store, refreshes the in-memory snapshots, and
// publishes updates on the event bus.
type Reconciler struct {
	queue  *ResultQueue
	store  StateStore
	bus    *event.Bus
	logger *zap.Logger

	tick time.Duration

	mu        sync.RWMutex
	snapshots map[string]Snapshot

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewReconciler creates a reconciler draining queue every tick.
func NewReconciler(queue *ResultQueue, store StateStore, bus *event.Bus, tick time.Duration, logger *zap.Logger) *Reconciler {
	if tick <= 0 {
		tick = 800 * time.Millisecond
	}
	return &Reconciler{
		queue:     queue,
		store:     store,
		bus:       bus,
		tick:      tick,
		logger:    logger,
		snapshots: make(map[string]Snapshot),
	}
}

// Start launches the reconcile loop.
func (r *Reconciler) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.tick)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Reconcile(ctx)
			}
		}
	}()
}

// Stop halts the loop after finishing the current pass.
func (r *Reconciler) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

// Reconcile drains the queue once and applies every result in push
// order, so the newest result for a device wins within a batch.
func (r *Reconciler) Reconcile(ctx context.Context) {
	batch := r.queue.DrainAll()
	if len(batch) == 0 {
		return
	}

	for i := range batch {
		r.apply(ctx, batch[i])
	}
	r.updateOfflineGauge()

	r.bus.PublishAsync(ctx, event.Event{
		Topic:     TopicStatusUpdated,
		Source:    "monitor",
		Timestamp: time.Now().UTC(),
		Payload:   r.Snapshots(),
	})
}

func (r *Reconciler) apply(ctx context.Context, res probe.Result) {
	resultsReconciled.Inc()

	var transitioned bool
	var transitionTopic string

	if res.Success {
		recovered, err := r.store.MarkOnline(ctx, res.DeviceID)
		if err != nil {
			r.logger.Error("failed to record recovery",
				zap.String("device_id", res.DeviceID), zap.Error(err))
		}
		transitioned, transitionTopic = recovered, TopicDeviceOnline
	} else {
		entered, err := r.store.MarkOffline(ctx, res.DeviceID, res.Timestamp)
		if err != nil {
			r.logger.Error("failed to record offline onset",
				zap.String("device_id", res.DeviceID), zap.Error(err))
		}
		transitioned, transitionTopic = entered, TopicDeviceOffline
	}

	offlineSince, lastOffline, err := r.store.GetOfflineFields(ctx, res.DeviceID)
	if err != nil {
		r.logger.Error("failed to read offline fields",
			zap.String("device_id", res.DeviceID), zap.Error(err))
	}

	snap := Snapshot{
		DeviceID:        res.DeviceID,
		Online:          res.Success,
		LatencyMs:       res.LatencyMs,
		RemoteServices:  res.RemoteServices,
		OfflineSince:    offlineSince,
		LastOfflineTime: lastOffline,
		CheckedAt:       res.Timestamp,
	}

	r.mu.Lock()
	r.snapshots[res.DeviceID] = snap
	r.mu.Unlock()

	if transitioned {
		r.logger.Info("device state transition",
			zap.String("device_id", res.DeviceID),
			zap.Bool("online", res.Success),
		)
		r.bus.PublishAsync(ctx, event.Event{
			Topic:     transitionTopic,
			Source:    "monitor",
			Timestamp: time.Now().UTC(),
			Payload:   snap,
		})
	}
}

// Snapshots returns a copy of all device snapshots.
func (r *Reconciler) Snapshots() []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Snapshot, 0, len(r.snapshots))
	for _, s := range r.snapshots {
		out = append(out, s)
	}
	return out
}

// Snapshot returns the snapshot for one device, if any.
func (r *Reconciler) Snapshot(deviceID string) (Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.snapshots[deviceID]
	return s, ok
}

// Forget drops the snapshot of a deleted device.
func (r *Reconciler) Forget(deviceID string) {
	r.mu.Lock()
	delete(r.snapshots, deviceID)
	r.mu.Unlock()
	r.updateOfflineGauge()
}

func (r *Reconciler) updateOfflineGauge() {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, s := range r.snapshots {
		if !s.Online {
			n++
		}
	}
	devicesOffline.Set(float64(n))
}
