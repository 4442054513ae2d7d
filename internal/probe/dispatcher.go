package probe

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/fleetpulse/internal/device"
)

// Dispatcher routes a device to the probe strategy its method selects and
// enriches the result with service detection.
type Dispatcher struct {
	ping     *PingProber
	detector *ServiceDetector
	logger   *zap.Logger
}

// NewDispatcher creates a dispatcher. detectorTimeout bounds each service
// detection port check.
func NewDispatcher(detectorTimeout time.Duration, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		ping:     NewPingProber(logger),
		detector: NewServiceDetector(detectorTimeout),
		logger:   logger,
	}
}

// Dispatch probes d with the given timeout and returns a complete Result.
// Probe errors degrade to failed results; the scheduler treats every
// device the same way regardless of why a probe could not run.
func (dp *Dispatcher) Dispatch(ctx context.Context, d device.Device, timeout time.Duration) Result {
	res := Result{
		DeviceID:  d.ID,
		Timestamp: time.Now().UTC(),
	}

	start := time.Now()
	var (
		ok      bool
		latency *float64
		err     error
	)
	switch d.Method {
	case device.MethodTCP:
		ok, latency, err = NewTCPProber(d.ProbePort(), dp.logger).Probe(ctx, d.Host, timeout)
	default:
		ok, latency, err = dp.ping.Probe(ctx, d.Host, timeout)
	}
	probeDuration.WithLabelValues(string(d.Method)).Observe(time.Since(start).Seconds())

	if err != nil {
		dp.logger.Warn("probe error",
			zap.String("device_id", d.ID),
			zap.String("host", d.Host),
			zap.String("method", string(d.Method)),
			zap.Error(err),
		)
		ok = false
		latency = nil
	}

	res.Success = ok
	res.LatencyMs = latency
	if ok {
		probesTotal.WithLabelValues(string(d.Method), "success").Inc()
	} else {
		probesTotal.WithLabelValues(string(d.Method), "failure").Inc()
	}

	// Service detection runs on every probe so the reconciler always has
	// fresh remote-access info, even for offline devices.
	res.RemoteServices = dp.detector.Detect(ctx, d.Host)

	return res
}
