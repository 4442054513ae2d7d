// Package probe implements the reachability checks run against devices:
// ICMP ping, TCP connect, and the remote-access service detector.
package probe

import (
	"context"
	"time"
)

// Result is the outcome of one reachability check against one device.
type Result struct {
	DeviceID  string    `json:"device_id"`
	Success   bool      `json:"success"`
	LatencyMs *float64  `json:"latency_ms,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	// RemoteServices lists remote-access services that answered on the
	// host (detector output), regardless of probe success.
	RemoteServices []string `json:"remote_services,omitempty"`
}

// Prober checks whether a single host is reachable.
type Prober interface {
	// Probe checks host within timeout. It returns whether the host
	// answered and, when measurable, the round-trip latency.
	Probe(ctx context.Context, host string, timeout time.Duration) (success bool, latencyMs *float64, err error)
}

func latencyPtr(d time.Duration) *float64 {
	ms := float64(d) / float64(time.Millisecond)
	return &ms
}
