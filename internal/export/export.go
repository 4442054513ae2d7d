// Package export writes plain-text monitor reports.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/fleetpulse/internal/device"
	"github.com/HerbHall/fleetpulse/internal/monitor"
)

// DeviceLister supplies the devices a report covers. Satisfied by
// device.Store.
type DeviceLister interface {
	List(ctx context.Context, team string) ([]device.Device, error)
}

// SnapshotSource supplies per-device monitor state. Satisfied by
// monitor.Reconciler.
type SnapshotSource interface {
	Snapshot(deviceID string) (monitor.Snapshot, bool)
}

// Exporter writes a monitor report into the data directory.
type Exporter struct {
	devices DeviceLister
	snaps   SnapshotSource
	dataDir string
	logger  *zap.Logger
}

// NewExporter creates an Exporter writing into dataDir.
func NewExporter(devices DeviceLister, snaps SnapshotSource, dataDir string, logger *zap.Logger) *Exporter {
	return &Exporter{devices: devices, snaps: snaps, dataDir: dataDir, logger: logger}
}

// WriteReport writes a timestamped report file and returns its path.
func (e *Exporter) WriteReport(ctx context.Context) (string, error) {
	devices, err := e.devices.List(ctx, "")
	if err != nil {
		return "", fmt.Errorf("list devices: %w", err)
	}

	now := time.Now()
	path := filepath.Join(e.dataDir, fmt.Sprintf("fleetpulse_report_%s.txt", now.Format("20060102_150405")))

	if err := os.MkdirAll(e.dataDir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "FleetPulse monitor report\n")
	fmt.Fprintf(&b, "Generated: %s\n", now.Format(time.RFC3339))
	fmt.Fprintf(&b, "Devices: %d\n\n", len(devices))

	for _, d := range devices {
		fmt.Fprintf(&b, "%s (%s, %s)\n", d.Name, d.Host, d.Method)
		if d.Team != "" {
			fmt.Fprintf(&b, "  team: %s\n", d.Team)
		}

		snap, ok := e.snaps.Snapshot(d.ID)
		switch {
		case !ok:
			fmt.Fprintf(&b, "  status: never checked\n")
		case snap.Online:
			fmt.Fprintf(&b, "  status: online\n")
			if snap.LatencyMs != nil {
				fmt.Fprintf(&b, "  latency: %.1f ms\n", *snap.LatencyMs)
			}
		default:
			fmt.Fprintf(&b, "  status: offline\n")
			if snap.OfflineSince != nil {
				fmt.Fprintf(&b, "  offline since: %s\n", snap.OfflineSince.Format(time.RFC3339))
			}
		}
		if ok && len(snap.RemoteServices) > 0 {
			fmt.Fprintf(&b, "  remote services: %s\n", strings.Join(snap.RemoteServices, ", "))
		}
		if d.LastOfflineTime != nil {
			fmt.Fprintf(&b, "  last offline: %s\n", d.LastOfflineTime.Format(time.RFC3339))
		}
		b.WriteString("\n")
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}

	e.logger.Info("monitor report written", zap.String("path", path))
	return path, nil
}
