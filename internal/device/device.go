// Package device holds the device model and its SQLite-backed store.
package device

import (
	"fmt"
	"strings"
	"time"
)

// Method selects the probe strategy for a device.
type Method string

const (
	MethodPing Method = "ping"
	MethodTCP  Method = "tcp"
)

// ParseMethod maps a stored or user-supplied method string onto the closed
// Method set. A case-insensitive "tcp" prefix selects TCP (legacy records
// contain values like "TCP:8080"); everything else selects Ping.
func ParseMethod(s string) Method {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(s)), "tcp") {
		return MethodTCP
	}
	return MethodPing
}

// DefaultTCPPort is used when a TCP device has no port configured.
const DefaultTCPPort = 80

// Device is a monitored host.
type Device struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Host       string `json:"host"`
	Method     Method `json:"method"`
	Port       int    `json:"port,omitempty"`
	Team       string `json:"team,omitempty"`
	Enabled    bool   `json:"enabled"`
	Monitoring bool   `json:"monitoring"`

	// OfflineSince marks the onset of the current offline episode; nil while
	// the device is believed online. LastOfflineTime records the onset of the
	// most recent episode and survives recovery.
	OfflineSince    *time.Time `json:"offline_since,omitempty"`
	LastOfflineTime *time.Time `json:"last_offline_time,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProbePort returns the TCP port to probe, applying the default.
func (d *Device) ProbePort() int {
	if d.Port > 0 {
		return d.Port
	}
	return DefaultTCPPort
}

// Validate checks the fields a caller may set.
func (d *Device) Validate() error {
	if strings.TrimSpace(d.Host) == "" {
		return fmt.Errorf("host is required")
	}
	if d.Method != MethodPing && d.Method != MethodTCP {
		return fmt.Errorf("method must be %q or %q", MethodPing, MethodTCP)
	}
	if d.Port < 0 || d.Port > 65535 {
		return fmt.Errorf("port %d out of range", d.Port)
	}
	return nil
}
