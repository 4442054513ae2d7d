package ws

import (
	"time"

	"github.com/HerbHall/fleetpulse/internal/monitor"
)

// MessageType discriminates WebSocket messages.
type MessageType string

const (
	MessageStatusUpdate  MessageType = "status.update"
	MessageDeviceOnline  MessageType = "device.online"
	MessageDeviceOffline MessageType = "device.offline"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      any         `json:"data"`
}

// StatusUpdateData is the payload for status.update messages.
type StatusUpdateData struct {
	Devices []monitor.Snapshot `json:"devices"`
}

// TransitionData is the payload for device.online and device.offline
// messages.
type TransitionData struct {
	Device monitor.Snapshot `json:"device"`
}
