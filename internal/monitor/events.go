package monitor

// Event topics published by the reconciler.
const (
	TopicStatusUpdated = "monitor.status.updated"
	TopicDeviceOffline = "monitor.device.offline"
	TopicDeviceOnline  = "monitor.device.online"
)
