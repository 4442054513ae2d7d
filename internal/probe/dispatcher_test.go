package probe

import (
	"context"
	"net"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/fleetpulse/internal/device"
)

func TestDispatchTCPDevice(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()
	port := ln.Addr().(*net.TCPAddr).Port

	dp := NewDispatcher(100*time.Millisecond, zap.NewNop())
	d := device.Device{ID: "d1", Host: "127.0.0.1", Method: device.MethodTCP, Port: port}

	res := dp.Dispatch(context.Background(), d, time.Second)
	if res.DeviceID != "d1" {
		t.Errorf("DeviceID = %q", res.DeviceID)
	}
	if !res.Success {
		t.Error("TCP dispatch against listening port failed")
	}
	if res.LatencyMs != nil {
		t.Error("TCP result must carry no latency")
	}
	if res.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}

func TestDispatchTCPClosedPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	dp := NewDispatcher(100*time.Millisecond, zap.NewNop())
	d := device.Device{ID: "d2", Host: "127.0.0.1", Method: device.MethodTCP, Port: port}

	res := dp.Dispatch(context.Background(), d, 500*time.Millisecond)
	if res.Success {
		t.Error("dispatch against closed port reported success")
	}
	if res.LatencyMs != nil {
		t.Error("failed result must carry no latency")
	}
}
