package probe

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"
)

// remoteServicePorts maps well-known remote-access services to the TCP
// ports they listen on.
var remoteServicePorts = []struct {
	name string
	port int
}{
	{"VNC", 5900},
	{"RDP", 3389},
	{"SSH", 22},
}

// ServiceDetector checks which remote-access services answer on a host.
// Detection is purely informational and never fails: an unreachable port
// just means the service is absent from the result.
type ServiceDetector struct {
	timeout time.Duration
}

// NewServiceDetector creates a detector with the given per-port timeout.
func NewServiceDetector(timeout time.Duration) *ServiceDetector {
	return &ServiceDetector{timeout: timeout}
}

// Detect probes the known service ports concurrently and returns the
// names of services that accepted a connection, in a stable order.
func (d *ServiceDetector) Detect(ctx context.Context, host string) []string {
	open := make([]bool, len(remoteServicePorts))

	var wg sync.WaitGroup
	for i, svc := range remoteServicePorts {
		wg.Add(1)
		go func(i, port int) {
			defer wg.Done()

			dialer := net.Dialer{Timeout: d.timeout}
			conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
			if err != nil {
				return
			}
			conn.Close()
			open[i] = true
		}(i, svc.port)
	}
	wg.Wait()

	var found []string
	for i, svc := range remoteServicePorts {
		if open[i] {
			found = append(found, svc.name)
		}
	}
	return found
}
