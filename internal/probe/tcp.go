package probe

import (
	"context"
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Compile-time interface guard.
var _ Prober = (*TCPProber)(nil)

// TCPProber checks reachability by completing a TCP handshake on a fixed
// port. Connect time is not a useful latency measure for reachability, so
// TCP results carry none.
type TCPProber struct {
	port   int
	logger *zap.Logger
}

// NewTCPProber creates a TCP prober for the given port.
func NewTCPProber(port int, logger *zap.Logger) *TCPProber {
	return &TCPProber{port: port, logger: logger}
}

// Probe connects to host on the prober's port and closes immediately.
func (p *TCPProber) Probe(ctx context.Context, host string, timeout time.Duration) (bool, *float64, error) {
	target := net.JoinHostPort(host, strconv.Itoa(p.port))

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", target)
	if err != nil {
		p.logger.Debug("tcp connect failed", zap.String("target", target), zap.Error(err))
		return false, nil, nil
	}
	conn.Close()
	return true, nil, nil
}
