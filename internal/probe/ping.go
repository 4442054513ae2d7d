package probe

import (
	"context"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	probing "github.com/prometheus-community/pro-bing"
	"go.uber.org/zap"
)

// Compile-time interface guard.
var _ Prober = (*PingProber)(nil)

// PingProber checks reachability with a single ICMP echo. It prefers
// pro-bing sockets; when those are unavailable (unprivileged containers,
// locked-down hosts) it falls back to the system ping binary and
// classifies its output.
type PingProber struct {
	logger *zap.Logger
}

// NewPingProber creates a ping prober.
func NewPingProber(logger *zap.Logger) *PingProber {
	return &PingProber{logger: logger}
}

// Probe sends one echo request to host.
func (p *PingProber) Probe(ctx context.Context, host string, timeout time.Duration) (bool, *float64, error) {
	ok, latency, err := p.pingSocket(ctx, host, timeout)
	if err == nil {
		return ok, latency, nil
	}

	p.logger.Debug("socket ping unavailable, using system ping",
		zap.String("host", host),
		zap.Error(err),
	)
	return p.pingExec(ctx, host, timeout)
}

func (p *PingProber) pingSocket(ctx context.Context, host string, timeout time.Duration) (bool, *float64, error) {
	pinger, err := probing.NewPinger(host)
	if err != nil {
		return false, nil, err
	}

	pinger.Count = 1
	pinger.Timeout = timeout
	// Windows has no unprivileged ICMP sockets.
	pinger.SetPrivileged(runtime.GOOS == "windows")

	done := make(chan error, 1)
	go func() {
		done <- pinger.Run()
	}()

	select {
	case err = <-done:
		if err != nil {
			return false, nil, err
		}
	case <-ctx.Done():
		pinger.Stop()
		<-done
		return false, nil, nil
	}

	stats := pinger.Statistics()
	if stats.PacketsRecv > 0 {
		return true, latencyPtr(stats.AvgRtt), nil
	}
	return false, nil, nil
}

func (p *PingProber) pingExec(ctx context.Context, host string, timeout time.Duration) (bool, *float64, error) {
	// The binary gets a grace period beyond the echo timeout so its own
	// timeout handling reports first.
	execCtx, cancel := context.WithTimeout(ctx, timeout+2*time.Second)
	defer cancel()

	timeoutArg := strconv.Itoa(int(timeout.Milliseconds()))
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(execCtx, "ping", "-n", "1", "-w", timeoutArg, host)
	} else {
		secs := int(timeout.Seconds())
		if secs < 1 {
			secs = 1
		}
		cmd = exec.CommandContext(execCtx, "ping", "-c", "1", "-W", strconv.Itoa(secs), host)
	}

	start := time.Now()
	out, runErr := cmd.CombinedOutput()
	elapsed := time.Since(start)

	ok := ClassifyPingOutput(string(out))
	if !ok {
		if runErr != nil {
			p.logger.Debug("system ping failed",
				zap.String("host", host),
				zap.Error(runErr),
			)
		}
		return false, nil, nil
	}

	if ms, found := extractPingTime(string(out)); found {
		return true, &ms, nil
	}
	return true, latencyPtr(elapsed), nil
}

// pingFailurePhrases mark an unreachable host even when the output also
// contains a reply line. Windows ping in particular prints "Reply from
// <gateway>: Destination host unreachable" with exit code 0.
var pingFailurePhrases = []string{
	"timed out",
	"unreachable",
	"could not find host",
	"host not found",
	"ttl expired",
	"general failure",
	"no route to host",
}

var pingSuccessIndicators = []string{
	"reply from",
	"bytes from",
	"1 packets received",
	"1 received",
	"received, 0% packet loss",
}

// ClassifyPingOutput decides whether system ping output indicates a
// reachable host. Failure phrases always win over success indicators.
func ClassifyPingOutput(output string) bool {
	lower := strings.ToLower(output)
	for _, phrase := range pingFailurePhrases {
		if strings.Contains(lower, phrase) {
			return false
		}
	}
	for _, indicator := range pingSuccessIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

// extractPingTime pulls the round-trip time in milliseconds out of ping
// output ("time=3.42 ms", "time=12ms", "time<1ms").
func extractPingTime(output string) (float64, bool) {
	lower := strings.ToLower(output)
	idx := strings.Index(lower, "time=")
	if idx < 0 {
		// "time<1ms" means sub-millisecond.
		if strings.Contains(lower, "time<1ms") {
			return 1, true
		}
		return 0, false
	}

	rest := lower[idx+len("time="):]
	end := 0
	for end < len(rest) {
		c := rest[end]
		if (c < '0' || c > '9') && c != '.' {
			break
		}
		end++
	}
	if end == 0 {
		return 0, false
	}
	ms, err := strconv.ParseFloat(rest[:end], 64)
	if err != nil {
		return 0, false
	}
	return ms, true
}
