package probe

import "testing"

func TestClassifyPingOutput(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   bool
	}{
		{
			name:   "linux success",
			output: "64 bytes from 10.0.0.1: icmp_seq=1 ttl=64 time=0.42 ms\n\n1 packets transmitted, 1 received, 0% packet loss",
			want:   true,
		},
		{
			name:   "windows success",
			output: "Reply from 10.0.0.1: bytes=32 time=3ms TTL=64",
			want:   true,
		},
		{
			name:   "windows request timed out",
			output: "Pinging 10.0.0.9 with 32 bytes of data:\nRequest timed out.",
			want:   false,
		},
		{
			name: "gateway unreachable despite reply line",
			// The failure phrase must win even when a reply line is present.
			output: "Reply from 192.168.1.1: Destination host unreachable.",
			want:   false,
		},
		{
			name:   "unknown host",
			output: "Ping request could not find host nosuch.local. Please check the name and try again.",
			want:   false,
		},
		{
			name:   "ttl expired",
			output: "Reply from 10.1.1.1: TTL expired in transit.",
			want:   false,
		},
		{
			name:   "general failure",
			output: "PING: transmit failed. General failure.",
			want:   false,
		},
		{
			name:   "no route to host",
			output: "ping: connect: No route to host",
			want:   false,
		},
		{
			name:   "linux total loss",
			output: "1 packets transmitted, 0 received, 100% packet loss, time 0ms",
			want:   false,
		},
		{
			name:   "empty output",
			output: "",
			want:   false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyPingOutput(tt.output); got != tt.want {
				t.Errorf("ClassifyPingOutput(%q) = %v, want %v", tt.output, got, tt.want)
			}
		})
	}
}

func TestExtractPingTime(t *testing.T) {
	tests := []struct {
		output string
		want   float64
		found  bool
	}{
		{"64 bytes from 10.0.0.1: icmp_seq=1 ttl=64 time=0.42 ms", 0.42, true},
		{"Reply from 10.0.0.1: bytes=32 time=3ms TTL=64", 3, true},
		{"Reply from 10.0.0.1: bytes=32 time<1ms TTL=128", 1, true},
		{"no timing information here", 0, false},
	}
	for _, tt := range tests {
		got, found := extractPingTime(tt.output)
		if found != tt.found || got != tt.want {
			t.Errorf("extractPingTime(%q) = (%v, %v), want (%v, %v)",
				tt.output, got, found, tt.want, tt.found)
		}
	}
}
