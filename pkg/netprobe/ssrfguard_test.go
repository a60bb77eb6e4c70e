package netprobe

import (
	"net"
	"testing"
)

func TestBlockedAddr(t *testing.T) {
	t.Parallel()

	cases := []struct {
		ip      string
		blocked bool
	}{
		{"8.8.8.8", false},
		{"1.1.1.1", false},
		{"127.0.0.1", true},
		{"169.254.169.254", true},
		{"10.0.0.5", true},
		{"172.16.0.1", true},
		{"192.168.1.1", true},
		{"100.64.0.1", true},
		{"::1", true},
	}

	for _, c := range cases {
		ip := net.ParseIP(c.ip)
		blocked, _ := BlockedAddr(ip)
		if blocked != c.blocked {
			t.Errorf("BlockedAddr(%s) = %v, want %v", c.ip, blocked, c.blocked)
		}
	}
}
