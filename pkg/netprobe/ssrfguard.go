// Package netprobe issues the single outbound HTTP/DNS/TLS probe the
// pipeline makes against a scanned URL and assembles the raw signals C2-C6
// consume. This file is the guard that runs before any of that: it refuses
// to dial a resolved address that lands inside a private, loopback, link-
// local, or cloud-metadata range, so a scanned URL can never be used to
// pivot the scanner itself into an internal network.
package netprobe

import (
	"fmt"
	"net"
)

// blockedRanges is the catalog of CIDR blocks a probe must never dial.
// It covers RFC1918 private space, loopback, link-local (including the
// 169.254.169.254 cloud metadata address every major provider uses),
// carrier-grade NAT, multicast, and the IANA-reserved blocks, plus their
// IPv6 equivalents.
var blockedRanges = mustParseCIDRs([]string{
	// RFC1918 private space
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",

	// Loopback
	"127.0.0.0/8",
	"::1/128",

	// Link-local, including the cloud metadata address (169.254.169.254)
	// used by AWS, GCP, Azure, and DigitalOcean instance metadata services
	"169.254.0.0/16",
	"fe80::/10",

	// Carrier-grade NAT (RFC6598)
	"100.64.0.0/10",

	// Unspecified / "this network"
	"0.0.0.0/8",
	"::/128",

	// Multicast
	"224.0.0.0/4",
	"ff00::/8",

	// IETF protocol assignments and documentation ranges (RFC5736/5737)
	"192.0.0.0/24",
	"192.0.2.0/24",
	"198.51.100.0/24",
	"203.0.113.0/24",

	// 6to4 relay anycast and Teredo tunneling (legacy but still routable
	// to provider-internal infrastructure on misconfigured networks)
	"192.88.99.0/24",
	"2002::/16",
	"2001::/32",
})

func mustParseCIDRs(cidrs []string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic(fmt.Sprintf("netprobe: invalid blocked CIDR %q: %v", c, err))
		}
		nets = append(nets, n)
	}
	return nets
}

// BlockedAddr reports whether ip falls inside a range the probe must not
// dial, and if so, which CIDR matched (for logging/evidence).
func BlockedAddr(ip net.IP) (blocked bool, matched string) {
	for _, n := range blockedRanges {
		if n.Contains(ip) {
			return true, n.String()
		}
	}
	return false, ""
}

// GuardDial resolves host and returns an error if any resulting IP lies in
// a blocked range. Prober does not call it: Probe checks BlockedAddr on the
// initial host's IPs (recording "private_ip" in DNSFlags) and on every
// redirect hop (ending the HTTP step without a flag).
func GuardDial(host string) error {
	ips, err := net.LookupIP(host)
	if err != nil {
		return fmt.Errorf("netprobe: resolving %q: %w", host, err)
	}
	for _, ip := range ips {
		if blocked, cidr := BlockedAddr(ip); blocked {
			return fmt.Errorf("netprobe: %q resolves to %s, inside blocked range %s", host, ip, cidr)
		}
	}
	return nil
}
