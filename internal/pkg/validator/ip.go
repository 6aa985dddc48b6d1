// Package validator normalizes untrusted request values before they are stored.
package validator

import (
	"net"
	"net/netip"
	"strings"
)

// ClientIP returns the canonical form of addr, or "" when addr is not an IP
// address. It accepts a bare address, host:port, a bracketed IPv6 literal
// and a zone suffix. IPv4-mapped IPv6 addresses are reported as IPv4.
func ClientIP(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	addr = strings.TrimSuffix(strings.TrimPrefix(addr, "["), "]")

	ip, err := netip.ParseAddr(addr)
	if err != nil {
		return ""
	}
	return ip.WithZone("").Unmap().String()
}
