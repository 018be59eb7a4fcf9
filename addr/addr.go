// addr/addr.go
//
// Inet4 address tuple: 4 raw bytes in network (big-endian) order plus a
// 16-bit port. This is the wire shape every operation in the library
// speaks; name resolution producing it lives in resolver.go.

// Package addr resolves host/port pairs into socket addresses and
// converts between the library's address tuple and the platform
// sockaddr representation.
package addr

import (
	"fmt"
	"net"

	"github.com/embash/usock/api"
)

// Addr is an IPv4 endpoint. IP holds the raw address bytes in network
// order; Port is the host-order port number.
type Addr struct {
	IP   [4]byte
	Port uint16
}

// Host returns the dotted-quad text form of the address bytes.
func (a Addr) Host() string {
	return net.IP(a.IP[:]).String()
}

// HostPort returns the tuple form an embedding host hands to callers,
// e.g. ("127.0.0.1", 8080).
func (a Addr) HostPort() (string, int) {
	return a.Host(), int(a.Port)
}

// String renders the endpoint as "host:port".
func (a Addr) String() string {
	return fmt.Sprintf("%s:%d", a.Host(), a.Port)
}

// IsWildcard reports whether the address is the all-interfaces address.
func (a Addr) IsWildcard() bool {
	return a.IP == [4]byte{}
}

// ParseAddr builds an Addr from a literal IPv4 host and a port. An empty
// host is normalized to the wildcard address. Non-literal hosts and
// out-of-range ports are rejected with ErrInvalidAddress; use a Resolver
// when the host may be a name.
func ParseAddr(host string, port int) (Addr, error) {
	if port < 0 || port > 0xffff {
		return Addr{}, fmt.Errorf("port %d out of range: %w", port, api.ErrInvalidAddress)
	}
	a := Addr{Port: uint16(port)}
	if host == "" {
		return a, nil
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return Addr{}, fmt.Errorf("host %q is not an IPv4 literal: %w", host, api.ErrInvalidAddress)
	}
	ip4 := ip.To4()
	if ip4 == nil {
		return Addr{}, fmt.Errorf("host %q is not an IPv4 address: %w", host, api.ErrInvalidAddress)
	}
	copy(a.IP[:], ip4)
	return a, nil
}
