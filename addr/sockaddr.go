//go:build unix

// addr/sockaddr.go
//
// Conversions between Addr and the platform sockaddr types.

package addr

import (
	"golang.org/x/sys/unix"

	"github.com/embash/usock/api"
)

// Sockaddr converts the tuple into the form bind/connect/sendto expect.
func (a Addr) Sockaddr() *unix.SockaddrInet4 {
	sa := &unix.SockaddrInet4{Port: int(a.Port)}
	sa.Addr = a.IP
	return sa
}

// FromSockaddr converts a kernel-produced sockaddr (accept, recvfrom)
// back into the tuple shape. Only inet4 sockaddrs are accepted.
func FromSockaddr(sa unix.Sockaddr) (Addr, error) {
	v, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return Addr{}, api.ErrInvalidAddress
	}
	return Addr{IP: v.Addr, Port: uint16(v.Port)}, nil
}
