// api/constants.go
//
// Socket family, type, protocol and option constants exposed to host
// runtimes. The numeric values mirror the POSIX/Linux ABI the existing
// callers and wire captures were built against, so they are spelled out
// rather than derived from the local platform headers.

package api

// Address families.
const (
	AF_INET  = 2
	AF_INET6 = 10
)

// Socket types.
const (
	SOCK_STREAM = 1
	SOCK_DGRAM  = 2
	SOCK_RAW    = 3
)

// Protocols.
const (
	IPPROTO_IP  = 0
	IPPROTO_TCP = 6
	IPPROTO_UDP = 17
)

// Option levels and names.
const (
	SOL_SOCKET        = 1
	SO_REUSEADDR      = 2
	IP_ADD_MEMBERSHIP = 35
)
