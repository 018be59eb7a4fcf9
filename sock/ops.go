//go:build linux

// sock/ops.go
//
// Connection setup: bind, listen, accept, connect. Bind, listen and
// connect are single syscalls; only accept runs under the retry loop.

package sock

import (
	"context"
	"errors"

	"golang.org/x/sys/unix"

	"github.com/embash/usock/addr"
	"github.com/embash/usock/api"
)

// Bind resolves host and port and binds the socket to the first
// resulting address. An empty host binds to all interfaces. The bind
// itself is issued once and never retried.
func (s *Socket) Bind(ctx context.Context, host string, port int) error {
	if s.fd < 0 {
		return api.ErrClosed
	}
	addrs, err := s.res.Resolve(ctx, host, port)
	if err != nil {
		return err
	}
	return s.BindAddr(addrs[0])
}

// BindAddr binds the socket to an already resolved address.
func (s *Socket) BindAddr(a addr.Addr) error {
	if s.fd < 0 {
		return api.ErrClosed
	}
	if err := unix.Bind(s.fd, a.Sockaddr()); err != nil {
		return api.NewOpError("bind", err)
	}
	return nil
}

// Listen marks the socket as accepting connections with the given
// backlog.
func (s *Socket) Listen(backlog int) error {
	if s.fd < 0 {
		return api.ErrClosed
	}
	if err := unix.Listen(s.fd, backlog); err != nil {
		return api.NewOpError("listen", err)
	}
	return nil
}

// Accept waits for an incoming connection under the retry loop. On
// success it returns a new handle inheriting domain/type/protocol with a
// blocking-forever default, plus the peer's address. Exhausting the
// budget yields ErrTimeout; a pending interruption aborts immediately.
func (s *Socket) Accept(ctx context.Context) (*Socket, addr.Addr, error) {
	if s.fd < 0 {
		return nil, addr.Addr{}, api.ErrClosed
	}

	newFd := -1
	var sa unix.Sockaddr
	for i := uint64(0); i <= uint64(s.retries); i++ {
		var err error
		newFd, sa, err = unix.Accept(s.fd)
		if err == nil {
			break
		}
		newFd = -1
		s.metrics.IncRetry()
		if ierr := s.interrupted(ctx); ierr != nil {
			return nil, addr.Addr{}, ierr
		}
	}
	if newFd < 0 {
		s.metrics.IncTimeout()
		return nil, addr.Addr{}, api.ErrTimeout
	}

	peer, err := addr.FromSockaddr(sa)
	if err != nil {
		_ = unix.Close(newFd)
		return nil, addr.Addr{}, err
	}
	return s.adopt(newFd), peer, nil
}

// Connect resolves host and port and connects to the first resulting
// address.
func (s *Socket) Connect(ctx context.Context, host string, port int) error {
	if s.fd < 0 {
		return api.ErrClosed
	}
	addrs, err := s.res.Resolve(ctx, host, port)
	if err != nil {
		return err
	}
	return s.ConnectAddr(addrs[0])
}

// ConnectAddr issues a single connect syscall; connect is inherently
// one-shot and is not retried. A non-blocking connect that cannot
// complete immediately is reported as ErrInProgress, which is a
// distinguished condition rather than a failure.
func (s *Socket) ConnectAddr(a addr.Addr) error {
	if s.fd < 0 {
		return api.ErrClosed
	}
	err := unix.Connect(s.fd, a.Sockaddr())
	if err == nil {
		return nil
	}
	if errors.Is(err, unix.EINPROGRESS) {
		return api.ErrInProgress
	}
	return api.NewOpError("connect", err)
}
