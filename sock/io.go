//go:build linux

// sock/io.go
//
// Data transfer under the retry loop. "Would block" results are absorbed
// locally and only surface once the budget is spent; any other syscall
// failure is fatal and surfaces immediately.

package sock

import (
	"context"

	"golang.org/x/sys/unix"

	"github.com/embash/usock/addr"
	"github.com/embash/usock/api"
)

// recvInto is the shared receive loop. The lwIP-style stacks this layer
// was written against deliver the peer's close as a zero-length read
// exactly once and then block; the sticky peerClosed flag restores the
// POSIX behavior of reporting zero bytes on every subsequent read
// without touching the descriptor again.
func (s *Socket) recvInto(ctx context.Context, p []byte) (int, unix.Sockaddr, error) {
	if s.fd < 0 {
		return 0, nil, api.ErrClosed
	}
	if s.peerClosed || len(p) == 0 {
		return 0, nil, nil
	}

	for i := uint64(0); i <= uint64(s.retries); i++ {
		n, from, err := unix.Recvfrom(s.fd, p, 0)
		if err == nil {
			if n == 0 {
				s.peerClosed = true
			}
			s.metrics.AddBytesReceived(n)
			return n, from, nil
		}
		s.metrics.IncRetry()
		if ierr := s.interrupted(ctx); ierr != nil {
			return 0, nil, ierr
		}
	}
	return 0, nil, s.budgetExhausted()
}

// RecvInto reads into p and returns the byte count. A zero count with a
// nil error means the peer has closed the connection.
func (s *Socket) RecvInto(ctx context.Context, p []byte) (int, error) {
	n, _, err := s.recvInto(ctx, p)
	return n, err
}

// Recv reads up to maxLen bytes and returns them. Exhausting the retry
// budget yields ErrWouldBlock when the budget was zero and ErrTimeout
// otherwise.
func (s *Socket) Recv(ctx context.Context, maxLen int) ([]byte, error) {
	if maxLen < 0 {
		return nil, api.ErrValue
	}
	buf := make([]byte, maxLen)
	n, _, err := s.recvInto(ctx, buf)
	if err != nil {
		return nil, err
	}
	return buf[:n:n], nil
}

// RecvFrom reads up to maxLen bytes and returns them together with the
// sender's address.
func (s *Socket) RecvFrom(ctx context.Context, maxLen int) ([]byte, addr.Addr, error) {
	if maxLen < 0 {
		return nil, addr.Addr{}, api.ErrValue
	}
	buf := make([]byte, maxLen)
	n, from, err := s.recvInto(ctx, buf)
	if err != nil {
		return nil, addr.Addr{}, err
	}
	var peer addr.Addr
	if from != nil {
		if peer, err = addr.FromSockaddr(from); err != nil {
			return nil, addr.Addr{}, err
		}
	}
	return buf[:n:n], peer, nil
}

// Send writes data, retrying while attempts remain and some of it is
// still unsent. Partial sends return the actual count; only a loop that
// sent nothing at all reports ErrTimeout.
//
// The attempt counter does not account for wall-clock time spent on
// successful partial sends, so a peer draining one byte per attempt can
// hold a "bounded" send well past the configured timeout. Callers have
// depended on this accounting; see the package tests.
func (s *Socket) Send(ctx context.Context, data []byte) (int, error) {
	if s.fd < 0 {
		return 0, api.ErrClosed
	}

	sent := 0
	for i := uint64(0); i <= uint64(s.retries) && sent < len(data); i++ {
		n, err := unix.Write(s.fd, data[sent:])
		if err != nil && !isWouldBlock(err) {
			return sent, api.NewOpError("send", err)
		}
		if n > 0 {
			sent += n
			s.metrics.AddBytesSent(n)
		} else {
			s.metrics.IncRetry()
		}
		if ierr := s.interrupted(ctx); ierr != nil {
			return sent, ierr
		}
	}
	if sent == 0 && len(data) > 0 {
		s.metrics.IncTimeout()
		return 0, api.ErrTimeout
	}
	return sent, nil
}

// SendAll writes all of data or fails: a short send reports ErrTimeout
// with the count that did go out.
func (s *Socket) SendAll(ctx context.Context, data []byte) (int, error) {
	n, err := s.Send(ctx, data)
	if err != nil {
		return n, err
	}
	if n < len(data) {
		s.metrics.IncTimeout()
		return n, api.ErrTimeout
	}
	return n, nil
}

// SendTo sends one datagram to the given address under the retry loop.
// Datagrams go out whole, so a success reports the full length.
func (s *Socket) SendTo(ctx context.Context, data []byte, to addr.Addr) (int, error) {
	if s.fd < 0 {
		return 0, api.ErrClosed
	}

	sa := to.Sockaddr()
	for i := uint64(0); i <= uint64(s.retries); i++ {
		err := unix.Sendto(s.fd, data, 0, sa)
		if err == nil {
			s.metrics.AddBytesSent(len(data))
			return len(data), nil
		}
		if !isWouldBlock(err) {
			return 0, api.NewOpError("sendto", err)
		}
		s.metrics.IncRetry()
		if ierr := s.interrupted(ctx); ierr != nil {
			return 0, ierr
		}
	}
	s.metrics.IncTimeout()
	return 0, api.ErrTimeout
}

// SendSome writes from p and returns after the first successful chunk,
// the raw POSIX write contract the stream adapter builds on. Exhausting
// the budget yields ErrWouldBlock or ErrTimeout depending on whether a
// timeout was configured.
func (s *Socket) SendSome(ctx context.Context, p []byte) (int, error) {
	if s.fd < 0 {
		return 0, api.ErrClosed
	}

	for i := uint64(0); i <= uint64(s.retries); i++ {
		n, err := unix.Write(s.fd, p)
		if n > 0 {
			s.metrics.AddBytesSent(n)
			return n, nil
		}
		if err != nil && !isWouldBlock(err) {
			return 0, api.NewOpError("write", err)
		}
		s.metrics.IncRetry()
		if ierr := s.interrupted(ctx); ierr != nil {
			return 0, ierr
		}
	}
	return 0, s.budgetExhausted()
}
