//go:build linux

// sock/sock.go
//
// Socket handle: descriptor ownership, construction, teardown, and the
// interrupt check shared by every retry loop.

package sock

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/embash/usock/addr"
	"github.com/embash/usock/api"
	"github.com/embash/usock/control"
	"github.com/embash/usock/track"
)

// closedFd marks a handle whose descriptor has been released.
const closedFd = -1

// Socket owns one OS socket descriptor plus the state derived from it.
// domain, type and protocol are immutable after creation. peerClosed is
// sticky: once a zero-length read has been observed, every later read
// resolves to zero bytes without touching the descriptor.
type Socket struct {
	fd     int
	domain int
	typ    int
	proto  int

	peerClosed bool
	retries    uint32

	logger  *zap.Logger
	intr    api.Interrupter
	metrics *control.Metrics
	reg     *track.Registry
	res     *addr.Resolver
	probes  *control.DebugProbes
}

// Option configures a Socket at construction time. Accepted sockets
// inherit the listener's options.
type Option func(*Socket)

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Socket) { s.logger = l }
}

// WithInterrupter installs the cooperative interruption source checked
// at every poll boundary.
func WithInterrupter(i api.Interrupter) Option {
	return func(s *Socket) { s.intr = i }
}

// WithMetrics installs the operation counters.
func WithMetrics(m *control.Metrics) Option {
	return func(s *Socket) { s.metrics = m }
}

// WithRegistry tracks the socket in a live-socket registry for the
// lifetime of its descriptor.
func WithRegistry(r *track.Registry) Option {
	return func(s *Socket) { s.reg = r }
}

// WithResolver overrides the resolver used by Bind and Connect.
func WithResolver(r *addr.Resolver) Option {
	return func(s *Socket) { s.res = r }
}

// WithDebugProbes exposes the socket's live state as a named probe for
// the lifetime of its descriptor.
func WithDebugProbes(dp *control.DebugProbes) Option {
	return func(s *Socket) { s.probes = dp }
}

// New creates a socket for the given domain, type and protocol and
// defaults it to blocking-forever semantics.
func New(domain, typ, proto int, opts ...Option) (*Socket, error) {
	s := &Socket{
		fd:     closedFd,
		domain: domain,
		typ:    typ,
		proto:  proto,
		logger: zap.NewNop(),
		res:    addr.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	fd, err := unix.Socket(domain, typ, proto)
	if err != nil {
		return nil, api.NewOpError("socket", err)
	}
	s.fd = fd
	s.applyTimeout(InfiniteRetries, true)
	s.metrics.IncOpened()
	if s.reg != nil {
		s.reg.Register(s)
	}
	s.exposeProbe()
	s.logger.Debug("socket created",
		zap.Int("fd", fd), zap.Int("domain", domain), zap.Int("type", typ))
	return s, nil
}

// adopt wraps a descriptor produced by accept, inheriting the listener's
// immutable parameters and options and defaulting to blocking forever.
func (s *Socket) adopt(fd int) *Socket {
	ns := &Socket{
		fd:      fd,
		domain:  s.domain,
		typ:     s.typ,
		proto:   s.proto,
		logger:  s.logger,
		intr:    s.intr,
		metrics: s.metrics,
		reg:     s.reg,
		res:     s.res,
		probes:  s.probes,
	}
	ns.applyTimeout(InfiniteRetries, true)
	ns.metrics.IncOpened()
	if ns.reg != nil {
		ns.reg.Register(ns)
	}
	ns.exposeProbe()
	return ns
}

// exposeProbe publishes the socket's state under a per-descriptor name.
// Close retracts it, so a snapshot only ever shows live descriptors.
func (s *Socket) exposeProbe() {
	if s.probes == nil {
		return
	}
	s.probes.RegisterProbe(probeName(s.fd), s.probeState)
}

func probeName(fd int) string { return fmt.Sprintf("socket_%d", fd) }

func (s *Socket) probeState() any {
	return map[string]any{
		"fd":          s.fd,
		"domain":      s.domain,
		"type":        s.typ,
		"proto":       s.proto,
		"budget":      s.retries,
		"peer_closed": s.peerClosed,
	}
}

// Fd returns the underlying descriptor, or -1 once closed.
func (s *Socket) Fd() int { return s.fd }

// Domain returns the address family the socket was created with.
func (s *Socket) Domain() int { return s.domain }

// Type returns the socket type the socket was created with.
func (s *Socket) Type() int { return s.typ }

// Proto returns the protocol the socket was created with.
func (s *Socket) Proto() int { return s.proto }

// PeerClosed reports whether the remote close has already been observed.
func (s *Socket) PeerClosed() bool { return s.peerClosed }

// LocalAddr returns the locally bound address of the socket.
func (s *Socket) LocalAddr() (addr.Addr, error) {
	if s.fd < 0 {
		return addr.Addr{}, api.ErrClosed
	}
	sa, err := unix.Getsockname(s.fd)
	if err != nil {
		return addr.Addr{}, api.NewOpError("getsockname", err)
	}
	return addr.FromSockaddr(sa)
}

// Close releases the descriptor. Idempotent: a second close is a no-op.
// Every operation after a close fails fast with ErrClosed.
func (s *Socket) Close() error {
	if s.fd < 0 {
		return nil
	}
	fd := s.fd
	s.fd = closedFd
	if s.reg != nil {
		s.reg.Remove(fd)
	}
	if s.probes != nil {
		s.probes.RemoveProbe(probeName(fd))
	}
	s.metrics.IncClosed()
	if err := unix.Close(fd); err != nil {
		return api.NewOpError("close", err)
	}
	return nil
}

// interrupted is the poll-boundary check. Context cancellation and
// host-raised interrupts both abort the surrounding retry loop, taking
// priority over any timeout or success outcome.
func (s *Socket) interrupted(ctx context.Context) error {
	// The failed attempt may have returned without any OS-level wait
	// (fatal errno, non-blocking descriptor); give other goroutines a
	// turn before the next one.
	runtime.Gosched()
	if ctx != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	if s.intr != nil {
		return s.intr.Pending()
	}
	return nil
}

// budgetExhausted classifies a spent retry budget: a zero budget was a
// single non-blocking attempt, anything else was a configured timeout.
func (s *Socket) budgetExhausted() error {
	if s.retries == 0 {
		s.metrics.IncWouldBlock()
		return api.ErrWouldBlock
	}
	s.metrics.IncTimeout()
	return api.ErrTimeout
}

func isWouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}
