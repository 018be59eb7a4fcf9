//go:build linux

// sock/budget.go
//
// Timeout/retry policy. A requested timeout is converted into a bounded
// number of poll attempts; the descriptor's OS-level send/receive
// timeout is set to the fixed poll interval, not the full requested
// timeout, so a pending interrupt can be observed every interval instead
// of only after the whole timeout elapses.

package sock

import (
	"math"
	"time"

	"golang.org/x/sys/unix"

	"github.com/embash/usock/api"
)

// PollInterval is the per-attempt OS-level timeout inside every retry
// loop.
const PollInterval = 100 * time.Millisecond

// InfiniteRetries is the budget for "block forever". At one poll
// interval per attempt it still spans over a decade of wall clock, while
// keeping the interrupt check live every interval.
const InfiniteRetries uint32 = math.MaxUint32

// BudgetFor converts a timeout into a retry budget: the number of extra
// poll attempts after the first. Zero means a single non-blocking
// attempt. The division truncates: a remainder below one poll interval
// is dropped, not rounded up.
func BudgetFor(timeout time.Duration) uint32 {
	if timeout <= 0 {
		return 0
	}
	n := timeout / PollInterval
	if n >= time.Duration(InfiniteRetries) {
		return InfiniteRetries
	}
	return uint32(n)
}

// SetTimeout configures the retry budget for a finite timeout. A zero
// (or negative) timeout switches the descriptor to non-blocking mode
// with a single-attempt budget.
func (s *Socket) SetTimeout(timeout time.Duration) error {
	if s.fd < 0 {
		return api.ErrClosed
	}
	s.applyTimeout(BudgetFor(timeout), timeout > 0)
	return nil
}

// SetNoTimeout configures blocking-forever semantics, the default for
// new and accepted sockets.
func (s *Socket) SetNoTimeout() error {
	if s.fd < 0 {
		return api.ErrClosed
	}
	s.applyTimeout(InfiniteRetries, true)
	return nil
}

// SetBlocking switches between blocking-forever and non-blocking mode.
func (s *Socket) SetBlocking(blocking bool) error {
	if blocking {
		return s.SetNoTimeout()
	}
	return s.SetTimeout(0)
}

// Budget returns the current retry budget.
func (s *Socket) Budget() uint32 { return s.retries }

// applyTimeout installs a recomputed budget in one assignment and
// adjusts the descriptor: blocking mode gets poll-interval send/receive
// timeouts, non-blocking mode gets zero timeouts plus O_NONBLOCK.
// The sockopt and flag updates are best-effort, matching the
// set-and-forget contract of the timeout call.
func (s *Socket) applyTimeout(retries uint32, blocking bool) {
	s.retries = retries

	var tv unix.Timeval
	if blocking {
		tv = unix.NsecToTimeval(PollInterval.Nanoseconds())
	}
	_ = unix.SetsockoptTimeval(s.fd, unix.SOL_SOCKET, unix.SO_SNDTIMEO, &tv)
	_ = unix.SetsockoptTimeval(s.fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv)
	_ = unix.SetNonblock(s.fd, !blocking)
}
