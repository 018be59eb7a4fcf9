//go:build linux

// sock/select.go
//
// Zero-timeout readiness check backing the stream adapter's poll ioctl.

package sock

import (
	"golang.org/x/sys/unix"

	"github.com/embash/usock/api"
)

// Poll builds descriptor sets from the requested flag bitmask, issues a
// zero-timeout select, and returns which of the requested conditions
// currently hold. It never blocks.
func (s *Socket) Poll(flags uint) (uint, error) {
	if s.fd < 0 {
		return 0, api.ErrClosed
	}

	var rfds, wfds, efds unix.FdSet
	if flags&api.PollIn != 0 {
		rfds.Set(s.fd)
	}
	if flags&api.PollOut != 0 {
		wfds.Set(s.fd)
	}
	if flags&(api.PollErr|api.PollHup) != 0 {
		efds.Set(s.fd)
	}

	// Zero timeout: a pure readiness probe.
	tv := unix.Timeval{}
	if _, err := unix.Select(s.fd+1, &rfds, &wfds, &efds, &tv); err != nil {
		return 0, api.NewOpError("select", err)
	}

	var out uint
	if rfds.IsSet(s.fd) {
		out |= api.PollIn
	}
	if wfds.IsSet(s.fd) {
		out |= api.PollOut
	}
	if efds.IsSet(s.fd) {
		out |= flags & (api.PollErr | api.PollHup)
	}
	return out, nil
}
