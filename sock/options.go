//go:build linux

// sock/options.go
//
// Socket option handling. Address reuse and multicast group membership
// are implemented; anything else is accepted with a warning so callers
// that set options defensively keep working.

package sock

import (
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/embash/usock/api"
)

// mreqLen is the membership payload: group address then interface
// address, POSIX order, 4 raw bytes each.
const mreqLen = 8

// SetSockOpt configures a socket option.
//
// SO_REUSEADDR takes a bool or int flag. IP_ADD_MEMBERSHIP takes the raw
// mreqLen-byte buffer described above; any other size is ErrValue.
// Unrecognized options log a warning and succeed.
func (s *Socket) SetSockOpt(level, name int, value any) error {
	if s.fd < 0 {
		return api.ErrClosed
	}

	switch {
	case level == unix.SOL_SOCKET && name == unix.SO_REUSEADDR:
		flag, err := intFlag(value)
		if err != nil {
			return err
		}
		if err := unix.SetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, flag); err != nil {
			return api.NewOpError("setsockopt", err)
		}

	case level == unix.IPPROTO_IP && name == unix.IP_ADD_MEMBERSHIP:
		buf, ok := value.([]byte)
		if !ok {
			return fmt.Errorf("membership option wants a byte buffer, got %T: %w",
				value, api.ErrValue)
		}
		if len(buf) != mreqLen {
			return fmt.Errorf("membership option wants %d bytes (group + interface), got %d: %w",
				mreqLen, len(buf), api.ErrValue)
		}
		mreq := &unix.IPMreq{}
		copy(mreq.Multiaddr[:], buf[0:4])
		copy(mreq.Interface[:], buf[4:8])
		if err := unix.SetsockoptIPMreq(s.fd, unix.IPPROTO_IP, unix.IP_ADD_MEMBERSHIP, mreq); err != nil {
			return api.NewOpError("setsockopt", err)
		}

	default:
		s.logger.Warn("setsockopt: option not implemented",
			zap.Int("level", level), zap.Int("option", name))
	}
	return nil
}

// intFlag coerces a boolean-style option value to the int form
// setsockopt takes.
func intFlag(value any) (int, error) {
	switch v := value.(type) {
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case int:
		return v, nil
	default:
		return 0, fmt.Errorf("option flag must be bool or int, got %T: %w", value, api.ErrValue)
	}
}
