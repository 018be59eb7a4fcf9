// api/errors.go
//
// Error kinds shared by every usock package. Blocking-style operations
// absorb transient "would block" results inside their retry loops; every
// other failure surfaces as one of the values or types below.

package api

import (
	"errors"
	"fmt"
	"syscall"
)

// Sentinel errors used across the library.
var (
	// ErrTimeout reports a retry budget exhausted while a positive
	// timeout was configured.
	ErrTimeout = errors.New("operation timed out")

	// ErrWouldBlock reports a single non-blocking attempt that could not
	// complete immediately (budget of zero).
	ErrWouldBlock = errors.New("operation would block")

	// ErrClosed reports an operation attempted on a closed handle.
	ErrClosed = errors.New("socket is closed")

	// ErrInProgress reports a non-blocking connect that is still pending.
	// It is a distinguished condition, not a failure.
	ErrInProgress = errors.New("connection attempt in progress")

	// ErrInvalidAddress reports a malformed address tuple.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrValue reports a malformed option payload.
	ErrValue = errors.New("invalid option value")

	// ErrNotSupported reports an operation unavailable on this platform.
	ErrNotSupported = errors.New("operation not supported")
)

// ErrorCode is a numeric classification for hosts that key on codes
// rather than Go error values.
type ErrorCode int

const (
	CodeOK ErrorCode = iota
	CodeOS
	CodeTimeout
	CodeWouldBlock
	CodeClosed
	CodeInProgress
	CodeInvalidAddress
	CodeValue
	CodeResolve
	CodeInternal
)

// OpError wraps a failed syscall with the operation name and the
// platform error code. It unwraps to the errno, so callers can test
// errors.Is(err, unix.ECONNREFUSED) and the like.
type OpError struct {
	Op    string
	Errno syscall.Errno
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Errno.Error())
}

func (e *OpError) Unwrap() error { return e.Errno }

// NewOpError builds an OpError from a raw syscall failure. A non-errno
// cause is mapped to EIO so the host always sees a numeric code.
func NewOpError(op string, err error) *OpError {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		errno = syscall.EIO
	}
	return &OpError{Op: op, Errno: errno}
}

// getaddrinfo-style resolver status codes, numerically matching
// <netdb.h> so hosts can hand them straight to their error tables.
const (
	EAI_NONAME = -2 // name or service not known
	EAI_AGAIN  = -3 // temporary failure in name resolution
	EAI_FAIL   = -4 // non-recoverable failure in name resolution
)

// ResolveError reports a failed name or service resolution, carrying the
// host that was looked up, a getaddrinfo-style status code and the
// underlying resolver failure.
type ResolveError struct {
	Host string
	Code int
	Err  error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolve %q: %v (status %d)", e.Host, e.Err, e.Code)
}

func (e *ResolveError) Unwrap() error { return e.Err }

// Code classifies an error returned by any usock operation.
func Code(err error) ErrorCode {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, ErrTimeout):
		return CodeTimeout
	case errors.Is(err, ErrWouldBlock):
		return CodeWouldBlock
	case errors.Is(err, ErrClosed):
		return CodeClosed
	case errors.Is(err, ErrInProgress):
		return CodeInProgress
	case errors.Is(err, ErrInvalidAddress):
		return CodeInvalidAddress
	case errors.Is(err, ErrValue):
		return CodeValue
	}
	var re *ResolveError
	if errors.As(err, &re) {
		return CodeResolve
	}
	var oe *OpError
	if errors.As(err, &oe) {
		return CodeOS
	}
	return CodeInternal
}
