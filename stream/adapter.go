//go:build linux

// stream/adapter.go
//
// Exposes a socket handle through the generic read/write/ioctl stream
// contract so it composes with buffered-I/O consumers.

package stream

import (
	"context"
	"io"
	"syscall"

	"github.com/valyala/bytebufferpool"

	"github.com/embash/usock/api"
	"github.com/embash/usock/sock"
)

// Adapter gives a Socket the api.Stream contract. The context supplied
// at construction is consulted at every poll boundary of the underlying
// retry loops, since the io-style method set has no per-call context.
type Adapter struct {
	ctx context.Context
	s   *sock.Socket
}

// Ensure compliance with the stream contract.
var _ api.Stream = (*Adapter)(nil)
var _ io.ReadWriteCloser = (*Adapter)(nil)

// NewAdapter wraps a socket. A nil ctx means background.
func NewAdapter(ctx context.Context, s *sock.Socket) *Adapter {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Adapter{ctx: ctx, s: s}
}

// Socket returns the wrapped handle.
func (a *Adapter) Socket() *sock.Socket { return a.s }

// Read fills p through the receive retry loop. The peer's close shows up
// as io.EOF; would-block and timeout surface as their error kinds.
func (a *Adapter) Read(p []byte) (int, error) {
	n, err := a.s.RecvInto(a.ctx, p)
	if err != nil {
		return 0, err
	}
	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Write sends from p through the send retry loop and returns after the
// first successful chunk, like a raw POSIX write. Callers needing the
// whole buffer out loop, or use Socket().SendAll.
func (a *Adapter) Write(p []byte) (int, error) {
	return a.s.SendSome(a.ctx, p)
}

// Ioctl performs a stream control request: StreamPoll probes readiness
// without blocking, StreamClose releases the descriptor.
func (a *Adapter) Ioctl(req uint, arg uint) (uint, error) {
	switch req {
	case api.StreamPoll:
		return a.s.Poll(arg)
	case api.StreamClose:
		if err := a.s.Close(); err != nil {
			return 0, err
		}
		return 0, nil
	default:
		return 0, api.NewOpError("ioctl", syscall.EINVAL)
	}
}

// Close releases the underlying socket. Idempotent.
func (a *Adapter) Close() error {
	return a.s.Close()
}

// ReadAll drains the stream until the peer closes, returning everything
// read. The intermediate accumulation uses a pooled buffer.
func ReadAll(a *Adapter) ([]byte, error) {
	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)

	chunk := make([]byte, 4096)
	for {
		n, err := a.Read(chunk)
		if n > 0 {
			_, _ = bb.Write(chunk[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	out := make([]byte, bb.Len())
	copy(out, bb.Bytes())
	return out, nil
}
