// interrupt/hub.go
//
// Cooperative interruption hub. The embedding host raises signals from
// its own thread of control; socket retry loops drain them in FIFO order
// at every poll boundary, so a pending interruption is observed within
// one poll interval even inside a "blocking forever" operation.

// Package interrupt delivers host-raised cancellation signals to
// blocking socket operations.
package interrupt

import (
	"errors"
	"sync"

	"github.com/eapache/queue"
)

// ErrInterrupted is the generic signal a host raises to break a blocking
// operation when it has no more specific error of its own.
var ErrInterrupted = errors.New("interrupted by host")

// Hub is a FIFO of pending interruption signals. It implements
// api.Interrupter. The zero value is not usable; construct with NewHub.
type Hub struct {
	mu sync.Mutex
	q  *queue.Queue
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{q: queue.New()}
}

// Raise enqueues an interruption signal. A nil err is recorded as
// ErrInterrupted so Pending never reports an empty signal.
func (h *Hub) Raise(err error) {
	if err == nil {
		err = ErrInterrupted
	}
	h.mu.Lock()
	h.q.Add(err)
	h.mu.Unlock()
}

// Pending dequeues and returns the oldest raised signal, or nil when
// none is pending. Each signal is delivered exactly once.
func (h *Hub) Pending() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.q.Length() == 0 {
		return nil
	}
	return h.q.Remove().(error)
}

// Len reports the number of signals not yet delivered.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.q.Length()
}
