// track/registry.go
//
// Live-socket registry. A network-interface module calls CloseAll when
// the link drops so no handle outlives its transport; debug probes read
// the snapshot.

// Package track maintains a registry of open sockets keyed by
// descriptor.
package track

import (
	"errors"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// Tracked is the slice of a socket the registry needs: identity and
// teardown.
type Tracked interface {
	Fd() int
	Close() error
}

// Registry is a sharded map of open sockets. Safe for concurrent use.
type Registry struct {
	m cmap.ConcurrentMap[int, Tracked]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		m: cmap.NewWithCustomShardingFunction[int, Tracked](func(key int) uint32 {
			return uint32(key)
		}),
	}
}

// Register records an open socket under its descriptor.
func (r *Registry) Register(t Tracked) {
	r.m.Set(t.Fd(), t)
}

// Remove drops a descriptor from the registry. Unknown descriptors are
// ignored, so close paths can call it unconditionally.
func (r *Registry) Remove(fd int) {
	r.m.Remove(fd)
}

// Len reports the number of registered sockets.
func (r *Registry) Len() int {
	return r.m.Count()
}

// Fds returns a snapshot of the registered descriptors.
func (r *Registry) Fds() []int {
	items := r.m.Items()
	out := make([]int, 0, len(items))
	for fd := range items {
		out = append(out, fd)
	}
	return out
}

// ProbeState reports the registry contents in the shape the control
// package's debug probes expose. The method value satisfies the probe
// signature, so hosts register it directly:
//
//	dp.RegisterProbe("sockets", reg.ProbeState)
func (r *Registry) ProbeState() any {
	return map[string]any{
		"open_sockets": r.Len(),
		"fds":          r.Fds(),
	}
}

// CloseAll closes every registered socket, joining any close failures.
// Sockets remove themselves from the registry as they close.
func (r *Registry) CloseAll() error {
	var errs []error
	for _, t := range r.m.Items() {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
