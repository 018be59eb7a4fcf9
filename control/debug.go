// control/debug.go
//
// Named debug probes over live socket state. Sockets register a probe
// for the lifetime of their descriptor, a registry exposes its open-fd
// view, and a host dumps the snapshot when inspecting the runtime.

package control

import "sync"

// DebugProbes holds named probe functions over live library state.
// Safe for concurrent use: sockets register and remove probes while a
// host takes snapshots.
type DebugProbes struct {
	mu     sync.RWMutex
	probes map[string]func() any
}

// NewDebugProbes creates an empty probe registry.
func NewDebugProbes() *DebugProbes {
	return &DebugProbes{
		probes: make(map[string]func() any),
	}
}

// RegisterProbe installs a named probe, replacing any previous probe
// under the same name.
func (dp *DebugProbes) RegisterProbe(name string, fn func() any) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.probes[name] = fn
}

// RemoveProbe drops a named probe. Unknown names are ignored, so
// teardown paths can call it unconditionally.
func (dp *DebugProbes) RemoveProbe(name string) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	delete(dp.probes, name)
}

// Names returns the currently registered probe names.
func (dp *DebugProbes) Names() []string {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	out := make([]string, 0, len(dp.probes))
	for name := range dp.probes {
		out = append(out, name)
	}
	return out
}

// Snapshot evaluates every probe and returns the collected state.
func (dp *DebugProbes) Snapshot() map[string]any {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	out := make(map[string]any, len(dp.probes))
	for name, fn := range dp.probes {
		out[name] = fn()
	}
	return out
}
