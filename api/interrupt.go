// api/interrupt.go
//
// Cooperative interruption capability checked by every retry loop.

package api

// Interrupter reports externally raised interruption signals. Blocking
// operations call Pending at every poll boundary; a non-nil result
// aborts the retry loop immediately and propagates to the caller, taking
// priority over any timeout or success outcome.
//
// Implementations must be safe for concurrent use: the host raises
// signals from its own thread of control while socket operations drain
// them.
type Interrupter interface {
	Pending() error
}
