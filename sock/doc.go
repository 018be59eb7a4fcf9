// Package sock turns a raw OS socket descriptor into a handle with
// POSIX-like blocking semantics: configurable timeouts implemented as
// bounded polling loops, cooperative-interrupt checking between poll
// attempts, and a sticky peer-closed flag so a remote close is observed
// as a zero-length read on every subsequent receive.
//
// A handle owns exactly one descriptor for its lifetime. Handles are not
// safe for concurrent use without external synchronization.
package sock
