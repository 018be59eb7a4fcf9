// addr/resolver.go
//
// Name and service resolution. Lookups run on a bounded worker pool so a
// slow getaddrinfo never wedges the caller's scheduler thread, and the
// caller's context is honored while the lookup is in flight. Transient
// resolver failures are retried with capped exponential backoff.

package addr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"github.com/panjf2000/ants/v2"

	"github.com/embash/usock/api"
)

// wildcardHost is what an empty host normalizes to: all interfaces.
const wildcardHost = "0.0.0.0"

// defaultPoolSize bounds concurrent in-flight lookups.
const defaultPoolSize = 4

// maxLookupRetries caps backoff retries of a transiently failing lookup.
const maxLookupRetries = 3

// AddrInfo is one record of a getaddrinfo-style result:
// (family, socktype, proto, canonname, address).
type AddrInfo struct {
	Family    int
	SockType  int
	Proto     int
	CanonName string
	Addr      Addr
}

// Resolver converts host/port pairs into socket addresses.
// The zero value is not usable; construct with NewResolver or use
// Default.
type Resolver struct {
	pool *ants.Pool
	sys  *net.Resolver
}

// NewResolver creates a resolver with a worker pool of the given size.
// A size below one falls back to the default.
func NewResolver(poolSize int) (*Resolver, error) {
	if poolSize < 1 {
		poolSize = defaultPoolSize
	}
	p, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("resolver pool: %w", err)
	}
	return &Resolver{pool: p, sys: net.DefaultResolver}, nil
}

var (
	defaultResolver     *Resolver
	defaultResolverOnce sync.Once
)

// Default returns the shared process-wide resolver.
func Default() *Resolver {
	defaultResolverOnce.Do(func() {
		r, err := NewResolver(defaultPoolSize)
		if err != nil {
			// ants only fails on invalid sizing; ours is constant.
			panic(err)
		}
		defaultResolver = r
	})
	return defaultResolver
}

// Close releases the lookup worker pool.
func (r *Resolver) Close() {
	r.pool.Release()
}

// Resolve converts host and port into one or more socket addresses.
// An empty host means the wildcard address. Port may be an integer or
// text; integer ports are converted to text first, and non-numeric text
// is treated as a service name. Resolution failures are reported as
// *api.ResolveError.
func (r *Resolver) Resolve(ctx context.Context, host string, port any) ([]Addr, error) {
	portText, err := coercePort(port)
	if err != nil {
		return nil, err
	}
	portNum, err := r.lookupPort(ctx, portText)
	if err != nil {
		return nil, err
	}

	if host == "" {
		host = wildcardHost
	}

	// Literal addresses skip the worker pool entirely.
	if ip := net.ParseIP(host); ip != nil {
		ip4 := ip.To4()
		if ip4 == nil {
			return nil, &api.ResolveError{
				Host: host, Code: api.EAI_NONAME, Err: errors.New("no IPv4 address"),
			}
		}
		a := Addr{Port: uint16(portNum)}
		copy(a.IP[:], ip4)
		return []Addr{a}, nil
	}

	ips, err := r.lookupHost(ctx, host)
	if err != nil {
		return nil, err
	}
	out := make([]Addr, 0, len(ips))
	for _, ip := range ips {
		ip4 := ip.IP.To4()
		if ip4 == nil {
			continue
		}
		a := Addr{Port: uint16(portNum)}
		copy(a.IP[:], ip4)
		out = append(out, a)
	}
	if len(out) == 0 {
		return nil, &api.ResolveError{
			Host: host, Code: api.EAI_NONAME, Err: errors.New("no IPv4 address"),
		}
	}
	return out, nil
}

// ResolveTuple resolves a two-element (host, port) tuple as handed over
// by an embedding host runtime. Any other arity is an invalid address.
func (r *Resolver) ResolveTuple(ctx context.Context, tuple []any) ([]Addr, error) {
	if len(tuple) != 2 {
		return nil, fmt.Errorf("address tuple must have 2 elements, got %d: %w",
			len(tuple), api.ErrInvalidAddress)
	}
	host, ok := tuple[0].(string)
	if !ok {
		return nil, fmt.Errorf("address tuple host must be text: %w", api.ErrInvalidAddress)
	}
	return r.Resolve(ctx, host, tuple[1])
}

// GetAddrInfo returns getaddrinfo-style records for host and port. The
// records carry the stream-socket hints the lookup was made with.
func (r *Resolver) GetAddrInfo(ctx context.Context, host string, port any) ([]AddrInfo, error) {
	addrs, err := r.Resolve(ctx, host, port)
	if err != nil {
		return nil, err
	}
	out := make([]AddrInfo, len(addrs))
	for i, a := range addrs {
		out[i] = AddrInfo{
			Family:   api.AF_INET,
			SockType: api.SOCK_STREAM,
			Proto:    0,
			Addr:     a,
		}
	}
	return out, nil
}

type lookupResult struct {
	ips []net.IPAddr
	err error
}

// lookupHost runs the blocking name resolution on the worker pool,
// retrying transient failures, while the calling goroutine stays
// responsive to ctx.
func (r *Resolver) lookupHost(ctx context.Context, host string) ([]net.IPAddr, error) {
	op := func() ([]net.IPAddr, error) {
		ips, err := r.sys.LookupIPAddr(ctx, host)
		if err != nil {
			var de *net.DNSError
			if errors.As(err, &de) && (de.IsTemporary || de.IsTimeout) {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return ips, nil
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxLookupRetries), ctx)

	ch := make(chan lookupResult, 1)
	task := func() {
		ips, err := backoff.RetryWithData(op, policy)
		ch <- lookupResult{ips: ips, err: err}
	}
	if err := r.pool.Submit(task); err != nil {
		// Pool released or saturated beyond its queue; degrade to an
		// inline lookup rather than failing the resolution.
		go task()
	}

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, &api.ResolveError{Host: host, Code: resolveStatus(res.err), Err: res.err}
		}
		return res.ips, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// lookupPort turns port text into a number, accepting numeric strings
// directly and falling back to a service-name lookup.
func (r *Resolver) lookupPort(ctx context.Context, port string) (int, error) {
	if n, err := strconv.Atoi(port); err == nil {
		if n < 0 || n > 0xffff {
			return 0, fmt.Errorf("port %d out of range: %w", n, api.ErrInvalidAddress)
		}
		return n, nil
	}
	n, err := r.sys.LookupPort(ctx, "tcp", port)
	if err != nil {
		return 0, &api.ResolveError{Host: port, Code: resolveStatus(err), Err: err}
	}
	return n, nil
}

// resolveStatus maps a resolver failure onto the getaddrinfo status a
// host expects alongside the error.
func resolveStatus(err error) int {
	var de *net.DNSError
	if errors.As(err, &de) {
		switch {
		case de.IsNotFound:
			return api.EAI_NONAME
		case de.IsTimeout, de.IsTemporary:
			return api.EAI_AGAIN
		}
	}
	return api.EAI_FAIL
}

// coercePort normalizes the port argument to text, mirroring the loose
// host-runtime calling convention (integer or string).
func coercePort(port any) (string, error) {
	switch v := port.(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case uint16:
		return strconv.Itoa(int(v)), nil
	default:
		return "", fmt.Errorf("port must be an integer or text, got %T: %w",
			port, api.ErrInvalidAddress)
	}
}
