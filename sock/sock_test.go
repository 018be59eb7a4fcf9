//go:build linux

package sock_test

import (
	"context"
	"fmt"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/embash/usock/addr"
	"github.com/embash/usock/api"
	"github.com/embash/usock/control"
	"github.com/embash/usock/sock"
	"github.com/embash/usock/track"
)

func newTCP(t *testing.T, opts ...sock.Option) *sock.Socket {
	t.Helper()
	s, err := sock.New(api.AF_INET, api.SOCK_STREAM, 0, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newUDP(t *testing.T, opts ...sock.Option) *sock.Socket {
	t.Helper()
	s, err := sock.New(api.AF_INET, api.SOCK_DGRAM, 0, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustAddr(t *testing.T, host string, port int) addr.Addr {
	t.Helper()
	a, err := addr.ParseAddr(host, port)
	require.NoError(t, err)
	return a
}

// newListener binds to an ephemeral loopback port and starts listening.
func newListener(t *testing.T, opts ...sock.Option) (*sock.Socket, addr.Addr) {
	t.Helper()
	ls := newTCP(t, opts...)
	require.NoError(t, ls.SetSockOpt(api.SOL_SOCKET, api.SO_REUSEADDR, 1))
	require.NoError(t, ls.BindAddr(mustAddr(t, "127.0.0.1", 0)))
	require.NoError(t, ls.Listen(1))
	la, err := ls.LocalAddr()
	require.NoError(t, err)
	return ls, la
}

// connectedPair returns a client socket and the handle accepted for it.
func connectedPair(t *testing.T, opts ...sock.Option) (client, accepted *sock.Socket) {
	t.Helper()
	ls, la := newListener(t, opts...)
	client = newTCP(t, opts...)
	require.NoError(t, client.ConnectAddr(la))

	require.NoError(t, ls.SetTimeout(2*time.Second))
	accepted, peer, err := ls.Accept(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = accepted.Close() })

	require.Equal(t, [4]byte{127, 0, 0, 1}, peer.IP)
	return client, accepted
}

func TestNewSocketDefaults(t *testing.T) {
	s := newTCP(t)
	require.GreaterOrEqual(t, s.Fd(), 0)
	require.Equal(t, api.AF_INET, s.Domain())
	require.Equal(t, api.SOCK_STREAM, s.Type())
	require.Equal(t, 0, s.Proto())
	require.Equal(t, sock.InfiniteRetries, s.Budget())
	require.False(t, s.PeerClosed())
}

func TestNewSocketInvalidDomain(t *testing.T) {
	_, err := sock.New(-1, api.SOCK_STREAM, 0)
	var oe *api.OpError
	require.ErrorAs(t, err, &oe)
	require.Equal(t, "socket", oe.Op)
}

func TestCloseIsIdempotent(t *testing.T) {
	s := newTCP(t)
	require.NoError(t, s.Close())
	require.Equal(t, -1, s.Fd())
	require.NoError(t, s.Close())
}

func TestOperationsAfterCloseFailFast(t *testing.T) {
	s := newTCP(t)
	require.NoError(t, s.Close())

	ctx := context.Background()
	a := mustAddr(t, "127.0.0.1", 1)

	require.ErrorIs(t, s.BindAddr(a), api.ErrClosed)
	require.ErrorIs(t, s.Listen(1), api.ErrClosed)
	require.ErrorIs(t, s.ConnectAddr(a), api.ErrClosed)
	_, _, err := s.Accept(ctx)
	require.ErrorIs(t, err, api.ErrClosed)
	_, err = s.Send(ctx, []byte("x"))
	require.ErrorIs(t, err, api.ErrClosed)
	_, err = s.Recv(ctx, 16)
	require.ErrorIs(t, err, api.ErrClosed)
	_, err = s.SendTo(ctx, []byte("x"), a)
	require.ErrorIs(t, err, api.ErrClosed)
	_, _, err = s.RecvFrom(ctx, 16)
	require.ErrorIs(t, err, api.ErrClosed)
	require.ErrorIs(t, s.SetTimeout(time.Second), api.ErrClosed)
	require.ErrorIs(t, s.SetNoTimeout(), api.ErrClosed)
	require.ErrorIs(t, s.SetSockOpt(api.SOL_SOCKET, api.SO_REUSEADDR, 1), api.ErrClosed)
	_, err = s.Poll(api.PollIn)
	require.ErrorIs(t, err, api.ErrClosed)
	_, err = s.LocalAddr()
	require.ErrorIs(t, err, api.ErrClosed)
}

func TestTimeoutModesAdjustBudget(t *testing.T) {
	s := newTCP(t)

	require.NoError(t, s.SetTimeout(0))
	require.Equal(t, uint32(0), s.Budget())

	require.NoError(t, s.SetTimeout(500*time.Millisecond))
	require.Equal(t, uint32(5), s.Budget())

	require.NoError(t, s.SetNoTimeout())
	require.Equal(t, sock.InfiniteRetries, s.Budget())

	require.NoError(t, s.SetBlocking(false))
	require.Equal(t, uint32(0), s.Budget())

	require.NoError(t, s.SetBlocking(true))
	require.Equal(t, sock.InfiniteRetries, s.Budget())
}

func TestBindResolvesEmptyHost(t *testing.T) {
	s := newTCP(t)
	require.NoError(t, s.SetSockOpt(api.SOL_SOCKET, api.SO_REUSEADDR, true))
	require.NoError(t, s.Bind(context.Background(), "", 0))

	la, err := s.LocalAddr()
	require.NoError(t, err)
	require.True(t, la.IsWildcard())
	require.NotZero(t, la.Port)
}

func TestConnectRefusedSurfacesErrno(t *testing.T) {
	// Grab a loopback port that is guaranteed closed by the time we
	// connect to it.
	ls, la := newListener(t)
	require.NoError(t, ls.Close())

	c := newTCP(t)
	err := c.ConnectAddr(la)
	var oe *api.OpError
	require.ErrorAs(t, err, &oe)
	require.Equal(t, "connect", oe.Op)
	require.ErrorIs(t, err, syscall.ECONNREFUSED)
}

func TestAcceptTimesOut(t *testing.T) {
	ls, _ := newListener(t)
	require.NoError(t, ls.SetTimeout(200*time.Millisecond))

	start := time.Now()
	_, _, err := ls.Accept(context.Background())
	require.ErrorIs(t, err, api.ErrTimeout)
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestSetSockOptMembershipPayload(t *testing.T) {
	s := newUDP(t)

	err := s.SetSockOpt(api.IPPROTO_IP, api.IP_ADD_MEMBERSHIP, []byte{224, 0, 0, 1})
	require.ErrorIs(t, err, api.ErrValue)

	err = s.SetSockOpt(api.IPPROTO_IP, api.IP_ADD_MEMBERSHIP, "not bytes")
	require.ErrorIs(t, err, api.ErrValue)
}

func TestSetSockOptUnknownWarnsAndSucceeds(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	s := newTCP(t, sock.WithLogger(zap.New(core)))

	// SO_KEEPALIVE is not implemented by this layer.
	require.NoError(t, s.SetSockOpt(api.SOL_SOCKET, 9, 1))
	require.Equal(t, 1, logs.FilterMessage("setsockopt: option not implemented").Len())
}

func TestSetSockOptBadFlagValue(t *testing.T) {
	s := newTCP(t)
	require.ErrorIs(t, s.SetSockOpt(api.SOL_SOCKET, api.SO_REUSEADDR, "yes"), api.ErrValue)
}

func TestRegistryTracksLifecycle(t *testing.T) {
	reg := track.NewRegistry()
	s := newTCP(t, sock.WithRegistry(reg))
	require.Equal(t, 1, reg.Len())
	require.Equal(t, []int{s.Fd()}, reg.Fds())

	require.NoError(t, s.Close())
	require.Equal(t, 0, reg.Len())
}

func TestRegistryCloseAllTearsDownLiveSocket(t *testing.T) {
	reg := track.NewRegistry()
	s := newTCP(t, sock.WithRegistry(reg))

	require.NoError(t, reg.CloseAll())
	require.Equal(t, 0, reg.Len())
	_, err := s.Recv(context.Background(), 1)
	require.ErrorIs(t, err, api.ErrClosed)
}

func TestAcceptWithoutListenRetriesAndTimesOut(t *testing.T) {
	// accept(2) on a bound but non-listening descriptor fails with
	// EINVAL on every attempt, without any OS-level wait in between.
	s := newTCP(t)
	require.NoError(t, s.BindAddr(mustAddr(t, "127.0.0.1", 0)))
	require.NoError(t, s.SetTimeout(300*time.Millisecond))

	start := time.Now()
	_, _, err := s.Accept(context.Background())
	require.ErrorIs(t, err, api.ErrTimeout)
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestDebugProbesExposeSocketState(t *testing.T) {
	dp := control.NewDebugProbes()
	reg := track.NewRegistry()
	s := newTCP(t, sock.WithDebugProbes(dp), sock.WithRegistry(reg))
	dp.RegisterProbe("sockets", reg.ProbeState)

	snap := dp.Snapshot()
	state, ok := snap[fmt.Sprintf("socket_%d", s.Fd())].(map[string]any)
	require.True(t, ok)
	require.Equal(t, s.Fd(), state["fd"])
	require.Equal(t, api.AF_INET, state["domain"])
	require.Equal(t, api.SOCK_STREAM, state["type"])
	require.Equal(t, sock.InfiniteRetries, state["budget"])
	require.Equal(t, false, state["peer_closed"])

	regState := snap["sockets"].(map[string]any)
	require.Equal(t, 1, regState["open_sockets"])
	require.Equal(t, []int{s.Fd()}, regState["fds"])

	require.NoError(t, s.SetTimeout(500*time.Millisecond))
	state = dp.Snapshot()[fmt.Sprintf("socket_%d", s.Fd())].(map[string]any)
	require.Equal(t, uint32(5), state["budget"])

	fd := s.Fd()
	require.NoError(t, s.Close())
	snap = dp.Snapshot()
	require.NotContains(t, snap, fmt.Sprintf("socket_%d", fd))
	require.Equal(t, 0, snap["sockets"].(map[string]any)["open_sockets"])
}

func TestAcceptedSocketInheritsProbes(t *testing.T) {
	dp := control.NewDebugProbes()
	client, accepted := connectedPair(t, sock.WithDebugProbes(dp))

	snap := dp.Snapshot()
	require.Contains(t, snap, fmt.Sprintf("socket_%d", accepted.Fd()))
	require.Contains(t, snap, fmt.Sprintf("socket_%d", client.Fd()))

	fd := accepted.Fd()
	require.NoError(t, accepted.Close())
	require.NotContains(t, dp.Snapshot(), fmt.Sprintf("socket_%d", fd))
}

func TestAcceptedSocketInheritsRegistry(t *testing.T) {
	reg := track.NewRegistry()
	client, accepted := connectedPair(t, sock.WithRegistry(reg))
	// listener + client + accepted
	require.Equal(t, 3, reg.Len())
	require.NoError(t, accepted.Close())
	require.NoError(t, client.Close())
	require.Equal(t, 1, reg.Len())
}
