//go:build linux

package sock_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/embash/usock/sock"
)

func TestBudgetForZeroAndNegative(t *testing.T) {
	require.Equal(t, uint32(0), sock.BudgetFor(0))
	require.Equal(t, uint32(0), sock.BudgetFor(-time.Second))
}

func TestBudgetForTruncates(t *testing.T) {
	// Fractional remainders below one poll interval are dropped, not
	// rounded up.
	require.Equal(t, uint32(0), sock.BudgetFor(sock.PollInterval-time.Millisecond))
	require.Equal(t, uint32(1), sock.BudgetFor(sock.PollInterval))
	require.Equal(t, uint32(1), sock.BudgetFor(sock.PollInterval+sock.PollInterval/2))
	require.Equal(t, uint32(2), sock.BudgetFor(2*sock.PollInterval))
	require.Equal(t, uint32(5), sock.BudgetFor(500*time.Millisecond))
}

func TestBudgetForMonotone(t *testing.T) {
	durations := []time.Duration{
		0,
		time.Millisecond,
		50 * time.Millisecond,
		sock.PollInterval,
		sock.PollInterval + 1,
		time.Second,
		time.Minute,
		time.Hour,
		24 * time.Hour,
	}
	prev := uint32(0)
	for _, d := range durations {
		got := sock.BudgetFor(d)
		require.GreaterOrEqual(t, got, prev, "budget must not decrease at %v", d)
		prev = got
	}
}

func TestBudgetForClampsToInfinite(t *testing.T) {
	require.Equal(t, sock.InfiniteRetries, sock.BudgetFor(time.Duration(math.MaxInt64)))
}
