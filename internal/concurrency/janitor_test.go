package concurrency_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-meta/clock"
	"github.com/momentics/hioload-meta/internal/concurrency"
)

type countingSweeper struct {
	calls atomic.Int32
}

func (s *countingSweeper) Sweep() int {
	s.calls.Add(1)
	return 2
}

func TestJanitorSweepsOnTick(t *testing.T) {
	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	target := &countingSweeper{}
	var evicted atomic.Int32
	j := concurrency.NewJanitor(target, c, nil, func(n int) { evicted.Add(int32(n)) })
	defer j.Stop()

	assert.False(t, j.Running())
	j.Start(time.Second)
	require.True(t, j.Running())
	assert.Equal(t, time.Second, j.Interval())
	require.Equal(t, 1, c.Tickers())

	c.Advance(time.Second)
	assert.Eventually(t, func() bool { return target.calls.Load() == 1 }, time.Second, time.Millisecond)
	assert.Eventually(t, func() bool { return evicted.Load() == 2 }, time.Second, time.Millisecond)
}

func TestJanitorRestartAndStop(t *testing.T) {
	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	j := concurrency.NewJanitor(&countingSweeper{}, c, nil, nil)

	j.Start(time.Second)
	j.Start(time.Second)
	assert.Equal(t, 1, c.Tickers())

	j.Start(2 * time.Second)
	assert.Equal(t, 2*time.Second, j.Interval())
	assert.Equal(t, 1, c.Tickers())

	j.Start(0)
	assert.False(t, j.Running())
	assert.Zero(t, c.Tickers())
	j.Stop()
}
