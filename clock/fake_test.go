package clock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-meta/clock"
)

func TestFakeAdvance(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := clock.Fake(start)
	assert.Equal(t, start, c.Now())
	c.Advance(90 * time.Second)
	assert.Equal(t, start.Add(90*time.Second), c.Now())
}

func TestFakeTicker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := clock.Fake(start)
	tk := c.NewTicker(time.Second)
	require.Equal(t, 1, c.Tickers())

	c.Advance(500 * time.Millisecond)
	select {
	case <-tk.C:
		t.Fatal("ticked early")
	default:
	}

	c.Advance(500 * time.Millisecond)
	assert.Equal(t, start.Add(time.Second), <-tk.C)

	// Lagging consumer: only one tick buffered.
	c.Advance(3 * time.Second)
	<-tk.C
	select {
	case <-tk.C:
		t.Fatal("ticks queued beyond capacity")
	default:
	}

	tk.Stop()
	assert.Zero(t, c.Tickers())
	assert.Panics(t, func() { c.NewTicker(0) })
}

func TestRealClock(t *testing.T) {
	c := clock.Real()
	assert.WithinDuration(t, time.Now(), c.Now(), time.Second)
	tk := c.NewTicker(time.Millisecond)
	defer tk.Stop()
	<-tk.C
}
