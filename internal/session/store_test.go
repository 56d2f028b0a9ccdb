package session_test

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/momentics/hioload-meta/api"
	"github.com/momentics/hioload-meta/clock"
	"github.com/momentics/hioload-meta/control"
	"github.com/momentics/hioload-meta/internal/session"
	"github.com/momentics/hioload-meta/metadata"
)

var (
	epoch    = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	scoreKey = metadata.NewKey[int]("score")
	buffKey  = metadata.NewKey[string]("buff", metadata.WithRemoveOnNonExists())
	timerKey = metadata.NewKey[*[]string]("timers", metadata.WithRemoveOnNonExists())
)

type fixture struct {
	mgr     session.SessionManager
	clock   *clock.FakeClock
	metrics *control.MetricsRegistry
	events  *control.EventBus
	logs    *bytes.Buffer
}

func newFixture(t *testing.T, clearOnDestroy bool) *fixture {
	t.Helper()
	f := &fixture{
		clock:   clock.Fake(epoch),
		metrics: control.NewMetricsRegistry(),
		events:  control.NewEventBus(0),
		logs:    new(bytes.Buffer),
	}
	f.mgr = session.NewSessionManager(session.Config{
		Shards:         4,
		ClearOnDestroy: clearOnDestroy,
		Clock:          f.clock,
		Logger:         slog.New(slog.NewTextHandler(f.logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
		Metrics:        f.metrics,
		Events:         f.events,
	})
	return f
}

func TestForOwnerIsIdempotent(t *testing.T) {
	f := newFixture(t, false)

	a, err := f.mgr.ForOwner("alice")
	require.NoError(t, err)
	again, err := f.mgr.ForOwner("alice")
	require.NoError(t, err)
	assert.Same(t, a.Metadata(), again.Metadata())
	assert.Equal(t, "alice", a.ID())
	assert.Equal(t, epoch, a.CreatedAt())
	assert.Equal(t, 1, f.mgr.Len())

	got, ok := f.mgr.Lookup("alice")
	require.True(t, ok)
	assert.Equal(t, a, got)

	_, ok = f.mgr.Lookup("bob")
	assert.False(t, ok)

	_, err = f.mgr.ForOwner("")
	require.ErrorIs(t, err, api.ErrNullArgument)

	assert.Equal(t, int64(1), f.metrics.Counter(control.MetricOwnersCreated))
}

func TestDestroyRemovesFlaggedKeys(t *testing.T) {
	f := newFixture(t, false)
	s, err := f.mgr.ForOwner("alice")
	require.NoError(t, err)
	m := s.Metadata()

	timers := []string{"combat"}
	require.NoError(t, metadata.Put(m, scoreKey, 10))
	require.NoError(t, metadata.Put(m, buffKey, "speed"))
	require.NoError(t, metadata.Put(m, timerKey, &timers))

	f.mgr.OnTeardown(func(s session.Session) error {
		_, err := metadata.IfPresent(s.Metadata(), timerKey, func(list *[]string) { *list = nil })
		return err
	})

	require.True(t, f.mgr.Destroy("alice"))
	assert.False(t, f.mgr.Destroy("alice"))

	select {
	case <-s.Done():
	default:
		t.Fatal("session not cancelled")
	}
	assert.Nil(t, timers)
	assert.True(t, m.Has(scoreKey))
	assert.False(t, m.Has(buffKey))
	assert.False(t, m.Has(timerKey))
	assert.Zero(t, f.mgr.Len())
	assert.Equal(t, int64(2), f.metrics.Counter(control.MetricEntriesRemoved))
	assert.Contains(t, f.logs.String(), "owner destroyed")
}

func TestDestroyClearsWhenConfigured(t *testing.T) {
	f := newFixture(t, true)
	s, err := f.mgr.ForOwner("alice")
	require.NoError(t, err)
	require.NoError(t, metadata.Put(s.Metadata(), scoreKey, 1))
	require.NoError(t, metadata.Put(s.Metadata(), buffKey, "x"))

	require.True(t, f.mgr.Destroy("alice"))
	assert.True(t, s.Metadata().IsEmpty())

	f.mgr.SetClearOnDestroy(false)
	s, err = f.mgr.ForOwner("bob")
	require.NoError(t, err)
	require.NoError(t, metadata.Put(s.Metadata(), scoreKey, 1))
	require.True(t, f.mgr.Destroy("bob"))
	assert.True(t, s.Metadata().Has(scoreKey))
}

func TestTeardownHookErrorIsLogged(t *testing.T) {
	f := newFixture(t, false)
	_, err := f.mgr.ForOwner("alice")
	require.NoError(t, err)

	var ran []string
	f.mgr.OnTeardown(func(session.Session) error {
		ran = append(ran, "first")
		return errors.New("scoreboard gone")
	})
	f.mgr.OnTeardown(func(session.Session) error {
		ran = append(ran, "second")
		return nil
	})

	require.True(t, f.mgr.Destroy("alice"))
	assert.Equal(t, []string{"first", "second"}, ran)
	assert.Equal(t, int64(1), f.metrics.Counter(control.MetricTeardownErrors))
	assert.Contains(t, f.logs.String(), "scoreboard gone")
}

func TestSweepEvictsAcrossOwners(t *testing.T) {
	f := newFixture(t, false)
	for i := range 5 {
		s, err := f.mgr.ForOwner(fmt.Sprintf("owner-%d", i))
		require.NoError(t, err)
		require.NoError(t, metadata.PutTransient(s.Metadata(), buffKey,
			metadata.Wrap("speed", metadata.AfterWrite(time.Second, f.clock))))
		require.NoError(t, metadata.Put(s.Metadata(), scoreKey, i))
	}

	assert.Zero(t, f.mgr.Sweep())
	f.clock.Advance(time.Second)
	assert.Equal(t, 5, f.mgr.Sweep())

	f.mgr.Range(func(s session.Session) {
		assert.Equal(t, 1, s.Metadata().Len())
	})
	assert.Equal(t, int64(5), f.metrics.Counter(control.MetricEntriesEvicted))
	assert.Equal(t, int64(2), f.metrics.Counter(control.MetricSweeps))
}

func TestLifecycleEvents(t *testing.T) {
	f := newFixture(t, false)
	var kinds []control.EventKind
	f.events.Subscribe(func(ev control.Event) {
		kinds = append(kinds, ev.Kind)
		assert.Equal(t, epoch, ev.At)
	})

	_, err := f.mgr.ForOwner("alice")
	require.NoError(t, err)
	f.mgr.Sweep()
	f.mgr.Destroy("alice")

	assert.Equal(t, 3, f.events.Flush())
	assert.Equal(t, []control.EventKind{control.OwnerCreated, control.SweepCompleted, control.OwnerDestroyed}, kinds)
}

func TestRangeMayDestroy(t *testing.T) {
	f := newFixture(t, false)
	for i := range 10 {
		_, err := f.mgr.ForOwner(fmt.Sprintf("owner-%d", i))
		require.NoError(t, err)
	}
	f.mgr.Range(func(s session.Session) {
		f.mgr.Destroy(s.ID())
	})
	assert.Zero(t, f.mgr.Len())
}

func TestConcurrentForOwner(t *testing.T) {
	mgr := session.NewSessionManager(session.Config{Shards: 3})
	results := make([]session.Session, 64)
	var g errgroup.Group
	for i := range results {
		g.Go(func() error {
			s, err := mgr.ForOwner(fmt.Sprintf("owner-%d", i%4))
			results[i] = s
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 4, mgr.Len())
	for i, s := range results {
		want, ok := mgr.Lookup(fmt.Sprintf("owner-%d", i%4))
		require.True(t, ok)
		assert.Same(t, want.Metadata(), s.Metadata())
	}
}

func TestSetMetricsSwapsSink(t *testing.T) {
	f := newFixture(t, false)
	f.mgr.SetMetrics(nil)
	_, err := f.mgr.ForOwner("alice")
	require.NoError(t, err)
	assert.Zero(t, f.metrics.Counter(control.MetricOwnersCreated))

	f.mgr.SetMetrics(f.metrics)
	_, err = f.mgr.ForOwner("bob")
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.metrics.Counter(control.MetricOwnersCreated))
}
