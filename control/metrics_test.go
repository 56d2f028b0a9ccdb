package control_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/momentics/hioload-meta/control"
)

func TestMetricsCounters(t *testing.T) {
	mr := control.NewMetricsRegistry()
	assert.Zero(t, mr.Counter(control.MetricSweeps))
	assert.True(t, mr.Updated().IsZero())

	mr.Add(control.MetricSweeps, 1)
	mr.Add(control.MetricSweeps, 2)
	mr.Set(control.MetricOwnersLive, 5)

	assert.Equal(t, int64(3), mr.Counter(control.MetricSweeps))
	snap := mr.GetSnapshot()
	assert.Equal(t, int64(3), snap[control.MetricSweeps])
	assert.Equal(t, 5, snap[control.MetricOwnersLive])
	assert.False(t, mr.Updated().IsZero())
}

func TestDebugProbes(t *testing.T) {
	dp := control.NewDebugProbes()
	control.RegisterRuntimeProbes(dp)
	dp.RegisterProbe("answer", func() any { return 42 })

	state := dp.DumpState()
	assert.Equal(t, 42, state["answer"])
	assert.Contains(t, state, "runtime.cpus")
	assert.Contains(t, state, "runtime.goroutines")
}
