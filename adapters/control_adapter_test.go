package adapters_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-meta/adapters"
	"github.com/momentics/hioload-meta/api"
)

func TestControlAdapterBasic(t *testing.T) {
	ctrl := adapters.NewControlAdapter(nil, nil, nil)
	cfg := ctrl.GetConfig()
	assert.Equal(t, 16, cfg["shards"])

	called := false
	ctrl.OnReload(func() { called = true })
	require.NoError(t, ctrl.SetConfig(map[string]any{"clear_on_destroy": true}))
	assert.Equal(t, true, ctrl.GetConfig()["clear_on_destroy"])
	assert.True(t, called)

	require.ErrorIs(t, ctrl.SetConfig(map[string]any{"shards": 0}), api.ErrInvalidArgument)
}

func TestControlAdapterStats(t *testing.T) {
	ctrl := adapters.NewControlAdapter(nil, nil, nil)
	ctrl.SetMetric("owners.live", 3)
	ctrl.RegisterDebugProbe("answer", func() any { return 42 })

	stats := ctrl.Stats()
	assert.Equal(t, 3, stats["owners.live"])
	assert.Equal(t, 42, stats["debug.answer"])
}
