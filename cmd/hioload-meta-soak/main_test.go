package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-meta/api"
)

func TestRunShortSoak(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{
		"--owners", "4",
		"--workers", "2",
		"--duration", "50ms",
		"--ttl", "5ms",
		"--sweep-interval", "10ms",
		"--destroy-percent", "10",
		"--log-level", "warn",
	}, &stdout, &stderr)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "owners.created")
	assert.Contains(t, stdout.String(), "debug.sessions.count")
}

func TestRunRejectsBadArguments(t *testing.T) {
	var out bytes.Buffer
	require.ErrorIs(t, run(context.Background(), []string{"--owners", "0"}, &out, &out), api.ErrInvalidArgument)
	require.ErrorIs(t, run(context.Background(), []string{"--log-level", "loud"}, &out, &out), api.ErrInvalidArgument)
	require.Error(t, run(context.Background(), []string{"extra"}, &out, &out))
	require.ErrorIs(t, run(context.Background(), []string{"--help"}, &out, &out), pflag.ErrHelp)
}
