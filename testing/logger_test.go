package testing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatKeyValues(t *testing.T) {
	require.Empty(t, formatKeyValues(nil))
	require.Equal(t, " channel=FD worker=BOT1", formatKeyValues([]any{"channel", "FD", "worker", "BOT1"}))
	require.Equal(t, " n=3 dangling=<missing>", formatKeyValues([]any{"n", 3, "dangling"}))
}

func TestNewTestLogger(t *testing.T) {
	logger := NewTestLogger(t)
	require.NotPanics(t, func() {
		logger.Debug("debug", "k", "v")
		logger.Info("info")
		logger.Warn("warn", "k")
		logger.Error("error", "err", "boom")
	})
}
