package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	comms "github.com/itaame/MCC-COMMS"
)

func parseFlags(t *testing.T, args ...string) (*pflag.FlagSet, *flags) {
	t.Helper()

	var f flags
	flagSet := pflag.NewFlagSet("mcc-comms", pflag.ContinueOnError)
	flagSet.StringVar(&f.configPath, "config", "", "")
	flagSet.StringVar(&f.role, "role", "", "")
	flagSet.DurationVar(&f.delay, "delay", 0, "")
	flagSet.StringSliceVar(&f.bots, "bot", nil, "")
	require.NoError(t, flagSet.Parse(args))

	return flagSet, &f
}

func TestLoadConfig_Layers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "comms.yaml")
	require.NoError(t, os.WriteFile(path, []byte("role: eva\ndelay:\n  delay: 2s\n"), 0o600))

	t.Run("file over defaults", func(t *testing.T) {
		flagSet, f := parseFlags(t, "--config", path)
		cfg, err := loadConfig(flagSet, f)
		require.NoError(t, err)
		require.Equal(t, "EVA", cfg.Role)
		require.Equal(t, 2*time.Second, cfg.Delay.Delay)
		require.Equal(t, comms.DefaultBots(), cfg.Bots)
	})

	t.Run("flags over file", func(t *testing.T) {
		flagSet, f := parseFlags(t, "--config", path, "--role", "capcom", "--bot", "A=http://a")
		cfg, err := loadConfig(flagSet, f)
		require.NoError(t, err)
		require.Equal(t, "CAPCOM", cfg.Role)
		require.Equal(t, []comms.Bot{{Name: "A", Endpoint: "http://a"}}, cfg.Bots)
	})

	t.Run("zero delay flag is kept", func(t *testing.T) {
		flagSet, f := parseFlags(t, "--config", path, "--delay", "0")
		cfg, err := loadConfig(flagSet, f)
		require.NoError(t, err)
		require.Zero(t, cfg.Delay.Delay)
	})

	t.Run("no delay flag keeps default", func(t *testing.T) {
		flagSet, f := parseFlags(t)
		cfg, err := loadConfig(flagSet, f)
		require.NoError(t, err)
		require.Equal(t, 3*time.Second, cfg.Delay.Delay)
	})
}
