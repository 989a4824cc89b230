package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alp4ka/planpager"
)

func Test_Load(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load(nil)
		require.NoError(t, err)

		assert.Equal(t, &Config{
			Dialect:       "sqlite",
			DSN:           ":memory:",
			Seed:          true,
			Limit:         3,
			OutputWalkers: "auto",
			LogLevel:      "info",
		}, cfg)
	})

	t.Run("environment overrides defaults", func(t *testing.T) {
		t.Setenv("PAGERDEMO_LIMIT", "7")
		t.Setenv("PAGERDEMO_OUTPUT_WALKERS", "true")

		cfg, err := Load(nil)
		require.NoError(t, err)
		assert.Equal(t, 7, cfg.Limit)
		assert.Equal(t, "true", cfg.OutputWalkers)
	})

	t.Run("flags override environment", func(t *testing.T) {
		t.Setenv("PAGERDEMO_LIMIT", "7")
		t.Setenv("PAGERDEMO_DESC", "false")

		cfg, err := Load([]string{"--limit", "5", "--desc", "--log-level", "debug"})
		require.NoError(t, err)
		assert.Equal(t, 5, cfg.Limit)
		assert.True(t, cfg.Desc)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("invalid values", func(t *testing.T) {
		_, err := Load([]string{"--output-walkers", "sometimes"})
		require.ErrorContains(t, err, "invalid output-walkers value")

		_, err = Load([]string{"--log-level", "loud"})
		require.ErrorContains(t, err, "invalid log level")

		_, err = Load([]string{"--unknown"})
		require.Error(t, err)
	})
}

func Test_Config_Strategy(t *testing.T) {
	tests := map[string]planpager.Strategy{
		"":      planpager.StrategyAuto,
		"auto":  planpager.StrategyAuto,
		"TRUE":  planpager.StrategyOutputWalker,
		"false": planpager.StrategyTreeWalker,
	}

	for value, want := range tests {
		got, err := (&Config{OutputWalkers: value}).Strategy()
		require.NoError(t, err, value)
		assert.Equal(t, want, got, value)
	}
}

func Test_Config_Level(t *testing.T) {
	level, err := (&Config{LogLevel: "warn"}).Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)
}

func Test_run(t *testing.T) {
	for _, walkers := range []string{"auto", "true", "false"} {
		t.Run(walkers, func(t *testing.T) {
			cfg, err := Load([]string{"--offset", "2", "--output-walkers", walkers})
			require.NoError(t, err)

			require.NoError(t, run(context.Background(), cfg, slog.New(slog.DiscardHandler)))
		})
	}

	t.Run("unsupported dialect", func(t *testing.T) {
		cfg, err := Load([]string{"--dialect", "oracle"})
		require.NoError(t, err)

		require.ErrorContains(t, run(context.Background(), cfg, slog.New(slog.DiscardHandler)), "unsupported dialect")
	})
}
