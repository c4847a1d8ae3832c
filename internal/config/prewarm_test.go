package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPrewarmConfig(t *testing.T) {
	cfg := DefaultPrewarmConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "0 9 * * 1-5", cfg.Schedule)
	assert.Equal(t, "Asia/Kolkata", cfg.Timezone)
	assert.Contains(t, cfg.Watchlist, "^NSEI")
	assert.Equal(t, 30, cfg.LookbackDays)
	assert.Equal(t, 3, cfg.Parallelism)
}

func TestLoadFromEnv_Prewarm(t *testing.T) {
	clearServerEnvVars(t)

	t.Setenv("PREWARM_ENABLED", "true")
	t.Setenv("PREWARM_SCHEDULE", "30 8 * * 1-5")
	t.Setenv("PREWARM_TIMEZONE", "UTC")
	t.Setenv("PREWARM_WATCHLIST", "RELIANCE, TCS ,^NSEI,,")
	t.Setenv("PREWARM_LOOKBACK_DAYS", "90")
	t.Setenv("PREWARM_PARALLELISM", "5")

	cfg := LoadFromEnv(testLogger(), nil)

	assert.True(t, cfg.Prewarm.Enabled)
	assert.Equal(t, "30 8 * * 1-5", cfg.Prewarm.Schedule)
	assert.Equal(t, "UTC", cfg.Prewarm.Timezone)
	assert.Equal(t, []string{"RELIANCE", "TCS", "^NSEI"}, cfg.Prewarm.Watchlist)
	assert.Equal(t, 90, cfg.Prewarm.LookbackDays)
	assert.Equal(t, 5, cfg.Prewarm.Parallelism)
}

func TestLoadFromEnv_PrewarmInvalidFallsBack(t *testing.T) {
	clearServerEnvVars(t)

	t.Setenv("PREWARM_ENABLED", "maybe")
	t.Setenv("PREWARM_SCHEDULE", "every monday at dawn")
	t.Setenv("PREWARM_TIMEZONE", "Mars/Olympus_Mons")
	t.Setenv("PREWARM_LOOKBACK_DAYS", "4000")
	t.Setenv("PREWARM_PARALLELISM", "0")

	cfg := LoadFromEnv(testLogger(), nil)
	defaults := DefaultPrewarmConfig()

	assert.Equal(t, defaults.Enabled, cfg.Prewarm.Enabled)
	assert.Equal(t, defaults.Schedule, cfg.Prewarm.Schedule)
	assert.Equal(t, defaults.Timezone, cfg.Prewarm.Timezone)
	assert.Equal(t, defaults.LookbackDays, cfg.Prewarm.LookbackDays)
	assert.Equal(t, defaults.Parallelism, cfg.Prewarm.Parallelism)
}

func TestServerConfig_ValidatePrewarm(t *testing.T) {
	t.Run("EnabledWithWatchlist", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Prewarm.Enabled = true
		require.NoError(t, cfg.Validate())
	})

	t.Run("EnabledWithEmptyWatchlist", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Prewarm.Enabled = true
		cfg.Prewarm.Watchlist = nil
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "watchlist")
	})

	t.Run("DisabledIgnoresWatchlist", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Prewarm.Watchlist = nil
		require.NoError(t, cfg.Validate())
	})
}

func TestSplitWatchlist(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "single", raw: "RELIANCE", want: []string{"RELIANCE"}},
		{name: "spaces and empties", raw: " TCS, ,INFY,", want: []string{"TCS", "INFY"}},
		{name: "only separators", raw: ", ,", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitWatchlist(tt.raw))
		})
	}
}
