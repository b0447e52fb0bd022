package ops

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketshm/internal/engine"
	"marketshm/internal/model/enum"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, []enum.Market{enum.MarketBTCUSDPerp, enum.MarketETHUSDPerp}, cfg.Markets)
	assert.Equal(t, enum.Interval1m, cfg.Interval)
	assert.Equal(t, engine.ModeThread, cfg.EngineMode)
	assert.Equal(t, 200, cfg.File.Rows)
	assert.Equal(t, 100*time.Millisecond, cfg.File.Feed.Tick)
	assert.Equal(t, 5*time.Second, cfg.File.Engine.StopTimeout)

	series := cfg.Series(enum.MarketBTCUSDPerp)
	assert.Equal(t, "marketshm", series.Domain)
	assert.Equal(t, 200, series.Rows)
	assert.Equal(t, 200, cfg.Monitoring().Window)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "producer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
domain: desk
shm_dir: /tmp/desk
markets: [btcusd, SOLUSD_PERP]
interval: 5m
rows: 50
window: 30
engine:
  mode: process
feed:
  tick: 250ms
  base_price: 20000
redis:
  enabled: true
  channel: desk.rolls
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []enum.Market{enum.MarketBTCUSD, enum.MarketSOLUSDPerp}, cfg.Markets)
	assert.Equal(t, enum.Interval5m, cfg.Interval)
	assert.Equal(t, engine.ModeProcess, cfg.EngineMode)
	assert.Equal(t, 250*time.Millisecond, cfg.File.Feed.Tick)
	assert.Equal(t, 20000.0, cfg.File.Feed.BasePrice)
	assert.True(t, cfg.File.Redis.Enabled)
	assert.Equal(t, "desk.rolls", cfg.File.Redis.Channel)

	m := cfg.Monitoring()
	assert.Equal(t, "desk", m.Domain)
	assert.Equal(t, "/tmp/desk", m.Dir)
	assert.Equal(t, 30, m.Window)

	fc := cfg.Feed()
	assert.Equal(t, "desk", fc.Domain)
	assert.Equal(t, "/tmp/desk", fc.Dir)
	assert.Equal(t, 50, fc.Rows)
	assert.Equal(t, 250*time.Millisecond, fc.Tick)
	assert.Equal(t, 20000.0, fc.Generator.BasePrice)
	assert.Equal(t, "desk.rolls", fc.Channel)

	ec := cfg.Engine()
	assert.Equal(t, engine.ModeProcess, ec.Mode)
	assert.Equal(t, "/tmp/desk", ec.Dir)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("MARKETSHM_INTERVAL", "1h")
	t.Setenv("MARKETSHM_ENGINE_MODE", "process")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, enum.Interval1h, cfg.Interval)
	assert.Equal(t, engine.ModeProcess, cfg.EngineMode)
}

func TestLoadInvalid(t *testing.T) {
	testCases := []struct {
		desc string
		env  map[string]string
	}{
		{desc: "interval", env: map[string]string{"MARKETSHM_INTERVAL": "2m"}},
		{desc: "mode", env: map[string]string{"MARKETSHM_ENGINE_MODE": "fiber"}},
		{desc: "rows", env: map[string]string{"MARKETSHM_ROWS": "0"}},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
