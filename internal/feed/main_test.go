package feed

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketshm/internal/engine"
	"marketshm/internal/model/enum"
	"marketshm/internal/shm"
	"marketshm/internal/store"
)

func TestMain(m *testing.M) {
	// the child rebuilds the same config, with its shm dir from the env
	engine.Register(WorkerName, func() engine.Worker {
		return NewWorker(processConfig(os.Getenv(shm.EnvDir)))
	})
	engine.RunChild()

	os.Exit(m.Run())
}

func processConfig(dir string) Config {
	return Config{
		Domain:   "feedproc",
		Dir:      dir,
		Markets:  []enum.Market{enum.MarketBTCUSDPerp},
		Interval: enum.Interval1m,
		Rows:     30,
		Window:   10,
		Tick:     5 * time.Millisecond,
		Generator: GeneratorConfig{
			BasePrice:  100,
			Volatility: 0.001,
			Seed:       7,
		},
	}
}

func TestWorkerRunsInProcessEngine(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(shm.EnvDir, dir)

	cfg := processConfig(dir)
	w := NewWorker(cfg)

	e, err := engine.New(w, engine.Config{Mode: engine.ModeProcess, Dir: dir})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, e.Start(ctx))

	require.Eventually(t, func() bool { return w.Trades() > 0 }, 5*time.Second, 5*time.Millisecond)

	mon, err := store.OpenMonitoringView(cfg.monitoring())
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		last, err := mon.LastTrade(enum.MarketBTCUSDPerp)
		return err == nil && last > 0
	}, 5*time.Second, 5*time.Millisecond)
	ok, err := mon.IsUpdated(enum.MarketBTCUSDPerp)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, mon.Close())

	require.NoError(t, e.Stop(ctx))
	assert.NoError(t, e.Err())
	assert.Equal(t, engine.StateStopped, e.State())

	// the child's count survives in the controller after its segment is gone
	assert.Positive(t, w.Trades())
	assert.False(t, shm.Exists(TradeCounterName(cfg.Domain), shm.WithDir(dir)))
	assert.False(t, shm.Exists(store.CandleName(cfg.Domain, enum.MarketBTCUSDPerp, cfg.Interval), shm.WithDir(dir)))
}
