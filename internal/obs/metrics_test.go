package obs

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketshm/internal/model/enum"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	now := time.Now()

	m.ObserveTrade(enum.MarketBTCUSD, now.Add(-2*time.Millisecond), now)
	m.ObserveTrade(enum.MarketBTCUSD, now.Add(-4*time.Millisecond), now)
	m.ObserveTrade(enum.MarketETHUSD, time.Time{}, now)
	m.IncCandleRoll()
	m.IncQueueDrop()
	m.IncPublishFailure()
	m.ObserveRefresh(time.Millisecond)

	s := m.Snapshot()
	assert.Equal(t, map[enum.Market]uint64{enum.MarketBTCUSD: 2, enum.MarketETHUSD: 1}, s.Trades)
	assert.Equal(t, uint64(1), s.CandleRolls)
	assert.Equal(t, uint64(1), s.QueueDrops)
	assert.Equal(t, uint64(1), s.PublishFailures)
	assert.Equal(t, uint64(2), s.TradeLatency.Count)
	assert.Equal(t, 2*time.Millisecond, s.TradeLatency.Min)
	assert.Equal(t, 4*time.Millisecond, s.TradeLatency.Max)
	assert.Equal(t, 3*time.Millisecond, s.TradeLatency.Avg)
	assert.Equal(t, uint64(1), s.RefreshLatency.Count)
}

func TestMetricsNil(t *testing.T) {
	var m *Metrics
	m.IncCandleRoll()
	m.ObserveTrade(enum.MarketBTCUSD, time.Now(), time.Now())
	assert.Equal(t, Snapshot{}, m.Snapshot())
}

func TestCollector(t *testing.T) {
	m := NewMetrics()
	m.ObserveTrade(enum.MarketSOLUSD, time.Time{}, time.Now())
	m.IncCandleRoll()

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewCollector("marketshm", m)))

	expected := `
# HELP marketshm_producer_candle_rolls_total Candle windows rolled forward.
# TYPE marketshm_producer_candle_rolls_total counter
marketshm_producer_candle_rolls_total 1
# HELP marketshm_producer_trades_total Trades applied to candle stores.
# TYPE marketshm_producer_trades_total counter
marketshm_producer_trades_total{market="SOLUSD"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"marketshm_producer_candle_rolls_total", "marketshm_producer_trades_total"))
}

func TestTimeIt(t *testing.T) {
	boom := errors.New("boom")
	assert.ErrorIs(t, TimeIt("fails", func() error { return boom }), boom)
	assert.NoError(t, TimeIt("ok", func() error { return nil }))
}
