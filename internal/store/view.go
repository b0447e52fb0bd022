package store

import (
	"io"
	"time"

	"marketshm/internal/model"
	"marketshm/internal/model/enum"
	"marketshm/internal/shm"
)

// Read-only views over the stores. Reader code depends on these so the
// mutators are not reachable at compile time; the concrete stores still
// reject writes from a reader handle at runtime.

// OpenCandleView attaches the candle and heartbeat segments of cfg as Reader.
func OpenCandleView(cfg SeriesConfig) (CandleView, error) {
	v, err := AttachCandles(cfg)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// OpenIndicatorView attaches the indicator segment of cfg as Reader.
func OpenIndicatorView(cfg SeriesConfig) (IndicatorView, error) {
	v, err := AttachIndicators(cfg)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// OpenMonitoringView attaches every monitoring sub-region as Reader.
func OpenMonitoringView(cfg MonitoringConfig) (MonitoringView, error) {
	v, err := AttachMonitoring(cfg)
	if err != nil {
		return nil, err
	}
	return v, nil
}

type HeartbeatView interface {
	Name() string
	IsUpdated() bool
	Time() time.Time
	Stale(now time.Time, maxAge time.Duration) bool
}

type CandleView interface {
	Name() string
	Rows() int
	Field(field enum.CandleField, span shm.Span) ([]float64, error)
	Closes(span shm.Span) []float64
	Opens(span shm.Span) []float64
	Highs(span shm.Span) []float64
	Lows(span shm.Span) []float64
	Volumes(span shm.Span) []float64
	Times(span shm.Span) []float64
	Prices(span shm.Span) []float64
	Last() model.Candle
	Candles(span shm.Span) []model.Candle
	LastTrade() float64
	LastTradeTime() time.Time
	Health() HeartbeatView
	io.Closer
}

type IndicatorView interface {
	Name() string
	GetLastStat(stat enum.Stat) (float64, error)
	Snapshot() map[enum.Stat]float64
	io.Closer
}

type MonitoringView interface {
	Markets() []enum.Market
	GetLastStat(market enum.Market, stat enum.Stat) (float64, error)
	ClosePrices(market enum.Market) ([]float64, error)
	CurrentCandleTime(market enum.Market) (time.Time, error)
	LastTrade(market enum.Market) (float64, error)
	IsUpdated(market enum.Market) (bool, error)
	Window() int
	Snapshot(market enum.Market) (MonitoringRow, error)
	io.Closer
}

var (
	_ HeartbeatView  = (*Heartbeat)(nil)
	_ CandleView     = (*Candles)(nil)
	_ IndicatorView  = (*Indicators)(nil)
	_ MonitoringView = (*Monitoring)(nil)
)
