package obs

import (
	"sync/atomic"
	"time"

	"marketshm/internal/model/enum"
)

// Metrics collects lightweight producer counters and latency stats.
type Metrics struct {
	trades          [enum.MarketLimit]uint64
	candleRolls     uint64
	queueDrops      uint64
	queueClosed     uint64
	publishFailures uint64
	storeErrors     uint64

	tradeLatency   LatencyStats
	refreshLatency LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Sum   time.Duration
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	Trades          map[enum.Market]uint64
	CandleRolls     uint64
	QueueDrops      uint64
	QueueClosed     uint64
	PublishFailures uint64
	StoreErrors     uint64
	TradeLatency    LatencySnapshot
	RefreshLatency  LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// ObserveTrade counts an applied trade and the delay between the trade time
// and now.
func (m *Metrics) ObserveTrade(market enum.Market, tradeTime, now time.Time) {
	if m == nil {
		return
	}
	if market.IsAvailable() {
		atomic.AddUint64(&m.trades[market], 1)
	}
	if !tradeTime.IsZero() {
		m.tradeLatency.Observe(now.Sub(tradeTime))
	}
}

// IncCandleRoll records a candle roll.
func (m *Metrics) IncCandleRoll() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.candleRolls, 1)
}

// IncQueueDrop records a queue drop.
func (m *Metrics) IncQueueDrop() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueDrops, 1)
}

// IncQueueClosed records a closed-queue publish attempt.
func (m *Metrics) IncQueueClosed() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueClosed, 1)
}

// IncPublishFailure records a failed roll notification.
func (m *Metrics) IncPublishFailure() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.publishFailures, 1)
}

// IncStoreError records a failed shared memory write.
func (m *Metrics) IncStoreError() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.storeErrors, 1)
}

// ObserveRefresh measures an indicator and monitoring refresh.
func (m *Metrics) ObserveRefresh(d time.Duration) {
	if m == nil {
		return
	}
	m.refreshLatency.Observe(d)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	trades := make(map[enum.Market]uint64)
	for i := range m.trades {
		if v := atomic.LoadUint64(&m.trades[i]); v > 0 {
			trades[enum.Market(i)] = v
		}
	}
	return Snapshot{
		Trades:          trades,
		CandleRolls:     atomic.LoadUint64(&m.candleRolls),
		QueueDrops:      atomic.LoadUint64(&m.queueDrops),
		QueueClosed:     atomic.LoadUint64(&m.queueClosed),
		PublishFailures: atomic.LoadUint64(&m.publishFailures),
		StoreErrors:     atomic.LoadUint64(&m.storeErrors),
		TradeLatency:    m.tradeLatency.Snapshot(),
		RefreshLatency:  m.refreshLatency.Snapshot(),
	}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		cur := atomic.LoadUint64(&l.min)
		if cur != 0 && nanos >= cur {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, cur, nanos) {
			break
		}
	}

	for {
		cur := atomic.LoadUint64(&l.max)
		if nanos <= cur {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, cur, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	return LatencySnapshot{
		Count: count,
		Sum:   time.Duration(sum),
		Min:   time.Duration(atomic.LoadUint64(&l.min)),
		Max:   time.Duration(atomic.LoadUint64(&l.max)),
		Avg:   time.Duration(sum / count),
	}
}
