package obs

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exports a Metrics snapshot on every scrape.
type Collector struct {
	metrics *Metrics

	trades          *prometheus.Desc
	candleRolls     *prometheus.Desc
	queueDrops      *prometheus.Desc
	queueClosed     *prometheus.Desc
	publishFailures *prometheus.Desc
	storeErrors     *prometheus.Desc
	tradeLatency    *prometheus.Desc
	refreshLatency  *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector builds a collector whose metric names start with namespace.
func NewCollector(namespace string, m *Metrics) *Collector {
	name := func(s string) string {
		return prometheus.BuildFQName(namespace, "producer", s)
	}
	return &Collector{
		metrics:         m,
		trades:          prometheus.NewDesc(name("trades_total"), "Trades applied to candle stores.", []string{"market"}, nil),
		candleRolls:     prometheus.NewDesc(name("candle_rolls_total"), "Candle windows rolled forward.", nil, nil),
		queueDrops:      prometheus.NewDesc(name("queue_drops_total"), "Trades dropped on a full queue.", nil, nil),
		queueClosed:     prometheus.NewDesc(name("queue_closed_total"), "Trades published to a closed queue.", nil, nil),
		publishFailures: prometheus.NewDesc(name("publish_failures_total"), "Failed roll notifications.", nil, nil),
		storeErrors:     prometheus.NewDesc(name("store_errors_total"), "Failed shared memory writes.", nil, nil),
		tradeLatency:    prometheus.NewDesc(name("trade_latency_seconds"), "Delay from trade time to store update.", nil, nil),
		refreshLatency:  prometheus.NewDesc(name("refresh_latency_seconds"), "Indicator and monitoring refresh time.", nil, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.trades
	ch <- c.candleRolls
	ch <- c.queueDrops
	ch <- c.queueClosed
	ch <- c.publishFailures
	ch <- c.storeErrors
	ch <- c.tradeLatency
	ch <- c.refreshLatency
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.metrics.Snapshot()

	for market, n := range s.Trades {
		ch <- prometheus.MustNewConstMetric(c.trades, prometheus.CounterValue, float64(n), market.String())
	}
	ch <- prometheus.MustNewConstMetric(c.candleRolls, prometheus.CounterValue, float64(s.CandleRolls))
	ch <- prometheus.MustNewConstMetric(c.queueDrops, prometheus.CounterValue, float64(s.QueueDrops))
	ch <- prometheus.MustNewConstMetric(c.queueClosed, prometheus.CounterValue, float64(s.QueueClosed))
	ch <- prometheus.MustNewConstMetric(c.publishFailures, prometheus.CounterValue, float64(s.PublishFailures))
	ch <- prometheus.MustNewConstMetric(c.storeErrors, prometheus.CounterValue, float64(s.StoreErrors))
	ch <- latencySummary(c.tradeLatency, s.TradeLatency)
	ch <- latencySummary(c.refreshLatency, s.RefreshLatency)
}

func latencySummary(desc *prometheus.Desc, l LatencySnapshot) prometheus.Metric {
	return prometheus.MustNewConstSummary(desc, l.Count, l.Sum.Seconds(), nil)
}
