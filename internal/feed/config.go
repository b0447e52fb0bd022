package feed

import (
	"fmt"
	"time"

	"marketshm/internal/model/enum"
	"marketshm/internal/store"
)

// WorkerName registers the producer worker for process mode engines.
const WorkerName = "feed"

// Config describes the stores the producer owns and how it feeds them.
type Config struct {
	Domain   string
	Dir      string
	Markets  []enum.Market
	Interval enum.Interval
	Rows     int
	Window   int

	Tick      time.Duration
	QueueSize int
	Generator GeneratorConfig

	// Channel receives a RollNotice per closed candle when a Notifier is set.
	Channel string
}

func (c Config) withDefaults() Config {
	if c.Domain == "" {
		c.Domain = store.DefaultDomain
	}
	if c.Rows <= 0 {
		c.Rows = store.DefaultCandleRows
	}
	if c.Window <= 0 {
		c.Window = store.DefaultWindow
	}
	if c.Tick <= 0 {
		c.Tick = 100 * time.Millisecond
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 1024
	}
	c.Generator.Markets = c.Markets
	return c
}

func (c Config) Validate() error {
	if len(c.Markets) == 0 {
		return fmt.Errorf("invalid feed config: markets must not be empty")
	}
	if !c.Interval.IsAvailable() {
		return fmt.Errorf("invalid feed config: unknown interval %q", c.Interval)
	}
	if c.Generator.BasePrice <= 0 {
		return fmt.Errorf("invalid feed config: base price must be > 0")
	}
	return nil
}

func (c Config) series(market enum.Market) store.SeriesConfig {
	return store.SeriesConfig{
		Domain:   c.Domain,
		Market:   market,
		Interval: c.Interval,
		Rows:     c.Rows,
		Dir:      c.Dir,
	}
}

func (c Config) monitoring() store.MonitoringConfig {
	return store.MonitoringConfig{
		Domain:  c.Domain,
		Markets: c.Markets,
		Window:  c.Window,
		Dir:     c.Dir,
	}
}

// TradeCounterName is the shared counter of trades applied by the producer.
func TradeCounterName(domain string) string {
	if domain == "" {
		domain = store.DefaultDomain
	}
	return domain + "_producer_trades"
}
