package store

import (
	"fmt"
	"time"

	"marketshm/internal/model/enum"
	"marketshm/internal/shm"
	"marketshm/pkg/exception"
)

const (
	DefaultCandleRows = 200
	DefaultWindow     = 200
)

// SeriesConfig addresses the stores of one market and interval. Producer and
// reader must use identical values.
type SeriesConfig struct {
	Domain   string
	Market   enum.Market
	Interval enum.Interval
	// Rows is the candle window length.
	Rows int
	// Dir overrides the segment directory.
	Dir string
}

func (c SeriesConfig) withDefaults() SeriesConfig {
	if c.Domain == "" {
		c.Domain = DefaultDomain
	}
	if c.Rows <= 0 {
		c.Rows = DefaultCandleRows
	}
	return c
}

// Validate checks the config after defaults are applied.
func (c SeriesConfig) Validate() error {
	if !c.Market.IsAvailable() {
		return fmt.Errorf("invalid series config: market %d: %w", c.Market, exception.ErrUnknownMarket)
	}
	if !c.Interval.IsAvailable() {
		return fmt.Errorf("invalid series config: unknown interval %q", c.Interval)
	}
	if c.Rows <= 0 {
		return fmt.Errorf("invalid series config: rows must be > 0")
	}
	return nil
}

// MonitoringConfig lists the markets of the aggregate. The slice order is
// the row order of every sub-region.
type MonitoringConfig struct {
	Domain  string
	Markets []enum.Market
	// Window is the close price history width per market.
	Window int
	Dir    string
}

func (c MonitoringConfig) withDefaults() MonitoringConfig {
	if c.Domain == "" {
		c.Domain = DefaultDomain
	}
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	return c
}

func (c MonitoringConfig) Validate() error {
	if len(c.Markets) == 0 {
		return fmt.Errorf("invalid monitoring config: %w", exception.ErrEmptyMarkets)
	}
	seen := make(map[enum.Market]struct{}, len(c.Markets))
	for _, m := range c.Markets {
		if !m.IsAvailable() {
			return fmt.Errorf("invalid monitoring config: market %d: %w", m, exception.ErrUnknownMarket)
		}
		if _, ok := seen[m]; ok {
			return fmt.Errorf("invalid monitoring config: duplicated market %s", m)
		}
		seen[m] = struct{}{}
	}
	if c.Window <= 0 {
		return fmt.Errorf("invalid monitoring config: window must be > 0")
	}
	return nil
}

func dirOptions(dir string, extra ...shm.Option) []shm.Option {
	opts := make([]shm.Option, 0, len(extra)+1)
	if dir != "" {
		opts = append(opts, shm.WithDir(dir))
	}
	return append(opts, extra...)
}

func unixSeconds(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.UnixNano()) / 1e9
}

func fromUnixSeconds(v float64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	sec := int64(v)
	nsec := int64((v - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}
