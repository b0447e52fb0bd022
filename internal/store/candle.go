package store

import (
	"time"

	"marketshm/internal/errors"
	"marketshm/internal/model"
	"marketshm/internal/model/enum"
	"marketshm/internal/shm"
	"marketshm/pkg/exception"
)

const newest = -1

// Candles is the rolling candle window of one market and interval. Row 0 is
// the oldest candle, the last row the one being built. It embeds the
// heartbeat of its producer.
type Candles struct {
	cfg       SeriesConfig
	region    *shm.Region
	heartbeat *Heartbeat
}

// CreateCandles creates the candle and heartbeat segments as Owner.
func CreateCandles(cfg SeriesConfig) (*Candles, error) {
	return openCandles(cfg, shm.Create, CreateHeartbeat, nil)
}

// AttachCandles attaches the candle and heartbeat segments as Reader, or as
// Peer with shm.AsPeer.
func AttachCandles(cfg SeriesConfig, opts ...shm.Option) (*Candles, error) {
	return openCandles(cfg, shm.Attach, AttachHeartbeat, opts)
}

type (
	regionOpener    func(name string, rows, cols int, opts ...shm.Option) (*shm.Region, error)
	heartbeatOpener func(name string, opts ...shm.Option) (*Heartbeat, error)
)

func openCandles(cfg SeriesConfig, open regionOpener, openHeartbeat heartbeatOpener, extra []shm.Option) (*Candles, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := dirOptions(cfg.Dir, extra...)
	region, err := open(CandleName(cfg.Domain, cfg.Market, cfg.Interval), cfg.Rows, enum.CandleFieldCount, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "open candles")
	}

	hb, err := openHeartbeat(HeartbeatName(cfg.Domain, cfg.Market, cfg.Interval), opts...)
	if err != nil {
		_ = region.Close()
		return nil, err
	}

	return &Candles{cfg: cfg, region: region, heartbeat: hb}, nil
}

func (c *Candles) Config() SeriesConfig {
	return c.cfg
}

func (c *Candles) Name() string {
	return c.region.Name()
}

func (c *Candles) Rows() int {
	return c.region.Rows()
}

func (c *Candles) Heartbeat() *Heartbeat {
	return c.heartbeat
}

// Health is the read-only view of the heartbeat.
func (c *Candles) Health() HeartbeatView {
	return c.heartbeat
}

// Field returns one column over span.
func (c *Candles) Field(field enum.CandleField, span shm.Span) ([]float64, error) {
	if !field.IsAvailable() {
		return nil, errors.Wrapf(exception.ErrUnknownField, "field %d", field)
	}
	return c.region.Column(int(field), span), nil
}

func (c *Candles) Closes(span shm.Span) []float64 {
	return c.region.Column(int(enum.CandleClose), span)
}

func (c *Candles) Opens(span shm.Span) []float64 {
	return c.region.Column(int(enum.CandleOpen), span)
}

func (c *Candles) Highs(span shm.Span) []float64 {
	return c.region.Column(int(enum.CandleHigh), span)
}

func (c *Candles) Lows(span shm.Span) []float64 {
	return c.region.Column(int(enum.CandleLow), span)
}

func (c *Candles) Volumes(span shm.Span) []float64 {
	return c.region.Column(int(enum.CandleVolume), span)
}

func (c *Candles) Times(span shm.Span) []float64 {
	return c.region.Column(int(enum.CandleTime), span)
}

func (c *Candles) Prices(span shm.Span) []float64 {
	return c.region.Column(int(enum.CandlePrice), span)
}

// Last returns the candle being built.
func (c *Candles) Last() model.Candle {
	return model.CandleFromRow(c.region.Row(newest))
}

func (c *Candles) Candles(span shm.Span) []model.Candle {
	rows := c.region.Extract(span)
	out := make([]model.Candle, len(rows))
	for i, row := range rows {
		out[i] = model.CandleFromRow(row)
	}
	return out
}

// LastTrade returns the last trade price of the newest candle.
func (c *Candles) LastTrade() float64 {
	return c.region.Get(newest, int(enum.CandlePrice))
}

func (c *Candles) LastTradeTime() time.Time {
	return fromUnixSeconds(c.region.Get(newest, int(enum.CandleTime)))
}

func (c *Candles) SetClose(v float64) error {
	return c.set(enum.CandleClose, v)
}

func (c *Candles) SetOpen(v float64) error {
	return c.set(enum.CandleOpen, v)
}

func (c *Candles) SetHigh(v float64) error {
	return c.set(enum.CandleHigh, v)
}

func (c *Candles) SetLow(v float64) error {
	return c.set(enum.CandleLow, v)
}

func (c *Candles) SetVolume(v float64) error {
	return c.set(enum.CandleVolume, v)
}

func (c *Candles) SetTime(t time.Time) error {
	return c.set(enum.CandleTime, unixSeconds(t))
}

// SetLastTrade writes the last trade price and time into the newest row.
func (c *Candles) SetLastTrade(price float64, t time.Time) error {
	if err := c.set(enum.CandlePrice, price); err != nil {
		return err
	}
	return c.SetTime(t)
}

// SetLast overwrites the newest row.
func (c *Candles) SetLast(candle model.Candle) error {
	return c.region.SetRow(newest, candle.Row())
}

// ApplyTrade folds a trade into the newest candle. The first trade of a
// fresh candle opens it.
func (c *Candles) ApplyTrade(price, size float64, t time.Time) error {
	candle := c.Last()
	if candle.Open == 0 {
		candle.Open = price
		candle.High = price
		candle.Low = price
	}
	candle.High = max(candle.High, price)
	candle.Low = min(candle.Low, price)
	candle.Close = price
	candle.Volume += size
	candle.Price = price
	candle.Time = unixSeconds(t)
	return c.SetLast(candle)
}

// RollNewCandle drops the oldest candle and starts an all-zero newest one.
// The row count never changes.
func (c *Candles) RollNewCandle() error {
	return c.region.Roll()
}

// Close closes the candle and heartbeat segments.
func (c *Candles) Close() error {
	if c == nil {
		return nil
	}
	err := c.region.Close()
	if hbErr := c.heartbeat.Close(); err == nil {
		err = hbErr
	}
	return err
}

func (c *Candles) set(field enum.CandleField, v float64) error {
	return c.region.Set(newest, int(field), v)
}
