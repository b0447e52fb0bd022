package store

import (
	"time"

	"marketshm/internal/errors"
	"marketshm/internal/model/enum"
	"marketshm/internal/shm"
	"marketshm/pkg/exception"
)

// MonitoringRow is the state of one market across every sub-region.
type MonitoringRow struct {
	Market      enum.Market
	ClosePrices []float64
	Stats       map[enum.Stat]float64
	CandleTime  time.Time
	LastTrade   float64
	IsUpdated   bool
}

// Monitoring is the cross-market aggregate. Each logical field lives in its
// own segment with one row per configured market:
//
//	stats        markets x StatCount
//	close_prices markets x Window
//	candle_time  markets x 1
//	last_trade   markets x 1
//	is_updated   markets x 1
type Monitoring struct {
	cfg   MonitoringConfig
	index map[enum.Market]int

	stats      *shm.Region
	closes     *shm.Region
	candleTime *shm.Region
	lastTrade  *shm.Region
	updated    *shm.Region
}

func CreateMonitoring(cfg MonitoringConfig) (*Monitoring, error) {
	return openMonitoring(cfg, shm.Create, nil)
}

func AttachMonitoring(cfg MonitoringConfig, opts ...shm.Option) (*Monitoring, error) {
	return openMonitoring(cfg, shm.Attach, opts)
}

func openMonitoring(cfg MonitoringConfig, open regionOpener, extra []shm.Option) (*Monitoring, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Markets = append([]enum.Market(nil), cfg.Markets...)

	m := &Monitoring{
		cfg:   cfg,
		index: make(map[enum.Market]int, len(cfg.Markets)),
	}
	for i, market := range cfg.Markets {
		m.index[market] = i
	}

	rows := len(cfg.Markets)
	opts := dirOptions(cfg.Dir, extra...)
	for _, field := range MonitoringFields() {
		r, err := open(MonitoringName(cfg.Domain, field), rows, monitoringCols(cfg, field), opts...)
		if err != nil {
			_ = m.Close()
			return nil, errors.Wrapf(err, "open monitoring %s", field)
		}
		*m.slot(field) = r
	}

	return m, nil
}

func monitoringCols(cfg MonitoringConfig, field MonitoringField) int {
	switch field {
	case MonitoringStats:
		return enum.StatCount
	case MonitoringClosePrices:
		return cfg.Window
	default:
		return 1
	}
}

func (m *Monitoring) slot(field MonitoringField) **shm.Region {
	switch field {
	case MonitoringStats:
		return &m.stats
	case MonitoringClosePrices:
		return &m.closes
	case MonitoringCandleTime:
		return &m.candleTime
	case MonitoringLastTrade:
		return &m.lastTrade
	default:
		return &m.updated
	}
}

// Markets returns the configured markets in row order.
func (m *Monitoring) Markets() []enum.Market {
	return append([]enum.Market(nil), m.cfg.Markets...)
}

// Window returns the close price history width.
func (m *Monitoring) Window() int {
	return m.cfg.Window
}

func (m *Monitoring) row(market enum.Market) (int, error) {
	i, ok := m.index[market]
	if !ok {
		return 0, errors.Wrapf(exception.ErrUnknownMarket, "market %s", market)
	}
	return i, nil
}

// checkWrite rejects a reader handle before any argument is looked at.
func (m *Monitoring) checkWrite() error {
	if m == nil || m.stats == nil {
		return exception.ErrNilInstance
	}
	if !m.stats.Role().CanWrite() {
		return errors.Wrapf(exception.ErrWriteOnReader, "monitoring %s", m.cfg.Domain)
	}
	return nil
}

func (m *Monitoring) SetStat(market enum.Market, stat enum.Stat, v float64) error {
	if err := m.checkWrite(); err != nil {
		return err
	}
	i, err := m.row(market)
	if err != nil {
		return err
	}
	if !stat.IsAvailable() {
		return errors.Wrapf(exception.ErrUnknownStat, "stat %d", stat)
	}
	return m.stats.Set(i, int(stat), v)
}

func (m *Monitoring) GetLastStat(market enum.Market, stat enum.Stat) (float64, error) {
	i, err := m.row(market)
	if err != nil {
		return 0, err
	}
	if !stat.IsAvailable() {
		return 0, errors.Wrapf(exception.ErrUnknownStat, "stat %d", stat)
	}
	return m.stats.Get(i, int(stat)), nil
}

// SetClosePrices overwrites the close window of market. The window must be
// exactly Window long.
func (m *Monitoring) SetClosePrices(market enum.Market, window []float64) error {
	if err := m.checkWrite(); err != nil {
		return err
	}
	i, err := m.row(market)
	if err != nil {
		return err
	}
	if len(window) != m.cfg.Window {
		return errors.Wrapf(exception.ErrWindowLength, "market %s got %d, want %d", market, len(window), m.cfg.Window)
	}
	return m.closes.SetRow(i, window)
}

func (m *Monitoring) ClosePrices(market enum.Market) ([]float64, error) {
	i, err := m.row(market)
	if err != nil {
		return nil, err
	}
	return m.closes.Row(i), nil
}

// SetCurrentCandleTime records the open time of the candle being built.
func (m *Monitoring) SetCurrentCandleTime(market enum.Market, t time.Time) error {
	if err := m.checkWrite(); err != nil {
		return err
	}
	i, err := m.row(market)
	if err != nil {
		return err
	}
	return m.candleTime.Set(i, 0, unixSeconds(t))
}

func (m *Monitoring) CurrentCandleTime(market enum.Market) (time.Time, error) {
	i, err := m.row(market)
	if err != nil {
		return time.Time{}, err
	}
	return fromUnixSeconds(m.candleTime.Get(i, 0)), nil
}

func (m *Monitoring) SetLastTrade(market enum.Market, price float64) error {
	if err := m.checkWrite(); err != nil {
		return err
	}
	i, err := m.row(market)
	if err != nil {
		return err
	}
	return m.lastTrade.Set(i, 0, price)
}

func (m *Monitoring) LastTrade(market enum.Market) (float64, error) {
	i, err := m.row(market)
	if err != nil {
		return 0, err
	}
	return m.lastTrade.Get(i, 0), nil
}

func (m *Monitoring) SetIsUpdated(market enum.Market) error {
	return m.setFlag(market, 1)
}

func (m *Monitoring) ClearIsUpdated(market enum.Market) error {
	return m.setFlag(market, 0)
}

func (m *Monitoring) IsUpdated(market enum.Market) (bool, error) {
	i, err := m.row(market)
	if err != nil {
		return false, err
	}
	return m.updated.Get(i, 0) != 0, nil
}

func (m *Monitoring) setFlag(market enum.Market, v float64) error {
	if err := m.checkWrite(); err != nil {
		return err
	}
	i, err := m.row(market)
	if err != nil {
		return err
	}
	return m.updated.Set(i, 0, v)
}

// Snapshot copies every field of market. Fields are read one after another
// without synchronization, so a concurrent update may be partially visible.
func (m *Monitoring) Snapshot(market enum.Market) (MonitoringRow, error) {
	i, err := m.row(market)
	if err != nil {
		return MonitoringRow{}, err
	}

	stats := make(map[enum.Stat]float64, enum.StatCount)
	for _, stat := range enum.Stats() {
		stats[stat] = m.stats.Get(i, int(stat))
	}

	return MonitoringRow{
		Market:      market,
		ClosePrices: m.closes.Row(i),
		Stats:       stats,
		CandleTime:  fromUnixSeconds(m.candleTime.Get(i, 0)),
		LastTrade:   m.lastTrade.Get(i, 0),
		IsUpdated:   m.updated.Get(i, 0) != 0,
	}, nil
}

// Close closes every opened sub-region and returns the first error.
func (m *Monitoring) Close() error {
	if m == nil {
		return nil
	}
	var firstErr error
	for _, field := range MonitoringFields() {
		r := *m.slot(field)
		if r == nil {
			continue
		}
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
