package store

import (
	"marketshm/internal/errors"
	"marketshm/internal/model/enum"
	"marketshm/internal/shm"
	"marketshm/pkg/exception"
)

// Indicators holds the latest value of every enum.Stat, one row per stat.
type Indicators struct {
	cfg    SeriesConfig
	region *shm.Region
}

func CreateIndicators(cfg SeriesConfig) (*Indicators, error) {
	return openIndicators(cfg, shm.Create, nil)
}

func AttachIndicators(cfg SeriesConfig, opts ...shm.Option) (*Indicators, error) {
	return openIndicators(cfg, shm.Attach, opts)
}

func openIndicators(cfg SeriesConfig, open regionOpener, extra []shm.Option) (*Indicators, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	region, err := open(IndicatorName(cfg.Domain, cfg.Market, cfg.Interval), enum.StatCount, 1, dirOptions(cfg.Dir, extra...)...)
	if err != nil {
		return nil, errors.Wrap(err, "open indicators")
	}
	return &Indicators{cfg: cfg, region: region}, nil
}

func (s *Indicators) Name() string {
	return s.region.Name()
}

func (s *Indicators) GetLastStat(stat enum.Stat) (float64, error) {
	if !stat.IsAvailable() {
		return 0, errors.Wrapf(exception.ErrUnknownStat, "stat %d", stat)
	}
	return s.region.Get(int(stat), 0), nil
}

func (s *Indicators) SetLastStat(stat enum.Stat, v float64) error {
	if !s.region.Role().CanWrite() {
		return errors.Wrapf(exception.ErrWriteOnReader, "segment %s", s.region.Name())
	}
	if !stat.IsAvailable() {
		return errors.Wrapf(exception.ErrUnknownStat, "stat %d", stat)
	}
	return s.region.Set(int(stat), 0, v)
}

// SetStats writes every stat present in values.
func (s *Indicators) SetStats(values map[enum.Stat]float64) error {
	for stat, v := range values {
		if err := s.SetLastStat(stat, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *Indicators) Snapshot() map[enum.Stat]float64 {
	out := make(map[enum.Stat]float64, enum.StatCount)
	for _, stat := range enum.Stats() {
		out[stat] = s.region.Get(int(stat), 0)
	}
	return out
}

func (s *Indicators) Close() error {
	if s == nil {
		return nil
	}
	return s.region.Close()
}
