package feed

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/yanun0323/logs"

	"marketshm/internal/bus"
	"marketshm/internal/engine"
	"marketshm/internal/errors"
	"marketshm/internal/model"
	"marketshm/internal/model/enum"
	"marketshm/internal/obs"
	"marketshm/internal/shm"
	"marketshm/internal/store"
	"marketshm/pkg/exception"
)

// Notifier delivers out-of-band messages, see pubsub.Publisher.
type Notifier interface {
	Publish(ctx context.Context, channel string, message any) error
}

// RollNotice announces a closed candle.
type RollNotice struct {
	ID       string       `json:"id"`
	Market   string       `json:"market"`
	Interval string       `json:"interval"`
	OpenTime time.Time    `json:"open_time"`
	Candle   model.Candle `json:"candle"`
}

// Worker is the producer engine worker. Prepare creates every store as
// Owner in the controller; Execute attaches them as Peer, so the same worker
// runs in thread and process mode.
type Worker struct {
	cfg      Config
	notifier Notifier
	metrics  *obs.Metrics

	owned  []io.Closer
	trades *engine.Counter
	total  uint64
}

type WorkerOption func(*Worker)

func WithNotifier(n Notifier) WorkerOption {
	return func(w *Worker) {
		w.notifier = n
	}
}

func WithMetrics(m *obs.Metrics) WorkerOption {
	return func(w *Worker) {
		w.metrics = m
	}
}

func NewWorker(cfg Config, opts ...WorkerOption) *Worker {
	w := &Worker{cfg: cfg.withDefaults()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

var _ engine.Worker = (*Worker)(nil)

func (w *Worker) Name() string {
	return WorkerName
}

// Trades returns the number of trades applied, read from the shared counter
// while running and frozen by Postpare.
func (w *Worker) Trades() uint64 {
	if w.trades != nil {
		return w.trades.Load()
	}
	return w.total
}

func (w *Worker) Prepare(context.Context) error {
	if err := w.cfg.Validate(); err != nil {
		return err
	}

	for _, market := range w.cfg.Markets {
		candles, err := store.CreateCandles(w.cfg.series(market))
		if err != nil {
			w.closeOwned()
			return err
		}
		w.owned = append(w.owned, candles)

		indicators, err := store.CreateIndicators(w.cfg.series(market))
		if err != nil {
			w.closeOwned()
			return err
		}
		w.owned = append(w.owned, indicators)
	}

	monitoring, err := store.CreateMonitoring(w.cfg.monitoring())
	if err != nil {
		w.closeOwned()
		return err
	}
	w.owned = append(w.owned, monitoring)

	trades, err := engine.NewCounter(TradeCounterName(w.cfg.Domain), w.dirOptions()...)
	if err != nil {
		w.closeOwned()
		return err
	}
	w.trades = trades
	w.owned = append(w.owned, trades)

	logs.Infof("feed: %d markets ready, interval %s, rows %d", len(w.cfg.Markets), w.cfg.Interval, w.cfg.Rows)
	return nil
}

func (w *Worker) Execute(ctx context.Context) error {
	s, err := w.attach()
	if err != nil {
		return err
	}
	defer s.close()

	gen, err := NewGenerator(w.cfg.Generator)
	if err != nil {
		return err
	}

	queue := bus.NewQueue[model.Trade](w.cfg.QueueSize)
	go w.generate(ctx, gen, queue)

	queue.Run(ctx, func(trade model.Trade) {
		if err := s.apply(ctx, trade); err != nil {
			w.metrics.IncStoreError()
			logs.Errorf("feed: apply %s trade, err: %+v", trade.Market, err)
		}
	})
	return ctx.Err()
}

func (w *Worker) Postpare(context.Context) error {
	if w.trades != nil {
		w.total = w.trades.Load()
	}
	w.trades = nil

	s := w.metrics.Snapshot()
	logs.Infof("feed: stopped after %d trades, rolls=%d drops=%d store_errors=%d",
		w.total, s.CandleRolls, s.QueueDrops, s.StoreErrors)
	return w.closeOwned()
}

func (w *Worker) generate(ctx context.Context, gen *Generator, queue *bus.Queue[model.Trade]) {
	defer queue.Close()

	ticker := time.NewTicker(w.cfg.Tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for range w.cfg.Markets {
				err := queue.TryPublish(gen.Next(now.UTC()))
				switch {
				case errors.Is(err, bus.ErrQueueFull):
					w.metrics.IncQueueDrop()
				case errors.Is(err, bus.ErrQueueClosed):
					w.metrics.IncQueueClosed()
					return
				}
			}
		}
	}
}

func (w *Worker) dirOptions(extra ...shm.Option) []shm.Option {
	if w.cfg.Dir != "" {
		extra = append(extra, shm.WithDir(w.cfg.Dir))
	}
	return extra
}

func (w *Worker) closeOwned() error {
	var firstErr error
	for i := len(w.owned) - 1; i >= 0; i-- {
		if err := w.owned[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	w.owned = nil
	return firstErr
}

// session holds the Peer handles used by Execute.
type session struct {
	w          *Worker
	candles    map[enum.Market]*store.Candles
	indicators map[enum.Market]*store.Indicators
	monitoring *store.Monitoring
	trades     *engine.Counter
	buckets    map[enum.Market]time.Time
}

func (w *Worker) attach() (*session, error) {
	s := &session{
		w:          w,
		candles:    make(map[enum.Market]*store.Candles, len(w.cfg.Markets)),
		indicators: make(map[enum.Market]*store.Indicators, len(w.cfg.Markets)),
		buckets:    make(map[enum.Market]time.Time, len(w.cfg.Markets)),
	}

	for _, market := range w.cfg.Markets {
		c, err := store.AttachCandles(w.cfg.series(market), shm.AsPeer())
		if err != nil {
			s.close()
			return nil, err
		}
		s.candles[market] = c

		ind, err := store.AttachIndicators(w.cfg.series(market), shm.AsPeer())
		if err != nil {
			s.close()
			return nil, err
		}
		s.indicators[market] = ind
	}

	m, err := store.AttachMonitoring(w.cfg.monitoring(), shm.AsPeer())
	if err != nil {
		s.close()
		return nil, err
	}
	s.monitoring = m

	trades, err := engine.AttachCounter(TradeCounterName(w.cfg.Domain), w.dirOptions()...)
	if err != nil {
		s.close()
		return nil, err
	}
	s.trades = trades

	return s, nil
}

func (s *session) close() {
	for _, c := range s.candles {
		_ = c.Close()
	}
	for _, ind := range s.indicators {
		_ = ind.Close()
	}
	_ = s.monitoring.Close()
	_ = s.trades.Close()
}

// apply folds one trade into the candle window, rolling it on a bucket
// boundary, then refreshes indicators, monitoring and the heartbeat.
func (s *session) apply(ctx context.Context, trade model.Trade) error {
	now := time.Now().UTC()
	trade, err := Normalize(trade, now)
	if err != nil {
		return err
	}

	candles, ok := s.candles[trade.Market]
	if !ok {
		return errors.Wrapf(exception.ErrUnknownMarket, "market %s is not fed", trade.Market)
	}

	bucket := s.w.cfg.Interval.BucketStart(trade.Time)
	current := s.buckets[trade.Market]
	switch {
	case current.IsZero():
		s.buckets[trade.Market] = bucket
	case bucket.After(current):
		closed := candles.Last()
		if err := candles.RollNewCandle(); err != nil {
			return err
		}
		s.buckets[trade.Market] = bucket
		s.w.metrics.IncCandleRoll()
		s.notify(ctx, trade.Market, current, closed)
	}

	if err := candles.ApplyTrade(trade.Price, trade.Size, trade.Time); err != nil {
		return err
	}
	s.w.metrics.ObserveTrade(trade.Market, trade.Time, now)

	start := time.Now()
	if err := s.refresh(trade, candles); err != nil {
		return err
	}
	s.w.metrics.ObserveRefresh(time.Since(start))

	if err := candles.Heartbeat().Touch(now); err != nil {
		return err
	}
	_, err = s.trades.Inc()
	return err
}

func (s *session) refresh(trade model.Trade, candles *store.Candles) error {
	market := trade.Market
	closes := candles.Closes(shm.All())

	stats := indicatorStats(closes)
	if err := s.indicators[market].SetStats(stats); err != nil {
		return err
	}
	for stat, v := range stats {
		if err := s.monitoring.SetStat(market, stat, v); err != nil {
			return err
		}
	}

	if err := s.monitoring.SetClosePrices(market, fitWindow(closes, s.monitoring.Window())); err != nil {
		return err
	}
	if err := s.monitoring.SetCurrentCandleTime(market, s.buckets[market]); err != nil {
		return err
	}
	if err := s.monitoring.SetLastTrade(market, trade.Price); err != nil {
		return err
	}
	return s.monitoring.SetIsUpdated(market)
}

func (s *session) notify(ctx context.Context, market enum.Market, openTime time.Time, closed model.Candle) {
	if s.w.notifier == nil || s.w.cfg.Channel == "" {
		return
	}
	notice := RollNotice{
		ID:       uuid.NewString(),
		Market:   market.String(),
		Interval: s.w.cfg.Interval.String(),
		OpenTime: openTime,
		Candle:   closed,
	}
	if err := s.w.notifier.Publish(ctx, s.w.cfg.Channel, notice); err != nil {
		s.w.metrics.IncPublishFailure()
		logs.Errorf("feed: publish roll of %s, err: %+v", market, err)
	}
}

// fitWindow returns the newest n closes, left padded with zeros when the
// candle window is shorter.
func fitWindow(closes []float64, n int) []float64 {
	if len(closes) >= n {
		return closes[len(closes)-n:]
	}
	out := make([]float64, n)
	copy(out[n-len(closes):], closes)
	return out
}
