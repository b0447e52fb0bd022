package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"marketshm/internal/feed"
	"marketshm/internal/model/enum"
	"marketshm/internal/ops"
	"marketshm/internal/pubsub"
	"marketshm/internal/store"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML or JSON config")
	every := flag.Duration("every", time.Second, "Poll interval")
	maxAge := flag.Duration("max-age", 0, "Report a market stale after this long without updates, default 3x tick")
	flag.Parse()

	if err := run(*configPath, *every, *maxAge); err != nil {
		log.Fatalf("monitor: %v", err)
	}
}

type series struct {
	market     enum.Market
	candles    store.CandleView
	indicators store.IndicatorView
	watcher    *store.Watcher
}

func run(configPath string, every, maxAge time.Duration) error {
	cfg, err := ops.Load(configPath)
	if err != nil {
		return err
	}
	if maxAge <= 0 {
		maxAge = 3 * cfg.File.Feed.Tick
	}

	monitoring, err := store.OpenMonitoringView(cfg.Monitoring())
	if err != nil {
		return err
	}
	defer monitoring.Close()

	all := make([]series, 0, len(cfg.Markets))
	defer func() {
		for _, s := range all {
			_ = s.candles.Close()
			_ = s.indicators.Close()
		}
	}()
	for _, market := range cfg.Markets {
		candles, err := store.OpenCandleView(cfg.Series(market))
		if err != nil {
			return err
		}
		indicators, err := store.OpenIndicatorView(cfg.Series(market))
		if err != nil {
			_ = candles.Close()
			return err
		}
		all = append(all, series{
			market:     market,
			candles:    candles,
			indicators: indicators,
			watcher:    store.NewWatcher(candles.Health()),
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.File.Redis.Enabled {
		done, err := subscribeRolls(ctx, cfg.File.Redis.Channel)
		if err != nil {
			return err
		}
		defer func() {
			cancel()
			<-done
		}()
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-sys.Shutdown():
			logs.Info("monitor: shutdown signal received")
			return nil
		case now := <-ticker.C:
			for _, s := range all {
				report(monitoring, s, now, maxAge)
			}
		}
	}
}

func report(monitoring store.MonitoringView, s series, now time.Time, maxAge time.Duration) {
	row, err := monitoring.Snapshot(s.market)
	if err != nil {
		logs.Errorf("monitor: snapshot %s, err: %+v", s.market, err)
		return
	}

	status := "idle"
	switch {
	case s.watcher.Poll():
		status = "updated"
	case s.candles.Health().Stale(now, maxAge):
		status = "stale"
	}

	last := s.candles.Last()
	logs.Infof("monitor: %-12s %-7s candle=%s o=%.4f h=%.4f l=%.4f c=%.4f v=%.4f last=%.4f %s",
		s.market, status, row.CandleTime.UTC().Format(time.TimeOnly),
		last.Open, last.High, last.Low, last.Close, last.Volume, row.LastTrade, formatStats(s.indicators.Snapshot()))
}

func formatStats(stats map[enum.Stat]float64) string {
	parts := make([]string, 0, len(stats))
	for _, stat := range enum.Stats() {
		parts = append(parts, fmt.Sprintf("%s=%.4f", stat, stats[stat]))
	}
	return strings.Join(parts, " ")
}

func subscribeRolls(ctx context.Context, channel string) (<-chan struct{}, error) {
	rdb, err := pubsub.NewClient(ctx, pubsub.Config{})
	if err != nil {
		return nil, err
	}
	sub, err := pubsub.NewSubscriber(rdb)
	if err != nil {
		_ = rdb.Close()
		return nil, err
	}

	done, err := sub.Subscribe(ctx, func(m pubsub.Message) {
		var notice feed.RollNotice
		if err := m.Decode(&notice); err != nil {
			logs.Errorf("monitor: decode roll notice, err: %+v", err)
			return
		}
		logs.Infof("monitor: %s %s candle %s closed at %.4f",
			notice.Market, notice.Interval, notice.OpenTime.UTC().Format(time.TimeOnly), notice.Candle.Close)
	}, channel)
	if err != nil {
		_ = rdb.Close()
		return nil, err
	}

	closed := make(chan struct{})
	go func() {
		<-done
		_ = rdb.Close()
		close(closed)
	}()
	return closed, nil
}
