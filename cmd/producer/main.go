package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/grafana/pyroscope-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"marketshm/internal/engine"
	"marketshm/internal/feed"
	"marketshm/internal/obs"
	"marketshm/internal/ops"
	"marketshm/internal/persistence"
	"marketshm/internal/pubsub"
	"marketshm/pkg/conn"
)

func init() {
	engine.Register(feed.WorkerName, childWorker)
}

func main() {
	engine.RunChild()

	configPath := flag.String("config", "", "Path to YAML or JSON config")
	mode := flag.String("mode", "", "Engine mode override: thread|process")
	flag.Parse()

	if err := run(*configPath, *mode); err != nil {
		log.Fatalf("producer: %v", err)
	}
}

func run(configPath, mode string) error {
	if configPath != "" {
		abs, err := filepath.Abs(configPath)
		if err != nil {
			return err
		}
		configPath = abs
		// process mode children load the same file
		if err := os.Setenv(ops.EnvConfig, configPath); err != nil {
			return err
		}
	}
	if mode != "" {
		if err := os.Setenv(ops.EnvPrefix+"_ENGINE_MODE", mode); err != nil {
			return err
		}
	}

	cfg, err := ops.Load(configPath)
	if err != nil {
		return err
	}

	ctx := context.Background()

	if addr := cfg.File.Metrics.Pyroscope; addr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "marketshm.producer",
			ServerAddress:   addr,
			Tags:            map[string]string{"domain": cfg.File.Domain, "mode": cfg.EngineMode.String()},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			return err
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	metrics := obs.NewMetrics()
	if addr := cfg.File.Metrics.Addr; addr != "" {
		srv := serveMetrics(addr, cfg.File.Domain, metrics)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	opts := []feed.WorkerOption{feed.WithMetrics(metrics)}
	if cfg.File.Redis.Enabled {
		rdb, notifier, err := newNotifier(ctx)
		if err != nil {
			return err
		}
		defer rdb.Close()
		opts = append(opts, feed.WithNotifier(notifier))
	}

	var journal *persistence.Journal
	if cfg.File.Postgres.Enabled {
		pg, err := conn.OpenPostgres(ctx, conn.Option{DSN: cfg.File.Postgres.DSN})
		if err != nil {
			return err
		}
		defer pg.Close()

		journal, err = persistence.NewJournal(ctx, pg.DB())
		if err != nil {
			return err
		}
	}

	worker := feed.NewWorker(cfg.Feed(), opts...)
	eng, err := engine.New(worker, cfg.Engine())
	if err != nil {
		return err
	}

	if err := obs.TimeIt("producer start", func() error { return eng.Start(ctx) }); err != nil {
		return err
	}
	logs.Infof("producer: running %s in %s mode, markets %v", cfg.File.Domain, cfg.EngineMode, cfg.File.Markets)

	runID, err := beginRun(ctx, journal, cfg)
	if err != nil {
		logs.Errorf("producer: journal begin, err: %+v", err)
	}

	select {
	case <-sys.Shutdown():
		logs.Info("producer: shutdown signal received")
	case <-eng.Done():
		logs.Errorf("producer: worker stopped, err: %+v", eng.Err())
	}

	stopCtx, cancel := context.WithTimeout(ctx, cfg.File.Engine.StopTimeout)
	defer cancel()
	stopErr := eng.Stop(stopCtx)
	runErr := errors.Join(eng.Err(), stopErr)

	if journal != nil && runID != uuid.Nil {
		if err := journal.Finish(ctx, runID, worker.Trades(), runErr); err != nil {
			logs.Errorf("producer: journal finish, err: %+v", err)
		}
	}

	logs.Infof("producer: stopped after %d trades", worker.Trades())
	return runErr
}

func serveMetrics(addr, namespace string, metrics *obs.Metrics) *http.Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		obs.NewCollector(namespace, metrics),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logs.Errorf("producer: metrics server, err: %+v", err)
		}
	}()
	logs.Infof("producer: metrics on %s/metrics", addr)
	return srv
}

func newNotifier(ctx context.Context) (*redis.Client, *pubsub.Publisher, error) {
	rdb, err := pubsub.NewClient(ctx, pubsub.Config{})
	if err != nil {
		return nil, nil, err
	}
	pub, err := pubsub.NewPublisher(rdb)
	if err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}
	return rdb, pub, nil
}

func beginRun(ctx context.Context, journal *persistence.Journal, cfg ops.Loaded) (uuid.UUID, error) {
	if journal == nil {
		return uuid.Nil, nil
	}
	return journal.Begin(ctx, cfg.File.Domain, cfg.File.Markets, cfg.EngineMode.String())
}
