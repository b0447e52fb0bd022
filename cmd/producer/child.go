package main

import (
	"context"
	"os"

	"github.com/yanun0323/logs"

	"marketshm/internal/engine"
	"marketshm/internal/feed"
	"marketshm/internal/obs"
	"marketshm/internal/ops"
)

// childWorker builds the producer worker inside a process mode child. The
// controller exports the config path, so both sides resolve the same stores.
func childWorker() engine.Worker {
	cfg, err := ops.Load(os.Getenv(ops.EnvConfig))
	if err != nil {
		return brokenWorker{err: err}
	}

	opts := []feed.WorkerOption{feed.WithMetrics(obs.NewMetrics())}
	if cfg.File.Redis.Enabled {
		// the client lives as long as the child process
		_, pub, err := newNotifier(context.Background())
		if err != nil {
			return brokenWorker{err: err}
		}
		opts = append(opts, feed.WithNotifier(pub))
	}
	return feed.NewWorker(cfg.Feed(), opts...)
}

// brokenWorker reports a child setup failure from Execute.
type brokenWorker struct {
	err error
}

func (w brokenWorker) Name() string { return feed.WorkerName }

func (w brokenWorker) Prepare(context.Context) error { return nil }

func (w brokenWorker) Execute(context.Context) error {
	logs.Errorf("producer child: setup, err: %+v", w.err)
	return w.err
}

func (w brokenWorker) Postpare(context.Context) error { return nil }
