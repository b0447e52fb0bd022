package engine

import (
	"context"
	"runtime/debug"

	"github.com/yanun0323/logs"

	"marketshm/internal/errors"
	"marketshm/pkg/exception"
)

type threadRunner struct {
	worker Worker
	cancel context.CancelFunc
}

func (r *threadRunner) start(ctx context.Context, finish func(error)) error {
	ctx, r.cancel = context.WithCancel(ctx)

	go func() {
		var err error
		defer func() {
			if rec := recover(); rec != nil {
				logs.Errorf("engine %s: worker panic: %v\n%s", r.worker.Name(), rec, debug.Stack())
				err = errors.Wrapf(exception.ErrWorkerPanic, "%v", rec)
			}
			finish(err)
		}()

		err = r.worker.Execute(ctx)
	}()

	return nil
}

func (r *threadRunner) stop() {
	if r.cancel != nil {
		r.cancel()
	}
}

func (r *threadRunner) kill() bool {
	return false
}
