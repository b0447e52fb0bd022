package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/yanun0323/logs"

	"marketshm/internal/errors"
	"marketshm/pkg/exception"
)

// Config controls how an Engine runs its worker.
type Config struct {
	Mode Mode
	// Dir places the process mode control segment. Empty uses the shm
	// default directory.
	Dir string
}

func DefaultConfig() Config {
	return Config{Mode: ModeThread}
}

func (c Config) withDefaults() Config {
	if c.Mode == _mode_beg {
		c.Mode = ModeThread
	}
	return c
}

func (c Config) Validate() error {
	if !c.Mode.IsAvailable() {
		return errors.Wrapf(exception.ErrUnknownMode, "invalid engine config: mode %d", c.Mode)
	}
	return nil
}

// runner owns the execution context of Worker.Execute.
type runner interface {
	// start launches Execute and calls finish exactly once when it ends.
	start(ctx context.Context, finish func(error)) error
	// stop asks Execute to return.
	stop()
	// kill forces the execution context down and reports whether it can.
	kill() bool
}

// Engine runs one Worker through Idle, Starting, Running, Stopping and
// Stopped. An Engine is single use.
type Engine struct {
	worker Worker
	cfg    Config
	run    runner

	mu    sync.Mutex
	state atomic.Int32
	done  chan struct{}
	err   atomic.Value
}

type exitResult struct{ err error }

// New validates cfg and binds worker. A process mode worker must be
// registered under its Name.
func New(worker Worker, cfg Config) (*Engine, error) {
	if worker == nil {
		return nil, exception.ErrNilWorker
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		worker: worker,
		cfg:    cfg,
		done:   make(chan struct{}),
	}

	switch cfg.Mode {
	case ModeProcess:
		if _, err := lookup(worker.Name()); err != nil {
			return nil, err
		}
		e.run = &processRunner{name: worker.Name(), dir: cfg.Dir}
	default:
		e.run = &threadRunner{worker: worker}
	}
	return e, nil
}

func (e *Engine) Name() string {
	return e.worker.Name()
}

func (e *Engine) Mode() Mode {
	return e.cfg.Mode
}

func (e *Engine) State() State {
	return State(e.state.Load())
}

// Done is closed once the execution context has exited, whether stopped or
// failed.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Err returns why the worker exited abnormally, or nil.
func (e *Engine) Err() error {
	if v, ok := e.err.Load().(exitResult); ok {
		return v.err
	}
	return nil
}

// Start runs Prepare in the caller, then launches Execute. The engine is
// Running when Start returns nil. ctx bounds Prepare; the execution context
// keeps its values but ends only through Stop or a worker failure.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.CompareAndSwap(int32(StateIdle), int32(StateStarting)) {
		return errors.Wrapf(exception.ErrEngineAlreadyStarted, "engine %s is %s", e.Name(), e.State())
	}

	if err := e.worker.Prepare(ctx); err != nil {
		e.abort(err)
		return errors.Wrapf(err, "engine %s prepare", e.Name())
	}

	if err := e.run.start(context.WithoutCancel(ctx), e.finish); err != nil {
		e.abort(err)
		return errors.Wrapf(err, "engine %s launch", e.Name())
	}

	e.state.Store(int32(StateRunning))
	logs.Infof("engine %s: running in %s mode", e.Name(), e.cfg.Mode)
	return nil
}

// Stop asks the worker to return, waits for the execution context to exit
// and runs Postpare in the caller.
//
// If ctx expires first a process mode child is killed and teardown goes on.
// A thread mode worker cannot be preempted, so Stop gives up with the ctx
// error and skips Postpare.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		return errors.Wrapf(exception.ErrEngineNotRunning, "engine %s is %s", e.Name(), e.State())
	}

	e.run.stop()

	var waitErr error
	select {
	case <-e.done:
	case <-ctx.Done():
		if !e.run.kill() {
			e.state.Store(int32(StateStopped))
			logs.Errorf("engine %s: worker did not exit before stop deadline", e.Name())
			return errors.Wrapf(ctx.Err(), "engine %s stop", e.Name())
		}
		<-e.done
		waitErr = errors.Wrapf(ctx.Err(), "engine %s killed", e.Name())
	}

	err := e.worker.Postpare(context.WithoutCancel(ctx))
	e.state.Store(int32(StateStopped))
	logs.Infof("engine %s: stopped", e.Name())

	if err != nil {
		return errors.Wrapf(err, "engine %s postpare", e.Name())
	}
	return waitErr
}

func (e *Engine) finish(err error) {
	if err != nil && !errors.Is(err, context.Canceled) {
		e.err.Store(exitResult{err: err})
		logs.Errorf("engine %s: worker exited, err: %+v", e.Name(), err)
	}
	close(e.done)
}

func (e *Engine) abort(err error) {
	e.err.Store(exitResult{err: err})
	e.state.Store(int32(StateStopped))
	close(e.done)
}
