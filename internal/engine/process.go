package engine

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"marketshm/internal/errors"
	"marketshm/internal/shm"
	"marketshm/pkg/exception"
)

const (
	// EnvWorker carries the registered worker name into a child process.
	EnvWorker = "MARKETSHM_ENGINE_WORKER"
	// EnvControl carries the control segment name into a child process.
	EnvControl = "MARKETSHM_ENGINE_CONTROL"
)

// control segment cells
const (
	controlStop = iota
	controlReady
	controlCols
)

// child exit codes. 2 is what the Go runtime exits with on an unrecovered
// panic, such as one in a goroutine the worker spawned.
const (
	exitFailure       = 1
	exitRuntimePanic  = 2
	exitNotRegistered = 3
	exitPanic         = 4
)

const stopPollInterval = 10 * time.Millisecond

var controlSeq atomic.Uint64

// processRunner re-executes the current binary as the execution context.
// The stop request travels through a control segment created before the
// child starts.
type processRunner struct {
	name string
	dir  string

	mu            sync.Mutex
	ctl           *shm.Region
	cmd           *exec.Cmd
	exited        bool
	stopRequested atomic.Bool
}

func (r *processRunner) start(_ context.Context, finish func(error)) error {
	exe, err := os.Executable()
	if err != nil {
		return errors.Wrap(err, "resolve executable")
	}

	var opts []shm.Option
	if r.dir != "" {
		opts = append(opts, shm.WithDir(r.dir))
	}
	ctlName := fmt.Sprintf("engine_%s_%d_%d", r.name, os.Getpid(), controlSeq.Add(1))
	ctl, err := shm.Create(ctlName, 1, controlCols, opts...)
	if err != nil {
		return errors.Wrap(err, "create control segment")
	}

	cmd := exec.Command(exe)
	cmd.Env = append(os.Environ(), EnvWorker+"="+r.name, EnvControl+"="+ctlName)
	if r.dir != "" {
		cmd.Env = append(cmd.Env, shm.EnvDir+"="+r.dir)
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		_ = ctl.Close()
		return errors.Wrap(err, "start child")
	}
	logs.Infof("engine %s: child pid %d", r.name, cmd.Process.Pid)

	r.ctl = ctl
	r.cmd = cmd

	go func() {
		err := cmd.Wait()

		r.mu.Lock()
		r.exited = true
		_ = r.ctl.Close()
		r.mu.Unlock()

		finish(r.exitError(err))
	}()

	return nil
}

func (r *processRunner) stop() {
	r.stopRequested.Store(true)

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.exited {
		_ = r.ctl.StoreUint64(0, controlStop, 1)
	}
}

func (r *processRunner) kill() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.exited {
		_ = r.cmd.Process.Kill()
	}
	return true
}

func (r *processRunner) exitError(err error) error {
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return errors.Wrapf(exception.ErrWorkerExit, "child %s: %v", r.name, err)
	}

	switch code := exitErr.ExitCode(); {
	case code == -1 && r.stopRequested.Load():
		return nil
	case code == exitPanic, code == exitRuntimePanic:
		return errors.Wrapf(exception.ErrWorkerPanic, "child %s", r.name)
	case code == exitNotRegistered:
		return errors.Wrapf(exception.ErrWorkerNotRegistered, "child %s", r.name)
	default:
		return errors.Wrapf(exception.ErrWorkerExit, "child %s: %v", r.name, exitErr)
	}
}

// RunChild turns the process into an engine child when a process mode
// Engine started it, and never returns in that case. Otherwise it returns
// immediately. Call it first thing in main, or in TestMain for tests that
// run process mode engines, after every Register.
func RunChild() {
	name := os.Getenv(EnvWorker)
	if name == "" {
		return
	}
	os.Exit(runChild(name, os.Getenv(EnvControl)))
}

func runChild(name, control string) (code int) {
	factory, err := lookup(name)
	if err != nil {
		logs.Errorf("engine child: %+v", err)
		return exitNotRegistered
	}

	ctl, err := shm.Attach(control, 1, controlCols, shm.AsPeer())
	if err != nil {
		logs.Errorf("engine child %s: attach control, err: %+v", name, err)
		return exitFailure
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		watchStop(ctx, cancel, ctl)
	}()
	defer func() {
		cancel()
		wg.Wait()
		_ = ctl.Close()
	}()

	defer func() {
		if rec := recover(); rec != nil {
			logs.Errorf("engine child %s: worker panic: %v", name, rec)
			code = exitPanic
		}
	}()

	_ = ctl.StoreUint64(0, controlReady, 1)
	if err := factory().Execute(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logs.Errorf("engine child %s: execute, err: %+v", name, err)
		return exitFailure
	}
	return 0
}

func watchStop(ctx context.Context, cancel context.CancelFunc, ctl *shm.Region) {
	ticker := time.NewTicker(stopPollInterval)
	defer ticker.Stop()

	shutdown := sys.Shutdown()
	for {
		select {
		case <-ctx.Done():
			return
		case <-shutdown:
			cancel()
			return
		case <-ticker.C:
			if ctl.LoadUint64(0, controlStop) != 0 {
				cancel()
				return
			}
		}
	}
}
