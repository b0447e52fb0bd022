package engine

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketshm/internal/shm"
	"marketshm/pkg/exception"
)

const (
	countingWorkerName = "counting"
	failingWorkerName  = "failing"
	panicWorkerName    = "panicking"
	strayWorkerName    = "stray_panic"
	stuckWorkerName    = "stuck"

	ticksCounter = "engine_test_ticks"
	exitsCounter = "engine_test_exits"
)

func TestMain(m *testing.M) {
	Register(countingWorkerName, func() Worker { return &countingWorker{} })
	Register(failingWorkerName, func() Worker { return &failingWorker{} })
	Register(panicWorkerName, func() Worker { return &panicWorker{} })
	Register(strayWorkerName, func() Worker { return &strayPanicWorker{} })
	Register(stuckWorkerName, func() Worker { return &stuckWorker{} })
	RunChild()

	os.Exit(m.Run())
}

// hooks records the controller side of the lifecycle.
type hooks struct {
	mu       sync.Mutex
	events   []string
	onPrep   func() error
	onPost   func()
	prepared bool
}

func (h *hooks) Prepare(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, "prepare")
	h.prepared = true
	if h.onPrep != nil {
		return h.onPrep()
	}
	return nil
}

func (h *hooks) Postpare(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, "postpare")
	if h.onPost != nil {
		h.onPost()
	}
	return nil
}

func (h *hooks) Events() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.events...)
}

// countingWorker increments the shared ticks counter until stopped and
// bumps the exits counter on its way out.
type countingWorker struct {
	hooks
}

func (w *countingWorker) Name() string { return countingWorkerName }

func (w *countingWorker) Execute(ctx context.Context) error {
	ticks, err := AttachCounter(ticksCounter)
	if err != nil {
		return err
	}
	defer ticks.Close()

	exits, err := AttachCounter(exitsCounter)
	if err != nil {
		return err
	}
	defer exits.Close()

	ticker := time.NewTicker(2 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_, err := exits.Inc()
			return err
		case <-ticker.C:
			if _, err := ticks.Inc(); err != nil {
				return err
			}
		}
	}
}

type failingWorker struct {
	hooks
}

func (w *failingWorker) Name() string { return failingWorkerName }

func (w *failingWorker) Execute(context.Context) error {
	return errors.New("boom")
}

type panicWorker struct {
	hooks
}

func (w *panicWorker) Name() string { return panicWorkerName }

func (w *panicWorker) Execute(context.Context) error {
	panic("worker exploded")
}

// strayPanicWorker panics in a goroutine it spawned, out of reach of the
// child's recover.
type strayPanicWorker struct {
	hooks
}

func (w *strayPanicWorker) Name() string { return strayWorkerName }

func (w *strayPanicWorker) Execute(ctx context.Context) error {
	go func() { panic("stray goroutine exploded") }()
	<-ctx.Done()
	return nil
}

// stuckWorker ignores cancellation.
type stuckWorker struct {
	hooks
	release chan struct{}
}

func (w *stuckWorker) Name() string { return stuckWorkerName }

func (w *stuckWorker) Execute(context.Context) error {
	if w.release == nil {
		time.Sleep(time.Hour)
		return nil
	}
	<-w.release
	return nil
}

func setupCounters(t *testing.T) (ticks, exits *Counter) {
	t.Helper()
	t.Setenv(shm.EnvDir, t.TempDir())

	ticks, err := NewCounter(ticksCounter)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ticks.Close() })

	exits, err = NewCounter(exitsCounter)
	require.NoError(t, err)
	t.Cleanup(func() { _ = exits.Close() })

	return ticks, exits
}

func modes() []Mode {
	return []Mode{ModeThread, ModeProcess}
}

func TestEngineLifecycle(t *testing.T) {
	for _, mode := range modes() {
		t.Run(mode.String(), func(t *testing.T) {
			ticks, exits := setupCounters(t)

			w := &countingWorker{}
			exitedBeforePostpare := false
			w.onPost = func() { exitedBeforePostpare = exits.Load() == 1 }

			e, err := New(w, Config{Mode: mode})
			require.NoError(t, err)
			assert.Equal(t, StateIdle, e.State())

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			require.NoError(t, e.Start(ctx))
			assert.Equal(t, StateRunning, e.State())
			assert.Equal(t, []string{"prepare"}, w.Events())

			require.Eventually(t, func() bool { return ticks.Load() > 0 }, 5*time.Second, 5*time.Millisecond)

			require.NoError(t, e.Stop(ctx))
			assert.Equal(t, StateStopped, e.State())
			assert.Equal(t, []string{"prepare", "postpare"}, w.Events())
			assert.True(t, exitedBeforePostpare)
			assert.NoError(t, e.Err())

			n := ticks.Load()
			assert.Positive(t, n)
			time.Sleep(20 * time.Millisecond)
			assert.Equal(t, n, ticks.Load())

			select {
			case <-e.Done():
			default:
				t.Fatal("done not closed after stop")
			}
		})
	}
}

func TestEngineFailingWorker(t *testing.T) {
	for _, mode := range modes() {
		t.Run(mode.String(), func(t *testing.T) {
			t.Setenv(shm.EnvDir, t.TempDir())

			w := &failingWorker{}
			e, err := New(w, Config{Mode: mode})
			require.NoError(t, err)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			require.NoError(t, e.Start(ctx))

			select {
			case <-e.Done():
			case <-ctx.Done():
				t.Fatal("failing worker never exited")
			}
			require.Error(t, e.Err())

			require.NoError(t, e.Stop(ctx))
			assert.Equal(t, StateStopped, e.State())
			assert.Equal(t, []string{"prepare", "postpare"}, w.Events())
		})
	}
}

func TestEngineFailingWorkerProcessExit(t *testing.T) {
	t.Setenv(shm.EnvDir, t.TempDir())

	e, err := New(&failingWorker{}, Config{Mode: ModeProcess})
	require.NoError(t, err)
	require.NoError(t, e.Start(context.Background()))

	<-e.Done()
	assert.ErrorIs(t, e.Err(), exception.ErrWorkerExit)
	require.NoError(t, e.Stop(context.Background()))
}

func TestEnginePanicWorker(t *testing.T) {
	for _, mode := range modes() {
		t.Run(mode.String(), func(t *testing.T) {
			t.Setenv(shm.EnvDir, t.TempDir())

			w := &panicWorker{}
			e, err := New(w, Config{Mode: mode})
			require.NoError(t, err)
			require.NoError(t, e.Start(context.Background()))

			<-e.Done()
			assert.ErrorIs(t, e.Err(), exception.ErrWorkerPanic)

			require.NoError(t, e.Stop(context.Background()))
			assert.Equal(t, []string{"prepare", "postpare"}, w.Events())
		})
	}
}

func TestEngineProcessGoroutinePanic(t *testing.T) {
	t.Setenv(shm.EnvDir, t.TempDir())

	w := &strayPanicWorker{}
	e, err := New(w, Config{Mode: ModeProcess})
	require.NoError(t, err)
	require.NoError(t, e.Start(context.Background()))

	<-e.Done()
	assert.ErrorIs(t, e.Err(), exception.ErrWorkerPanic)
	assert.NotErrorIs(t, e.Err(), exception.ErrWorkerNotRegistered)

	require.NoError(t, e.Stop(context.Background()))
	assert.Equal(t, []string{"prepare", "postpare"}, w.Events())
}

func TestProcessExitCodes(t *testing.T) {
	exe, err := os.Executable()
	require.NoError(t, err)

	// a child asked for a name nobody registered
	cmd := exec.Command(exe)
	cmd.Env = append(os.Environ(), EnvWorker+"=ghost", EnvControl+"=none")
	r := &processRunner{name: "ghost"}
	assert.ErrorIs(t, r.exitError(cmd.Run()), exception.ErrWorkerNotRegistered)

	assert.NoError(t, r.exitError(nil))
}

func TestEngineStopDeadline(t *testing.T) {
	t.Run("process is killed", func(t *testing.T) {
		t.Setenv(shm.EnvDir, t.TempDir())

		w := &stuckWorker{}
		e, err := New(w, Config{Mode: ModeProcess})
		require.NoError(t, err)
		require.NoError(t, e.Start(context.Background()))

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		err = e.Stop(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, StateStopped, e.State())
		assert.Equal(t, []string{"prepare", "postpare"}, w.Events())
	})

	t.Run("thread gives up", func(t *testing.T) {
		w := &stuckWorker{release: make(chan struct{})}
		defer close(w.release)

		e, err := New(w, Config{Mode: ModeThread})
		require.NoError(t, err)
		require.NoError(t, e.Start(context.Background()))

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		err = e.Stop(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, StateStopped, e.State())
		assert.Equal(t, []string{"prepare"}, w.Events())
	})
}

func TestEnginePrepareFailure(t *testing.T) {
	w := &countingWorker{}
	w.onPrep = func() error { return errors.New("no config") }

	e, err := New(w, DefaultConfig())
	require.NoError(t, err)

	require.Error(t, e.Start(context.Background()))
	assert.Equal(t, StateStopped, e.State())
	assert.Error(t, e.Err())
	<-e.Done()

	assert.ErrorIs(t, e.Stop(context.Background()), exception.ErrEngineNotRunning)
}

func TestEngineStateErrors(t *testing.T) {
	_, err := New(nil, DefaultConfig())
	assert.ErrorIs(t, err, exception.ErrNilWorker)

	_, err = New(&countingWorker{}, Config{Mode: Mode(9)})
	assert.ErrorIs(t, err, exception.ErrUnknownMode)

	_, err = New(&unregisteredWorker{}, Config{Mode: ModeProcess})
	assert.ErrorIs(t, err, exception.ErrWorkerNotRegistered)

	w := &stuckWorker{release: make(chan struct{})}
	e, err := New(w, DefaultConfig())
	require.NoError(t, err)
	assert.ErrorIs(t, e.Stop(context.Background()), exception.ErrEngineNotRunning)

	require.NoError(t, e.Start(context.Background()))
	assert.ErrorIs(t, e.Start(context.Background()), exception.ErrEngineAlreadyStarted)

	close(w.release)
	require.NoError(t, e.Stop(context.Background()))
	assert.ErrorIs(t, e.Stop(context.Background()), exception.ErrEngineNotRunning)
}

type unregisteredWorker struct {
	hooks
}

func (w *unregisteredWorker) Name() string { return "unregistered" }

func (w *unregisteredWorker) Execute(context.Context) error { return nil }

func TestRegistry(t *testing.T) {
	assert.Subset(t, Registered(), []string{countingWorkerName, failingWorkerName})
	assert.Panics(t, func() { Register("", nil) })

	mode, ok := ParseMode("process")
	assert.True(t, ok)
	assert.Equal(t, ModeProcess, mode)
	_, ok = ParseMode("fiber")
	assert.False(t, ok)
}
