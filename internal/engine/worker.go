package engine

import (
	"context"
	"sort"
	"sync"

	"marketshm/internal/errors"
	"marketshm/pkg/exception"
)

// Worker is the unit an Engine runs.
//
// Prepare and Postpare always run in the controller. Execute is the
// long-lived loop; it must return once ctx is done. In process mode Execute
// runs on a fresh Worker built by the registered factory inside a child
// process, so anything shared with the controller has to live in a shared
// memory segment (see Counter).
type Worker interface {
	Name() string
	Prepare(ctx context.Context) error
	Execute(ctx context.Context) error
	Postpare(ctx context.Context) error
}

// Factory builds a Worker inside a child process.
type Factory func() Worker

var registry = struct {
	sync.RWMutex
	factories map[string]Factory
}{factories: map[string]Factory{}}

// Register makes a worker runnable in process mode. It must be called
// before RunChild and before Start, usually from an init function, with the
// same name the Worker reports.
func Register(name string, factory Factory) {
	if name == "" || factory == nil {
		panic("engine: Register with empty name or nil factory")
	}

	registry.Lock()
	defer registry.Unlock()
	registry.factories[name] = factory
}

func lookup(name string) (Factory, error) {
	registry.RLock()
	defer registry.RUnlock()

	f, ok := registry.factories[name]
	if !ok {
		return nil, errors.Wrapf(exception.ErrWorkerNotRegistered, "worker %s", name)
	}
	return f, nil
}

// Registered returns the registered worker names, sorted.
func Registered() []string {
	registry.RLock()
	defer registry.RUnlock()

	names := make([]string, 0, len(registry.factories))
	for name := range registry.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
