package engine

import (
	"marketshm/internal/errors"
	"marketshm/internal/shm"
)

// Counter is a uint64 in its own 1x1 shared memory segment. The controller
// creates it before Start; a process mode worker attaches it by name.
type Counter struct {
	region *shm.Region
}

// NewCounter creates the counter segment as Owner.
func NewCounter(name string, opts ...shm.Option) (*Counter, error) {
	r, err := shm.Create(name, 1, 1, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "create counter")
	}
	return &Counter{region: r}, nil
}

// AttachCounter attaches an existing counter with write access.
func AttachCounter(name string, opts ...shm.Option) (*Counter, error) {
	r, err := shm.Attach(name, 1, 1, append(opts, shm.AsPeer())...)
	if err != nil {
		return nil, errors.Wrap(err, "attach counter")
	}
	return &Counter{region: r}, nil
}

func (c *Counter) Name() string {
	return c.region.Name()
}

func (c *Counter) Add(delta uint64) (uint64, error) {
	return c.region.AddUint64(0, 0, delta)
}

func (c *Counter) Inc() (uint64, error) {
	return c.Add(1)
}

func (c *Counter) Load() uint64 {
	return c.region.LoadUint64(0, 0)
}

func (c *Counter) Store(v uint64) error {
	return c.region.StoreUint64(0, 0, v)
}

func (c *Counter) Close() error {
	if c == nil {
		return nil
	}
	return c.region.Close()
}
