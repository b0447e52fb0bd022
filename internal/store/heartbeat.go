package store

import (
	"time"

	"marketshm/internal/errors"
	"marketshm/internal/shm"
)

const (
	heartbeatFlag = iota
	heartbeatTime
	heartbeatCols
)

// Heartbeat is a 1x2 region: an updated flag and the unix time of the last
// producer update. Only the Owner mutates it.
type Heartbeat struct {
	region *shm.Region
}

func CreateHeartbeat(name string, opts ...shm.Option) (*Heartbeat, error) {
	r, err := shm.Create(name, 1, heartbeatCols, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "create heartbeat")
	}
	return &Heartbeat{region: r}, nil
}

func AttachHeartbeat(name string, opts ...shm.Option) (*Heartbeat, error) {
	r, err := shm.Attach(name, 1, heartbeatCols, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "attach heartbeat")
	}
	return &Heartbeat{region: r}, nil
}

func (h *Heartbeat) Name() string {
	return h.region.Name()
}

func (h *Heartbeat) SetUpdated() error {
	return h.region.Set(0, heartbeatFlag, 1)
}

func (h *Heartbeat) ClearUpdated() error {
	return h.region.Set(0, heartbeatFlag, 0)
}

func (h *Heartbeat) IsUpdated() bool {
	return h.region.Get(0, heartbeatFlag) != 0
}

func (h *Heartbeat) SetTime(t time.Time) error {
	return h.region.Set(0, heartbeatTime, unixSeconds(t))
}

// Time returns the last update time, zero if the producer never wrote one.
func (h *Heartbeat) Time() time.Time {
	return fromUnixSeconds(h.region.Get(0, heartbeatTime))
}

// Touch records an update at t and raises the flag.
func (h *Heartbeat) Touch(t time.Time) error {
	if err := h.SetTime(t); err != nil {
		return err
	}
	return h.SetUpdated()
}

// Stale reports whether no update happened within maxAge before now.
func (h *Heartbeat) Stale(now time.Time, maxAge time.Duration) bool {
	last := h.Time()
	if last.IsZero() {
		return true
	}
	return now.Sub(last) > maxAge
}

func (h *Heartbeat) Close() error {
	if h == nil {
		return nil
	}
	return h.region.Close()
}

// Watcher detects new heartbeat updates on the reader side. The shared flag
// stays untouched, so any number of readers can watch the same heartbeat.
type Watcher struct {
	hb   HeartbeatView
	seen time.Time
}

func NewWatcher(hb HeartbeatView) *Watcher {
	return &Watcher{hb: hb}
}

// Poll returns true once per producer update observed since the last call.
func (w *Watcher) Poll() bool {
	if !w.hb.IsUpdated() {
		return false
	}
	t := w.hb.Time()
	if !t.After(w.seen) {
		return false
	}
	w.seen = t
	return true
}

// Seen returns the update time consumed by the last successful Poll.
func (w *Watcher) Seen() time.Time {
	return w.seen
}
