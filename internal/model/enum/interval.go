package enum

import "time"

// Interval is the candle bucket width in its segment-name form, e.g. "1m".
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval1h  Interval = "1h"
	Interval4h  Interval = "4h"
	Interval1d  Interval = "1d"
)

var intervalDurations = map[Interval]time.Duration{
	Interval1m:  time.Minute,
	Interval5m:  5 * time.Minute,
	Interval15m: 15 * time.Minute,
	Interval1h:  time.Hour,
	Interval4h:  4 * time.Hour,
	Interval1d:  24 * time.Hour,
}

func (i Interval) IsAvailable() bool {
	_, ok := intervalDurations[i]
	return ok
}

// Duration returns the bucket width, or 0 for an unknown interval.
func (i Interval) Duration() time.Duration {
	return intervalDurations[i]
}

func (i Interval) String() string {
	return string(i)
}

// BucketStart truncates t to the start of its candle bucket (UTC aligned).
func (i Interval) BucketStart(t time.Time) time.Time {
	d := i.Duration()
	if d <= 0 {
		return t
	}
	return t.UTC().Truncate(d)
}
