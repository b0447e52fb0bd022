package model

import (
	"time"

	"marketshm/internal/model/enum"
)

// Trade is a single executed trade fed into the producer.
type Trade struct {
	Market enum.Market
	Price  float64
	Size   float64
	Time   time.Time
}

// UnixSeconds returns the trade time as fractional unix seconds, the unit
// stored in the time column of a candle.
func (t Trade) UnixSeconds() float64 {
	return float64(t.Time.UnixNano()) / 1e9
}
