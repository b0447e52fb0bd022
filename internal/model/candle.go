package model

import (
	"fmt"
	"time"

	"marketshm/internal/model/enum"
)

// Candle is one row of a candle store. Time is the unix time in seconds of
// the last trade, Price the last trade price.
type Candle struct {
	Close  float64 `json:"close"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Volume float64 `json:"volume"`
	Time   float64 `json:"time"`
	Price  float64 `json:"price"`
}

// CandleFromRow decodes a shared memory row. Short rows leave the missing
// fields zero.
func CandleFromRow(row []float64) Candle {
	var c Candle
	for i, v := range row {
		switch enum.CandleField(i) {
		case enum.CandleClose:
			c.Close = v
		case enum.CandleOpen:
			c.Open = v
		case enum.CandleHigh:
			c.High = v
		case enum.CandleLow:
			c.Low = v
		case enum.CandleVolume:
			c.Volume = v
		case enum.CandleTime:
			c.Time = v
		case enum.CandlePrice:
			c.Price = v
		}
	}
	return c
}

// Row encodes the candle into its shared memory layout.
func (c Candle) Row() []float64 {
	row := make([]float64, enum.CandleFieldCount)
	row[enum.CandleClose] = c.Close
	row[enum.CandleOpen] = c.Open
	row[enum.CandleHigh] = c.High
	row[enum.CandleLow] = c.Low
	row[enum.CandleVolume] = c.Volume
	row[enum.CandleTime] = c.Time
	row[enum.CandlePrice] = c.Price
	return row
}

// IsZero reports whether the candle has not received any trade yet.
func (c Candle) IsZero() bool {
	return c == Candle{}
}

// LastTradeAt converts Time into a time.Time.
func (c Candle) LastTradeAt() time.Time {
	sec := int64(c.Time)
	nsec := int64((c.Time - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}

func (c Candle) String() string {
	return fmt.Sprintf("O=%.8g H=%.8g L=%.8g C=%.8g V=%.8g last=%.8g@%.0f",
		c.Open, c.High, c.Low, c.Close, c.Volume, c.Price, c.Time)
}
