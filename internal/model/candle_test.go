package model

import (
	"testing"
	"time"

	"marketshm/internal/model/enum"
)

func TestCandleRowRoundTrip(t *testing.T) {
	orig := Candle{
		Close:  12000,
		Open:   11950,
		High:   12010,
		Low:    11900,
		Volume: 3.5,
		Time:   1700000000,
		Price:  12000,
	}

	row := orig.Row()
	if len(row) != enum.CandleFieldCount {
		t.Fatalf("row length mismatch: got %d want %d", len(row), enum.CandleFieldCount)
	}
	if row[enum.CandleClose] != 12000 || row[enum.CandlePrice] != 12000 {
		t.Fatalf("row layout mismatch: %+v", row)
	}

	decoded := CandleFromRow(row)
	if decoded != orig {
		t.Fatalf("candle round-trip mismatch: got %+v want %+v", decoded, orig)
	}
}

func TestCandleFromShortRow(t *testing.T) {
	c := CandleFromRow([]float64{1, 2})
	if c.Close != 1 || c.Open != 2 || c.High != 0 {
		t.Fatalf("unexpected candle: %+v", c)
	}
	if (Candle{}).IsZero() != true {
		t.Fatal("zero candle should report IsZero")
	}
}

func TestTradeUnixSeconds(t *testing.T) {
	tr := Trade{Time: time.Unix(1700000000, 500_000_000)}
	if got := tr.UnixSeconds(); got != 1700000000.5 {
		t.Fatalf("unix seconds mismatch: got %v", got)
	}
	c := Candle{Time: tr.UnixSeconds()}
	if !c.LastTradeAt().Equal(tr.Time) {
		t.Fatalf("last trade at mismatch: got %v want %v", c.LastTradeAt(), tr.Time)
	}
}
