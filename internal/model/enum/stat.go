package enum

// Stat is the row offset of a statistic inside an indicator store and the
// column offset inside the monitoring stat matrix. Never reorder.
type Stat uint8

const (
	StatRSI14 Stat = iota
	StatPrice
	StatSMA20
	StatEMA20
	StatVolatility20
	_stat_end
)

// StatCount is the number of statistics every indicator store carries.
const StatCount = int(_stat_end)

func (s Stat) IsAvailable() bool {
	return s < _stat_end
}

func (s Stat) String() string {
	switch s {
	case StatRSI14:
		return "rsi14"
	case StatPrice:
		return "price"
	case StatSMA20:
		return "sma20"
	case StatEMA20:
		return "ema20"
	case StatVolatility20:
		return "volatility20"
	default:
		return "unknown"
	}
}

// Stats returns every statistic in layout order.
func Stats() []Stat {
	out := make([]Stat, 0, StatCount)
	for s := Stat(0); s < _stat_end; s++ {
		out = append(out, s)
	}
	return out
}
