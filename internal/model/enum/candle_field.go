package enum

// CandleField is the column offset of a value inside a candle row.
// The numeric values are the shared memory layout; never reorder them.
type CandleField uint8

const (
	CandleClose CandleField = iota
	CandleOpen
	CandleHigh
	CandleLow
	CandleVolume
	CandleTime
	CandlePrice
	_candle_field_end
)

// CandleFieldCount is the column count of a candle store.
const CandleFieldCount = int(_candle_field_end)

func (f CandleField) IsAvailable() bool {
	return f < _candle_field_end
}

func (f CandleField) String() string {
	switch f {
	case CandleClose:
		return "close"
	case CandleOpen:
		return "open"
	case CandleHigh:
		return "high"
	case CandleLow:
		return "low"
	case CandleVolume:
		return "volume"
	case CandleTime:
		return "time"
	case CandlePrice:
		return "price"
	default:
		return "unknown"
	}
}
