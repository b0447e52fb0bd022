package enum

import "strings"

// Market identifies a tradable instrument. The string form is part of every
// segment name, so it must stay stable between producer and reader builds.
type Market uint8

const (
	_market_beg Market = iota
	MarketBTCUSD
	MarketBTCUSDPerp
	MarketETHUSD
	MarketETHUSDPerp
	MarketSOLUSD
	MarketSOLUSDPerp
	_market_end
)

// MarketLimit is one past the largest Market value, for arrays indexed by
// market.
const MarketLimit = int(_market_end)

var marketNames = [...]string{
	MarketBTCUSD:     "BTCUSD",
	MarketBTCUSDPerp: "BTCUSD_PERP",
	MarketETHUSD:     "ETHUSD",
	MarketETHUSDPerp: "ETHUSD_PERP",
	MarketSOLUSD:     "SOLUSD",
	MarketSOLUSDPerp: "SOLUSD_PERP",
}

func (m Market) IsAvailable() bool {
	return m > _market_beg && m < _market_end
}

func (m Market) String() string {
	if !m.IsAvailable() {
		return "UNKNOWN"
	}
	return marketNames[m]
}

// ParseMarket resolves a market from its segment-name form, case-insensitive.
func ParseMarket(s string) (Market, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for m := _market_beg + 1; m < _market_end; m++ {
		if marketNames[m] == s {
			return m, true
		}
	}
	return 0, false
}

// Markets returns every available market in declaration order.
func Markets() []Market {
	out := make([]Market, 0, int(_market_end-_market_beg-1))
	for m := _market_beg + 1; m < _market_end; m++ {
		out = append(out, m)
	}
	return out
}
