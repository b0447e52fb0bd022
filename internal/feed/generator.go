package feed

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"marketshm/internal/model"
	"marketshm/internal/model/enum"
)

// GeneratorConfig shapes the synthetic random walk.
type GeneratorConfig struct {
	Markets    []enum.Market
	BasePrice  float64
	BaseSize   float64
	Volatility float64
	Seed       int64
}

// Generator creates synthetic trades, one market after another.
type Generator struct {
	markets    []enum.Market
	prices     []float64
	baseSize   float64
	volatility float64
	rng        *rand.Rand
	index      int
}

// NewGenerator creates a generator for every configured market. Each market
// starts at a distinct multiple of BasePrice.
func NewGenerator(cfg GeneratorConfig) (*Generator, error) {
	if len(cfg.Markets) == 0 {
		return nil, fmt.Errorf("generator has no markets")
	}
	if cfg.BasePrice <= 0 {
		return nil, fmt.Errorf("generator base price must be > 0")
	}
	if cfg.BaseSize <= 0 {
		cfg.BaseSize = 1
	}
	if cfg.Volatility < 0 {
		cfg.Volatility = 0
	}

	prices := make([]float64, len(cfg.Markets))
	for i := range prices {
		prices[i] = cfg.BasePrice * float64(i+1)
	}

	seed := uint64(cfg.Seed)
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	return &Generator{
		markets:    append([]enum.Market(nil), cfg.Markets...),
		prices:     prices,
		baseSize:   cfg.BaseSize,
		volatility: cfg.Volatility,
		rng:        rand.New(rand.NewPCG(seed, seed>>1|1)),
	}, nil
}

// Next creates the next trade in sequence.
func (g *Generator) Next(now time.Time) model.Trade {
	i := g.index
	g.index = (g.index + 1) % len(g.markets)

	g.prices[i] *= math.Exp(g.volatility * g.rng.NormFloat64())
	return model.Trade{
		Market: g.markets[i],
		Price:  g.prices[i],
		Size:   g.baseSize * (0.5 + g.rng.Float64()),
		Time:   now,
	}
}

// Normalize rejects trades that cannot be stored and stamps a missing time
// with now.
func Normalize(trade model.Trade, now time.Time) (model.Trade, error) {
	if !trade.Market.IsAvailable() {
		return model.Trade{}, fmt.Errorf("unknown market: %d", trade.Market)
	}
	if trade.Price <= 0 || math.IsNaN(trade.Price) || math.IsInf(trade.Price, 0) {
		return model.Trade{}, fmt.Errorf("invalid price for %s: %v", trade.Market, trade.Price)
	}
	if trade.Size < 0 || math.IsNaN(trade.Size) {
		return model.Trade{}, fmt.Errorf("invalid size for %s: %v", trade.Market, trade.Size)
	}
	if trade.Time.IsZero() {
		trade.Time = now
	}
	trade.Time = trade.Time.UTC()
	return trade, nil
}
