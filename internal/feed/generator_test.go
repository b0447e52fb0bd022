package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketshm/internal/model"
	"marketshm/internal/model/enum"
)

func TestGeneratorRoundRobin(t *testing.T) {
	g, err := NewGenerator(GeneratorConfig{
		Markets:    []enum.Market{enum.MarketBTCUSD, enum.MarketETHUSD},
		BasePrice:  100,
		Volatility: 0.01,
		Seed:       7,
	})
	require.NoError(t, err)

	now := time.Unix(1_700_000_000, 0).UTC()
	var got []enum.Market
	for i := 0; i < 4; i++ {
		trade := g.Next(now)
		got = append(got, trade.Market)
		assert.Positive(t, trade.Price)
		assert.Positive(t, trade.Size)
		assert.Equal(t, now, trade.Time)
	}
	assert.Equal(t, []enum.Market{enum.MarketBTCUSD, enum.MarketETHUSD, enum.MarketBTCUSD, enum.MarketETHUSD}, got)
}

func TestGeneratorDeterministicSeed(t *testing.T) {
	cfg := GeneratorConfig{Markets: []enum.Market{enum.MarketSOLUSD}, BasePrice: 10, Volatility: 0.05, Seed: 42}
	a, err := NewGenerator(cfg)
	require.NoError(t, err)
	b, err := NewGenerator(cfg)
	require.NoError(t, err)

	now := time.Now()
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Next(now), b.Next(now))
	}
}

func TestGeneratorFlatWithoutVolatility(t *testing.T) {
	g, err := NewGenerator(GeneratorConfig{Markets: []enum.Market{enum.MarketBTCUSD}, BasePrice: 5, Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, 5.0, g.Next(time.Now()).Price)
	assert.Equal(t, 5.0, g.Next(time.Now()).Price)
}

func TestNewGeneratorErrors(t *testing.T) {
	_, err := NewGenerator(GeneratorConfig{BasePrice: 1})
	assert.Error(t, err)
	_, err = NewGenerator(GeneratorConfig{Markets: []enum.Market{enum.MarketBTCUSD}})
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	now := time.Unix(100, 0)

	trade, err := Normalize(model.Trade{Market: enum.MarketBTCUSD, Price: 1, Size: 1}, now)
	require.NoError(t, err)
	assert.Equal(t, now.UTC(), trade.Time)

	_, err = Normalize(model.Trade{Market: 0, Price: 1}, now)
	assert.Error(t, err)
	_, err = Normalize(model.Trade{Market: enum.MarketBTCUSD, Price: 0}, now)
	assert.Error(t, err)
	_, err = Normalize(model.Trade{Market: enum.MarketBTCUSD, Price: 1, Size: -1}, now)
	assert.Error(t, err)
}
