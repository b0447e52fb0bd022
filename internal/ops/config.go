package ops

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"marketshm/internal/engine"
	"marketshm/internal/feed"
	"marketshm/internal/model/enum"
	"marketshm/internal/store"
)

const (
	// EnvPrefix prefixes environment overrides, e.g. MARKETSHM_FEED_TICK.
	EnvPrefix = "MARKETSHM"

	// EnvConfig carries the config file path to process mode children.
	EnvConfig = EnvPrefix + "_CONFIG"
)

// FileConfig mirrors the config file layout.
type FileConfig struct {
	Domain   string         `mapstructure:"domain"`
	ShmDir   string         `mapstructure:"shm_dir"`
	Markets  []string       `mapstructure:"markets"`
	Interval string         `mapstructure:"interval"`
	Rows     int            `mapstructure:"rows"`
	Window   int            `mapstructure:"window"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// EngineConfig selects the engine concurrency mode.
type EngineConfig struct {
	Mode        string        `mapstructure:"mode"`
	StopTimeout time.Duration `mapstructure:"stop_timeout"`
}

// FeedConfig drives the synthetic trade generator.
type FeedConfig struct {
	Tick       time.Duration `mapstructure:"tick"`
	BasePrice  float64       `mapstructure:"base_price"`
	Volatility float64       `mapstructure:"volatility"`
	BaseSize   float64       `mapstructure:"base_size"`
	Seed       int64         `mapstructure:"seed"`
	QueueSize  int           `mapstructure:"queue_size"`
}

// RedisConfig enables roll notifications.
type RedisConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Channel string `mapstructure:"channel"`
}

// PostgresConfig enables the producer run journal.
type PostgresConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// MetricsConfig exposes prometheus metrics and profiling.
type MetricsConfig struct {
	Addr      string `mapstructure:"addr"`
	Pyroscope string `mapstructure:"pyroscope"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	File       FileConfig
	Markets    []enum.Market
	Interval   enum.Interval
	EngineMode engine.Mode
}

// Series returns the store config of one market.
func (l Loaded) Series(market enum.Market) store.SeriesConfig {
	return store.SeriesConfig{
		Domain:   l.File.Domain,
		Market:   market,
		Interval: l.Interval,
		Rows:     l.File.Rows,
		Dir:      l.File.ShmDir,
	}
}

// Monitoring returns the monitoring aggregate config.
func (l Loaded) Monitoring() store.MonitoringConfig {
	return store.MonitoringConfig{
		Domain:  l.File.Domain,
		Markets: l.Markets,
		Window:  l.File.Window,
		Dir:     l.File.ShmDir,
	}
}

// Feed returns the producer worker config.
func (l Loaded) Feed() feed.Config {
	return feed.Config{
		Domain:    l.File.Domain,
		Dir:       l.File.ShmDir,
		Markets:   l.Markets,
		Interval:  l.Interval,
		Rows:      l.File.Rows,
		Window:    l.File.Window,
		Tick:      l.File.Feed.Tick,
		QueueSize: l.File.Feed.QueueSize,
		Generator: feed.GeneratorConfig{
			BasePrice:  l.File.Feed.BasePrice,
			BaseSize:   l.File.Feed.BaseSize,
			Volatility: l.File.Feed.Volatility,
			Seed:       l.File.Feed.Seed,
		},
		Channel: l.File.Redis.Channel,
	}
}

// Engine returns the engine config.
func (l Loaded) Engine() engine.Config {
	return engine.Config{Mode: l.EngineMode, Dir: l.File.ShmDir}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("domain", store.DefaultDomain)
	v.SetDefault("markets", []string{enum.MarketBTCUSDPerp.String(), enum.MarketETHUSDPerp.String()})
	v.SetDefault("interval", string(enum.Interval1m))
	v.SetDefault("rows", store.DefaultCandleRows)
	v.SetDefault("window", store.DefaultWindow)
	v.SetDefault("engine.mode", engine.ModeThread.String())
	v.SetDefault("engine.stop_timeout", 5*time.Second)
	v.SetDefault("feed.tick", 100*time.Millisecond)
	v.SetDefault("feed.base_price", 100.0)
	v.SetDefault("feed.volatility", 0.001)
	v.SetDefault("feed.base_size", 1.0)
	v.SetDefault("feed.queue_size", 1024)
	v.SetDefault("redis.channel", "marketshm.candles")
	v.SetDefault("metrics.addr", "")
}

// Load reads a YAML or JSON config file. An empty path uses defaults and
// environment overrides only.
func Load(path string) (Loaded, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Loaded{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg FileConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return Loaded{}, fmt.Errorf("decode config: %w", err)
	}
	return resolve(cfg)
}

func resolve(cfg FileConfig) (Loaded, error) {
	if len(cfg.Markets) == 0 {
		return Loaded{}, fmt.Errorf("invalid config: markets must not be empty")
	}
	markets := make([]enum.Market, 0, len(cfg.Markets))
	for _, name := range cfg.Markets {
		m, ok := enum.ParseMarket(name)
		if !ok {
			return Loaded{}, fmt.Errorf("invalid config: unknown market %q", name)
		}
		markets = append(markets, m)
	}

	interval := enum.Interval(cfg.Interval)
	if !interval.IsAvailable() {
		return Loaded{}, fmt.Errorf("invalid config: unknown interval %q", cfg.Interval)
	}

	mode, ok := engine.ParseMode(cfg.Engine.Mode)
	if !ok {
		return Loaded{}, fmt.Errorf("invalid config: unknown engine mode %q", cfg.Engine.Mode)
	}

	if cfg.Rows <= 0 || cfg.Window <= 0 {
		return Loaded{}, fmt.Errorf("invalid config: rows and window must be > 0")
	}
	if cfg.Feed.Tick <= 0 {
		return Loaded{}, fmt.Errorf("invalid config: feed tick must be > 0")
	}
	if cfg.Feed.BasePrice <= 0 {
		return Loaded{}, fmt.Errorf("invalid config: feed base price must be > 0")
	}
	if cfg.Redis.Enabled && cfg.Redis.Channel == "" {
		return Loaded{}, fmt.Errorf("invalid config: redis channel is empty")
	}

	return Loaded{
		File:       cfg,
		Markets:    markets,
		Interval:   interval,
		EngineMode: mode,
	}, nil
}
