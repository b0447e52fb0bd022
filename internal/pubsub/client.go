package pubsub

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"marketshm/internal/errors"
)

const (
	defaultHost = "localhost"
	defaultPort = 6379
)

// Config addresses the redis server. Empty fields are read from REDIS_HOST,
// REDIS_PORT, REDIS_USERNAME and REDIS_PASSWORD.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	DB       int
}

// ConfigFromEnv fills every empty field from the environment.
func ConfigFromEnv(cfg Config) (Config, error) {
	if cfg.Host == "" {
		cfg.Host = envOr("REDIS_HOST", defaultHost)
	}
	if cfg.Port == 0 {
		port, err := strconv.Atoi(envOr("REDIS_PORT", strconv.Itoa(defaultPort)))
		if err != nil {
			return Config{}, fmt.Errorf("invalid redis config: port: %w", err)
		}
		cfg.Port = port
	}
	if cfg.Username == "" {
		cfg.Username = os.Getenv("REDIS_USERNAME")
	}
	if cfg.Password == "" {
		cfg.Password = os.Getenv("REDIS_PASSWORD")
	}
	return cfg, nil
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NewClient connects and pings the server.
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	cfg, err := ConfigFromEnv(cfg)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrapf(err, "ping redis %s", cfg.Addr())
	}
	return rdb, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
