// Package redis opens the Redis client the session store runs on:
// URL-based configuration, ping-with-retry at startup, healthcheck
// probe.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrParseURL    = errors.New("redis: parse connection url")
	ErrNotReady    = errors.New("redis: server not ready")
	ErrHealthcheck = errors.New("redis: healthcheck failed")
)

// Config carries the connection settings. Retries cover the startup
// window before the Redis container accepts connections.
type Config struct {
	URL            string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"5"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"3s"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
}

// Connect parses the URL, opens a client, and pings until the server
// answers or the attempts run out.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseURL, err)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := range attempts {
		if i > 0 {
			select {
			case <-time.After(cfg.RetryInterval):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %w", ErrNotReady, ctx.Err())
			}
		}

		client := redis.NewClient(opt)
		err := client.Ping(ctx).Err()
		if err == nil {
			return client, nil
		}
		lastErr = err
		_ = client.Close()
	}

	return nil, fmt.Errorf("%w: %w", ErrNotReady, lastErr)
}

// Healthcheck adapts the client to the func(ctx) error probe shape.
func Healthcheck(client redis.UniversalClient) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrHealthcheck, err)
		}
		return nil
	}
}
