package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrInvalidRedisURL = errors.New("session: invalid redis url")
	ErrRedisNotReady   = errors.New("session: redis not ready")
)

// RedisConfig configures the denylist's Redis connection. Env tags allow
// loading it with config.Load.
type RedisConfig struct {
	URL            string        `env:"AUTHGATE_REDIS_URL" envDefault:"redis://localhost:6379/0"`
	RetryAttempts  int           `env:"AUTHGATE_REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"AUTHGATE_REDIS_RETRY_INTERVAL" envDefault:"5s"`
	ConnectTimeout time.Duration `env:"AUTHGATE_REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
}

// ConnectRedisDenylist dials Redis with retries and wraps the verified
// client in a RedisDenylist.
func ConnectRedisDenylist(ctx context.Context, cfg RedisConfig) (*RedisDenylist, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, errors.Join(ErrInvalidRedisURL, err)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	for range cfg.RetryAttempts {
		client := redis.NewClient(opt)
		if err := client.Ping(ctx).Err(); err == nil {
			return NewRedisDenylist(client), nil
		}
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrRedisNotReady, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}
	return nil, ErrRedisNotReady
}
