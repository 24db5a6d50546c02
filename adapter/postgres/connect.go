package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrInvalidConnString = errors.New("postgres: invalid connection string")
	ErrNotReady          = errors.New("postgres: connection not ready")
)

// Config tunes the connection pool. Env tags allow loading it with
// config.Load.
type Config struct {
	ConnString        string        `env:"AUTHGATE_PG_URL,required"`
	MaxOpenConns      int32         `env:"AUTHGATE_PG_MAX_OPEN_CONNS" envDefault:"10"`
	MinIdleConns      int32         `env:"AUTHGATE_PG_MIN_IDLE_CONNS" envDefault:"2"`
	MaxConnIdleTime   time.Duration `env:"AUTHGATE_PG_MAX_CONN_IDLE_TIME" envDefault:"10m"`
	MaxConnLifetime   time.Duration `env:"AUTHGATE_PG_MAX_CONN_LIFETIME" envDefault:"30m"`
	HealthCheckPeriod time.Duration `env:"AUTHGATE_PG_HEALTHCHECK_PERIOD" envDefault:"1m"`
	RetryAttempts     int           `env:"AUTHGATE_PG_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval     time.Duration `env:"AUTHGATE_PG_RETRY_INTERVAL" envDefault:"5s"`
}

// Connect opens a pgx pool and verifies it with a ping, retrying with a
// linear backoff so the engine survives a database that comes up a few
// seconds later.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.ConnString)
	if err != nil {
		return nil, errors.Join(ErrInvalidConnString, err)
	}
	poolCfg.MaxConns = cfg.MaxOpenConns
	poolCfg.MinConns = cfg.MinIdleConns
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.HealthCheckPeriod = cfg.HealthCheckPeriod

	for i := range cfg.RetryAttempts {
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
			pool.Close()
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrNotReady, ctx.Err())
		case <-time.After(time.Duration(i+1) * cfg.RetryInterval):
		}
	}
	return nil, ErrNotReady
}

// Healthcheck adapts the pool to the func(ctx) error shape health
// endpoints expect.
func Healthcheck(pool *pgxpool.Pool) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return errors.Join(ErrNotReady, err)
		}
		return nil
	}
}
