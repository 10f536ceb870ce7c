package store

import (
	"context"
	"fmt"
	"time"

	chx "formdata/internal/platform/store/ch"
	"formdata/internal/platform/store/pg"
)

const (
	defaultConnectRetries = 20
	defaultPingTimeout    = 3 * time.Second
	backoffStart          = 150 * time.Millisecond
	backoffCeiling        = 2 * time.Second
)

var (
	openPGClient = pg.Open
	openCHClient = chx.Open
	sleep        = time.Sleep
)

// openPG opens pg and wraps it with our sql adapter once the pool answers pings
func openPG(ctx context.Context, cfg Config, s *Store) (TxRunner, error) {
	var opts []pg.Option
	if cfg.PG.LogSQL {
		opts = append(opts, pg.WithTracer(pg.Tracer(s.Log)))
	}

	p, err := openPGClient(ctx, pg.Config{
		URL:      cfg.PG.URL,
		MaxConns: cfg.PG.MaxConns,
		SlowMs:   cfg.PG.SlowQueryMs,
	}, opts...)
	if err != nil {
		return nil, err
	}

	err = withBackoff(ctx, cfg.PG.ConnectRetries, cfg.PG.PingTimeout, p.Pool.Ping)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}
	return newPGAdapter(p), nil
}

func openCH(ctx context.Context, cfg Config, s *Store) (Clickhouse, error) {
	c, err := openCHClient(ctx, chx.Config{URL: cfg.CH.URL, Role: cfg.CH.Role, Tag: cfg.AppName})
	if err != nil {
		return nil, err
	}
	s.Log.Debug().Str("role", cfg.CH.Role).Msg("clickhouse connected")
	return newCHAdapter(c), nil
}

// withBackoff retries ping with exponential backoff until it succeeds, attempts run out or ctx ends
func withBackoff(ctx context.Context, attempts int, timeout time.Duration, ping func(context.Context) error) error {
	if attempts <= 0 {
		attempts = defaultConnectRetries
	}
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}

	var lastErr error
	backoff := backoffStart
	for i := 0; i < attempts; i++ {
		toCtx, cancel := context.WithTimeout(ctx, timeout)
		lastErr = ping(toCtx)
		cancel()
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		sleep(backoff)
		backoff = min(backoff*2, backoffCeiling)
	}
	return fmt.Errorf("ping failed after %d attempts: %w", attempts, lastErr)
}
