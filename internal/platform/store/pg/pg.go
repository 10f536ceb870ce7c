// Package pg opens the postgres pool that backs upload manifests and large object sinks
package pg

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config configures the pool
type Config struct {
	URL      string
	MaxConns int32
	// SlowMs marks queries at or above this latency as slow; negative disables
	SlowMs int
}

// PG is a pool plus the optional query tracer
type PG struct {
	Pool   *pgxpool.Pool
	Tracer QueryTracer
	SlowMs int
}

// Option customizes Open
type Option func(*PG, *pgxpool.Config)

// WithTracer reports every query to t
func WithTracer(t QueryTracer) Option {
	return func(p *PG, _ *pgxpool.Config) { p.Tracer = t }
}

// WithPoolConfig mutates the parsed pool config before the pool is built
func WithPoolConfig(fn func(*pgxpool.Config)) Option {
	return func(_ *PG, pc *pgxpool.Config) { fn(pc) }
}

var newPool = pgxpool.NewWithConfig

// Open parses cfg.URL and builds the pool; it does not ping
func Open(ctx context.Context, cfg Config, opts ...Option) (*PG, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}

	p := &PG{SlowMs: cfg.SlowMs}
	for _, o := range opts {
		o(p, pcfg)
	}

	if p.Pool, err = newPool(ctx, pcfg); err != nil {
		return nil, err
	}
	return p, nil
}

// Close closes the pool; safe on nil
func (p *PG) Close() {
	if p != nil && p.Pool != nil {
		p.Pool.Close()
	}
}
