// Package store provides a unified interface to the optional storage backends:
// postgres for upload manifests and large objects, clickhouse for upload events
package store

import (
	"context"
	"errors"
	"fmt"
	"io"

	"formdata/internal/platform/logger"
)

// Store is the facade for optional backends
// zero value is safe but does nothing
type Store struct {
	// Log is the logger used by subclients
	// zero means a no op zerolog logger
	Log logger.Logger

	// PG is the postgres sql seam, nil when disabled
	PG TxRunner

	// CH is the clickhouse seam, nil when disabled
	CH Clickhouse
}

// Row exposes the minimal scan contract a single row needs
type Row interface {
	Scan(dest ...any) error
}

// Rows exposes the minimal iteration and scan for a result set
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
	Columns() []string
}

// CommandTag is a tiny interface to inspect command results
type CommandTag interface {
	String() string
	RowsAffected() int64
}

// RowQuerier is the read and write surface repos use for sql
type RowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// TxRunner wraps transaction execution around a function
type TxRunner interface {
	RowQuerier
	Tx(ctx context.Context, fn func(q RowQuerier) error) error
}

// LargeObjects streams bytes in and out of pg_largeobject
type LargeObjects interface {
	// WriteLargeObject copies r into a new large object and returns its oid and size
	WriteLargeObject(ctx context.Context, r io.Reader) (oid uint32, n int64, err error)
	// ReadLargeObject copies a large object into w
	ReadLargeObject(ctx context.Context, oid uint32, w io.Writer) (int64, error)
	// RemoveLargeObject unlinks a large object
	RemoveLargeObject(ctx context.Context, oid uint32) error
}

// Clickhouse is a tiny seam for columnar writes and queries
type Clickhouse interface {
	Insert(ctx context.Context, table string, data any) error
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	Close() error
}

// Execer is implemented by clickhouse seams that can run DDL
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) error
}

// Pinger is any seam that can report readiness
type Pinger interface{ Ping(context.Context) error }

// Open connects the backends enabled in cfg; disabled ones stay nil
// a failing backend closes the ones already opened
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	s := &Store{}
	for _, o := range opts {
		if err := o(s); err != nil {
			return nil, err
		}
	}
	s.Log = s.Log.With().Str("component", "store").Logger()

	if cfg.PG.Enabled {
		pg, err := openPG(ctx, cfg, s)
		if err != nil {
			return nil, err
		}
		s.PG = pg
	}
	if cfg.CH.Enabled {
		ch, err := openCH(ctx, cfg, s)
		if err != nil {
			_ = s.Close(ctx)
			return nil, err
		}
		s.CH = ch
	}
	return s, nil
}

// LargeObjects returns the large object seam when postgres is enabled
func (s *Store) LargeObjects() (LargeObjects, bool) {
	if s == nil || s.PG == nil {
		return nil, false
	}
	lo, ok := s.PG.(LargeObjects)
	return lo, ok
}

type seam struct {
	name string
	v    any
}

// seams lists the enabled backends by name
func (s *Store) seams() []seam {
	if s == nil {
		return nil
	}
	var out []seam
	if s.PG != nil {
		out = append(out, seam{"pg", s.PG})
	}
	if s.CH != nil {
		out = append(out, seam{"ch", s.CH})
	}
	return out
}

// Guard pings every enabled backend that can be pinged and joins the failures
func (s *Store) Guard(ctx context.Context) error {
	if s == nil {
		return errors.New("nil store")
	}
	var errs []error
	for _, b := range s.seams() {
		if p, ok := b.v.(Pinger); ok {
			if err := p.Ping(ctx); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", b.name, err))
			}
		}
	}
	return errors.Join(errs...)
}

// Close closes every enabled backend and joins the failures
func (s *Store) Close(_ context.Context) error {
	var errs []error
	for _, b := range s.seams() {
		if c, ok := b.v.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", b.name, err))
			}
		}
	}
	return errors.Join(errs...)
}
