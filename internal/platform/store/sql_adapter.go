package store

import (
	"context"
	"errors"
	"io"
	"time"

	"formdata/internal/platform/store/pg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgxQuerier is the subset shared by *pgxpool.Pool and pgx.Tx
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// traced implements RowQuerier over a pool or a tx and reports each call to the tracer
type traced struct {
	q      pgxQuerier
	tracer pg.QueryTracer
	slowMs int
}

func (t traced) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	start := time.Now()
	ct, err := t.q.Exec(ctx, sql, args...)
	t.emit(ctx, sql, args, start, err)
	return tag{ct}, err
}

func (t traced) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	start := time.Now()
	rs, err := t.q.Query(ctx, sql, args...)
	t.emit(ctx, sql, args, start, err)
	if err != nil {
		return nil, err
	}
	return rows{r: rs}, nil
}

// QueryRow reports once Scan returns so the scan error is included
func (t traced) QueryRow(ctx context.Context, sql string, args ...any) Row {
	start := time.Now()
	return row{r: t.q.QueryRow(ctx, sql, args...), after: func(err error) {
		t.emit(ctx, sql, args, start, err)
	}}
}

func (t traced) emit(ctx context.Context, sql string, args []any, start time.Time, err error) {
	if t.tracer == nil {
		return
	}
	us := time.Since(start).Microseconds()
	t.tracer.OnQuery(ctx, pg.QueryEvent{
		SQL:       sql,
		Args:      args,
		ElapsedUS: us,
		Err:       err,
		Slow:      t.slowMs >= 0 && us >= int64(t.slowMs)*1000,
	})
}

// pgAdapter wraps pg.PG and implements TxRunner and LargeObjects
type pgAdapter struct {
	traced
	p *pg.PG
}

func newPGAdapter(p *pg.PG) *pgAdapter {
	return &pgAdapter{traced: traced{q: p.Pool, tracer: p.Tracer, slowMs: p.SlowMs}, p: p}
}

func (a *pgAdapter) Ping(ctx context.Context) error {
	if a == nil || a.p == nil {
		return errors.New("pg: nil adapter")
	}
	var one int
	return a.QueryRow(ctx, "SELECT 1").Scan(&one)
}

func (a *pgAdapter) Close() error { a.p.Close(); return nil }

func (a *pgAdapter) Tx(ctx context.Context, fn func(q RowQuerier) error) error {
	return a.withTx(ctx, func(tx pgx.Tx) error {
		return fn(traced{q: tx, tracer: a.tracer, slowMs: a.slowMs})
	})
}

// WriteLargeObject streams r into a new large object; a failed copy rolls the object back
func (a *pgAdapter) WriteLargeObject(ctx context.Context, r io.Reader) (oid uint32, n int64, err error) {
	start := time.Now()
	defer func() { a.emit(ctx, "lo_write", []any{oid}, start, err) }()

	err = a.withTx(ctx, func(tx pgx.Tx) error {
		los := tx.LargeObjects()
		id, err := los.Create(ctx, 0)
		if err != nil {
			return err
		}
		obj, err := los.Open(ctx, id, pgx.LargeObjectModeWrite)
		if err != nil {
			return err
		}
		n, err = io.Copy(obj, r)
		if cerr := obj.Close(); err == nil {
			err = cerr
		}
		oid = id
		return err
	})
	if err != nil {
		oid = 0
	}
	return oid, n, err
}

// ReadLargeObject copies a large object into w
func (a *pgAdapter) ReadLargeObject(ctx context.Context, oid uint32, w io.Writer) (n int64, err error) {
	start := time.Now()
	defer func() { a.emit(ctx, "lo_read", []any{oid}, start, err) }()

	err = a.withTx(ctx, func(tx pgx.Tx) error {
		obj, err := tx.LargeObjects().Open(ctx, oid, pgx.LargeObjectModeRead)
		if err != nil {
			return err
		}
		defer obj.Close()
		n, err = io.Copy(w, obj)
		return err
	})
	return n, err
}

// RemoveLargeObject unlinks a large object
func (a *pgAdapter) RemoveLargeObject(ctx context.Context, oid uint32) (err error) {
	start := time.Now()
	defer func() { a.emit(ctx, "lo_unlink", []any{oid}, start, err) }()

	return a.withTx(ctx, func(tx pgx.Tx) error {
		return tx.LargeObjects().Unlink(ctx, oid)
	})
}

func (a *pgAdapter) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := a.p.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

type row struct {
	r     pgx.Row
	after func(error)
}

func (x row) Scan(dst ...any) error {
	err := x.r.Scan(dst...)
	if x.after != nil {
		x.after(err)
	}
	return err
}

type rows struct{ r pgx.Rows }

func (x rows) Next() bool            { return x.r.Next() }
func (x rows) Scan(dst ...any) error { return x.r.Scan(dst...) }
func (x rows) Err() error            { return x.r.Err() }
func (x rows) Close()                { x.r.Close() }

func (x rows) Columns() []string {
	fds := x.r.FieldDescriptions()
	out := make([]string, len(fds))
	for i, fd := range fds {
		out[i] = fd.Name
	}
	return out
}

type tag struct{ t pgconn.CommandTag }

func (t tag) String() string      { return t.t.String() }
func (t tag) RowsAffected() int64 { return t.t.RowsAffected() }
