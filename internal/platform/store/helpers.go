package store

import (
	"context"
	"errors"

	perr "formdata/internal/platform/errors"
)

var errExtraRow = errors.New("query returned more than one row")

// ExecOne runs a write that must touch exactly one row
func ExecOne(ctx context.Context, q RowQuerier, sql string, args ...any) error {
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if n := tag.RowsAffected(); n != 1 {
		return perr.Newf(perr.ErrorCodeDB, "%d rows affected, want 1", n)
	}
	return nil
}

// One maps the single row of a query through scan. No row is perr.ErrNotFound
func One[T any](ctx context.Context, q RowQuerier, scan func(Row) (T, error), sql string, args ...any) (T, error) {
	var zero T
	items, err := collect(ctx, q, scan, 1, sql, args)
	switch {
	case errors.Is(err, errExtraRow):
		return zero, perr.Wrap(err, perr.ErrorCodeDB, "expected one row")
	case err != nil:
		return zero, err
	case len(items) == 0:
		return zero, perr.ErrNotFound
	}
	return items[0], nil
}

// Many maps every row of a query through scan
func Many[T any](ctx context.Context, q RowQuerier, scan func(Row) (T, error), sql string, args ...any) ([]T, error) {
	return collect(ctx, q, scan, 0, sql, args)
}

// collect scans rows until the cursor ends; limit > 0 fails on row limit+1
func collect[T any](ctx context.Context, q RowQuerier, scan func(Row) (T, error), limit int, sql string, args []any) ([]T, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		if limit > 0 && len(out) == limit {
			return nil, errExtraRow
		}
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
