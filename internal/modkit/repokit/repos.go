// Package repokit holds the seams service layers use to reach repos without naming a driver
package repokit

import (
	"context"

	perr "formdata/internal/platform/errors"
	"formdata/internal/platform/store"
)

// Queryer is the read and write surface repos bind to
type Queryer = store.RowQuerier

// TxRunner runs a function inside a transaction
type TxRunner = store.TxRunner

// WithTx runs fn inside one transaction on tx; a nil tx means postgres is disabled
func WithTx(ctx context.Context, tx TxRunner, fn func(q Queryer) error) error {
	if tx == nil {
		return perr.Unavailablef("postgres is not configured")
	}
	return tx.Tx(ctx, fn)
}
