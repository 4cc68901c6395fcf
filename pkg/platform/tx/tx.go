// Package tx carries an open SQL transaction through context so the
// compliance stores can join a lifecycle transaction without widening their
// signatures: RunInTx binds the transaction, nested store calls pick it up
// via From, and callers outside a transaction fall back to the pool.
package tx

import (
	"context"
	"database/sql"
)

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx binds an open transaction to the context. Store methods invoked
// with the returned context execute inside that transaction, which is what
// makes SELECT ... FOR UPDATE row locks span a whole lifecycle transition.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From returns the transaction bound to the context. When ok is false the
// caller is outside RunInTx and should use its connection pool.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}
