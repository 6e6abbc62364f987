package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

// DBTxKey carries an open transaction through the context so repositories
// participate in the caller's transaction instead of hitting the pool
// directly.
const DBTxKey contextKey = "db_tx"

// TxFromContext retrieves the transaction from context, or nil when the
// caller did not open one.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(DBTxKey).(pgx.Tx)
	return tx
}

// WithTxContext returns a child context carrying tx.
func WithTxContext(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, DBTxKey, tx)
}

// Runner executes a function inside a single atomic commit. The commit either
// fully applies or not at all; a failed commit leaves no partial state.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// PoolRunner is the pgx-backed Runner used in production.
type PoolRunner struct {
	pool *pgxpool.Pool
}

// NewRunner returns a Runner over the given pool.
func NewRunner(pool *pgxpool.Pool) *PoolRunner {
	return &PoolRunner{pool: pool}
}

// RunInTx begins a transaction, injects it into the context passed to fn, and
// commits when fn returns nil. Any error from fn rolls the transaction back
// and is returned unchanged. Nested calls reuse the outer transaction.
func (r *PoolRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if TxFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(WithTxContext(ctx, tx)); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
