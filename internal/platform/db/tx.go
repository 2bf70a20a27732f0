package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockdesk/stockdesk/internal/shared"
)

// WithTx executes fn inside a read-committed transaction. The deferred
// rollback guarantees the transaction never outlives the request on any exit
// path; commit and begin failures are reported as TransactionError so callers
// can distinguish them from row-level errors raised inside fn.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return &shared.TransactionError{Err: err}
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return &shared.TransactionError{Err: err}
	}

	return nil
}
