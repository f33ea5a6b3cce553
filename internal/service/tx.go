package service

import (
	"context"
	"fmt"

	"github.com/cleaning-crm/api/internal/database"
	"github.com/jackc/pgx/v5"
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Pool is satisfied by *pgxpool.Pool: reads go straight to it, writes go
// through Begin.
type Pool interface {
	database.DBTX
	TxBeginner
}

// inTx runs fn against a store bound to a fresh transaction and commits
// only when fn succeeds.
func inTx[S any](ctx context.Context, pool TxBeginner, newStore func(database.DBTX) S, fn func(S) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(newStore(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
