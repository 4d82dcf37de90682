package sqlutil

import (
	"context"
	"database/sql"
	"fmt"
)

// Run executes fn against a query handle bound to a single transaction. A
// non-nil error from fn rolls the transaction back and is returned as-is;
// otherwise the transaction commits.
func Run[T any](
	ctx context.Context,
	database *sql.DB,
	bind func(*sql.Tx) *T,
	fn func(q *T) error,
) error {
	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(bind(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
