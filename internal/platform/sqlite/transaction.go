package sqlite

import (
	"context"
	"database/sql"
	"errors"
)

type txContextKey struct{}

// Querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Repositories run against it so the same code serves both transactional and
// standalone calls.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Querier resolves the querier for the given context: the enclosing
// transaction when one is running, the shared handle otherwise.
func (p *Provider) Querier(ctx context.Context) (Querier, error) {
	if tx, ok := ctx.Value(txContextKey{}).(*sql.Tx); ok && tx != nil {
		return tx, nil
	}
	return p.DB(ctx)
}

// RunInTx executes fn within a single transaction. The transaction is carried
// on the context handed to fn, so repository calls made with it join the
// transaction automatically. Any error from fn rolls everything back.
func (p *Provider) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx == nil {
		return WrapError("transaction", errors.New("sqlite: context is required"))
	}
	if fn == nil {
		return WrapError("transaction", errors.New("sqlite: transaction function is nil"))
	}
	if tx, ok := ctx.Value(txContextKey{}).(*sql.Tx); ok && tx != nil {
		// Already inside a transaction; join it.
		return fn(ctx)
	}

	db, err := p.DB(ctx)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return WrapError("begin transaction", err)
	}

	txCtx := context.WithValue(ctx, txContextKey{}, tx)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return WrapError("commit transaction", err)
	}
	return nil
}
