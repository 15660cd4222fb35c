package db

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

// Executor is satisfied by both *sqlx.DB and *sqlx.Tx so store functions can
// run standalone or inside a caller's transaction.
type Executor interface {
	sqlx.ExtContext
}

// WithTx runs fn inside a transaction. Any error or panic from fn rolls the
// transaction back; otherwise it is committed.
func WithTx(ctx context.Context, conn *sqlx.DB, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// WithReadTx runs fn inside a deferred transaction on one pinned connection,
// so fn sees a single snapshot. Unlike WithTx it does not take the write lock
// up front; SQLite only acquires a shared lock once fn first reads. fn must
// not write.
func WithReadTx(ctx context.Context, conn *sqlx.DB, fn func(ex Executor) error) (err error) {
	c, err := conn.Connx(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer c.Close()

	if _, err = c.ExecContext(ctx, "BEGIN DEFERRED"); err != nil {
		return fmt.Errorf("begin read tx: %w", err)
	}
	// The transaction must end even when ctx is canceled, or the connection
	// would go back to the pool with it still open.
	end := context.WithoutCancel(ctx)
	defer func() {
		if p := recover(); p != nil {
			_, _ = c.ExecContext(end, "ROLLBACK")
			panic(p)
		}
		if err != nil {
			_, _ = c.ExecContext(end, "ROLLBACK")
		}
	}()

	if err = fn(pinnedConn{Conn: c, driverName: conn.DriverName()}); err != nil {
		return err
	}
	if _, err = c.ExecContext(end, "COMMIT"); err != nil {
		return fmt.Errorf("end read tx: %w", err)
	}
	return nil
}

// pinnedConn adapts a single pooled connection to Executor.
type pinnedConn struct {
	*sqlx.Conn
	driverName string
}

func (p pinnedConn) DriverName() string { return p.driverName }

func (p pinnedConn) Rebind(query string) string {
	return sqlx.Rebind(sqlx.BindType(p.driverName), query)
}

func (p pinnedConn) BindNamed(query string, arg interface{}) (string, []interface{}, error) {
	return sqlx.BindNamed(sqlx.BindType(p.driverName), query, arg)
}

// Get scans a single row produced by q into dest.
func Get(ctx context.Context, ex Executor, dest interface{}, q sq.Sqlizer) error {
	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return sqlx.GetContext(ctx, ex, dest, query, args...)
}

// Select scans all rows produced by q into dest, which must be a slice.
func Select(ctx context.Context, ex Executor, dest interface{}, q sq.Sqlizer) error {
	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return sqlx.SelectContext(ctx, ex, dest, query, args...)
}

// Exec runs a statement that returns no rows.
func Exec(ctx context.Context, ex Executor, q sq.Sqlizer) (sql.Result, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build statement: %w", err)
	}
	return ex.ExecContext(ctx, query, args...)
}

// InsertReturningID runs an INSERT built with a RETURNING id suffix.
func InsertReturningID(ctx context.Context, ex Executor, q sq.InsertBuilder) (int64, error) {
	var id int64
	if err := Get(ctx, ex, &id, q.Suffix("RETURNING id")); err != nil {
		return 0, err
	}
	return id, nil
}
