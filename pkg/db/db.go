package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/japaniel/ferdinand/pkg/apperrors"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Builder produces SQLite-flavoured statements.
var Builder = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// Options describes how to reach a project database.
type Options struct {
	// Path is a file path or ":memory:".
	Path        string
	BusyTimeout time.Duration
}

// DSN renders the go-sqlite3 connection string. Foreign keys are switched on
// for every pooled connection, and transactions take the write lock up front
// so concurrent writers queue on the busy timeout instead of deadlocking.
func (o Options) DSN() string {
	params := url.Values{}
	params.Set("_foreign_keys", "on")
	params.Set("_txlock", "immediate")
	timeout := o.BusyTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	params.Set("_busy_timeout", strconv.FormatInt(timeout.Milliseconds(), 10))

	path := o.Path
	if path == "" || path == ":memory:" {
		path = ":memory:"
	}
	return "file:" + path + "?" + params.Encode()
}

// Open connects to the project database, verifies referential integrity is
// enforced and runs pending migrations.
func Open(ctx context.Context, opts Options, logger *zap.Logger) (*sqlx.DB, error) {
	conn, err := sqlx.Open("sqlite3", opts.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if opts.Path == "" || opts.Path == ":memory:" {
		// Each connection to :memory: is a separate database.
		conn.SetMaxOpenConns(1)
	}

	if err := CheckForeignKeys(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}
	if err := Migrate(conn, logger); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// CheckForeignKeys fails with ErrForeignKeysDisabled when the connection would
// silently orphan rows instead of cascading deletes.
func CheckForeignKeys(ctx context.Context, ex Executor) error {
	var enabled int
	if err := sqlx.GetContext(ctx, ex, &enabled, "PRAGMA foreign_keys"); err != nil {
		return fmt.Errorf("query foreign_keys pragma: %w", err)
	}
	if enabled != 1 {
		return apperrors.ErrForeignKeysDisabled
	}
	return nil
}

// Migrate applies the embedded schema migrations. It is idempotent.
func Migrate(conn *sqlx.DB, logger *zap.Logger) error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open migration source: %w", err)
	}
	driver, err := sqlite3.WithInstance(conn.DB, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	// The migrate instance is not closed: the sqlite3 driver would close conn with it.
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Debug("No migrations to apply (database up-to-date)")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, _, _ := m.Version()
	logger.Info("Applied migrations successfully", zap.Uint("version", version))
	return nil
}
