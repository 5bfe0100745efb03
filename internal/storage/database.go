package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/conorfennell/knolsched/internal/domain"
	"github.com/conorfennell/knolsched/internal/sched"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DB is the collection store. It implements sched.Store on top of sqlite
// or postgres.
type DB struct {
	x  *sqlx.DB
	q  sqlx.ExtContext
	tx *sqlx.Tx
}

var _ sched.Store = (*DB)(nil)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Open connects to the database and ensures the schema is up to date.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	x, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if driver == DriverSQLite {
		// a single connection keeps ":memory:" databases alive and
		// serializes writers
		x.SetMaxOpenConns(1)
		x.SetMaxIdleConns(1)
		if _, err := x.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			x.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}
	for _, stmt := range schema {
		if _, err := x.ExecContext(ctx, stmt); err != nil {
			x.Close()
			return nil, fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return &DB{x: x, q: x}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.x.Close()
}

// Driver returns the name of the database driver in use.
func (db *DB) Driver() string {
	return db.x.DriverName()
}

// WithTx runs fn inside a transaction. Calls made on a DB that is already
// inside a transaction join it.
func (db *DB) WithTx(ctx context.Context, fn func(sched.Store) error) error {
	if db.tx != nil {
		return fn(db)
	}
	tx, err := db.x.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	if err := fn(&DB{x: db.x, q: tx, tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("failed to roll back: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// inTx is WithTx for the store's own multi-statement writes.
func (db *DB) inTx(ctx context.Context, fn func(*DB) error) error {
	return db.WithTx(ctx, func(s sched.Store) error {
		return fn(s.(*DB))
	})
}

// in expands slice arguments and rebinds the query for the driver.
func (db *DB) in(query string, args ...any) (string, []any, error) {
	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, err
	}
	return db.q.Rebind(query), args, nil
}

// nextID returns one past the largest id of table.
func (db *DB) nextID(ctx context.Context, table string) (int64, error) {
	var id int64
	err := sqlx.GetContext(ctx, db.q, &id, "SELECT COALESCE(MAX(id), 0) + 1 FROM "+table)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate %s id: %w", table, err)
	}
	return id, nil
}

// isUniqueViolation reports whether err is a unique constraint failure of
// either driver.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

func notFound(what string, id any) error {
	return fmt.Errorf("%s %v: %w", what, id, domain.ErrNotFound)
}
