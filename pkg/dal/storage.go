package dal

import (
	"context"
	"database/sql"

	"github.com/evgeny-myasishchev/ledger.engine/pkg/lib-core-golang/diag"
)

var logger = diag.CreateLogger()

// Querier is a subset of sql.DB and sql.Tx used by stores
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Unit is an atomic unit of work. Everything written through the unit
// is either committed together or not at all
type Unit interface {
	Querier

	// Lock acquires an exclusive lock of the given row key. The lock is held
	// until the unit commits or rolls back. Waiting for the lock can be
	// interrupted by the ctx, the unit should be aborted in such a case.
	// Locking the same key twice within the unit is a no-op
	Lock(ctx context.Context, key string) error

	Dialect() Dialect
}

// UnitFunc is a body of an atomic unit. Returning an error rolls the unit back
type UnitFunc func(ctx context.Context, unit Unit) error

// Storage is a persistance layer
type Storage interface {
	// Setup creates the schema if missing and verifies the encoding version
	Setup(ctx context.Context) error

	// DB is a querier for reads outside of units
	DB() Querier

	Dialect() Dialect

	// RunInUnit runs fn in a new atomic unit. The unit is committed if fn
	// returns no error and rolled back otherwise. Errors of the fn are returned as is
	RunInUnit(ctx context.Context, fn UnitFunc) error

	Close() error
}
