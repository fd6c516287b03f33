package dal

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/pkg/errors"

	"github.com/evgeny-myasishchev/ledger.engine/pkg/lib-core-golang/diag"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/types"
)

const encodingVersionKey = "encoding_version"

type sqlStorage struct {
	db      *sql.DB
	dialect Dialect
	locks   *rowLocks
}

func (s *sqlStorage) Setup(ctx context.Context) error {
	logger.Info(ctx, "Setup %v storage", s.dialect.Name)
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "Failed to setup storage")
		}
	}

	if _, err := s.db.ExecContext(ctx, `
	INSERT INTO ledger_meta(key, value) VALUES($1, $2)
	ON CONFLICT(key) DO NOTHING`,
		encodingVersionKey, strconv.Itoa(types.EncodingVersion),
	); err != nil {
		return errors.Wrap(err, "Failed to setup storage")
	}

	var version string
	if err := s.db.QueryRowContext(ctx,
		`SELECT value FROM ledger_meta WHERE key = $1`, encodingVersionKey,
	).Scan(&version); err != nil {
		return errors.Wrap(err, "Failed to read encoding version")
	}
	if version != strconv.Itoa(types.EncodingVersion) {
		return errors.Errorf("Unsupported encoding version %v, expected %v", version, types.EncodingVersion)
	}
	return nil
}

func (s *sqlStorage) DB() Querier {
	return s.db
}

func (s *sqlStorage) Dialect() Dialect {
	return s.dialect
}

func (s *sqlStorage) Close() error {
	return s.db.Close()
}

// RunInUnit waits for a connection with the ctx. The transaction itself
// is not bound to the ctx cancellation, only waiting for row locks is
func (s *sqlStorage) RunInUnit(ctx context.Context, fn UnitFunc) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return errors.Wrap(err, "Failed to get connection")
	}
	defer conn.Close()

	tx, err := conn.BeginTx(context.WithoutCancel(ctx), nil)
	if err != nil {
		return errors.Wrap(err, "Failed to begin unit")
	}

	unit := &sqlUnit{tx: tx, dialect: s.dialect, locks: s.locks, held: map[string]func(){}}
	defer unit.releaseLocks()
	defer func() {
		if rec := recover(); rec != nil {
			unit.rollback(ctx)
			panic(rec)
		}
	}()

	if err := fn(ctx, unit); err != nil {
		unit.rollback(ctx)
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "Failed to commit unit")
	}
	return nil
}

type sqlUnit struct {
	tx      *sql.Tx
	dialect Dialect
	locks   *rowLocks
	held    map[string]func()
}

func (u *sqlUnit) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return u.tx.ExecContext(context.WithoutCancel(ctx), query, args...)
}

func (u *sqlUnit) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return u.tx.QueryContext(context.WithoutCancel(ctx), query, args...)
}

func (u *sqlUnit) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return u.tx.QueryRowContext(context.WithoutCancel(ctx), query, args...)
}

func (u *sqlUnit) Lock(ctx context.Context, key string) error {
	if _, ok := u.held[key]; ok {
		return nil
	}
	release, err := u.locks.acquire(ctx, key)
	if err != nil {
		return errors.Wrapf(err, "Failed to lock %v", key)
	}
	u.held[key] = release
	return nil
}

func (u *sqlUnit) Dialect() Dialect {
	return u.dialect
}

func (u *sqlUnit) rollback(ctx context.Context) {
	if err := u.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		logger.WithError(err).Error(ctx, "Failed to rollback unit")
	}
}

func (u *sqlUnit) releaseLocks() {
	for key, release := range u.held {
		release()
		delete(u.held, key)
	}
}

// SQLStorageOpt is an option of SQL storage
type SQLStorageOpt func(s *sqlStorage)

// WithSQLDb will set an explicit db instance for a storage
func WithSQLDb(db *sql.DB) SQLStorageOpt {
	return func(s *sqlStorage) {
		s.db = db
	}
}

// WithDialect will set the dialect of the db. sqlite3 is used by default
func WithDialect(dialect Dialect) SQLStorageOpt {
	return func(s *sqlStorage) {
		s.dialect = dialect
	}
}

// NewSQLStorage returns an instance of a sql storage
func NewSQLStorage(opts ...SQLStorageOpt) (Storage, error) {
	storage := &sqlStorage{
		dialect: sqlite3Dialect,
		locks:   newRowLocks(),
	}
	for _, opt := range opts {
		opt(storage)
	}
	if storage.db == nil {
		return nil, errors.New("Storage db is not provided")
	}
	logger.WithData(diag.MsgData{"dialect": storage.dialect.Name}).Debug(nil, "SQL storage created")
	return storage, nil
}
