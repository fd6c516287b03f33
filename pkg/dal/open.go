package dal

import (
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	// Drivers of supported substrates
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const sqliteMemoryDSN = ":memory:"

// sqliteDSN enables foreign keys on every connection. File databases
// also take the write lock at the beginning of the unit so concurrent
// units wait for each other instead of failing on a lock upgrade
func sqliteDSN(dsn string) string {
	params := []string{"_foreign_keys=on"}
	if !isSQLiteMemory(dsn) {
		params = append(params, "_txlock=immediate", "_busy_timeout=5000")
	}
	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}
	return dsn + separator + strings.Join(params, "&")
}

func isSQLiteMemory(dsn string) bool {
	return strings.HasPrefix(dsn, sqliteMemoryDSN) ||
		strings.Contains(dsn, "mode=memory") ||
		strings.HasPrefix(dsn, "file::memory:")
}

// Open opens a db of a given driver with settings required by the storage
func Open(driver string, dsn string) (*sql.DB, error) {
	if _, err := DialectFor(driver); err != nil {
		return nil, err
	}
	if driver == SQLite3Driver {
		dsn = sqliteDSN(dsn)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to open %v db", driver)
	}
	if driver == SQLite3Driver && isSQLiteMemory(dsn) {
		// Every connection of an in-memory sqlite is a separate db
		db.SetMaxOpenConns(1)
	}
	return db, nil
}
