package dal

import (
	"fmt"
)

// Supported drivers
const (
	SQLite3Driver  = "sqlite3"
	PostgresDriver = "postgres"
)

// Dialect holds SQL differences of supported substrates
type Dialect struct {
	Name string

	// forUpdate is appended to locked reads
	forUpdate string

	schema []string
}

// ForUpdate returns a suffix to be appended to the SELECT of a locked read
func (d Dialect) ForUpdate() string {
	return d.forUpdate
}

var sqlite3Dialect = Dialect{
	Name: SQLite3Driver,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS ledger_meta(
	key   TEXT NOT NULL PRIMARY KEY,
	value TEXT NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS identities(
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	username        TEXT NOT NULL UNIQUE,
	password_hash   TEXT NOT NULL,
	role            TEXT NOT NULL,
	failed_attempts INTEGER NOT NULL DEFAULT 0,
	locked          BOOLEAN NOT NULL DEFAULT FALSE,
	created_at      TIMESTAMP NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS accounts(
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id   INTEGER NOT NULL UNIQUE REFERENCES identities(id) ON DELETE CASCADE,
	balance    TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS transactions(
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	account_id         INTEGER NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	type               TEXT NOT NULL,
	amount             TEXT NOT NULL,
	related_account_id INTEGER REFERENCES accounts(id) ON DELETE SET NULL,
	created_at         TIMESTAMP NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS transactions_account_idx ON transactions(account_id, created_at, id)`,
	},
}

var postgresDialect = Dialect{
	Name:      PostgresDriver,
	forUpdate: " FOR UPDATE",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS ledger_meta(
	key   TEXT NOT NULL PRIMARY KEY,
	value TEXT NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS identities(
	id              BIGSERIAL PRIMARY KEY,
	username        TEXT NOT NULL UNIQUE,
	password_hash   TEXT NOT NULL,
	role            TEXT NOT NULL,
	failed_attempts INTEGER NOT NULL DEFAULT 0,
	locked          BOOLEAN NOT NULL DEFAULT FALSE,
	created_at      TIMESTAMPTZ NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS accounts(
	id         BIGSERIAL PRIMARY KEY,
	owner_id   BIGINT NOT NULL UNIQUE REFERENCES identities(id) ON DELETE CASCADE,
	balance    NUMERIC NOT NULL CHECK (balance >= 0),
	created_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS transactions(
	id                 BIGSERIAL PRIMARY KEY,
	account_id         BIGINT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	type               TEXT NOT NULL,
	amount             NUMERIC NOT NULL CHECK (amount > 0),
	related_account_id BIGINT REFERENCES accounts(id) ON DELETE SET NULL,
	created_at         TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS transactions_account_idx ON transactions(account_id, created_at, id)`,
	},
}

// DialectFor returns a dialect of a given driver
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case SQLite3Driver:
		return sqlite3Dialect, nil
	case PostgresDriver:
		return postgresDialect, nil
	}
	return Dialect{}, fmt.Errorf("Unsupported storage driver: %v", driver)
}
