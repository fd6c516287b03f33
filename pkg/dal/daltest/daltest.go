// Package daltest provides storages for tests of packages built on top of dal
package daltest

import (
	"context"
	"testing"
	"time"

	"github.com/bxcodec/faker/v3"
	"github.com/shopspring/decimal"

	"github.com/evgeny-myasishchev/ledger.engine/pkg/dal"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/types"
)

// NewStorage returns a new in-memory sqlite storage with the schema created.
// The storage is closed when the test completes
func NewStorage(t *testing.T) dal.Storage {
	db, err := dal.Open(dal.SQLite3Driver, ":memory:")
	if err != nil {
		panic(err)
	}
	storage, err := dal.NewSQLStorage(dal.WithSQLDb(db))
	if err != nil {
		panic(err)
	}
	t.Cleanup(func() { storage.Close() })
	if err := storage.Setup(context.Background()); err != nil {
		panic(err)
	}
	return storage
}

// MustExec executes a statement outside of units and panics on failure
func MustExec(storage dal.Storage, query string, args ...interface{}) {
	if _, err := storage.DB().ExecContext(context.Background(), query, args...); err != nil {
		panic(err)
	}
}

// InsertIdentity inserts a bare identity row and returns its id
func InsertIdentity(storage dal.Storage, username string) types.IdentityID {
	var id types.IdentityID
	if err := storage.DB().QueryRowContext(context.Background(), `
	INSERT INTO identities(username, password_hash, role, created_at)
	VALUES($1, $2, $3, $4)
	RETURNING id`,
		username, "not-a-hash", types.User, time.Now().UTC(),
	).Scan(&id); err != nil {
		panic(err)
	}
	return id
}

// InsertAccount inserts an identity with an account of a given balance
func InsertAccount(storage dal.Storage, balance decimal.Decimal) types.AccountID {
	ownerID := InsertIdentity(storage, "owner-"+faker.Username()+faker.UUIDDigit())
	var id types.AccountID
	if err := storage.DB().QueryRowContext(context.Background(), `
	INSERT INTO accounts(owner_id, balance, created_at)
	VALUES($1, $2, $3)
	RETURNING id`,
		ownerID, balance, time.Now().UTC(),
	).Scan(&id); err != nil {
		panic(err)
	}
	return id
}
