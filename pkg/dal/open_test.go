package dal

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_sqliteDSN(t *testing.T) {
	type testCase struct {
		name string
		dsn  string
		want string
	}
	tests := []func() testCase{
		func() testCase {
			return testCase{
				name: "memory",
				dsn:  ":memory:",
				want: ":memory:?_foreign_keys=on",
			}
		},
		func() testCase {
			return testCase{
				name: "shared memory",
				dsn:  "file:ledger?mode=memory&cache=shared",
				want: "file:ledger?mode=memory&cache=shared&_foreign_keys=on",
			}
		},
		func() testCase {
			return testCase{
				name: "file",
				dsn:  "file:ledger.db",
				want: "file:ledger.db?_foreign_keys=on&_txlock=immediate&_busy_timeout=5000",
			}
		},
	}
	for _, tt := range tests {
		tt := tt()
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sqliteDSN(tt.dsn))
		})
	}
}

func TestOpen(t *testing.T) {
	t.Run("unsupported driver", func(t *testing.T) {
		_, err := Open("mysql", "whatever")
		assert.EqualError(t, err, "Unsupported storage driver: mysql")
	})
	t.Run("file sqlite", func(t *testing.T) {
		db, err := Open(SQLite3Driver, "file:"+filepath.Join(t.TempDir(), "ledger.db"))
		if !assert.NoError(t, err) {
			return
		}
		defer db.Close()
		var fk int
		if !assert.NoError(t, db.QueryRowContext(context.Background(), "PRAGMA foreign_keys").Scan(&fk)) {
			return
		}
		assert.Equal(t, 1, fk)
	})
	t.Run("memory sqlite uses single connection", func(t *testing.T) {
		db, err := Open(SQLite3Driver, sqliteMemoryDSN)
		if !assert.NoError(t, err) {
			return
		}
		defer db.Close()
		assert.Equal(t, 1, db.Stats().MaxOpenConnections)
	})
}

func TestDialectFor(t *testing.T) {
	sqlite, err := DialectFor(SQLite3Driver)
	if !assert.NoError(t, err) {
		return
	}
	assert.Equal(t, "", sqlite.ForUpdate())

	pg, err := DialectFor(PostgresDriver)
	if !assert.NoError(t, err) {
		return
	}
	assert.Equal(t, " FOR UPDATE", pg.ForUpdate())
}
