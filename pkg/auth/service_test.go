package auth

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/bxcodec/faker/v3"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"

	"github.com/evgeny-myasishchev/ledger.engine/pkg/accounts"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/dal"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/dal/daltest"
	tst "github.com/evgeny-myasishchev/ledger.engine/pkg/internal/testing"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/types"
)

type serviceFixture struct {
	storage  dal.Storage
	accounts accounts.Store
	now      *tst.MockNowService
	svc      Service
}

func newServiceFixture(t *testing.T, opts ...ServiceOpt) *serviceFixture {
	storage := daltest.NewStorage(t)
	f := &serviceFixture{
		storage:  storage,
		accounts: accounts.NewStore(storage),
		now:      tst.NewMockNowService(time.Now().Add(-time.Hour).UTC()),
	}
	f.svc = NewService(storage, append([]ServiceOpt{
		WithAccounts(f.accounts),
		WithCredentials(NewBcryptCredentials(bcrypt.MinCost)),
		WithNow(f.now.Now),
	}, opts...)...)
	return f
}

func (f *serviceFixture) register(username string, password string) *Registration {
	registration, err := f.svc.Register(context.Background(), username, password, types.User)
	if err != nil {
		panic(err)
	}
	return registration
}

type failingCredentials struct {
	err error
}

func (c *failingCredentials) Hash(password string) (string, error) {
	return "", c.err
}

func (c *failingCredentials) Verify(hash string, password string) (bool, error) {
	return false, c.err
}

func Test_service_Register(t *testing.T) {
	type args struct {
		username string
		password string
		role     types.Role
	}
	type testCase struct {
		name   string
		args   args
		setup  func(f *serviceFixture)
		opts   []ServiceOpt
		assert func(t *testing.T, f *serviceFixture, got *Registration, err error)
	}
	tests := []func() testCase{
		func() testCase {
			username := faker.Username()
			password := faker.Password()
			return testCase{
				name: "create identity and account",
				args: args{username: username, password: password, role: types.Admin},
				assert: func(t *testing.T, f *serviceFixture, got *Registration, err error) {
					if !assert.NoError(t, err) {
						return
					}
					assert.NotZero(t, got.Identity.ID)
					assert.Equal(t, username, got.Identity.Username)
					assert.Equal(t, types.Admin, got.Identity.Role)
					assert.NotEqual(t, password, got.Identity.PasswordHash)
					assert.True(t, f.now.Now().Equal(got.Identity.CreatedAt))

					account, err := f.accounts.GetByOwner(context.Background(), got.Identity.ID)
					if !assert.NoError(t, err) {
						return
					}
					assert.Equal(t, got.Account.ID, account.ID)
					assert.True(t, account.Balance.IsZero())

					persisted, err := f.svc.GetIdentity(context.Background(), got.Identity.ID)
					if !assert.NoError(t, err) {
						return
					}
					assert.Equal(t, username, persisted.Username)
					assert.Equal(t, types.Admin, persisted.Role)
					assert.Equal(t, got.Identity.PasswordHash, persisted.PasswordHash)
				},
			}
		},
		func() testCase {
			username := faker.Username()
			return testCase{
				name: "username taken",
				args: args{username: username, password: faker.Password(), role: types.User},
				setup: func(f *serviceFixture) {
					f.register(username, faker.Password())
				},
				assert: func(t *testing.T, f *serviceFixture, got *Registration, err error) {
					assert.Equal(t, ErrUsernameTaken, err)
					identities, err := f.svc.ListIdentities(context.Background())
					if !assert.NoError(t, err) {
						return
					}
					assert.Len(t, identities, 1)
				},
			}
		},
		func() testCase {
			return testCase{
				name: "empty username",
				args: args{username: "  ", password: faker.Password(), role: types.User},
				assert: func(t *testing.T, f *serviceFixture, got *Registration, err error) {
					assert.Equal(t, ErrInvalidUsername, err)
				},
			}
		},
		func() testCase {
			return testCase{
				name: "empty password",
				args: args{username: faker.Username(), role: types.User},
				assert: func(t *testing.T, f *serviceFixture, got *Registration, err error) {
					assert.Equal(t, ErrInvalidPassword, err)
				},
			}
		},
		func() testCase {
			return testCase{
				name: "unknown role",
				args: args{username: faker.Username(), password: faker.Password(), role: types.Role(42)},
				assert: func(t *testing.T, f *serviceFixture, got *Registration, err error) {
					assert.EqualError(t, err, "Unknown role: 42")
				},
			}
		},
		func() testCase {
			hashErr := errors.New(faker.Sentence())
			return testCase{
				name: "hash failure",
				args: args{username: faker.Username(), password: faker.Password(), role: types.User},
				opts: []ServiceOpt{WithCredentials(&failingCredentials{err: hashErr})},
				assert: func(t *testing.T, f *serviceFixture, got *Registration, err error) {
					assert.Equal(t, hashErr, err)
					identities, err := f.svc.ListIdentities(context.Background())
					if !assert.NoError(t, err) {
						return
					}
					assert.Empty(t, identities)
				},
			}
		},
	}
	for _, tt := range tests {
		tt := tt()
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(t, tt.opts...)
			if tt.setup != nil {
				tt.setup(f)
			}
			got, err := f.svc.Register(context.Background(), tt.args.username, tt.args.password, tt.args.role)
			tt.assert(t, f, got, err)
		})
	}
}

func Test_service_Login(t *testing.T) {
	type testCase struct {
		name string
		run  func(t *testing.T, f *serviceFixture)
	}
	ctx := context.Background()
	tests := []func() testCase{
		func() testCase {
			return testCase{
				name: "valid credentials",
				run: func(t *testing.T, f *serviceFixture) {
					username, password := faker.Username(), faker.Password()
					registration := f.register(username, password)
					got, err := f.svc.Login(ctx, username, password)
					if !assert.NoError(t, err) {
						return
					}
					assert.Equal(t, registration.Identity.ID, got.ID)
					assert.Equal(t, 0, got.FailedAttempts)
					assert.False(t, got.Locked)
				},
			}
		},
		func() testCase {
			return testCase{
				name: "unknown username",
				run: func(t *testing.T, f *serviceFixture) {
					_, err := f.svc.Login(ctx, faker.Username(), faker.Password())
					assert.Equal(t, ErrInvalidCredentials, err)
					assert.True(t, errors.Is(err, &AuthError{Kind: InvalidCredentials}))
				},
			}
		},
		func() testCase {
			return testCase{
				name: "success resets failed attempts",
				run: func(t *testing.T, f *serviceFixture) {
					username, password := faker.Username(), faker.Password()
					registration := f.register(username, password)
					for i := 0; i < DefaultMaxFailedAttempts-1; i++ {
						_, err := f.svc.Login(ctx, username, "wrong-"+password)
						assert.Equal(t, ErrInvalidCredentials, err)
					}
					identity, err := f.svc.GetIdentity(ctx, registration.Identity.ID)
					if !assert.NoError(t, err) {
						return
					}
					assert.Equal(t, DefaultMaxFailedAttempts-1, identity.FailedAttempts)

					got, err := f.svc.Login(ctx, username, password)
					if !assert.NoError(t, err) {
						return
					}
					assert.Equal(t, 0, got.FailedAttempts)
				},
			}
		},
		func() testCase {
			return testCase{
				name: "lockout and admin unlock",
				run: func(t *testing.T, f *serviceFixture) {
					username, password := faker.Username(), faker.Password()
					registration := f.register(username, password)
					for i := 0; i < DefaultMaxFailedAttempts; i++ {
						_, err := f.svc.Login(ctx, username, "wrong-"+password)
						assert.Equal(t, ErrInvalidCredentials, err)
					}

					_, err := f.svc.Login(ctx, username, password)
					assert.Equal(t, ErrLocked, err)
					assert.True(t, errors.Is(err, ErrLocked))

					identity, err := f.svc.GetIdentity(ctx, registration.Identity.ID)
					if !assert.NoError(t, err) {
						return
					}
					assert.True(t, identity.Locked)
					assert.Equal(t, DefaultMaxFailedAttempts, identity.FailedAttempts)

					unlocked, err := f.svc.SetLocked(ctx, registration.Identity.ID, false)
					if !assert.NoError(t, err) {
						return
					}
					assert.False(t, unlocked.Locked)
					assert.Equal(t, 0, unlocked.FailedAttempts)

					got, err := f.svc.Login(ctx, username, password)
					if !assert.NoError(t, err) {
						return
					}
					assert.Equal(t, 0, got.FailedAttempts)
				},
			}
		},
		func() testCase {
			return testCase{
				name: "admin lock",
				run: func(t *testing.T, f *serviceFixture) {
					username, password := faker.Username(), faker.Password()
					registration := f.register(username, password)
					locked, err := f.svc.SetLocked(ctx, registration.Identity.ID, true)
					if !assert.NoError(t, err) {
						return
					}
					assert.True(t, locked.Locked)
					_, err = f.svc.Login(ctx, username, password)
					assert.Equal(t, ErrLocked, err)
				},
			}
		},
	}
	for _, tt := range tests {
		tt := tt()
		t.Run(tt.name, func(t *testing.T) {
			tt.run(t, newServiceFixture(t))
		})
	}
}

func Test_service_Admin(t *testing.T) {
	ctx := context.Background()

	t.Run("list identities", func(t *testing.T) {
		f := newServiceFixture(t)
		first := f.register("first-"+faker.Username(), faker.Password())
		second := f.register("second-"+faker.Username(), faker.Password())
		got, err := f.svc.ListIdentities(ctx)
		if !assert.NoError(t, err) {
			return
		}
		if !assert.Len(t, got, 2) {
			return
		}
		assert.Equal(t, first.Identity.ID, got[0].ID)
		assert.Equal(t, second.Identity.ID, got[1].ID)
	})

	t.Run("set locked of missing identity", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.SetLocked(ctx, types.IdentityID(rand.Int63()), true)
		assert.Equal(t, ErrIdentityNotFound, err)
	})

	t.Run("delete cascades account and transactions", func(t *testing.T) {
		f := newServiceFixture(t)
		registration := f.register(faker.Username(), faker.Password())
		other := daltest.InsertAccount(f.storage, decimal.Zero)
		daltest.MustExec(f.storage, `
		INSERT INTO transactions(account_id, type, amount, related_account_id, created_at)
		VALUES($1, $2, $3, $4, $5)`,
			other, types.TransferIn, "10", registration.Account.ID, time.Now().UTC())

		if !assert.NoError(t, f.svc.DeleteIdentity(ctx, registration.Identity.ID)) {
			return
		}
		_, err := f.svc.GetIdentity(ctx, registration.Identity.ID)
		assert.Equal(t, ErrIdentityNotFound, err)
		_, err = f.accounts.GetByID(ctx, registration.Account.ID)
		assert.Equal(t, accounts.ErrNotFound, err)

		var related *int64
		if !assert.NoError(t, f.storage.DB().QueryRowContext(ctx,
			`SELECT related_account_id FROM transactions WHERE account_id = $1`, other,
		).Scan(&related)) {
			return
		}
		assert.Nil(t, related)
	})

	t.Run("delete missing identity", func(t *testing.T) {
		f := newServiceFixture(t)
		err := f.svc.DeleteIdentity(ctx, types.IdentityID(rand.Int63()))
		assert.Equal(t, ErrIdentityNotFound, err)
	})
}
