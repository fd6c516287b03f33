package accounts

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/evgeny-myasishchev/ledger.engine/pkg/dal"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/lib-core-golang/diag"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/types"
)

var logger = diag.CreateLogger()

// ErrNotFound is returned when the account does not exist
var ErrNotFound = errors.New("Account not found")

// Account holds the balance of an identity
type Account struct {
	ID        types.AccountID  `json:"id"`
	OwnerID   types.IdentityID `json:"ownerId"`
	Balance   decimal.Decimal  `json:"balance"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Store is a persistance of accounts
type Store interface {
	GetByID(ctx context.Context, id types.AccountID) (*Account, error)
	GetByOwner(ctx context.Context, ownerID types.IdentityID) (*Account, error)

	// LockedRead locks the account row until the unit ends and returns its current state
	LockedRead(ctx context.Context, unit dal.Unit, id types.AccountID) (*Account, error)

	// WriteBalance must be used within the same unit as LockedRead
	WriteBalance(ctx context.Context, unit dal.Unit, id types.AccountID, balance decimal.Decimal) error

	// Create opens a new account with zero balance
	Create(ctx context.Context, unit dal.Unit, ownerID types.IdentityID) (*Account, error)
}

// LockKey is a key of the account row lock
func LockKey(id types.AccountID) string {
	return "account:" + id.String()
}

const selectAccount = `
	SELECT
		id, owner_id, balance, created_at
	FROM accounts`

type store struct {
	storage dal.Storage
	now     func() time.Time
}

func scanAccount(row *sql.Row) (*Account, error) {
	account := &Account{}
	if err := row.Scan(
		&account.ID,
		&account.OwnerID,
		&account.Balance,
		&account.CreatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "Failed to read account")
	}
	return account, nil
}

func (s *store) GetByID(ctx context.Context, id types.AccountID) (*Account, error) {
	return scanAccount(s.storage.DB().QueryRowContext(ctx, selectAccount+` WHERE id = $1`, id))
}

func (s *store) GetByOwner(ctx context.Context, ownerID types.IdentityID) (*Account, error) {
	return scanAccount(s.storage.DB().QueryRowContext(ctx, selectAccount+` WHERE owner_id = $1`, ownerID))
}

func (s *store) LockedRead(ctx context.Context, unit dal.Unit, id types.AccountID) (*Account, error) {
	if err := unit.Lock(ctx, LockKey(id)); err != nil {
		return nil, err
	}
	return scanAccount(unit.QueryRowContext(ctx,
		selectAccount+` WHERE id = $1`+unit.Dialect().ForUpdate(), id,
	))
}

func (s *store) WriteBalance(ctx context.Context, unit dal.Unit, id types.AccountID, balance decimal.Decimal) error {
	if balance.IsNegative() {
		return errors.Errorf("Balance of account %v can not be negative: %v", id, balance)
	}
	res, err := unit.ExecContext(ctx, `UPDATE accounts SET balance = $1 WHERE id = $2`, balance, id)
	if err != nil {
		return errors.Wrapf(err, "Failed to write balance of account %v", id)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "Failed to write balance of account %v", id)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *store) Create(ctx context.Context, unit dal.Unit, ownerID types.IdentityID) (*Account, error) {
	account := &Account{
		OwnerID:   ownerID,
		Balance:   decimal.Zero,
		CreatedAt: s.now().UTC(),
	}
	if err := unit.QueryRowContext(ctx, `
	INSERT INTO accounts(owner_id, balance, created_at)
	VALUES($1, $2, $3)
	RETURNING id`,
		account.OwnerID, account.Balance, account.CreatedAt,
	).Scan(&account.ID); err != nil {
		return nil, errors.Wrapf(err, "Failed to create account of identity %v", ownerID)
	}
	logger.WithData(diag.MsgData{
		"accountID": account.ID,
		"ownerID":   account.OwnerID,
	}).Info(ctx, "Account created")
	return account, nil
}

// StoreOpt is an option of the account store
type StoreOpt func(s *store)

// WithNow sets a clock used to stamp new accounts
func WithNow(now func() time.Time) StoreOpt {
	return func(s *store) {
		s.now = now
	}
}

// NewStore returns an account store on top of a given storage
func NewStore(storage dal.Storage, opts ...StoreOpt) Store {
	s := &store{
		storage: storage,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
