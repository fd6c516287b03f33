package ledger

import (
	"context"
	"time"

	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
	"github.com/shopspring/decimal"

	"github.com/evgeny-myasishchev/ledger.engine/pkg/accounts"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/dal"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/lib-core-golang/diag"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/txlog"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/types"
)

var logger = diag.CreateLogger()

// TransferResult holds balances of both accounts after the transfer
type TransferResult struct {
	FromBalance decimal.Decimal `json:"fromBalance"`
	ToBalance   decimal.Decimal `json:"toBalance"`
}

// Notifier is notified with entries of every committed operation
type Notifier interface {
	Notify(ctx context.Context, entries []txlog.Entry)
}

type nopNotifier struct{}

func (nopNotifier) Notify(ctx context.Context, entries []txlog.Entry) {}

// Engine performs balance affecting operations. Every operation
// is atomic, it either commits all of its changes or none
type Engine interface {
	Deposit(ctx context.Context, accountID types.AccountID, amount decimal.Decimal) (decimal.Decimal, error)
	Withdraw(ctx context.Context, accountID types.AccountID, amount decimal.Decimal) (decimal.Decimal, error)
	Transfer(ctx context.Context, fromID types.AccountID, toID types.AccountID, amount decimal.Decimal) (*TransferResult, error)

	// History returns entries of the account, newest first. Zero limit means no limit
	History(ctx context.Context, accountID types.AccountID, limit int) ([]txlog.Entry, error)
}

type operation func(ctx context.Context, unit dal.Unit) ([]txlog.Entry, error)

type engine struct {
	storage  dal.Storage
	accounts accounts.Store
	log      txlog.Log
	notifier Notifier
	now      func() time.Time
}

func (e *engine) run(ctx context.Context, op string, data diag.MsgData, fn operation) error {
	ctx = diag.ContextWithOperationID(ctx, uuid.NewV4().String())
	var entries []txlog.Entry
	err := e.storage.RunInUnit(ctx, func(ctx context.Context, unit dal.Unit) error {
		var err error
		entries, err = fn(ctx, unit)
		return err
	})
	if err != nil {
		err = classify(op, err)
		if IsDomainError(err) {
			logger.WithError(err).WithData(data).Info(ctx, "%v rejected", op)
		} else {
			logger.WithError(err).WithData(data).Error(ctx, "%v failed", op)
		}
		return err
	}
	logger.WithData(data).Info(ctx, "%v committed", op)
	e.notifier.Notify(ctx, entries)
	return nil
}

func (e *engine) lockedRead(ctx context.Context, unit dal.Unit, id types.AccountID) (*accounts.Account, error) {
	account, err := e.accounts.LockedRead(ctx, unit, id)
	if err == accounts.ErrNotFound {
		return nil, ErrAccountNotFound
	}
	return account, err
}

func (e *engine) write(ctx context.Context, unit dal.Unit, account *accounts.Account, entry *txlog.Entry) error {
	if err := e.accounts.WriteBalance(ctx, unit, account.ID, account.Balance); err != nil {
		return errors.Wrapf(err, "Failed to write balance of account %v", account.ID)
	}
	if _, err := e.log.Append(ctx, unit, entry); err != nil {
		return errors.Wrap(err, "Failed to append entry")
	}
	return nil
}

func (e *engine) Deposit(ctx context.Context, accountID types.AccountID, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	var balance decimal.Decimal
	err := e.run(ctx, "deposit", diag.MsgData{
		"accountID": accountID,
		"amount":    amount.String(),
	}, func(ctx context.Context, unit dal.Unit) ([]txlog.Entry, error) {
		account, err := e.lockedRead(ctx, unit, accountID)
		if err != nil {
			return nil, err
		}
		account.Balance = account.Balance.Add(amount)
		entry := txlog.Entry{
			AccountID: accountID,
			Type:      types.Deposit,
			Amount:    amount,
			Timestamp: e.now(),
		}
		if err := e.write(ctx, unit, account, &entry); err != nil {
			return nil, err
		}
		balance = account.Balance
		return []txlog.Entry{entry}, nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

func (e *engine) Withdraw(ctx context.Context, accountID types.AccountID, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	var balance decimal.Decimal
	err := e.run(ctx, "withdraw", diag.MsgData{
		"accountID": accountID,
		"amount":    amount.String(),
	}, func(ctx context.Context, unit dal.Unit) ([]txlog.Entry, error) {
		account, err := e.lockedRead(ctx, unit, accountID)
		if err != nil {
			return nil, err
		}
		if account.Balance.LessThan(amount) {
			return nil, ErrInsufficientFunds
		}
		account.Balance = account.Balance.Sub(amount)
		entry := txlog.Entry{
			AccountID: accountID,
			Type:      types.Withdraw,
			Amount:    amount,
			Timestamp: e.now(),
		}
		if err := e.write(ctx, unit, account, &entry); err != nil {
			return nil, err
		}
		balance = account.Balance
		return []txlog.Entry{entry}, nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

func (e *engine) Transfer(
	ctx context.Context,
	fromID types.AccountID,
	toID types.AccountID,
	amount decimal.Decimal,
) (*TransferResult, error) {
	if fromID == toID {
		return nil, ErrSameAccount
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	var result *TransferResult
	err := e.run(ctx, "transfer", diag.MsgData{
		"fromAccountID": fromID,
		"toAccountID":   toID,
		"amount":        amount.String(),
	}, func(ctx context.Context, unit dal.Unit) ([]txlog.Entry, error) {
		// Rows are always locked in ascending id order so opposite transfers can not deadlock
		lockOrder := []types.AccountID{fromID, toID}
		if toID < fromID {
			lockOrder = []types.AccountID{toID, fromID}
		}
		locked := make(map[types.AccountID]*accounts.Account, 2)
		for _, id := range lockOrder {
			account, err := e.lockedRead(ctx, unit, id)
			if err != nil {
				return nil, err
			}
			locked[id] = account
		}
		from, to := locked[fromID], locked[toID]
		if from.Balance.LessThan(amount) {
			return nil, ErrInsufficientFunds
		}
		from.Balance = from.Balance.Sub(amount)
		to.Balance = to.Balance.Add(amount)

		timestamp := e.now()
		out := txlog.Entry{
			AccountID:        fromID,
			Type:             types.TransferOut,
			Amount:           amount,
			Timestamp:        timestamp,
			RelatedAccountID: &toID,
		}
		in := txlog.Entry{
			AccountID:        toID,
			Type:             types.TransferIn,
			Amount:           amount,
			Timestamp:        timestamp,
			RelatedAccountID: &fromID,
		}
		if err := e.write(ctx, unit, from, &out); err != nil {
			return nil, err
		}
		if err := e.write(ctx, unit, to, &in); err != nil {
			return nil, err
		}
		result = &TransferResult{FromBalance: from.Balance, ToBalance: to.Balance}
		return []txlog.Entry{out, in}, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (e *engine) History(ctx context.Context, accountID types.AccountID, limit int) ([]txlog.Entry, error) {
	if _, err := e.accounts.GetByID(ctx, accountID); err != nil {
		if err == accounts.ErrNotFound {
			return nil, ErrAccountNotFound
		}
		return nil, &OperationFailedError{Op: "history", Err: err}
	}
	entries, err := e.log.ListByAccount(ctx, accountID, limit)
	if err != nil {
		return nil, &OperationFailedError{Op: "history", Err: err}
	}
	return entries, nil
}

// EngineOpt is an option of the engine
type EngineOpt func(e *engine)

// WithNotifier sets a notifier of committed operations
func WithNotifier(notifier Notifier) EngineOpt {
	return func(e *engine) {
		e.notifier = notifier
	}
}

// WithNow sets a clock used to stamp entries
func WithNow(now func() time.Time) EngineOpt {
	return func(e *engine) {
		e.now = now
	}
}

// NewEngine returns a ledger engine on top of given stores
func NewEngine(storage dal.Storage, accountsStore accounts.Store, log txlog.Log, opts ...EngineOpt) Engine {
	e := &engine{
		storage:  storage,
		accounts: accountsStore,
		log:      log,
		notifier: nopNotifier{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}
