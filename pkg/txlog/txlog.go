package txlog

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

//go:generate mockgen -destination ../internal/mocks/txlog_log.go -package mocks . Log

var logger = diag.CreateLogger()

// EntryID is a store assigned id of a log entry. Ids grow monotonically
type EntryID int64

// Entry is an immutable record of a money movement
type Entry struct {
	ID               EntryID               `json:"id"`
	AccountID        types.AccountID       `json:"accountId"`
	Type             types.TransactionType `json:"type"`
	Amount           decimal.Decimal       `json:"amount"`
	Timestamp        time.Time             `json:"timestamp"`
	RelatedAccountID *types.AccountID      `json:"relatedAccountId,omitempty"`
}

// Log is an append only log of transactions
type Log interface {
	// Append must share the unit with the balance write the entry documents.
	// The id and zero timestamp of the entry are assigned by the log
	Append(ctx context.Context, unit dal.Unit, entry *Entry) (EntryID, error)

	// ListByAccount returns entries of the account, newest first.
	// Zero limit means no limit
	ListByAccount(ctx context.Context, accountID types.AccountID, limit int) ([]Entry, error)
}

type sqlLog struct {
	storage dal.Storage
	now     func() time.Time
}

func validate(entry *Entry) error {
	if !entry.Type.Valid() {
		return errors.Errorf("Unknown transaction type: %v", entry.Type)
	}
	if !entry.Amount.IsPositive() {
		return errors.Errorf("Amount must be positive, got: %v", entry.Amount)
	}
	if entry.Type.IsTransfer() && entry.RelatedAccountID == nil {
		return errors.Errorf("Related account is required for %v", entry.Type)
	}
	if !entry.Type.IsTransfer() && entry.RelatedAccountID != nil {
		return errors.Errorf("Related account is not allowed for %v", entry.Type)
	}
	return nil
}

func (l *sqlLog) Append(ctx context.Context, unit dal.Unit, entry *Entry) (EntryID, error) {
	if err := validate(entry); err != nil {
		return 0, err
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = l.now()
	}
	entry.Timestamp = entry.Timestamp.UTC()
	if err := unit.QueryRowContext(ctx, `
	INSERT INTO transactions(account_id, type, amount, related_account_id, created_at)
	VALUES($1, $2, $3, $4, $5)
	RETURNING id`,
		entry.AccountID, entry.Type, entry.Amount, entry.RelatedAccountID, entry.Timestamp,
	).Scan(&entry.ID); err != nil {
		return 0, errors.Wrapf(err, "Failed to append %v entry of account %v", entry.Type, entry.AccountID)
	}
	logger.WithData(diag.MsgData{
		"entryID":   entry.ID,
		"accountID": entry.AccountID,
		"type":      entry.Type,
	}).Debug(ctx, "Entry appended")
	return entry.ID, nil
}

func (l *sqlLog) ListByAccount(ctx context.Context, accountID types.AccountID, limit int) ([]Entry, error) {
	if limit < 0 {
		return nil, errors.Errorf("Limit can not be negative: %v", limit)
	}
	query := `
	SELECT
		id, account_id, type, amount, related_account_id, created_at
	FROM transactions
	WHERE account_id = $1
	ORDER BY created_at DESC, id DESC`
	args := []interface{}{accountID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := l.storage.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to list entries of account %v", accountID)
	}
	defer rows.Close()

	result := []Entry{}
	for rows.Next() {
		var entry Entry
		var related sql.NullInt64
		if err := rows.Scan(
			&entry.ID,
			&entry.AccountID,
			&entry.Type,
			&entry.Amount,
			&related,
			&entry.Timestamp,
		); err != nil {
			return nil, errors.Wrap(err, "Failed to read entry")
		}
		if related.Valid {
			relatedID := types.AccountID(related.Int64)
			entry.RelatedAccountID = &relatedID
		}
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "Failed to list entries of account %v", accountID)
	}
	return result, nil
}

// LogOpt is an option of the log
type LogOpt func(l *sqlLog)

// WithNow sets a clock used to stamp entries without timestamp
func WithNow(now func() time.Time) LogOpt {
	return func(l *sqlLog) {
		l.now = now
	}
}

// NewLog returns a transaction log on top of a given storage
func NewLog(storage dal.Storage, opts ...LogOpt) Log {
	l := &sqlLog{
		storage: storage,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}
