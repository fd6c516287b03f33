package auth

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/evgeny-myasishchev/ledger.engine/pkg/dal"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/types"
)

// Identity is a registered user of the ledger
type Identity struct {
	ID             types.IdentityID `json:"id"`
	Username       string           `json:"username"`
	PasswordHash   string           `json:"-"`
	Role           types.Role       `json:"role"`
	FailedAttempts int              `json:"failedAttempts"`
	Locked         bool             `json:"locked"`
	CreatedAt      time.Time        `json:"createdAt"`
}

// LockKey is a key of the identity row lock
func LockKey(id types.IdentityID) string {
	return "identity:" + id.String()
}

func usernameLockKey(username string) string {
	return "username:" + username
}

const selectIdentity = `
	SELECT
		id, username, password_hash, role, failed_attempts, locked, created_at
	FROM identities`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanIdentity(row rowScanner) (*Identity, error) {
	identity := &Identity{}
	if err := row.Scan(
		&identity.ID,
		&identity.Username,
		&identity.PasswordHash,
		&identity.Role,
		&identity.FailedAttempts,
		&identity.Locked,
		&identity.CreatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrIdentityNotFound
		}
		return nil, errors.Wrap(err, "Failed to read identity")
	}
	return identity, nil
}

type identities struct {
	storage dal.Storage
}

func (s *identities) getByID(ctx context.Context, q dal.Querier, id types.IdentityID) (*Identity, error) {
	return scanIdentity(q.QueryRowContext(ctx, selectIdentity+` WHERE id = $1`, id))
}

func (s *identities) getByUsername(ctx context.Context, q dal.Querier, username string) (*Identity, error) {
	return scanIdentity(q.QueryRowContext(ctx, selectIdentity+` WHERE username = $1`, username))
}

func (s *identities) lockedRead(ctx context.Context, unit dal.Unit, id types.IdentityID) (*Identity, error) {
	if err := unit.Lock(ctx, LockKey(id)); err != nil {
		return nil, err
	}
	return scanIdentity(unit.QueryRowContext(ctx,
		selectIdentity+` WHERE id = $1`+unit.Dialect().ForUpdate(), id,
	))
}

func (s *identities) list(ctx context.Context) ([]Identity, error) {
	rows, err := s.storage.DB().QueryContext(ctx, selectIdentity+` ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to list identities")
	}
	defer rows.Close()
	result := []Identity{}
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *identity)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "Failed to list identities")
	}
	return result, nil
}

func (s *identities) insert(ctx context.Context, unit dal.Unit, identity *Identity) error {
	if err := unit.QueryRowContext(ctx, `
	INSERT INTO identities(username, password_hash, role, failed_attempts, locked, created_at)
	VALUES($1, $2, $3, $4, $5, $6)
	RETURNING id`,
		identity.Username,
		identity.PasswordHash,
		identity.Role,
		identity.FailedAttempts,
		identity.Locked,
		identity.CreatedAt,
	).Scan(&identity.ID); err != nil {
		return errors.Wrapf(err, "Failed to insert identity %v", identity.Username)
	}
	return nil
}

func (s *identities) writeLoginState(ctx context.Context, unit dal.Unit, id types.IdentityID, state LoginState) error {
	if _, err := unit.ExecContext(ctx,
		`UPDATE identities SET failed_attempts = $1, locked = $2 WHERE id = $3`,
		state.FailedAttempts, state.Locked, id,
	); err != nil {
		return errors.Wrapf(err, "Failed to write login state of identity %v", id)
	}
	return nil
}

func (s *identities) delete(ctx context.Context, unit dal.Unit, id types.IdentityID) error {
	res, err := unit.ExecContext(ctx, `DELETE FROM identities WHERE id = $1`, id)
	if err != nil {
		return errors.Wrapf(err, "Failed to delete identity %v", id)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "Failed to delete identity %v", id)
	}
	if affected == 0 {
		return ErrIdentityNotFound
	}
	return nil
}
