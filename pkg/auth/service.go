package auth

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/evgeny-myasishchev/ledger.engine/pkg/accounts"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/dal"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/lib-core-golang/diag"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/types"
)

var logger = diag.CreateLogger()

// Registration is a result of a successful registration
type Registration struct {
	Identity *Identity         `json:"identity"`
	Account  *accounts.Account `json:"account"`
}

// Service is an auth service abstraction
type Service interface {
	// Register creates an identity together with its zero balance account
	Register(ctx context.Context, username string, password string, role types.Role) (*Registration, error)

	// Login verifies credentials and updates the lockout state of the identity
	Login(ctx context.Context, username string, password string) (*Identity, error)

	GetIdentity(ctx context.Context, id types.IdentityID) (*Identity, error)
	ListIdentities(ctx context.Context) ([]Identity, error)
	SetLocked(ctx context.Context, id types.IdentityID, locked bool) (*Identity, error)

	// DeleteIdentity removes the identity with its account and transactions
	DeleteIdentity(ctx context.Context, id types.IdentityID) error
}

type service struct {
	storage     dal.Storage
	identities  *identities
	accounts    accounts.Store
	guard       Guard
	credentials Credentials
	now         func() time.Time
}

func (svc *service) Register(ctx context.Context, username string, password string, role types.Role) (*Registration, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrInvalidUsername
	}
	if password == "" {
		return nil, ErrInvalidPassword
	}
	if _, err := role.MarshalText(); err != nil {
		return nil, err
	}
	hash, err := svc.credentials.Hash(password)
	if err != nil {
		return nil, err
	}

	registration := &Registration{}
	err = svc.storage.RunInUnit(ctx, func(ctx context.Context, unit dal.Unit) error {
		if err := unit.Lock(ctx, usernameLockKey(username)); err != nil {
			return err
		}
		if _, err := svc.identities.getByUsername(ctx, unit, username); err != ErrIdentityNotFound {
			if err == nil {
				return ErrUsernameTaken
			}
			return err
		}
		identity := &Identity{
			Username:     username,
			PasswordHash: hash,
			Role:         role,
			CreatedAt:    svc.now().UTC(),
		}
		if err := svc.identities.insert(ctx, unit, identity); err != nil {
			return err
		}
		account, err := svc.accounts.Create(ctx, unit, identity.ID)
		if err != nil {
			return err
		}
		registration.Identity = identity
		registration.Account = account
		return nil
	})
	if err != nil {
		if err != ErrUsernameTaken {
			err = errors.Wrapf(err, "Failed to register %v", username)
		}
		return nil, err
	}
	logger.WithData(diag.MsgData{
		"identityID": registration.Identity.ID,
		"role":       role,
	}).Info(ctx, "Identity %v registered", username)
	return registration, nil
}

func (svc *service) Login(ctx context.Context, username string, password string) (*Identity, error) {
	identity, err := svc.identities.getByUsername(ctx, svc.storage.DB(), username)
	if err != nil {
		if err == ErrIdentityNotFound {
			logger.Debug(ctx, "Login of unknown identity %v rejected", username)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if identity.Locked {
		logger.WithData(diag.MsgData{"identityID": identity.ID}).Info(ctx, "Login of locked identity rejected")
		return nil, ErrLocked
	}

	valid, err := svc.credentials.Verify(identity.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !valid {
		state, err := svc.guard.RecordFailure(ctx, identity.ID)
		if err != nil {
			return nil, errors.Wrap(err, "Failed to record failed login")
		}
		logger.WithData(diag.MsgData{
			"identityID":     identity.ID,
			"failedAttempts": state.FailedAttempts,
		}).Info(ctx, "Invalid password")
		return nil, ErrInvalidCredentials
	}

	state, err := svc.guard.RecordSuccess(ctx, identity.ID)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to record successful login")
	}
	if state.Locked {
		return nil, ErrLocked
	}
	identity.FailedAttempts = state.FailedAttempts
	identity.Locked = state.Locked
	return identity, nil
}

func (svc *service) GetIdentity(ctx context.Context, id types.IdentityID) (*Identity, error) {
	return svc.identities.getByID(ctx, svc.storage.DB(), id)
}

func (svc *service) ListIdentities(ctx context.Context) ([]Identity, error) {
	return svc.identities.list(ctx)
}

func (svc *service) SetLocked(ctx context.Context, id types.IdentityID, locked bool) (*Identity, error) {
	if _, err := svc.guard.SetLocked(ctx, id, locked); err != nil {
		return nil, err
	}
	logger.WithData(diag.MsgData{"identityID": id, "locked": locked}).Info(ctx, "Identity lock changed")
	return svc.GetIdentity(ctx, id)
}

func (svc *service) DeleteIdentity(ctx context.Context, id types.IdentityID) error {
	err := svc.storage.RunInUnit(ctx, func(ctx context.Context, unit dal.Unit) error {
		if _, err := svc.identities.lockedRead(ctx, unit, id); err != nil {
			return err
		}
		var accountID types.AccountID
		err := unit.QueryRowContext(ctx, `SELECT id FROM accounts WHERE owner_id = $1`, id).Scan(&accountID)
		switch {
		case err == sql.ErrNoRows:
		case err != nil:
			return errors.Wrapf(err, "Failed to read account of identity %v", id)
		default:
			if _, err := svc.accounts.LockedRead(ctx, unit, accountID); err != nil && err != accounts.ErrNotFound {
				return err
			}
		}
		return svc.identities.delete(ctx, unit, id)
	})
	if err != nil {
		return err
	}
	logger.WithData(diag.MsgData{"identityID": id}).Info(ctx, "Identity deleted")
	return nil
}

// ServiceOpt is an option for auth service
type ServiceOpt func(*service)

// WithAccounts will init the service with the account store
func WithAccounts(store accounts.Store) ServiceOpt {
	return func(svc *service) {
		svc.accounts = store
	}
}

// WithGuard will init the service with the lockout guard
func WithGuard(guard Guard) ServiceOpt {
	return func(svc *service) {
		svc.guard = guard
	}
}

// WithCredentials will init the service with the password hashing
func WithCredentials(credentials Credentials) ServiceOpt {
	return func(svc *service) {
		svc.credentials = credentials
	}
}

// WithNow sets a clock used to stamp new identities
func WithNow(now func() time.Time) ServiceOpt {
	return func(svc *service) {
		svc.now = now
	}
}

// NewService returns an instance of an auth service
func NewService(storage dal.Storage, opts ...ServiceOpt) Service {
	svc := &service{
		storage:    storage,
		identities: &identities{storage: storage},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.accounts == nil {
		svc.accounts = accounts.NewStore(storage)
	}
	if svc.guard == nil {
		svc.guard = NewGuard(storage)
	}
	if svc.credentials == nil {
		svc.credentials = NewBcryptCredentials(0)
	}
	return Service(svc)
}
