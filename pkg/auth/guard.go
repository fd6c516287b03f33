package auth

import (
	"context"

	"github.com/evgeny-myasishchev/ledger.engine/pkg/dal"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/lib-core-golang/diag"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/types"
)

// DefaultMaxFailedAttempts is a number of consecutive failed logins that locks an identity
const DefaultMaxFailedAttempts = 3

// LoginState is a lockout state of an identity. Locked identities
// may not perform balance affecting operations until unlocked
type LoginState struct {
	FailedAttempts int  `json:"failedAttempts"`
	Locked         bool `json:"locked"`
}

func (s LoginState) success() LoginState {
	if s.Locked {
		return s
	}
	return LoginState{}
}

func (s LoginState) failure(maxAttempts int) LoginState {
	if s.Locked {
		return s
	}
	attempts := s.FailedAttempts + 1
	return LoginState{FailedAttempts: attempts, Locked: attempts >= maxAttempts}
}

func (s LoginState) setLocked(locked bool) LoginState {
	if !locked {
		return LoginState{}
	}
	return LoginState{FailedAttempts: s.FailedAttempts, Locked: true}
}

// Guard tracks failed logins and locks identities
type Guard interface {
	RecordSuccess(ctx context.Context, id types.IdentityID) (LoginState, error)
	RecordFailure(ctx context.Context, id types.IdentityID) (LoginState, error)

	// SetLocked is an admin override. Unlocking also resets failed attempts
	SetLocked(ctx context.Context, id types.IdentityID, locked bool) (LoginState, error)

	State(ctx context.Context, id types.IdentityID) (LoginState, error)
}

type guard struct {
	storage     dal.Storage
	identities  *identities
	maxAttempts int
}

func (g *guard) transition(
	ctx context.Context,
	id types.IdentityID,
	name string,
	next func(state LoginState) LoginState,
) (LoginState, error) {
	var result LoginState
	err := g.storage.RunInUnit(ctx, func(ctx context.Context, unit dal.Unit) error {
		identity, err := g.identities.lockedRead(ctx, unit, id)
		if err != nil {
			return err
		}
		current := LoginState{FailedAttempts: identity.FailedAttempts, Locked: identity.Locked}
		result = next(current)
		if result == current {
			return nil
		}
		if result.Locked && !current.Locked {
			logger.WithData(diag.MsgData{
				"identityID":     id,
				"failedAttempts": result.FailedAttempts,
				"transition":     name,
			}).Warn(ctx, "Identity locked")
		}
		return g.identities.writeLoginState(ctx, unit, id, result)
	})
	if err != nil {
		return LoginState{}, err
	}
	return result, nil
}

func (g *guard) RecordSuccess(ctx context.Context, id types.IdentityID) (LoginState, error) {
	return g.transition(ctx, id, "success", LoginState.success)
}

func (g *guard) RecordFailure(ctx context.Context, id types.IdentityID) (LoginState, error) {
	return g.transition(ctx, id, "failure", func(state LoginState) LoginState {
		return state.failure(g.maxAttempts)
	})
}

func (g *guard) SetLocked(ctx context.Context, id types.IdentityID, locked bool) (LoginState, error) {
	return g.transition(ctx, id, "setLocked", func(state LoginState) LoginState {
		return state.setLocked(locked)
	})
}

func (g *guard) State(ctx context.Context, id types.IdentityID) (LoginState, error) {
	identity, err := g.identities.getByID(ctx, g.storage.DB(), id)
	if err != nil {
		return LoginState{}, err
	}
	return LoginState{FailedAttempts: identity.FailedAttempts, Locked: identity.Locked}, nil
}

// GuardOpt is an option of the guard
type GuardOpt func(g *guard)

// WithMaxFailedAttempts sets a number of failed logins that locks an identity
func WithMaxFailedAttempts(maxAttempts int) GuardOpt {
	return func(g *guard) {
		if maxAttempts > 0 {
			g.maxAttempts = maxAttempts
		}
	}
}

// NewGuard returns a guard on top of a given storage
func NewGuard(storage dal.Storage, opts ...GuardOpt) Guard {
	g := &guard{
		storage:     storage,
		identities:  &identities{storage: storage},
		maxAttempts: DefaultMaxFailedAttempts,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}
