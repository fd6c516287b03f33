package auth

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"github.com/bxcodec/faker/v3"
	"github.com/stretchr/testify/assert"

	"github.com/evgeny-myasishchev/ledger.engine/pkg/dal/daltest"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/types"
)

func TestLoginState_transitions(t *testing.T) {
	type testCase struct {
		name  string
		state LoginState
		next  func(state LoginState) LoginState
		want  LoginState
	}
	failure := func(state LoginState) LoginState { return state.failure(3) }
	tests := []func() testCase{
		func() testCase {
			return testCase{
				name:  "success resets attempts",
				state: LoginState{FailedAttempts: 2},
				next:  LoginState.success,
				want:  LoginState{},
			}
		},
		func() testCase {
			return testCase{
				name:  "success of locked is a no-op",
				state: LoginState{FailedAttempts: 3, Locked: true},
				next:  LoginState.success,
				want:  LoginState{FailedAttempts: 3, Locked: true},
			}
		},
		func() testCase {
			return testCase{
				name:  "failure increments attempts",
				state: LoginState{FailedAttempts: 1},
				next:  failure,
				want:  LoginState{FailedAttempts: 2},
			}
		},
		func() testCase {
			return testCase{
				name:  "max failure locks",
				state: LoginState{FailedAttempts: 2},
				next:  failure,
				want:  LoginState{FailedAttempts: 3, Locked: true},
			}
		},
		func() testCase {
			return testCase{
				name:  "failure of locked is a no-op",
				state: LoginState{FailedAttempts: 3, Locked: true},
				next:  failure,
				want:  LoginState{FailedAttempts: 3, Locked: true},
			}
		},
		func() testCase {
			return testCase{
				name:  "unlock resets attempts",
				state: LoginState{FailedAttempts: 3, Locked: true},
				next:  func(state LoginState) LoginState { return state.setLocked(false) },
				want:  LoginState{},
			}
		},
		func() testCase {
			return testCase{
				name:  "lock keeps attempts",
				state: LoginState{FailedAttempts: 1},
				next:  func(state LoginState) LoginState { return state.setLocked(true) },
				want:  LoginState{FailedAttempts: 1, Locked: true},
			}
		},
	}
	for _, tt := range tests {
		tt := tt()
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.next(tt.state))
		})
	}
}

func Test_guard(t *testing.T) {
	ctx := context.Background()

	t.Run("lock after max failures and unlock", func(t *testing.T) {
		storage := daltest.NewStorage(t)
		g := NewGuard(storage)
		id := daltest.InsertIdentity(storage, faker.Username())

		for i := 1; i < DefaultMaxFailedAttempts; i++ {
			state, err := g.RecordFailure(ctx, id)
			if !assert.NoError(t, err) {
				return
			}
			assert.Equal(t, LoginState{FailedAttempts: i}, state)
		}
		state, err := g.RecordFailure(ctx, id)
		if !assert.NoError(t, err) {
			return
		}
		assert.Equal(t, LoginState{FailedAttempts: DefaultMaxFailedAttempts, Locked: true}, state)

		state, err = g.RecordSuccess(ctx, id)
		if !assert.NoError(t, err) {
			return
		}
		assert.True(t, state.Locked)

		state, err = g.SetLocked(ctx, id, false)
		if !assert.NoError(t, err) {
			return
		}
		assert.Equal(t, LoginState{}, state)

		persisted, err := g.State(ctx, id)
		if !assert.NoError(t, err) {
			return
		}
		assert.Equal(t, LoginState{}, persisted)
	})

	t.Run("custom max attempts", func(t *testing.T) {
		storage := daltest.NewStorage(t)
		g := NewGuard(storage, WithMaxFailedAttempts(1))
		id := daltest.InsertIdentity(storage, faker.Username())
		state, err := g.RecordFailure(ctx, id)
		if !assert.NoError(t, err) {
			return
		}
		assert.Equal(t, LoginState{FailedAttempts: 1, Locked: true}, state)
	})

	t.Run("concurrent failures are not lost", func(t *testing.T) {
		storage := daltest.NewStorage(t)
		g := NewGuard(storage, WithMaxFailedAttempts(100))
		id := daltest.InsertIdentity(storage, faker.Username())
		const workers = 10
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := g.RecordFailure(ctx, id)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()
		state, err := g.State(ctx, id)
		if !assert.NoError(t, err) {
			return
		}
		assert.Equal(t, LoginState{FailedAttempts: workers}, state)
	})

	t.Run("missing identity", func(t *testing.T) {
		g := NewGuard(daltest.NewStorage(t))
		_, err := g.RecordFailure(ctx, types.IdentityID(rand.Int63()))
		assert.Equal(t, ErrIdentityNotFound, err)
		_, err = g.State(ctx, types.IdentityID(rand.Int63()))
		assert.Equal(t, ErrIdentityNotFound, err)
	})
}
