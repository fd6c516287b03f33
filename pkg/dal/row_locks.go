package dal

import (
	"context"
	"sync"
)

type rowLock struct {
	held chan struct{}
	refs int
}

// rowLocks is an in-process registry of exclusive per-key locks.
// Entries are removed once nobody holds or waits for them
type rowLocks struct {
	mu    sync.Mutex
	locks map[string]*rowLock
}

func newRowLocks() *rowLocks {
	return &rowLocks{locks: map[string]*rowLock{}}
}

func (l *rowLocks) ref(key string) *rowLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[key]
	if !ok {
		lock = &rowLock{held: make(chan struct{}, 1)}
		l.locks[key] = lock
	}
	lock.refs++
	return lock
}

func (l *rowLocks) unref(key string, lock *rowLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, key)
	}
}

// acquire blocks until the key is free or the ctx is done.
// The returned func must be called exactly once to release the lock
func (l *rowLocks) acquire(ctx context.Context, key string) (func(), error) {
	lock := l.ref(key)
	select {
	case lock.held <- struct{}{}:
		return func() {
			<-lock.held
			l.unref(key, lock)
		}, nil
	case <-ctx.Done():
		l.unref(key, lock)
		return nil, ctx.Err()
	}
}

func (l *rowLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
