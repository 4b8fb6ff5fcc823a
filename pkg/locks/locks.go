// Package locks serializes plan operations per case. Generation,
// recalculation and override for the same case must never interleave; cases
// are independent and run concurrently.
package locks

import (
	"context"
	"sync"
)

// Locker acquires an exclusive scope for one case. Unlock is returned from
// Lock so a lock can never be released by a caller that does not hold it.
type Locker interface {
	Lock(ctx context.Context, caseID string) (unlock func(), err error)
}

// KeyedMutex is the in-process Locker: one mutex per case id, lazily created.
// Suitable for single-instance deployments and tests.
type KeyedMutex struct {
	mu    sync.Mutex
	cases map[string]*caseLock
}

type caseLock struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex creates an in-process per-case locker.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{cases: make(map[string]*caseLock)}
}

func (k *KeyedMutex) Lock(ctx context.Context, caseID string) (func(), error) {
	k.mu.Lock()

	lock, ok := k.cases[caseID]
	if !ok {
		lock = &caseLock{}
		k.cases[caseID] = lock
	}

	lock.refs++
	k.mu.Unlock()

	acquired := make(chan struct{})

	go func() {
		lock.mu.Lock()
		close(acquired)
	}()

	select {
	case <-acquired:
	case <-ctx.Done():
		// The goroutine still holds or will hold the mutex; release it once
		// acquired so later callers are not wedged.
		go func() {
			<-acquired
			k.release(caseID, lock)
		}()

		return nil, ctx.Err()
	}

	return func() { k.release(caseID, lock) }, nil
}

func (k *KeyedMutex) release(caseID string, lock *caseLock) {
	lock.mu.Unlock()

	k.mu.Lock()
	defer k.mu.Unlock()

	lock.refs--
	if lock.refs == 0 {
		delete(k.cases, caseID)
	}
}
