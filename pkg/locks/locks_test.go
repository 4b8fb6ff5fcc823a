package locks

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutex_SerializesSameCase(t *testing.T) {
	locker := NewKeyedMutex()
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "case-1")
	require.NoError(t, err)

	acquired := make(chan struct{})

	go func() {
		second, err := locker.Lock(ctx, "case-1")
		assert.NoError(t, err)

		close(acquired)
		second()
	}()

	select {
	case <-acquired:
		t.Fatal("second Lock acquired while first still held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second Lock never acquired after release")
	}
}

func TestKeyedMutex_IndependentCasesDoNotBlock(t *testing.T) {
	locker := NewKeyedMutex()
	ctx := context.Background()

	unlockA, err := locker.Lock(ctx, "case-a")
	require.NoError(t, err)

	defer unlockA()

	done := make(chan struct{})

	go func() {
		unlockB, err := locker.Lock(ctx, "case-b")
		assert.NoError(t, err)
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on an unrelated case blocked")
	}
}

func TestKeyedMutex_ContextCancellation(t *testing.T) {
	locker := NewKeyedMutex()

	unlock, err := locker.Lock(context.Background(), "case-1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = locker.Lock(ctx, "case-1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The abandoned waiter must not wedge the case for later callers.
	unlock()

	unlock2, err := locker.Lock(context.Background(), "case-1")
	require.NoError(t, err)
	unlock2()
}

func TestKeyedMutex_ConcurrentCounter(t *testing.T) {
	locker := NewKeyedMutex()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		counter int
	)

	for range 50 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			unlock, err := locker.Lock(ctx, "case-1")
			if err != nil {
				return
			}
			defer unlock()

			counter++
		}()
	}

	wg.Wait()
	assert.Equal(t, 50, counter)
}
