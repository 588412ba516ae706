package flow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryOpenGetClose(t *testing.T) {
	reg := NewRegistry(newTestResolver(newStubStore()), 8, time.Minute, discardLogger())

	sess := reg.Open()
	require.NotEmpty(t, sess.ID())

	got, err := reg.Get(sess.ID())
	require.NoError(t, err)
	assert.Same(t, sess, got)

	require.NoError(t, reg.Close(sess.ID()))
	_, err = reg.Get(sess.ID())
	assert.ErrorIs(t, err, ErrUnknownSession)
	assert.ErrorIs(t, reg.Close(sess.ID()), ErrUnknownSession)
}

func TestRegistryCloseNotUndoneByConcurrentGet(t *testing.T) {
	for range 50 {
		reg := NewRegistry(newTestResolver(newStubStore()), 8, time.Minute, discardLogger())
		sess := reg.Open()

		var wg sync.WaitGroup
		for range 4 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range 100 {
					_, _ = reg.Get(sess.ID())
				}
			}()
		}
		require.NoError(t, reg.Close(sess.ID()))
		wg.Wait()

		_, err := reg.Get(sess.ID())
		require.ErrorIs(t, err, ErrUnknownSession)
		assert.Zero(t, reg.Len())
	}
}

func TestRegistrySessionsAreIndependent(t *testing.T) {
	store := newStubStore()
	release := store.gate("111")
	reg := NewRegistry(newTestResolver(store), 8, time.Minute, discardLogger())

	busy := reg.Open()
	idle := reg.Open()

	done := scanAsync(t, busy, store, "111")

	// A resolution in flight on one session does not block another.
	out := idle.Scan(context.Background(), "222")
	assert.Equal(t, NavigateToCreate, out.Kind)

	release()
	assert.Equal(t, NavigateToCreate, (<-done).Kind)
}

func TestRegistryEvictsIdleSessions(t *testing.T) {
	reg := NewRegistry(newTestResolver(newStubStore()), 8, 10*time.Millisecond, discardLogger())
	sess := reg.Open()

	// Get refreshes the idle timer, so poll slower than the ttl.
	assert.Eventually(t, func() bool {
		_, err := reg.Get(sess.ID())
		return err != nil
	}, time.Second, 30*time.Millisecond)
}

func TestRegistryBounded(t *testing.T) {
	reg := NewRegistry(newTestResolver(newStubStore()), 2, time.Minute, discardLogger())

	first := reg.Open()
	reg.Open()
	reg.Open()

	assert.Equal(t, 2, reg.Len())
	_, err := reg.Get(first.ID())
	assert.ErrorIs(t, err, ErrUnknownSession)
}
