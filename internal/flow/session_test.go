package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/scaninv/internal/cache"
	"github.com/vbonduro/scaninv/internal/domain"
)

func newTestSession(s *stubStore) *Session {
	return NewSession("test", newTestResolver(s), discardLogger())
}

func TestScan_AbsentNavigatesToCreate(t *testing.T) {
	for _, barcode := range []string{"4800000000001", "0", "ABC-123"} {
		t.Run(barcode, func(t *testing.T) {
			sess := newTestSession(newStubStore())

			out := sess.Scan(context.Background(), barcode)
			assert.Equal(t, NavigateToCreate, out.Kind)
			assert.Equal(t, barcode, out.Barcode)
			assert.Empty(t, out.RecordID)
			assert.Equal(t, StateTerminal, sess.State())
		})
	}
}

func TestScan_ExistingNavigatesToExisting(t *testing.T) {
	sess := newTestSession(newStubStore(&domain.Record{ID: "1", Barcode: "999", Name: "Chair"}))

	out := sess.Scan(context.Background(), "999")
	assert.Equal(t, NavigateToExisting, out.Kind)
	assert.Equal(t, "1", out.RecordID)
	assert.Equal(t, ModeView, out.Mode)
	assert.Equal(t, StateTerminal, sess.State())
}

func TestScan_TrimsBarcode(t *testing.T) {
	sess := newTestSession(newStubStore(&domain.Record{ID: "1", Barcode: "999", Name: "Chair"}))

	out := sess.Scan(context.Background(), "  999\n")
	assert.Equal(t, NavigateToExisting, out.Kind)
	assert.Equal(t, "999", sess.Barcode())
}

func TestScan_EmptyBarcodeIgnored(t *testing.T) {
	store := newStubStore()
	sess := newTestSession(store)

	out := sess.Scan(context.Background(), "   ")
	assert.Equal(t, Ignored, out.Kind)
	assert.Equal(t, StateIdle, sess.State())
	finds, _ := store.counts()
	assert.Zero(t, finds)
}

func TestScan_Idempotent(t *testing.T) {
	tests := []struct {
		name  string
		store *stubStore
	}{
		{name: "absent", store: newStubStore()},
		{name: "existing", store: newStubStore(&domain.Record{ID: "1", Barcode: "999", Name: "Chair"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := newTestSession(tt.store)
			ctx := context.Background()

			first := sess.Scan(ctx, "999")
			second := sess.Scan(ctx, "999")
			assert.Equal(t, first, second)
		})
	}
}

func TestScan_RepeatServedFromCache(t *testing.T) {
	store := newStubStore(&domain.Record{ID: "1", Barcode: "999", Name: "Chair"})
	sess := newTestSession(store)
	ctx := context.Background()

	sess.Scan(ctx, "999")
	sess.Scan(ctx, "999")

	finds, _ := store.counts()
	assert.Equal(t, 1, finds)
}

func TestScan_SharedBarcodeFirstResultWins(t *testing.T) {
	sess := newTestSession(newStubStore(
		&domain.Record{ID: "7", Barcode: "123", Name: "First"},
		&domain.Record{ID: "3", Barcode: "123", Name: "Second"},
	))

	out := sess.Scan(context.Background(), "123")
	assert.Equal(t, NavigateToExisting, out.Kind)
	assert.Equal(t, "7", out.RecordID)
}

func TestScan_LookupFailureIsNotAbsence(t *testing.T) {
	store := newStubStore()
	store.setFindErr(errStoreDown)
	sess := newTestSession(store)

	out := sess.Scan(context.Background(), "4800000000001")
	assert.Equal(t, LookupFailed, out.Kind)
	assert.ErrorIs(t, out.Err, ErrLookupFailed)
	assert.ErrorIs(t, out.Err, errStoreDown)
	assert.Equal(t, StateIdle, sess.State())
}

func TestScan_LookupFailureNotCached(t *testing.T) {
	store := newStubStore(&domain.Record{ID: "1", Barcode: "999", Name: "Chair"})
	sess := newTestSession(store)
	ctx := context.Background()

	store.setFindErr(errStoreDown)
	require.Equal(t, LookupFailed, sess.Scan(ctx, "999").Kind)

	// Retry after the store recovers reaches the store again.
	store.setFindErr(nil)
	out := sess.Scan(ctx, "999")
	assert.Equal(t, NavigateToExisting, out.Kind)
}

func TestScan_TimeoutIsLookupFailed(t *testing.T) {
	store := newStubStore()
	release := store.gate("4800000000001")
	defer release()

	resolver := NewResolver(store, cache.NewMemory(8, time.Minute), 20*time.Millisecond, discardLogger())
	sess := NewSession("timeout", resolver, discardLogger())

	start := time.Now()
	out := sess.Scan(context.Background(), "4800000000001")
	assert.Equal(t, LookupFailed, out.Kind)
	assert.NotEqual(t, NavigateToCreate, out.Kind)
	assert.ErrorIs(t, out.Err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestScan_CallerCancellationIsLookupFailed(t *testing.T) {
	store := newStubStore()
	release := store.gate("999")
	defer release()
	sess := newTestSession(store)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-store.started
		cancel()
	}()

	out := sess.Scan(ctx, "999")
	assert.Equal(t, LookupFailed, out.Kind)
	assert.True(t, errors.Is(out.Err, context.Canceled))
}

// scanAsync starts a scan and waits until its lookup has reached the store.
func scanAsync(t *testing.T, sess *Session, store *stubStore, barcode string) <-chan Outcome {
	t.Helper()
	done := make(chan Outcome, 1)
	go func() { done <- sess.Scan(context.Background(), barcode) }()

	select {
	case got := <-store.started:
		require.Equal(t, barcode, got)
	case <-time.After(time.Second):
		t.Fatal("lookup never reached the store")
	}
	return done
}

func TestScan_IgnoredWhileResolving(t *testing.T) {
	store := newStubStore()
	release := store.gate("111")
	sess := newTestSession(store)

	done := scanAsync(t, sess, store, "111")
	assert.Equal(t, StateResolving, sess.State())

	// Neither the same barcode nor a different one is queued.
	assert.Equal(t, Ignored, sess.Scan(context.Background(), "111").Kind)
	assert.Equal(t, Ignored, sess.Scan(context.Background(), "222").Kind)

	release()
	out := <-done
	assert.Equal(t, NavigateToCreate, out.Kind)
	assert.Equal(t, "111", out.Barcode)
	assert.Equal(t, "111", sess.Barcode())
}

func TestScan_ResetDiscardsStaleResult(t *testing.T) {
	store := newStubStore(&domain.Record{ID: "2", Barcode: "B2", Name: "Second"})
	releaseB1 := store.gate("B1")
	sess := newTestSession(store)
	ctx := context.Background()

	staleDone := scanAsync(t, sess, store, "B1")

	sess.Reset(ctx)
	assert.Equal(t, StateIdle, sess.State())

	out := sess.Scan(ctx, "B2")
	require.Equal(t, NavigateToExisting, out.Kind)
	assert.Equal(t, "2", out.RecordID)

	releaseB1()
	stale := <-staleDone
	assert.Equal(t, Discarded, stale.Kind)
	assert.Equal(t, "B1", stale.Barcode)

	// B1's late answer left the session on B2.
	assert.Equal(t, StateTerminal, sess.State())
	assert.Equal(t, "B2", sess.Barcode())
}

func TestScan_ResetDuringLookupRescanAsksStore(t *testing.T) {
	store := newStubStore()
	release := store.gate("111")
	sess := newTestSession(store)
	ctx := context.Background()

	done := scanAsync(t, sess, store, "111")
	sess.Reset(ctx)
	release()
	require.Equal(t, Discarded, (<-done).Kind)

	// The abandoned lookup's absence must not be served to the next scan.
	store.put(&domain.Record{ID: "7", Barcode: "111", Name: "Lamp"})

	out := sess.Scan(ctx, "111")
	assert.Equal(t, NavigateToExisting, out.Kind)
	assert.Equal(t, "7", out.RecordID)
	finds, _ := store.counts()
	assert.Equal(t, 2, finds)
}

func TestReset_InvalidatesCachedLookup(t *testing.T) {
	store := newStubStore()
	sess := newTestSession(store)
	ctx := context.Background()

	require.Equal(t, NavigateToCreate, sess.Scan(ctx, "555").Kind)

	// Another client creates the record. Without a reset the cached absence
	// still answers.
	store.put(&domain.Record{ID: "9", Barcode: "555", Name: "Lamp"})
	assert.Equal(t, NavigateToCreate, sess.Scan(ctx, "555").Kind)

	sess.Reset(ctx)
	out := sess.Scan(ctx, "555")
	assert.Equal(t, NavigateToExisting, out.Kind)
	assert.Equal(t, "9", out.RecordID)
}

func TestReset_FromIdleIsNoop(t *testing.T) {
	sess := newTestSession(newStubStore())
	sess.Reset(context.Background())
	assert.Equal(t, StateIdle, sess.State())
	assert.Empty(t, sess.Barcode())
}

func TestResolveNeverWrites(t *testing.T) {
	store := newStubStore()
	resolver := newTestResolver(store)

	resolver.Resolve(context.Background(), "123")
	resolver.Resolve(context.Background(), "123")

	_, writes := store.counts()
	assert.Zero(t, writes)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "resolving", StateResolving.String())
	assert.Equal(t, "navigate_to_create", NavigateToCreate.String())
	assert.Equal(t, "barcode_conflict", BarcodeConflict.String())
}
