package flow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vbonduro/scaninv/internal/cache"
	"github.com/vbonduro/scaninv/internal/domain"
)

// DefaultLookupTimeout bounds a single store lookup.
const DefaultLookupTimeout = 5 * time.Second

// recordStore is the subset of recordstore.Store the flow requires.
type recordStore interface {
	FindByBarcode(ctx context.Context, barcode string) ([]*domain.Record, error)
	FindByID(ctx context.Context, id string) (*domain.Record, error)
	Create(ctx context.Context, fields domain.Fields) (*domain.Record, error)
	Update(ctx context.Context, id string, patch domain.Patch) (*domain.Record, error)
}

// Resolver maps barcodes to records and guards writes against barcode
// collisions. It holds no per-session state and is shared by all sessions.
type Resolver struct {
	store   recordStore
	cache   cache.Cache
	timeout time.Duration
	logger  *slog.Logger

	// epoch counts invalidations. A lookup caches its answer only if no
	// invalidation ran while it was reading the store.
	cacheMu sync.Mutex
	epoch   uint64
}

func NewResolver(store recordStore, c cache.Cache, timeout time.Duration, logger *slog.Logger) *Resolver {
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}
	return &Resolver{
		store:   store,
		cache:   c,
		timeout: timeout,
		logger:  logger,
	}
}

// Resolve decides where a barcode leads without touching any session. It never
// writes to the store.
func (r *Resolver) Resolve(ctx context.Context, barcode string) Outcome {
	rec, err := r.LookupBarcode(ctx, barcode)
	if err != nil {
		return Outcome{Kind: LookupFailed, Barcode: barcode, Err: err}
	}
	if rec != nil {
		return Outcome{Kind: NavigateToExisting, Barcode: barcode, RecordID: rec.ID, Mode: ModeView}
	}
	return Outcome{Kind: NavigateToCreate, Barcode: barcode}
}

// LookupBarcode returns the canonical record holding barcode, or nil when no
// record does. When several records share the barcode the first one in store
// order wins. Errors wrap ErrLookupFailed.
func (r *Resolver) LookupBarcode(ctx context.Context, barcode string) (*domain.Record, error) {
	key := cache.BarcodeKey(barcode)
	if entry, ok := r.cached(ctx, key); ok {
		return entry.First(), nil
	}

	since := r.currentEpoch()
	records, err := r.findByBarcode(ctx, barcode)
	if err != nil {
		return nil, err
	}
	entry := cache.Entry{Records: records}
	r.remember(ctx, key, entry, since)

	if len(records) > 1 {
		r.logger.Warn("barcode shared by several records", "barcode", barcode, "count", len(records), "canonical_id", records[0].ID)
	}
	return entry.First(), nil
}

// LookupID returns the record with id, or nil when it does not exist.
func (r *Resolver) LookupID(ctx context.Context, id string) (*domain.Record, error) {
	key := cache.IDKey(id)
	if entry, ok := r.cached(ctx, key); ok {
		return entry.First(), nil
	}

	since := r.currentEpoch()
	rec, err := withTimeout(ctx, r.timeout, func(ctx context.Context) (*domain.Record, error) {
		return r.store.FindByID(ctx, id)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: id %s: %w", ErrLookupFailed, id, err)
	}

	entry := cache.Entry{}
	if rec != nil {
		entry.Records = []*domain.Record{rec}
	}
	r.remember(ctx, key, entry, since)
	return rec, nil
}

// Forget drops the cached lookup for barcode. A lookup of it still in flight
// will not cache its answer.
func (r *Resolver) Forget(ctx context.Context, barcode string) {
	r.invalidate(ctx, cache.BarcodeKey(barcode))
}

// Invalidate drops the cached lookups for a record written outside Save.
func (r *Resolver) Invalidate(ctx context.Context, barcode, id string) {
	r.invalidate(ctx, cache.BarcodeKey(barcode), cache.IDKey(id))
}

// Save writes fields as a new record (editingID empty) or over the record
// editingID, unless another record already holds the barcode. The check and
// the write are not atomic; two concurrent writers can still race.
func (r *Resolver) Save(ctx context.Context, fields domain.Fields, editingID string) SaveResult {
	fields, err := fields.Normalize()
	if err != nil {
		return SaveResult{Kind: SaveFailed, Err: err}
	}

	var current *domain.Record
	if editingID != "" {
		current, err = withTimeout(ctx, r.timeout, func(ctx context.Context) (*domain.Record, error) {
			return r.store.FindByID(ctx, editingID)
		})
		if err != nil {
			return SaveResult{Kind: SaveFailed, Err: fmt.Errorf("%w: id %s: %w", ErrLookupFailed, editingID, err)}
		}
		if current == nil {
			return SaveResult{Kind: SaveFailed, Err: fmt.Errorf("failed to load record %s: %w", editingID, domain.ErrNotFound)}
		}
	}

	unchanged := current != nil && current.Barcode == fields.Barcode
	if !unchanged && fields.Barcode != "" {
		existing, err := r.conflicting(ctx, fields.Barcode, editingID)
		if err != nil {
			return SaveResult{Kind: SaveFailed, Err: err}
		}
		if existing != nil {
			r.logger.Info("barcode conflict", "barcode", fields.Barcode, "existing_id", existing.ID, "editing_id", editingID)
			return SaveResult{Kind: BarcodeConflict, Existing: existing}
		}
	}

	var saved *domain.Record
	if current == nil {
		saved, err = r.store.Create(ctx, fields)
	} else {
		saved, err = r.store.Update(ctx, editingID, domain.PatchFrom(fields))
	}
	if err != nil {
		return SaveResult{Kind: SaveFailed, Err: fmt.Errorf("failed to save record: %w", err)}
	}

	keys := []string{cache.BarcodeKey(saved.Barcode), cache.IDKey(saved.ID)}
	if current != nil && current.Barcode != saved.Barcode {
		keys = append(keys, cache.BarcodeKey(current.Barcode))
	}
	r.invalidate(ctx, keys...)

	r.logger.Info("record saved", "id", saved.ID, "barcode", saved.Barcode, "created", current == nil)
	return SaveResult{Kind: SaveSucceeded, Record: saved}
}

// conflicting returns the first record other than editingID holding barcode.
// It always asks the store: a cached answer could hide a record written by
// another client since.
func (r *Resolver) conflicting(ctx context.Context, barcode, editingID string) (*domain.Record, error) {
	since := r.currentEpoch()
	records, err := r.findByBarcode(ctx, barcode)
	if err != nil {
		return nil, err
	}
	r.remember(ctx, cache.BarcodeKey(barcode), cache.Entry{Records: records}, since)

	for _, rec := range records {
		if rec.ID != editingID {
			return rec, nil
		}
	}
	return nil, nil
}

func (r *Resolver) findByBarcode(ctx context.Context, barcode string) ([]*domain.Record, error) {
	records, err := withTimeout(ctx, r.timeout, func(ctx context.Context) ([]*domain.Record, error) {
		return r.store.FindByBarcode(ctx, barcode)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: barcode %s: %w", ErrLookupFailed, barcode, err)
	}
	return records, nil
}

func (r *Resolver) cached(ctx context.Context, key string) (cache.Entry, bool) {
	entry, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		r.logger.Warn("cache read failed", "key", key, "error", err)
		return cache.Entry{}, false
	}
	return entry, ok
}

func (r *Resolver) currentEpoch() uint64 {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()
	return r.epoch
}

// remember caches entry unless an invalidation ran after since was read.
func (r *Resolver) remember(ctx context.Context, key string, entry cache.Entry, since uint64) {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()
	if r.epoch != since {
		r.logger.Debug("stale lookup not cached", "key", key)
		return
	}
	if err := r.cache.Set(ctx, key, entry); err != nil {
		r.logger.Warn("cache write failed", "key", key, "error", err)
	}
}

func (r *Resolver) invalidate(ctx context.Context, keys ...string) {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()
	r.epoch++
	if err := r.cache.Invalidate(ctx, keys...); err != nil {
		r.logger.Error("cache invalidation failed", "keys", keys, "error", err)
	}
}

// withTimeout runs fn under a deadline and gives up waiting when the deadline
// passes, even if fn ignores its context.
func withTimeout[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		val, err := fn(ctx)
		done <- result{val: val, err: err}
	}()

	select {
	case res := <-done:
		return res.val, res.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
