// Package cache holds lookup results keyed by lookup type and argument.
// Nothing expires on write: callers invalidate the keys a mutation touched.
package cache

import (
	"context"

	"github.com/vbonduro/scaninv/internal/domain"
)

// Cache is safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, entry Entry) error
	Invalidate(ctx context.Context, keys ...string) error
}

// Entry is the result of one successful lookup. An entry with no records
// records a confirmed absence; failed lookups are never stored.
type Entry struct {
	Records []*domain.Record
}

// First returns the canonical record of the entry, or nil when it is empty.
func (e Entry) First() *domain.Record {
	if len(e.Records) == 0 {
		return nil
	}
	return e.Records[0]
}

func (e Entry) clone() Entry {
	if e.Records == nil {
		return Entry{}
	}
	out := make([]*domain.Record, len(e.Records))
	for i, r := range e.Records {
		c := *r
		out[i] = &c
	}
	return Entry{Records: out}
}

func BarcodeKey(barcode string) string { return "barcode:" + barcode }

func IDKey(id string) string { return "id:" + id }
