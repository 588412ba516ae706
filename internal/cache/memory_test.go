package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/scaninv/internal/domain"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "barcode:999", BarcodeKey("999"))
	assert.Equal(t, "id:abc", IDKey("abc"))
}

func TestMemorySetGet(t *testing.T) {
	c := NewMemory(16, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, BarcodeKey("999"), Entry{Records: []*domain.Record{{ID: "1", Name: "Chair"}}}))

	e, ok, err := c.Get(ctx, BarcodeKey("999"))
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, e.First())
	assert.Equal(t, "1", e.First().ID)
}

func TestMemoryAbsenceIsCached(t *testing.T) {
	c := NewMemory(16, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, BarcodeKey("404"), Entry{}))

	e, ok, err := c.Get(ctx, BarcodeKey("404"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Nil(t, e.First())
}

func TestMemoryMiss(t *testing.T) {
	c := NewMemory(16, time.Minute)

	_, ok, err := c.Get(context.Background(), IDKey("nope"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryInvalidate(t *testing.T) {
	c := NewMemory(16, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, BarcodeKey("1"), Entry{}))
	require.NoError(t, c.Set(ctx, IDKey("1"), Entry{}))
	require.NoError(t, c.Set(ctx, BarcodeKey("2"), Entry{}))

	require.NoError(t, c.Invalidate(ctx, BarcodeKey("1"), IDKey("1")))

	_, ok, _ := c.Get(ctx, BarcodeKey("1"))
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, IDKey("1"))
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, BarcodeKey("2"))
	assert.True(t, ok)
	assert.Equal(t, 1, c.Len())
}

// Callers mutating a returned record must not change what is cached.
func TestMemoryReturnsCopies(t *testing.T) {
	c := NewMemory(16, time.Minute)
	ctx := context.Background()

	rec := &domain.Record{ID: "1", Name: "Chair"}
	require.NoError(t, c.Set(ctx, IDKey("1"), Entry{Records: []*domain.Record{rec}}))
	rec.Name = "mutated after set"

	e, _, err := c.Get(ctx, IDKey("1"))
	require.NoError(t, err)
	e.First().Name = "mutated after get"

	again, _, err := c.Get(ctx, IDKey("1"))
	require.NoError(t, err)
	assert.Equal(t, "Chair", again.First().Name)
}

func TestMemoryExpires(t *testing.T) {
	c := NewMemory(16, 10*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, BarcodeKey("1"), Entry{}))
	assert.Eventually(t, func() bool {
		_, ok, _ := c.Get(ctx, BarcodeKey("1"))
		return !ok
	}, time.Second, 5*time.Millisecond)
}
