package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestClient(t *testing.T, size int) (*MemoryClient, *fakeClock) {
	t.Helper()
	c := NewMemoryClient(size)
	t.Cleanup(func() { _ = c.Close() })
	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	c.now = clock.now
	return c, clock
}

func TestMemoryClient_GetSet(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t, 10)

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryClient_CopiesValue(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t, 10)

	buf := []byte("abc")
	require.NoError(t, c.Set(ctx, "k", buf, 0))
	buf[0] = 'x'

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)
}

func TestMemoryClient_Expiry(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestClient(t, 10)

	require.NoError(t, c.Set(ctx, "short", []byte("1"), time.Second))
	require.NoError(t, c.Set(ctx, "forever", []byte("2"), 0))

	clock.advance(2 * time.Second)

	_, err := c.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.Get(ctx, "forever")
	assert.NoError(t, err)

	c.sweep()
	assert.Equal(t, 1, c.size())
}

func TestMemoryClient_EvictsSoonestExpiry(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t, 2)

	require.NoError(t, c.Set(ctx, "keep", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "soon", []byte("2"), time.Second))
	require.NoError(t, c.Set(ctx, "new", []byte("3"), time.Hour))

	assert.Equal(t, 2, c.size())
	_, err := c.Get(ctx, "soon")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.Get(ctx, "keep")
	assert.NoError(t, err)

	// overwriting an existing key never evicts
	require.NoError(t, c.Set(ctx, "new", []byte("4"), time.Hour))
	assert.Equal(t, 2, c.size())
}

func TestMemoryClient_CloseIsIdempotent(t *testing.T) {
	c := NewMemoryClient(0)
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}
