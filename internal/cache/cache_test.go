package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FleetStock/internal/store"
)

func newTestCache(t *testing.T, ttl time.Duration, now *time.Time) *Cache {
	t.Helper()
	s, _, err := store.Open(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { _ = s.Close() })
	return New(s, ttl).WithNow(func() time.Time { return *now })
}

// Запись валидна пока возраст СТРОГО меньше TTL: на TTL-1мс ещё жива,
// на TTL уже нет.
func TestCache_TTLBoundary(t *testing.T) {
	const ttl = 24 * time.Hour
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := newTestCache(t, ttl, &now)

	require.NoError(t, c.Set(KeyTrucks, []string{"t1"}))

	var got []string
	now = now.Add(ttl - time.Millisecond)
	ok, err := c.Get(KeyTrucks, &got)
	require.NoError(t, err)
	assert.True(t, ok, "entry must be valid one ms before the TTL")
	assert.Equal(t, []string{"t1"}, got)

	now = now.Add(time.Millisecond)
	ok, err = c.Get(KeyTrucks, &got)
	require.NoError(t, err)
	assert.False(t, ok, "entry must age out exactly at the TTL")

	// протухшая запись вычищена, не просто скрыта
	now = now.Add(-ttl)
	ok, err = c.Get(KeyTrucks, &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_GetMissingKey(t *testing.T) {
	now := time.Now()
	c := newTestCache(t, time.Hour, &now)

	var got map[string]string
	ok, err := c.Get(KeySettings, &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_PurgeSelective(t *testing.T) {
	now := time.Now()
	c := newTestCache(t, time.Hour, &now)

	require.NoError(t, c.Set(KeySettings, map[string]string{"a": "1"}))
	require.NoError(t, c.Set(KeyTrucks, []string{"t1"}))

	require.NoError(t, c.Purge(KeySettings))

	var settings map[string]string
	ok, err := c.Get(KeySettings, &settings)
	require.NoError(t, err)
	assert.False(t, ok)

	var trucks []string
	ok, err = c.Get(KeyTrucks, &trucks)
	require.NoError(t, err)
	assert.True(t, ok, "other tiers must survive a selective purge")
}

func TestCache_PurgeAll(t *testing.T) {
	now := time.Now()
	c := newTestCache(t, time.Hour, &now)

	for _, k := range Keys {
		require.NoError(t, c.Set(k, "v"))
	}
	require.NoError(t, c.Purge())
	for _, k := range Keys {
		var got string
		ok, err := c.Get(k, &got)
		require.NoError(t, err)
		assert.False(t, ok, "key %s must be gone", k)
	}
}
