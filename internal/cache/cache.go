package cache

import (
	"encoding/json"
	"time"

	"FleetStock/internal/store"
)

// Cache keys for the slow-changing entities. Quantities are never cached.
const (
	KeySettings    = "settings"
	KeyCategories  = "categories"
	KeyTrucks      = "trucks"
	KeyPartsStatic = "parts_static"
)

// Keys lists every cache key, for a full purge on user-initiated refresh.
var Keys = []string{KeySettings, KeyCategories, KeyTrucks, KeyPartsStatic}

// Cache is a TTL wrapper over the local KV store. An entry is valid while
// now - stored_at < TTL; expired entries are evicted on read.
type Cache struct {
	store *store.Store
	ttl   time.Duration
	now   func() time.Time
}

func New(s *store.Store, ttl time.Duration) *Cache {
	return &Cache{store: s, ttl: ttl, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (c *Cache) WithNow(now func() time.Time) *Cache {
	c.now = now
	return c
}

// Get unmarshals the cached value into v. ok is false when the key is absent
// or the entry has aged out (in which case it is deleted).
func (c *Cache) Get(key string, v any) (ok bool, err error) {
	raw, storedAt, found, err := c.store.Get(key)
	if err != nil || !found {
		return false, err
	}
	age := c.now().UnixMilli() - storedAt
	if age >= c.ttl.Milliseconds() {
		// протухло — убираем и отвечаем "нет"
		_ = c.store.Delete(key)
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores v under key with the current timestamp.
func (c *Cache) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.store.Put(key, raw, c.now().UnixMilli())
}

// Purge drops the given keys (all keys when none given).
func (c *Cache) Purge(keys ...string) error {
	if len(keys) == 0 {
		keys = Keys
	}
	return c.store.Delete(keys...)
}
