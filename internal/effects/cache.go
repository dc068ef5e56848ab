package effects

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// OptionsCache keeps recent command outputs used to populate menus and
// select fields, keyed by command line.
type OptionsCache struct {
	entries *cache.Cache
}

// NewOptionsCache creates a cache; a zero ttl disables it.
func NewOptionsCache(ttl time.Duration) *OptionsCache {
	c := &OptionsCache{}
	if ttl > 0 {
		c.entries = cache.New(ttl, 2*ttl)
	}
	return c
}

// Get returns a fresh entry.
func (c *OptionsCache) Get(key string) ([]byte, bool) {
	if c.entries == nil {
		return nil, false
	}
	v, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	return v.([]byte), true
}

// Put stores raw under key.
func (c *OptionsCache) Put(key string, raw []byte) {
	if c.entries == nil {
		return
	}
	c.entries.Set(key, raw, cache.DefaultExpiration)
}

// Invalidate drops key, forcing the next request to run the command.
func (c *OptionsCache) Invalidate(key string) {
	if c.entries == nil {
		return
	}
	c.entries.Delete(key)
}
