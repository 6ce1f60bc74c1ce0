// Package cache holds fetched tile content for the engine.
//
// Retention is purely visibility-driven: an entry survives exactly as long
// as its key stays in the currently required set. There is no TTL and no
// LRU here on purpose; re-fetching a tile when the viewport returns is
// cheap and keeps content fresh. Size is bounded indirectly by the
// engine's tile-count cap.
//
// TileCache is not safe for concurrent use. A single owner goroutine
// mutates it; fetch workers hand results to that owner instead of writing
// here directly.
package cache

import (
	"github.com/notomaps/tilengine/tile"
)

type TileCache struct {
	entries map[tile.Key]tile.Content
}

func NewTileCache() *TileCache {
	return &TileCache{entries: make(map[tile.Key]tile.Content)}
}

func (c *TileCache) Get(k tile.Key) (tile.Content, bool) {
	content, ok := c.entries[k]
	return content, ok
}

func (c *TileCache) Put(k tile.Key, content tile.Content) {
	c.entries[k] = content
}

func (c *TileCache) Has(k tile.Key) bool {
	_, ok := c.entries[k]
	return ok
}

func (c *TileCache) Len() int {
	return len(c.entries)
}

// Keys returns the cached keys in map order. Callers wanting stable order
// sort the result themselves.
func (c *TileCache) Keys() []tile.Key {
	keys := make([]tile.Key, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	return keys
}

// RetainOnly drops every entry whose key is not in required, leaving the
// rest untouched. Returns the number of evicted entries.
func (c *TileCache) RetainOnly(required map[tile.Key]bool) int {
	evicted := 0
	for k := range c.entries {
		if !required[k] {
			delete(c.entries, k)
			evicted++
		}
	}
	return evicted
}

func (c *TileCache) Clear() {
	clear(c.entries)
}
