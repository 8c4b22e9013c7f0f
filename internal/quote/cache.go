// Package quote caches the latest market event per (symbol, kind).
//
// The cache is a monotonic last-value store: writes carry the event's
// own timestamp and a write only lands when it is at least as new as
// what is already stored, so replayed or reordered feed data converges
// to the same state. Reads are lock-free snapshots of unrelated keys;
// only writers to the same key contend.
package quote

import (
	"sync"
	"sync/atomic"

	"github.com/avollmer/tastygo/internal/model"
)

// Key identifies one cached slot.
type Key struct {
	Symbol model.Symbol
	Kind   model.EventKind
}

// entry holds the newest event for one key. Each entry has its own
// mutex so writers to different keys never serialize on each other.
type entry struct {
	mu    sync.Mutex
	event model.MarketEvent
}

// Cache stores the most recent market event per (symbol, kind).
// The zero value is not usable; call NewCache.
type Cache struct {
	entries sync.Map // Key -> *entry
	size    atomic.Int64
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// Put stores the event if it is at least as new as the currently stored
// one for its (symbol, kind), and reports whether it was stored. An
// equal timestamp overwrites; an older one is dropped.
func (c *Cache) Put(ev model.MarketEvent) bool {
	key := Key{Symbol: ev.EventSymbol(), Kind: ev.Kind()}

	v, loaded := c.entries.Load(key)
	if !loaded {
		v, loaded = c.entries.LoadOrStore(key, &entry{})
		if !loaded {
			c.size.Add(1)
		}
	}
	e := v.(*entry)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.event != nil && ev.Timestamp() < e.event.Timestamp() {
		return false
	}
	e.event = ev
	return true
}

// Get returns the stored event for the key, if any.
func (c *Cache) Get(symbol model.Symbol, kind model.EventKind) (model.MarketEvent, bool) {
	v, ok := c.entries.Load(Key{Symbol: symbol, Kind: kind})
	if !ok {
		return nil, false
	}
	e := v.(*entry)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.event == nil {
		return nil, false
	}
	return e.event, true
}

// Len returns the number of populated keys.
func (c *Cache) Len() int {
	return int(c.size.Load())
}

// Range calls fn for every cached event until fn returns false. The
// iteration order is unspecified and the view is not a point-in-time
// snapshot across keys.
func (c *Cache) Range(fn func(Key, model.MarketEvent) bool) {
	c.entries.Range(func(k, v any) bool {
		e := v.(*entry)
		e.mu.Lock()
		ev := e.event
		e.mu.Unlock()
		if ev == nil {
			return true
		}
		return fn(k.(Key), ev)
	})
}
