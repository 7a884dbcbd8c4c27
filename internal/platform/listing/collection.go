// Package listing holds the locally cached entity collections behind each
// dashboard and the loader that fills them from the backend.
//
// A Collection is mutated in exactly two ways: Replace (a full reload, done by
// a Loader) and Patch (one record, done by a lifecycle controller after the
// backend acknowledged a change). While any edit is open, reloads are parked
// and applied when the last edit closes, with the patches made in between
// re-applied to the records that still exist. A reload whose fetch started
// before a patch likewise re-applies that patch, since the fetched list may
// predate it.
package listing

import "sync"

// Keyed records have a stable numeric id.
type Keyed interface {
	Key() int64
}

type Collection[T Keyed] struct {
	mu       sync.RWMutex
	items    []T
	index    map[int64]int
	loaded   bool
	loading  bool
	banner   string
	edits    int
	deferred []T
	hasDefer bool
	patches  map[int64]T
	version  uint64

	// loads counts fetches started with LoadToken and not yet settled;
	// while any is pending, patches are kept in recent with their version.
	loads  int
	recent map[int64]stamped[T]
}

type stamped[T any] struct {
	item    T
	version uint64
}

func NewCollection[T Keyed]() *Collection[T] {
	return &Collection[T]{index: map[int64]int{}, patches: map[int64]T{}, recent: map[int64]stamped[T]{}}
}

// Snapshot returns a copy of the records in backend order.
func (c *Collection[T]) Snapshot() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Collection[T]) Get(id int64) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.index[id]
	if !ok {
		var zero T
		return zero, false
	}
	return c.items[i], true
}

func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Loaded reports whether at least one load succeeded.
func (c *Collection[T]) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Version increases on every applied mutation.
func (c *Collection[T]) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Replace swaps in a full reload. It returns false when the reload was parked
// because edits are open.
func (c *Collection[T]) Replace(items []T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.edits > 0 {
		c.deferred = append(c.deferred[:0], items...)
		c.hasDefer = true
		return false
	}
	c.replaceLocked(items)
	return true
}

// LoadToken registers a fetch about to start. The token must be handed back
// to ReplaceIfCurrent, or to ReleaseLoad when the fetch failed.
func (c *Collection[T]) LoadToken() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loads++
	return c.version
}

// ReleaseLoad settles a fetch that produced nothing.
func (c *Collection[T]) ReleaseLoad() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settleLoadLocked()
}

// ReplaceIfCurrent applies a reload fetched under token. Patches made after
// the token was taken are re-applied on top of the fetched records, so an
// acknowledged change is never rolled back by an older list. Like Replace, it
// returns false when the reload was parked behind open edits.
func (c *Collection[T]) ReplaceIfCurrent(items []T, token uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.settleLoadLocked()

	if c.edits > 0 {
		c.deferred = append(c.deferred[:0], items...)
		c.hasDefer = true
		for id, p := range c.recent {
			if p.version > token {
				c.patches[id] = p.item
			}
		}
		return false
	}
	c.replaceLocked(items)
	for id, p := range c.recent {
		if p.version <= token {
			continue
		}
		if i, ok := c.index[id]; ok {
			c.items[i] = p.item
		}
	}
	return true
}

func (c *Collection[T]) settleLoadLocked() {
	if c.loads > 0 {
		c.loads--
	}
	if c.loads == 0 {
		clear(c.recent)
	}
}

func (c *Collection[T]) replaceLocked(items []T) {
	c.items = make([]T, len(items))
	copy(c.items, items)
	c.index = make(map[int64]int, len(items))
	for i, it := range c.items {
		c.index[it.Key()] = i
	}
	c.loaded = true
	c.version++
}

// Patch replaces the record with the same key. It returns false if the record
// is not in the collection.
func (c *Collection[T]) Patch(item T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.index[item.Key()]
	if !ok {
		return false
	}
	c.items[i] = item
	c.version++
	if c.edits > 0 {
		c.patches[item.Key()] = item
	}
	if c.loads > 0 {
		c.recent[item.Key()] = stamped[T]{item: item, version: c.version}
	}
	return true
}

// BeginEdit opens an edit; reloads are parked until every edit is closed.
func (c *Collection[T]) BeginEdit() {
	c.mu.Lock()
	c.edits++
	c.mu.Unlock()
}

// EndEdit closes an edit and applies a parked reload once none remain open.
func (c *Collection[T]) EndEdit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.edits == 0 {
		return
	}
	c.edits--
	if c.edits > 0 {
		return
	}
	if c.hasDefer {
		c.replaceLocked(c.deferred)
		for id, p := range c.patches {
			if i, ok := c.index[id]; ok {
				c.items[i] = p
			}
		}
		c.deferred = nil
		c.hasDefer = false
	}
	c.patches = map[int64]T{}
}

// Editing reports whether an edit is open.
func (c *Collection[T]) Editing() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.edits > 0
}

func (c *Collection[T]) SetLoading(v bool) {
	c.mu.Lock()
	c.loading = v
	c.mu.Unlock()
}

func (c *Collection[T]) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// SetBanner records the message of the last failure for display.
func (c *Collection[T]) SetBanner(msg string) {
	c.mu.Lock()
	c.banner = msg
	c.mu.Unlock()
}

func (c *Collection[T]) Banner() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.banner
}

// Dismiss clears the banner.
func (c *Collection[T]) Dismiss() {
	c.SetBanner("")
}
