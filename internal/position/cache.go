package position

import (
	"sync"

	"github.com/skifflog/skiff/internal/entry"
)

// Key identifies one cache slot: an author public key paired with a target
// id. The target is a schema id for the first entry of a new document and
// the document id for every entry after that.
type Key struct {
	Author string
	Target string
}

// Cache holds the next-entry arguments for (author, target) pairs.
//
// Get consumes: a cached position is returned at most once. This guards
// against signing two entries against the same backlink, which the node
// would reject. Set overwrites: at most one position per key at any time.
//
// No expiry, no persistence. Lifetime is the owning session's lifetime.
//
// Thread-safety: Get and Set are safe for concurrent use. The
// get-then-consume contract still assumes at most one in-flight publish per
// key; callers racing on the same key must serialize with KeyedLock.
type Cache struct {
	mu    sync.Mutex
	slots map[Key]entry.LogPosition
}

// NewCache creates an empty position cache.
func NewCache() *Cache {
	return &Cache{slots: make(map[Key]entry.LogPosition)}
}

// Get returns and removes the cached position for (author, target).
// The second return is false when no position is cached; callers must then
// fetch the position from the node.
func (c *Cache) Get(author, target string) (entry.LogPosition, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := Key{Author: author, Target: target}
	pos, ok := c.slots[key]
	if ok {
		delete(c.slots, key)
	}
	return pos, ok
}

// Set stores the position for (author, target), overwriting any previous
// value in the slot.
func (c *Cache) Set(author, target string, pos entry.LogPosition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slots[Key{Author: author, Target: target}] = pos
}

// Len returns the number of cached positions.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.slots)
}
