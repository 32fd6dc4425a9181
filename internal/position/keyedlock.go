package position

import "sync"

// KeyedLock serializes publishes per cache key. Independent keys proceed
// concurrently; two publishes on the same (author, target) run one at a
// time, which keeps the cache's consume-once contract safe.
//
// Lock entries are reference counted and removed when the last holder
// unlocks, so the lock table does not grow with the number of keys ever
// seen.
type KeyedLock struct {
	mu    sync.Mutex
	locks map[Key]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedLock creates an empty keyed lock.
func NewKeyedLock() *KeyedLock {
	return &KeyedLock{locks: make(map[Key]*keyLock)}
}

// Lock acquires the lock for (author, target) and returns the matching
// unlock function. The unlock function must be called exactly once.
func (l *KeyedLock) Lock(author, target string) func() {
	key := Key{Author: author, Target: target}

	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	kl.mu.Lock()

	return func() {
		kl.mu.Unlock()

		l.mu.Lock()
		kl.refs--
		if kl.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}
