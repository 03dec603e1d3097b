package common

import "sync"

// KeyedMutex serialises work per key. Entries are reference counted and
// removed when the last holder unlocks, so the map stays bounded by the
// number of keys in flight.
type KeyedMutex[K comparable] struct {
	mu    sync.Mutex
	locks map[K]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

// Lock blocks until key is free and returns the matching unlock function.
func (k *KeyedMutex[K]) Lock(key K) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[K]*keyedEntry)
	}
	entry, ok := k.locks[key]
	if !ok {
		entry = &keyedEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// Held reports how many keys currently have holders or waiters.
func (k *KeyedMutex[K]) Held() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
