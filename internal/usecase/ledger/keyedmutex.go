package ledger

import "sync"

// KeyedMutex provides mutual exclusion scoped to a string key. Locking one
// key never blocks holders of other keys, which is what gives the ledger
// per-user serialization without a global lock.
//
// Mutexes are allocated lazily and kept for the life of the process; the
// simulator's user population is small enough that no eviction is needed.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewKeyedMutex creates an empty keyed mutex
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{
		locks: make(map[string]*sync.Mutex),
	}
}

// Lock acquires the mutex for the given key, blocking until it is free.
// The returned function releases it.
func (k *KeyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
