package archive

import "sync"

// keyedMutex hands out one mutex per key so operations on distinct
// channels or chats never block each other.
type keyedMutex[K comparable] struct {
	mu    sync.Mutex
	locks map[K]*sync.Mutex
}

func newKeyedMutex[K comparable]() *keyedMutex[K] {
	return &keyedMutex[K]{locks: make(map[K]*sync.Mutex)}
}

func (k *keyedMutex[K]) get(key K) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}

// Lock acquires the mutex for key
func (k *keyedMutex[K]) Lock(key K) {
	k.get(key).Lock()
}

// Unlock releases the mutex for key
func (k *keyedMutex[K]) Unlock(key K) {
	k.get(key).Unlock()
}
