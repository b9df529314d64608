package store

import (
	"hash/fnv"
	"sync"
)

// KeyedMutex serializes read-modify-write cycles on a per-key basis.
// Keys are hashed onto a fixed set of stripes so the lock table does
// not grow with the number of rooms.
type KeyedMutex struct {
	stripes []sync.Mutex
}

// NewKeyedMutex creates a KeyedMutex with the given number of stripes.
func NewKeyedMutex(stripes int) *KeyedMutex {
	if stripes <= 0 {
		stripes = 64
	}
	return &KeyedMutex{stripes: make([]sync.Mutex, stripes)}
}

// Lock acquires the stripe for key and returns its unlock function.
func (m *KeyedMutex) Lock(key string) func() {
	h := fnv.New32a()
	h.Write([]byte(key))
	stripe := &m.stripes[h.Sum32()%uint32(len(m.stripes))]
	stripe.Lock()
	return stripe.Unlock
}
