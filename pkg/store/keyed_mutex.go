package store

import (
	"context"
	"sync"
)

// Locker serializes the turns of one session. KeyedMutex covers a single
// process; the Redis locker covers replicas sharing a Redis session store.
type Locker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

// KeyedMutex serializes work per key. Entries are dropped once no goroutine
// holds or waits for them.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

var _ Locker = &KeyedMutex{}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex creates an empty in-process Locker.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyLock)}
}

// Lock blocks until key is free and returns its unlock function.
func (k *KeyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// Acquire implements Locker. It waits for the key without giving up on ctx,
// so the error is always nil.
func (k *KeyedMutex) Acquire(_ context.Context, key string) (func(), error) {
	return k.Lock(key), nil
}

// Len returns the number of keys currently held or awaited.
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
