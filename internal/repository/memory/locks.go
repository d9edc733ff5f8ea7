package memory

import (
	"context"
	"sync"

	"github.com/nkiryanov/bazaar/internal/apperrors"
)

// keyedLocks is a set of exclusive locks addressed by key
// Entries live only while held, so the set does not grow with the number of entities
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]chan struct{})}
}

// lock waits until the key is free or ctx is done
func (k *keyedLocks) lock(ctx context.Context, key string) error {
	for {
		k.mu.Lock()
		released, held := k.locks[key]
		if !held {
			k.locks[key] = make(chan struct{})
			k.mu.Unlock()
			return nil
		}
		k.mu.Unlock()

		select {
		case <-released:
		case <-ctx.Done():
			return apperrors.Transient(ctx.Err())
		}
	}
}

func (k *keyedLocks) unlock(key string) {
	k.mu.Lock()
	released := k.locks[key]
	delete(k.locks, key)
	k.mu.Unlock()

	if released != nil {
		close(released)
	}
}

func (k *keyedLocks) unlockAll(keys []string) {
	for _, key := range keys {
		k.unlock(key)
	}
}
