// Package lock provides keyed claims. The bot uses them to hold an in-world
// identifier for the lifetime of a session, so two sessions can never wait
// on the same payment name at once.
package lock

import (
	"strings"
	"sync"
)

// KeyLock is a set of claimed keys. Keys are case-insensitive and
// surrounding whitespace is ignored. A claim may be released from a
// different goroutine than the one that took it.
type KeyLock struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewKeyLock creates a new KeyLock instance.
func NewKeyLock() *KeyLock {
	return &KeyLock{held: make(map[string]struct{})}
}

func normalize(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// TryLock claims key without blocking.
// Returns true if the claim was taken, false if key is already held.
func (kl *KeyLock) TryLock(key string) bool {
	k := normalize(key)
	kl.mu.Lock()
	defer kl.mu.Unlock()
	if _, ok := kl.held[k]; ok {
		return false
	}
	kl.held[k] = struct{}{}
	return true
}

// Unlock releases the claim on key. Releasing a free key is a no-op.
func (kl *KeyLock) Unlock(key string) {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	delete(kl.held, normalize(key))
}
