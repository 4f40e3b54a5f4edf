// Package lock provides per-key locking for balance-modifying operations.
// Keys are account phone numbers.
package lock

import (
	"context"
	"sync"
	"time"
)

// keyMutex wraps a mutex with a reference count so idle entries can be dropped.
type keyMutex struct {
	mu   sync.Mutex
	refs int
}

// KeyLock serializes operations that share a key within one process.
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]*keyMutex
}

// NewKeyLock creates a new KeyLock instance.
func NewKeyLock() *KeyLock {
	return &KeyLock{locks: make(map[string]*keyMutex)}
}

// acquire returns the mutex for key, registering interest in it.
func (kl *KeyLock) acquire(key string) *keyMutex {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	km, ok := kl.locks[key]
	if !ok {
		km = &keyMutex{}
		kl.locks[key] = km
	}
	km.refs++
	return km
}

// release drops interest in key and forgets the mutex once nobody holds or waits on it.
func (kl *KeyLock) release(key string, km *keyMutex) {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	km.refs--
	if km.refs == 0 {
		delete(kl.locks, key)
	}
}

// Lock acquires the lock for key.
func (kl *KeyLock) Lock(key string) {
	kl.acquire(key).mu.Lock()
}

// Unlock releases the lock for key. Unlocking a key that is not held is a no-op.
func (kl *KeyLock) Unlock(key string) {
	kl.mu.Lock()
	km, ok := kl.locks[key]
	kl.mu.Unlock()
	if !ok {
		return
	}
	km.mu.Unlock()
	kl.release(key, km)
}

// TryLock attempts to acquire the lock without blocking.
func (kl *KeyLock) TryLock(key string) bool {
	km := kl.acquire(key)
	if km.mu.TryLock() {
		return true
	}
	kl.release(key, km)
	return false
}

// LockContext acquires the lock for key, giving up when ctx is done.
func (kl *KeyLock) LockContext(ctx context.Context, key string) error {
	km := kl.acquire(key)

	done := make(chan struct{})
	go func() {
		km.mu.Lock()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		// The waiter still owns a pending Lock; hand the mutex back once it lands.
		go func() {
			<-done
			km.mu.Unlock()
			kl.release(key, km)
		}()
		return ctx.Err()
	}
}

// WithLock executes fn while holding the lock for key.
func (kl *KeyLock) WithLock(key string, fn func() error) error {
	kl.Lock(key)
	defer kl.Unlock(key)
	return fn()
}

// WithLockTimeout executes fn while holding the lock for key, failing with
// ErrLockTimeout if the lock is not acquired within timeout.
func (kl *KeyLock) WithLockTimeout(ctx context.Context, key string, timeout time.Duration, fn func() error) error {
	lockCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := kl.LockContext(lockCtx, key); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrLockTimeout
	}
	defer kl.Unlock(key)

	return fn()
}

// IsLocked reports whether key is currently held. The answer may be stale
// by the time the caller acts on it.
func (kl *KeyLock) IsLocked(key string) bool {
	kl.mu.Lock()
	km, ok := kl.locks[key]
	kl.mu.Unlock()
	if !ok {
		return false
	}
	if km.mu.TryLock() {
		km.mu.Unlock()
		return false
	}
	return true
}

// Len returns the number of keys currently tracked.
func (kl *KeyLock) Len() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return len(kl.locks)
}
