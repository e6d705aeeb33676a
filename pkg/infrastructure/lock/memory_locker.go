package lock

import (
	"context"
	"sync"

	"github.com/vsinha/shopfloor/pkg/domain/repositories"
)

type keyLock struct {
	ch   chan struct{}
	refs int
}

// MemoryLocker serializes callers per key within one process
type MemoryLocker struct {
	locks map[string]*keyLock
	mutex sync.Mutex
}

// Verify interface compliance
var _ repositories.Locker = (*MemoryLocker)(nil)

// NewMemoryLocker creates a new in-process locker
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]*keyLock)}
}

// Lock blocks until key is free or ctx is done
func (l *MemoryLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mutex.Lock()
	kl, exists := l.locks[key]
	if !exists {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	l.mutex.Unlock()

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, kl, false)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(key, kl, true) })
	}, nil
}

func (l *MemoryLocker) release(key string, kl *keyLock, held bool) {
	if held {
		<-kl.ch
	}
	l.mutex.Lock()
	defer l.mutex.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}
