package storage

import (
	"context"
	"sync"
)

// A chainLock is an exclusive in-process mutex with FIFO handover:
// pending acquirers are granted the lock strictly in the order their
// Acquire calls were made. sync.Mutex makes no fairness promise, and
// registry edits for one chain must apply in submission order, so the
// waiter queue is explicit.
type chainLock struct {
	mu      sync.Mutex
	locked  bool
	waiters []chan struct{}
}

// Acquire blocks until the lock is held or ctx is done.
func (l *chainLock) Acquire(ctx context.Context) error {
	l.mu.Lock()
	if !l.locked {
		l.locked = true
		l.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	l.waiters = append(l.waiters, ch)
	l.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		l.mu.Lock()
		for i, w := range l.waiters {
			if w == ch {
				l.waiters = append(l.waiters[:i], l.waiters[i+1:]...)
				l.mu.Unlock()
				return ctx.Err()
			}
		}
		l.mu.Unlock()
		// The lock was handed to us between ctx firing and dequeue:
		// pass it along so the queue keeps moving.
		l.Release()
		return ctx.Err()
	}
}

// Release hands the lock to the oldest waiter, or unlocks if none wait.
func (l *chainLock) Release() {
	l.mu.Lock()
	if len(l.waiters) > 0 {
		ch := l.waiters[0]
		l.waiters = l.waiters[1:]
		l.mu.Unlock()
		// The lock stays held; closing the channel transfers ownership.
		close(ch)
		return
	}
	l.locked = false
	l.mu.Unlock()
}
