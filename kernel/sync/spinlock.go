// Package sync provides the synchronization primitives used by the memory
// core: a busy-wait Spinlock suitable for the kernel's single-CPU,
// non-preemptive execution model, and OnceLock, the "once-initialized-then-
// locked cell" that wraps each of the PMM, VMM and heap singletons.
package sync

import "sync/atomic"

// Spinlock implements a lock where the caller busy-waits until the lock
// becomes available. There is no yield target (the kernel has no
// scheduler); re-acquiring a lock already held by the current thread of
// execution deadlocks, exactly as a real spinlock would.
type Spinlock struct {
	state uint32
}

// Acquire blocks until the lock can be acquired.
func (l *Spinlock) Acquire() {
	for !atomic.CompareAndSwapUint32(&l.state, 0, 1) {
	}
}

// TryAcquire attempts to acquire the lock without blocking. It returns true
// if the lock was acquired.
func (l *Spinlock) TryAcquire() bool {
	return atomic.CompareAndSwapUint32(&l.state, 0, 1)
}

// Release relinquishes a held lock. Calling Release while the lock is free
// has no effect.
func (l *Spinlock) Release() {
	atomic.StoreUint32(&l.state, 0)
}
