package pool

import (
	"sync"
	"sync/atomic"
)

// Barrier is a single-release start signal: any number of goroutines
// block in Wait until Release (or Abort) is called once, which wakes all
// of them together. Further calls are no-ops.
type Barrier struct {
	ch      chan struct{}
	once    sync.Once
	aborted atomic.Bool
}

func NewBarrier() *Barrier {
	return &Barrier{ch: make(chan struct{})}
}

// Wait blocks until the barrier is released. It returns false if the
// barrier was aborted instead, in which case the caller must not start
// timed work.
func (b *Barrier) Wait() bool {
	<-b.ch
	return !b.aborted.Load()
}

// Release wakes every waiter.
func (b *Barrier) Release() {
	b.once.Do(func() { close(b.ch) })
}

// Abort wakes every waiter, telling them to give up. Abort after Release
// has no effect.
func (b *Barrier) Abort() {
	b.once.Do(func() {
		b.aborted.Store(true)
		close(b.ch)
	})
}
