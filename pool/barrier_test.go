package pool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBarrierReleasesAllWaiters(t *testing.T) {
	const waiters = 16
	b := NewBarrier()

	var passed atomic.Int32
	var proceed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if b.Wait() {
				proceed.Add(1)
			}
			passed.Add(1)
		}()
	}

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, passed.Load(), "no waiter may pass before release")

	b.Release()
	b.Release()
	wg.Wait()
	assert.Equal(t, int32(waiters), passed.Load())
	assert.Equal(t, int32(waiters), proceed.Load())

	// late waiters do not block
	assert.True(t, b.Wait())
}

func TestBarrierAbort(t *testing.T) {
	b := NewBarrier()
	done := make(chan bool)
	go func() { done <- b.Wait() }()

	b.Abort()
	assert.False(t, <-done)

	// release after abort keeps the barrier aborted
	b.Release()
	assert.False(t, b.Wait())
}

func TestBarrierAbortAfterRelease(t *testing.T) {
	b := NewBarrier()
	b.Release()
	b.Abort()
	assert.True(t, b.Wait())
}
