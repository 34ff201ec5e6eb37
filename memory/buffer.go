// Package memory allocates the NUMA-resident benchmark buffer and fills
// it with pseudo-random values.
package memory

import (
	"fmt"
	"math/rand/v2"
	"unsafe"

	"github.com/perfgo/gatherbench/status"
)

// CacheLineSize is the alignment guaranteed for every buffer.
const CacheLineSize = 64

// Element is the integer type aggregated by the benchmark.
type Element interface {
	~uint32 | ~uint64
}

// Buffer is a contiguous array of T placed on a NUMA node.
type Buffer[T Element] struct {
	// Data must not be used after Free.
	Data []T
	// Node is the NUMA node the memory was bound to.
	Node int

	bindErr error
	release func() error
	freed   bool
}

// Allocate reserves n zero-on-first-touch elements, best-effort bound to
// node. Failure to bind is not an error, see BindError.
func Allocate[T Element](n int, node int) (*Buffer[T], error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: invalid element count %d", status.ErrNoMemory, n)
	}
	return allocate[T](n, node)
}

// BindError returns why the buffer could not be bound to its node, or nil.
func (b *Buffer[T]) BindError() error { return b.bindErr }

// Bytes returns the buffer size in bytes.
func (b *Buffer[T]) Bytes() int {
	return len(b.Data) * ElementSize[T]()
}

// Free releases the memory. Calling Free twice is a no-op.
func (b *Buffer[T]) Free() error {
	if b == nil || b.freed {
		return nil
	}
	b.freed = true
	b.Data = nil
	if b.release == nil {
		return nil
	}
	return b.release()
}

// ElementSize returns sizeof(T) in bytes.
func ElementSize[T Element]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// Randomize fills data from a PCG source seeded with seed, so equal seeds
// give equal buffers.
func Randomize[T Element](data []T, seed uint64) {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	for i := range data {
		data[i] = T(r.Uint64())
	}
}
