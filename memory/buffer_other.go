//go:build !linux

package memory

import (
	"errors"
	"unsafe"
)

var errNoNUMA = errors.New("NUMA binding not supported on this platform")

func allocate[T Element](n int, node int) (*Buffer[T], error) {
	pad := CacheLineSize / ElementSize[T]()
	raw := make([]T, n+pad)
	off := 0
	for uintptr(unsafe.Pointer(&raw[off]))%CacheLineSize != 0 {
		off++
	}
	return &Buffer[T]{
		Data:    raw[off : off+n : off+n],
		Node:    node,
		bindErr: errNoNUMA,
	}, nil
}
