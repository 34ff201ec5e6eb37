//go:build linux

package memory

import (
	"fmt"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/perfgo/gatherbench/status"
)

// from <numaif.h>
const mpolBind = 2

func allocate[T Element](n int, node int) (*Buffer[T], error) {
	size := n * ElementSize[T]()
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("%w: mmap %d bytes: %v", status.ErrNoMemory, size, err)
	}

	return &Buffer[T]{
		Data:    unsafe.Slice((*T)(unsafe.Pointer(&mem[0])), n),
		Node:    node,
		bindErr: mbind(mem, node),
		release: func() error { return unix.Munmap(mem) },
	}, nil
}

// mbind binds the not yet touched pages of mem to node, so the first write
// faults them in there.
func mbind(mem []byte, node int) error {
	if node < 0 {
		return fmt.Errorf("invalid NUMA node %d", node)
	}
	mask := make([]uint64, node/64+1)
	mask[node/64] |= 1 << (uint(node) % 64)

	_, _, errno := unix.Syscall6(
		unix.SYS_MBIND,
		uintptr(unsafe.Pointer(&mem[0])),
		uintptr(len(mem)),
		mpolBind,
		uintptr(unsafe.Pointer(&mask[0])),
		uintptr(len(mask)*64+1),
		0,
	)
	runtime.KeepAlive(mask)
	if errno != 0 {
		return fmt.Errorf("mbind node %d: %w", node, errno)
	}
	return nil
}
