//go:build linux

package numa

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/perfgo/gatherbench/status"
)

func pinCurrentThread(cpu int) error {
	var set unix.CPUSet
	set.Set(cpu)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("%w: sched_setaffinity(cpu %d): %v", status.ErrRunningOnWrongCPUNUMANode, cpu, err)
	}

	var got unix.CPUSet
	if err := unix.SchedGetaffinity(0, &got); err != nil {
		return fmt.Errorf("%w: sched_getaffinity: %v", status.ErrRunningOnWrongCPUNUMANode, err)
	}
	if got.Count() != 1 || !got.IsSet(cpu) {
		return fmt.Errorf("%w: wanted cpu %d, affinity covers %d cpus", status.ErrRunningOnWrongCPUNUMANode, cpu, got.Count())
	}
	return nil
}
