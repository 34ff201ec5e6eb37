// Package numa contains NUMA topology discovery, locality-aware CPU
// selection and thread pinning.
//
// CPU selection is pure: a Selector only consults a Topology and its own
// claim set, so it can be driven by a Static topology in tests. Pinning is
// a separate capability (Pinner) applied by whoever runs on the chosen CPU.
package numa

import (
	"fmt"

	"github.com/perfgo/gatherbench/status"
)

// MaxNonspecificity is the widest ring a Selector accepts: 2^3 = 8 nodes.
const MaxNonspecificity = 3

// Accepts reports whether node lies in the ring of 2^nonspecificity
// aligned nodes around target.
func Accepts(node, target, nonspecificity int) bool {
	if node < 0 || target < 0 {
		return false
	}
	mask := ^((1 << nonspecificity) - 1)
	return node&mask == target&mask
}

// Selector hands out unclaimed CPUs close to a target node, widening the
// accepted ring of nodes whenever a full scan finds nothing. One Selector
// serves one trial; a fresh Selector starts with an empty claim set.
type Selector struct {
	topo    Topology
	target  int
	cursor  int
	nonspec int
	claimed map[int]struct{}
}

// NewSelector returns a Selector for CPUs around target.
func NewSelector(topo Topology, target int) *Selector {
	return &Selector{
		topo:    topo,
		target:  target,
		claimed: make(map[int]struct{}),
	}
}

// Next claims and returns the next acceptable CPU, scanning upward from
// just past the previously returned one.
func (s *Selector) Next() (int, error) {
	numCPUs := s.topo.NumCPUs()
	for {
		if s.cursor >= numCPUs {
			// every cpu was inspected, accept nodes further away
			s.nonspec++
			if s.nonspec > MaxNonspecificity {
				return -1, fmt.Errorf("%w: %d cpus in use, even accepting %d NUMA nodes around node %d",
					status.ErrNotEnoughCPUs, len(s.claimed), 1<<MaxNonspecificity, s.target)
			}
			s.cursor = 0
		}

		cpu := s.cursor
		s.cursor++
		if _, taken := s.claimed[cpu]; taken {
			continue
		}
		if !Accepts(s.topo.NodeOfCPU(cpu), s.target, s.nonspec) {
			continue
		}
		s.claimed[cpu] = struct{}{}
		return cpu, nil
	}
}

// Nonspecificity returns the current ring width exponent.
func (s *Selector) Nonspecificity() int { return s.nonspec }

// Claimed reports whether cpu was handed out by this Selector.
func (s *Selector) Claimed(cpu int) bool {
	_, ok := s.claimed[cpu]
	return ok
}
