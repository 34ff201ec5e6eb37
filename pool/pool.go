// Package pool runs one benchmark trial: a pinned worker goroutine per
// core, each aggregating its own partition of a shared buffer, all started
// together by a single barrier release.
package pool

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/perfgo/gatherbench/aggregate"
	"github.com/perfgo/gatherbench/memory"
	"github.com/perfgo/gatherbench/numa"
	"github.com/perfgo/gatherbench/status"
)

// DefaultPollInterval is how often the orchestrator checks ready flags.
const DefaultPollInterval = time.Millisecond

// Config describes where workers run.
type Config struct {
	Topology numa.Topology
	Pinner   numa.Pinner
	// Node is the NUMA node the workers are placed around.
	Node         int
	PollInterval time.Duration
	Logger       zerolog.Logger
}

// Result is what one worker measured.
type Result[T memory.Element] struct {
	Worker   int
	CPU      int
	Value    T
	Duration time.Duration
}

// slot is written by exactly one worker. The trailing padding keeps the
// slots of neighbouring workers on different cache lines.
type slot[T memory.Element] struct {
	value    T
	duration time.Duration
	ready    atomic.Bool
	_        [memory.CacheLineSize]byte
}

// Run aggregates data with fn on cores workers. Worker tid owns elements
// [tid*n/cores, (tid+1)*n/cores); len(data) must be divisible by cores.
//
// CPUs are claimed from a fresh numa.Selector, so every trial starts with
// an empty claim set. Run returns only after every launched worker has
// finished, on success and on every error path.
func Run[T memory.Element](cfg Config, data []T, cores int, stride int, fn aggregate.Func[T]) ([]Result[T], error) {
	if cores < 1 || len(data)%cores != 0 {
		return nil, fmt.Errorf("%w: %d elements, %d cores", status.ErrUnevenPartition, len(data), cores)
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	pinner := cfg.Pinner
	if pinner == nil {
		pinner = numa.NopPinner{}
	}

	chunk := len(data) / cores
	slots := make([]slot[T], cores)
	cpus := make([]int, cores)
	sel := numa.NewSelector(cfg.Topology, cfg.Node)
	start := NewBarrier()

	var g errgroup.Group
	for tid := 0; tid < cores; tid++ {
		cpu, err := sel.Next()
		if err != nil {
			// workers launched so far are parked on the barrier
			start.Abort()
			_ = g.Wait()
			return nil, fmt.Errorf("could not find %d cpus in / around NUMA node %d: %w", tid+1, cfg.Node, err)
		}
		cpus[tid] = cpu

		part := data[tid*chunk : (tid+1)*chunk : (tid+1)*chunk]
		s := &slots[tid]
		g.Go(func() error {
			return work(pinner, cpu, s, start, part, stride, fn)
		})
	}

	cfg.Logger.Debug().
		Int("cores", cores).
		Ints("cpus", cpus).
		Int("nonspecificity", sel.Nonspecificity()).
		Msg("Workers launched")

	for !allReady(slots) {
		time.Sleep(poll)
	}
	start.Release()

	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make([]Result[T], cores)
	for tid := range slots {
		results[tid] = Result[T]{
			Worker:   tid,
			CPU:      cpus[tid],
			Value:    slots[tid].value,
			Duration: slots[tid].duration,
		}
	}
	return results, nil
}

func work[T memory.Element](pinner numa.Pinner, cpu int, s *slot[T], start *Barrier, part []T, stride int, fn aggregate.Func[T]) error {
	// Never unlocked: when the goroutine returns, the runtime terminates
	// the pinned thread instead of handing it to other goroutines.
	runtime.LockOSThread()
	pinErr := pinner.Pin(cpu)

	s.ready.Store(true)
	if !start.Wait() || pinErr != nil {
		return pinErr
	}

	begin := time.Now()
	s.value = fn(part, stride)
	s.duration = time.Since(begin)
	return nil
}

func allReady[T memory.Element](slots []slot[T]) bool {
	for i := range slots {
		if !slots[i].ready.Load() {
			return false
		}
	}
	return true
}
