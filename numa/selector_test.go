package numa

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perfgo/gatherbench/status"
)

// eightNodes places two CPUs on each of eight nodes: cpu 2n and 2n+1 on node n.
func eightNodes() Static {
	topo := make(Static, 16)
	for cpu := range topo {
		topo[cpu] = cpu / 2
	}
	return topo
}

func TestAcceptsRing(t *testing.T) {
	for k := 0; k <= MaxNonspecificity; k++ {
		for target := 0; target < 8; target++ {
			accepted := 0
			for node := 0; node < 16; node++ {
				if Accepts(node, target, k) {
					accepted++
					// the ring is aligned to 2^k
					assert.Equal(t, target>>k, node>>k)
				}
			}
			assert.Equal(t, 1<<k, accepted, "k=%d target=%d", k, target)
		}
	}
	assert.False(t, Accepts(-1, 0, 3))
}

func TestSelectorPrefersTargetNode(t *testing.T) {
	sel := NewSelector(eightNodes(), 3)

	first, err := sel.Next()
	require.NoError(t, err)
	second, err := sel.Next()
	require.NoError(t, err)

	assert.Equal(t, []int{6, 7}, []int{first, second})
	assert.Equal(t, 0, sel.Nonspecificity())
	assert.True(t, sel.Claimed(6))
	assert.False(t, sel.Claimed(5))
}

func TestSelectorWidensMonotonically(t *testing.T) {
	topo := eightNodes()
	sel := NewSelector(topo, 0)

	seen := make(map[int]bool)
	last := 0
	for i := 0; i < topo.NumCPUs(); i++ {
		cpu, err := sel.Next()
		require.NoError(t, err)
		require.False(t, seen[cpu], "cpu %d handed out twice", cpu)
		seen[cpu] = true

		k := sel.Nonspecificity()
		require.GreaterOrEqual(t, k, last)
		last = k
		// every accepted cpu lies within the current ring
		assert.True(t, Accepts(topo.NodeOfCPU(cpu), 0, k))
	}
	assert.Equal(t, MaxNonspecificity, sel.Nonspecificity())

	_, err := sel.Next()
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrNotEnoughCPUs))
}

func TestSelectorRingOrder(t *testing.T) {
	// target node 5: first its own cpus, then node 4, then nodes 6 and 7,
	// then the remaining half of the machine
	sel := NewSelector(eightNodes(), 5)

	var got []int
	var ks []int
	for i := 0; i < 16; i++ {
		cpu, err := sel.Next()
		require.NoError(t, err)
		got = append(got, cpu)
		ks = append(ks, sel.Nonspecificity())
	}

	assert.Equal(t, []int{10, 11, 8, 9, 12, 13, 14, 15, 0, 1, 2, 3, 4, 5, 6, 7}, got)
	assert.Equal(t, []int{0, 0, 1, 1, 2, 2, 2, 2, 3, 3, 3, 3, 3, 3, 3, 3}, ks)
}

func TestSelectorRelaxationIsGlobal(t *testing.T) {
	// node 0 has a single cpu, node 1 three. Once widened, the selector keeps
	// accepting node 1 cpus without rescanning for node 0.
	topo := Static{0, 1, 1, 1}
	sel := NewSelector(topo, 0)

	cpu, err := sel.Next()
	require.NoError(t, err)
	assert.Equal(t, 0, cpu)

	for want := 1; want <= 3; want++ {
		cpu, err = sel.Next()
		require.NoError(t, err)
		assert.Equal(t, want, cpu)
		assert.Equal(t, 1, sel.Nonspecificity())
	}
}

func TestSelectorSkipsUnknownCPUs(t *testing.T) {
	sel := NewSelector(Static{-1, 0, -1, 0}, 0)

	var got []int
	for i := 0; i < 2; i++ {
		cpu, err := sel.Next()
		require.NoError(t, err)
		got = append(got, cpu)
	}
	assert.Equal(t, []int{1, 3}, got)

	_, err := sel.Next()
	assert.ErrorIs(t, err, status.ErrNotEnoughCPUs)
}

func TestSelectorExhaustsSingleNode(t *testing.T) {
	sel := NewSelector(SingleNode(2), 0)
	_, err := sel.Next()
	require.NoError(t, err)
	_, err = sel.Next()
	require.NoError(t, err)

	_, err = sel.Next()
	assert.ErrorIs(t, err, status.ErrNotEnoughCPUs)
	assert.Greater(t, sel.Nonspecificity(), MaxNonspecificity)
}
