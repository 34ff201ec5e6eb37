package numa

// topology.go contains NUMA topology discovery from sysfs.

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
)

// SysfsNodePath is where Linux exposes one directory per NUMA node.
const SysfsNodePath = "/sys/devices/system/node"

// Topology answers which NUMA node owns a logical CPU.
type Topology interface {
	// NumCPUs returns one past the highest logical CPU id.
	NumCPUs() int
	// NodeOfCPU returns the owning node, or -1 if the CPU is unknown or offline.
	NodeOfCPU(cpu int) int
}

// Static is a topology given explicitly: Static[cpu] is the node of cpu.
type Static []int

func (s Static) NumCPUs() int { return len(s) }

func (s Static) NodeOfCPU(cpu int) int {
	if cpu < 0 || cpu >= len(s) {
		return -1
	}
	return s[cpu]
}

// Nodes returns the distinct node ids in ascending order.
func (s Static) Nodes() []int {
	seen := make(map[int]bool)
	var nodes []int
	for _, node := range s {
		if node >= 0 && !seen[node] {
			seen[node] = true
			nodes = append(nodes, node)
		}
	}
	sort.Ints(nodes)
	return nodes
}

// CPUsOfNode returns the CPUs owned by node in ascending order.
func (s Static) CPUsOfNode(node int) []int {
	var cpus []int
	for cpu, n := range s {
		if n == node {
			cpus = append(cpus, cpu)
		}
	}
	return cpus
}

// SingleNode returns a topology placing n CPUs on node 0.
func SingleNode(n int) Static {
	return make(Static, n)
}

// DetectTopology reads the NUMA topology from sysfs. Systems without NUMA
// sysfs get a single-node topology covering runtime.NumCPU() CPUs.
func DetectTopology() (Static, error) {
	topo, err := DetectTopologyFrom(SysfsNodePath)
	if err != nil {
		return SingleNode(runtime.NumCPU()), err
	}
	return topo, nil
}

// DetectTopologyFrom reads node*/cpulist files below root.
func DetectTopologyFrom(root string) (Static, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read NUMA sysfs: %w", err)
	}

	cpuNode := make(map[int]int)
	maxCPU := -1
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), "node") {
			continue
		}
		nodeID, err := strconv.Atoi(strings.TrimPrefix(entry.Name(), "node"))
		if err != nil {
			continue
		}
		data, err := os.ReadFile(filepath.Join(root, entry.Name(), "cpulist"))
		if err != nil {
			continue
		}
		cpus, err := ParseCPUList(strings.TrimSpace(string(data)))
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", nodeID, err)
		}
		for _, cpu := range cpus {
			cpuNode[cpu] = nodeID
			if cpu > maxCPU {
				maxCPU = cpu
			}
		}
	}
	if maxCPU < 0 {
		return nil, errors.New("no NUMA nodes found")
	}

	topo := make(Static, maxCPU+1)
	for cpu := range topo {
		topo[cpu] = -1
	}
	for cpu, node := range cpuNode {
		topo[cpu] = node
	}
	return topo, nil
}

// ParseCPUList parses the kernel cpulist format, e.g. "0-3,8,10-11".
func ParseCPUList(list string) ([]int, error) {
	var cpus []int
	if list == "" {
		return cpus, nil
	}
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			start, err := strconv.Atoi(lo)
			if err != nil {
				return nil, fmt.Errorf("invalid cpu range %q: %w", part, err)
			}
			end, err := strconv.Atoi(hi)
			if err != nil {
				return nil, fmt.Errorf("invalid cpu range %q: %w", part, err)
			}
			if end < start {
				return nil, fmt.Errorf("invalid cpu range %q", part)
			}
			for i := start; i <= end; i++ {
				cpus = append(cpus, i)
			}
			continue
		}
		cpu, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid cpu %q: %w", part, err)
		}
		cpus = append(cpus, cpu)
	}
	return cpus, nil
}
