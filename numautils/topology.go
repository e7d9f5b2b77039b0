// Package numautils discovers the machine's NUMA topology and provides
// socket-local memory placement and thread binding for the engine's
// worker hierarchy.
package numautils

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const sysNodePath = "/sys/devices/system/node"

// Topology describes the sockets of the machine and the CPUs belonging
// to each. A fake topology (see Fake) carries the same shape without
// any binding capability, for tests and non-NUMA hosts.
type Topology struct {
	nodes    []int
	nodeCPUs map[int][]int
	cpuNode  map[int]int
	numCPUs  int
	fake     bool
}

// NumNodes returns the number of NUMA nodes (sockets).
func (t *Topology) NumNodes() int { return len(t.nodes) }

// NumCPUs returns the total number of CPUs across all nodes.
func (t *Topology) NumCPUs() int { return t.numCPUs }

// NodeCPUs returns the CPUs belonging to a node.
func (t *Topology) NodeCPUs(node int) []int { return t.nodeCPUs[node] }

// IsFake reports whether this topology was synthesised rather than
// discovered, in which case binding and page placement are no-ops.
func (t *Topology) IsFake() bool { return t.fake }

// Detect reads the NUMA topology from sysfs.
func Detect() (*Topology, error) {
	if _, err := os.Stat(sysNodePath); os.IsNotExist(err) {
		return nil, errors.New("NUMA sysfs not available")
	}
	entries, err := os.ReadDir(sysNodePath)
	if err != nil {
		return nil, errors.Wrap(err, "read NUMA sysfs")
	}
	topo := &Topology{
		nodeCPUs: make(map[int][]int),
		cpuNode:  make(map[int]int),
	}
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), "node") {
			continue
		}
		nodeID, err := strconv.Atoi(strings.TrimPrefix(entry.Name(), "node"))
		if err != nil {
			continue
		}
		cpuData, err := os.ReadFile(filepath.Join(sysNodePath, entry.Name(), "cpulist"))
		if err != nil {
			continue
		}
		cpus := ParseCPUList(strings.TrimSpace(string(cpuData)))
		if len(cpus) == 0 {
			continue
		}
		topo.nodes = append(topo.nodes, nodeID)
		topo.nodeCPUs[nodeID] = cpus
		for _, cpu := range cpus {
			topo.cpuNode[cpu] = nodeID
			topo.numCPUs++
		}
	}
	if len(topo.nodes) == 0 {
		return nil, errors.New("no NUMA nodes found")
	}
	return topo, nil
}

// DetectOrFake returns the real topology when available and otherwise a
// single-node fake covering all CPUs.
func DetectOrFake() *Topology {
	if topo, err := Detect(); err == nil {
		return topo
	}
	return Fake(1, runtime.NumCPU())
}

// Fake builds a synthetic topology with the given shape. Binding and
// mbind are skipped for fake topologies.
func Fake(sockets, coresPerSocket int) *Topology {
	topo := &Topology{
		nodeCPUs: make(map[int][]int),
		cpuNode:  make(map[int]int),
		fake:     true,
	}
	cpu := 0
	for s := 0; s < sockets; s++ {
		topo.nodes = append(topo.nodes, s)
		for c := 0; c < coresPerSocket; c++ {
			topo.nodeCPUs[s] = append(topo.nodeCPUs[s], cpu)
			topo.cpuNode[cpu] = s
			topo.numCPUs++
			cpu++
		}
	}
	return topo
}

// ParseCPUList parses a sysfs cpulist string such as "0-5,12-17".
func ParseCPUList(cpuList string) []int {
	var cpus []int
	if cpuList == "" {
		return cpus
	}
	for _, part := range strings.Split(cpuList, ",") {
		part = strings.TrimSpace(part)
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			start, err1 := strconv.Atoi(lo)
			end, err2 := strconv.Atoi(hi)
			if err1 != nil || err2 != nil {
				continue
			}
			for i := start; i <= end; i++ {
				cpus = append(cpus, i)
			}
		} else if cpu, err := strconv.Atoi(part); err == nil {
			cpus = append(cpus, cpu)
		}
	}
	return cpus
}
