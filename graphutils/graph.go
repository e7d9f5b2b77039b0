// Package graphutils holds the immutable in-memory graph, the
// per-socket shard projections, the degree-spreading hash permutation,
// and the graph file loaders.
package graphutils

import (
	"github.com/intel/forGoParallel/parallel"
)

// Graph is an immutable weighted directed graph in CSR form. A
// symmetric graph stores one adjacency and aliases the in-CSR to the
// out-CSR; an asymmetric graph carries both directions. Weights are
// nil for unweighted graphs and treated as 1.
type Graph struct {
	N int
	M int64

	Symmetric bool

	OutOffsets []int64
	OutEdges   []int32
	OutWeights []int32

	InOffsets []int64
	InEdges   []int32
	InWeights []int32

	// FakeDegree is the pre-computed out-degree of each vertex. Shards
	// carry their own FakeDegree (local in-degree), which is what sizes
	// per-core shards and edge arenas.
	FakeDegree []int32
}

// NewGraph builds a graph from an out-CSR. For asymmetric graphs the
// transpose is derived; for symmetric graphs the in-CSR aliases the
// out-CSR.
func NewGraph(n int, offsets []int64, edges []int32, weights []int32, symmetric bool) *Graph {
	g := &Graph{
		N:          n,
		M:          int64(len(edges)),
		Symmetric:  symmetric,
		OutOffsets: offsets,
		OutEdges:   edges,
		OutWeights: weights,
	}
	if symmetric {
		g.InOffsets = offsets
		g.InEdges = edges
		g.InWeights = weights
	} else {
		g.buildTranspose()
	}
	g.FakeDegree = make([]int32, n)
	parallel.Range(0, n, 0, func(low, high int) {
		for i := low; i < high; i++ {
			g.FakeDegree[i] = int32(g.OutOffsets[i+1] - g.OutOffsets[i])
		}
	})
	return g
}

// OutDegree returns the out-degree of vertex v.
func (g *Graph) OutDegree(v int) int {
	return int(g.OutOffsets[v+1] - g.OutOffsets[v])
}

// InDegree returns the in-degree of vertex v.
func (g *Graph) InDegree(v int) int {
	return int(g.InOffsets[v+1] - g.InOffsets[v])
}

func (g *Graph) buildTranspose() {
	n := g.N
	counts := make([]int64, n+1)
	for _, d := range g.OutEdges {
		counts[d+1]++
	}
	inOffsets := make([]int64, n+1)
	for i := 0; i < n; i++ {
		inOffsets[i+1] = inOffsets[i] + counts[i+1]
	}
	inEdges := make([]int32, len(g.OutEdges))
	var inWeights []int32
	if g.OutWeights != nil {
		inWeights = make([]int32, len(g.OutWeights))
	}
	cursor := make([]int64, n)
	copy(cursor, inOffsets[:n])
	for s := 0; s < n; s++ {
		for e := g.OutOffsets[s]; e < g.OutOffsets[s+1]; e++ {
			d := g.OutEdges[e]
			at := cursor[d]
			cursor[d]++
			inEdges[at] = int32(s)
			if inWeights != nil {
				inWeights[at] = g.OutWeights[e]
			}
		}
	}
	g.InOffsets = inOffsets
	g.InEdges = inEdges
	g.InWeights = inWeights
}

// Shard is the projection of a graph onto one socket's vertex range
// [RangeLow, RangeHi). Local vertex i corresponds to global vertex
// RangeLow+i. Adjacency and weights are copied so that the building
// worker's first touch places them on its socket.
type Shard struct {
	RangeLow, RangeHi int
	N                 int

	// In-edges of local destinations (pull traversal).
	InOffsets []int64
	InEdges   []int32
	InWeights []int32

	// Out-edges of local sources (push traversal); nil for
	// single-direction shards.
	OutOffsets []int64
	OutEdges   []int32
	OutWeights []int32

	FakeDegree []int32
}

// Filter returns the pull-mode shard for [lo, hi): each local vertex
// keeps exactly its incoming edges.
func Filter(g *Graph, lo, hi int) *Shard {
	sh := &Shard{RangeLow: lo, RangeHi: hi, N: hi - lo}
	sh.InOffsets, sh.InEdges, sh.InWeights = copyRange(g.InOffsets, g.InEdges, g.InWeights, lo, hi)
	sh.FakeDegree = make([]int32, sh.N)
	for i := 0; i < sh.N; i++ {
		sh.FakeDegree[i] = int32(sh.InOffsets[i+1] - sh.InOffsets[i])
	}
	return sh
}

// Filter2Direction returns the shard for [lo, hi) carrying both the
// incoming and the outgoing edges of its local vertices.
func Filter2Direction(g *Graph, lo, hi int) *Shard {
	sh := Filter(g, lo, hi)
	sh.OutOffsets, sh.OutEdges, sh.OutWeights = copyRange(g.OutOffsets, g.OutEdges, g.OutWeights, lo, hi)
	return sh
}

func copyRange(offsets []int64, edges, weights []int32, lo, hi int) ([]int64, []int32, []int32) {
	n := hi - lo
	localOffsets := make([]int64, n+1)
	base := offsets[lo]
	for i := 0; i <= n; i++ {
		localOffsets[i] = offsets[lo+i] - base
	}
	localEdges := make([]int32, offsets[hi]-base)
	copy(localEdges, edges[base:offsets[hi]])
	var localWeights []int32
	if weights != nil {
		localWeights = make([]int32, offsets[hi]-base)
		copy(localWeights, weights[base:offsets[hi]])
	}
	return localOffsets, localEdges, localWeights
}
