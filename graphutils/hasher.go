package graphutils

import (
	"github.com/intel/forGoParallel/parallel"
)

// Hasher is the strided permutation that spreads consecutive vertex
// ids across sockets, so an equal split of the permuted id space also
// spreads degree. Ids at or beyond ShardNum*VertPerShard are fixed
// points.
type Hasher struct {
	N            int
	ShardNum     int
	VertPerShard int
}

// NewHasher builds a hasher for n vertices over shardNum sockets.
func NewHasher(n, shardNum int) *Hasher {
	return &Hasher{N: n, ShardNum: shardNum, VertPerShard: n / shardNum}
}

// HashFunc maps an original vertex id to its permuted id.
func (h *Hasher) HashFunc(index int) int {
	if index >= h.ShardNum*h.VertPerShard {
		return index
	}
	idxOfShard := index % h.ShardNum
	idxInShard := index / h.ShardNum
	return idxOfShard*h.VertPerShard + idxInShard
}

// HashBackFunc inverts HashFunc.
func (h *Hasher) HashBackFunc(index int) int {
	if index >= h.ShardNum*h.VertPerShard {
		return index
	}
	idxOfShard := index / h.VertPerShard
	idxInShard := index % h.VertPerShard
	return idxOfShard + idxInShard*h.ShardNum
}

// ApplyHash relabels every vertex of g through h and returns the
// permuted graph. Vertex h.HashFunc(i) of the result is vertex i of
// the input.
func ApplyHash(g *Graph, h *Hasher) *Graph {
	n := g.N
	offsets := make([]int64, n+1)
	for newID := 1; newID <= n; newID++ {
		old := h.HashBackFunc(newID - 1)
		offsets[newID] = offsets[newID-1] + int64(g.OutDegree(old))
	}
	edges := make([]int32, len(g.OutEdges))
	var weights []int32
	if g.OutWeights != nil {
		weights = make([]int32, len(g.OutWeights))
	}
	parallel.Range(0, n, 0, func(low, high int) {
		for newID := low; newID < high; newID++ {
			old := h.HashBackFunc(newID)
			at := offsets[newID]
			for e := g.OutOffsets[old]; e < g.OutOffsets[old+1]; e++ {
				edges[at] = int32(h.HashFunc(int(g.OutEdges[e])))
				if weights != nil {
					weights[at] = g.OutWeights[e]
				}
				at++
			}
		}
	})
	return NewGraph(n, offsets, edges, weights, g.Symmetric)
}
