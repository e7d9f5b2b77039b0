// Package engine is the NUMA-aware runtime: it shards the vertex set
// across sockets and cores, owns the frontier and barrier machinery,
// and drives the dense traversal primitives over a per-socket worker
// hierarchy.
package engine

import (
	"numagraph_go/graphutils"
	"numagraph_go/numautils"
)

// PartitionEqual splits n vertices into sockets contiguous ranges of
// equal, page-aligned size; the last socket absorbs the remainder.
// Used when a hash permutation has already spread degree across the id
// space. For graphs too small to fill one page per socket the split
// degrades to a plain quotient so every socket still gets its share.
func PartitionEqual(n, sockets, stateSize int) []int {
	vertPerPage := numautils.PageSize / stateSize
	q := (n / sockets / vertPerPage) * vertPerPage
	if q == 0 {
		q = n / sockets
	}
	sizeArr := make([]int, sockets)
	for i := 0; i < sockets-1; i++ {
		sizeArr[i] = q
	}
	sizeArr[sockets-1] = n - q*(sockets-1)
	return sizeArr
}

// PartitionByDegree splits the vertex set so each socket receives
// roughly equal cumulative out-degree. Each cut is rounded down to a
// multiple of the vertices per page when that still lies past the
// previous cut; otherwise the unaligned cut is kept.
func PartitionByDegree(g *graphutils.Graph, sockets, stateSize int) []int {
	vertPerPage := numautils.PageSize / stateSize
	var totalDegree int64
	for v := 0; v < g.N; v++ {
		totalDegree += int64(g.OutDegree(v))
	}
	sizeArr := make([]int, sockets)
	var accum int64
	prev := 0
	v := 0
	for s := 0; s < sockets-1; s++ {
		target := totalDegree / int64(sockets) * int64(s+1)
		for v < g.N && accum < target {
			accum += int64(g.OutDegree(v))
			v++
		}
		cut := v
		if aligned := (cut / vertPerPage) * vertPerPage; aligned > prev {
			cut = aligned
		}
		sizeArr[s] = cut - prev
		prev = cut
		v = cut
	}
	sizeArr[sockets-1] = g.N - prev
	return sizeArr
}

// SubPartitionByDegree sizes the per-core shards of one socket by
// cumulative fake degree, so each subworker does roughly equal edge
// work. Shards are contiguous in vertex id and sum to the shard size.
func SubPartitionByDegree(sh *graphutils.Shard, cores int) []int {
	var totalDegree int64
	for _, d := range sh.FakeDegree {
		totalDegree += int64(d)
	}
	sizeOfShards := make([]int, cores)
	var accum int64
	prev := 0
	v := 0
	for c := 0; c < cores-1; c++ {
		target := totalDegree / int64(cores) * int64(c+1)
		for v < sh.N && accum < target {
			accum += int64(sh.FakeDegree[v])
			v++
		}
		sizeOfShards[c] = v - prev
		prev = v
	}
	sizeOfShards[cores-1] = sh.N - prev
	return sizeOfShards
}
