package graphutils

import (
	"os"
	"path/filepath"
	"testing"
)

// edge is (src, dst, weight) for test graph construction.
type edge struct{ src, dst, w int }

func fromEdges(n int, edges []edge, symmetric bool) *Graph {
	counts := make([]int64, n+1)
	for _, e := range edges {
		counts[e.src+1]++
	}
	offsets := make([]int64, n+1)
	for i := 0; i < n; i++ {
		offsets[i+1] = offsets[i] + counts[i+1]
	}
	dsts := make([]int32, len(edges))
	weights := make([]int32, len(edges))
	cursor := make([]int64, n)
	copy(cursor, offsets[:n])
	for _, e := range edges {
		at := cursor[e.src]
		cursor[e.src]++
		dsts[at] = int32(e.dst)
		weights[at] = int32(e.w)
	}
	return NewGraph(n, offsets, dsts, weights, symmetric)
}

func TestTranspose(t *testing.T) {
	g := fromEdges(4, []edge{{0, 1, 1}, {1, 2, 5}, {3, 2, 7}}, false)
	if g.InDegree(2) != 2 {
		t.Fatalf("in-degree of 2 = %d, want 2", g.InDegree(2))
	}
	if g.InDegree(0) != 0 {
		t.Fatalf("in-degree of 0 = %d, want 0", g.InDegree(0))
	}
	// Weights must follow their edges through the transpose.
	seen := map[int32]int32{}
	for e := g.InOffsets[2]; e < g.InOffsets[3]; e++ {
		seen[g.InEdges[e]] = g.InWeights[e]
	}
	if seen[1] != 5 || seen[3] != 7 {
		t.Fatalf("transposed weights = %v", seen)
	}
}

func TestFilterLocality(t *testing.T) {
	g := fromEdges(6, []edge{
		{0, 3, 1}, {1, 3, 2}, {4, 2, 3}, {5, 0, 4}, {2, 5, 6},
	}, false)
	sh := Filter(g, 2, 4)
	if sh.N != 2 {
		t.Fatalf("shard size = %d, want 2", sh.N)
	}
	// Local vertex 0 is global 2 (one in-edge from 4), local 1 is
	// global 3 (in-edges from 0 and 1).
	if got := sh.InOffsets[1] - sh.InOffsets[0]; got != 1 {
		t.Fatalf("in-degree of local 0 = %d, want 1", got)
	}
	if got := sh.InOffsets[2] - sh.InOffsets[1]; got != 2 {
		t.Fatalf("in-degree of local 1 = %d, want 2", got)
	}
	if sh.FakeDegree[0] != 1 || sh.FakeDegree[1] != 2 {
		t.Fatalf("fake degrees = %v", sh.FakeDegree)
	}
	if sh.OutOffsets != nil {
		t.Fatal("pull shard must not carry out-edges")
	}
}

func TestFilter2Direction(t *testing.T) {
	g := fromEdges(4, []edge{{1, 2, 9}, {3, 0, 8}}, false)
	sh := Filter2Direction(g, 0, 2)
	// Local source 1 keeps its out-edge to 2 with its weight.
	if got := sh.OutOffsets[2] - sh.OutOffsets[1]; got != 1 {
		t.Fatalf("out-degree of local 1 = %d, want 1", got)
	}
	e := sh.OutOffsets[1]
	if sh.OutEdges[e] != 2 || sh.OutWeights[e] != 9 {
		t.Fatalf("out edge = (%d, w=%d), want (2, w=9)", sh.OutEdges[e], sh.OutWeights[e])
	}
}

func TestHasherRoundTrip(t *testing.T) {
	for _, shape := range []struct{ n, shards int }{
		{8, 4}, {100, 4}, {101, 4}, {7, 2}, {24, 6},
	} {
		h := NewHasher(shape.n, shape.shards)
		for i := 0; i < shape.n; i++ {
			if got := h.HashBackFunc(h.HashFunc(i)); got != i {
				t.Fatalf("n=%d shards=%d: hashBack(hash(%d)) = %d", shape.n, shape.shards, i, got)
			}
		}
	}
}

func TestApplyHashPreservesEdges(t *testing.T) {
	g := fromEdges(8, []edge{{0, 1, 1}, {2, 3, 2}, {7, 0, 3}, {5, 6, 4}}, false)
	h := NewHasher(8, 2)
	hg := ApplyHash(g, h)
	if hg.M != g.M {
		t.Fatalf("edge count changed: %d -> %d", g.M, hg.M)
	}
	// Every original edge (s, d, w) must appear as (hash(s), hash(d), w).
	for s := 0; s < g.N; s++ {
		hs := h.HashFunc(s)
		for e := g.OutOffsets[s]; e < g.OutOffsets[s+1]; e++ {
			hd := int32(h.HashFunc(int(g.OutEdges[e])))
			found := false
			for he := hg.OutOffsets[hs]; he < hg.OutOffsets[hs+1]; he++ {
				if hg.OutEdges[he] == hd && hg.OutWeights[he] == g.OutWeights[e] {
					found = true
					break
				}
			}
			if !found {
				t.Fatalf("edge %d->%d lost in permutation", s, g.OutEdges[e])
			}
		}
	}
}

func TestReadASCIIWeighted(t *testing.T) {
	content := "WeightedAdjacencyGraph\n4\n3\n0\n1\n2\n3\n1\n2\n3\n10\n20\n30\n"
	path := filepath.Join(t.TempDir(), "g.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	g, err := ReadGraph(path, false, false)
	if err != nil {
		t.Fatal(err)
	}
	if g.N != 4 || g.M != 3 {
		t.Fatalf("n=%d m=%d, want 4, 3", g.N, g.M)
	}
	if g.OutEdges[0] != 1 || g.OutWeights[0] != 10 {
		t.Fatalf("edge 0 = (%d, w=%d), want (1, w=10)", g.OutEdges[0], g.OutWeights[0])
	}
	if g.OutDegree(3) != 0 {
		t.Fatalf("out-degree of 3 = %d, want 0", g.OutDegree(3))
	}
}

func TestReadASCIIUnweightedSymmetric(t *testing.T) {
	content := "AdjacencyGraph\n2\n2\n0\n1\n1\n0\n"
	path := filepath.Join(t.TempDir(), "g.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	g, err := ReadGraph(path, true, false)
	if err != nil {
		t.Fatal(err)
	}
	if !g.Symmetric || g.OutWeights != nil {
		t.Fatal("expected symmetric unweighted graph")
	}
	if g.InDegree(0) != 1 {
		t.Fatalf("in-degree of 0 = %d, want 1", g.InDegree(0))
	}
}
