package spmv

import (
	"math"
	"testing"

	"numagraph_go/engine"
	"numagraph_go/graphutils"
	"numagraph_go/numautils"
)

// edge is (src, dst, weight) for test graph construction.
type edge struct{ src, dst, w int }

func fromEdges(n int, edges []edge) *graphutils.Graph {
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
	return graphutils.NewGraph(n, offsets, dsts, weights, false)
}

func run(t *testing.T, g *graphutils.Graph, init []float64, sockets, cores, maxIter int, frontierInit func(int, *engine.LocalFrontier)) (*Algorithm, *engine.Engine) {
	t.Helper()
	topo := numautils.Fake(sockets, cores)
	alg := New(g)
	alg.InitVector = init
	eng, err := engine.New(g, topo, engine.Config{
		MaxIter:      maxIter,
		FrontierInit: frontierInit,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.Run(alg); err != nil {
		t.Fatal(err)
	}
	return alg, eng
}

func TestIdentityMatrix(t *testing.T) {
	// Self-loop on every vertex with weight 1: one multiplication
	// leaves the uniform vector unchanged.
	n := 8
	edges := make([]edge, n)
	for i := range edges {
		edges[i] = edge{i, i, 1}
	}
	alg, _ := run(t, fromEdges(n, edges), nil, 4, 6, 1, nil)
	for i := 0; i < n; i++ {
		if math.Abs(alg.Ans[i]-1.0/8) > 1e-12 {
			t.Fatalf("Ans[%d] = %v, want 0.125", i, alg.Ans[i])
		}
	}
}

func TestChain(t *testing.T) {
	g := fromEdges(4, []edge{{0, 1, 1}, {1, 2, 1}, {2, 3, 1}})
	init := []float64{1, 0, 0, 0}
	wants := [][]float64{
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
	for iters := 1; iters <= 3; iters++ {
		alg, _ := run(t, g, init, 4, 6, iters, nil)
		for i, want := range wants[iters-1] {
			if alg.Ans[i] != want {
				t.Fatalf("after %d iterations Ans[%d] = %v, want %v", iters, i, alg.Ans[i], want)
			}
		}
	}
}

func TestTwoSocketCrossEdge(t *testing.T) {
	// Vertices 0,1 on socket 0 and 2,3 on socket 1; both edges cross
	// the socket boundary through the atomic update path.
	g := fromEdges(4, []edge{{1, 2, 1}, {3, 0, 1}})
	a, b, c, d := 0.25, 0.5, 0.125, 0.0625
	alg, eng := run(t, g, []float64{a, b, c, d}, 2, 2, 1, nil)
	lo0, hi0 := eng.RangeOf(0)
	if lo0 != 0 || hi0 != 2 {
		t.Fatalf("socket 0 range = [%d, %d), want [0, 2)", lo0, hi0)
	}
	want := []float64{d, 0, b, 0}
	for i := range want {
		if alg.Ans[i] != want[i] {
			t.Fatalf("Ans = %v, want %v", alg.Ans, want)
		}
	}
}

func TestMaxIterZero(t *testing.T) {
	g := fromEdges(4, []edge{{0, 1, 1}})
	init := []float64{4, 3, 2, 1}
	alg, _ := run(t, g, init, 2, 2, 0, nil)
	for i := range init {
		if alg.Ans[i] != init[i] {
			t.Fatalf("Ans = %v, want post-init state %v", alg.Ans, init)
		}
	}
}

func TestEmptyFrontier(t *testing.T) {
	g := fromEdges(4, []edge{{0, 1, 1}, {1, 2, 1}})
	clear := func(tid int, lf *engine.LocalFrontier) {}
	alg, eng := run(t, g, []float64{1, 1, 1, 1}, 2, 2, 1, clear)
	// No active sources: no kernel calls, the next buffer keeps its
	// reset value everywhere.
	for i := 0; i < g.N; i++ {
		if alg.Ans[i] != 0 {
			t.Fatalf("Ans[%d] = %v, want 0", i, alg.Ans[i])
		}
	}
	total := 0
	for s := 0; s < 2; s++ {
		total += eng.Output.CalculateNumOfNonZero(s)
	}
	if total != 0 {
		t.Fatalf("output frontier count = %d, want 0", total)
	}
}

func TestForwardActivatesOutputFrontier(t *testing.T) {
	g := fromEdges(4, []edge{{1, 2, 1}, {3, 0, 1}})
	_, eng := run(t, g, []float64{1, 1, 1, 1}, 2, 2, 1, nil)
	// Destinations 0 and 2 were activated, one on each socket.
	if n := eng.Output.CalculateNumOfNonZero(0); n != 1 {
		t.Fatalf("socket 0 output count = %d, want 1", n)
	}
	if n := eng.Output.CalculateNumOfNonZero(1); n != 1 {
		t.Fatalf("socket 1 output count = %d, want 1", n)
	}
	if !eng.Output.GetFrontier(0).Bit(0) || !eng.Output.GetFrontier(1).Bit(2) {
		t.Fatal("wrong output bits set")
	}
}

func TestEdgeMapDenseReduce(t *testing.T) {
	g := fromEdges(4, []edge{{0, 3, 2}, {1, 3, 3}, {2, 0, 5}})
	alg := New(g)
	alg.PCurr = []float64{1, 10, 100, 0}
	alg.PNext = make([]float64, 4)

	sh := graphutils.Filter2Direction(g, 0, 4)
	fr := engine.NewFrontier(1)
	lf := engine.NewLocalFrontier(0, 4)
	lf.SetAll()
	fr.RegisterFrontier(0, lf)
	fr.CalculateOffsets()

	sw := &engine.Subworker{DenseStart: 0, DenseEnd: 4}
	kernel := alg.Kernel(&engine.SocketContext{}).(engine.ReduceKernel)
	engine.EdgeMapDenseReduce(sh, fr, kernel, sw)

	want := []float64{500, 0, 0, 32}
	for i := range want {
		if alg.PNext[i] != want[i] {
			t.Fatalf("PNext = %v, want %v", alg.PNext, want)
		}
	}
}
