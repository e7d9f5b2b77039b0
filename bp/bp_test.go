package bp

import (
	"testing"

	"numagraph_go/engine"
	"numagraph_go/graphutils"
	"numagraph_go/numautils"
)

func fromEdges(n int, pairs [][2]int, symmetric bool) *graphutils.Graph {
	counts := make([]int64, n+1)
	for _, p := range pairs {
		counts[p[0]+1]++
	}
	offsets := make([]int64, n+1)
	for i := 0; i < n; i++ {
		offsets[i+1] = offsets[i] + counts[i+1]
	}
	dsts := make([]int32, len(pairs))
	cursor := make([]int64, n)
	copy(cursor, offsets[:n])
	for _, p := range pairs {
		at := cursor[p[0]]
		cursor[p[0]]++
		dsts[at] = int32(p[1])
	}
	return graphutils.NewGraph(n, offsets, dsts, nil, symmetric)
}

func run(t *testing.T, alg *Algorithm, sockets, cores, maxIter int) *engine.Engine {
	t.Helper()
	topo := numautils.Fake(sockets, cores)
	eng, err := engine.New(alg.G, topo, engine.Config{MaxIter: maxIter})
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.Run(alg); err != nil {
		t.Fatal(err)
	}
	return eng
}

func TestIsolatedVertexStaysReset(t *testing.T) {
	// Vertex 0 has no edges; whatever its unary potential, its
	// product accumulator holds the reset value after any number of
	// iterations.
	g := fromEdges(4, [][2]int{{1, 2}, {2, 1}}, true)
	alg := New(g)
	alg.SetVertexPotential(0, [NStates]float32{0.7, 0.3})
	run(t, alg, 2, 2, 3)
	if alg.VertDCurr[0].Product != [NStates]float32{1.0, 1.0} {
		t.Fatalf("product = %v, want [1 1]", alg.VertDCurr[0].Product)
	}
	if alg.VertI[0].Potential != [NStates]float32{0.7, 0.3} {
		t.Fatalf("potential = %v, want [0.7 0.3]", alg.VertI[0].Potential)
	}
}

func TestResetCoversAllSlots(t *testing.T) {
	// The reset pass must write every state slot of every vertex in
	// the sub-range, not just the diagonal.
	g := fromEdges(4, nil, true)
	alg := New(g)
	run(t, alg, 2, 2, 1)
	for v := 0; v < 4; v++ {
		for s := 0; s < NStates; s++ {
			if alg.VertDCurr[v].Product[s] != 1.0 {
				t.Fatalf("vertex %d slot %d = %v, want 1", v, s, alg.VertDCurr[v].Product[s])
			}
		}
	}
}

func TestMessageIntoDestination(t *testing.T) {
	// Directed edge 0 -> 1 with a diagonal pairwise potential: the
	// message into 1 is edgeW[i][i] * potential_0[i] with product 1.
	g := fromEdges(4, [][2]int{{0, 1}}, false)
	alg := New(g)
	alg.SetVertexPotential(0, [NStates]float32{0.7, 0.3})
	alg.EdgePotential = [NStates][NStates]float32{{2, 0}, {0, 2}}
	run(t, alg, 2, 2, 1)
	want := [NStates]float32{1.4, 0.6}
	if alg.VertDCurr[1].Product != want {
		t.Fatalf("product of 1 = %v, want %v", alg.VertDCurr[1].Product, want)
	}
	// Vertex 0 has no in-edges and stays at the reset value.
	if alg.VertDCurr[0].Product != [NStates]float32{1.0, 1.0} {
		t.Fatalf("product of 0 = %v, want [1 1]", alg.VertDCurr[0].Product)
	}
}

func TestPullOutputFrontierStaysEmpty(t *testing.T) {
	// All-ones input frontier: after a pull iteration the cleared
	// output bitmaps have accumulated nothing.
	g := fromEdges(4, [][2]int{{1, 2}, {2, 1}}, true)
	alg := New(g)
	eng := run(t, alg, 2, 2, 1)
	total := 0
	for s := 0; s < 2; s++ {
		total += eng.Output.CalculateNumOfNonZero(s)
	}
	if total != 0 || eng.Output.M != 0 {
		t.Fatalf("output count = %d (global %d), want 0", total, eng.Output.M)
	}
}

func TestPullModeDeterminism(t *testing.T) {
	pairs := [][2]int{{0, 1}, {1, 0}, {1, 2}, {2, 1}, {2, 3}, {3, 2}}
	build := func() *Algorithm {
		alg := New(fromEdges(4, pairs, true))
		alg.SetVertexPotential(0, [NStates]float32{0.9, 0.1})
		alg.SetVertexPotential(3, [NStates]float32{0.2, 0.8})
		alg.EdgePotential = [NStates][NStates]float32{{1.5, 0.5}, {0.5, 1.5}}
		return alg
	}
	first := build()
	run(t, first, 2, 2, 4)
	second := build()
	run(t, second, 2, 2, 4)
	for v := 0; v < 4; v++ {
		if first.VertDCurr[v].Product != second.VertDCurr[v].Product {
			t.Fatalf("vertex %d diverged: %v vs %v",
				v, first.VertDCurr[v].Product, second.VertDCurr[v].Product)
		}
	}
}
