// Package bp is the belief-propagation workload over a pairwise
// Markov random field: each iteration recomputes the message on every
// edge into an owned destination and folds it into the destination's
// product accumulator through the pull traversal.
package bp

import (
	"numagraph_go/engine"
	"numagraph_go/graphutils"
	"numagraph_go/mathutils"
	"numagraph_go/numautils"

	"github.com/intel/forGoParallel/parallel"
)

// NStates is the number of discrete states per variable.
const NStates = 2

// EdgeWeight is the constant pairwise potential of one edge.
type EdgeWeight struct {
	Potential [NStates][NStates]float32
}

// EdgeData is the per-edge message, double-buffered across iterations.
type EdgeData struct {
	Belief [NStates]float32
}

// VertexInfo is the constant unary potential of one vertex.
type VertexInfo struct {
	Potential [NStates]float32
}

// VertexData is the per-vertex product accumulator, double-buffered.
type VertexData struct {
	Product [NStates]float32
}

// socketState is the edge-data arena of one socket: offsets into it
// follow the shard's fake-degree prefix sums, so edge k of local
// vertex i lives at localOffsets[i]+k. All slices are socket-local.
type socketState struct {
	localOffsets []int64
	edgeW        []EdgeWeight
	edgeDCurr    []EdgeData
	edgeDNext    []EdgeData
}

// Algorithm carries the vertex potentials, the striped product
// arenas, and the per-socket edge arenas.
type Algorithm struct {
	G *graphutils.Graph

	VertI     []VertexInfo
	VertDCurr []VertexData
	VertDNext []VertexData

	// EdgePotential seeds every pairwise potential; all-ones by
	// default, which makes an unconfigured edge the identity message
	// under uniform unary potentials.
	EdgePotential [NStates][NStates]float32

	sockets []*socketState
}

// New returns the workload for g with uniform unary potentials; the
// striped arenas are mapped in Alloc once the engine has sized the
// socket partition.
func New(g *graphutils.Graph) *Algorithm {
	a := &Algorithm{
		G:     g,
		VertI: make([]VertexInfo, g.N),
	}
	uniform := float32(1) / NStates
	parallel.Range(0, g.N, 0, func(low, high int) {
		for v := low; v < high; v++ {
			for i := 0; i < NStates; i++ {
				a.VertI[v].Potential[i] = uniform
			}
		}
	})
	for i := 0; i < NStates; i++ {
		for j := 0; j < NStates; j++ {
			a.EdgePotential[i][j] = 1.0
		}
	}
	return a
}

// Alloc maps the product arenas, striped over the engine's partition.
func (a *Algorithm) Alloc(e *engine.Engine) error {
	var err error
	if a.VertDCurr, err = numautils.Striped[VertexData](e.Topo, e.SizeArr); err != nil {
		return err
	}
	if a.VertDNext, err = numautils.Striped[VertexData](e.Topo, e.SizeArr); err != nil {
		return err
	}
	a.sockets = make([]*socketState, len(e.SizeArr))
	return nil
}

func (a *Algorithm) Name() string { return "bp" }

func (a *Algorithm) Mode() engine.TraversalMode { return engine.Pull }

func (a *Algorithm) StateSize() int { return NStates * 4 }

// InitSocket builds the socket's offset table from the shard's fake
// degrees and allocates the edge arenas next to it. Pairwise
// potentials start uniform at 1 so an unconfigured field is the
// identity message.
func (a *Algorithm) InitSocket(sc *engine.SocketContext) error {
	sh := sc.Shard
	localOffsets := make([]int64, sh.N+1)
	for i := 0; i < sh.N; i++ {
		localOffsets[i+1] = localOffsets[i] + int64(sh.FakeDegree[i])
	}
	numLocalEdge := localOffsets[sh.N]

	st := &socketState{
		localOffsets: localOffsets,
		edgeW:        make([]EdgeWeight, numLocalEdge),
		edgeDCurr:    make([]EdgeData, numLocalEdge),
		edgeDNext:    make([]EdgeData, numLocalEdge),
	}
	for e := range st.edgeW {
		st.edgeW[e].Potential = a.EdgePotential
	}
	a.sockets[sc.Tid] = st

	for v := sc.RangeLow; v < sc.RangeHi; v++ {
		for i := 0; i < NStates; i++ {
			a.VertDCurr[v].Product[i] = 1.0
			a.VertDNext[v].Product[i] = 1.0
		}
	}
	return nil
}

func (a *Algorithm) Kernel(sc *engine.SocketContext) engine.EdgeKernel {
	st := a.sockets[sc.Tid]
	return &kernel{
		vertI:     a.VertI,
		vertDCurr: a.VertDCurr,
		vertDNext: a.VertDNext,
		edgeW:     st.edgeW,
		edgeDNext: st.edgeDNext,
	}
}

// Reset sets every state slot of the vertex's next product to 1.0,
// the multiplicative identity the pull kernel accumulates onto.
func (a *Algorithm) Reset(sc *engine.SocketContext) engine.VertexKernel {
	vertDNext := a.VertDNext
	return func(v int) bool {
		for i := 0; i < NStates; i++ {
			vertDNext[v].Product[i] = 1.0
		}
		return true
	}
}

// Swap exchanges the vertex product buffers and every socket's edge
// message buffers. The master calls it once per iteration.
func (a *Algorithm) Swap() {
	a.VertDCurr, a.VertDNext = a.VertDNext, a.VertDCurr
	for _, st := range a.sockets {
		if st != nil {
			st.edgeDCurr, st.edgeDNext = st.edgeDNext, st.edgeDCurr
		}
	}
}

func (a *Algorithm) Finish(e *engine.Engine) {}

// SetVertexPotential installs the unary potential of vertex v.
func (a *Algorithm) SetVertexPotential(v int, p [NStates]float32) {
	a.VertI[v].Potential = p
}

// kernel computes the message into owned destination d from source s:
// belief[i] = sum_j vertI[s].potential[j] * edgeW[e].potential[i][j] *
// vertDCurr[s].product[j], stores it in the edge's next message slot,
// and multiplies it into the destination's next product.
type kernel struct {
	vertI     []VertexInfo
	vertDCurr []VertexData
	vertDNext []VertexData
	edgeW     []EdgeWeight
	edgeDNext []EdgeData
}

func (k *kernel) Update(s, d, edgeIdx int) bool {
	for i := 0; i < NStates; i++ {
		var belief float32
		for j := 0; j < NStates; j++ {
			belief += k.vertI[s].Potential[j] * k.edgeW[edgeIdx].Potential[i][j] * k.vertDCurr[s].Product[j]
		}
		k.edgeDNext[edgeIdx].Belief[i] = belief
		k.vertDNext[d].Product[i] *= belief
	}
	return true
}

func (k *kernel) UpdateAtomic(s, d, edgeIdx int) bool {
	for i := 0; i < NStates; i++ {
		var belief float32
		for j := 0; j < NStates; j++ {
			belief += k.vertI[s].Potential[j] * k.edgeW[edgeIdx].Potential[i][j] * k.vertDCurr[s].Product[j]
		}
		k.edgeDNext[edgeIdx].Belief[i] = belief
		mathutils.WriteMultFloat32(&k.vertDNext[d].Product[i], belief)
	}
	return true
}

func (k *kernel) Cond(d int) bool { return true }
