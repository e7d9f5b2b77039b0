// Package spmv is the sparse matrix–vector workload: one iteration
// multiplies the weighted adjacency matrix into the current vector,
// accumulating into the next one through the push-forward traversal.
package spmv

import (
	"numagraph_go/engine"
	"numagraph_go/graphutils"
	"numagraph_go/mathutils"
	"numagraph_go/numautils"
)

// Algorithm holds the double-buffered vector arenas, striped across
// sockets so vertex v's entry lives on the socket that owns v.
type Algorithm struct {
	G *graphutils.Graph

	PCurr []float64
	PNext []float64

	// Ans is the converged vector, captured after the final swap.
	Ans []float64

	// InitVector optionally seeds the current vector; when nil every
	// entry starts at 1/n.
	InitVector []float64
}

// New returns the workload for g; the arenas are mapped in Alloc once
// the engine has sized the socket partition.
func New(g *graphutils.Graph) *Algorithm {
	return &Algorithm{G: g}
}

// Alloc maps the two vector arenas, striped over the engine's
// partition.
func (a *Algorithm) Alloc(e *engine.Engine) error {
	var err error
	if a.PCurr, err = numautils.Striped[float64](e.Topo, e.SizeArr); err != nil {
		return err
	}
	a.PNext, err = numautils.Striped[float64](e.Topo, e.SizeArr)
	return err
}

func (a *Algorithm) Name() string { return "spmv" }

func (a *Algorithm) Mode() engine.TraversalMode { return engine.PushForward }

func (a *Algorithm) StateSize() int { return 8 }

// InitSocket fills the socket's slice of the current vector with the
// uniform distribution and zeroes the next one; running on the bound
// worker gives the pages their first touch locally.
func (a *Algorithm) InitSocket(sc *engine.SocketContext) error {
	if a.InitVector != nil {
		copy(a.PCurr[sc.RangeLow:sc.RangeHi], a.InitVector[sc.RangeLow:sc.RangeHi])
	} else {
		oneOverN := 1 / float64(a.G.N)
		for i := sc.RangeLow; i < sc.RangeHi; i++ {
			a.PCurr[i] = oneOverN
		}
	}
	for i := sc.RangeLow; i < sc.RangeHi; i++ {
		a.PNext[i] = 0
	}
	return nil
}

func (a *Algorithm) Kernel(sc *engine.SocketContext) engine.EdgeKernel {
	return &kernel{pCurr: a.PCurr, pNext: a.PNext}
}

func (a *Algorithm) Reset(sc *engine.SocketContext) engine.VertexKernel {
	pNext := a.PNext
	return func(i int) bool {
		pNext[i] = 0.0
		return true
	}
}

func (a *Algorithm) Swap() {
	a.PCurr, a.PNext = a.PNext, a.PCurr
}

func (a *Algorithm) Finish(e *engine.Engine) {
	a.Ans = a.PCurr
}

// kernel applies one weighted edge: p_next[d] += p_curr[s] * w.
type kernel struct {
	pCurr []float64
	pNext []float64
}

func (k *kernel) Update(s, d, w int) bool {
	k.pNext[d] += k.pCurr[s] * float64(w)
	return true
}

func (k *kernel) UpdateAtomic(s, d, w int) bool {
	mathutils.WriteAdd(&k.pNext[d], k.pCurr[s]*float64(w))
	return true
}

func (k *kernel) Cond(d int) bool { return true }

// ReduceInit, Reduce, and Combine form the reduction triple for
// EdgeMapDenseReduce: a thread-local sum per destination, published
// with one atomic add.
func (k *kernel) ReduceInit(d int) float64 { return 0.0 }

func (k *kernel) Reduce(acc float64, s, w int) float64 {
	return acc + k.pCurr[s]*float64(w)
}

func (k *kernel) Combine(d int, acc float64) {
	mathutils.WriteAdd(&k.pNext[d], acc)
}
