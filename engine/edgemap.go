package engine

import (
	"numagraph_go/graphutils"
)

// EdgeMapDense is the pull-style dense traversal: for each destination
// in the subworker's sub-range, visit its in-edges and call the kernel
// for every active source. Writes to the destination's next state need
// no synchronisation because only this subworker owns it. The edge
// argument handed to the kernel is the index of the edge in the
// shard's local edge arena. Output frontier bits are not produced on
// the pull path.
func EdgeMapDense(sh *graphutils.Shard, input *Frontier, kernel EdgeKernel, sw *Subworker) {
	for i := sw.DenseStart; i < sw.DenseEnd; i++ {
		d := sh.RangeLow + i
		if !kernel.Cond(d) {
			continue
		}
		for e := sh.InOffsets[i]; e < sh.InOffsets[i+1]; e++ {
			s := int(sh.InEdges[e])
			if input.Bit(s) {
				kernel.Update(s, d, int(e))
			}
		}
	}
}

// EdgeMapDenseForward is the push-style dense traversal: for each
// active source in the subworker's sub-range, visit its out-edges and
// apply the kernel's atomic update, since the destination may belong
// to another socket. A destination the kernel reports as activated has
// its output frontier bit set through the atomic cross-socket path.
// The edge argument handed to the kernel is the edge weight.
func EdgeMapDenseForward(sh *graphutils.Shard, input, output *Frontier, kernel EdgeKernel, sw *Subworker) {
	local := input.GetFrontier(sw.Tid)
	for i := sw.DenseStart; i < sw.DenseEnd; i++ {
		s := sh.RangeLow + i
		if !local.Bit(s) {
			continue
		}
		for e := sh.OutOffsets[i]; e < sh.OutOffsets[i+1]; e++ {
			d := int(sh.OutEdges[e])
			w := 1
			if sh.OutWeights != nil {
				w = int(sh.OutWeights[e])
			}
			if kernel.Cond(d) && kernel.UpdateAtomic(s, d, w) {
				output.SetBitAtomic(d)
			}
		}
	}
}

// EdgeMapDenseReduce is the pull-style traversal with a thread-local
// per-destination reduction: the accumulator is seeded by ReduceInit,
// folded over the active in-edges, and published once through the
// kernel's atomic Combine. The edge argument handed to Reduce is the
// edge weight.
func EdgeMapDenseReduce(sh *graphutils.Shard, input *Frontier, kernel ReduceKernel, sw *Subworker) {
	for i := sw.DenseStart; i < sw.DenseEnd; i++ {
		d := sh.RangeLow + i
		if !kernel.Cond(d) {
			continue
		}
		acc := kernel.ReduceInit(d)
		for e := sh.InOffsets[i]; e < sh.InOffsets[i+1]; e++ {
			s := int(sh.InEdges[e])
			if !input.Bit(s) {
				continue
			}
			w := 1
			if sh.InWeights != nil {
				w = int(sh.InWeights[e])
			}
			acc = kernel.Reduce(acc, s, w)
		}
		kernel.Combine(d, acc)
	}
}

// VertexMap applies f to every vertex of the subworker's dense
// sub-range, unconditionally. Used for the per-iteration reset of the
// next-state arenas.
func VertexMap(f VertexKernel, sw *Subworker) {
	for i := sw.DenseStart; i < sw.DenseEnd; i++ {
		f(sw.RangeLow + i)
	}
}
