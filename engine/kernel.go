package engine

// TraversalMode selects the dense traversal the engine drives each
// iteration.
type TraversalMode int

const (
	// Pull gathers over the in-edges of each owned destination.
	Pull TraversalMode = iota
	// PushForward scatters over the out-edges of each active owned
	// source, crossing sockets through the atomic update path.
	PushForward
)

// EdgeKernel is the per-algorithm functor the traversal primitives
// call back into. The meaning of the edge argument depends on the
// traversal: EdgeMapDense passes the index of the edge in the shard's
// local edge arena; EdgeMapDenseForward passes the edge weight.
type EdgeKernel interface {
	// Update applies the edge non-atomically. Only called when the
	// destination is owned exclusively by the calling subworker. The
	// return value reports whether dst became active.
	Update(src, dst, edge int) bool
	// UpdateAtomic applies the edge with lock-free read-modify-write
	// primitives; dst may belong to any socket.
	UpdateAtomic(src, dst, edge int) bool
	// Cond gates further edge visits to dst.
	Cond(dst int) bool
}

// ReduceKernel extends EdgeKernel with the per-destination
// thread-local reduction used by EdgeMapDenseReduce.
type ReduceKernel interface {
	EdgeKernel
	// ReduceInit returns the reduction identity for dst.
	ReduceInit(dst int) float64
	// Reduce folds one in-edge into the accumulator.
	Reduce(acc float64, src, edge int) float64
	// Combine publishes the accumulated value for dst.
	Combine(dst int, acc float64)
}

// VertexKernel is a per-vertex side effect applied by VertexMap.
type VertexKernel func(v int) bool
