package engine

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"numagraph_go/graphutils"
	"numagraph_go/numautils"
)

// Config carries the runtime knobs. Zero socket or core counts are
// filled in from the topology.
type Config struct {
	Sockets        int
	CoresPerSocket int

	// MaxIter bounds the iteration count; negative iterates forever,
	// zero executes no iterations.
	MaxIter int

	// Pin binds socket workers (and their subworkers) to their NUMA
	// node. Disabled for fake topologies and tests.
	Pin bool

	// PartitionByDegree selects cumulative-degree socket sizing
	// instead of the equal page-aligned split.
	PartitionByDegree bool

	// FrontierInit seeds a socket's input frontier; the default
	// activates every vertex.
	FrontierInit func(tid int, lf *LocalFrontier)
}

// SocketContext is the per-socket view handed to the algorithm: the
// socket's id, vertex range, graph shard, and per-core shard sizes.
type SocketContext struct {
	Tid          int
	RangeLow     int
	RangeHi      int
	Shard        *graphutils.Shard
	SizeOfShards []int
	Engine       *Engine
}

// Algorithm is the per-workload object the engine drives. Kernel and
// Reset are re-evaluated every iteration so their views pick up the
// buffer swap performed by the master.
type Algorithm interface {
	Name() string
	Mode() TraversalMode
	// StateSize is the per-vertex state record size in bytes, used
	// for page-aligned partitioning.
	StateSize() int
	// Alloc maps the striped global arenas once the engine has
	// computed the socket partition. Runs on the main thread before
	// the workers are spawned.
	Alloc(e *Engine) error
	// InitSocket allocates socket-local state and initialises the
	// current arenas for [RangeLow, RangeHi). It runs on a worker
	// already bound to its socket.
	InitSocket(sc *SocketContext) error
	// Kernel returns the edge functor bound to the current buffers.
	Kernel(sc *SocketContext) EdgeKernel
	// Reset returns the vertex functor that clears next-state.
	Reset(sc *SocketContext) VertexKernel
	// Swap exchanges the current/next buffers. Called once per
	// iteration by the master, between barriers.
	Swap()
	// Finish runs on the main thread after the workers complete.
	Finish(e *Engine)
}

// Engine owns the partition, the frontiers, and the barrier machinery,
// and runs the static S*C worker hierarchy over an Algorithm.
type Engine struct {
	G    *graphutils.Graph
	Topo *numautils.Topology
	Cfg  Config

	Sockets int
	Cores   int

	SizeArr  []int
	rangeLow []int

	Input  *Frontier
	Output *Frontier

	barr          *Barrier
	timerBarr     *Barrier
	globalBarr    *Barrier
	subMasterSpin *SpinBarrier
}

// New validates the configuration and resolves the worker shape from
// the topology.
func New(g *graphutils.Graph, topo *numautils.Topology, cfg Config) (*Engine, error) {
	sockets := cfg.Sockets
	if sockets == 0 {
		sockets = topo.NumNodes()
	}
	cores := cfg.CoresPerSocket
	if cores == 0 {
		cores = topo.NumCPUs() / sockets
	}
	if sockets <= 0 || cores <= 0 {
		return nil, errors.Errorf("invalid worker shape: %d sockets x %d cores", sockets, cores)
	}
	if g.N < sockets {
		return nil, errors.Errorf("graph with %d vertices cannot span %d sockets", g.N, sockets)
	}
	e := &Engine{
		G:       g,
		Topo:    topo,
		Cfg:     cfg,
		Sockets: sockets,
		Cores:   cores,
	}
	return e, nil
}

// Run partitions the graph, spawns the worker hierarchy, and drives
// the iteration loop until the bound is reached.
func (e *Engine) Run(alg Algorithm) error {
	if e.Cfg.PartitionByDegree {
		e.SizeArr = PartitionByDegree(e.G, e.Sockets, alg.StateSize())
	} else {
		e.SizeArr = PartitionEqual(e.G.N, e.Sockets, alg.StateSize())
	}
	e.rangeLow = make([]int, e.Sockets+1)
	for s, sz := range e.SizeArr {
		e.rangeLow[s+1] = e.rangeLow[s] + sz
	}

	if err := alg.Alloc(e); err != nil {
		return errors.Wrap(err, "allocate algorithm arenas")
	}

	e.Input = NewFrontier(e.Sockets)
	e.Output = NewFrontier(e.Sockets)
	e.barr = NewBarrier(e.Sockets)
	e.timerBarr = NewBarrier(e.Sockets + 1)
	e.globalBarr = NewBarrier(e.Sockets * e.Cores)
	e.subMasterSpin = NewSpinBarrier(e.Sockets)

	log.Info().
		Str("algorithm", alg.Name()).
		Int("sockets", e.Sockets).
		Int("coresPerSocket", e.Cores).
		Ints("sizeArr", e.SizeArr).
		Int("vertices", e.G.N).
		Int64("edges", e.G.M).
		Msg("engine start")

	setupStart := time.Now()
	var wg sync.WaitGroup
	for tid := 0; tid < e.Sockets; tid++ {
		wg.Add(1)
		go func(tid int) {
			defer wg.Done()
			e.socketWorker(tid, alg)
		}(tid)
	}

	// Workers are constructed with all state ready; the timer barrier
	// is the single release point.
	e.timerBarr.Wait()
	log.Info().Dur("elapsed", time.Since(setupStart)).Msg("partition done")

	iterStart := time.Now()
	wg.Wait()
	log.Info().Dur("elapsed", time.Since(iterStart)).Msg("iterations done")

	alg.Finish(e)
	return nil
}

// RangeOf returns socket s's vertex range [lo, hi).
func (e *Engine) RangeOf(s int) (int, int) {
	return e.rangeLow[s], e.rangeLow[s+1]
}

func (e *Engine) socketWorker(tid int, alg Algorithm) {
	if e.Cfg.Pin {
		if err := e.Topo.BindToNode(tid); err != nil {
			log.Fatal().Err(err).Int("tid", tid).Msg("bind socket worker")
		}
		defer e.Topo.UnbindThread()
	}
	lo, hi := e.RangeOf(tid)

	// Build the socket's graph projection in local memory. Push mode
	// needs the out-edges too.
	var shard *graphutils.Shard
	if alg.Mode() == Pull {
		shard = graphutils.Filter(e.G, lo, hi)
	} else {
		shard = graphutils.Filter2Direction(e.G, lo, hi)
	}
	e.barr.Wait()

	sc := &SocketContext{
		Tid:          tid,
		RangeLow:     lo,
		RangeHi:      hi,
		Shard:        shard,
		SizeOfShards: SubPartitionByDegree(shard, e.Cores),
		Engine:       e,
	}
	if err := alg.InitSocket(sc); err != nil {
		log.Fatal().Err(err).Int("tid", tid).Msg("init socket state")
	}

	current := NewLocalFrontier(lo, hi)
	if e.Cfg.FrontierInit != nil {
		e.Cfg.FrontierInit(tid, current)
		current.M = current.Count()
	} else {
		current.SetAll()
	}
	output := NewLocalFrontier(lo, hi)

	e.barr.Wait()
	e.Input.RegisterFrontier(tid, current)
	e.Output.RegisterFrontier(tid, output)
	e.barr.Wait()
	if tid == 0 {
		e.Input.CalculateOffsets()
		e.Output.CalculateOffsets()
	}

	localSpin := NewSpinBarrier(e.Cores)
	e.timerBarr.Wait()

	var wg sync.WaitGroup
	startPos := 0
	for subTid := 0; subTid < e.Cores; subTid++ {
		sw := &Subworker{
			Tid:             tid,
			SubTid:          subTid,
			Cores:           e.Cores,
			RangeLow:        lo,
			RangeHi:         hi,
			DenseStart:      startPos,
			DenseEnd:        startPos + sc.SizeOfShards[subTid],
			LocalCustom:     localSpin,
			SubMasterCustom: e.subMasterSpin,
			GlobalBarr:      e.globalBarr,
		}
		startPos = sw.DenseEnd
		wg.Add(1)
		go func(sw *Subworker) {
			defer wg.Done()
			if e.Cfg.Pin {
				// Subworkers inherit the node binding.
				if err := e.Topo.BindToNode(tid); err != nil {
					log.Fatal().Err(err).Int("tid", tid).Int("subTid", sw.SubTid).Msg("bind subworker")
				}
				defer e.Topo.UnbindThread()
			}
			e.runSubworker(sw, sc, alg)
		}(sw)
	}
	wg.Wait()
}

// runSubworker is the per-iteration loop. Phase boundaries inside an
// iteration use the hierarchical spin barriers; the blocking global
// barrier closes each iteration and publishes the master's swap.
func (e *Engine) runSubworker(sw *Subworker, sc *SocketContext, alg Algorithm) {
	out := e.Output.GetFrontier(sw.Tid)
	maxIter := e.Cfg.MaxIter

	e.globalBarr.Wait()
	for iter := 0; maxIter < 0 || iter < maxIter; iter++ {
		if sw.IsSubMaster() {
			e.Input.CalculateNumOfNonZero(sw.Tid)
		}
		out.ClearRange(sw.DenseStart, sw.DenseEnd)
		sw.GlobalWait()

		VertexMap(alg.Reset(sc), sw)
		sw.GlobalWait()

		kernel := alg.Kernel(sc)
		switch alg.Mode() {
		case Pull:
			EdgeMapDense(sc.Shard, e.Input, kernel, sw)
		case PushForward:
			EdgeMapDenseForward(sc.Shard, e.Input, e.Output, kernel, sw)
		}
		sw.GlobalWait()

		if sw.IsMaster() {
			alg.Swap()
		}
		e.globalBarr.Wait()
	}
}
